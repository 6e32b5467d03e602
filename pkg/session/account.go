package session

import (
	"context"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/autherr"
	"github.com/SmileSnow819/natours/pkg/i18n"
)

// authenticated returns the token and generation of an Authenticated
// session.
func (m *Manager) authenticated() (string, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != Authenticated {
		return "", 0, m.notAuthenticated()
	}
	return m.token, m.gen, nil
}

func (m *Manager) notAuthenticated() error {
	return autherr.New(autherr.ErrAuthRejected, 0, m.msg(i18n.NotAuthenticated), nil)
}

// currentLocked reports whether the session is still the one captured by
// authenticated.
func (m *Manager) currentLocked(token string, gen uint64) bool {
	return m.gen == gen && m.token == token
}

// UpdateProfile changes the name and/or photo of the current user and
// installs the record returned by the backend.
func (m *Manager) UpdateProfile(ctx context.Context, update api.UserUpdate) error {
	if update.Name == "" && update.Photo == "" {
		return autherr.Validation(m.msg(i18n.FieldsRequired, "name, photo"))
	}
	token, gen, err := m.authenticated()
	if err != nil {
		return err
	}

	user, err := m.backend.UpdateMe(ctx, api.StaticToken(token), update)
	if err != nil {
		return m.fail(err, i18n.UpdateFailed)
	}

	m.mu.Lock()
	if !m.currentLocked(token, gen) {
		m.mu.Unlock()
		m.logger.Debug("session changed during profile update, discarding result")
		return m.notAuthenticated()
	}
	if err := m.persistLocked(ctx, token, user); err != nil {
		m.mu.Unlock()
		return m.fail(err, i18n.UpdateFailed)
	}
	m.user, m.status = copyUser(user), Authenticated
	m.gen++
	next := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("profile updated", "user_id", user.ID)
	m.notify(next)
	return nil
}

// UpdatePassword changes the password. The backend answers with a fresh
// token, which replaces the installed one.
func (m *Manager) UpdatePassword(ctx context.Context, update api.PasswordUpdate) error {
	if err := m.require(
		field{"passwordCurrent", update.PasswordCurrent},
		field{"password", update.Password},
		field{"passwordConfirm", update.PasswordConfirm},
	); err != nil {
		return err
	}
	token, gen, err := m.authenticated()
	if err != nil {
		return err
	}

	resp, err := m.backend.UpdatePassword(ctx, api.StaticToken(token), update)
	if err != nil {
		return m.fail(err, i18n.PasswordUpdateFailed)
	}
	installed, err := m.installIf(ctx, resp, func() bool { return m.currentLocked(token, gen) })
	if err != nil {
		return m.fail(err, i18n.PasswordUpdateFailed)
	}
	if !installed {
		m.logger.Debug("session changed during password update, discarding result")
		return m.notAuthenticated()
	}

	m.logger.Info("password updated", "user_id", resp.User().ID, "token_fp", fingerprint(resp.Token))
	return nil
}

// DeleteAccount deactivates the current account and logs out.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	token, _, err := m.authenticated()
	if err != nil {
		return err
	}
	if err := m.backend.DeleteMe(ctx, api.StaticToken(token)); err != nil {
		return m.fail(err, i18n.DeleteFailed)
	}
	m.logger.Info("account deleted")
	m.Logout()
	return nil
}

// ForgotPassword asks the backend to send a reset link. The session is
// not touched.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	if err := m.require(field{"email", email}); err != nil {
		return err
	}
	if err := m.backend.ForgotPassword(ctx, email); err != nil {
		return m.fail(err, i18n.ForgotPasswordFailed)
	}
	return nil
}

// ResetPassword sets a new password with the token from the reset email.
// It does not log in; the caller logs in with the new password afterwards.
func (m *Manager) ResetPassword(ctx context.Context, resetToken string, reset api.PasswordReset) error {
	if err := m.require(
		field{"token", resetToken},
		field{"password", reset.Password},
		field{"passwordConfirm", reset.PasswordConfirm},
	); err != nil {
		return err
	}
	if err := m.backend.ResetPassword(ctx, resetToken, reset); err != nil {
		return m.fail(err, i18n.ResetPasswordFailed)
	}
	return nil
}
