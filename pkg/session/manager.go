package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/autherr"
	"github.com/SmileSnow819/natours/pkg/credstore"
	"github.com/SmileSnow819/natours/pkg/i18n"
	"github.com/SmileSnow819/natours/pkg/logging"
)

// Backend is the part of the natours API the manager calls.
// *api.Client implements it.
type Backend interface {
	Login(ctx context.Context, creds api.LoginCredentials) (*api.AuthResponse, error)
	Signup(ctx context.Context, data api.SignupData) (*api.AuthResponse, error)
	GetMe(ctx context.Context, src oauth2.TokenSource) (*api.User, error)
	UpdateMe(ctx context.Context, src oauth2.TokenSource, update api.UserUpdate) (*api.User, error)
	UpdatePassword(ctx context.Context, src oauth2.TokenSource, update api.PasswordUpdate) (*api.AuthResponse, error)
	DeleteMe(ctx context.Context, src oauth2.TokenSource) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken string, reset api.PasswordReset) error
}

var _ Backend = (*api.Client)(nil)

// Option customizes a Manager.
type Option func(*Manager)

// WithTranslator sets the translator used for fallback messages.
func WithTranslator(t *i18n.Translator) Option {
	return func(m *Manager) { m.translator = t }
}

// WithLanguage sets the language of fallback messages.
func WithLanguage(lang i18n.Language) Option {
	return func(m *Manager) { m.lang = lang }
}

// Manager owns the session. All methods are safe for concurrent use.
//
// Every mutation persists the credentials and updates memory under one
// write lock and bumps a generation counter. A validation result is applied
// only when the generation it started from is still current, so a stale
// response can never resurrect a session that was replaced or cleared.
type Manager struct {
	backend    Backend
	store      credstore.Store
	logger     logging.Logger
	translator *i18n.Translator
	lang       i18n.Language

	mu     sync.RWMutex
	token  string
	user   *User
	status Status
	gen    uint64

	validations singleflight.Group
	bgMu        sync.Mutex
	bgIdle      *sync.Cond
	inflight    int

	listenersMu sync.Mutex
	listeners   map[int]ChangeListener
	nextID      int
}

// NewManager creates an unauthenticated manager. Call Restore to adopt
// persisted credentials.
func NewManager(backend Backend, store credstore.Store, logger logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend:   backend,
		store:     store,
		logger:    logger.WithModule("session"),
		lang:      i18n.DefaultLanguage,
		listeners: make(map[int]ChangeListener),
	}
	m.bgIdle = sync.NewCond(&m.bgMu)
	for _, opt := range opts {
		opt(m)
	}
	if m.translator == nil {
		m.translator = i18n.NewTranslator()
	}
	return m
}

// Current returns a snapshot of the latest completed mutation.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Session {
	return Session{User: copyUser(m.user), Token: m.token, Status: m.status}
}

// Subscribe registers l for change notifications and returns a function
// that unregisters it.
func (m *Manager) Subscribe(l ChangeListener) func() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

// notify must be called without m.mu held.
func (m *Manager) notify(s Session) {
	m.listenersMu.Lock()
	listeners := make([]ChangeListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.Unlock()

	for _, l := range listeners {
		l.OnSessionChange(s)
	}
}

// Restore adopts the persisted credentials. Without a token the session is
// Unauthenticated and no request is made. With a token and a readable user
// the session is installed as Authenticated right away, with a token alone
// it is Restoring; either way the token is then validated in the
// background. ctx bounds that background validation. Restore returns the
// session it installed, before validation.
func (m *Manager) Restore(ctx context.Context) Session {
	creds, err := m.store.Get(ctx)
	if err != nil {
		m.logger.Warn("failed to read stored credentials, starting unauthenticated", "error", err)
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.logger.Debug("failed to clear unreadable credentials", "error", cerr)
		}
		creds = credstore.Credentials{}
	}

	m.mu.Lock()
	prev := m.snapshotLocked()
	m.adoptLocked(creds)
	next := m.snapshotLocked()
	gen := m.gen
	m.mu.Unlock()

	if !next.equal(prev) {
		m.notify(next)
	}

	if creds.Empty() {
		m.logger.Debug("no stored session")
		return next
	}
	m.logger.Info("restoring stored session", "status", next.Status, "token_fp", fingerprint(creds.Token))
	m.validateAsync(ctx, gen, creds.Token)
	return next
}

// adoptLocked installs creds in memory without writing them back.
func (m *Manager) adoptLocked(creds credstore.Credentials) {
	m.gen++
	if creds.Empty() {
		m.token, m.user, m.status = "", nil, Unauthenticated
		return
	}
	m.token = creds.Token
	m.user = decodeUser(creds.User)
	if m.user != nil {
		m.status = Authenticated
	} else {
		m.status = Restoring
	}
}

func (m *Manager) validateAsync(ctx context.Context, gen uint64, token string) {
	m.bgMu.Lock()
	m.inflight++
	m.bgMu.Unlock()

	go func() {
		defer func() {
			m.bgMu.Lock()
			m.inflight--
			if m.inflight == 0 {
				m.bgIdle.Broadcast()
			}
			m.bgMu.Unlock()
		}()
		m.validate(ctx, gen, token)
	}()
}

// Wait blocks until no background validation is in flight.
func (m *Manager) Wait() {
	m.bgMu.Lock()
	defer m.bgMu.Unlock()
	for m.inflight > 0 {
		m.bgIdle.Wait()
	}
}

// Validating reports whether a background validation is in flight.
func (m *Manager) Validating() bool {
	m.bgMu.Lock()
	defer m.bgMu.Unlock()
	return m.inflight > 0
}

// Validate checks token against the backend. On success the returned user
// replaces the current one and is persisted; any failure clears the
// session. Validate never reports an error. A token that is not the
// installed one is ignored, and so is a result that arrives after the
// session was changed by another operation.
func (m *Manager) Validate(ctx context.Context, token string) {
	m.mu.RLock()
	gen, installed := m.gen, m.token
	m.mu.RUnlock()

	if token == "" || token != installed {
		m.logger.Debug("ignoring validation of a token that is not installed", "token_fp", fingerprint(token))
		return
	}
	m.validate(ctx, gen, token)
}

type validation struct {
	user *User
	err  error
}

// fetchMe runs GetMe for token, shared with concurrent callers. A shared
// request runs under the first caller's ctx; when that ctx is cancelled
// while ours is still live the request is issued again.
func (m *Manager) fetchMe(ctx context.Context, token string) validation {
	v, _, _ := m.validations.Do(token, func() (interface{}, error) {
		user, err := m.backend.GetMe(ctx, api.StaticToken(token))
		return validation{user: user, err: err}, nil
	})
	res := v.(validation)
	if res.err != nil && ctx.Err() == nil && errors.Is(res.err, context.Canceled) {
		user, err := m.backend.GetMe(ctx, api.StaticToken(token))
		res = validation{user: user, err: err}
	}
	return res
}

func (m *Manager) validate(ctx context.Context, gen uint64, token string) {
	res := m.fetchMe(ctx, token)

	if res.err != nil && (ctx.Err() != nil || errors.Is(res.err, context.Canceled)) {
		m.logger.Debug("validation cancelled", "token_fp", fingerprint(token), "error", res.err)
		return
	}

	m.mu.Lock()
	if m.gen != gen || m.token != token {
		m.mu.Unlock()
		m.logger.Debug("discarding stale validation result", "token_fp", fingerprint(token))
		return
	}

	err := res.err
	if err == nil {
		err = m.persistLocked(ctx, token, res.user)
	}
	if err == nil {
		m.token, m.user, m.status = token, copyUser(res.user), Authenticated
	} else {
		m.clearLocked()
	}
	m.gen++
	next := m.snapshotLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Info("stored session is no longer valid", "token_fp", fingerprint(token), "error", err)
	} else {
		m.logger.Debug("session validated", "user_id", res.user.ID)
	}
	m.notify(next)
}

// persistLocked writes token and user to the store.
func (m *Manager) persistLocked(ctx context.Context, token string, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return autherr.New(autherr.ErrValidationFailed, 0, "", fmt.Errorf("session: failed to encode user: %w", err))
	}
	if err := m.store.Set(ctx, credstore.Credentials{Token: token, User: data}); err != nil {
		return autherr.Storage(fmt.Errorf("session: failed to persist credentials: %w", err))
	}
	return nil
}

// clearLocked wipes memory and storage. Storage failures are logged only.
func (m *Manager) clearLocked() {
	m.token, m.user, m.status = "", nil, Unauthenticated
	if err := m.store.Clear(context.Background()); err != nil {
		m.logger.Error("failed to clear stored credentials", "error", err)
	}
}

// install persists and installs the token and user of resp.
func (m *Manager) install(ctx context.Context, resp *api.AuthResponse) error {
	_, err := m.installIf(ctx, resp, nil)
	return err
}

// installIf is install guarded by current, evaluated under the write lock.
// It reports false, with nothing written, when current rejects.
func (m *Manager) installIf(ctx context.Context, resp *api.AuthResponse, current func() bool) (bool, error) {
	user := resp.User()

	m.mu.Lock()
	if current != nil && !current() {
		m.mu.Unlock()
		return false, nil
	}
	if err := m.persistLocked(ctx, resp.Token, user); err != nil {
		m.mu.Unlock()
		return false, err
	}
	m.token, m.user, m.status = resp.Token, copyUser(user), Authenticated
	m.gen++
	next := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(next)
	return true, nil
}

func (m *Manager) msg(key string, args ...interface{}) string {
	return m.translator.T(m.lang, key, args...)
}

// fail normalizes err with the localized fallback for key.
func (m *Manager) fail(err error, key string) error {
	return autherr.WithFallback(err, m.msg(key))
}

type field struct{ name, value string }

// require fails with a ValidationFailed error naming every empty field.
func (m *Manager) require(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return autherr.Validation(m.msg(i18n.FieldsRequired, strings.Join(missing, ", ")))
}

// Login exchanges email and password for a session. On failure the
// session is left unchanged and the returned *autherr.Error carries the
// backend message or a localized fallback.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return autherr.Validation(m.msg(i18n.CredentialsRequired))
	}

	resp, err := m.backend.Login(ctx, api.LoginCredentials{Email: email, Password: password})
	if err != nil {
		m.logger.Debug("login rejected", "error", err)
		return m.fail(err, i18n.LoginFailed)
	}
	if err := m.install(ctx, resp); err != nil {
		m.logger.Error("failed to store session after login", "error", err)
		return m.fail(err, i18n.LoginFailed)
	}

	m.logger.Info("logged in", "user_id", resp.User().ID, "token_fp", fingerprint(resp.Token))
	return nil
}

// Signup creates an account and logs into it. It fails like Login.
func (m *Manager) Signup(ctx context.Context, data api.SignupData) error {
	if err := m.require(
		field{"name", data.Name},
		field{"email", data.Email},
		field{"password", data.Password},
		field{"passwordConfirm", data.PasswordConfirm},
	); err != nil {
		return err
	}

	resp, err := m.backend.Signup(ctx, data)
	if err != nil {
		m.logger.Debug("signup rejected", "error", err)
		return m.fail(err, i18n.SignupFailed)
	}
	if err := m.install(ctx, resp); err != nil {
		m.logger.Error("failed to store session after signup", "error", err)
		return m.fail(err, i18n.SignupFailed)
	}

	m.logger.Info("signed up", "user_id", resp.User().ID, "token_fp", fingerprint(resp.Token))
	return nil
}

// Logout clears the session in memory and storage. It makes no request and
// cannot fail; calling it again is harmless.
func (m *Manager) Logout() {
	m.mu.Lock()
	prev := m.snapshotLocked()
	m.clearLocked()
	m.gen++
	next := m.snapshotLocked()
	m.mu.Unlock()

	if !next.equal(prev) {
		m.logger.Info("logged out", "token_fp", fingerprint(prev.Token))
		m.notify(next)
	}
}

// HandleUnauthorized clears the session when token, rejected by the
// backend, is still the installed one. It matches api.UnauthorizedHandler.
func (m *Manager) HandleUnauthorized(token string) {
	m.mu.Lock()
	if token == "" || token != m.token {
		m.mu.Unlock()
		return
	}
	m.clearLocked()
	m.gen++
	next := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Warn("session rejected by the backend", "token_fp", fingerprint(token))
	m.notify(next)
}

// Token implements oauth2.TokenSource with the installed token.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token == "" {
		return nil, m.notAuthenticated()
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

var _ oauth2.TokenSource = (*Manager)(nil)

// Reload adopts credentials written by another process. A new token is
// validated in the background; a removed one logs this process out.
func (m *Manager) Reload(ctx context.Context) error {
	creds, err := m.store.Get(ctx)
	if err != nil {
		return autherr.Storage(fmt.Errorf("session: failed to reload credentials: %w", err))
	}

	m.mu.Lock()
	prev := m.snapshotLocked()
	validate := false
	switch {
	case creds.Token == m.token && creds.Token != "":
		if u := decodeUser(creds.User); u != nil && m.status == Authenticated && *u != *m.user {
			m.user = u
			m.gen++
		}
	case creds.Token != m.token:
		m.adoptLocked(creds)
		validate = !creds.Empty()
	}
	next := m.snapshotLocked()
	gen := m.gen
	m.mu.Unlock()

	if next.equal(prev) {
		return nil
	}
	m.logger.Info("session changed in storage", "status", next.Status, "token_fp", fingerprint(next.Token))
	m.notify(next)
	if validate {
		m.validateAsync(ctx, gen, creds.Token)
	}
	return nil
}
