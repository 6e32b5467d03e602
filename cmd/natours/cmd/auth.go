package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/i18n"
	"github.com/SmileSnow819/natours/pkg/session"
)

// passwordEnv is read when no --password flag is given.
const passwordEnv = "NATOURS_PASSWORD"

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				pw, err := a.secret(password, passwordEnv, "Password")
				if err != nil {
					return err
				}
				if err := a.manager.Login(ctx, email, pw); err != nil {
					return err
				}
				printSession(a, a.manager.Current())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (default: $"+passwordEnv+" or prompt)")
	return cmd
}

func newSignupCmd(opts *rootOptions) *cobra.Command {
	var data api.SignupData

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				var err error
				if data.Password, err = a.secret(data.Password, passwordEnv, "Password"); err != nil {
					return err
				}
				if data.PasswordConfirm == "" {
					data.PasswordConfirm = data.Password
				}
				if err := a.manager.Signup(ctx, data); err != nil {
					return err
				}
				printSession(a, a.manager.Current())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&data.Name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&data.Password, "password", "p", "", "Account password (default: $"+passwordEnv+" or prompt)")
	cmd.Flags().StringVar(&data.PasswordConfirm, "password-confirm", "", "Password confirmation (default: same as --password)")
	cmd.Flags().StringVar(&data.Photo, "photo", "", "Profile photo file name")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				a.manager.Logout()
				a.printf("Logged out\n")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Validate the stored session and show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				s, expired := a.restore(ctx)
				if expired {
					a.printf("%s\n", a.t(i18n.SessionExpired))
				}
				printSession(a, s)
				return nil
			})
		},
	}
}

func printSession(a *app, s session.Session) {
	a.printf("Status: %s\n", s.Status)
	if !s.Authenticated() || s.User == nil {
		return
	}
	a.printf("Name:   %s\n", s.User.Name)
	a.printf("Email:  %s\n", s.User.Email)
	if s.User.Role != "" {
		a.printf("Role:   %s\n", s.User.Role)
	}
}
