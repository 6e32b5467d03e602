package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/SmileSnow819/natours/pkg/api"
)

var errConfirmRequired = errors.New("refusing to delete the account without --yes")

func newProfileCmd(opts *rootOptions) *cobra.Command {
	var update api.UserUpdate

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change the name or photo of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.requireSession(ctx); err != nil {
					return err
				}
				if err := a.manager.UpdateProfile(ctx, update); err != nil {
					return err
				}
				printSession(a, a.manager.Current())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&update.Name, "name", "n", "", "New display name")
	cmd.Flags().StringVar(&update.Photo, "photo", "", "New profile photo file name")
	return cmd
}

func newPasswordCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change, forget or reset the account password",
	}
	cmd.AddCommand(newPasswordUpdateCmd(opts), newPasswordForgotCmd(opts), newPasswordResetCmd(opts))
	return cmd
}

func newPasswordUpdateCmd(opts *rootOptions) *cobra.Command {
	var update api.PasswordUpdate

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the password of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.requireSession(ctx); err != nil {
					return err
				}
				var err error
				if update.PasswordCurrent, err = a.secret(update.PasswordCurrent, passwordEnv, "Current password"); err != nil {
					return err
				}
				if update.Password, err = a.secret(update.Password, "", "New password"); err != nil {
					return err
				}
				if update.PasswordConfirm == "" {
					update.PasswordConfirm = update.Password
				}
				if err := a.manager.UpdatePassword(ctx, update); err != nil {
					return err
				}
				a.printf("Password updated\n")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&update.PasswordCurrent, "current", "", "Current password (default: $"+passwordEnv+" or prompt)")
	cmd.Flags().StringVar(&update.Password, "new", "", "New password (default: prompt)")
	cmd.Flags().StringVar(&update.PasswordConfirm, "confirm", "", "New password confirmation (default: same as --new)")
	return cmd
}

func newPasswordForgotCmd(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Ask the backend to send a password reset token by email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.manager.ForgotPassword(ctx, email); err != nil {
					return err
				}
				a.printf("Reset token sent to %s\n", email)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func newPasswordResetCmd(opts *rootOptions) *cobra.Command {
	var reset api.PasswordReset

	cmd := &cobra.Command{
		Use:   "reset <token>",
		Short: "Set a new password with an emailed reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				var err error
				if reset.Password, err = a.secret(reset.Password, passwordEnv, "New password"); err != nil {
					return err
				}
				if reset.PasswordConfirm == "" {
					reset.PasswordConfirm = reset.Password
				}
				if err := a.manager.ResetPassword(ctx, args[0], reset); err != nil {
					return err
				}
				a.printf("Password reset, log in with the new password\n")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&reset.Password, "password", "p", "", "New password (default: $"+passwordEnv+" or prompt)")
	cmd.Flags().StringVar(&reset.PasswordConfirm, "confirm", "", "New password confirmation (default: same as --password)")
	return cmd
}

func newAccountCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the signed-in account",
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Deactivate the signed-in account and log out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errConfirmRequired
			}
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.requireSession(ctx); err != nil {
					return err
				}
				if err := a.manager.DeleteAccount(ctx); err != nil {
					return err
				}
				a.printf("Account deleted\n")
				return nil
			})
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")

	cmd.AddCommand(deleteCmd)
	return cmd
}
