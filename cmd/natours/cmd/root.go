package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev" // Set by build

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	cfgFile string
	profile string
	lang    string
}

// NewRootCmd builds the natours command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "natours",
		Short: "natours - command line client for the natours tour booking API",
		Long: `natours signs you in to the natours backend and keeps the session
between runs. Tours and reviews can be browsed without an account; posting
reviews and managing the profile require a login.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "Path to configuration file (default: <user config dir>/natours/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "Keep a separate session under this name")
	rootCmd.PersistentFlags().StringVar(&opts.lang, "lang", "", "Message language: en, ja or zh")

	rootCmd.AddCommand(
		newLoginCmd(opts),
		newSignupCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newProfileCmd(opts),
		newPasswordCmd(opts),
		newAccountCmd(opts),
		newToursCmd(opts),
		newReviewsCmd(opts),
		newWatchCmd(opts),
		newTestConfigCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
