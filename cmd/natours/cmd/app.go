package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/autherr"
	"github.com/SmileSnow819/natours/pkg/config"
	"github.com/SmileSnow819/natours/pkg/credstore"
	"github.com/SmileSnow819/natours/pkg/i18n"
	"github.com/SmileSnow819/natours/pkg/logging"
	"github.com/SmileSnow819/natours/pkg/session"
)

// app is the composition root of one command run.
type app struct {
	cfg        *config.Config
	credCfg    credstore.Config
	logger     logging.Logger
	lang       i18n.Language
	translator *i18n.Translator
	store      credstore.Store
	client     *api.Client
	manager    *session.Manager
	out        io.Writer
	stdin      io.Reader
	in         *bufio.Reader
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLoggerWithFile("main", cfg.LogLevel(), cfg.Logging.Color, cfg.LogFileRotation())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	credCfg, err := cfg.CredentialsConfig(opts.profile)
	if err != nil {
		return nil, err
	}
	store, err := credstore.New(credCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential storage: %w", err)
	}

	explicit := opts.lang
	if explicit == "" {
		explicit = cfg.Language
	}
	lang := i18n.DetectLanguage(explicit)
	translator := i18n.NewTranslator()

	client := api.NewClient(cfg.APIClientConfig(), logger)
	manager := session.NewManager(client, store, logger,
		session.WithTranslator(translator),
		session.WithLanguage(lang),
	)
	client.SetUnauthorizedHandler(manager.HandleUnauthorized)

	logger.Debug("natours client ready",
		"version", version,
		"base_url", client.BaseURL(),
		"storage", cfg.Storage.Type,
		"profile", opts.profile,
		"lang", lang,
	)

	return &app{
		cfg:        cfg,
		credCfg:    credCfg,
		logger:     logger,
		lang:       lang,
		translator: translator,
		store:      store,
		client:     client,
		manager:    manager,
		out:        cmd.OutOrStdout(),
		stdin:      cmd.InOrStdin(),
		in:         bufio.NewReader(cmd.InOrStdin()),
	}, nil
}

// run builds the app, calls fn and releases the app.
func run(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

func (a *app) close() {
	a.manager.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close credential storage", "error", err)
	}
}

// restore adopts the stored session and waits for its validation. It
// reports whether a stored session was rejected.
func (a *app) restore(ctx context.Context) (session.Session, bool) {
	before := a.manager.Restore(ctx)
	a.manager.Wait()
	after := a.manager.Current()
	return after, before.Status != session.Unauthenticated && after.Status == session.Unauthenticated
}

// requireSession restores the stored session and fails when there is none.
func (a *app) requireSession(ctx context.Context) (session.Session, error) {
	s, expired := a.restore(ctx)
	if s.Authenticated() {
		return s, nil
	}
	key := i18n.NotAuthenticated
	if expired {
		key = i18n.SessionExpired
	}
	return s, autherr.New(autherr.ErrAuthRejected, 0, a.t(key), nil)
}

func (a *app) t(key string, args ...interface{}) string {
	return a.translator.T(a.lang, key, args...)
}

// fail normalizes err with the localized fallback for key.
func (a *app) fail(err error, key string) error {
	return autherr.WithFallback(err, a.t(key))
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// secret returns value, else the environment variable envName, else what
// is typed after prompt. A terminal reads without echo; piped input is read
// one line at a time.
func (a *app) secret(value, envName, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if v := os.Getenv(envName); v != "" {
		return v, nil
	}

	a.printf("%s: ", prompt)
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		a.printf("\n")
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(prompt), err)
		}
		return string(pw), nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
