package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SmileSnow819/natours/pkg/credstore"
	"github.com/SmileSnow819/natours/pkg/filewatcher"
	"github.com/SmileSnow819/natours/pkg/session"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the stored session and print every change",
		Long: `watch keeps the session in step with other natours processes that share
the same storage. The credentials file is watched for changes; the other
storage types, and files when sync.poll is set, are polled every
sync.interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				s, _ := a.restore(ctx)
				printChange(a, s)

				unsubscribe := a.manager.Subscribe(session.ListenerFunc(func(s session.Session) {
					printChange(a, s)
				}))
				defer unsubscribe()

				err := a.follow(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

// follow reloads the session whenever the storage changes until ctx is done.
func (a *app) follow(ctx context.Context) error {
	if a.credCfg.Type == "file" && !a.cfg.Sync.Poll {
		return a.watchFile(ctx)
	}
	return a.poll(ctx)
}

func (a *app) watchFile(ctx context.Context) error {
	path := a.credCfg.File
	if path == "" {
		path = credstore.DefaultFilePath()
	}
	debounce, _ := a.cfg.Sync.GetDebounce()

	watcher, err := filewatcher.NewWatcher(path, debounce)
	if err != nil {
		return fmt.Errorf("failed to watch credentials: %w", err)
	}
	watcher.AddListener(a.manager)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return watcher.Close()
	})

	a.logger.Info("watching credentials", "path", watcher.Path())
	return g.Wait()
}

func (a *app) poll(ctx context.Context) error {
	interval, _ := a.cfg.Sync.GetInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("polling credentials", "storage", a.credCfg.Type, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.manager.Reload(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("failed to reload session", "error", err)
			}
		}
	}
}

func printChange(a *app, s session.Session) {
	stamp := time.Now().Format(time.TimeOnly)
	if s.User != nil {
		a.printf("%s %s %s <%s>\n", stamp, s.Status, s.User.Name, s.User.Email)
		return
	}
	a.printf("%s %s\n", stamp, s.Status)
}
