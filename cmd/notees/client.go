package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/notees"
	"github.com/MrEthical07/notees/session"
	"github.com/MrEthical07/notees/theme"
)

var errNotSignedIn = errors.New("not signed in; run `notees login` first")

// client is one run of the command: a started app plus terminal I/O.
type client struct {
	app    *notees.App
	cfg    notees.Config
	logger *zap.Logger
	prompt *prompter
	out    io.Writer
	theme  *theme.Theme
}

// resolveConfigPath returns the --config value, or the per-user default
// when that file exists.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "notees", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// openClient loads the config, starts the app and waits for the persisted
// session lookup. The caller must Close the client.
func openClient(cmd *cobra.Command) (*client, error) {
	cfg, err := notees.LoadConfig(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := notees.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var fixed *theme.Theme
	if themeName != "" {
		t, err := theme.Lookup(themeName)
		if err != nil {
			return nil, err
		}
		fixed = &t
	}

	app, err := notees.NewSupabaseApp(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	ctx := cmd.Context()
	app.Start(ctx)
	waitCtx, cancel := context.WithTimeout(ctx, cfg.LookupTimeout+cfg.Supabase.RequestTimeout)
	defer cancel()
	if _, err := app.Wait(waitCtx); err != nil {
		app.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	return &client{
		app:    app,
		cfg:    cfg,
		logger: logger,
		prompt: newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		out:    &lockedWriter{w: cmd.OutOrStdout()},
		theme:  fixed,
	}, nil
}

// lockedWriter serializes writes from the shell and the router watcher.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (c *client) Close() {
	c.app.Close()
	_ = c.logger.Sync()
}

// styles returns the theme for the router's current screen unless one was
// chosen with --theme.
func (c *client) styles() theme.Styles {
	if c.theme != nil {
		return c.theme.Styles()
	}
	r := c.cfg.Routes
	return theme.ForLocation(c.app.Router().Location(), r.AuthArea, r.Home).Styles()
}

// settle waits until the store reports the wanted sign-in state, so the
// router and the feed have caught up before the next command runs.
func (c *client) settle(ctx context.Context, authenticated bool) {
	done := make(chan struct{})
	var once sync.Once
	cancel := c.app.Session().Watch(func(st session.State) {
		if !st.IsLoading && st.Authenticated() == authenticated {
			once.Do(func() { close(done) })
		}
	})
	defer cancel()
	if st := c.app.State(); !st.IsLoading && st.Authenticated() == authenticated {
		return
	}

	ctx, stop := context.WithTimeout(ctx, c.cfg.Supabase.RequestTimeout)
	defer stop()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("session change not observed", zap.Bool("authenticated", authenticated))
	}
}

func (c *client) requireUser() (string, error) {
	st := c.app.State()
	if !st.Authenticated() {
		return "", errNotSignedIn
	}
	return st.UserID(), nil
}

// withClient opens a client for the duration of fn.
func withClient(fn func(cmd *cobra.Command, c *client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(cmd, c, args)
	}
}
