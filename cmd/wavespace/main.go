package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/config"
	"github.com/wavespace/wavespace/internal/data"
	"github.com/wavespace/wavespace/internal/diag"
	"github.com/wavespace/wavespace/internal/localstate"
	"github.com/wavespace/wavespace/internal/logger"
	"github.com/wavespace/wavespace/internal/notify"
	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "--version", "version", "-v":
		fmt.Fprintln(out, "wavespace "+version)
		return nil
	case "help", "--help", "-h":
		printHelp(out)
		return nil
	case "", "logout", "health", "reset-password":
	default:
		return fmt.Errorf("unknown command %q (run 'wavespace help')", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch cmd {
	case "logout":
		return runLogout(cfg, out)
	case "health":
		return runHealth(cfg, out)
	case "reset-password":
		return runResetPassword(cfg, args[1:], out)
	}
	return runTUI(cfg)
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `wavespace - the WAVE space community in your terminal

Usage:
  wavespace                        Open the community (interactive TUI)
  wavespace logout                 Sign out and clear the saved session
  wavespace health                 Check the backend connection
  wavespace reset-password EMAIL   Email a password reset link
  wavespace version                Show version

Configuration is read from .env, the YAML file in WAVESPACE_CONFIG and
the environment (WAVESPACE_URL, WAVESPACE_ANON_KEY, DATABASE_URL, ...).
`)
}

func runTUI(cfg *config.Config) error {
	log, err := logger.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	w, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer w.close()

	bridge := tui.NewBridge()

	dm := data.New(w.store,
		data.WithBackend(w.backend),
		data.WithRealtime(w.realtime),
		data.WithTTL(cfg.Cache.TTL),
		data.WithHealthTable(cfg.Backend.HealthTable),
		data.WithLogger(log),
	)
	defer dm.Close() //nolint:errcheck

	sess := session.New(w.deps, bridge,
		session.WithLogger(log),
		session.WithWaitTimeout(cfg.Session.WaitTimeout),
	)

	notifyOpts := []notify.Option{notify.WithLogger(log)}
	if w.realtime != nil {
		notifyOpts = append(notifyOpts, notify.WithRealtime(w.realtime))
	}
	if cfg.Notify.DesktopPush {
		notifyOpts = append(notifyOpts, notify.WithPusher(tui.TerminalPusher{W: os.Stderr}))
	}
	inbox := notify.New(w.backend, sess, bridge, notifyOpts...)
	defer inbox.Destroy()

	opts := tui.Options{
		Session:  sess,
		Inbox:    inbox,
		Data:     dm,
		WebURL:   cfg.WebURL,
		Version:  version,
		PageSize: cfg.Notify.PageSize,
	}
	state, err := localstate.Open(ctx, cfg.StateDB())
	if err != nil {
		log.Warn("local state unavailable, preferences will not persist", zap.Error(err))
	} else {
		defer state.Close() //nolint:errcheck
		opts.Prefs = state
	}

	if cfg.Diag.Addr != "" {
		srv := diag.NewServer(cfg.Diag.Addr, dm, log)
		srv.Start()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx) //nolint:errcheck
		}()
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	bridge.Attach(p)

	// Joining may wait on the network, so the board feed starts in the background.
	watching := make(chan func(), 1)
	go func() {
		stop, ok := bridge.Watch(ctx, dm, "posts")
		if !ok {
			log.Info("board will not refresh on new posts")
		}
		watching <- stop
	}()
	defer func() {
		select {
		case stop := <-watching:
			stop()
		default:
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func runLogout(cfg *config.Config, out io.Writer) error {
	path := cfg.SessionFile()
	s, err := loadSession(path)
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintln(out, "Already logged out.")
		return nil
	}

	// Revoke on the server when we can reach it; the local file goes either way.
	if c := newClient(cfg, zap.NewNop()); c != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.SignOut(ctx); err != nil {
			fmt.Fprintf(out, "Could not reach the server (%v); clearing the local session.\n", err)
		}
	}
	if err := saveSession(path, nil); err != nil {
		return err
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}

func runHealth(cfg *config.Config, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	w, err := wire(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer w.close()

	dm := data.New(w.store,
		data.WithBackend(w.backend),
		data.WithHealthTable(cfg.Backend.HealthTable),
	)
	defer dm.Close() //nolint:errcheck

	h := dm.HealthCheck(ctx)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode health: %w", err)
	}
	if h.Error != "" {
		return errors.New("backend unhealthy")
	}
	return nil
}

func runResetPassword(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 || !strings.Contains(args[0], "@") {
		return errors.New("usage: wavespace reset-password EMAIL")
	}
	c := newClient(cfg, zap.NewNop())
	if c == nil {
		return errors.New("reset-password needs WAVESPACE_URL and WAVESPACE_ANON_KEY")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.ResetPassword(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "A reset link is on its way to %s.\n", args[0])
	return nil
}
