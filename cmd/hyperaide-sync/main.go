// Command hyperaide-sync captures the authentication cookies of a live
// browser session and syncs them to Hyperaide.
//
// Usage:
//
//	HYPERAIDE_SYNC_TOKEN=... hyperaide-sync         # sync (default)
//	hyperaide-sync status -t <token>
//	hyperaide-sync reset --force
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/hyperaide-sync/capture"
	"github.com/hazyhaar/hyperaide-sync/internal/browser"
	"github.com/hazyhaar/hyperaide-sync/internal/config"
	"github.com/hazyhaar/hyperaide-sync/internal/present"
	"github.com/hazyhaar/hyperaide-sync/syncapi"
	"github.com/hazyhaar/hyperaide-sync/syncflow"
)

type options struct {
	token      string
	dev        bool
	configPath string
	logLevel   string
	force      bool
}

// app holds what every subcommand needs, built once in PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    *present.Presenter
	flow   *syncflow.Orchestrator
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := present.New(os.Stdout, os.Stdin)
	out.ManageURL = config.ManageURL

	if err := newRootCmd(out, os.Stderr).ExecuteContext(ctx); err != nil {
		report(out, err)
		os.Exit(1)
	}
}

func newRootCmd(out *present.Presenter, logOut io.Writer) *cobra.Command {
	var opts options
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "hyperaide-sync",
		Short:         "Sync your browser authentication to Hyperaide",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(opts, logOut)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.sync(cmd.Context())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.token, "token", "t", "", "sync token (default $"+config.EnvToken+")")
	pf.BoolVar(&opts.dev, "dev", false, "use the local development API")
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Open a browser, capture your logins and sync them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.sync(cmd.Context())
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current browser sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.status(cmd.Context())
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Disconnect all synced sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.reset(cmd.Context(), opts.force)
		},
	}
	resetCmd.Flags().BoolVarP(&opts.force, "force", "f", false, "skip confirmation prompt")

	root.AddCommand(syncCmd, statusCmd, resetCmd)
	return root
}

func (a *app) init(opts options, logOut io.Writer) error {
	a.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: parseLevel(opts.logLevel)}))

	cfg, err := config.Resolve(opts.configPath, os.Getenv, config.Overrides{Token: opts.token, Dev: opts.dev})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	client := syncapi.New(syncapi.Config{
		BaseURL:        cfg.BaseURL(),
		ControlTimeout: cfg.Timeouts.Control,
		UploadTimeout:  cfg.Timeouts.Upload,
		Logger:         a.logger,
	})
	launcher := browser.NewLauncher(browser.FromConfig(cfg, a.logger))

	a.flow = syncflow.New(syncflow.Config{
		Transport: client,
		NewSession: func() syncflow.Session {
			return capture.New(capture.Config{
				Launcher:       launcher,
				WelcomeURL:     cfg.Welcome(),
				WelcomeTimeout: cfg.Timeouts.Welcome,
				PollInterval:   cfg.Browser.PollInterval,
				Logger:         a.logger,
			})
		},
		Reporter:  a.out,
		Confirmer: a.out,
		Logger:    a.logger,
	})
	a.logger.Debug("hyperaide-sync: config resolved", "api", cfg.BaseURL(), "dev", cfg.Dev)
	return nil
}

func (a *app) sync(ctx context.Context) error {
	a.out.Banner()
	outcome, err := a.flow.Sync(ctx, a.cfg.Token)
	if err != nil {
		return err
	}
	a.out.SyncOutcome(outcome)
	return nil
}

func (a *app) status(ctx context.Context) error {
	a.out.Banner()
	st, err := a.flow.Status(ctx, a.cfg.Token)
	if err != nil {
		return err
	}
	a.out.Status(st)
	return nil
}

func (a *app) reset(ctx context.Context, force bool) error {
	a.out.Banner()
	done, err := a.flow.Reset(ctx, a.cfg.Token, force)
	if err != nil {
		return err
	}
	a.out.ResetDone(done)
	return nil
}

// report prints a fatal error the way the user should read it.
func report(out *present.Presenter, err error) {
	var srvErr *syncapi.ServerError
	var netErr *syncapi.NetworkError
	switch {
	case errors.Is(err, syncflow.ErrMissingToken):
		out.Errorf("Missing sync token")
		out.Subtle("Usage: " + config.EnvToken + "=your_token hyperaide-sync")
	case errors.Is(err, syncapi.ErrInvalidToken):
		out.Errorf("Invalid sync token")
	case errors.As(err, &srvErr):
		out.Errorf("Server error: %d", srvErr.StatusCode)
		if srvErr.Body != "" {
			out.Subtle(srvErr.Body)
		}
	case errors.As(err, &netErr):
		out.Errorf("Failed to connect: %v", netErr.Err)
	case errors.Is(err, capture.ErrLaunch):
		out.Errorf("Could not start the browser: %v", err)
	default:
		out.Errorf("%v", err)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
