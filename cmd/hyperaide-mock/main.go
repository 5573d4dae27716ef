// Command hyperaide-mock runs the local browser sync API and welcome page
// used by `hyperaide-sync --dev`.
//
// Usage:
//
//	hyperaide-mock --token dev-token
//	hyperaide-mock --config mock.yaml
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/hyperaide-sync/mockapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		logger.Error("hyperaide-mock: fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath string
		cfg        mockapi.Config
	)
	cmd := &cobra.Command{
		Use:          "hyperaide-mock",
		Short:        "Serve the browser sync API locally",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				fileCfg, err := mockapi.LoadConfig(configPath)
				if err != nil {
					return err
				}
				merge(&fileCfg, cfg, cmd)
				cfg = fileCfg
			}
			cfg.Logger = logger
			return serve(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "path to a YAML config file")
	f.StringSliceVar(&cfg.Tokens, "token", nil, "accepted sync token (repeatable)")
	f.StringVar(&cfg.DB, "db", "", "sqlite path (default in-memory)")
	f.StringVar(&cfg.APIAddr, "api-addr", "localhost:4000", "API listen address")
	f.StringVar(&cfg.WelcomeAddr, "welcome-addr", "localhost:3000", "welcome page listen address")
	return cmd
}

// merge lets explicitly set flags win over the file.
func merge(dst *mockapi.Config, flags mockapi.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("token") {
		dst.Tokens = append(dst.Tokens, flags.Tokens...)
	}
	if cmd.Flags().Changed("db") {
		dst.DB = flags.DB
	}
	if cmd.Flags().Changed("api-addr") || dst.APIAddr == "" {
		dst.APIAddr = flags.APIAddr
	}
	if cmd.Flags().Changed("welcome-addr") || dst.WelcomeAddr == "" {
		dst.WelcomeAddr = flags.WelcomeAddr
	}
}

func serve(ctx context.Context, cfg mockapi.Config) error {
	srv, err := mockapi.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer srv.Close()
	cfg = srv.Config()

	g, ctx := errgroup.WithContext(ctx)
	listen := func(name, addr string, h http.Handler) {
		hs := &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		g.Go(func() error {
			cfg.Logger.Info("hyperaide-mock: listening", "server", name, "addr", addr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}
	listen("api", cfg.APIAddr, srv.Handler())
	listen("welcome", cfg.WelcomeAddr, mockapi.WelcomeHandler())

	return g.Wait()
}
