// authgate serves role-gated HTTP endpoints behind an authentication filter
// chain. Credentials are checked by the configured filters (bearer JWT,
// HTTP Basic against a user store); the gate then admits only principals
// holding one of the allowed roles and forwards the principal name to the
// application handlers.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/upb/authgate/app"
	"github.com/upb/authgate/config"
	"github.com/upb/authgate/internal/observability"
	"github.com/upb/authgate/listener"
	"github.com/upb/authgate/routes"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	envFile string
	addr    string
}

func parseFlags(args []string) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("authgate", pflag.ContinueOnError)
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.StringVar(&opts.addr, "addr", "", "listen address, overrides SERVER_HOST and SERVER_PORT")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx, opts.envFile)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Observability)
	if err != nil {
		return err
	}
	defer logger.Sync()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("failed to release dependencies", zap.Error(err))
		}
	}()

	builder, err := newBuilder(cfg.Server, opts.addr, logger)
	if err != nil {
		return err
	}

	server, err := deps.Listeners.RegisterHandler(builder, routes.SetupRoutes(deps))
	if err != nil {
		return err
	}
	logger.Info("authgate listening",
		zap.String("addr", server.Addr()),
		zap.Strings("allowed_roles", cfg.Security.AllowedRoles))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return shutdown(shutdownCtx, deps.Listeners)
}

// shutdown unregisters every listener, then stops its server
func shutdown(ctx context.Context, listeners *listener.Registry) error {
	var err error
	for _, server := range listeners.Servers() {
		listeners.UnregisterHandler(server)
		if serr := server.Shutdown(ctx); serr != nil {
			err = multierr.Append(err, fmt.Errorf("server %s shutdown: %w", server.Addr(), serr))
		}
	}
	return err
}

func initLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	return observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

func newBuilder(cfg config.ServerConfig, addr string, logger *zap.Logger) (*listener.HTTPBuilder, error) {
	if addr == "" {
		addr = cfg.Address()
	}

	builder := &listener.HTTPBuilder{
		Addr:              addr,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		Logger:            logger,
	}

	if cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		builder.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}
	return builder, nil
}
