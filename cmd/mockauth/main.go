// Command mockauth serves a local stand-in for the Forge authentication API.
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
	"time"

	"github.com/autodesk-forge/forge-api-go-client/internal/mockauth"
	"github.com/autodesk-forge/forge-api-go-client/pkg/core"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

type cliOptions struct {
	addr    string
	issuer  string
	ttl     time.Duration
	clients []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "mockauth:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions

	fs := pflag.NewFlagSet("mockauth", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.addr, "addr", ":8085", "listen address")
	fs.StringVar(&opts.issuer, "issuer", "", "iss claim of issued tokens")
	fs.DurationVar(&opts.ttl, "ttl", time.Hour, "access token lifetime")
	fs.StringArrayVar(&opts.clients, "client", nil, "registered client as id:secret, repeatable")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

func parseClients(raw []string) (map[string]string, error) {
	clients := make(map[string]string, len(raw))
	for _, c := range raw {
		id, secret, ok := strings.Cut(c, ":")
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid --client %q, want id:secret", c)
		}
		clients[id] = secret
	}
	return clients, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	dotenvErr := core.LoadEnv()
	cfg, err := core.NewConfigFromEnv()
	if err != nil {
		return errors.Join(err, dotenvErr)
	}

	clients, err := parseClients(opts.clients)
	if err != nil {
		return err
	}
	// The configured Forge credentials are always accepted.
	if cfg.Forge.ClientID != "" && cfg.Forge.ClientSecret != "" {
		clients[cfg.Forge.ClientID] = cfg.Forge.ClientSecret
	}

	logger := core.NewLoggerWithWriter(cfg, stderr)
	if dotenvErr != nil {
		logger.Warn("ignoring unreadable dotenv file", slog.Any("err", dotenvErr))
	}
	if !cfg.Otel.Disable {
		otelService, err := core.NewOtelService(ctx, &cfg)
		if err != nil {
			logger.Warn("telemetry disabled", slog.Any("err", err))
		} else {
			defer otelService.Shutdown(context.WithoutCancel(ctx), logger)
			logger = core.NewLoggerWithOtelWriter(cfg, otelService, stderr)
		}
	}

	srv, err := mockauth.New(mockauth.Options{
		Clients:  clients,
		Issuer:   opts.issuer,
		TokenTTL: opts.ttl,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Info("mockauth listening",
		slog.String("addr", opts.addr),
		slog.String("issuer", srv.Issuer()),
		slog.Int("clients", len(clients)),
	)

	return runServer(ctx, srv.App(), opts.addr)
}

func runServer(ctx context.Context, app *fiber.App, addr string) error {
	srvErr := make(chan error, 1)

	go func() {
		srvErr <- app.Listen(addr)
	}()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return nil
}
