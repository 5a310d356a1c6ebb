// Command forge-token fetches a Forge access token and prints the JSON
// response on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/autodesk-forge/forge-api-go-client/pkg/auth"
	"github.com/autodesk-forge/forge-api-go-client/pkg/circuitbreaker"
	"github.com/autodesk-forge/forge-api-go-client/pkg/core"
	"github.com/autodesk-forge/forge-api-go-client/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	defaultPath      = "authentication/v1/authenticate"
	defaultGrantType = "client_credentials"
	httpTimeout      = 30 * time.Second
	breakerName      = "forge-auth"

	otelShutdownTimeout = 500 * time.Millisecond
)

type cliOptions struct {
	envFile   string
	host      string
	path      string
	grantType string
	scopes    []string
	params    []string
	breaker   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "forge-token:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions

	fs := pflag.NewFlagSet("forge-token", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.envFile, "env-file", "", "dotenv file loaded before the environment is read")
	fs.StringVar(&opts.host, "host", "", "authorization host, overrides FORGE_HOST")
	fs.StringVar(&opts.path, "path", defaultPath, "token endpoint path relative to the host")
	fs.StringVar(&opts.grantType, "grant-type", defaultGrantType, "OAuth grant type")
	fs.StringSliceVar(&opts.scopes, "scopes", nil, "scopes to request, overrides FORGE_SCOPES")
	fs.StringArrayVar(&opts.params, "param", nil, "extra form field as key=value, repeatable")
	fs.BoolVar(&opts.breaker, "breaker", false, "guard the endpoint with the Redis circuit breaker")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	params := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", kv)
		}
		params[k] = v
	}
	return params, nil
}

func loadConfig(opts cliOptions) (core.Config, error) {
	var overrides []func(*core.Config)
	if opts.host != "" {
		overrides = append(overrides, core.WithHost(opts.host))
	}
	if len(opts.scopes) > 0 {
		overrides = append(overrides, core.WithScopes(opts.scopes...))
	}
	if opts.breaker {
		overrides = append(overrides, func(c *core.Config) { c.Breaker.Enable = true })
	}

	cfg, err := core.NewConfigFromEnv(overrides...)
	if err != nil {
		return core.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}

func newTransport(cfg core.Config, logger *slog.Logger) (auth.HTTPTransport, func()) {
	client := &http.Client{Timeout: httpTimeout}
	if !cfg.Breaker.Enable {
		return client, func() {}
	}

	rdb := redis.NewClient(redis.ConfigFrom(cfg.Redis), logger)
	breaker := circuitbreaker.NewRedisBreaker(rdb, breakerName, circuitbreaker.Options{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		FailWindow:       cfg.Breaker.FailWindow,
		OpenCoolDown:     cfg.Breaker.OpenCoolDown,
		FailOpen:         true,
	}, logger)

	return circuitbreaker.NewTransport(client, breaker), func() { _ = rdb.Close() }
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}

	// An explicit --env-file must load; the default .env files are best effort.
	var dotenvErr error
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	} else {
		dotenvErr = core.LoadEnv()
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return errors.Join(err, dotenvErr)
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
			defer func() {
				// A one-shot command should not wait on an absent collector.
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), otelShutdownTimeout)
				defer cancel()
				otelService.Shutdown(shutdownCtx, logger)
			}()
			logger = core.NewLoggerWithOtelWriter(cfg, otelService, stderr)
		}
	}

	transport, closeTransport := newTransport(cfg, logger)
	defer closeTransport()

	fetcher := auth.New(&cfg, transport, auth.WithLogger(logger))

	token, err := fetcher.Fetch(ctx, opts.path, opts.grantType, auth.NormalizeScopes(cfg.Forge.Scopes), params)
	if err != nil {
		logger.Error("could not fetch token", slog.String("kind", string(auth.ErrorKind(err))))
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(token)
}
