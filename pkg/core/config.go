package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultConfigEnvironment = "development"

	defaultForgeHost = "https://developer.api.autodesk.com"

	defaultOtelDisable          = false
	defaultOTLPExporterEndpoint = "localhost:4317"
	defaultOTLPInsecure         = false

	defaultRedisAddr     = "localhost:6379"
	defaultRedisPassword = ""
	defaultRedisDB       = 0

	defaultBreakerEnable           = false
	defaultBreakerFailureThreshold = 5
	defaultBreakerFailWindow       = 10 * time.Second
	defaultBreakerOpenCoolDown     = 30 * time.Second
)

func DefaultConfig() Config {
	return Config{
		Environment: defaultConfigEnvironment,
		Forge: ForgeConfig{
			Host: defaultForgeHost,
		},
		Otel: OtelConfig{
			Disable: defaultOtelDisable,
			OtlpExporter: OtlpConfig{
				Endpoint: defaultOTLPExporterEndpoint,
				Insecure: defaultOTLPInsecure,
			},
		},
		Redis: RedisConfig{
			Addr:     defaultRedisAddr,
			Password: defaultRedisPassword,
			DB:       defaultRedisDB,
		},
		Breaker: BreakerConfig{
			Enable:           defaultBreakerEnable,
			FailureThreshold: defaultBreakerFailureThreshold,
			FailWindow:       defaultBreakerFailWindow,
			OpenCoolDown:     defaultBreakerOpenCoolDown,
		},
	}
}

func NewConfig(options ...func(*Config)) Config {
	config := DefaultConfig()
	for _, opt := range options {
		opt(&config)
	}
	return config
}

func NewConfigFromEnv(options ...func(*Config)) (Config, error) {
	config := DefaultConfig()
	err := errors.Join(
		setFromEnv(&config.Environment, "ENVIRONMENT"),
		setFromEnv(&config.Forge.Host, "FORGE_HOST"),
		setFromEnv(&config.Forge.ClientID, "FORGE_CLIENT_ID"),
		setFromEnv(&config.Forge.ClientSecret, "FORGE_CLIENT_SECRET"),
		setFromEnv(&config.Forge.Scopes, "FORGE_SCOPES"),
		setFromEnv(&config.Forge.RedirectURI, "FORGE_REDIRECT_URI"),
		setFromEnv(&config.Otel.Disable, "OTEL_DISABLE"),
		setFromEnv(&config.Otel.OtlpExporter.Endpoint, "OTEL_OTLP_EXPORTER_ENDPOINT"),
		setFromEnv(&config.Otel.OtlpExporter.Insecure, "OTEL_OTLP_EXPORTER_INSECURE"),
		setFromEnv(&config.Redis.Addr, "REDIS_ADDR"),
		setFromEnv(&config.Redis.Password, "REDIS_PASSWORD"),
		setFromEnv(&config.Redis.DB, "REDIS_DB"),
		setFromEnv(&config.Breaker.Enable, "BREAKER_ENABLE"),
		setFromEnv(&config.Breaker.FailureThreshold, "BREAKER_FAILURE_THRESHOLD"),
		setFromEnv(&config.Breaker.FailWindow, "BREAKER_FAIL_WINDOW"),
		setFromEnv(&config.Breaker.OpenCoolDown, "BREAKER_OPEN_COOLDOWN"),
	)

	for _, opt := range options {
		opt(&config)
	}

	return config, err
}

func LoadEnv(environment ...string) error {
	filenames := []string{
		".env.local",
		".env",
	}

	env := getEnv("ENVIRONMENT", DefaultConfig().Environment)
	if len(environment) > 0 {
		env = environment[0]
	}

	if env != "" {
		file := ".env." + env + ".local"
		filenames = append([]string{file}, filenames...)
	}

	var errs error

	for _, filename := range filenames {
		err := loadEnvFile(filename)
		if err != nil {
			errs = errors.Join(
				errs,
				fmt.Errorf("error loading %s: %w", filename, err),
			)
		}
	}

	return errs
}

// Validate reports every missing Forge credential at once.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs error
	if c.Forge.Host == "" {
		errs = errors.Join(errs, errors.New("FORGE_HOST is required"))
	}
	if c.Forge.ClientID == "" {
		errs = errors.Join(errs, errors.New("FORGE_CLIENT_ID is required"))
	}
	if c.Forge.ClientSecret == "" {
		errs = errors.Join(errs, errors.New("FORGE_CLIENT_SECRET is required"))
	}
	return errs
}

func (c *Config) GetHost() string {
	return c.Forge.Host
}

func (c *Config) GetClientID() string {
	return c.Forge.ClientID
}

func (c *Config) GetClientSecret() string {
	return c.Forge.ClientSecret
}
