package core

import "time"

type Config struct {
	Environment string
	Forge       ForgeConfig
	Otel        OtelConfig
	Redis       RedisConfig
	Breaker     BreakerConfig
}

type ForgeConfig struct {
	Host         string
	ClientID     string
	ClientSecret string
	// Space separated on the environment, e.g. "data:read bucket:read".
	Scopes      []string
	RedirectURI string
}

type OtlpConfig struct {
	Endpoint string
	Insecure bool
}

type OtelConfig struct {
	OtlpExporter OtlpConfig
	Disable      bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BreakerConfig struct {
	Enable           bool
	FailureThreshold int
	FailWindow       time.Duration
	OpenCoolDown     time.Duration
}
