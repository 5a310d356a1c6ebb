package core

import "time"

func WithEnvironment(environment string) func(*Config) {
	return func(c *Config) {
		c.Environment = environment
	}
}

func WithHost(host string) func(*Config) {
	return func(c *Config) {
		c.Forge.Host = host
	}
}

func WithClientCredentials(clientID, clientSecret string) func(*Config) {
	return func(c *Config) {
		c.Forge.ClientID = clientID
		c.Forge.ClientSecret = clientSecret
	}
}

func WithScopes(scopes ...string) func(*Config) {
	return func(c *Config) {
		c.Forge.Scopes = scopes
	}
}

func WithRedirectURI(uri string) func(*Config) {
	return func(c *Config) {
		c.Forge.RedirectURI = uri
	}
}

func WithRedisAddr(addr string) func(*Config) {
	return func(c *Config) {
		c.Redis.Addr = addr
	}
}

func WithRedisPassword(pw string) func(*Config) {
	return func(c *Config) {
		c.Redis.Password = pw
	}
}

func WithRedisDB(db int) func(*Config) {
	return func(c *Config) {
		c.Redis.DB = db
	}
}

func WithOtlpEndpoint(endpoint string) func(*Config) {
	return func(c *Config) {
		c.Otel.OtlpExporter.Endpoint = endpoint
	}
}

func WithOtlpInsecure(insecure bool) func(*Config) {
	return func(c *Config) {
		c.Otel.OtlpExporter.Insecure = insecure
	}
}

func WithOtelDisable(value ...bool) func(*Config) {
	val := true
	if len(value) > 0 {
		val = value[0]
	}

	return func(c *Config) {
		c.Otel.Disable = val
	}
}

func WithBreaker(threshold int, window, coolDown time.Duration) func(*Config) {
	return func(c *Config) {
		c.Breaker.Enable = true
		c.Breaker.FailureThreshold = threshold
		c.Breaker.FailWindow = window
		c.Breaker.OpenCoolDown = coolDown
	}
}
