// Package mockauth emulates the Forge authentication/v1 endpoints. It backs
// the integration tests and the mockauth command.
package mockauth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lestrrat-go/jwx/v2/jwk"
	slogfiber "github.com/samber/slog-fiber"
)

const (
	defaultIssuer   = "https://mockauth.local"
	defaultTokenTTL = time.Hour
	rsaKeyBits      = 2048
)

type Options struct {
	// Clients maps client id to client secret.
	Clients    map[string]string
	Issuer     string
	TokenTTL   time.Duration
	SigningKey *rsa.PrivateKey
	Logger     *slog.Logger
}

type Server struct {
	clients  map[string]string
	issuer   string
	tokenTTL time.Duration
	logger   *slog.Logger

	signingKey jwk.Key
	publicKeys jwk.Set

	mu            sync.Mutex
	refreshTokens map[string]grant

	app *fiber.App
}

// grant is what a refresh token stands for.
type grant struct {
	clientID string
	scope    string
}

func New(opts Options) (*Server, error) {
	if len(opts.Clients) == 0 {
		return nil, errors.New("at least one client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "mockauth"))

	issuer := opts.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	rawKey := opts.SigningKey
	if rawKey == nil {
		var err error
		rawKey, err = rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	signingKey, publicKeys, err := newKeys(rawKey)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]string, len(opts.Clients))
	for id, secret := range opts.Clients {
		clients[id] = secret
	}

	s := &Server{
		clients:       clients,
		issuer:        issuer,
		tokenTTL:      ttl,
		logger:        logger,
		signingKey:    signingKey,
		publicKeys:    publicKeys,
		refreshTokens: make(map[string]grant),
	}
	s.app = s.newApp()

	return s, nil
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Issuer() string {
	return s.issuer
}

func stackTraceHandler(logger *slog.Logger) func(*fiber.Ctx, any) {
	return func(c *fiber.Ctx, e any) {
		logger.ErrorContext(
			c.UserContext(),
			"panic!",
			"stack",
			string(debug.Stack()),
			"err",
			e,
		)
	}
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler(s.logger),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: stackTraceHandler(s.logger),
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "*",
		AllowMethods: "*",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(slogfiber.NewWithConfig(
		s.logger,
		slogfiber.Config{
			WithRequestID: true,
			WithSpanID:    true,
			WithTraceID:   true,
		},
	))

	v1 := app.Group("/authentication/v1")
	v1.Post("/authenticate", s.authenticate)
	v1.Get("/authorize", s.authorize)
	v1.Post("/gettoken", s.getToken)
	v1.Post("/refreshtoken", s.refreshToken)
	v1.Get("/keys", s.keys)

	app.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app
}
