// Package auth exchanges Forge client credentials for access tokens.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	applicationJSON = "application/json"
)

// Configuration supplies the authorization host and the client credentials.
type Configuration interface {
	GetHost() string
	GetClientID() string
	GetClientSecret() string
}

// HTTPTransport is satisfied by *http.Client. Timeouts and TLS belong to it.
type HTTPTransport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher is the contract the grant flows are built on.
type Fetcher interface {
	Fetch(ctx context.Context, path, grantType string, scopes []string, additionalParams map[string]string) (TokenResponse, error)
}

// TokenFetcher posts client credentials to a token endpoint and decodes the
// JSON answer. It holds no mutable state and is safe for concurrent use when
// its Configuration and HTTPTransport are.
type TokenFetcher struct {
	cfg       Configuration
	transport HTTPTransport
	logger    *slog.Logger
	telemetry *telemetry
}

var _ Fetcher = (*TokenFetcher)(nil)

func New(cfg Configuration, transport HTTPTransport, opts ...Option) *TokenFetcher {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "auth"),
		slog.String("vendor", "forge"),
	)

	return &TokenFetcher{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		telemetry: newTelemetry(o.tracer, o.meter),
	}
}

// Fetch requests a token from path, relative to the configured host. scopes
// must not be empty. additionalParams are merged into the form after the
// fixed fields and win on collision.
func (f *TokenFetcher) Fetch(
	ctx context.Context,
	path string,
	grantType string,
	scopes []string,
	additionalParams map[string]string,
) (TokenResponse, error) {
	if len(scopes) == 0 {
		return nil, logicError(msgNoScopes)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := f.telemetry.start(ctx, path, grantType, len(scopes))
	defer span.End()

	endpoint := JoinURL(f.cfg.GetHost(), path)
	scopeStr := strings.Join(scopes, " ")

	log := f.logger.With(
		slog.String("token_url", endpoint),
		slog.String("grant_type", grantType),
	)

	log.Debug("token fetch inputs",
		slog.String("client_id_prefix", prefix(f.cfg.GetClientID(), 8)),
		slog.String("scope", scopeStr),
		slog.Int("additional_params", len(additionalParams)),
	)

	form := buildForm(f.cfg, grantType, scopeStr, additionalParams)

	start := time.Now()
	token, status, err := f.post(ctx, endpoint, form)
	latency := time.Since(start)

	f.telemetry.finish(ctx, span, status, err)

	if err != nil {
		log.Error("token fetch failed",
			slog.String("kind", string(ErrorKind(err))),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
			slog.Any("cause", errors.Unwrap(err)),
		)
		return nil, err
	}

	log.Info("token acquired",
		slog.Int("status", status),
		slog.Duration("latency", latency),
		slog.String("token_type", token.TokenType()),
		slog.Duration("expires_in", token.ExpiresIn()),
	)

	return token, nil
}

func (f *TokenFetcher) post(ctx context.Context, endpoint string, form url.Values) (TokenResponse, int, error) {
	req, err := newFormPOST(ctx, endpoint, form)
	if err != nil {
		return nil, 0, fetchFailed(0, fmt.Errorf("create token request: %w", err))
	}

	resp, err := f.transport.Do(req)
	if err != nil {
		return nil, 0, fetchFailed(0, err)
	}
	if resp == nil {
		return nil, 0, fetchFailed(0, errors.New("transport returned no response"))
	}
	if resp.Body == nil {
		return nil, resp.StatusCode, fetchFailed(resp.StatusCode, errors.New("transport returned no response body"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fetchFailed(resp.StatusCode, fmt.Errorf("read token response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, errorFromResponse(resp.StatusCode, body)
	}

	token, err := decodeToken(body)
	if err != nil {
		return nil, resp.StatusCode, fetchFailed(resp.StatusCode, fmt.Errorf("decode token response: %w", err))
	}
	if token == nil {
		return nil, resp.StatusCode, fetchFailed(resp.StatusCode, errors.New("token response is not a JSON object"))
	}

	return token, resp.StatusCode, nil
}

// decodeToken keeps numbers as json.Number so large integers survive intact.
func decodeToken(body []byte) (TokenResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var token TokenResponse
	if err := dec.Decode(&token); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return token, nil
}

// errorFromResponse surfaces the server's developerMessage when present and
// otherwise falls back to the generic failure.
func errorFromResponse(status int, body []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg, ok := payload[developerMsgField].(string); ok && msg != "" {
			return serverError(status, msg)
		}
	}

	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrBodyBytes {
		snippet = snippet[:maxErrBodyBytes] + "..."
	}
	return fetchFailed(status, &HTTPStatusError{StatusCode: status, Body: snippet})
}

func buildForm(cfg Configuration, grantType, scope string, additionalParams map[string]string) url.Values {
	fields := lo.Assign(
		map[string]string{
			"client_id":     cfg.GetClientID(),
			"client_secret": cfg.GetClientSecret(),
			"grant_type":    grantType,
			"scope":         scope,
		},
		additionalParams,
	)

	form := make(url.Values, len(fields))
	for k, v := range fields {
		form.Set(k, v)
	}
	return form
}

func newFormPOST(ctx context.Context, endpoint string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", applicationJSON)
	req.Header.Set("Content-Type", contentTypeForm)
	return req, nil
}

// JoinURL joins host and path with exactly one slash between them.
func JoinURL(host, path string) string {
	host = strings.TrimRight(host, "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return host
	}
	if host == "" {
		return path
	}
	return host + "/" + path
}

func prefix(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
