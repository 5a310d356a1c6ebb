package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// NewHTTPClient returns a client that sends a bearer token from src with
// every request. base carries timeouts and TLS; http.DefaultClient is used
// when nil.
func NewHTTPClient(ctx context.Context, src oauth2.TokenSource, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	return oauth2.NewClient(WithBaseClient(ctx, base), src)
}

// WithBaseClient makes golang.org/x/oauth2 use base for its own requests.
func WithBaseClient(ctx context.Context, base *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, base)
}
