package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	pathAuthenticate       = "authentication/v1/authenticate"
	grantClientCredentials = "client_credentials"
)

// TwoLegged fetches application tokens with the client credentials grant.
type TwoLegged struct {
	fetcher Fetcher

	mu     sync.RWMutex
	scopes []string
}

func NewTwoLegged(fetcher Fetcher, scopes ...string) *TwoLegged {
	return &TwoLegged{
		fetcher: fetcher,
		scopes:  NormalizeScopes(scopes),
	}
}

// Fetch performs one token request. Nothing is cached between calls.
func (a *TwoLegged) Fetch(ctx context.Context) (TokenResponse, error) {
	return a.fetcher.Fetch(ctx, pathAuthenticate, grantClientCredentials, a.Scopes(), nil)
}

func (a *TwoLegged) AddScope(scope string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scopes = NormalizeScopes(append(a.scopes, scope))
}

func (a *TwoLegged) SetScopes(scopes ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scopes = NormalizeScopes(scopes)
}

func (a *TwoLegged) Scopes() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.scopes))
	copy(out, a.scopes)
	return out
}

// TokenSource adapts the flow to golang.org/x/oauth2. Every Token call hits
// the endpoint; wrap it in oauth2.ReuseTokenSource to reuse tokens.
func (a *TwoLegged) TokenSource(ctx context.Context) oauth2.TokenSource {
	if ctx == nil {
		ctx = context.Background()
	}
	return &twoLeggedSource{ctx: ctx, flow: a}
}

type twoLeggedSource struct {
	ctx  context.Context
	flow *TwoLegged
}

func (s *twoLeggedSource) Token() (*oauth2.Token, error) {
	resp, err := s.flow.Fetch(s.ctx)
	if err != nil {
		return nil, err
	}
	return resp.OAuth2Token(time.Now()), nil
}
