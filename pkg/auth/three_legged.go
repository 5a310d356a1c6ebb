package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

const (
	pathAuthorize    = "authentication/v1/authorize"
	pathGetToken     = "authentication/v1/gettoken"
	pathRefreshToken = "authentication/v1/refreshtoken"

	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// ThreeLegged implements the authorization code flow on behalf of an end
// user: build the consent URL, exchange the returned code, refresh.
type ThreeLegged struct {
	cfg         Configuration
	fetcher     Fetcher
	redirectURI string

	mu     sync.RWMutex
	scopes []string
}

func NewThreeLegged(cfg Configuration, fetcher Fetcher, redirectURI string, scopes ...string) *ThreeLegged {
	return &ThreeLegged{
		cfg:         cfg,
		fetcher:     fetcher,
		redirectURI: redirectURI,
		scopes:      NormalizeScopes(scopes),
	}
}

// AuthorizationURL is where the user grants consent. state is optional.
func (a *ThreeLegged) AuthorizationURL(state string) (string, error) {
	scopes := a.Scopes()
	if len(scopes) == 0 {
		return "", logicError(msgNoScopes)
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.cfg.GetClientID())
	q.Set("redirect_uri", a.redirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	if state != "" {
		q.Set("state", state)
	}

	return JoinURL(a.cfg.GetHost(), pathAuthorize) + "?" + q.Encode(), nil
}

func (a *ThreeLegged) Exchange(ctx context.Context, code string) (TokenResponse, error) {
	if code == "" {
		return nil, logicError(msgEmptyCode)
	}
	return a.fetcher.Fetch(ctx, pathGetToken, grantAuthorizationCode, a.Scopes(), map[string]string{
		"code":         code,
		"redirect_uri": a.redirectURI,
	})
}

func (a *ThreeLegged) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	if refreshToken == "" {
		return nil, logicError(msgEmptyRefresh)
	}
	return a.fetcher.Fetch(ctx, pathRefreshToken, grantRefreshToken, a.Scopes(), map[string]string{
		"refresh_token": refreshToken,
	})
}

func (a *ThreeLegged) AddScope(scope string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scopes = NormalizeScopes(append(a.scopes, scope))
}

func (a *ThreeLegged) SetScopes(scopes ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scopes = NormalizeScopes(scopes)
}

func (a *ThreeLegged) Scopes() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.scopes))
	copy(out, a.scopes)
	return out
}
