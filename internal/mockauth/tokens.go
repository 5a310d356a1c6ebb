package mockauth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	tokenTypeBearer = "Bearer"
	claimClientID   = "client_id"
	claimScope      = "scope"
)

func newKeys(raw *rsa.PrivateKey) (jwk.Key, jwk.Set, error) {
	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("import signing key: %w", err)
	}
	if err := jwk.AssignKeyID(key); err != nil {
		return nil, nil, fmt.Errorf("assign key id: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		return nil, nil, fmt.Errorf("set key algorithm: %w", err)
	}

	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, nil, fmt.Errorf("derive public key: %w", err)
	}

	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		return nil, nil, fmt.Errorf("build key set: %w", err)
	}

	return key, set, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (s *Server) issueAccessToken(clientID, scope string, now time.Time) (string, error) {
	tok, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(clientID).
		Audience([]string{s.issuer}).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(s.tokenTTL)).
		JwtID(uuid.NewString()).
		Claim(claimClientID, clientID).
		Claim(claimScope, scope).
		Build()
	if err != nil {
		return "", fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, s.signingKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return string(signed), nil
}

// issue builds a token response; withRefresh also mints and remembers a
// refresh token for the same client and scope.
func (s *Server) issue(clientID, scope string, withRefresh bool) (tokenResponse, error) {
	access, err := s.issueAccessToken(clientID, scope, time.Now())
	if err != nil {
		return tokenResponse{}, err
	}

	resp := tokenResponse{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.tokenTTL / time.Second),
	}

	if withRefresh {
		resp.RefreshToken = uuid.NewString()

		s.mu.Lock()
		s.refreshTokens[resp.RefreshToken] = grant{clientID: clientID, scope: scope}
		s.mu.Unlock()
	}

	return resp, nil
}

// redeem consumes a refresh token. Each one is valid exactly once.
func (s *Server) redeem(refreshToken, clientID string) (grant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.refreshTokens[refreshToken]
	if !ok || g.clientID != clientID {
		return grant{}, false
	}
	delete(s.refreshTokens, refreshToken)
	return g, true
}

// Verify parses and validates an access token issued by this server.
func (s *Server) Verify(raw string) (jwt.Token, error) {
	return jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(s.publicKeys),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
	)
}
