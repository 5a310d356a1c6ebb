package auth

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// TokenResponse is the decoded JSON object returned by the token endpoint,
// kept verbatim. The accessors read the usual OAuth 2.0 fields.
type TokenResponse map[string]any

func (t TokenResponse) AccessToken() string  { return t.str("access_token") }
func (t TokenResponse) TokenType() string    { return t.str("token_type") }
func (t TokenResponse) RefreshToken() string { return t.str("refresh_token") }
func (t TokenResponse) Scope() string        { return t.str("scope") }

// maxExpiresIn caps lifetimes that would overflow time.Duration.
const maxExpiresIn = time.Duration(math.MaxInt64)

// ExpiresIn accepts both JSON numbers and numeric strings. It is zero when
// the field is absent or unparsable, and capped at maxExpiresIn.
func (t TokenResponse) ExpiresIn() time.Duration {
	var seconds float64

	switch v := t["expires_in"].(type) {
	case float64:
		seconds = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		seconds = f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		seconds = f
	default:
		return 0
	}

	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	if seconds >= maxExpiresIn.Seconds() {
		return maxExpiresIn
	}
	return time.Duration(seconds * float64(time.Second))
}

// OAuth2Token converts the response for use with golang.org/x/oauth2. The
// whole response is available through Token.Extra.
func (t TokenResponse) OAuth2Token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken(),
		TokenType:    t.TokenType(),
		RefreshToken: t.RefreshToken(),
	}
	if d := t.ExpiresIn(); d > 0 {
		tok.Expiry = now.Add(d)
	}
	return tok.WithExtra(map[string]any(t))
}

func (t TokenResponse) str(key string) string {
	s, _ := t[key].(string)
	return s
}
