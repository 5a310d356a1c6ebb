package mockauth

import (
	"crypto/subtle"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	grantClientCredentials = "client_credentials"
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"

	// Authorization codes with this prefix are rejected, to exercise error paths.
	rejectedCodePrefix = "bad"
)

func (s *Server) checkClient(clientID, secret string) error {
	want, ok := s.clients[clientID]
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(secret)) != 1 {
		return invalidClient()
	}
	return nil
}

func (s *Server) checkTokenRequest(c *fiber.Ctx, grantType string) (string, error) {
	clientID := c.FormValue("client_id")
	if clientID == "" {
		return "", missingParameter("client_id")
	}
	if err := s.checkClient(clientID, c.FormValue("client_secret")); err != nil {
		return "", err
	}

	switch got := c.FormValue("grant_type"); got {
	case "":
		return "", missingParameter("grant_type")
	case grantType:
		return clientID, nil
	default:
		return "", unsupportedGrant(got)
	}
}

func (s *Server) authenticate(c *fiber.Ctx) error {
	clientID, err := s.checkTokenRequest(c, grantClientCredentials)
	if err != nil {
		return err
	}

	scope := c.FormValue("scope")
	if scope == "" {
		return missingParameter("scope")
	}

	resp, err := s.issue(clientID, scope, false)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// authorize stands in for the consent page: it approves immediately and
// redirects back with a fresh code.
func (s *Server) authorize(c *fiber.Ctx) error {
	clientID := c.Query("client_id")
	if _, ok := s.clients[clientID]; !ok {
		return invalidClient()
	}
	if c.Query("response_type") != "code" {
		return missingParameter("response_type")
	}

	redirect, err := url.Parse(c.Query("redirect_uri"))
	if err != nil || redirect.Scheme == "" {
		return missingParameter("redirect_uri")
	}

	q := redirect.Query()
	q.Set("code", uuid.NewString())
	if state := c.Query("state"); state != "" {
		q.Set("state", state)
	}
	redirect.RawQuery = q.Encode()

	return c.Redirect(redirect.String(), fiber.StatusFound)
}

func (s *Server) getToken(c *fiber.Ctx) error {
	clientID, err := s.checkTokenRequest(c, grantAuthorizationCode)
	if err != nil {
		return err
	}

	code := c.FormValue("code")
	if code == "" {
		return missingParameter("code")
	}
	if c.FormValue("redirect_uri") == "" {
		return missingParameter("redirect_uri")
	}
	if strings.HasPrefix(code, rejectedCodePrefix) {
		return invalidGrant("The authorization code is invalid or has expired")
	}

	resp, err := s.issue(clientID, c.FormValue("scope"), true)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) refreshToken(c *fiber.Ctx) error {
	clientID, err := s.checkTokenRequest(c, grantRefreshToken)
	if err != nil {
		return err
	}

	rt := c.FormValue("refresh_token")
	if rt == "" {
		return missingParameter("refresh_token")
	}

	g, ok := s.redeem(rt, clientID)
	if !ok {
		return invalidGrant("The refresh token is invalid or has expired")
	}

	scope := c.FormValue("scope")
	if scope == "" {
		scope = g.scope
	}

	resp, err := s.issue(clientID, scope, true)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) keys(c *fiber.Ctx) error {
	return c.JSON(s.publicKeys)
}
