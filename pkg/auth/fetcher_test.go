package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	host         string
	clientID     string
	clientSecret string
}

func (c fakeConfig) GetHost() string         { return c.host }
func (c fakeConfig) GetClientID() string     { return c.clientID }
func (c fakeConfig) GetClientSecret() string { return c.clientSecret }

type fakeTransport struct {
	calls  int
	reqs   []*http.Request
	bodies []string
	status int
	body   string
	err    error
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	f.reqs = append(f.reqs, req)

	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}

	if f.err != nil {
		return nil, f.err
	}

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
	}, nil
}

func (f *fakeTransport) form(t *testing.T, i int) url.Values {
	t.Helper()
	require.Greater(t, len(f.bodies), i)
	form, err := url.ParseQuery(f.bodies[i])
	require.NoError(t, err)
	return form
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(transport HTTPTransport) *TokenFetcher {
	cfg := fakeConfig{host: "www.test.com/", clientID: "client-id", clientSecret: "client-secret"}
	return New(cfg, transport, WithLogger(discardLogger()))
}

func TestFetch_NoScopes_LogicErrorWithoutNetwork(t *testing.T) {
	for _, scopes := range [][]string{nil, {}} {
		ft := &fakeTransport{body: `{}`}
		f := newTestFetcher(ft)

		_, err := f.Fetch(context.Background(), "url", "grantType", scopes, map[string]string{})
		require.Error(t, err)

		assert.Equal(t, "Cannot fetch token when no scopes where defined", err.Error())
		assert.True(t, IsLogic(err))
		assert.False(t, IsRuntime(err))
		assert.ErrorIs(t, err, ErrNoScopes)
		assert.Equal(t, 0, ft.calls, "transport must not be invoked")
	}
}

func TestFetch_RequestShape(t *testing.T) {
	ft := &fakeTransport{body: `{"X-Foo":"Bar"}`}
	f := newTestFetcher(ft)

	_, err := f.Fetch(
		context.Background(),
		"somepage.php",
		"grantType",
		[]string{"scopeOne"},
		map[string]string{"additionalParameter": "additionalValue"},
	)
	require.NoError(t, err)

	require.Equal(t, 1, ft.calls)
	req := ft.reqs[0]
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "www.test.com/somepage.php", req.URL.String())
	require.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

	expected := url.Values{
		"client_id":           {"client-id"},
		"client_secret":       {"client-secret"},
		"grant_type":          {"grantType"},
		"scope":               {"scopeOne"},
		"additionalParameter": {"additionalValue"},
	}
	require.Equal(t, expected, ft.form(t, 0))
}

func TestFetch_ScopesAreSpaceJoined(t *testing.T) {
	ft := &fakeTransport{body: `{}`}
	f := newTestFetcher(ft)

	_, err := f.Fetch(context.Background(), "p", "g", []string{"data:read", "bucket:read", "code:all"}, nil)
	require.NoError(t, err)

	require.Equal(t, "data:read bucket:read code:all", ft.form(t, 0).Get("scope"))
}

func TestFetch_AdditionalParamsOverrideFixedFields(t *testing.T) {
	ft := &fakeTransport{body: `{}`}
	f := newTestFetcher(ft)

	_, err := f.Fetch(context.Background(), "p", "client_credentials", []string{"a"}, map[string]string{
		"grant_type": "overridden",
		"scope":      "other",
	})
	require.NoError(t, err)

	form := ft.form(t, 0)
	assert.Equal(t, "overridden", form.Get("grant_type"))
	assert.Equal(t, "other", form.Get("scope"))
	assert.Equal(t, "client-id", form.Get("client_id"))
}

func TestFetch_PropagatesContext(t *testing.T) {
	type ctxKey struct{}

	ft := &fakeTransport{body: `{}`}
	f := newTestFetcher(ft)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	_, err := f.Fetch(ctx, "p", "g", []string{"a"}, nil)
	require.NoError(t, err)

	require.Equal(t, "value", ft.reqs[0].Context().Value(ctxKey{}))
}

func TestFetch_SuccessReturnsDecodedBodyUnchanged(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: `{"X-Foo":"Bar"}`}
	f := newTestFetcher(ft)

	result, err := f.Fetch(context.Background(), "somepage.php", "grantType", []string{"scopeOne"}, nil)
	require.NoError(t, err)

	require.Equal(t, TokenResponse{"X-Foo": "Bar"}, result)
}

func TestFetch_GenericTransportFailure(t *testing.T) {
	cause := errors.New("Some exception because the transport failed")
	ft := &fakeTransport{err: cause}
	f := newTestFetcher(ft)

	_, err := f.Fetch(context.Background(), "somepage.php", "grantType", []string{"a"}, nil)
	require.Error(t, err)

	require.Equal(t, "Failed to fetch token", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, KindTransport, ErrorKind(err))
	require.True(t, IsRuntime(err))
	require.Equal(t, 1, ft.calls)
}

func TestFetch_ErrorResponseSurfacesDeveloperMessage(t *testing.T) {
	ft := &fakeTransport{
		status: http.StatusBadRequest,
		body:   `{"developerMessage": "Error in the content of the request"}`,
	}
	f := newTestFetcher(ft)

	_, err := f.Fetch(context.Background(), "somepage.php", "grantType", []string{"a"}, nil)
	require.Error(t, err)

	require.Equal(t, "Error in the content of the request", err.Error())

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, KindServer, authErr.Kind)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.True(t, authErr.IsRuntime())
}

func TestFetch_ErrorResponseFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "no developerMessage", status: http.StatusUnauthorized, body: `{"errorCode":"AUTH-001"}`},
		{name: "developerMessage not a string", status: http.StatusBadRequest, body: `{"developerMessage":42}`},
		{name: "empty developerMessage", status: http.StatusBadRequest, body: `{"developerMessage":""}`},
		{name: "html body", status: http.StatusBadGateway, body: `<html>bad gateway</html>`},
		{name: "empty body", status: http.StatusInternalServerError, body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{status: tt.status, body: tt.body}
			f := newTestFetcher(ft)

			_, err := f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)
			require.Error(t, err)

			require.Equal(t, "Failed to fetch token", err.Error())
			require.Equal(t, KindTransport, ErrorKind(err))

			var statusErr *HTTPStatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, strings.TrimSpace(tt.body), statusErr.Body)
		})
	}
}

func TestFetch_LongErrorBodyIsTruncated(t *testing.T) {
	ft := &fakeTransport{status: http.StatusInternalServerError, body: strings.Repeat("x", 2000)}
	f := newTestFetcher(ft)

	_, err := f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Len(t, statusErr.Body, maxErrBodyBytes+len("..."))
}

func TestFetch_MalformedSuccessBody(t *testing.T) {
	for _, body := range []string{`not json`, `["a"]`, `"token"`, `null`, ``} {
		t.Run(body, func(t *testing.T) {
			ft := &fakeTransport{status: http.StatusOK, body: body}
			f := newTestFetcher(ft)

			_, err := f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)
			require.Error(t, err)

			assert.Equal(t, "Failed to fetch token", err.Error())
			assert.Equal(t, KindTransport, ErrorKind(err))
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestFetch_CancelledContextIsGenericFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ft := &fakeTransport{err: context.Canceled}
	f := newTestFetcher(ft)

	_, err := f.Fetch(ctx, "p", "g", []string{"a"}, nil)
	require.Error(t, err)

	assert.Equal(t, "Failed to fetch token", err.Error())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_RepeatedCallsAreIndependent(t *testing.T) {
	ft := &fakeTransport{body: `{"access_token":"abc","expires_in":3599}`}
	f := newTestFetcher(ft)

	first, err := f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)
	require.NoError(t, err)

	second, err := f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)
	require.NoError(t, err)

	require.Equal(t, 2, ft.calls, "no implicit caching")
	require.Equal(t, first, second)
	require.Equal(t, ft.bodies[0], ft.bodies[1])
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		host, path, expected string
	}{
		{"www.test.com/", "somepage.php", "www.test.com/somepage.php"},
		{"www.test.com", "somepage.php", "www.test.com/somepage.php"},
		{"www.test.com/", "/somepage.php", "www.test.com/somepage.php"},
		{"https://developer.api.autodesk.com//", "//authentication/v1/authenticate", "https://developer.api.autodesk.com/authentication/v1/authenticate"},
		{"https://developer.api.autodesk.com", "", "https://developer.api.autodesk.com"},
		{"", "/somepage.php", "somepage.php"},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.expected, JoinURL(tt.host, tt.path), "JoinURL(%q, %q)", tt.host, tt.path)
	}
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, Kind(""), ErrorKind(nil))
	assert.Equal(t, KindTransport, ErrorKind(errors.New("foreign")))
	assert.Equal(t, KindLogic, ErrorKind(logicError("x")))
	assert.Equal(t, KindServer, ErrorKind(serverError(400, "x")))

	wrapped := errors.Join(errors.New("context"), serverError(400, "x"))
	assert.Equal(t, KindServer, ErrorKind(wrapped))

	assert.False(t, IsLogic(nil))
	assert.False(t, IsRuntime(nil))
}

type transportFunc func(*http.Request) (*http.Response, error)

func (fn transportFunc) Do(req *http.Request) (*http.Response, error) { return fn(req) }

func TestFetch_TransportWithoutResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
	}{
		{name: "nil response", resp: nil},
		{name: "nil body", resp: &http.Response{StatusCode: http.StatusOK}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(transportFunc(func(*http.Request) (*http.Response, error) {
				return tt.resp, nil
			}))

			var err error
			require.NotPanics(t, func() {
				_, err = f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)
			})

			require.Error(t, err)
			assert.Equal(t, "Failed to fetch token", err.Error())
			assert.Equal(t, KindTransport, ErrorKind(err))
		})
	}
}

func TestFetch_KeepsLargeNumbersExact(t *testing.T) {
	ft := &fakeTransport{body: `{"access_token":"abc","account_id":12345678901234567891,"expires_in":3599}`}
	f := newTestFetcher(ft)

	result, err := f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)
	require.NoError(t, err)

	assert.Equal(t, json.Number("12345678901234567891"), result["account_id"])
	assert.Equal(t, 3599*time.Second, result.ExpiresIn())
}

func TestFetch_TrailingDataAfterObject(t *testing.T) {
	ft := &fakeTransport{body: `{"access_token":"abc"} {"access_token":"def"}`}
	f := newTestFetcher(ft)

	_, err := f.Fetch(context.Background(), "p", "g", []string{"a"}, nil)

	require.Error(t, err)
	assert.Equal(t, KindTransport, ErrorKind(err))
}
