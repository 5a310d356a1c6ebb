package auth

import (
	"errors"
	"fmt"
)

const (
	// KindLogic marks caller misuse detected before any I/O.
	KindLogic Kind = "logic"
	// KindServer marks an error response whose developerMessage is surfaced verbatim.
	KindServer Kind = "server"
	// KindTransport marks every other failure while talking to the authorization endpoint.
	KindTransport Kind = "transport"
)

const (
	msgNoScopes       = "Cannot fetch token when no scopes where defined"
	msgFetchFailed    = "Failed to fetch token"
	msgEmptyCode      = "Cannot exchange an empty authorization code"
	msgEmptyRefresh   = "Cannot refresh an empty refresh token"
	maxErrBodyBytes   = 800
	developerMsgField = "developerMessage"
)

// ErrNoScopes matches, via errors.Is, the error returned when a fetch is
// attempted without scopes.
var ErrNoScopes = &Error{Kind: KindLogic, Message: msgNoScopes}

// Kind is a machine readable code for the class of a token fetch failure.
type Kind string

// Error is the only error type returned by the fetcher and the grant flows.
// Error() is exactly Message; the underlying cause, if any, is kept in Err.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// IsRuntime reports whether the failure happened at run time rather than
// being a programming error in the caller.
func (e *Error) IsRuntime() bool { return e.Kind != KindLogic }

func logicError(msg string) *Error {
	return &Error{Kind: KindLogic, Message: msg}
}

func serverError(status int, msg string) *Error {
	return &Error{Kind: KindServer, Message: msg, StatusCode: status}
}

func fetchFailed(status int, cause error) *Error {
	return &Error{Kind: KindTransport, Message: msgFetchFailed, StatusCode: status, Err: cause}
}

// HTTPStatusError is the cause attached to a generic failure when the
// endpoint answered outside 2xx without a usable developerMessage.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("token endpoint returned status=%d body=%s", e.StatusCode, e.Body)
}

// ErrorKind returns the kind associated with err. Errors that did not come
// from this package are reported as KindTransport.
func ErrorKind(err error) Kind {
	if err == nil {
		return Kind("")
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

func IsLogic(err error) bool {
	return err != nil && ErrorKind(err) == KindLogic
}

func IsRuntime(err error) bool {
	return err != nil && ErrorKind(err) != KindLogic
}
