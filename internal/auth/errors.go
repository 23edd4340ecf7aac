package auth

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a class of authentication failure. Orchestrators
// collapse all kinds into one generic user-facing message; the kind is
// for server-side logging and tests.
type ErrorKind string

const (
	KindNotConfigured       ErrorKind = "not_configured"
	KindStateMismatch       ErrorKind = "state_mismatch"
	KindNonceMismatch       ErrorKind = "nonce_mismatch"
	KindNoClaims            ErrorKind = "no_claims"
	KindTokenExpired        ErrorKind = "token_expired"
	KindTokenIssuedInFuture ErrorKind = "token_issued_in_future"
	KindDecode              ErrorKind = "decode"
	KindDiscovery           ErrorKind = "discovery"
)

// AuthError is a kind-tagged authentication failure.
type AuthError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(kind ErrorKind, msg string) *AuthError {
	return &AuthError{Kind: kind, Msg: msg}
}

func wrapAuthError(kind ErrorKind, msg string, err error) *AuthError {
	return &AuthError{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err is (or wraps) an AuthError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
