package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// HandshakeState is the per-login-attempt bundle of correlation secrets.
// It travels to the browser as an encoded cookie value and is consumed
// exactly once at callback time; it is never stored server-side.
type HandshakeState struct {
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectTo   string `json:"redirectTo,omitempty"`
}

// GenerateHandshakeState returns a fresh handshake bundle. State, nonce
// and PKCE verifier are independent 32-byte random values, base64url
// encoded without padding.
func GenerateHandshakeState(redirectTo string) (*HandshakeState, error) {
	state, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	verifier, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return &HandshakeState{
		State:        state,
		Nonce:        nonce,
		CodeVerifier: verifier,
		RedirectTo:   redirectTo,
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EncodeHandshakeState serializes the handshake state into an opaque
// cookie-safe string. The transform is reversible, not encrypted; the
// nonce and state re-checks at exchange time bound what a tampered
// cookie can achieve.
func EncodeHandshakeState(hs *HandshakeState) (string, error) {
	data, err := json.Marshal(hs)
	if err != nil {
		return "", fmt.Errorf("failed to encode handshake state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeHandshakeState reverses EncodeHandshakeState. It fails closed:
// bad base64, bad JSON, or a missing required field all yield a
// KindDecode error, never a partial state.
func DecodeHandshakeState(raw string) (*HandshakeState, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, wrapAuthError(KindDecode, "handshake state is not valid base64url", err)
	}
	var hs HandshakeState
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, wrapAuthError(KindDecode, "handshake state is not valid JSON", err)
	}
	if hs.State == "" || hs.Nonce == "" || hs.CodeVerifier == "" {
		return nil, newAuthError(KindDecode, "handshake state is missing required fields")
	}
	return &hs, nil
}
