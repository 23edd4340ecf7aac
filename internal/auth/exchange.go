package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// clockSkew is the tolerance applied to the exp and iat checks.
const clockSkew = 60 * time.Second

// IdentityClaims is the validated identity extracted from an ID token.
// Constructed once per callback, used immediately, discarded.
type IdentityClaims struct {
	Subject           string
	Email             string
	PreferredUsername string
	DisplayName       string
	Groups            []string
}

// claimsDoc is the raw claims shape read out of the ID token.
type claimsDoc struct {
	Subject           string          `json:"sub"`
	Email             string          `json:"email"`
	PreferredUsername string          `json:"preferred_username"`
	Name              string          `json:"name"`
	Nonce             string          `json:"nonce"`
	Expiry            int64           `json:"exp"`
	IssuedAt          int64           `json:"iat"`
	Groups            json.RawMessage `json:"groups"`
}

// Exchange redeems an authorization code for validated identity claims.
//
// The checks run in order and short-circuit: state match, OIDC enabled,
// code redemption with PKCE plus library-side ID token verification,
// claims present, explicit exp/iat checks with 60s skew, explicit nonce
// re-check, groups normalization. The exp/iat/nonce checks deliberately
// duplicate what the OIDC library verifies so a misconfigured verifier
// cannot silently drop them.
func (c *Client) Exchange(ctx context.Context, code, returnedState string, hs *HandshakeState) (*IdentityClaims, error) {
	if returnedState != hs.State {
		return nil, newAuthError(KindStateMismatch, "callback state does not match handshake state")
	}
	if !c.Enabled() {
		return nil, newAuthError(KindNotConfigured, "OIDC login is not enabled")
	}

	d, err := c.cache.get(ctx)
	if err != nil {
		return nil, err
	}

	ctx = oidc.ClientContext(ctx, c.cache.httpClient)
	oauth2Config := c.oauth2Config(d)
	token, err := oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", hs.CodeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, newAuthError(KindNoClaims, "token response contains no id_token")
	}
	idToken, err := d.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id_token verification failed: %w", err)
	}

	var doc claimsDoc
	if err := idToken.Claims(&doc); err != nil {
		return nil, wrapAuthError(KindNoClaims, "failed to parse id_token claims", err)
	}

	return validateClaims(doc, hs.Nonce, c.now())
}

// validateClaims runs the post-exchange checks over the raw claims.
// Split out of Exchange so the time and nonce laws are testable without
// an IdP.
func validateClaims(doc claimsDoc, expectedNonce string, now time.Time) (*IdentityClaims, error) {
	if doc.Subject == "" {
		return nil, newAuthError(KindNoClaims, "id_token carries no subject claim")
	}
	if exp := time.Unix(doc.Expiry, 0); exp.Before(now.Add(-clockSkew)) {
		return nil, newAuthError(KindTokenExpired, fmt.Sprintf("id_token expired at %s", exp.UTC().Format(time.RFC3339)))
	}
	if iat := time.Unix(doc.IssuedAt, 0); iat.After(now.Add(clockSkew)) {
		return nil, newAuthError(KindTokenIssuedInFuture, fmt.Sprintf("id_token issued at %s, in the future", iat.UTC().Format(time.RFC3339)))
	}
	if doc.Nonce != expectedNonce {
		return nil, newAuthError(KindNonceMismatch, "id_token nonce does not match handshake nonce")
	}

	return &IdentityClaims{
		Subject:           doc.Subject,
		Email:             doc.Email,
		PreferredUsername: doc.PreferredUsername,
		DisplayName:       doc.Name,
		Groups:            normalizeGroups(doc.Groups),
	}, nil
}

// normalizeGroups keeps the string elements of a JSON array and maps
// everything else (absent claim, non-array, non-string elements) to an
// empty set. A malformed groups claim must never fail a login.
func normalizeGroups(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []string{}
	}
	groups := make([]string, 0, len(elems))
	for _, e := range elems {
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			groups = append(groups, s)
		}
	}
	return groups
}
