package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
)

// Client drives the relying-party side of the OIDC handshake: building
// the authorization redirect, exchanging the callback code for validated
// identity claims, and resolving the IdP end-session URL.
type Client struct {
	cfg         *conf.OIDC
	cache       *ProviderCache
	redirectURL string
	now         func() time.Time
}

// NewClient creates an OIDC client. redirectURL is the resolved callback
// URL registered with the IdP.
func NewClient(cfg *conf.OIDC, cache *ProviderCache, redirectURL string) *Client {
	return &Client{
		cfg:         cfg,
		cache:       cache,
		redirectURL: redirectURL,
		now:         time.Now,
	}
}

// Enabled reports whether OIDC login is configured.
func (c *Client) Enabled() bool {
	return c.cfg != nil && c.cfg.Enabled
}

func (c *Client) oauth2Config(d *discovered) oauth2.Config {
	return oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.redirectURL,
		Endpoint:     d.provider.Endpoint(),
		Scopes:       c.cfg.Scopes,
	}
}

// CodeChallenge derives the S256 PKCE challenge from a code verifier,
// base64url without padding per RFC 7636.
func CodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// BuildAuthURL constructs the IdP authorization redirect that starts a
// login attempt, carrying the handshake's state, nonce and PKCE
// challenge.
func (c *Client) BuildAuthURL(ctx context.Context, hs *HandshakeState) (string, error) {
	if !c.Enabled() {
		return "", newAuthError(KindNotConfigured, "OIDC login is not enabled")
	}
	d, err := c.cache.get(ctx)
	if err != nil {
		return "", err
	}
	oauth2Config := c.oauth2Config(d)
	return oauth2Config.AuthCodeURL(hs.State,
		oauth2.SetAuthURLParam("nonce", hs.Nonce),
		oauth2.SetAuthURLParam("code_challenge", CodeChallenge(hs.CodeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// EndSessionURL returns the IdP logout URL, or "" when OIDC is disabled
// or the provider exposes no end_session_endpoint.
func (c *Client) EndSessionURL(ctx context.Context, postLogoutRedirect string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	md, err := c.cache.Metadata(ctx)
	if err != nil {
		return "", err
	}
	if md.EndSessionEndpoint == "" {
		return "", nil
	}
	u, err := url.Parse(md.EndSessionEndpoint)
	if err != nil {
		return "", wrapAuthError(KindDiscovery, "invalid end_session_endpoint", err)
	}
	if postLogoutRedirect != "" {
		q := u.Query()
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
		q.Set("client_id", c.cfg.ClientID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
