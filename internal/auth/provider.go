package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
)

// idpTimeout bounds every outbound call to the IdP (discovery and the
// token endpoint). 10s is generous for a well-behaved provider and keeps
// a wedged one from pinning request handlers.
const idpTimeout = 10 * time.Second

// ProviderMetadata is the discovered IdP configuration.
type ProviderMetadata struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
	EndSessionEndpoint    string
}

// ProviderCache lazily discovers the IdP configuration once and serves
// it for the remainder of the process lifetime. A failed discovery does
// not poison the cache; the next caller retries.
type ProviderCache struct {
	cfg        *conf.OIDC
	httpClient *http.Client

	mu         sync.Mutex
	discovered *discovered
}

// discovered bundles everything discovery yields. It is populated
// atomically: either all fields are set or the cache stays empty.
type discovered struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	metadata ProviderMetadata
}

// NewProviderCache creates an empty cache for the given OIDC config.
func NewProviderCache(cfg *conf.OIDC) *ProviderCache {
	return &ProviderCache{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: idpTimeout},
	}
}

// get returns the discovered IdP configuration, performing discovery on
// first use.
func (c *ProviderCache) get(ctx context.Context) (*discovered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discovered != nil {
		return c.discovered, nil
	}

	ctx = oidc.ClientContext(ctx, c.httpClient)
	provider, err := oidc.NewProvider(ctx, c.cfg.Issuer)
	if err != nil {
		return nil, wrapAuthError(KindDiscovery, "OIDC provider discovery failed for "+c.cfg.Issuer, err)
	}

	// end_session_endpoint is not part of the core discovery struct;
	// pull it out of the raw document.
	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, wrapAuthError(KindDiscovery, "failed to parse discovery document", err)
	}

	c.discovered = &discovered{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: c.cfg.ClientID}),
		metadata: ProviderMetadata{
			AuthorizationEndpoint: provider.Endpoint().AuthURL,
			TokenEndpoint:         provider.Endpoint().TokenURL,
			EndSessionEndpoint:    extra.EndSessionEndpoint,
		},
	}
	return c.discovered, nil
}

// Metadata returns the discovered endpoints, triggering discovery if
// the cache is cold.
func (c *ProviderCache) Metadata(ctx context.Context) (ProviderMetadata, error) {
	d, err := c.get(ctx)
	if err != nil {
		return ProviderMetadata{}, err
	}
	return d.metadata, nil
}

// Reset clears the cache. Test hook; production code relies on the
// process-lifetime semantics.
func (c *ProviderCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discovered = nil
}
