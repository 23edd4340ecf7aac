package conf

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the config structure.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Session  Session  `yaml:"session"`
	Auth     Auth     `yaml:"auth"`
}

// Server is the server config.
type Server struct {
	ListenAddr    string `yaml:"listen_addr"`
	BaseURL       string `yaml:"base_url"`
	FrontendURL   string `yaml:"frontend_url"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

// Database is the storage config.
type Database struct {
	Path string `yaml:"path"`
}

// Session controls the dashboard session lifetime.
type Session struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// Auth groups the authentication config.
type Auth struct {
	LocalEnabled bool `yaml:"local_enabled"`
	OIDC         OIDC `yaml:"oidc"`
}

// OIDC is the OpenID Connect relying-party config.
type OIDC struct {
	Enabled       bool     `yaml:"enabled"`
	Issuer        string   `yaml:"issuer"`
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	RedirectURL   string   `yaml:"redirect_url"` // Optional: if not set, constructed from server.base_url
	Scopes        []string `yaml:"scopes"`
	AdminGroup    string   `yaml:"admin_group"`
	AdvancedGroup string   `yaml:"advanced_group"`
	DefaultRole   string   `yaml:"default_role"`
	ProviderName  string   `yaml:"provider_name"`
}

// GetRedirectURL returns the OIDC callback URL.
// If RedirectURL is explicitly configured, use it.
// Otherwise construct from server base_url + the callback path.
func (o *OIDC) GetRedirectURL(serverBaseURL string) string {
	if o.RedirectURL != "" {
		return o.RedirectURL
	}
	return strings.TrimRight(serverBaseURL, "/") + "/auth/callback"
}

var validRoles = map[string]bool{
	"admin":         true,
	"advanced-user": true,
	"managed-user":  true,
}

// Load loads config from file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8080"
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = cfg.Server.BaseURL
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/dashboard.db"
	}
	if cfg.Session.TTLMinutes <= 0 {
		cfg.Session.TTLMinutes = 720
	}
	if len(cfg.Auth.OIDC.Scopes) == 0 {
		cfg.Auth.OIDC.Scopes = []string{"openid", "profile", "email", "groups"}
	}
	if cfg.Auth.OIDC.DefaultRole == "" {
		cfg.Auth.OIDC.DefaultRole = "managed-user"
	}
	if cfg.Auth.OIDC.ProviderName == "" {
		cfg.Auth.OIDC.ProviderName = "OpenID Connect"
	}

	// Override from env vars if present
	if baseURL := os.Getenv("SERVER_BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if dbPath := os.Getenv("DASHBOARD_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if issuer := os.Getenv("OIDC_ISSUER"); issuer != "" {
		cfg.Auth.OIDC.Issuer = issuer
	}
	if clientID := os.Getenv("OIDC_CLIENT_ID"); clientID != "" {
		cfg.Auth.OIDC.ClientID = clientID
	}
	if secret := os.Getenv("OIDC_CLIENT_SECRET"); secret != "" {
		cfg.Auth.OIDC.ClientSecret = secret
	}
	if redirectURL := os.Getenv("OIDC_REDIRECT_URL"); redirectURL != "" {
		cfg.Auth.OIDC.RedirectURL = redirectURL
	}

	if !validRoles[cfg.Auth.OIDC.DefaultRole] {
		return nil, fmt.Errorf("invalid default_role %q: must be admin, advanced-user or managed-user", cfg.Auth.OIDC.DefaultRole)
	}

	return &cfg, nil
}
