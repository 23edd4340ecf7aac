package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

// LoginOptionsResponse lists the available login methods.
type LoginOptionsResponse struct {
	Methods      []string `json:"methods"`
	ProviderName string   `json:"provider_name,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// UserInfoResponse describes the authenticated user.
type UserInfoResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
}

// CreateServerRequest registers a new Shlink server connection.
type CreateServerRequest struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// ServerResponse describes a Shlink server connection. The API key is
// never echoed back.
type ServerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
}

func toServerResponse(s *biz.ShlinkServer) ServerResponse {
	return ServerResponse{
		ID:        s.PublicID,
		Name:      s.Name,
		BaseURL:   s.BaseURL,
		CreatedAt: s.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
