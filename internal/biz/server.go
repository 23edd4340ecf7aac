package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ShlinkServer is a user's connection to an external Shlink instance.
type ShlinkServer struct {
	ID        int64
	PublicID  string
	UserID    int64
	Name      string
	BaseURL   string
	APIKey    string
	CreatedAt time.Time
}

// ServerRepo is the server-connection persistence interface
// (implemented in data). All lookups are scoped to the owning user.
type ServerRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]*ShlinkServer, error)
	GetByPublicID(ctx context.Context, userID int64, publicID string) (*ShlinkServer, error)
	Create(ctx context.Context, server *ShlinkServer) error
	Delete(ctx context.Context, userID int64, publicID string) error
}

// ServersUsecase manages a user's Shlink server connections. It is a
// thin wrapper: it adds the user filter and public ids, nothing more.
type ServersUsecase struct {
	repo ServerRepo
}

// NewServersUsecase creates a servers usecase.
func NewServersUsecase(repo ServerRepo) *ServersUsecase {
	return &ServersUsecase{repo: repo}
}

// List returns the user's server connections.
func (u *ServersUsecase) List(ctx context.Context, userID int64) ([]*ShlinkServer, error) {
	return u.repo.ListByUser(ctx, userID)
}

// Get returns one of the user's server connections.
func (u *ServersUsecase) Get(ctx context.Context, userID int64, publicID string) (*ShlinkServer, error) {
	return u.repo.GetByPublicID(ctx, userID, publicID)
}

// Create registers a new server connection for the user.
func (u *ServersUsecase) Create(ctx context.Context, userID int64, name, baseURL, apiKey string) (*ShlinkServer, error) {
	name = strings.TrimSpace(name)
	baseURL = strings.TrimSpace(baseURL)
	if name == "" || baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("name, base URL and API key are required")
	}
	server := &ShlinkServer{
		PublicID: uuid.New().String(),
		UserID:   userID,
		Name:     name,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
	}
	if err := u.repo.Create(ctx, server); err != nil {
		return nil, fmt.Errorf("failed to create server connection: %w", err)
	}
	return server, nil
}

// Delete removes one of the user's server connections.
func (u *ServersUsecase) Delete(ctx context.Context, userID int64, publicID string) error {
	return u.repo.Delete(ctx, userID, publicID)
}
