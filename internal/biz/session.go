package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side dashboard session. Only the opaque ID
// travels to the browser.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepo is the session persistence interface (implemented in data).
type SessionRepo interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) error
}

// SessionUsecase issues and resolves dashboard sessions.
type SessionUsecase struct {
	repo SessionRepo
	ttl  time.Duration
	now  func() time.Time
}

// NewSessionUsecase creates a session usecase with the given lifetime.
func NewSessionUsecase(repo SessionRepo, ttl time.Duration) *SessionUsecase {
	return &SessionUsecase{repo: repo, ttl: ttl, now: time.Now}
}

// TTL returns the configured session lifetime.
func (u *SessionUsecase) TTL() time.Duration {
	return u.ttl
}

// Start issues a new session for the user.
func (u *SessionUsecase) Start(ctx context.Context, userID int64) (*Session, error) {
	now := u.now()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(u.ttl),
	}
	if err := u.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Resolve returns the live session for the given ID. Expired sessions
// are deleted on read and reported as ErrNotFound.
func (u *SessionUsecase) Resolve(ctx context.Context, id string) (*Session, error) {
	session, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.now().After(session.ExpiresAt) {
		_ = u.repo.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return session, nil
}

// Destroy removes a session. Destroying a session that no longer exists
// is not an error.
func (u *SessionUsecase) Destroy(ctx context.Context, id string) error {
	if err := u.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
