package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/auth"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned by UserRepo.Create on a username
	// uniqueness violation.
	ErrUsernameTaken = errors.New("username already taken")
)

// User is a dashboard account. At most one user exists per non-empty
// OIDCSubject; Username is globally unique.
type User struct {
	ID          int64
	PublicID    string
	Username    string
	DisplayName string
	Role        auth.Role
	OIDCSubject string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRepo is the user persistence interface (implemented in data).
type UserRepo interface {
	FindByOIDCSubject(ctx context.Context, subject string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateRole(ctx context.Context, id int64, role auth.Role) error
}

// ProvisionUsecase finds or creates the local user tied to an IdP
// subject and keeps the role in sync with group membership.
type ProvisionUsecase struct {
	repo UserRepo
	cfg  *conf.OIDC
}

// NewProvisionUsecase creates a provisioning usecase.
func NewProvisionUsecase(repo UserRepo, cfg *conf.OIDC) *ProvisionUsecase {
	return &ProvisionUsecase{repo: repo, cfg: cfg}
}

// subjectFragmentLen is how much of the subject is appended to resolve a
// username collision. Long enough to make a second collision for the
// same candidate name practically impossible, short enough to keep the
// username readable.
const subjectFragmentLen = 7

// FindOrCreate returns the local user for the given claims, creating it
// on first login.
//
// Existing users get their role recomputed from current group
// membership on every login, so role drift self-heals. New users get a
// username derived from the claims (preferred_username, then email,
// then subject); if that name is taken, exactly one retry appends a
// deterministic fragment of the subject. Any other creation failure
// propagates unmodified.
func (u *ProvisionUsecase) FindOrCreate(ctx context.Context, claims *auth.IdentityClaims) (*User, error) {
	user, err := u.repo.FindByOIDCSubject(ctx, claims.Subject)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user by subject: %w", err)
	}

	role := auth.MapGroupsToRole(u.cfg, claims.Groups)

	if user != nil {
		if user.Role != role {
			if err := u.repo.UpdateRole(ctx, user.ID, role); err != nil {
				return nil, fmt.Errorf("failed to update user role: %w", err)
			}
			user.Role = role
		}
		return user, nil
	}

	username := candidateUsername(claims)
	for attempt := 0; attempt < 2; attempt++ {
		if attempt == 1 {
			username = username + "_" + subjectFragment(claims.Subject)
		}
		user = &User{
			PublicID:    uuid.New().String(),
			Username:    username,
			DisplayName: claims.DisplayName,
			Role:        role,
			OIDCSubject: claims.Subject,
		}
		err = u.repo.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUsernameTaken) {
			break
		}
	}
	return nil, fmt.Errorf("failed to create user for subject %s: %w", claims.Subject, err)
}

func candidateUsername(claims *auth.IdentityClaims) string {
	if claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.Subject
}

func subjectFragment(subject string) string {
	if len(subject) <= subjectFragmentLen {
		return subject
	}
	return subject[:subjectFragmentLen]
}
