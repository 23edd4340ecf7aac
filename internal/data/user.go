package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/auth"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

// userRepo is the sqlite implementation of biz.UserRepo.
type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a user repository over the shared database.
func NewUserRepo(d *DB) biz.UserRepo {
	return &userRepo{db: d.db}
}

func (r *userRepo) FindByOIDCSubject(ctx context.Context, subject string) (*biz.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, public_id, username, display_name, role, COALESCE(oidc_subject, ''), created_at, updated_at
		FROM users WHERE oidc_subject = ?
	`, subject)
	return scanUser(row)
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*biz.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, public_id, username, display_name, role, COALESCE(oidc_subject, ''), created_at, updated_at
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*biz.User, error) {
	var u biz.User
	var role string
	err := row.Scan(&u.ID, &u.PublicID, &u.Username, &u.DisplayName, &role, &u.OIDCSubject, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, biz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, user *biz.User) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (public_id, username, display_name, role, oidc_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?)
	`, user.PublicID, user.Username, user.DisplayName, string(user.Role), user.OIDCSubject, now, now)
	if err != nil {
		if isUniqueViolation(err, "users.username") {
			return biz.ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted user id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepo) UpdateRole(ctx context.Context, id int64, role auth.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = ? WHERE id = ?
	`, string(role), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return biz.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure on the given column. modernc.org/sqlite exposes the violated
// column in the error text.
func isUniqueViolation(err error, column string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), column)
}
