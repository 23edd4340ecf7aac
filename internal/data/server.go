package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

// serverRepo is the sqlite implementation of biz.ServerRepo.
type serverRepo struct {
	db *sql.DB
}

// NewServerRepo creates a server-connection repository over the shared
// database.
func NewServerRepo(d *DB) biz.ServerRepo {
	return &serverRepo{db: d.db}
}

func (r *serverRepo) ListByUser(ctx context.Context, userID int64) ([]*biz.ShlinkServer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, public_id, user_id, name, base_url, api_key, created_at
		FROM shlink_servers WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers := []*biz.ShlinkServer{}
	for rows.Next() {
		var s biz.ShlinkServer
		if err := rows.Scan(&s.ID, &s.PublicID, &s.UserID, &s.Name, &s.BaseURL, &s.APIKey, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		servers = append(servers, &s)
	}
	return servers, rows.Err()
}

func (r *serverRepo) GetByPublicID(ctx context.Context, userID int64, publicID string) (*biz.ShlinkServer, error) {
	var s biz.ShlinkServer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, public_id, user_id, name, base_url, api_key, created_at
		FROM shlink_servers WHERE user_id = ? AND public_id = ?
	`, userID, publicID).Scan(&s.ID, &s.PublicID, &s.UserID, &s.Name, &s.BaseURL, &s.APIKey, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, biz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan server: %w", err)
	}
	return &s, nil
}

func (r *serverRepo) Create(ctx context.Context, server *biz.ShlinkServer) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO shlink_servers (public_id, user_id, name, base_url, api_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, server.PublicID, server.UserID, server.Name, server.BaseURL, server.APIKey, now)
	if err != nil {
		return fmt.Errorf("failed to insert server: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted server id: %w", err)
	}
	server.ID = id
	server.CreatedAt = now
	return nil
}

func (r *serverRepo) Delete(ctx context.Context, userID int64, publicID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM shlink_servers WHERE user_id = ? AND public_id = ?
	`, userID, publicID)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return biz.ErrNotFound
	}
	return nil
}
