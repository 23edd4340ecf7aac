package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

// auditRepo is the sqlite implementation of biz.AuditRepo.
type auditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates an audit-log repository over the shared database.
func NewAuditRepo(d *DB) biz.AuditRepo {
	return &auditRepo{db: d.db}
}

func (r *auditRepo) Record(ctx context.Context, entry *biz.AuditEntry) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, action, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, entry.UserID, entry.Action, entry.Detail, now)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted audit id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

func (r *auditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*biz.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, detail, created_at
		FROM audit_log WHERE user_id = ? ORDER BY id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []*biz.AuditEntry{}
	for rows.Next() {
		var e biz.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
