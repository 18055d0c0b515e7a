package repo

import (
	"context"

	"github.com/crucial707/tools-sys/internal/db"
	"github.com/crucial707/tools-sys/internal/models"
)

// AuditRepo persists audit log entries.
type AuditRepo struct {
	db *db.DB
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(database *db.DB) *AuditRepo {
	return &AuditRepo{db: database}
}

// Log records an audit entry. action is create|update|delete; resourceType is tool|user.
func (r *AuditRepo) Log(ctx context.Context, username, action, resourceType string, resourceID int64, details string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO audit_log (username, action, resource_type, resource_id, details) VALUES (?, ?, ?, ?, ?)`),
		username, action, resourceType, resourceID, details,
	)
	return err
}

// List returns recent audit entries, newest first.
func (r *AuditRepo) List(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT id, username, action, resource_type, resource_id, COALESCE(details,''), created_at FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.ResourceType, &e.ResourceID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
