package models

import "time"

// AuditEntry represents one audit log row.
type AuditEntry struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Action       string    `json:"action"`        // create, update, delete
	ResourceType string    `json:"resource_type"` // tool, user
	ResourceID   int64     `json:"resource_id"`
	Details      string    `json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
