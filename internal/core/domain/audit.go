package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionKeyCreate AuditAction = "KEY_CREATE"
	AuditActionKeyRevoke AuditAction = "KEY_REVOKE"
)

// AuditLog records a single audited action in the system. Resource IDs for
// API keys are fingerprints, never raw keys.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       string      `json:"user_id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
