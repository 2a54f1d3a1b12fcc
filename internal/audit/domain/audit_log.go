package domain

import "time"

// AuditLog records one authentication event.
type AuditLog struct {
	ID         string
	IdentityID string
	Action     string
	IP         string
	Metadata   string
	CreatedAt  time.Time
}
