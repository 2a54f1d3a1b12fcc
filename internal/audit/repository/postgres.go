package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"combo-auth/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given
// db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the audit log for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, action, ip, metadata, created_at
		 FROM audit_logs WHERE id = $1`, id)

	var a domain.AuditLog
	if err := row.Scan(&a.ID, &a.IdentityID, &a.Action, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	return &a, nil
}

// ListByIdentity returns audit logs for the given identity, newest first,
// paginated by limit and offset.
func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, identity_id, action, ip, metadata, created_at
		 FROM audit_logs WHERE identity_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		identityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.IdentityID, &a.Action, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Create persists the audit log. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, identity_id, action, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.IdentityID, a.Action, a.IP, a.Metadata, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
