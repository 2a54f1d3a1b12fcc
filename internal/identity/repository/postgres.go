package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"combo-auth/internal/identity/domain"
)

// uniqueViolation is the SQLSTATE code Postgres reports for unique
// constraint violations.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, display_name, email, credential_hash, enabled, federated_subject, federated_metadata, created_at, updated_at`

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE id = $1
	`, id)
	return scanIdentity(row)
}

// GetByEmail returns the identity with the given email (case-insensitive),
// or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE LOWER(email) = LOWER($1)
	`, email)
	return scanIdentity(row)
}

// GetByFederatedSubject returns the identity linked to the given external
// subject, or nil if no identity carries that link.
func (r *PostgresRepository) GetByFederatedSubject(ctx context.Context, subject string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE federated_subject = $1
	`, subject)
	return scanIdentity(row)
}

// Create persists the identity. The identity must have ID set; it is not
// assigned by this method. Returns ErrConflict when email or federated
// subject uniqueness would be violated.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		i.ID,
		i.DisplayName,
		i.Email,
		nullString(i.CredentialHash),
		i.Enabled,
		nullString(i.FederatedSubject),
		nullBytes(i.FederatedMetadata),
		i.CreatedAt,
		i.UpdatedAt,
	)
	return mapConflict(err)
}

// Update persists mutated fields of an existing identity. Email is treated
// as immutable and is not written. Returns ErrConflict when the federated
// subject uniqueness would be violated.
func (r *PostgresRepository) Update(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE identities
		SET display_name = $2,
		    credential_hash = $3,
		    enabled = $4,
		    federated_subject = $5,
		    federated_metadata = $6,
		    updated_at = $7
		WHERE id = $1
	`,
		i.ID,
		i.DisplayName,
		nullString(i.CredentialHash),
		i.Enabled,
		nullString(i.FederatedSubject),
		nullBytes(i.FederatedMetadata),
		i.UpdatedAt,
	)
	return mapConflict(err)
}

func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var (
		i          domain.Identity
		credential sql.NullString
		subject    sql.NullString
		metadata   []byte
	)
	err := row.Scan(
		&i.ID,
		&i.DisplayName,
		&i.Email,
		&credential,
		&i.Enabled,
		&subject,
		&metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.CredentialHash = credential.String
	i.FederatedSubject = subject.String
	i.FederatedMetadata = metadata
	return &i, nil
}
