package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"combo-auth/internal/session/domain"
)

const uniqueViolation = "23505"

// PostgresStore persists sessions in the sessions table. The token column is
// the primary key, so the database itself rejects a second live row for the
// same token.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a session store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, identity_id, expires_at, created_at
		 FROM sessions WHERE token = $1`, token)

	var sess domain.Session
	if err := row.Scan(&sess.Token, &sess.IdentityID, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) Replace(ctx context.Context, sess domain.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = $1`, sess.Token); err != nil {
		return fmt.Errorf("clear sessions for token: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (token, identity_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sess.Token, sess.IdentityID, sess.ExpiresAt, sess.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace session: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete sessions for token: %w", err)
	}
	return nil
}
