// Package repository defines persistence for identities.
package repository

import (
	"context"
	"errors"

	"combo-auth/internal/identity/domain"
)

// ErrConflict is returned when a create or update would violate the
// uniqueness of email or federated subject.
var ErrConflict = errors.New("identity conflict")

// Repository defines persistence for identities. Lookups return (nil, nil)
// for missing records; errors indicate store failures only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByFederatedSubject(ctx context.Context, subject string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	Update(ctx context.Context, i *domain.Identity) error
}
