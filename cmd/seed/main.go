// seed inserts a development identity for local testing.
// Idempotent: skips inserts if the dev identity (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"combo-auth/internal/config"
	"combo-auth/internal/db"
	identitydomain "combo-auth/internal/identity/domain"
	identityrepo "combo-auth/internal/identity/repository"
	"combo-auth/internal/security"
)

const (
	devEmail    = "dev@example.com"
	devPassword = "password123"
	devName     = "Dev User"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	identities := identityrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := identities.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash(devPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	ident := &identitydomain.Identity{
		ID:             uuid.New().String(),
		DisplayName:    devName,
		Email:          devEmail,
		CredentialHash: hash,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := ident.Validate(); err != nil {
		log.Fatalf("dev identity: %v", err)
	}
	if err := identities.Create(ctx, ident); err != nil {
		log.Fatalf("create dev identity: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", devEmail, devPassword)
}
