// seed inserts development sample data for local testing. Run with go run ./cmd/seed.
// Idempotent: skips inserts if the dev account (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	accountdomain "medportal/backend/internal/account/domain"
	accountrepo "medportal/backend/internal/account/repository"
	"medportal/backend/internal/config"
	"medportal/backend/internal/db"
	"medportal/backend/internal/security"
)

const (
	devEmail    = "dev@example.com"
	devPassword = "Dev12345!pass"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	dbh, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer dbh.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	accounts := accountrepo.NewPostgresRepository(dbh)
	existing, err := accounts.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("seed: lookup dev account: %v", err)
	}
	if existing != nil {
		log.Printf("seed: dev account %s already exists, nothing to do", devEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	now := time.Now().UTC()
	acc := &accountdomain.Account{
		ID:           uuid.New().String(),
		Email:        devEmail,
		Name:         "Dev User",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := accounts.Create(ctx, acc); err != nil {
		log.Fatalf("seed: create dev account: %v", err)
	}
	log.Printf("seed: created dev account %s (password %q)", devEmail, devPassword)
}
