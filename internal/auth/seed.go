package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	seedUsername      = "admin"
	seedPasswordBytes = 16
)

// SeedAdmin creates an admin account with a random password when the users
// table is empty. It returns the generated password, or "" when accounts
// already exist.
func SeedAdmin(ctx context.Context, users UserRepository, logger Logger) (string, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Debug("users exist, skipping admin seed", "count", count)
		return "", nil
	}

	buf := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(buf)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Username:     seedUsername,
		DisplayName:  "Fleet Administrator",
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"username", seedUsername,
		"password", password,
		"action_required", "change this password immediately",
	)
	return password, nil
}
