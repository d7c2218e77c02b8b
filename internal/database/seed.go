package database

import (
	"context"
	"fmt"
	"strings"

	"kpiboard/internal/auth"
	"kpiboard/internal/logger"
	"kpiboard/internal/model"

	"github.com/google/uuid"
)

type AdminStore interface {
	CountByRole(ctx context.Context, role model.Role) (int64, error)
	Create(ctx context.Context, user *model.User) error
}

// CreateAdmin stores a new admin account.
func CreateAdmin(ctx context.Context, users AdminStore, email, name, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("admin email and password are required")
	}
	if name == "" {
		name = "Administrator"
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &model.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		HashedPassword: hash,
		Role:           model.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// SeedAdmin creates the configured admin unless an admin already exists
// or no credentials are configured.
func SeedAdmin(ctx context.Context, users AdminStore, email, password string, log *logger.Logger) error {
	if email == "" || password == "" {
		log.Debug("admin seeding skipped, no credentials configured")
		return nil
	}

	count, err := users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin, err := CreateAdmin(ctx, users, email, "", password)
	if err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	log.Info("created default admin user", "email", admin.Email, "user_id", admin.ID.String())
	return nil
}
