package repo

import (
	"context"

	"github.com/fieldform/backend/internal/hash"
	"github.com/fieldform/backend/internal/models"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// EnsureAdminUser seeds the built-in roles and, when the users table is
// empty, a confirmed admin account. Called once on startup; a no-op when
// users already exist or no admin password is configured.
func (r *GormRepo) EnsureAdminUser(ctx context.Context, username, email, password string) error {
	adminRole, err := r.EnsureRole(ctx, RoleAdmin)
	if err != nil {
		return err
	}
	if _, err := r.EnsureRole(ctx, RoleUser); err != nil {
		return err
	}

	if password == "" {
		return nil
	}
	count, err := r.CountUsers(ctx)
	if err != nil || count > 0 {
		return err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:       username,
		Email:          email,
		EmailConfirmed: true,
		PasswordHash:   pwHash,
	}
	if err := r.DB.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}
	return r.AssignRole(ctx, admin.ID, adminRole.ID)
}
