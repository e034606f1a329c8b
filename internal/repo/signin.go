package repo

import (
	"context"
	"time"

	"github.com/fieldform/backend/internal/hash"
	"github.com/fieldform/backend/internal/models"
)

// Lockout mirrors the identity-store defaults the API was built against:
// five failed attempts suspend sign-in for ten minutes.
const (
	MaxFailedAccessAttempts = 5
	LockoutDuration         = 10 * time.Minute
)

type SignInStatus int

const (
	SignInOK SignInStatus = iota
	SignInInvalid
	SignInLockedOut
)

// CheckPasswordSignIn verifies the password with lockout tracking enabled.
// A successful check resets the failure counter; a failed one increments it
// and, on reaching the limit, sets the lockout deadline.
func (r *GormRepo) CheckPasswordSignIn(ctx context.Context, user *models.User, password string) (SignInStatus, error) {
	now := time.Now().UTC()

	if user.LockoutEnd != nil && user.LockoutEnd.After(now) {
		return SignInLockedOut, nil
	}

	if hash.CheckPassword(user.PasswordHash, password) {
		if user.FailedAccessCount != 0 || user.LockoutEnd != nil {
			user.FailedAccessCount = 0
			user.LockoutEnd = nil
			if err := r.UpdateUser(ctx, user); err != nil {
				return SignInInvalid, err
			}
		}
		return SignInOK, nil
	}

	user.FailedAccessCount++
	status := SignInInvalid
	if user.FailedAccessCount >= MaxFailedAccessAttempts {
		end := now.Add(LockoutDuration)
		user.LockoutEnd = &end
		user.FailedAccessCount = 0
		status = SignInLockedOut
	}
	if err := r.UpdateUser(ctx, user); err != nil {
		return SignInInvalid, err
	}
	return status, nil
}
