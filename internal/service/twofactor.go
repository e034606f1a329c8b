package service

import (
	"context"
	"errors"
	"net/url"

	"github.com/fieldform/backend/internal/logging"
	"github.com/fieldform/backend/internal/repo"
	"github.com/fieldform/backend/internal/totp"
	"github.com/fieldform/backend/internal/transport"
)

// TwoFactorForcedInfo reports the tenant-wide enforcement flag.
func (s *AuthService) TwoFactorForcedInfo(ctx context.Context) (bool, error) {
	forced, err := s.Repo.TwoFactorForced(ctx)
	if err != nil {
		l := logging.FromContext(ctx).With("svc", "auth.twofactor_info")
		return false, s.infra(ctx, l, "settings lookup failed", err)
	}
	return forced, nil
}

func (s *AuthService) GetGoogleAuthenticatorInfo(ctx context.Context, userID uint) (*transport.GoogleAuthInfoModel, error) {
	l := logging.FromContext(ctx).With("svc", "auth.twofactor_get", "user_id", userID)

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, authenticationError("Current user not found")
		}
		return nil, s.infra(ctx, l, "user lookup failed", err)
	}
	forced, err := s.Repo.TwoFactorForced(ctx)
	if err != nil {
		return nil, s.infra(ctx, l, "settings lookup failed", err)
	}

	return &transport.GoogleAuthInfoModel{
		PSK:                user.GoogleAuthenticatorSecret,
		IsTwoFactorEnabled: user.TwoFactorEnabled,
		IsTwoFactorForced:  forced,
	}, nil
}

// UpdateGoogleAuthenticatorInfo toggles the enabled flag directly. Disable
// does not re-validate a code.
func (s *AuthService) UpdateGoogleAuthenticatorInfo(ctx context.Context, userID uint, enabled bool) error {
	l := logging.FromContext(ctx).With("svc", "auth.twofactor_update", "user_id", userID)

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return authenticationError("Current user not found")
		}
		return s.infra(ctx, l, "user lookup failed", err)
	}

	user.TwoFactorEnabled = enabled
	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		return s.infra(ctx, l, "user update failed", err)
	}
	return nil
}

// DeleteGoogleAuthenticatorInfo clears the secret and both flags for the
// current user, unconditionally.
func (s *AuthService) DeleteGoogleAuthenticatorInfo(ctx context.Context, userID uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.twofactor_delete", "user_id", userID)

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return authenticationError("Current user not found")
		}
		return s.infra(ctx, l, "user lookup failed", err)
	}

	user.GoogleAuthenticatorSecret = ""
	user.GoogleAuthenticatorEnabled = false
	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		return s.infra(ctx, l, "user update failed", err)
	}
	return nil
}

// GetGoogleAuthenticator starts (or re-checks) authenticator enrollment.
// Credentials are re-verified even for a logged-in caller; lookup and
// password failures share one message here. A nil model with nil error
// means enrollment is not needed; an empty model means the account is
// already enrolled and the secret is not re-disclosed.
func (s *AuthService) GetGoogleAuthenticator(ctx context.Context, m transport.LoginRequest) (*transport.GoogleAuthenticatorModel, error) {
	l := logging.FromContext(ctx).With("svc", "auth.twofactor_enroll", "username", m.Username)

	if m.Username == "" || m.Password == "" {
		return nil, validationError("Username or password incorrect")
	}

	user, err := s.Repo.GetUserByUsername(ctx, m.Username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, authenticationError("Username or password incorrect")
		}
		return nil, s.infra(ctx, l, "user lookup failed", err)
	}

	status, err := s.Repo.CheckPasswordSignIn(ctx, user, m.Password)
	if err != nil {
		return nil, s.infra(ctx, l, "password check failed", err)
	}
	switch status {
	case repo.SignInLockedOut:
		return nil, authenticationError("Locked Out. Please, try again after 10 min")
	case repo.SignInInvalid:
		return nil, authenticationError("Username or password incorrect")
	}

	forced, err := s.Repo.TwoFactorForced(ctx)
	if err != nil {
		return nil, s.infra(ctx, l, "settings lookup failed", err)
	}
	if !user.TwoFactorEnabled && !forced {
		return nil, nil
	}

	if user.GoogleAuthenticatorSecret != "" && user.GoogleAuthenticatorEnabled {
		return &transport.GoogleAuthenticatorModel{}, nil
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, s.infra(ctx, l, "secret generation failed", err)
	}
	barcode := totp.ProvisionURI(secret, user.Username, s.AppName)

	// The secret is persisted now; the enabled flag flips only once a
	// login validates a code against it.
	user.GoogleAuthenticatorSecret = secret
	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		l.Error("psk update failed", "error", err)
		s.reporter().Capture(ctx, err, map[string]any{"op": "psk update failed"})
		return nil, &Error{Category: CategoryInfrastructure, Message: "Error while updating PSK", Err: err}
	}

	return &transport.GoogleAuthenticatorModel{
		PSK:        secret,
		BarcodeURL: url.QueryEscape(barcode),
	}, nil
}
