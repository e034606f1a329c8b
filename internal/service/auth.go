package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldform/backend/internal/authcache"
	"github.com/fieldform/backend/internal/claims"
	"github.com/fieldform/backend/internal/errtrack"
	"github.com/fieldform/backend/internal/events"
	"github.com/fieldform/backend/internal/logging"
	"github.com/fieldform/backend/internal/models"
	"github.com/fieldform/backend/internal/repo"
	"github.com/fieldform/backend/internal/tokens"
	"github.com/fieldform/backend/internal/totp"
	"github.com/fieldform/backend/internal/transport"
)

const (
	defaultTimeZone = "Europe/Copenhagen"
	defaultFormats  = "de-DE"
)

// AuthService sequences the credential store, TOTP verifier, claims
// resolver, token signer and session cache into the login, refresh, logout
// and enrollment flows.
type AuthService struct {
	Repo     *repo.GormRepo
	Resolver *claims.Resolver
	Cache    authcache.Store
	Signer   *tokens.Signer

	// Optional collaborators.
	Events  events.Publisher
	Errors  errtrack.Reporter
	AppName string
}

// AuthenticateUser checks credentials (with lockout), the email
// confirmation flag and, when required, a TOTP code, then issues a token.
func (s *AuthService) AuthenticateUser(ctx context.Context, m transport.LoginRequest) (*transport.AuthorizeResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.authenticate", "username", m.Username)

	if m.Username == "" || m.Password == "" {
		return nil, validationError("Empty username or password")
	}

	user, err := s.Repo.GetUserByUsername(ctx, m.Username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			s.publishLogin(ctx, 0, m.Username, false, "user not found")
			return nil, authenticationError(fmt.Sprintf("User with username %s not found", m.Username))
		}
		return nil, s.infra(ctx, l, "user lookup failed", err)
	}

	status, err := s.Repo.CheckPasswordSignIn(ctx, user, m.Password)
	if err != nil {
		return nil, s.infra(ctx, l, "password check failed", err)
	}
	switch status {
	case repo.SignInLockedOut:
		s.publishLogin(ctx, user.ID, m.Username, false, "locked out")
		return nil, authenticationError("Locked Out. Please, try again after 10 min")
	case repo.SignInInvalid:
		s.publishLogin(ctx, user.ID, m.Username, false, "incorrect password")
		return nil, authenticationError("Incorrect password.")
	}

	if !user.EmailConfirmed {
		return nil, authenticationError(fmt.Sprintf("Email %s not confirmed", user.Email))
	}

	forced, err := s.Repo.TwoFactorForced(ctx)
	if err != nil {
		return nil, s.infra(ctx, l, "settings lookup failed", err)
	}
	if user.TwoFactorEnabled || forced {
		if user.GoogleAuthenticatorSecret == "" || m.Code == "" {
			return nil, authenticationError("PSK or code is empty")
		}
		ok, err := totp.Verify(user.GoogleAuthenticatorSecret, m.Code, time.Now())
		if err != nil {
			return nil, s.infra(ctx, l, "totp verification failed", err)
		}
		if !ok {
			s.publishLogin(ctx, user.ID, m.Username, false, "invalid code")
			return nil, authenticationError("Invalid code")
		}
		// First validated code confirms the enrollment.
		if !user.GoogleAuthenticatorEnabled {
			user.GoogleAuthenticatorEnabled = true
			if err := s.Repo.UpdateUser(ctx, user); err != nil {
				return nil, s.infra(ctx, l, "user update failed", err)
			}
		}
	}

	result, err := s.issue(ctx, l, user, m.Username)
	if err != nil {
		return nil, err
	}

	s.publishLogin(ctx, user.ID, m.Username, true, "")
	l.Info("login_successful", "user_id", user.ID)
	return result, nil
}

// RefreshToken reissues a token for an already-authenticated user, without
// the password and TOTP checks.
func (s *AuthService) RefreshToken(ctx context.Context, userID uint) (*transport.AuthorizeResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "user_id", userID)

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, authenticationError(fmt.Sprintf("User with id %d not found", userID))
		}
		return nil, s.infra(ctx, l, "user lookup failed", err)
	}

	return s.issue(ctx, l, user, user.Username)
}

// issue covers the shared tail of authenticate and refresh: token
// generation, role resolution, preference backfill and the first-user flag.
func (s *AuthService) issue(ctx context.Context, l *slog.Logger, user *models.User, who string) (*transport.AuthorizeResult, error) {
	token, expires, err := s.GenerateToken(ctx, user)
	if err != nil {
		return nil, s.infra(ctx, l, "token generation failed", err)
	}

	roles, err := s.Repo.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, s.infra(ctx, l, "role lookup failed", err)
	}
	if len(roles) == 0 {
		return nil, integrityError(fmt.Sprintf("Role for user %s not found", who))
	}

	// One-time migration-on-read: fill defaults, never overwrite a value
	// the user has since customized.
	if user.TimeZone == "" {
		user.TimeZone = defaultTimeZone
		if err := s.Repo.UpdateUser(ctx, user); err != nil {
			return nil, s.infra(ctx, l, "user update failed", err)
		}
	}
	if user.Formats == "" {
		user.Formats = defaultFormats
		if err := s.Repo.UpdateUser(ctx, user); err != nil {
			return nil, s.infra(ctx, l, "user update failed", err)
		}
	}

	firstID, err := s.Repo.FirstUserID(ctx)
	if err != nil {
		return nil, s.infra(ctx, l, "first user lookup failed", err)
	}

	return &transport.AuthorizeResult{
		ID:          user.ID,
		AccessToken: token,
		UserName:    user.Username,
		Role:        roles[0].Name,
		ExpiresIn:   expires,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		IsFirstUser: user.ID == firstID,
	}, nil
}

// GenerateToken builds the signed bearer token and writes the authoritative
// permission set into the session cache under the user id. The token embeds
// a snapshot of user and flattened role claims; the cache entry, stamped
// with the same issue timestamp, is what claim lookups consult.
func (s *AuthService) GenerateToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	timeStamp := time.Now().UnixMilli()

	userClaims, err := s.Repo.UserClaims(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	roles, err := s.Repo.RolesForUser(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, err
	}

	var flat []claims.Claim
	for _, c := range userClaims {
		flat = append(flat, claims.Claim{Type: c.ClaimType, Value: c.ClaimValue})
	}

	isAdmin := false
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
		if role.Name == repo.RoleAdmin {
			isAdmin = true
		}
		roleClaims, err := s.Repo.RoleClaims(ctx, role.ID)
		if err != nil {
			return "", time.Time{}, err
		}
		for _, c := range roleClaims {
			flat = append(flat, claims.Claim{Type: c.ClaimType, Value: c.ClaimValue})
		}
	}

	perms, err := s.Resolver.UserPermissions(ctx, user.ID, isAdmin)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.Cache.Set(ctx, user.ID, authcache.Entry{TimeStamp: timeStamp, Claims: perms}); err != nil {
		return "", time.Time{}, err
	}

	return s.Signer.Generate(tokens.TokenInput{
		UserID:    user.ID,
		Locale:    user.Locale,
		TimeStamp: timeStamp,
		Roles:     roleNames,
		Claims:    flat,
	})
}

// ClaimsResult is the tagged outcome of a claims lookup. Authenticated is
// false both for an unassigned user id and for a missing cache entry; the
// boundary maps it to an authorization denial.
type ClaimsResult struct {
	Authenticated bool
	Claims        map[string]string
}

func (s *AuthService) CurrentUserClaims(ctx context.Context, userID uint) (ClaimsResult, error) {
	if userID < 1 {
		return ClaimsResult{}, nil
	}
	entry, ok, err := s.Cache.TryGet(ctx, userID)
	if err != nil {
		l := logging.FromContext(ctx).With("svc", "auth.claims", "user_id", userID)
		return ClaimsResult{}, s.infra(ctx, l, "cache lookup failed", err)
	}
	if !ok {
		return ClaimsResult{}, nil
	}

	out := make(map[string]string, len(entry.Claims))
	for _, c := range entry.Claims {
		out[c.Type] = c.Value
	}
	return ClaimsResult{Authenticated: true, Claims: out}, nil
}

// LogOut removes the session-cache entry. The issued token stays
// cryptographically valid; with the entry gone, claims lookups fail.
func (s *AuthService) LogOut(ctx context.Context, userID uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "user_id", userID)

	if err := s.Cache.Remove(ctx, userID); err != nil {
		return s.infra(ctx, l, "cache remove failed", err)
	}

	if s.Events != nil {
		if err := s.Events.Publish(ctx, fmt.Sprint(userID), events.LogoutEvent{UserID: userID, At: time.Now().UTC()}); err != nil {
			l.Warn("auth_event_publish_failed", "error", err)
		}
	}
	l.Info("logout_successful")
	return nil
}

func (s *AuthService) publishLogin(ctx context.Context, userID uint, username string, success bool, reason string) {
	if s.Events == nil {
		return
	}
	event := events.LoginEvent{
		UserID:   userID,
		Username: username,
		Success:  success,
		Reason:   reason,
		At:       time.Now().UTC(),
	}
	if err := s.Events.Publish(ctx, username, event); err != nil {
		logging.FromContext(ctx).Warn("auth_event_publish_failed", "error", err)
	}
}

func (s *AuthService) infra(ctx context.Context, l *slog.Logger, op string, err error) *Error {
	l.Error(op, "error", err)
	s.reporter().Capture(ctx, err, map[string]any{"op": op})
	return &Error{Category: CategoryInfrastructure, Message: "Internal error", Err: err}
}

func (s *AuthService) reporter() errtrack.Reporter {
	if s.Errors != nil {
		return s.Errors
	}
	return errtrack.Nop{}
}
