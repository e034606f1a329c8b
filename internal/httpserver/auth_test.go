package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldform/backend/internal/authcache"
	"github.com/fieldform/backend/internal/claims"
	"github.com/fieldform/backend/internal/hash"
	"github.com/fieldform/backend/internal/models"
	"github.com/fieldform/backend/internal/repo"
	"github.com/fieldform/backend/internal/service"
	"github.com/fieldform/backend/internal/tokens"
	"github.com/fieldform/backend/internal/transport"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Model   json.RawMessage `json:"model"`
}

func newTestServer(t *testing.T) (*echo.Echo, *service.AuthService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	r := repo.New(db)
	svc := &service.AuthService{
		Repo:     r,
		Resolver: claims.NewResolver(r),
		Cache:    authcache.NewMemory(),
		Signer:   tokens.NewSigner([]byte("unit-test-key"), "fieldform", time.Hour),
		AppName:  "Fieldform",
	}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: svc},
		Signer:      svc.Signer,
	})
	return e, svc
}

func seedUser(t *testing.T, svc *service.AuthService, username, password, role string) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		Username:       username,
		Email:          username + "@example.com",
		EmailConfirmed: true,
		PasswordHash:   pwHash,
	}
	require.NoError(t, svc.Repo.DB.Create(&user).Error)

	if role != "" {
		ctx := t.Context()
		r, err := svc.Repo.EnsureRole(ctx, role)
		require.NoError(t, err)
		require.NoError(t, svc.Repo.AssignRole(ctx, user.ID, r.ID))
	}
	return &user
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func login(t *testing.T, e *echo.Echo, username, password string) transport.AuthorizeResult {
	t.Helper()

	rec := doJSON(e, http.MethodPost, "/api/auth/token", "",
		`{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, "message=%s", env.Message)

	var result transport.AuthorizeResult
	require.NoError(t, json.Unmarshal(env.Model, &result))
	return result
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := doJSON(e, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	user := seedUser(t, svc, "alice", "secret123", repo.RoleUser)

	result := login(t, e, "alice", "secret123")
	assert.Equal(t, user.ID, result.ID)
	assert.Equal(t, "alice", result.UserName)
	assert.Equal(t, repo.RoleUser, result.Role)
	assert.NotEmpty(t, result.AccessToken)
	assert.True(t, result.IsFirstUser)
}

func TestAuthenticate_FailureIsEnvelopeNotHTTPError(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	seedUser(t, svc, "alice", "secret123", repo.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/auth/token", "",
		`{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Incorrect password.", env.Message)
}

func TestAuthenticate_EmptyBody(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/token", "", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Empty username or password", env.Message)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	seedUser(t, svc, "alice", "secret123", repo.RoleUser)
	auth := login(t, e, "alice", "secret123")

	rec := doJSON(e, http.MethodGet, "/api/auth/token/refresh", auth.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var refreshed transport.AuthorizeResult
	require.NoError(t, json.Unmarshal(env.Model, &refreshed))
	assert.Equal(t, auth.ID, refreshed.ID)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefresh_RequiresToken(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/auth/token/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaims_AfterLogin(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	seedUser(t, svc, "admin", "secret123", repo.RoleAdmin)
	auth := login(t, e, "admin", "secret123")

	rec := doJSON(e, http.MethodGet, "/api/auth/claims", auth.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var got map[string]string
	require.NoError(t, json.Unmarshal(env.Model, &got))
	for _, perm := range claims.Catalog {
		assert.Equal(t, claims.TrueValue, got[perm])
	}
}

func TestClaims_ForbiddenWithoutSession(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	user := seedUser(t, svc, "alice", "secret123", repo.RoleUser)

	// A valid token alone is not enough: without a session-cache entry the
	// claims endpoint denies access.
	token, _, err := svc.Signer.Generate(tokens.TokenInput{UserID: user.ID, Roles: []string{repo.RoleUser}})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodGet, "/api/auth/claims", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogout_InvalidatesClaims(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	seedUser(t, svc, "alice", "secret123", repo.RoleUser)
	auth := login(t, e, "alice", "secret123")

	rec := doJSON(e, http.MethodGet, "/api/auth/logout", auth.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	rec = doJSON(e, http.MethodGet, "/api/auth/claims", auth.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTwoFactorInfo_Anonymous(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/auth/two-factor-info", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	assert.Equal(t, "false", string(env.Model))

	require.NoError(t, svc.Repo.SetTwoFactorForced(t.Context(), true))

	rec = doJSON(e, http.MethodGet, "/api/auth/two-factor-info", "", "")
	env = decodeEnvelope(t, rec)
	assert.Equal(t, "true", string(env.Model))
}

func TestGoogleAuthInfo_Lifecycle(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	user := seedUser(t, svc, "alice", "secret123", repo.RoleUser)
	auth := login(t, e, "alice", "secret123")

	rec := doJSON(e, http.MethodPost, "/api/auth/google-auth-info", auth.AccessToken,
		`{"is_two_factor_enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	rec = doJSON(e, http.MethodGet, "/api/auth/google-auth-info", auth.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var info transport.GoogleAuthInfoModel
	require.NoError(t, json.Unmarshal(env.Model, &info))
	assert.True(t, info.IsTwoFactorEnabled)

	rec = doJSON(e, http.MethodDelete, "/api/auth/google-auth-info", auth.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	stored, err := svc.Repo.GetUserByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.GoogleAuthenticatorSecret)
	assert.False(t, stored.GoogleAuthenticatorEnabled)
}

func TestGoogleAuthKey_Anonymous(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	user := seedUser(t, svc, "alice", "secret123", repo.RoleUser)
	user.TwoFactorEnabled = true
	require.NoError(t, svc.Repo.UpdateUser(t.Context(), user))

	rec := doJSON(e, http.MethodPost, "/api/auth/google-auth-key", "",
		`{"username":"alice","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var model transport.GoogleAuthenticatorModel
	require.NoError(t, json.Unmarshal(env.Model, &model))
	assert.NotEmpty(t, model.PSK)
	assert.NotEmpty(t, model.BarcodeURL)
}

func TestGoogleAuthKey_BadPassword(t *testing.T) {
	t.Parallel()

	e, svc := newTestServer(t)
	seedUser(t, svc, "alice", "secret123", repo.RoleUser)

	rec := doJSON(e, http.MethodPost, "/api/auth/google-auth-key", "",
		`{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Username or password incorrect", env.Message)
}

func TestPrivateRoutes_RequireToken(t *testing.T) {
	t.Parallel()

	e, _ := newTestServer(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/token/refresh"},
		{http.MethodGet, "/api/auth/logout"},
		{http.MethodGet, "/api/auth/claims"},
		{http.MethodGet, "/api/auth/google-auth-info"},
		{http.MethodPost, "/api/auth/google-auth-info"},
		{http.MethodDelete, "/api/auth/google-auth-info"},
	}

	for _, tc := range cases {
		rec := doJSON(e, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}
