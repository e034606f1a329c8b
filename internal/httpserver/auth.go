package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldform/backend/internal/logging"
	mwauth "github.com/fieldform/backend/internal/middleware/auth"
	"github.com/fieldform/backend/internal/service"
	"github.com/fieldform/backend/internal/transport"
)

// AuthHTTP translates between the HTTP surface and the auth service.
// Operations answer 200 with a success/failure envelope; only missing
// authentication surfaces as an HTTP error status.
type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Authenticate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_token")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("bind_error", "error", err)
		return c.JSON(http.StatusOK, transport.DataFail[*transport.AuthorizeResult]("Empty username or password"))
	}

	result, err := h.Svc.AuthenticateUser(ctx, req)
	if err != nil {
		return c.JSON(http.StatusOK, transport.DataFail[*transport.AuthorizeResult](err.Error()))
	}
	return c.JSON(http.StatusOK, transport.DataOK(result))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.Svc.RefreshToken(ctx, mwauth.CurrentUserID(c))
	if err != nil {
		return c.JSON(http.StatusOK, transport.DataFail[*transport.AuthorizeResult](err.Error()))
	}
	return c.JSON(http.StatusOK, transport.DataOK(result))
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.Svc.LogOut(ctx, mwauth.CurrentUserID(c)); err != nil {
		return c.JSON(http.StatusOK, transport.Fail(err.Error()))
	}
	return c.JSON(http.StatusOK, transport.OK())
}

// Claims answers 403 when the caller has no live session-cache entry: the
// token may still verify, but without an entry the claims are gone.
func (h *AuthHTTP) Claims(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.Svc.CurrentUserClaims(ctx, mwauth.CurrentUserID(c))
	if err != nil {
		return c.JSON(http.StatusOK, transport.DataFail[map[string]string](err.Error()))
	}
	if !result.Authenticated {
		return echo.NewHTTPError(http.StatusForbidden, "Current user not found")
	}
	return c.JSON(http.StatusOK, transport.DataOK(result.Claims))
}

func (h *AuthHTTP) TwoFactorInfo(c echo.Context) error {
	ctx := c.Request().Context()

	forced, err := h.Svc.TwoFactorForcedInfo(ctx)
	if err != nil {
		return c.JSON(http.StatusOK, transport.DataFail[bool](err.Error()))
	}
	return c.JSON(http.StatusOK, transport.DataOK(forced))
}

func (h *AuthHTTP) GetGoogleAuthInfo(c echo.Context) error {
	ctx := c.Request().Context()

	model, err := h.Svc.GetGoogleAuthenticatorInfo(ctx, mwauth.CurrentUserID(c))
	if err != nil {
		return c.JSON(http.StatusOK, transport.DataFail[*transport.GoogleAuthInfoModel](err.Error()))
	}
	return c.JSON(http.StatusOK, transport.DataOK(model))
}

func (h *AuthHTTP) UpdateGoogleAuthInfo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_google_auth_update")

	var req transport.GoogleAuthInfoModel
	if err := c.Bind(&req); err != nil {
		l.Warn("bind_error", "error", err)
		return c.JSON(http.StatusOK, transport.Fail("invalid body"))
	}

	if err := h.Svc.UpdateGoogleAuthenticatorInfo(ctx, mwauth.CurrentUserID(c), req.IsTwoFactorEnabled); err != nil {
		return c.JSON(http.StatusOK, transport.Fail(err.Error()))
	}
	return c.JSON(http.StatusOK, transport.OK())
}

func (h *AuthHTTP) DeleteGoogleAuthInfo(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.Svc.DeleteGoogleAuthenticatorInfo(ctx, mwauth.CurrentUserID(c)); err != nil {
		return c.JSON(http.StatusOK, transport.Fail(err.Error()))
	}
	return c.JSON(http.StatusOK, transport.OK())
}

func (h *AuthHTTP) GetGoogleAuthenticator(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_google_auth_key")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("bind_error", "error", err)
		return c.JSON(http.StatusOK, transport.DataFail[*transport.GoogleAuthenticatorModel]("Username or password incorrect"))
	}

	model, err := h.Svc.GetGoogleAuthenticator(ctx, req)
	if err != nil {
		return c.JSON(http.StatusOK, transport.DataFail[*transport.GoogleAuthenticatorModel](err.Error()))
	}
	if model == nil {
		// Two-factor not required for this account: nothing to enroll.
		return c.JSON(http.StatusOK, transport.DataOK[*transport.GoogleAuthenticatorModel](nil))
	}
	return c.JSON(http.StatusOK, transport.DataOK(model))
}
