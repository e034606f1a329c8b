package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/fieldform/backend/internal/middleware/auth"
	"github.com/fieldform/backend/internal/tokens"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Signer      *tokens.Signer
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/api/auth/token", d.AuthHandler.Authenticate)
	e.GET("/api/auth/two-factor-info", d.AuthHandler.TwoFactorInfo)
	e.POST("/api/auth/google-auth-key", d.AuthHandler.GetGoogleAuthenticator)

	authMw := mwauth.NewRequireLogin(d.Signer)
	private := e.Group("", authMw.Middleware)

	private.GET("/api/auth/token/refresh", d.AuthHandler.Refresh)
	private.GET("/api/auth/logout", d.AuthHandler.LogOut)
	private.GET("/api/auth/claims", d.AuthHandler.Claims)
	private.GET("/api/auth/google-auth-info", d.AuthHandler.GetGoogleAuthInfo)
	private.POST("/api/auth/google-auth-info", d.AuthHandler.UpdateGoogleAuthInfo)
	private.DELETE("/api/auth/google-auth-info", d.AuthHandler.DeleteGoogleAuthInfo)
}
