package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fieldform/backend/internal/tokens"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

type RequireLogin struct {
	Signer *tokens.Signer
}

func NewRequireLogin(signer *tokens.Signer) *RequireLogin {
	return &RequireLogin{Signer: signer}
}

// Middleware authenticates the bearer token and stores the caller's id and
// primary role on the request context.
func (m *RequireLogin) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		accessClaims, err := m.Signer.Parse(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		userID, err := accessClaims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, accessClaims.Role)

		return next(c)
	}
}

// CurrentUserID returns the authenticated user id set by the middleware,
// zero when absent.
func CurrentUserID(c echo.Context) uint {
	if id, ok := c.Get(ContextUserID).(uint); ok {
		return id
	}
	return 0
}
