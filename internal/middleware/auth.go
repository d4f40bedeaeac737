package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/logging"
	"github.com/Radhikamangroliya/todo-timeline-api/pkg/tokens"
)

// ContextKeyClaims is where RequireAuth stores the validated claims.
const ContextKeyClaims = "claims"

type BearerAuth struct {
	Secret   []byte
	Issuer   string
	Audience string
}

func NewBearerAuth(secret []byte, issuer, audience string) *BearerAuth {
	return &BearerAuth{Secret: secret, Issuer: issuer, Audience: audience}
}

// RequireAuth validates the Authorization bearer token and exposes its
// claims to handlers. Every failure is a plain 401; the reason is logged,
// never returned to the caller.
func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := tokens.AccessClaimsFromToken(parts[1], m.Secret, m.Issuer, m.Audience)
		if err != nil || claims == nil {
			logging.FromContext(c.Request().Context()).
				Warn("token rejected", "path", c.Path(), "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(ContextKeyClaims, claims)
		c.Set("user_id", claims.UserID)
		return next(c)
	}
}

// ClaimsFromEcho returns the claims RequireAuth stored, or nil outside an
// authenticated route.
func ClaimsFromEcho(c echo.Context) *tokens.AccessClaims {
	if v, ok := c.Get(ContextKeyClaims).(*tokens.AccessClaims); ok {
		return v
	}
	return nil
}
