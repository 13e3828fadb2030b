package middleware

// identity.go holds the context accessors shared by middleware and
// handlers.  JWTAuth stores raw claim values; these helpers normalise
// them so downstream code never repeats the type assertions.

import (
	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/model"
)

// CurrentUserID returns the authenticated user's id, or "" when the
// request is unauthenticated.
func CurrentUserID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}

// CurrentRole returns the authenticated user's role.  An unauthenticated
// or malformed request yields the empty role, which fails Role.Valid().
func CurrentRole(c echo.Context) model.Role {
	if v, ok := c.Get("role").(string); ok {
		return model.Role(v)
	}
	return ""
}

// rateKeyUserID is the limiter's identity: the user id when known,
// otherwise "anon" so anonymous traffic shares one bucket per ip.
func rateKeyUserID(c echo.Context) string {
	if id := CurrentUserID(c); id != "" {
		return id
	}
	return "anon"
}
