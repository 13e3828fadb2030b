package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/model"
)

// RequireRole enforces that the authenticated user's role is one of the
// given roles.  It assumes JWTAuth already ran and stored the role claim;
// a missing or unlisted role is rejected with 403 Forbidden.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[CurrentRole(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireStaff admits any operational role and rejects devotees.  Used on
// the alert reporting and booking gate routes where the per-alert and
// per-booking checks still run inside the service.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CurrentRole(c).Staff() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
