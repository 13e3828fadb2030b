package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness.  Kept dependency-free so load balancers get an
// answer even when the database or broker is down.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
