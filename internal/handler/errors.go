// Package handler contains the Echo HTTP handlers.  Handlers bind and
// sanity-check request bodies, call the operations core and translate its
// error taxonomy onto HTTP status codes; they never hold business rules
// themselves.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/access"
	"github.com/divyaflow/temple-ops/internal/lifecycle"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/service"
	"github.com/divyaflow/temple-ops/internal/store"
)

// writeErr maps a service error to its HTTP status.  Each sentinel in the
// taxonomy has exactly one code, so clients can branch on status alone:
//
//	validation      400
//	permission      403
//	not found       404
//	conflict        409 (includes capacity exhaustion; retrying won't help)
//	bad transition  422
func writeErr(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, access.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, service.ErrCapacity):
		status = http.StatusConflict
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
