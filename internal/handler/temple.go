package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/middleware"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/service"
)

// TempleHandler serves the occupancy dashboard: temple listings, single
// temple detail, slot inventory and the admin operations (status switch,
// slot removal).
type TempleHandler struct {
	Ops *service.Ops
}

func NewTempleHandler(ops *service.Ops) *TempleHandler {
	return &TempleHandler{Ops: ops}
}

// List returns every temple with live occupancy.
func (h *TempleHandler) List(c echo.Context) error {
	temples, err := h.Ops.ListTemples(middleware.CurrentRole(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"temples": temples})
}

// Get returns one temple by id.
func (h *TempleHandler) Get(c echo.Context) error {
	t, err := h.Ops.GetTemple(c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Slots returns the darshan slots of a temple for the requested date
// (query param "date", YYYY-MM-DD, default today).
func (h *TempleHandler) Slots(c echo.Context) error {
	day := time.Now().UTC()
	if d := c.QueryParam("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		day = parsed
	}
	if _, err := h.Ops.GetTemple(c.Param("id")); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": h.Ops.ListSlots(c.Param("id"), day)})
}

// DeleteSlot removes a slot with no booked places from the inventory.
// Admin only.
func (h *TempleHandler) DeleteSlot(c echo.Context) error {
	if err := h.Ops.DeleteSlot(middleware.CurrentRole(c), c.Param("id"), c.Param("slotId")); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type templeStatusReq struct {
	Status string `json:"status"`
}

// SetStatus switches a temple between open, closed and maintenance.
// Admin only; the route is additionally guarded by RequireRole.
func (h *TempleHandler) SetStatus(c echo.Context) error {
	var req templeStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	t, err := h.Ops.SetTempleStatus(middleware.CurrentRole(c), c.Param("id"), model.OperatingStatus(req.Status))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
