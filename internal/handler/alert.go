package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/middleware"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/service"
)

// AlertHandler serves the incident feed: role-filtered listings, operator
// reports and the acknowledge/resolve transitions.
type AlertHandler struct {
	Ops *service.Ops
}

func NewAlertHandler(ops *service.Ops) *AlertHandler {
	return &AlertHandler{Ops: ops}
}

// List returns the alerts visible to the caller's role.  Devotees always
// get an empty list rather than an error.
func (h *AlertHandler) List(c echo.Context) error {
	alerts, err := h.Ops.ListAlerts(middleware.CurrentRole(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"alerts": alerts})
}

type reportAlertReq struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TempleID    string `json:"templeId"`
	Zone        string `json:"zone"`
}

// Report files an operator-observed incident.  Staff only.
func (h *AlertHandler) Report(c echo.Context) error {
	var req reportAlertReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	a, err := h.Ops.ReportAlert(
		c.Request().Context(),
		middleware.CurrentRole(c),
		middleware.CurrentUserID(c),
		service.AlertParams{
			Type:        model.AlertType(req.Type),
			Severity:    model.AlertSeverity(req.Severity),
			Title:       req.Title,
			Description: req.Description,
			TempleID:    req.TempleID,
			Zone:        req.Zone,
		},
		time.Now().UTC(),
	)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

type alertStatusReq struct {
	Status string `json:"status"`
}

// SetStatus acknowledges or resolves an alert.  The service checks that
// the caller's department owns the alert type before it checks whether
// the transition is legal, so a forbidden caller gets 403 even on an
// already resolved alert.
func (h *AlertHandler) SetStatus(c echo.Context) error {
	var req alertStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	a, err := h.Ops.TransitionAlert(
		middleware.CurrentRole(c),
		middleware.CurrentUserID(c),
		c.Param("id"),
		model.AlertStatus(req.Status),
		time.Now().UTC(),
	)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
