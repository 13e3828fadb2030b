package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/middleware"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/service"
)

// BookingHandler serves darshan bookings: creation, per-role listings and
// the status transitions (cancel, check-in, complete, no-show).
type BookingHandler struct {
	Ops *service.Ops
}

func NewBookingHandler(ops *service.Ops) *BookingHandler {
	return &BookingHandler{Ops: ops}
}

// List returns the bookings the caller may see.  Devotees get their own,
// operational roles get everything.
func (h *BookingHandler) List(c echo.Context) error {
	bookings, err := h.Ops.ListBookings(middleware.CurrentRole(c), middleware.CurrentUserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// Get returns one booking if visible to the caller.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.Ops.GetBooking(middleware.CurrentRole(c), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type createBookingReq struct {
	TempleID  string `json:"templeId"`
	SlotID    string `json:"slotId"`
	PartySize int    `json:"partySize"`
	Category  string `json:"category"`
}

// Create books darshan places for the authenticated user.  Capacity is
// checked and reserved atomically; an oversold slot answers 409.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Category == "" {
		req.Category = string(model.CategoryGeneral)
	}
	b, err := h.Ops.CreateBooking(c.Request().Context(), service.BookingParams{
		SubjectUserID: middleware.CurrentUserID(c),
		TempleID:      req.TempleID,
		SlotID:        req.SlotID,
		PartySize:     req.PartySize,
		Category:      model.BookingCategory(req.Category),
	}, time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Cancel is the devotee-facing shortcut for the cancelled transition.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, model.BookingCancelled)
}

// CheckIn marks the party as arrived at the gate.  Devotees check in
// their own booking by presenting the QR; gate staff can run it for any
// booking.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	return h.transition(c, model.BookingCheckedIn)
}

func (h *BookingHandler) transition(c echo.Context, next model.BookingStatus) error {
	b, err := h.Ops.TransitionBooking(
		middleware.CurrentRole(c),
		middleware.CurrentUserID(c),
		c.Param("id"),
		next,
		time.Now().UTC(),
	)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type bookingStatusReq struct {
	Status string `json:"status"`
}

// SetStatus applies a lifecycle transition to a booking.  Who may do what
// is decided in the service: devotees cancel their own bookings, security
// staff run the gate transitions, admin and control room do anything.
func (h *BookingHandler) SetStatus(c echo.Context) error {
	var req bookingStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return h.transition(c, model.BookingStatus(req.Status))
}
