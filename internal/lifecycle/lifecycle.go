// Package lifecycle is the single source of truth for legal status
// transitions.  Every status change for alerts and bookings is validated
// here; no handler or view decides on its own which statuses are
// reachable.  Role authority is a separate question answered by the
// access package, and its check runs before the legality check.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/divyaflow/temple-ops/internal/model"
)

// ErrInvalidTransition is returned when the requested status is not
// reachable from the entity's current status.  The entity is left
// unchanged; the caller should re-fetch before retrying with a different
// target.  Handlers translate it into an HTTP 422 response.
var ErrInvalidTransition = errors.New("invalid status transition")

// alertNext maps each alert status to the statuses reachable from it.
// Resolved is terminal; direct active -> resolved is permitted so an
// operator can close out a false alarm in one step.
var alertNext = map[model.AlertStatus][]model.AlertStatus{
	model.AlertActive:       {model.AlertAcknowledged, model.AlertResolved},
	model.AlertAcknowledged: {model.AlertResolved},
	model.AlertResolved:     {},
}

// CheckAlert validates a requested alert status change.
func CheckAlert(current, next model.AlertStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown alert status %q", ErrInvalidTransition, next)
	}
	for _, s := range alertNext[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: alert cannot go from %s to %s", ErrInvalidTransition, current, next)
}

// bookingNext maps each booking status to the statuses reachable from it,
// before time conditions are applied.  Completed, cancelled and no-show
// are terminal.
var bookingNext = map[model.BookingStatus][]model.BookingStatus{
	model.BookingPending:   {model.BookingConfirmed, model.BookingCancelled},
	model.BookingConfirmed: {model.BookingCheckedIn, model.BookingCancelled, model.BookingNoShow},
	model.BookingCheckedIn: {model.BookingCompleted},
}

// CheckBooking validates a requested booking status change at the given
// instant.  Two transitions carry time conditions: a confirmed booking
// may be cancelled only before its slot opens, and may be marked no-show
// only after its slot has closed without a check-in.
func CheckBooking(b model.Booking, next model.BookingStatus, now time.Time) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown booking status %q", ErrInvalidTransition, next)
	}
	reachable := false
	for _, s := range bookingNext[b.Status] {
		if s == next {
			reachable = true
			break
		}
	}
	if !reachable {
		return fmt.Errorf("%w: booking cannot go from %s to %s", ErrInvalidTransition, b.Status, next)
	}
	switch {
	case b.Status == model.BookingConfirmed && next == model.BookingCancelled:
		if start := b.SlotStart(); !start.IsZero() && !now.Before(start) {
			return fmt.Errorf("%w: booking %s slot already started, cannot cancel",
				ErrInvalidTransition, b.ID)
		}
	case b.Status == model.BookingConfirmed && next == model.BookingNoShow:
		if end := b.SlotEnd(); end.IsZero() || !now.After(end) {
			return fmt.Errorf("%w: booking %s slot not over yet, cannot mark no-show",
				ErrInvalidTransition, b.ID)
		}
	}
	return nil
}
