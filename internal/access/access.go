// Package access is the role filter: it computes, for each role, the
// visible projection of the entity stores and the transitions the role is
// allowed to request.  The rules were previously scattered across the
// role dashboards; centralising them here means the HTTP layer and the
// fanout streams consume one answer instead of re-deriving visibility.
package access

import (
	"errors"
	"fmt"

	"github.com/divyaflow/temple-ops/internal/model"
)

// ErrPermission is returned when a role lacks the authority for a
// requested operation.  It is distinct from lifecycle.ErrInvalidTransition:
// permission is checked first, so a traffic operator poking at a security
// alert gets a 403 even when the requested transition would be legal.
var ErrPermission = errors.New("permission denied")

// alertOwner maps each alert type to the department role responsible for
// it.  Crowd, security and fire incidents are handled by security staff;
// medical emergencies by the medical team.  Technical failures and
// weather alerts have no field department and are owned by the control
// room, which sees everything anyway, so they resolve through the
// admin/control-room clause below.
var alertOwner = map[model.AlertType]model.Role{
	model.AlertCrowdOverflow:    model.RoleSecurity,
	model.AlertSecurityBreach:   model.RoleSecurity,
	model.AlertFire:             model.RoleSecurity,
	model.AlertMedicalEmergency: model.RoleMedical,
	model.AlertTechnicalFailure: model.RoleControlRoom,
	model.AlertWeather:          model.RoleControlRoom,
}

// OwnerRole returns the department role responsible for the alert type.
func OwnerRole(t model.AlertType) model.Role { return alertOwner[t] }

// AlertVisible reports whether the role may see the alert.  Devotees see
// no alerts.  Admin and control-room see all.  A department role sees the
// alerts its department owns plus every critical alert regardless of
// type.
func AlertVisible(role model.Role, a model.Alert) bool {
	switch {
	case !role.Staff():
		return false
	case role == model.RoleAdmin || role == model.RoleControlRoom:
		return true
	case a.Severity == model.SeverityCritical:
		return true
	default:
		return alertOwner[a.Type] == role
	}
}

// VisibleAlerts returns the subset of alerts the role may see, preserving
// the input order.
func VisibleAlerts(role model.Role, alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if AlertVisible(role, a) {
			out = append(out, a)
		}
	}
	return out
}

// CheckAlertTransition reports whether the role may change the alert's
// status at all.  Only the owning department, admin and control-room have
// that authority.  Which target statuses are reachable is a separate
// legality question answered by the lifecycle package.
func CheckAlertTransition(role model.Role, a model.Alert) error {
	if role == model.RoleAdmin || role == model.RoleControlRoom {
		return nil
	}
	if role.Staff() && alertOwner[a.Type] == role {
		return nil
	}
	return fmt.Errorf("%w: role %s cannot transition %s alerts", ErrPermission, role, a.Type)
}

// BookingVisible reports whether the role may see the booking.  Devotees
// see only their own bookings; staff roles see all.
func BookingVisible(role model.Role, b model.Booking, subjectUserID string) bool {
	if role.Staff() {
		return true
	}
	return b.SubjectUserID == subjectUserID
}

// VisibleBookings returns the subset of bookings the role may see.
func VisibleBookings(role model.Role, bookings []model.Booking, subjectUserID string) []model.Booking {
	out := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if BookingVisible(role, b, subjectUserID) {
			out = append(out, b)
		}
	}
	return out
}

// CheckBookingTransition reports whether the role may request the given
// booking status change.  A devotee may cancel their own booking and
// check themselves in by presenting their QR at the gate; the remaining
// gate operations (confirm, complete, no-show) belong to security staff
// at the entrance plus admin and control-room.
func CheckBookingTransition(role model.Role, b model.Booking, subjectUserID string, next model.BookingStatus) error {
	switch role {
	case model.RoleAdmin, model.RoleControlRoom:
		return nil
	case model.RoleSecurity:
		switch next {
		case model.BookingCheckedIn, model.BookingCompleted, model.BookingNoShow:
			return nil
		}
	case model.RoleDevotee:
		if b.SubjectUserID == subjectUserID {
			switch next {
			case model.BookingCancelled, model.BookingCheckedIn:
				return nil
			}
		}
	}
	return fmt.Errorf("%w: role %s cannot move booking %s to %s", ErrPermission, role, b.ID, next)
}

// TempleVisible reports whether the role may see the temple.  Temple
// occupancy is public information on every dashboard.
func TempleVisible(model.Role, model.Temple) bool { return true }
