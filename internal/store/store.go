package store

import (
	"fmt"

	"github.com/divyaflow/temple-ops/internal/model"
)

// Kind names an entity kind.  It is used for fanout stream selection and
// for the snapshot table in the persistence collaborator.
type Kind string

const (
	KindTemple  Kind = "temple"
	KindSlot    Kind = "slot"
	KindBooking Kind = "booking"
	KindAlert   Kind = "alert"
)

// Valid reports whether k is a recognised kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTemple, KindSlot, KindBooking, KindAlert:
		return true
	}
	return false
}

// TempleStore holds the temple snapshots.  Temples are seeded at startup
// and never deleted during a session, so no Delete is exposed.
type TempleStore struct{ c *collection[model.Temple] }

// NewTempleStore returns an empty temple store.
func NewTempleStore() *TempleStore {
	return &TempleStore{c: newCollection(
		func(t model.Temple) string { return t.ID },
		model.Temple.Validate,
	)}
}

func (s *TempleStore) Get(id string) (model.Temple, error) { return s.c.get(id) }
func (s *TempleStore) List() []model.Temple                { return s.c.list(nil) }
func (s *TempleStore) Upsert(t model.Temple) error         { return s.c.upsert(t) }
func (s *TempleStore) Len() int                            { return s.c.size() }

// Mutate applies fn to the temple under the store lock and validates the
// result before storing it.
func (s *TempleStore) Mutate(id string, fn func(*model.Temple) error) (model.Temple, error) {
	return s.c.mutate(id, fn)
}

// SlotStore holds the darshan slot inventory.  Booking creation and
// cancellation adjust CapacityBooked through Mutate so the capacity check
// and the decrement happen under one lock.
type SlotStore struct{ c *collection[model.Slot] }

// NewSlotStore returns an empty slot store.
func NewSlotStore() *SlotStore {
	return &SlotStore{c: newCollection(
		func(s model.Slot) string { return s.ID },
		model.Slot.Validate,
	)}
}

func (s *SlotStore) Get(id string) (model.Slot, error)        { return s.c.get(id) }
func (s *SlotStore) List(m func(model.Slot) bool) []model.Slot { return s.c.list(m) }
func (s *SlotStore) Upsert(v model.Slot) error                { return s.c.upsert(v) }

// Mutate applies fn to the slot under the store lock; fn may return an
// error (such as a capacity failure) to abort without mutating.
func (s *SlotStore) Mutate(id string, fn func(*model.Slot) error) (model.Slot, error) {
	return s.c.mutate(id, fn)
}

// Delete removes a slot.  Slots with booked capacity are still referenced
// by bookings and cannot be removed.
func (s *SlotStore) Delete(id string) error {
	return s.c.remove(id, func(v model.Slot) error {
		if v.CapacityBooked > 0 {
			return fmt.Errorf("%w: slot %s still has booked capacity", ErrConflict, v.ID)
		}
		return nil
	})
}

// BookingStore holds the booking snapshots.
type BookingStore struct{ c *collection[model.Booking] }

// NewBookingStore returns an empty booking store.
func NewBookingStore() *BookingStore {
	return &BookingStore{c: newCollection(
		func(b model.Booking) string { return b.ID },
		model.Booking.Validate,
	)}
}

func (s *BookingStore) Get(id string) (model.Booking, error)              { return s.c.get(id) }
func (s *BookingStore) List(m func(model.Booking) bool) []model.Booking   { return s.c.list(m) }
func (s *BookingStore) Upsert(v model.Booking) error                      { return s.c.upsert(v) }

// Mutate applies fn to the booking under the store lock.  Transition
// legality, including the immutability of terminal statuses, is enforced
// inside fn by the caller (the service runs the lifecycle check there so
// the decision and the write happen under one lock).
func (s *BookingStore) Mutate(id string, fn func(*model.Booking) error) (model.Booking, error) {
	return s.c.mutate(id, fn)
}

// Delete removes a booking.  Only non-terminal bookings may be deleted;
// completed, cancelled and no-show records are kept for audit.
func (s *BookingStore) Delete(id string) error {
	return s.c.remove(id, func(b model.Booking) error {
		if b.Status.Terminal() {
			return fmt.Errorf("%w: booking %s is %s", ErrConflict, b.ID, b.Status)
		}
		return nil
	})
}

// AlertStore holds the alert snapshots.  Alerts are append-only workflow
// items: they transition to resolved but are never deleted.
type AlertStore struct{ c *collection[model.Alert] }

// NewAlertStore returns an empty alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{c: newCollection(
		func(a model.Alert) string { return a.ID },
		model.Alert.Validate,
	)}
}

func (s *AlertStore) Get(id string) (model.Alert, error)          { return s.c.get(id) }
func (s *AlertStore) List(m func(model.Alert) bool) []model.Alert { return s.c.list(m) }
func (s *AlertStore) Upsert(v model.Alert) error                  { return s.c.upsert(v) }

// Mutate applies fn to the alert under the store lock.  As with bookings,
// transition legality runs inside fn.
func (s *AlertStore) Mutate(id string, fn func(*model.Alert) error) (model.Alert, error) {
	return s.c.mutate(id, fn)
}
