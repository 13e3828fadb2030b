// Package service is the facade the HTTP layer calls.  It owns the entity
// stores and fanout brokers, runs every user-triggered mutation through
// the same validation order (permission first, then transition legality,
// then the store's invariant check) and mirrors each applied change to
// the persistence collaborator and the message broker.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/divyaflow/temple-ops/internal/access"
	"github.com/divyaflow/temple-ops/internal/fanout"
	"github.com/divyaflow/temple-ops/internal/lifecycle"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/queue"
	"github.com/divyaflow/temple-ops/internal/store"
	"github.com/divyaflow/temple-ops/internal/utils"
)

// ErrCapacity is returned when a booking is requested against a slot with
// too few remaining places.  The slot is left untouched and no booking
// record is created; retrying cannot succeed until capacity is released.
// Handlers translate it into an HTTP 409 response.
var ErrCapacity = errors.New("slot capacity exhausted")

// Snapshots is the slice of the persistence collaborator the service
// needs: fire-and-forget saves of entity documents.  A nil implementation
// is allowed (pure in-memory demo mode).
type Snapshots interface {
	SaveAsync(kind store.Kind, id string, entity any)
	DeleteAsync(kind store.Kind, id string)
}

// Events mirrors applied changes onto the message broker.  A nil
// implementation is allowed.
type Events interface {
	AlertRaised(ctx context.Context, ev queue.AlertRaisedEvent) error
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// Ops is the operations core.  All fields are wired once at startup and
// never replaced, so no additional locking is needed beyond the stores'.
type Ops struct {
	Temples  *store.TempleStore
	Slots    *store.SlotStore
	Bookings *store.BookingStore
	Alerts   *store.AlertStore

	TempleFeed  *fanout.Broker
	BookingFeed *fanout.Broker
	AlertFeed   *fanout.Broker

	snapshots Snapshots
	events    Events

	bookingSeq atomic.Uint64
	alertSeq   atomic.Uint64
}

// New wires an Ops over fresh stores and brokers.  snapshots and events
// may be nil.
func New(snapshots Snapshots, events Events) *Ops {
	return &Ops{
		Temples:     store.NewTempleStore(),
		Slots:       store.NewSlotStore(),
		Bookings:    store.NewBookingStore(),
		Alerts:      store.NewAlertStore(),
		TempleFeed:  fanout.NewBroker(),
		BookingFeed: fanout.NewBroker(),
		AlertFeed:   fanout.NewBroker(),
		snapshots:   snapshots,
		events:      events,
	}
}

func (o *Ops) saveAsync(kind store.Kind, id string, entity any) {
	if o.snapshots != nil {
		o.snapshots.SaveAsync(kind, id, entity)
	}
}

func (o *Ops) deleteAsync(kind store.Kind, id string) {
	if o.snapshots != nil {
		o.snapshots.DeleteAsync(kind, id)
	}
}

// ListTemples returns every temple.  Occupancy is public on all
// dashboards, so the role only has to be recognised.
func (o *Ops) ListTemples(role model.Role) ([]model.Temple, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	return o.Temples.List(), nil
}

// GetTemple returns one temple by id.
func (o *Ops) GetTemple(id string) (model.Temple, error) {
	return o.Temples.Get(id)
}

// SetTempleStatus changes a temple's operating status.  Admin only.
func (o *Ops) SetTempleStatus(role model.Role, templeID string, status model.OperatingStatus) (model.Temple, error) {
	if role != model.RoleAdmin {
		return model.Temple{}, fmt.Errorf("%w: role %s cannot change temple status", access.ErrPermission, role)
	}
	if !status.Valid() {
		return model.Temple{}, fmt.Errorf("%w: unknown operating status %q", model.ErrValidation, status)
	}
	t, err := o.Temples.Mutate(templeID, func(t *model.Temple) error {
		t.OperatingStatus = status
		return nil
	})
	if err != nil {
		return model.Temple{}, err
	}
	o.TempleFeed.Publish(t.ID, fanout.ChangeUpsert, t)
	o.saveAsync(store.KindTemple, t.ID, t)
	return t, nil
}

// ListSlots returns the darshan slots of a temple on a given day.
func (o *Ops) ListSlots(templeID string, day time.Time) []model.Slot {
	y, m, d := day.Date()
	return o.Slots.List(func(s model.Slot) bool {
		sy, sm, sd := s.Date.Date()
		return s.TempleID == templeID && sy == y && sm == m && sd == d
	})
}

// DeleteSlot removes a darshan slot from a temple's inventory.  Admin
// only; a slot with booked places is still referenced by bookings and
// answers conflict.
func (o *Ops) DeleteSlot(role model.Role, templeID, slotID string) error {
	if role != model.RoleAdmin {
		return fmt.Errorf("%w: role %s cannot remove slots", access.ErrPermission, role)
	}
	slot, err := o.Slots.Get(slotID)
	if err != nil {
		return err
	}
	if slot.TempleID != templeID {
		return fmt.Errorf("%w: slot %s does not belong to temple %s", model.ErrValidation, slotID, templeID)
	}
	if err := o.Slots.Delete(slotID); err != nil {
		return err
	}
	o.deleteAsync(store.KindSlot, slotID)
	return nil
}

// ListAlerts returns the alerts visible to the role.  A devotee always
// receives an empty slice.
func (o *Ops) ListAlerts(role model.Role) ([]model.Alert, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	return access.VisibleAlerts(role, o.Alerts.List(nil)), nil
}

// ListBookings returns the bookings visible to the role; a devotee sees
// only bookings whose subject is subjectUserID.
func (o *Ops) ListBookings(role model.Role, subjectUserID string) ([]model.Booking, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	return access.VisibleBookings(role, o.Bookings.List(nil), subjectUserID), nil
}

// GetBooking returns one booking if the role may see it.
func (o *Ops) GetBooking(role model.Role, subjectUserID, id string) (model.Booking, error) {
	b, err := o.Bookings.Get(id)
	if err != nil {
		return model.Booking{}, err
	}
	if !access.BookingVisible(role, b, subjectUserID) {
		return model.Booking{}, fmt.Errorf("%w: booking %s is not visible to role %s", access.ErrPermission, id, role)
	}
	return b, nil
}

// BookingParams carries a devotee's booking request.
type BookingParams struct {
	SubjectUserID string
	TempleID      string
	SlotID        string
	PartySize     int
	Category      model.BookingCategory
}

// CreateBooking reserves PartySize places in a slot.  The capacity check
// and the decrement run under the slot store's lock, so two concurrent
// requests can never oversell; on any failure the slot is untouched and
// no booking record exists.
func (o *Ops) CreateBooking(ctx context.Context, p BookingParams, now time.Time) (model.Booking, error) {
	if p.SubjectUserID == "" {
		return model.Booking{}, fmt.Errorf("%w: subject user id is required", model.ErrValidation)
	}
	if p.PartySize < 1 {
		return model.Booking{}, fmt.Errorf("%w: party size %d must be at least 1", model.ErrValidation, p.PartySize)
	}
	if !p.Category.Valid() {
		return model.Booking{}, fmt.Errorf("%w: unknown category %q", model.ErrValidation, p.Category)
	}
	temple, err := o.Temples.Get(p.TempleID)
	if err != nil {
		return model.Booking{}, err
	}
	if temple.OperatingStatus != model.TempleOpen {
		return model.Booking{}, fmt.Errorf("%w: temple %s is %s", store.ErrConflict, temple.ID, temple.OperatingStatus)
	}

	slot, err := o.Slots.Mutate(p.SlotID, func(s *model.Slot) error {
		if s.TempleID != p.TempleID {
			return fmt.Errorf("%w: slot %s does not belong to temple %s", model.ErrValidation, s.ID, p.TempleID)
		}
		if s.Available() < p.PartySize {
			return fmt.Errorf("%w: slot %s has %d places left, %d requested",
				ErrCapacity, s.ID, s.Available(), p.PartySize)
		}
		s.CapacityBooked += p.PartySize
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	qr, err := utils.RandomHex(16)
	if err != nil {
		// Roll the slot back; the booking cannot be issued without its token.
		o.releaseSlot(p.SlotID, p.PartySize)
		return model.Booking{}, err
	}
	seq := o.bookingSeq.Add(1)
	b := model.Booking{
		ID:            fmt.Sprintf("booking-%d-%d", now.UTC().Unix(), seq),
		BookingNumber: fmt.Sprintf("BK-%s-%04d", now.UTC().Format("20060102"), seq),
		SubjectUserID: p.SubjectUserID,
		TempleID:      p.TempleID,
		SlotID:        slot.ID,
		Date:          slot.Date,
		Slot: model.SlotInfo{
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			CapacityMax:    slot.CapacityMax,
			CapacityBooked: slot.CapacityBooked,
		},
		PartySize: p.PartySize,
		Category:  p.Category,
		Amount:    categoryPrice(temple.Pricing, p.Category),
		Status:    model.BookingConfirmed,
		QRToken:   "QR-" + qr,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.Bookings.Upsert(b); err != nil {
		o.releaseSlot(p.SlotID, p.PartySize)
		return model.Booking{}, err
	}

	o.BookingFeed.Publish(b.ID, fanout.ChangeUpsert, b)
	o.saveAsync(store.KindBooking, b.ID, b)
	o.saveAsync(store.KindSlot, slot.ID, slot)
	if o.events != nil {
		ev := queue.BookingConfirmedEvent{
			BookingID:     b.ID,
			BookingNumber: b.BookingNumber,
			SubjectUserID: b.SubjectUserID,
			TempleID:      temple.ID,
			TempleName:    temple.Name,
			Date:          slot.Date.Format("2006-01-02"),
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			PartySize:     b.PartySize,
			Category:      string(b.Category),
			Amount:        b.Amount,
			ConfirmedAt:   now.UTC().Format(time.RFC3339),
		}
		if err := o.events.BookingConfirmed(ctx, ev); err != nil {
			log.Printf("service: booking.confirmed publish failed for %s: %v", b.ID, err)
		}
	}
	return b, nil
}

func categoryPrice(p model.Pricing, c model.BookingCategory) int {
	switch c {
	case model.CategoryVIP:
		return p.VIP
	case model.CategorySenior:
		return p.Senior
	default:
		return p.General
	}
}

// releaseSlot gives capacity back after a cancellation or a failed
// booking issue.
func (o *Ops) releaseSlot(slotID string, partySize int) {
	slot, err := o.Slots.Mutate(slotID, func(s *model.Slot) error {
		s.CapacityBooked -= partySize
		if s.CapacityBooked < 0 {
			s.CapacityBooked = 0
		}
		return nil
	})
	if err != nil {
		log.Printf("service: release %d places on slot %s failed: %v", partySize, slotID, err)
		return
	}
	o.saveAsync(store.KindSlot, slot.ID, slot)
}

// TransitionBooking moves a booking to a new status on behalf of a role.
// Permission is checked before transition legality so the two failure
// kinds stay distinguishable.  Cancelling releases the booked places.
func (o *Ops) TransitionBooking(role model.Role, subjectUserID, bookingID string, next model.BookingStatus, now time.Time) (model.Booking, error) {
	current, err := o.Bookings.Get(bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if err := access.CheckBookingTransition(role, current, subjectUserID, next); err != nil {
		return model.Booking{}, err
	}
	b, err := o.Bookings.Mutate(bookingID, func(b *model.Booking) error {
		if err := lifecycle.CheckBooking(*b, next, now); err != nil {
			return err
		}
		b.Status = next
		b.UpdatedAt = now
		if next == model.BookingCheckedIn {
			t := now
			b.CheckInTime = &t
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	if next == model.BookingCancelled {
		o.releaseSlot(b.SlotID, b.PartySize)
	}
	o.BookingFeed.Publish(b.ID, fanout.ChangeUpsert, b)
	o.saveAsync(store.KindBooking, b.ID, b)
	return b, nil
}

// TransitionAlert moves an alert to a new status on behalf of a role.
// actor is recorded in the alert's action log.  Permission (does this
// role own alerts of this type?) is checked before legality (is the
// status reachable?).
func (o *Ops) TransitionAlert(role model.Role, actor, alertID string, next model.AlertStatus, now time.Time) (model.Alert, error) {
	current, err := o.Alerts.Get(alertID)
	if err != nil {
		return model.Alert{}, err
	}
	if err := access.CheckAlertTransition(role, current); err != nil {
		return model.Alert{}, err
	}
	a, err := o.Alerts.Mutate(alertID, func(a *model.Alert) error {
		if err := lifecycle.CheckAlert(a.Status, next); err != nil {
			return err
		}
		a.Status = next
		if a.AssignedToRole == "" {
			a.AssignedToRole = role
		}
		if next == model.AlertResolved {
			t := now
			a.ResolvedAt = &t
		}
		a.Actions = append(a.Actions, model.AlertAction{
			Action:    string(next),
			Actor:     actor,
			Timestamp: now,
		})
		return nil
	})
	if err != nil {
		return model.Alert{}, err
	}
	o.AlertFeed.Publish(a.ID, fanout.ChangeUpsert, a)
	o.saveAsync(store.KindAlert, a.ID, a)
	return a, nil
}

// AlertParams carries an operator's incident report.
type AlertParams struct {
	Type        model.AlertType
	Severity    model.AlertSeverity
	Title       string
	Description string
	TempleID    string
	Zone        string
}

// ReportAlert enters an operator-reported incident into the system.
// Staff only; the alert starts active and assigned to the reporting
// role's department owner.
func (o *Ops) ReportAlert(ctx context.Context, role model.Role, actor string, p AlertParams, now time.Time) (model.Alert, error) {
	if !role.Staff() {
		return model.Alert{}, fmt.Errorf("%w: role %s cannot report alerts", access.ErrPermission, role)
	}
	if !p.Type.Valid() {
		return model.Alert{}, fmt.Errorf("%w: unknown alert type %q", model.ErrValidation, p.Type)
	}
	if !p.Severity.Valid() {
		return model.Alert{}, fmt.Errorf("%w: unknown severity %q", model.ErrValidation, p.Severity)
	}
	if p.TempleID != "" {
		if _, err := o.Temples.Get(p.TempleID); err != nil {
			return model.Alert{}, err
		}
	}
	seq := o.alertSeq.Add(1)
	a := model.Alert{
		ID:          fmt.Sprintf("alert-report-%d-%d", now.UTC().Unix(), seq),
		Type:        p.Type,
		Severity:    p.Severity,
		Title:       p.Title,
		Description: p.Description,
		Location:    model.AlertLocation{TempleID: p.TempleID, Zone: p.Zone},
		Timestamp:   now,
		Status:      model.AlertActive,
		Actions: []model.AlertAction{
			{Action: "reported", Actor: actor, Timestamp: now},
		},
	}
	if err := o.Alerts.Upsert(a); err != nil {
		return model.Alert{}, err
	}
	o.AlertFeed.Publish(a.ID, fanout.ChangeUpsert, a)
	o.saveAsync(store.KindAlert, a.ID, a)
	if o.events != nil {
		if err := o.events.AlertRaised(ctx, alertEvent(a)); err != nil {
			log.Printf("service: alert.raised publish failed for %s: %v", a.ID, err)
		}
	}
	return a, nil
}

func alertEvent(a model.Alert) queue.AlertRaisedEvent {
	return queue.AlertRaisedEvent{
		AlertID:   a.ID,
		Type:      string(a.Type),
		Severity:  string(a.Severity),
		Title:     a.Title,
		TempleID:  a.Location.TempleID,
		Zone:      a.Location.Zone,
		RaisedAt:  a.Timestamp.UTC().Format(time.RFC3339),
		OwnerRole: string(access.OwnerRole(a.Type)),
	}
}

// TempleUpdated and AlertRaised make Ops the engine's sink: changes the
// engine applies are persisted and, for alerts, mirrored to the broker.
// The engine has already stored and fanned out the entity.

func (o *Ops) TempleUpdated(t model.Temple) {
	o.saveAsync(store.KindTemple, t.ID, t)
}

func (o *Ops) AlertRaised(a model.Alert) {
	o.saveAsync(store.KindAlert, a.ID, a)
	if o.events != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := o.events.AlertRaised(ctx, alertEvent(a)); err != nil {
				log.Printf("service: alert.raised publish failed for %s: %v", a.ID, err)
			}
		}()
	}
}

// Subscribe registers a consumer on one entity kind's change feed and
// returns the role-filtered snapshot taken at subscribe time.  Events
// already covered by the snapshot may still be delivered (at-least-once);
// consumers key on entity id and sequence.
func (o *Ops) Subscribe(kind store.Kind, role model.Role, subjectUserID string) (any, *fanout.Subscription, error) {
	if !role.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	switch kind {
	case store.KindTemple:
		sub := o.TempleFeed.Subscribe(nil)
		return o.Temples.List(), sub, nil
	case store.KindBooking:
		sub := o.BookingFeed.Subscribe(func(ev fanout.Event) bool {
			b, ok := ev.NewValue.(model.Booking)
			return ok && access.BookingVisible(role, b, subjectUserID)
		})
		return access.VisibleBookings(role, o.Bookings.List(nil), subjectUserID), sub, nil
	case store.KindAlert:
		sub := o.AlertFeed.Subscribe(func(ev fanout.Event) bool {
			a, ok := ev.NewValue.(model.Alert)
			return ok && access.AlertVisible(role, a)
		})
		return access.VisibleAlerts(role, o.Alerts.List(nil)), sub, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown stream kind %q", model.ErrValidation, kind)
	}
}
