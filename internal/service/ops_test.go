package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/divyaflow/temple-ops/internal/access"
	"github.com/divyaflow/temple-ops/internal/lifecycle"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/queue"
	"github.com/divyaflow/temple-ops/internal/store"
)

var testDay = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

// newTestOps returns an Ops seeded with one open temple and one slot with
// the given load.
func newTestOps(t *testing.T, slotBooked int) *Ops {
	t.Helper()
	ops := New(nil, nil)
	err := ops.Temples.Upsert(model.Temple{
		ID:              "temple-1",
		Name:            "Somnath Temple",
		OperatingStatus: model.TempleOpen,
		Capacity:        model.Capacity{Max: 5000, Current: 1200, VIPReserved: 200},
		Pricing:         model.Pricing{General: 0, VIP: 500, Senior: 0},
	})
	if err != nil {
		t.Fatalf("seed temple: %v", err)
	}
	err = ops.Slots.Upsert(model.Slot{
		ID:             "slot-1",
		TempleID:       "temple-1",
		Date:           testDay,
		StartTime:      "10:00",
		EndTime:        "10:30",
		CapacityMax:    100,
		CapacityBooked: slotBooked,
	})
	if err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return ops
}

func mustBook(t *testing.T, ops *Ops, user string, party int) model.Booking {
	t.Helper()
	b, err := ops.CreateBooking(context.Background(), BookingParams{
		SubjectUserID: user,
		TempleID:      "temple-1",
		SlotID:        "slot-1",
		PartySize:     party,
		Category:      model.CategoryGeneral,
	}, testDay.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

func TestCreateBookingFillsSlot(t *testing.T) {
	ops := newTestOps(t, 98)

	b := mustBook(t, ops, "user-1", 2) // exactly fills the slot
	if b.Status != model.BookingConfirmed {
		t.Errorf("status = %s, want confirmed", b.Status)
	}
	if b.BookingNumber == "" || b.QRToken == "" {
		t.Errorf("booking must carry number and QR token, got %+v", b)
	}

	slot, _ := ops.Slots.Get("slot-1")
	if slot.CapacityBooked != 100 {
		t.Fatalf("slot booked = %d, want 100", slot.CapacityBooked)
	}
}

func TestCreateBookingCapacityExhausted(t *testing.T) {
	ops := newTestOps(t, 99)

	_, err := ops.CreateBooking(context.Background(), BookingParams{
		SubjectUserID: "user-1",
		TempleID:      "temple-1",
		SlotID:        "slot-1",
		PartySize:     2,
		Category:      model.CategoryGeneral,
	}, testDay.Add(-24*time.Hour))
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("got %v, want ErrCapacity", err)
	}

	// The failed request must leave no trace: slot untouched, no booking.
	slot, _ := ops.Slots.Get("slot-1")
	if slot.CapacityBooked != 99 {
		t.Errorf("slot booked = %d, want unchanged 99", slot.CapacityBooked)
	}
	if n := len(ops.Bookings.List(nil)); n != 0 {
		t.Errorf("found %d bookings after failed create, want 0", n)
	}
}

func TestCreateBookingConcurrentNeverOversells(t *testing.T) {
	ops := newTestOps(t, 0)

	const workers = 50 // 50 workers x 3 places > 100 capacity
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ops.CreateBooking(context.Background(), BookingParams{
				SubjectUserID: "user-1",
				TempleID:      "temple-1",
				SlotID:        "slot-1",
				PartySize:     3,
				Category:      model.CategoryGeneral,
			}, testDay.Add(-24*time.Hour))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrCapacity) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	slot, _ := ops.Slots.Get("slot-1")
	if slot.CapacityBooked > slot.CapacityMax {
		t.Fatalf("slot oversold: %d/%d", slot.CapacityBooked, slot.CapacityMax)
	}
	if slot.CapacityBooked != succeeded*3 {
		t.Fatalf("booked %d places for %d successful bookings", slot.CapacityBooked, succeeded)
	}
}

func TestCreateBookingClosedTemple(t *testing.T) {
	ops := newTestOps(t, 0)
	if _, err := ops.SetTempleStatus(model.RoleAdmin, "temple-1", model.TempleClosed); err != nil {
		t.Fatalf("SetTempleStatus: %v", err)
	}
	_, err := ops.CreateBooking(context.Background(), BookingParams{
		SubjectUserID: "user-1",
		TempleID:      "temple-1",
		SlotID:        "slot-1",
		PartySize:     1,
		Category:      model.CategoryGeneral,
	}, testDay.Add(-24*time.Hour))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("booking a closed temple: got %v, want ErrConflict", err)
	}
}

func TestCreateBookingVIPPricing(t *testing.T) {
	ops := newTestOps(t, 0)
	b, err := ops.CreateBooking(context.Background(), BookingParams{
		SubjectUserID: "user-1",
		TempleID:      "temple-1",
		SlotID:        "slot-1",
		PartySize:     2,
		Category:      model.CategoryVIP,
	}, testDay.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.Amount != 500 {
		t.Fatalf("vip amount = %d, want 500", b.Amount)
	}
}

func TestCancelReleasesCapacity(t *testing.T) {
	ops := newTestOps(t, 50)
	b := mustBook(t, ops, "user-1", 4)

	now := testDay.Add(-time.Hour) // before the slot opens
	got, err := ops.TransitionBooking(model.RoleDevotee, "user-1", b.ID, model.BookingCancelled, now)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.BookingCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	slot, _ := ops.Slots.Get("slot-1")
	if slot.CapacityBooked != 50 {
		t.Fatalf("slot booked = %d, want 50 after release", slot.CapacityBooked)
	}
}

func TestDevoteeCannotCancelOthersBooking(t *testing.T) {
	ops := newTestOps(t, 0)
	b := mustBook(t, ops, "user-1", 1)

	_, err := ops.TransitionBooking(model.RoleDevotee, "user-2", b.ID, model.BookingCancelled, testDay.Add(-time.Hour))
	if !errors.Is(err, access.ErrPermission) {
		t.Fatalf("got %v, want ErrPermission", err)
	}
	after, _ := ops.Bookings.Get(b.ID)
	if after.Status != model.BookingConfirmed {
		t.Fatalf("booking must be untouched, status = %s", after.Status)
	}
}

func TestCheckInSetsTimestamp(t *testing.T) {
	ops := newTestOps(t, 0)
	b := mustBook(t, ops, "user-1", 1)

	now := testDay.Add(10 * time.Hour)
	got, err := ops.TransitionBooking(model.RoleSecurity, "", b.ID, model.BookingCheckedIn, now)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if got.CheckInTime == nil || !got.CheckInTime.Equal(now) {
		t.Fatalf("check-in time = %v, want %v", got.CheckInTime, now)
	}
}

func TestDeleteSlot(t *testing.T) {
	ops := newTestOps(t, 0)
	err := ops.Slots.Upsert(model.Slot{
		ID:          "slot-2",
		TempleID:    "temple-1",
		Date:        testDay,
		StartTime:   "11:00",
		EndTime:     "11:30",
		CapacityMax: 100,
	})
	if err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	if err := ops.DeleteSlot(model.RoleSecurity, "temple-1", "slot-2"); !errors.Is(err, access.ErrPermission) {
		t.Fatalf("non-admin delete: got %v, want ErrPermission", err)
	}
	if err := ops.DeleteSlot(model.RoleAdmin, "temple-9", "slot-2"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("wrong temple: got %v, want ErrValidation", err)
	}

	mustBook(t, ops, "user-1", 1)
	if err := ops.DeleteSlot(model.RoleAdmin, "temple-1", "slot-1"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("delete of booked slot: got %v, want ErrConflict", err)
	}

	if err := ops.DeleteSlot(model.RoleAdmin, "temple-1", "slot-2"); err != nil {
		t.Fatalf("delete empty slot: %v", err)
	}
	if _, err := ops.Slots.Get("slot-2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("slot still present after delete: %v", err)
	}
}

func TestDevoteeChecksInOwnBooking(t *testing.T) {
	ops := newTestOps(t, 0)
	b := mustBook(t, ops, "user-1", 1)

	now := testDay.Add(10 * time.Hour)
	if _, err := ops.TransitionBooking(model.RoleDevotee, "user-2", b.ID, model.BookingCheckedIn, now); !errors.Is(err, access.ErrPermission) {
		t.Fatalf("check-in of another's booking: got %v, want ErrPermission", err)
	}
	got, err := ops.TransitionBooking(model.RoleDevotee, "user-1", b.ID, model.BookingCheckedIn, now)
	if err != nil {
		t.Fatalf("self check-in: %v", err)
	}
	if got.Status != model.BookingCheckedIn || got.CheckInTime == nil {
		t.Fatalf("status = %s, check-in time = %v", got.Status, got.CheckInTime)
	}
}

func TestTransitionBookingTerminalIsInvalid(t *testing.T) {
	ops := newTestOps(t, 0)
	b := mustBook(t, ops, "user-1", 1)
	if _, err := ops.TransitionBooking(model.RoleAdmin, "", b.ID, model.BookingCancelled, testDay.Add(-time.Hour)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := ops.TransitionBooking(model.RoleAdmin, "", b.ID, model.BookingCheckedIn, testDay.Add(-time.Hour))
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("transition out of cancelled: got %v, want ErrInvalidTransition", err)
	}
}

func seedAlert(t *testing.T, ops *Ops, status model.AlertStatus) model.Alert {
	t.Helper()
	a := model.Alert{
		ID:        "alert-1",
		Type:      model.AlertSecurityBreach,
		Severity:  model.SeverityHigh,
		Title:     "Unauthorised entry detected",
		Location:  model.AlertLocation{TempleID: "temple-1", Zone: "Entrance"},
		Timestamp: testDay,
		Status:    status,
	}
	if status == model.AlertResolved {
		ts := testDay.Add(time.Hour)
		a.ResolvedAt = &ts
	}
	if err := ops.Alerts.Upsert(a); err != nil {
		t.Fatalf("seed alert: %v", err)
	}
	return a
}

func TestTransitionAlertRecordsActionAndResolvedAt(t *testing.T) {
	ops := newTestOps(t, 0)
	seedAlert(t, ops, model.AlertActive)

	now := testDay.Add(time.Hour)
	a, err := ops.TransitionAlert(model.RoleSecurity, "officer-7", "alert-1", model.AlertAcknowledged, now)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if a.AssignedToRole != model.RoleSecurity {
		t.Errorf("assigned role = %s, want security", a.AssignedToRole)
	}
	if len(a.Actions) != 1 || a.Actions[0].Actor != "officer-7" {
		t.Errorf("action log = %+v", a.Actions)
	}

	a, err = ops.TransitionAlert(model.RoleSecurity, "officer-7", "alert-1", model.AlertResolved, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.ResolvedAt == nil {
		t.Fatal("resolved alert must carry ResolvedAt")
	}
	if len(a.Actions) != 2 {
		t.Fatalf("action log has %d entries, want 2", len(a.Actions))
	}
}

// Permission is checked before legality: a role without authority over
// the alert type gets a permission error even when the transition itself
// would also be illegal.
func TestTransitionAlertPermissionBeforeLegality(t *testing.T) {
	ops := newTestOps(t, 0)
	seedAlert(t, ops, model.AlertResolved)

	_, err := ops.TransitionAlert(model.RoleTraffic, "op-1", "alert-1", model.AlertResolved, testDay)
	if !errors.Is(err, access.ErrPermission) {
		t.Fatalf("traffic on security alert: got %v, want ErrPermission", err)
	}

	_, err = ops.TransitionAlert(model.RoleSecurity, "op-1", "alert-1", model.AlertResolved, testDay)
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("owner on resolved alert: got %v, want ErrInvalidTransition", err)
	}
}

func TestReportAlert(t *testing.T) {
	ops := newTestOps(t, 0)

	_, err := ops.ReportAlert(context.Background(), model.RoleDevotee, "user-1", AlertParams{
		Type:     model.AlertFire,
		Severity: model.SeverityCritical,
		Title:    "Smoke near kitchen",
	}, testDay)
	if !errors.Is(err, access.ErrPermission) {
		t.Fatalf("devotee report: got %v, want ErrPermission", err)
	}

	a, err := ops.ReportAlert(context.Background(), model.RoleSecurity, "officer-7", AlertParams{
		Type:     model.AlertFire,
		Severity: model.SeverityCritical,
		Title:    "Smoke near kitchen",
		TempleID: "temple-1",
		Zone:     "Main Hall",
	}, testDay)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if a.Status != model.AlertActive {
		t.Errorf("reported alert status = %s, want active", a.Status)
	}
	if len(a.Actions) != 1 || a.Actions[0].Action != "reported" {
		t.Errorf("action log = %+v", a.Actions)
	}
}

func TestListAlertsRoleFiltered(t *testing.T) {
	ops := newTestOps(t, 0)
	seedAlert(t, ops, model.AlertActive) // security breach, high severity

	devotee, err := ops.ListAlerts(model.RoleDevotee)
	if err != nil {
		t.Fatalf("ListAlerts devotee: %v", err)
	}
	if len(devotee) != 0 {
		t.Fatalf("devotee sees %d alerts, want 0", len(devotee))
	}

	medical, err := ops.ListAlerts(model.RoleMedical)
	if err != nil {
		t.Fatalf("ListAlerts medical: %v", err)
	}
	if len(medical) != 0 {
		t.Fatalf("medical sees %d security alerts, want 0", len(medical))
	}

	security, err := ops.ListAlerts(model.RoleSecurity)
	if err != nil {
		t.Fatalf("ListAlerts security: %v", err)
	}
	if len(security) != 1 {
		t.Fatalf("security sees %d alerts, want 1", len(security))
	}
}

func TestSetTempleStatusRequiresAdmin(t *testing.T) {
	ops := newTestOps(t, 0)
	for _, role := range []model.Role{model.RoleDevotee, model.RoleSecurity, model.RoleControlRoom} {
		if _, err := ops.SetTempleStatus(role, "temple-1", model.TempleMaintenance); !errors.Is(err, access.ErrPermission) {
			t.Errorf("%s: got %v, want ErrPermission", role, err)
		}
	}
	got, err := ops.SetTempleStatus(model.RoleAdmin, "temple-1", model.TempleMaintenance)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if got.OperatingStatus != model.TempleMaintenance {
		t.Fatalf("status = %s, want maintenance", got.OperatingStatus)
	}
}

func TestSubscribeTempleSnapshotAndStream(t *testing.T) {
	ops := newTestOps(t, 0)
	snap, sub, err := ops.Subscribe(store.KindTemple, model.RoleDevotee, "user-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	temples, ok := snap.([]model.Temple)
	if !ok || len(temples) != 1 {
		t.Fatalf("snapshot = %#v, want one temple", snap)
	}

	if _, err := ops.SetTempleStatus(model.RoleAdmin, "temple-1", model.TempleClosed); err != nil {
		t.Fatalf("SetTempleStatus: %v", err)
	}
	select {
	case ev := <-sub.Events():
		updated, ok := ev.NewValue.(model.Temple)
		if !ok || updated.OperatingStatus != model.TempleClosed {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change event after temple status update")
	}
}

func TestSubscribeAlertsFiltersByRole(t *testing.T) {
	ops := newTestOps(t, 0)
	snap, sub, err := ops.Subscribe(store.KindAlert, model.RoleMedical, "med-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	if alerts := snap.([]model.Alert); len(alerts) != 0 {
		t.Fatalf("snapshot has %d alerts, want 0", len(alerts))
	}

	// A security alert never reaches the medical stream; a medical one does.
	if _, err := ops.ReportAlert(context.Background(), model.RoleSecurity, "op", AlertParams{
		Type: model.AlertSecurityBreach, Severity: model.SeverityLow, Title: "gate forced",
	}, testDay); err != nil {
		t.Fatalf("report security: %v", err)
	}
	if _, err := ops.ReportAlert(context.Background(), model.RoleMedical, "op", AlertParams{
		Type: model.AlertMedicalEmergency, Severity: model.SeverityLow, Title: "help point",
	}, testDay); err != nil {
		t.Fatalf("report medical: %v", err)
	}

	select {
	case ev := <-sub.Events():
		a, ok := ev.NewValue.(model.Alert)
		if !ok || a.Type != model.AlertMedicalEmergency {
			t.Fatalf("medical stream delivered %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event on medical stream")
	}
}

func TestSubscribeBookingsScopedToSubject(t *testing.T) {
	ops := newTestOps(t, 0)
	mustBook(t, ops, "user-1", 1)
	mustBook(t, ops, "user-2", 1)

	snap, sub, err := ops.Subscribe(store.KindBooking, model.RoleDevotee, "user-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	bookings := snap.([]model.Booking)
	if len(bookings) != 1 || bookings[0].SubjectUserID != "user-1" {
		t.Fatalf("snapshot = %+v, want only user-1's booking", bookings)
	}

	// Another user's new booking must not reach this stream.
	mustBook(t, ops, "user-2", 1)
	b := mustBook(t, ops, "user-1", 1)
	select {
	case ev := <-sub.Events():
		got, ok := ev.NewValue.(model.Booking)
		if !ok || got.ID != b.ID {
			t.Fatalf("stream delivered %+v, want %s", ev, b.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event for own booking")
	}
}

func TestSubscribeUnknownKind(t *testing.T) {
	ops := newTestOps(t, 0)
	if _, _, err := ops.Subscribe(store.Kind("seat"), model.RoleAdmin, ""); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

// events stub proving the broker mirror is invoked without a live broker.
type recordedEvents struct {
	mu       sync.Mutex
	alerts   []queue.AlertRaisedEvent
	bookings []queue.BookingConfirmedEvent
}

func (r *recordedEvents) AlertRaised(_ context.Context, ev queue.AlertRaisedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, ev)
	return nil
}

func (r *recordedEvents) BookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = append(r.bookings, ev)
	return nil
}

func TestEventsMirroredToBroker(t *testing.T) {
	rec := &recordedEvents{}
	ops := New(nil, rec)
	if err := ops.Temples.Upsert(model.Temple{
		ID:              "temple-1",
		Name:            "Somnath Temple",
		OperatingStatus: model.TempleOpen,
		Capacity:        model.Capacity{Max: 5000, Current: 100},
	}); err != nil {
		t.Fatalf("seed temple: %v", err)
	}
	if err := ops.Slots.Upsert(model.Slot{
		ID: "slot-1", TempleID: "temple-1", Date: testDay,
		StartTime: "10:00", EndTime: "10:30", CapacityMax: 100,
	}); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	b := mustBook(t, ops, "user-1", 2)
	if _, err := ops.ReportAlert(context.Background(), model.RoleSecurity, "op", AlertParams{
		Type: model.AlertSecurityBreach, Severity: model.SeverityHigh, Title: "gate forced",
	}, testDay); err != nil {
		t.Fatalf("report: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.bookings) != 1 || rec.bookings[0].BookingNumber != b.BookingNumber {
		t.Fatalf("booking events = %+v", rec.bookings)
	}
	if len(rec.alerts) != 1 || rec.alerts[0].OwnerRole != string(model.RoleSecurity) {
		t.Fatalf("alert events = %+v", rec.alerts)
	}
}
