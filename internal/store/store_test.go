package store

import (
	"errors"
	"testing"
	"time"

	"github.com/divyaflow/temple-ops/internal/model"
)

func testTemple(id string, current int) model.Temple {
	return model.Temple{
		ID:              id,
		Name:            "Temple " + id,
		OperatingStatus: model.TempleOpen,
		Capacity:        model.Capacity{Max: 1000, Current: current, VIPReserved: 50},
	}
}

func testSlot(id string, booked int) model.Slot {
	return model.Slot{
		ID:             id,
		TempleID:       "temple-1",
		Date:           time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		StartTime:      "06:00",
		EndTime:        "06:30",
		CapacityMax:    100,
		CapacityBooked: booked,
	}
}

func testBooking(id string, status model.BookingStatus) model.Booking {
	return model.Booking{
		ID:            id,
		BookingNumber: "BK-20260831-0001",
		SubjectUserID: "user-1",
		TempleID:      "temple-1",
		SlotID:        "slot-1",
		PartySize:     2,
		Category:      model.CategoryGeneral,
		Status:        status,
	}
}

func TestTempleStoreGetMissing(t *testing.T) {
	s := NewTempleStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: got %v, want ErrNotFound", err)
	}
}

func TestTempleStoreUpsertRejectsInvalid(t *testing.T) {
	s := NewTempleStore()
	bad := testTemple("temple-1", 2000) // current above max
	if err := s.Upsert(bad); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("Upsert invalid temple: got %v, want ErrValidation", err)
	}
	if s.Len() != 0 {
		t.Fatalf("store should stay empty after rejected upsert, has %d", s.Len())
	}
}

func TestTempleStoreListOrder(t *testing.T) {
	s := NewTempleStore()
	for _, id := range []string{"temple-3", "temple-1", "temple-2"} {
		if err := s.Upsert(testTemple(id, 10)); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	got := s.List()
	want := []string{"temple-1", "temple-2", "temple-3"}
	if len(got) != len(want) {
		t.Fatalf("List returned %d temples, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("List[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestTempleStoreMutateValidatesResult(t *testing.T) {
	s := NewTempleStore()
	if err := s.Upsert(testTemple("temple-1", 10)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	_, err := s.Mutate("temple-1", func(tm *model.Temple) error {
		tm.Capacity.Current = -5
		return nil
	})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("Mutate to invalid state: got %v, want ErrValidation", err)
	}
	after, err := s.Get("temple-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Capacity.Current != 10 {
		t.Fatalf("failed mutate must not change the stored value, got current=%d", after.Capacity.Current)
	}
}

func TestSlotStoreMutateVeto(t *testing.T) {
	s := NewSlotStore()
	if err := s.Upsert(testSlot("slot-1", 99)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	vetoErr := errors.New("not enough room")
	_, err := s.Mutate("slot-1", func(sl *model.Slot) error {
		if sl.CapacityMax-sl.CapacityBooked < 2 {
			return vetoErr
		}
		sl.CapacityBooked += 2
		return nil
	})
	if !errors.Is(err, vetoErr) {
		t.Fatalf("Mutate veto: got %v, want the veto error", err)
	}
	after, _ := s.Get("slot-1")
	if after.CapacityBooked != 99 {
		t.Fatalf("vetoed mutate must leave the slot untouched, got booked=%d", after.CapacityBooked)
	}
}

func TestSlotStoreDelete(t *testing.T) {
	s := NewSlotStore()
	if err := s.Upsert(testSlot("slot-1", 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Delete("slot-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("Delete slot with booked capacity: got %v, want ErrConflict", err)
	}
	if _, err := s.Mutate("slot-1", func(sl *model.Slot) error {
		sl.CapacityBooked = 0
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if err := s.Delete("slot-1"); err != nil {
		t.Fatalf("Delete empty slot: %v", err)
	}
	if _, err := s.Get("slot-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: got %v, want ErrNotFound", err)
	}
}

func TestBookingStoreDeleteTerminal(t *testing.T) {
	cases := []struct {
		status  model.BookingStatus
		wantErr bool
	}{
		{model.BookingPending, false},
		{model.BookingConfirmed, false},
		{model.BookingCheckedIn, false},
		{model.BookingCompleted, true},
		{model.BookingCancelled, true},
		{model.BookingNoShow, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			s := NewBookingStore()
			if err := s.Upsert(testBooking("booking-1", tc.status)); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
			err := s.Delete("booking-1")
			if tc.wantErr && !errors.Is(err, ErrConflict) {
				t.Fatalf("Delete %s booking: got %v, want ErrConflict", tc.status, err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Delete %s booking: %v", tc.status, err)
			}
		})
	}
}

func TestBookingStoreListFilter(t *testing.T) {
	s := NewBookingStore()
	for i, user := range []string{"user-1", "user-2", "user-1"} {
		b := testBooking("booking-"+string(rune('a'+i)), model.BookingConfirmed)
		b.SubjectUserID = user
		if err := s.Upsert(b); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	mine := s.List(func(b model.Booking) bool { return b.SubjectUserID == "user-1" })
	if len(mine) != 2 {
		t.Fatalf("filtered list returned %d bookings, want 2", len(mine))
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindTemple, KindSlot, KindBooking, KindAlert} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("cinema").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
