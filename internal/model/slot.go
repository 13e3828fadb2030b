package model

import (
	"fmt"
	"time"
)

// Slot is a bookable half-hour darshan window at a temple on a given day.
// Slots are the shared capacity record: booking creation decrements the
// remaining space atomically and cancellation releases it again.  Times
// are "HH:MM" strings in the temple's local day, matching the timings on
// the Temple record.
type Slot struct {
	ID             string    `json:"id"`
	TempleID       string    `json:"templeId"`
	Date           time.Time `json:"date"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	CapacityMax    int       `json:"capacityMax"`
	CapacityBooked int       `json:"capacityBooked"`
}

// Available returns the number of places still open in the slot.
func (s Slot) Available() int {
	return s.CapacityMax - s.CapacityBooked
}

// StartAt resolves the slot's opening instant by combining Date with
// StartTime.  A malformed StartTime yields the zero time.
func (s Slot) StartAt() time.Time {
	return combineClock(s.Date, s.StartTime)
}

// EndAt resolves the slot's closing instant.
func (s Slot) EndAt() time.Time {
	return combineClock(s.Date, s.EndTime)
}

func combineClock(day time.Time, clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

// Validate checks the slot invariants.
func (s Slot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: slot id is empty", ErrValidation)
	}
	if s.TempleID == "" {
		return fmt.Errorf("%w: slot %s has no temple", ErrValidation, s.ID)
	}
	if s.CapacityMax <= 0 {
		return fmt.Errorf("%w: slot %s max capacity must be positive", ErrValidation, s.ID)
	}
	if s.CapacityBooked < 0 || s.CapacityBooked > s.CapacityMax {
		return fmt.Errorf("%w: slot %s booked %d outside [0,%d]",
			ErrValidation, s.ID, s.CapacityBooked, s.CapacityMax)
	}
	return nil
}
