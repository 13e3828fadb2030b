package model

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a booking.  Legal transitions
// are enforced by the lifecycle package; completed, cancelled and no-show
// are terminal.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked-in"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no-show"
)

// Valid reports whether s is a recognised booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn,
		BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transition.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// BookingCategory selects the darshan queue and pricing tier.
type BookingCategory string

const (
	CategoryGeneral BookingCategory = "general"
	CategoryVIP     BookingCategory = "vip"
	CategorySenior  BookingCategory = "senior"
)

// Valid reports whether c is a recognised category.
func (c BookingCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryVIP, CategorySenior:
		return true
	}
	return false
}

// SlotInfo is the slice of the slot captured on the booking at creation
// time.  The authoritative, mutable counters live on the Slot record; the
// copy here lets a booking be displayed without a second lookup.
type SlotInfo struct {
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	CapacityMax    int    `json:"capacityMax"`
	CapacityBooked int    `json:"capacityBooked"`
}

// Booking is a devotee's reservation of darshan places in a slot.
type Booking struct {
	ID            string          `json:"id"`
	BookingNumber string          `json:"bookingNumber"`
	SubjectUserID string          `json:"subjectUserId"`
	TempleID      string          `json:"templeId"`
	SlotID        string          `json:"slotId"`
	Date          time.Time       `json:"date"`
	Slot          SlotInfo        `json:"slot"`
	PartySize     int             `json:"partySize"`
	Category      BookingCategory `json:"category"`
	Amount        int             `json:"amount"`
	Status        BookingStatus   `json:"status"`
	QRToken       string          `json:"qrToken"`
	CheckInTime   *time.Time      `json:"checkInTime,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// SlotStart resolves the instant the booked slot opens.
func (b Booking) SlotStart() time.Time {
	return combineClock(b.Date, b.Slot.StartTime)
}

// SlotEnd resolves the instant the booked slot closes.
func (b Booking) SlotEnd() time.Time {
	return combineClock(b.Date, b.Slot.EndTime)
}

// Validate checks the booking invariants.
func (b Booking) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: booking id is empty", ErrValidation)
	}
	if b.SubjectUserID == "" {
		return fmt.Errorf("%w: booking %s has no subject user", ErrValidation, b.ID)
	}
	if b.TempleID == "" {
		return fmt.Errorf("%w: booking %s has no temple", ErrValidation, b.ID)
	}
	if b.PartySize < 1 {
		return fmt.Errorf("%w: booking %s party size %d must be at least 1",
			ErrValidation, b.ID, b.PartySize)
	}
	if !b.Category.Valid() {
		return fmt.Errorf("%w: booking %s has unknown category %q", ErrValidation, b.ID, b.Category)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: booking %s has unknown status %q", ErrValidation, b.ID, b.Status)
	}
	if b.Slot.CapacityMax > 0 && b.Slot.CapacityBooked > b.Slot.CapacityMax {
		return fmt.Errorf("%w: booking %s slot booked %d exceeds max %d",
			ErrValidation, b.ID, b.Slot.CapacityBooked, b.Slot.CapacityMax)
	}
	if b.Amount < 0 {
		return fmt.Errorf("%w: booking %s amount is negative", ErrValidation, b.ID)
	}
	return nil
}
