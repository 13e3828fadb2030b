package model

import "fmt"

// OperatingStatus describes whether a temple is admitting devotees.
type OperatingStatus string

const (
	TempleOpen        OperatingStatus = "open"
	TempleClosed      OperatingStatus = "closed"
	TempleMaintenance OperatingStatus = "maintenance"
)

// Valid reports whether s is a recognised operating status.
func (s OperatingStatus) Valid() bool {
	switch s {
	case TempleOpen, TempleClosed, TempleMaintenance:
		return true
	}
	return false
}

// Location places a temple on the map.
type Location struct {
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Capacity tracks how full a temple is.  Current is the live occupancy
// mutated by the engine; VIPReserved is carved out of Max for VIP darshan.
type Capacity struct {
	Max         int `json:"max"`
	Current     int `json:"current"`
	VIPReserved int `json:"vipReserved"`
}

// Pricing holds darshan prices in rupees per booking category.
type Pricing struct {
	General int `json:"general"`
	VIP     int `json:"vip"`
	Senior  int `json:"senior"`
}

// Timings are the daily opening hours in "HH:MM" form.
type Timings struct {
	Opening string `json:"opening"`
	Closing string `json:"closing"`
}

// Temple is a managed shrine.  Temples are seeded at startup and never
// deleted during a session; the engine periodically perturbs
// Capacity.Current within [0, Capacity.Max].
type Temple struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Location        Location        `json:"location"`
	Capacity        Capacity        `json:"capacity"`
	Timings         Timings         `json:"timings"`
	Pricing         Pricing         `json:"pricing"`
	OperatingStatus OperatingStatus `json:"operatingStatus"`
}

// Validate checks the temple invariants: a positive maximum capacity, a
// current occupancy inside [0, max], a VIP reserve that fits in the
// maximum, and a recognised operating status.
func (t Temple) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: temple id is empty", ErrValidation)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: temple %s has no name", ErrValidation, t.ID)
	}
	if t.Capacity.Max <= 0 {
		return fmt.Errorf("%w: temple %s max capacity must be positive", ErrValidation, t.ID)
	}
	if t.Capacity.Current < 0 || t.Capacity.Current > t.Capacity.Max {
		return fmt.Errorf("%w: temple %s occupancy %d outside [0,%d]",
			ErrValidation, t.ID, t.Capacity.Current, t.Capacity.Max)
	}
	if t.Capacity.VIPReserved < 0 || t.Capacity.VIPReserved > t.Capacity.Max {
		return fmt.Errorf("%w: temple %s vip reserve %d outside [0,%d]",
			ErrValidation, t.ID, t.Capacity.VIPReserved, t.Capacity.Max)
	}
	if !t.OperatingStatus.Valid() {
		return fmt.Errorf("%w: temple %s has unknown operating status %q",
			ErrValidation, t.ID, t.OperatingStatus)
	}
	return nil
}
