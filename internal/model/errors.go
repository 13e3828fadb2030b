// Package model defines the stateful record kinds managed by the core
// (Temple, Slot, Booking, Alert) together with their enumerations and
// invariant checks.  Entities are plain structs; every mutation path goes
// through the store package, which calls Validate before accepting a value.
package model

import "errors"

// ErrValidation is returned (wrapped) when an entity value violates one of
// its invariants, e.g. a booking with partySize < 1 or a temple whose
// current occupancy exceeds its maximum.  Handlers translate it into an
// HTTP 400 response.  Callers must correct the input; retrying the same
// value can never succeed.
var ErrValidation = errors.New("validation failed")
