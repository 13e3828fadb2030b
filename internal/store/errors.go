// Package store holds the authoritative in-process snapshots of every
// entity kind.  Each kind owns a mutex-guarded map keyed by id; all reads
// and writes from the mutation engine and from user-triggered actions
// serialize through it, so no two mutations to the same entity are ever
// applied out of order.  The store itself notifies nobody — change fanout
// is layered on top by the fanout package.
package store

import "errors"

// ErrNotFound is returned when no entity with the requested id exists.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete or update cannot proceed because
// of the entity's current state, such as deleting a booking that has
// already reached a terminal status or a slot that bookings still
// reference.  Callers should re-fetch and reassess; handlers translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
