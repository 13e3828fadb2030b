package store

import (
	"sort"
	"sync"
)

// collection is the shared implementation behind the typed per-kind
// stores.  It keeps entities in a map keyed by id and exposes them in
// ascending id order so that listings are deterministic.  The validate
// hook runs under the write lock before any value is accepted, which
// keeps invariant checking on every mutation path.
type collection[T any] struct {
	mu       sync.RWMutex
	items    map[string]T
	idOf     func(T) string
	validate func(T) error
}

func newCollection[T any](idOf func(T) string, validate func(T) error) *collection[T] {
	return &collection[T]{
		items:    make(map[string]T),
		idOf:     idOf,
		validate: validate,
	}
}

// get returns the entity with the given id, or ErrNotFound.
func (c *collection[T]) get(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return v, nil
}

// list returns every entity matching the predicate in ascending id order.
// A nil predicate matches everything.
func (c *collection[T]) list(match func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v := c.items[id]
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	return out
}

// upsert validates v and replaces any existing entity with the same id.
func (c *collection[T]) upsert(v T) error {
	if err := c.validate(v); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[c.idOf(v)] = v
	return nil
}

// mutate applies fn to the entity with the given id under the write lock
// and validates the result before storing it.  fn may return an error to
// veto the mutation (capacity exhausted, illegal transition); that error
// is returned unchanged and the stored value is left untouched.  The
// updated entity is returned on success.
func (c *collection[T]) mutate(id string, fn func(*T) error) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	if !ok {
		return zero, ErrNotFound
	}
	if err := fn(&v); err != nil {
		return zero, err
	}
	if err := c.validate(v); err != nil {
		return zero, err
	}
	c.items[id] = v
	return v, nil
}

// remove deletes the entity with the given id.  The guard, when non-nil,
// runs under the lock and may veto the delete by returning an error
// (typically ErrConflict for terminal or still-referenced entities).
func (c *collection[T]) remove(id string, guard func(T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	if !ok {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(v); err != nil {
			return err
		}
	}
	delete(c.items, id)
	return nil
}

// size returns the number of stored entities.
func (c *collection[T]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
