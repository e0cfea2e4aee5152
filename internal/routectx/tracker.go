// Package routectx tracks the active route context: the canonical route
// reference of the most recently selected point of interest. New points are
// stamped with this reference at creation time.
package routectx

import (
	"sync"

	"map_widget_backend/internal/refval"
)

// Tracker is a single mutable slot holding the last canonical route
// reference. It is written by the synchronizer's selection-change handler
// and read by the map-click creation handler.
//
// A selection carrying a record always overwrites the slot, including with
// an unresolved reference (which clears the context). A deselection, with no
// record at all, leaves the slot untouched, so the user can deselect a row
// and still place new points on the route they were last working with.
type Tracker struct {
	mu  sync.RWMutex
	ref refval.Ref
}

// New creates a tracker with no active route context.
func New() *Tracker {
	return &Tracker{}
}

// Set overwrites the slot with the given reference. Storing an unresolved
// reference clears the active context.
func (t *Tracker) Set(ref refval.Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ref = ref
}

// Active returns the current route reference and whether one is resolved.
func (t *Tracker) Active() (refval.Ref, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ref, t.ref.IsResolved()
}
