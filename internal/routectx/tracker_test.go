package routectx

import (
	"testing"

	"map_widget_backend/internal/refval"
)

func TestTrackerStartsEmpty(t *testing.T) {
	tracker := New()
	if _, ok := tracker.Active(); ok {
		t.Fatal("expected no active route context initially")
	}
}

func TestSetAndRead(t *testing.T) {
	tracker := New()
	tracker.Set(refval.NumericRef(7))

	ref, ok := tracker.Active()
	if !ok {
		t.Fatal("expected active route context")
	}
	if ref.Value() != float64(7) {
		t.Fatalf("expected 7, got %v", ref.Value())
	}
}

// Storing an unresolved reference clears the context: selecting a row whose
// route column cannot be normalized must not leave a stale route active.
func TestUnresolvedOverwriteClears(t *testing.T) {
	tracker := New()
	tracker.Set(refval.NumericRef(7))
	tracker.Set(refval.Ref{})

	if _, ok := tracker.Active(); ok {
		t.Fatal("expected unresolved overwrite to clear the context")
	}
}
