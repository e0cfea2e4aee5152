package mapview

import (
	"math"
	"sort"
	"sync"

	"github.com/paulmach/orb"
)

// Marker is a rendered point of interest. The Tag carries the host row id
// and is the only link between a marker and its owning record; it is used
// solely to route interaction events back to the right row.
type Marker struct {
	Tag       int64   `json:"tag"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Popup     string  `json:"popup,omitempty"`
	Draggable bool    `json:"draggable"`
}

// Point returns the marker position as an orb point (lng, lat order).
func (m Marker) Point() orb.Point {
	return orb.Point{m.Lng, m.Lat}
}

// MarkerLayer holds the current marker set keyed by tag. It is rebuilt from
// scratch on every host record push; markers carry no lifecycle of their own.
type MarkerLayer struct {
	mu      sync.RWMutex
	markers map[int64]Marker
}

// NewMarkerLayer creates an empty marker layer.
func NewMarkerLayer() *MarkerLayer {
	return &MarkerLayer{
		markers: make(map[int64]Marker),
	}
}

// Clear removes every marker. Clear followed by any number of Add calls
// leaves the layer containing exactly the added markers.
func (l *MarkerLayer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = make(map[int64]Marker)
}

// Add places a marker. Markers with a non-finite coordinate are rejected
// before creation: Add returns false and the layer is unchanged.
func (l *MarkerLayer) Add(m Marker) bool {
	if !FiniteCoords(m.Lat, m.Lng) {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers[m.Tag] = m
	return true
}

// Replace swaps the layer's entire contents for the given markers in one
// step, so a concurrent reader never observes a partially rebuilt set.
// Markers with a non-finite coordinate are skipped. Returns the number of
// markers the layer now holds.
func (l *MarkerLayer) Replace(markers []Marker) int {
	next := make(map[int64]Marker, len(markers))
	for _, m := range markers {
		if !FiniteCoords(m.Lat, m.Lng) {
			continue
		}
		next[m.Tag] = m
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = next
	return len(next)
}

// Move updates a marker's position. It is a no-op returning false when the
// tag is unknown (e.g. the marker was removed by an intervening rebuild) or
// the new coordinate is not finite.
func (l *MarkerLayer) Move(tag int64, lat, lng float64) bool {
	if !FiniteCoords(lat, lng) {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.markers[tag]
	if !ok {
		return false
	}
	m.Lat = lat
	m.Lng = lng
	l.markers[tag] = m
	return true
}

// Get returns the marker for a tag, if present.
func (l *MarkerLayer) Get(tag int64) (Marker, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.markers[tag]
	return m, ok
}

// Len returns the number of markers in the layer.
func (l *MarkerLayer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.markers)
}

// Snapshot returns the markers ordered by tag for stable wire output.
func (l *MarkerLayer) Snapshot() []Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Marker, 0, len(l.markers))
	for _, m := range l.markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Bounds returns the bounding box of the marker set, or nil when empty.
func (l *MarkerLayer) Bounds() *Bounds {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var bound orb.Bound
	first := true
	for _, m := range l.markers {
		if first {
			bound = orb.Bound{Min: m.Point(), Max: m.Point()}
			first = false
			continue
		}
		bound = bound.Extend(m.Point())
	}
	if first {
		return nil
	}

	return &Bounds{
		MinLat: bound.Min.Y(),
		MinLng: bound.Min.X(),
		MaxLat: bound.Max.Y(),
		MaxLng: bound.Max.X(),
	}
}

// FiniteCoords reports whether both coordinates are finite numbers.
func FiniteCoords(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsInf(lat, 0) &&
		!math.IsNaN(lng) && !math.IsInf(lng, 0)
}
