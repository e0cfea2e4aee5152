// Package mapview owns the server-side model of the map the browser widget
// renders: center, zoom, the tile layer, and the marker layer. Mutations
// emit view commands through a Sink; the renderer applies them verbatim.
package mapview

import (
	"sync"

	"map_widget_backend/platform/config"

	"github.com/paulmach/orb"
)

// View is the bridge's authoritative map state.
type View struct {
	mu     sync.Mutex
	center orb.Point
	zoom   int

	markerZoom int
	tiles      TileLayer

	markers *MarkerLayer
	sink    Sink
}

// New creates a view positioned at the configured initial center and zoom.
func New(cfg config.MapConfig, sink Sink) *View {
	return &View{
		center:     orb.Point{cfg.GetInitialLng(), cfg.GetInitialLat()},
		zoom:       cfg.GetInitialZoom(),
		markerZoom: cfg.GetMarkerZoom(),
		tiles: TileLayer{
			URLTemplate: cfg.GetTileURL(),
			MinZoom:     cfg.GetTileMinZoom(),
			MaxZoom:     cfg.GetTileMaxZoom(),
			Attribution: cfg.GetTileAttribution(),
		},
		markers: NewMarkerLayer(),
		sink:    sink,
	}
}

// Markers exposes the marker layer.
func (v *View) Markers() *MarkerLayer {
	return v.markers
}

// CenterOn positions the map without animation.
func (v *View) CenterOn(lat, lng float64) {
	if !FiniteCoords(lat, lng) {
		return
	}

	v.mu.Lock()
	v.center = orb.Point{lng, lat}
	zoom := v.zoom
	v.mu.Unlock()

	v.sink.Send(Command{Type: CommandSetView, Lat: lat, Lng: lng, Zoom: zoom})
}

// FlyTo animates the map to a position at the marker zoom level.
func (v *View) FlyTo(lat, lng float64) {
	if !FiniteCoords(lat, lng) {
		return
	}

	v.mu.Lock()
	v.center = orb.Point{lng, lat}
	v.zoom = v.markerZoom
	v.mu.Unlock()

	v.sink.Send(Command{Type: CommandFlyTo, Lat: lat, Lng: lng, Zoom: v.markerZoom})
}

// OpenPopup asks the renderer to open the popup bound to a marker.
func (v *View) OpenPopup(tag int64) {
	v.sink.Send(Command{Type: CommandOpenPopup, Tag: tag})
}

// EmitMarkers pushes the current marker set to renderers.
func (v *View) EmitMarkers() {
	v.sink.Send(Command{
		Type:    CommandMarkersReplaced,
		Markers: v.markers.Snapshot(),
		Bounds:  v.markers.Bounds(),
	})
}

// Snapshot returns the commands that bring a newly connected renderer to
// the current view state.
func (v *View) Snapshot() []Command {
	v.mu.Lock()
	center := v.center
	zoom := v.zoom
	tiles := v.tiles
	v.mu.Unlock()

	return []Command{
		{Type: CommandTileLayer, TileLayer: &tiles},
		{Type: CommandSetView, Lat: center.Y(), Lng: center.X(), Zoom: zoom},
		{
			Type:    CommandMarkersReplaced,
			Markers: v.markers.Snapshot(),
			Bounds:  v.markers.Bounds(),
		},
	}
}
