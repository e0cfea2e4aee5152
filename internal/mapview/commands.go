package mapview

// CommandType identifies a view command sent to the browser renderer.
type CommandType string

const (
	// CommandSetView positions the map without animation.
	CommandSetView CommandType = "set_view"
	// CommandFlyTo animates the map to a position.
	CommandFlyTo CommandType = "fly_to"
	// CommandMarkersReplaced replaces the entire rendered marker set.
	CommandMarkersReplaced CommandType = "markers_replaced"
	// CommandOpenPopup opens the popup bound to a marker.
	CommandOpenPopup CommandType = "open_popup"
	// CommandTileLayer configures the tile layer. Sent once per connection.
	CommandTileLayer CommandType = "tile_layer"
)

// TileLayer describes the raster tile layer the renderer should mount.
// The attribution string is passed through verbatim.
type TileLayer struct {
	URLTemplate string `json:"urlTemplate"`
	MinZoom     int    `json:"minZoom"`
	MaxZoom     int    `json:"maxZoom"`
	Attribution string `json:"attribution"`
}

// Command is a single instruction for the browser renderer.
type Command struct {
	Type      CommandType `json:"type"`
	Lat       float64     `json:"lat,omitempty"`
	Lng       float64     `json:"lng,omitempty"`
	Zoom      int         `json:"zoom,omitempty"`
	Tag       int64       `json:"tag,omitempty"`
	Markers   []Marker    `json:"markers,omitempty"`
	Bounds    *Bounds     `json:"bounds,omitempty"`
	TileLayer *TileLayer  `json:"tileLayer,omitempty"`
}

// Bounds is the renderer-facing bounding box of the marker set.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// Sink receives view commands for delivery to connected renderers.
type Sink interface {
	Send(cmd Command)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(cmd Command)

// Send calls the underlying function.
func (f SinkFunc) Send(cmd Command) {
	f(cmd)
}
