package host

// Column is one entry of the column contract declared to the host during
// the readiness handshake. Names are the widget's column bindings; the host
// maps them onto its own column ids.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Optional bool   `json:"optional,omitempty"`
}

// ReadyRequest declares the widget's required access level and column
// bindings to the host.
type ReadyRequest struct {
	RequiredAccess string   `json:"requiredAccess"`
	Columns        []Column `json:"columns"`
}

// Column bindings for the point-of-interest table. The single-letter names
// are the widget's historical bindings and are part of the host-side widget
// configuration; changing them breaks existing documents.
const (
	ColKind        = "B"
	ColLatitude    = "C"
	ColLongitude   = "D"
	ColDisplayName = "E"
	ColRoute       = "F"
	ColDescription = "G"
)

// POIColumns is the declared column contract for the POI table. The
// display-name column is populated by a host-side formula and never written
// by the widget. The route column's wire type is host-defined; values read
// from it are normalized, never interpreted structurally.
func POIColumns(routeTableID string) []Column {
	return []Column{
		{Name: ColKind, Type: "Text", Title: "Object type"},
		{Name: ColLatitude, Type: "Numeric", Title: "Latitude"},
		{Name: ColLongitude, Type: "Numeric", Title: "Longitude"},
		{Name: ColDisplayName, Type: "Any", Title: "Display name", Optional: true},
		{Name: ColRoute, Type: "Ref:" + routeTableID, Title: "Route"},
		{Name: ColDescription, Type: "Text", Title: "Description", Optional: true},
	}
}
