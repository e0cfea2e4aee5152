package poisync

import (
	"html"
	"math"
	"strings"

	"map_widget_backend/internal/host"
)

// DefaultKind is the object type stamped on points created from the map.
const DefaultKind = "POI"

// Record is a point-of-interest row as pushed by the host. Coordinates that
// arrived missing or malformed are carried as NaN and filtered at render
// time; the record itself is never rejected.
type Record struct {
	ID          int64
	Kind        string
	Lat         float64
	Lng         float64
	Description string
	DisplayName string
	// RouteRaw is the reference-column value exactly as the host sent it.
	// It is normalized only when the record is selected.
	RouteRaw any
}

// HasCoords reports whether the record carries finite coordinates.
func (r Record) HasCoords() bool {
	return !math.IsNaN(r.Lat) && !math.IsInf(r.Lat, 0) &&
		!math.IsNaN(r.Lng) && !math.IsInf(r.Lng, 0)
}

// RecordFromFields builds a Record from a host row's column values. Decoding
// is tolerant: a value of the wrong type degrades to its zero form (NaN for
// coordinates) instead of failing the row.
func RecordFromFields(id int64, fields map[string]any) Record {
	return Record{
		ID:          id,
		Kind:        stringField(fields, host.ColKind),
		Lat:         numberField(fields, host.ColLatitude),
		Lng:         numberField(fields, host.ColLongitude),
		Description: stringField(fields, host.ColDescription),
		DisplayName: stringField(fields, host.ColDisplayName),
		RouteRaw:    fields[host.ColRoute],
	}
}

func stringField(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}

func numberField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return math.NaN()
	}
}

// Options is the host's widget-options push. The active table id is derived
// with the priority options.tableId > interaction.tableId > options.tableRef;
// when none is present the bound table is resolved from the host at the next
// point-creation attempt.
type Options struct {
	TableID            string
	TableRef           string
	InteractionTableID string
}

// ActiveTableID returns the table id the options resolve to, or "".
func (o Options) ActiveTableID() string {
	if o.TableID != "" {
		return o.TableID
	}
	if o.InteractionTableID != "" {
		return o.InteractionTableID
	}
	return o.TableRef
}

// popupHTML renders the marker popup. The record's text fields are escaped;
// the renderer mounts the string as-is.
func popupHTML(r Record) string {
	var b strings.Builder

	title := r.DisplayName
	if title == "" {
		title = r.Kind
	}
	if title == "" {
		title = DefaultKind
	}
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</b>")

	if r.Description != "" {
		b.WriteString("<br>")
		b.WriteString(html.EscapeString(r.Description))
	}

	return b.String()
}
