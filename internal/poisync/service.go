// Package poisync is the synchronization core of the widget: it rebuilds the
// marker layer from host record pushes, turns map interactions into host row
// mutations, and re-derives the active route context from selection changes.
package poisync

import (
	"context"
	"fmt"
	"sync"

	"map_widget_backend/internal/host"
	"map_widget_backend/internal/mapview"
	"map_widget_backend/internal/refval"
	"map_widget_backend/internal/routectx"
	"map_widget_backend/platform/apperr"
	"map_widget_backend/platform/config"
	"map_widget_backend/platform/events"
	"map_widget_backend/platform/logger"
)

// HostClient is the outbound surface the synchronizer needs from the host
// binding. Satisfied by *host.Client.
type HostClient interface {
	Ready(ctx context.Context, columns []Column) error
	ApplyActions(ctx context.Context, actions []Action) error
	ResolveTableID(ctx context.Context) (string, error)
	SetCursor(ctx context.Context, rowID int64, tableID string) error
}

// Column and Action alias the host wire types so fakes in tests don't need
// to import the host package.
type (
	Column = host.Column
	Action = host.Action
)

type position struct {
	lat float64
	lng float64
}

// Service is the POI synchronizer. It has two states: idle until the host
// handshake succeeds, ready afterwards. Every handler catches its own
// failures; none escape to a global handler.
type Service struct {
	host   HostClient
	view   *mapview.View
	routes *routectx.Tracker
	bus    events.Bus
	log    *logger.Logger

	routeTableID string
	defaultTable string

	mu       sync.Mutex
	ready    bool
	tableID  string
	lastGood map[int64]position
}

// NewService creates the synchronizer in the idle state.
func NewService(hostClient HostClient, view *mapview.View, routes *routectx.Tracker, cfg config.HostConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		host:         hostClient,
		view:         view,
		routes:       routes,
		bus:          bus,
		log:          log,
		routeTableID: cfg.GetRouteTableID(),
		defaultTable: cfg.GetPOITableID(),
		lastGood:     make(map[int64]position),
	}
}

// Start performs the readiness handshake and transitions the synchronizer to
// ready. The caller owns retrying; Start itself makes a single attempt.
func (s *Service) Start(ctx context.Context) error {
	if err := s.host.Ready(ctx, host.POIColumns(s.routeTableID)); err != nil {
		return err
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	s.log.Info("synchronizer ready", "routeTable", s.routeTableID)
	return nil
}

// Ready reports whether the host handshake has completed.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// ReplaceRecords rebuilds the marker layer from a full host record push.
// Records without finite coordinates are silently excluded; that is the sole
// filtering rule. A no-op before the handshake completes.
//
// The rebuild is atomic: the next marker set is assembled off to the side
// and swapped in whole, so concurrent pushes (webhook redeliveries run on
// concurrent handlers) cannot interleave into a mixed set. One push wins.
func (s *Service) ReplaceRecords(ctx context.Context, records []Record) {
	if !s.Ready() {
		s.log.Debug("record push before handshake, ignoring", "count", len(records))
		return
	}

	next := make([]mapview.Marker, 0, len(records))
	lastGood := make(map[int64]position, len(records))
	for _, rec := range records {
		if !rec.HasCoords() {
			continue
		}
		next = append(next, mapview.Marker{
			Tag:       rec.ID,
			Lat:       rec.Lat,
			Lng:       rec.Lng,
			Popup:     popupHTML(rec),
			Draggable: true,
		})
		lastGood[rec.ID] = position{lat: rec.Lat, lng: rec.Lng}
	}

	// One lock spans the swap and the lastGood update so the two cannot
	// come from different pushes.
	s.mu.Lock()
	rendered := s.view.Markers().Replace(next)
	s.lastGood = lastGood
	s.mu.Unlock()

	s.view.EmitMarkers()
	s.bus.Publish(ctx, MarkersRebuiltEvent{
		BaseEvent: events.NewBaseEvent(),
		Total:     len(records),
		Rendered:  rendered,
	})
}

// MapClicked creates a new point at the clicked coordinate. Creating a point
// requires an active route context: the POI table's route column is
// mandatory, and the synchronizer never guesses a route id. No optimistic
// marker is added; the next host record push is the sole source of the new
// marker.
func (s *Service) MapClicked(ctx context.Context, lat, lng float64) error {
	if !mapview.FiniteCoords(lat, lng) {
		return apperr.BadRequest("click coordinates must be finite numbers").WithOp("poisync.MapClicked")
	}

	route, ok := s.routes.Active()
	if !ok {
		s.notify(ctx, NoticeError, "Select a point on a route first - new points need a route to belong to.")
		return apperr.Precondition("no active route context").WithOp("poisync.MapClicked")
	}

	tableID, err := s.activeTableID(ctx)
	if err != nil {
		s.notify(ctx, NoticeError, "Could not determine the point table. Try again.")
		return err
	}

	fields := map[string]any{
		host.ColKind:        DefaultKind,
		host.ColLatitude:    lat,
		host.ColLongitude:   lng,
		host.ColDescription: "",
		host.ColRoute:       route.Value(),
	}

	if err := s.host.ApplyActions(ctx, []Action{host.AddRecord(tableID, fields)}); err != nil {
		s.log.HostMutationError("AddRecord", 0, fmt.Sprintf("%v", fields), err)
		s.notify(ctx, NoticeError, "The point could not be saved.")
		return err
	}

	s.bus.Publish(ctx, POICreatedEvent{
		BaseEvent: events.NewBaseEvent(),
		Lat:       lat,
		Lng:       lng,
		Route:     route.Value(),
	})
	return nil
}

// MarkerClicked moves the host's selection cursor to the marker's row.
// Cursor movement is a convenience, not required for correctness: failures
// are logged and swallowed.
func (s *Service) MarkerClicked(ctx context.Context, tag int64) {
	s.mu.Lock()
	tableID := s.tableID
	s.mu.Unlock()

	if err := s.host.SetCursor(ctx, tag, tableID); err != nil {
		s.log.Warn("cursor move failed", "row_id", tag, "error", err)
	}
}

// MarkerDragEnd submits the dragged marker's new coordinates. On rejection
// the marker reverts to its last known good position and the user is
// notified; on success that position advances, so a later failed drag rolls
// back to here rather than to the original spot. A drag against a marker
// removed by an intervening rebuild is a no-op.
func (s *Service) MarkerDragEnd(ctx context.Context, tag int64, lat, lng float64) error {
	if !mapview.FiniteCoords(lat, lng) {
		return apperr.BadRequest("drag coordinates must be finite numbers").WithOp("poisync.MarkerDragEnd")
	}

	markers := s.view.Markers()
	if _, ok := markers.Get(tag); !ok {
		s.log.Debug("drag against removed marker, ignoring", "row_id", tag)
		return nil
	}

	tableID, err := s.activeTableID(ctx)
	if err != nil {
		s.notify(ctx, NoticeError, "Could not determine the point table. Try again.")
		return err
	}

	markers.Move(tag, lat, lng)

	fields := map[string]any{
		host.ColLatitude:  lat,
		host.ColLongitude: lng,
	}
	if err := s.host.ApplyActions(ctx, []Action{host.UpdateRecord(tableID, tag, fields)}); err != nil {
		s.rollback(tag)
		s.log.HostMutationError("UpdateRecord", tag, fmt.Sprintf("%v", fields), err)
		s.notify(ctx, NoticeError, "The move could not be saved; the point was put back.")
		return err
	}

	s.mu.Lock()
	s.lastGood[tag] = position{lat: lat, lng: lng}
	s.mu.Unlock()

	s.bus.Publish(ctx, POIMovedEvent{
		BaseEvent: events.NewBaseEvent(),
		Tag:       tag,
		Lat:       lat,
		Lng:       lng,
	})
	return nil
}

// SelectionChanged handles a host selection push. A record always overwrites
// the route context - including with an unresolved reference, which clears
// it. A nil record (deselection) leaves the context untouched so the user
// can keep placing points on the route they were last working with.
func (s *Service) SelectionChanged(ctx context.Context, rec *Record) {
	if rec == nil {
		return
	}

	ref := refval.Normalize(rec.RouteRaw)
	if !ref.IsResolved() && rec.RouteRaw != nil {
		s.log.RefShape(host.ColRoute, rec.RouteRaw)
	}
	s.routes.Set(ref)

	if rec.HasCoords() {
		s.view.FlyTo(rec.Lat, rec.Lng)
		s.view.OpenPopup(rec.ID)
	}
}

// OptionsChanged re-derives the active table id from a host options push.
func (s *Service) OptionsChanged(ctx context.Context, opts Options) {
	tableID := opts.ActiveTableID()

	s.mu.Lock()
	s.tableID = tableID
	s.mu.Unlock()

	if tableID == "" {
		s.log.Warn("options carried no table id, will resolve from host at click time")
		return
	}
	s.log.Info("active table id set", "table_id", tableID)
}

// activeTableID returns the table mutations should target, resolving it
// from the host when neither options nor configuration supplied one.
func (s *Service) activeTableID(ctx context.Context) (string, error) {
	s.mu.Lock()
	tableID := s.tableID
	s.mu.Unlock()

	if tableID != "" {
		return tableID, nil
	}
	if s.defaultTable != "" {
		return s.defaultTable, nil
	}

	resolved, err := s.host.ResolveTableID(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.tableID = resolved
	s.mu.Unlock()
	return resolved, nil
}

func (s *Service) rollback(tag int64) {
	s.mu.Lock()
	pre, ok := s.lastGood[tag]
	s.mu.Unlock()
	if !ok {
		return
	}

	s.view.Markers().Move(tag, pre.lat, pre.lng)
	s.view.EmitMarkers()
}

func (s *Service) notify(ctx context.Context, level, message string) {
	s.bus.Publish(ctx, NoticeEvent{
		BaseEvent: events.NewBaseEvent(),
		Level:     level,
		Message:   message,
	})
}
