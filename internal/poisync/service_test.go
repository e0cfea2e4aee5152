package poisync

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"map_widget_backend/internal/host"
	"map_widget_backend/internal/mapview"
	"map_widget_backend/internal/refval"
	"map_widget_backend/internal/routectx"
	"map_widget_backend/platform/apperr"
	"map_widget_backend/platform/config"
	"map_widget_backend/platform/events"
	"map_widget_backend/platform/logger"
)

type fakeHost struct {
	readyErr   error
	applyErr   error
	applied    [][]Action
	cursorRows []int64
	cursorErr  error
	resolvedID string
	resolveErr error
}

func (f *fakeHost) Ready(ctx context.Context, columns []Column) error {
	return f.readyErr
}

func (f *fakeHost) ApplyActions(ctx context.Context, actions []Action) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, actions)
	return nil
}

func (f *fakeHost) ResolveTableID(ctx context.Context) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.resolvedID, nil
}

func (f *fakeHost) SetCursor(ctx context.Context, rowID int64, tableID string) error {
	if f.cursorErr != nil {
		return f.cursorErr
	}
	f.cursorRows = append(f.cursorRows, rowID)
	return nil
}

// recordingBus is a synchronous Bus so tests can assert published events.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

func (b *recordingBus) notices() []NoticeEvent {
	var out []NoticeEvent
	for _, e := range b.published {
		if n, ok := e.(NoticeEvent); ok {
			out = append(out, n)
		}
	}
	return out
}

type commandSink struct {
	commands []mapview.Command
}

func (s *commandSink) Send(cmd mapview.Command) {
	s.commands = append(s.commands, cmd)
}

func (s *commandSink) ofType(t mapview.CommandType) []mapview.Command {
	var out []mapview.Command
	for _, cmd := range s.commands {
		if cmd.Type == t {
			out = append(out, cmd)
		}
	}
	return out
}

type fixture struct {
	svc    *Service
	host   *fakeHost
	bus    *recordingBus
	sink   *commandSink
	routes *routectx.Tracker
	view   *mapview.View
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Env:          "development",
		POITableID:   "POIs",
		RouteTableID: "Routes",
		InitialLat:   31.5,
		InitialLng:   34.8,
		InitialZoom:  8,
		MarkerZoom:   15,
		TileMinZoom:  7,
		TileMaxZoom:  16,
	}

	f := &fixture{
		host:   &fakeHost{},
		bus:    &recordingBus{},
		sink:   &commandSink{},
		routes: routectx.New(),
	}
	f.view = mapview.New(cfg, f.sink)
	f.svc = NewService(f.host, f.view, f.routes, cfg, f.bus, logger.New("development"))

	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	return f
}

func TestReplaceRecordsBeforeHandshakeIsNoop(t *testing.T) {
	f := newFixture(t)

	idle := NewService(f.host, f.view, f.routes, &config.Config{RouteTableID: "Routes"}, f.bus, logger.New("development"))
	idle.ReplaceRecords(context.Background(), []Record{{ID: 1, Lat: 31.5, Lng: 34.8}})

	if f.view.Markers().Len() != 0 {
		t.Fatal("idle synchronizer must not touch the marker layer")
	}
}

func TestReplaceRecordsFiltersInvalidCoordinates(t *testing.T) {
	f := newFixture(t)

	records := []Record{
		{ID: 1, Lat: 31.5, Lng: 34.8},
		{ID: 2, Lat: math.NaN(), Lng: 34.8},
		{ID: 3, Lat: 31.6, Lng: math.NaN()},
		{ID: 4, Lat: 31.7, Lng: 34.9},
	}
	f.svc.ReplaceRecords(context.Background(), records)

	markers := f.view.Markers().Snapshot()
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[0].Tag != 1 || markers[1].Tag != 4 {
		t.Fatalf("wrong markers survived: %+v", markers)
	}

	emitted := f.sink.ofType(mapview.CommandMarkersReplaced)
	if len(emitted) != 1 {
		t.Fatalf("expected one markers_replaced command, got %d", len(emitted))
	}
}

func TestReplaceRecordsRebuildDropsStaleMarkers(t *testing.T) {
	f := newFixture(t)

	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 1, Lat: 31.5, Lng: 34.8}})
	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 2, Lat: 32.0, Lng: 35.0}})

	markers := f.view.Markers().Snapshot()
	if len(markers) != 1 || markers[0].Tag != 2 {
		t.Fatalf("expected only marker 2 after rebuild, got %+v", markers)
	}
}

// Host webhook redeliveries run on concurrent handlers, so two record
// pushes can race. The rebuild must land whole: the layer holds exactly one
// push's markers afterwards, never a mix, and rollback positions come from
// the same push.
func TestConcurrentRecordPushesDoNotInterleave(t *testing.T) {
	cfg := &config.Config{
		Env:          "development",
		POITableID:   "POIs",
		RouteTableID: "Routes",
		InitialLat:   31.5,
		InitialLng:   34.8,
		InitialZoom:  8,
		MarkerZoom:   15,
	}
	log := logger.New("development")
	view := mapview.New(cfg, mapview.SinkFunc(func(cmd mapview.Command) {}))
	svc := NewService(&fakeHost{}, view, routectx.New(), cfg, events.NewInMemoryBus(log), log)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	setA := make([]Record, 400)
	setB := make([]Record, 400)
	for i := range setA {
		setA[i] = Record{ID: int64(i + 1), Lat: 31.5, Lng: 34.8}
		setB[i] = Record{ID: int64(i + 1001), Lat: 32.0, Lng: 35.0}
	}

	for iter := 0; iter < 20; iter++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			svc.ReplaceRecords(context.Background(), setA)
		}()
		go func() {
			defer wg.Done()
			svc.ReplaceRecords(context.Background(), setB)
		}()
		wg.Wait()

		markers := view.Markers().Snapshot()
		if len(markers) != 400 {
			t.Fatalf("iteration %d: expected 400 markers, got %d", iter, len(markers))
		}
		fromA := markers[0].Tag <= 400
		for _, m := range markers {
			if (m.Tag <= 400) != fromA {
				t.Fatalf("iteration %d: marker layer holds markers from both pushes", iter)
			}
		}

		// A drag rollback must revert to the winning push's coordinates.
		tag := markers[0].Tag
		svc.mu.Lock()
		pre, ok := svc.lastGood[tag]
		svc.mu.Unlock()
		if !ok {
			t.Fatalf("iteration %d: no rollback position for rendered marker %d", iter, tag)
		}
		if pre.lat != markers[0].Lat || pre.lng != markers[0].Lng {
			t.Fatalf("iteration %d: rollback position from a different push", iter)
		}
	}
}

func TestMapClickWithoutRouteContext(t *testing.T) {
	f := newFixture(t)

	err := f.svc.MapClicked(context.Background(), 32.0, 35.0)
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if len(f.host.applied) != 0 {
		t.Fatal("no mutation may be submitted without a route context")
	}
	if len(f.bus.notices()) == 0 {
		t.Fatal("expected a user-facing notice")
	}
}

func TestMapClickSubmitsAppend(t *testing.T) {
	f := newFixture(t)
	f.routes.Set(refval.NumericRef(7))

	if err := f.svc.MapClicked(context.Background(), 32.0, 35.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.host.applied) != 1 || len(f.host.applied[0]) != 1 {
		t.Fatalf("expected exactly one append action, got %+v", f.host.applied)
	}

	action := f.host.applied[0][0]
	if action.Name != "AddRecord" || action.TableID != "POIs" || action.RowID != nil {
		t.Fatalf("unexpected action shape: %+v", action)
	}

	want := map[string]any{
		host.ColKind:        DefaultKind,
		host.ColLatitude:    32.0,
		host.ColLongitude:   35.0,
		host.ColDescription: "",
		host.ColRoute:       float64(7),
	}
	for key, expected := range want {
		if action.Fields[key] != expected {
			t.Fatalf("field %s: expected %v, got %v", key, expected, action.Fields[key])
		}
	}
	if len(action.Fields) != len(want) {
		t.Fatalf("unexpected extra fields: %+v", action.Fields)
	}

	// No optimistic marker: the next host push is the sole source.
	if f.view.Markers().Len() != 0 {
		t.Fatal("map click must not insert a local marker")
	}
}

func TestMapClickRejectedByHost(t *testing.T) {
	f := newFixture(t)
	f.routes.Set(refval.NumericRef(7))
	f.host.applyErr = apperr.Unavailable("rejected")

	err := f.svc.MapClicked(context.Background(), 32.0, 35.0)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if len(f.bus.notices()) == 0 {
		t.Fatal("expected a user-facing notice on rejection")
	}
}

func TestMapClickResolvesTableFromHostWhenUnset(t *testing.T) {
	f := newFixture(t)
	f.routes.Set(refval.NumericRef(7))
	f.host.resolvedID = "Fallback"

	// Neither options nor configuration supplied a table id.
	cfg := &config.Config{RouteTableID: "Routes"}
	svc := NewService(f.host, f.view, f.routes, cfg, f.bus, logger.New("development"))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}

	if err := svc.MapClicked(context.Background(), 32.0, 35.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.host.applied[0][0].TableID != "Fallback" {
		t.Fatalf("expected fallback table id, got %s", f.host.applied[0][0].TableID)
	}
}

func TestMarkerClickMovesCursor(t *testing.T) {
	f := newFixture(t)
	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 5, Lat: 31.5, Lng: 34.8}})

	f.svc.MarkerClicked(context.Background(), 5)
	if len(f.host.cursorRows) != 1 || f.host.cursorRows[0] != 5 {
		t.Fatalf("expected cursor move to row 5, got %v", f.host.cursorRows)
	}
}

func TestMarkerClickCursorFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.host.cursorErr = errors.New("cursor unavailable")

	// Must not panic or surface an error.
	f.svc.MarkerClicked(context.Background(), 5)
}

func TestMarkerDragSuccess(t *testing.T) {
	f := newFixture(t)
	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 5, Lat: 31.5, Lng: 34.8}})

	if err := f.svc.MarkerDragEnd(context.Background(), 5, 31.6, 34.9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	action := f.host.applied[0][0]
	if action.Name != "UpdateRecord" || action.RowID == nil || *action.RowID != 5 {
		t.Fatalf("unexpected action: %+v", action)
	}
	if action.Fields[host.ColLatitude] != 31.6 || action.Fields[host.ColLongitude] != 34.9 {
		t.Fatalf("unexpected coordinates: %+v", action.Fields)
	}

	m, _ := f.view.Markers().Get(5)
	if m.Lat != 31.6 || m.Lng != 34.9 {
		t.Fatalf("expected marker at new position, got (%v, %v)", m.Lat, m.Lng)
	}
}

func TestMarkerDragRollbackOnRejection(t *testing.T) {
	f := newFixture(t)
	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 5, Lat: 31.5, Lng: 34.8}})
	f.host.applyErr = apperr.Unavailable("rejected")

	err := f.svc.MarkerDragEnd(context.Background(), 5, 31.6, 34.9)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	m, _ := f.view.Markers().Get(5)
	if m.Lat != 31.5 || m.Lng != 34.8 {
		t.Fatalf("expected marker rolled back to pre-drag position, got (%v, %v)", m.Lat, m.Lng)
	}
	if len(f.bus.notices()) == 0 {
		t.Fatal("expected a user-facing notice on rollback")
	}
}

// A successful drag advances the remembered position, so a later failed
// drag rolls back to the last saved spot, not the original one.
func TestMarkerDragRollbackUsesLastGoodPosition(t *testing.T) {
	f := newFixture(t)
	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 5, Lat: 31.5, Lng: 34.8}})

	if err := f.svc.MarkerDragEnd(context.Background(), 5, 31.6, 34.9); err != nil {
		t.Fatalf("first drag failed: %v", err)
	}

	f.host.applyErr = apperr.Unavailable("rejected")
	_ = f.svc.MarkerDragEnd(context.Background(), 5, 31.7, 35.0)

	m, _ := f.view.Markers().Get(5)
	if m.Lat != 31.6 || m.Lng != 34.9 {
		t.Fatalf("expected rollback to last saved position, got (%v, %v)", m.Lat, m.Lng)
	}
}

// A drag whose marker was removed by an intervening rebuild is a no-op,
// not a crash.
func TestMarkerDragStaleTagIsNoop(t *testing.T) {
	f := newFixture(t)
	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 5, Lat: 31.5, Lng: 34.8}})
	f.svc.ReplaceRecords(context.Background(), nil)

	if err := f.svc.MarkerDragEnd(context.Background(), 5, 31.6, 34.9); err != nil {
		t.Fatalf("expected stale drag to be a no-op, got %v", err)
	}
	if len(f.host.applied) != 0 {
		t.Fatal("stale drag must not submit a mutation")
	}
}

func TestSelectionChangedSetsContextAndCenters(t *testing.T) {
	f := newFixture(t)
	f.svc.ReplaceRecords(context.Background(), []Record{{ID: 5, Lat: 31.5, Lng: 34.8, RouteRaw: float64(7)}})

	rec := Record{ID: 5, Lat: 31.5, Lng: 34.8, RouteRaw: float64(7)}
	f.svc.SelectionChanged(context.Background(), &rec)

	ref, ok := f.routes.Active()
	if !ok || ref.Value() != float64(7) {
		t.Fatalf("expected route context 7, got %v", ref)
	}

	flights := f.sink.ofType(mapview.CommandFlyTo)
	if len(flights) != 1 || flights[0].Lat != 31.5 || flights[0].Lng != 34.8 {
		t.Fatalf("expected fly_to (31.5, 34.8), got %+v", flights)
	}
	popups := f.sink.ofType(mapview.CommandOpenPopup)
	if len(popups) != 1 || popups[0].Tag != 5 {
		t.Fatalf("expected popup for tag 5, got %+v", popups)
	}
}

// Selecting a record with an unresolved reference clears the context;
// deselecting (no record at all) leaves it unchanged.
func TestSelectionAsymmetry(t *testing.T) {
	f := newFixture(t)
	f.routes.Set(refval.NumericRef(7))

	f.svc.SelectionChanged(context.Background(), nil)
	if _, ok := f.routes.Active(); !ok {
		t.Fatal("deselection must preserve the route context")
	}

	rec := Record{ID: 5, Lat: 31.5, Lng: 34.8, RouteRaw: true}
	f.svc.SelectionChanged(context.Background(), &rec)
	if _, ok := f.routes.Active(); ok {
		t.Fatal("unresolved reference must clear the route context")
	}
}

func TestOptionsResolutionPriority(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want string
	}{
		{"tableId wins", Options{TableID: "A", InteractionTableID: "B", TableRef: "C"}, "A"},
		{"interaction next", Options{InteractionTableID: "B", TableRef: "C"}, "B"},
		{"tableRef last", Options{TableRef: "C"}, "C"},
		{"nothing", Options{}, ""},
	}
	for _, tc := range cases {
		if got := tc.opts.ActiveTableID(); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestOptionsChangedOverridesConfiguredTable(t *testing.T) {
	f := newFixture(t)
	f.routes.Set(refval.NumericRef(7))

	f.svc.OptionsChanged(context.Background(), Options{TableID: "FromOptions"})
	if err := f.svc.MapClicked(context.Background(), 32.0, 35.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.host.applied[0][0].TableID != "FromOptions" {
		t.Fatalf("expected options table id, got %s", f.host.applied[0][0].TableID)
	}
}

// The end-to-end scenario: one pushed record renders one marker; a map
// click with route context 7 submits exactly one append with the clicked
// coordinates, the default kind, an empty description, and route link 7.
func TestPushThenCreateScenario(t *testing.T) {
	f := newFixture(t)

	f.svc.ReplaceRecords(context.Background(), []Record{
		{ID: 1, Lat: 31.5, Lng: 34.8, RouteRaw: float64(7)},
	})
	markers := f.view.Markers().Snapshot()
	if len(markers) != 1 || markers[0].Lat != 31.5 || markers[0].Lng != 34.8 {
		t.Fatalf("expected one marker at (31.5, 34.8), got %+v", markers)
	}

	rec := Record{ID: 1, Lat: 31.5, Lng: 34.8, RouteRaw: float64(7)}
	f.svc.SelectionChanged(context.Background(), &rec)

	if err := f.svc.MapClicked(context.Background(), 32.0, 35.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.host.applied) != 1 {
		t.Fatalf("expected exactly one mutation batch, got %d", len(f.host.applied))
	}
	fields := f.host.applied[0][0].Fields
	if fields[host.ColLatitude] != 32.0 || fields[host.ColLongitude] != 35.0 || fields[host.ColRoute] != float64(7) {
		t.Fatalf("unexpected append payload: %+v", fields)
	}
}

func TestRecordFromFieldsTolerantDecoding(t *testing.T) {
	rec := RecordFromFields(2, map[string]any{
		host.ColKind:      "Spring",
		host.ColLatitude:  "bad",
		host.ColLongitude: 34.8,
	})

	if rec.HasCoords() {
		t.Fatal("expected malformed latitude to yield no coordinates")
	}
	if rec.Kind != "Spring" {
		t.Fatalf("expected kind to survive, got %q", rec.Kind)
	}
}
