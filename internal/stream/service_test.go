package stream

import (
	"context"
	"testing"

	"map_widget_backend/internal/mapview"
	"map_widget_backend/internal/poisync"
	"map_widget_backend/platform/events"
	"map_widget_backend/platform/logger"

	"github.com/google/uuid"
)

func newConnectedClient(s *Service) *client {
	c := &client{sessionID: uuid.New(), events: make(chan Event, 32)}
	s.addClient(c)
	return c
}

func TestSendBroadcastsToAllClients(t *testing.T) {
	s := New(logger.New("development"))
	a := newConnectedClient(s)
	b := newConnectedClient(s)

	s.Send(mapview.Command{Type: mapview.CommandSetView, Lat: 31.5, Lng: 34.8, Zoom: 8})

	for _, c := range []*client{a, b} {
		select {
		case ev := <-c.events:
			if ev.Type != EventCommand || ev.Command == nil || ev.Command.Lat != 31.5 {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			t.Fatal("client did not receive the command")
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	s := New(logger.New("development"))
	c := &client{sessionID: uuid.New(), events: make(chan Event, 1)}
	s.addClient(c)

	// Second send must not block.
	s.Notify("info", "first")
	s.Notify("info", "second")

	if len(c.events) != 1 {
		t.Fatalf("expected exactly one buffered event, got %d", len(c.events))
	}
}

func TestRemoveClientStopsDelivery(t *testing.T) {
	s := New(logger.New("development"))
	c := newConnectedClient(s)
	s.removeClient(c)

	s.Notify("info", "after removal")

	if _, ok := <-c.events; ok {
		t.Fatal("expected closed channel after removal")
	}
}

// Shutdown closes every client channel while handlers may still be draining;
// their deferred removal must not close a channel twice.
func TestRemoveClientAfterCloseDoesNotPanic(t *testing.T) {
	s := New(logger.New("development"))
	c := newConnectedClient(s)

	s.Close()
	s.removeClient(c)

	if _, ok := <-c.events; ok {
		t.Fatal("expected closed channel after shutdown")
	}
}

func TestNoticeEventsReachRenderers(t *testing.T) {
	log := logger.New("development")
	s := New(log)
	c := newConnectedClient(s)

	bus := events.NewInMemoryBus(log)
	s.RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), poisync.NoticeEvent{
		BaseEvent: events.NewBaseEvent(),
		Level:     poisync.NoticeError,
		Message:   "The point could not be saved.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case ev := <-c.events:
		if ev.Type != EventNotify || ev.Level != poisync.NoticeError {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("notice did not reach the client")
	}
}
