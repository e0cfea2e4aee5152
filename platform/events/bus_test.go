package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"map_widget_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncRunsHandlersInOrder(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var calls []int
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		calls = append(calls, 1)
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		calls = append(calls, 2)
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("unexpected handler order: %v", calls)
	}
}

func TestPublishSyncReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	first := errors.New("first failure")
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return first
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return errors.New("second failure")
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"})
	if !errors.Is(err, first) {
		t.Fatalf("expected first handler error, got %v", err)
	}
}

func TestPublishDispatchesAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		wg.Done()
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		wg.Done()
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.event"})
	wg.Wait()
}

func TestPublishRecoversPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		defer wg.Done()
		panic("handler blew up")
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.event"})
	wg.Wait()
}

func TestEventsWithoutHandlersAreDropped(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "nobody.listens"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
