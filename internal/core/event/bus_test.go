package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	var got []Event
	bus.Subscribe(EventJobCreated, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	bus.Publish(context.Background(), Event{Type: EventJobCreated, Payload: JobEvent{JobID: "a"}})
	bus.Publish(context.Background(), Event{Type: EventJobFailed, Payload: JobEvent{JobID: "b"}})

	assert.Len(t, got, 1, "handlers only see their event type")
	assert.Equal(t, EventJobCreated, got[0].Type)
	assert.False(t, got[0].Timestamp.IsZero(), "timestamp filled on publish")
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(EventJobCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), Event{Type: EventJobCreated})
	unsubscribe()
	bus.Publish(context.Background(), Event{Type: EventJobCreated})

	assert.Equal(t, 1, calls)
}

func TestBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewBus()
	second := false
	bus.Subscribe(EventJobCreated, func(context.Context, Event) error {
		return errors.New("handler broke")
	})
	bus.Subscribe(EventJobCreated, func(context.Context, Event) error {
		second = true
		return nil
	})

	bus.Publish(context.Background(), Event{Type: EventJobCreated})
	assert.True(t, second)
}
