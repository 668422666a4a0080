package fleet

import (
	"log/slog"
	"os"
	"testing"
)

func newTestBus() *EventBus {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewEventBus(logger)
}

func TestEventBusOn(t *testing.T) {
	eb := newTestBus()

	var got []Event
	eb.On(EventControllerConnected, func(e Event) { got = append(got, e) })

	eb.Emit(Event{Type: EventControllerConnected, Data: 1})
	eb.Emit(Event{Type: EventControllerVanished, Data: 2})

	if len(got) != 1 || got[0].Data != 1 {
		t.Errorf("handler received %v, want just the connected event", got)
	}
}

func TestEventBusOnAll(t *testing.T) {
	eb := newTestBus()

	var count int
	eb.OnAll(func(Event) { count++ })

	eb.Emit(Event{Type: EventControllerConnected})
	eb.Emit(Event{Type: EventCapacityExceeded})

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := newTestBus()

	var count int
	unsub := eb.OnAll(func(Event) { count++ })

	eb.Emit(Event{Type: EventFleetState})
	unsub()
	eb.Emit(Event{Type: EventFleetState})

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestEventBusRecoversPanickingHandler(t *testing.T) {
	eb := newTestBus()

	var after int
	eb.OnAll(func(Event) { panic("boom") })
	eb.OnAll(func(Event) { after++ })

	eb.Emit(Event{Type: EventFleetState})

	if after != 1 {
		t.Errorf("handler after panicking one ran %d times, want 1", after)
	}
}
