package eventing

import (
	"context"
	"errors"
	"testing"
)

type pedalEvent struct{ Reply string }

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(TypeFor[pedalEvent](), func(ctx context.Context, event any) error {
		evt, ok := event.(pedalEvent)
		if !ok {
			return ErrInvalidEventType
		}
		got = append(got, evt.Reply)
		return nil
	})

	if err := bus.Publish(context.Background(), pedalEvent{Reply: "data appended"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 || got[0] != "data appended" {
		t.Fatalf("expected one delivery, got %v", got)
	}
}

func TestBusPublishNil(t *testing.T) {
	bus := NewBus()
	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
}

func TestBusReturnsFirstHandlerError(t *testing.T) {
	bus := NewBus()
	wantErr := errors.New("sink unavailable")
	ran := 0
	bus.Subscribe(TypeFor[pedalEvent](), func(ctx context.Context, event any) error {
		ran++
		return wantErr
	})
	bus.Subscribe(TypeFor[pedalEvent](), func(ctx context.Context, event any) error {
		ran++
		return errors.New("second error")
	})

	err := bus.Publish(context.Background(), pedalEvent{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected first handler error, got %v", err)
	}
	if ran != 2 {
		t.Fatalf("all handlers must run, got %d", ran)
	}
}

func TestTypeOfDereferencesPointers(t *testing.T) {
	if TypeOf(&pedalEvent{}) != TypeOf(pedalEvent{}) {
		t.Fatalf("pointer and value events must share a type name")
	}
}
