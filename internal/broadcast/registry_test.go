package broadcast

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestRegistry(buffer int) *Registry {
	return NewRegistry(buffer, nil)
}

func makeEvent(roomID uuid.UUID, price int64) BidEvent {
	return BidEvent{
		BidID:      uuid.New(),
		RoomID:     roomID,
		UserID:     uuid.New(),
		PriceCents: price,
		CreatedAt:  time.Now(),
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	registry := newTestRegistry(4)
	roomID := uuid.New()

	observer := registry.Subscribe(roomID)
	if got := registry.ObserverCount(roomID); got != 1 {
		t.Fatalf("expected 1 observer, got %d", got)
	}

	event := makeEvent(roomID, 15000)
	registry.Publish(roomID, event)

	select {
	case received := <-observer.C:
		if received.BidID != event.BidID {
			t.Fatalf("unexpected event %v", received)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	registry := newTestRegistry(8)
	roomID := uuid.New()
	observer := registry.Subscribe(roomID)

	prices := []int64{100, 150, 200, 250}
	for _, price := range prices {
		registry.Publish(roomID, makeEvent(roomID, price))
	}

	for _, want := range prices {
		select {
		case received := <-observer.C:
			if received.PriceCents != want {
				t.Fatalf("expected price %d, got %d", want, received.PriceCents)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for ordered event")
		}
	}
}

func TestPublishToOtherRoomNotDelivered(t *testing.T) {
	registry := newTestRegistry(4)
	roomA := uuid.New()
	roomB := uuid.New()
	observer := registry.Subscribe(roomA)

	registry.Publish(roomB, makeEvent(roomB, 999))

	select {
	case event := <-observer.C:
		t.Fatalf("unexpected event delivered: %v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowObserverIsDropped(t *testing.T) {
	registry := newTestRegistry(2)
	roomID := uuid.New()
	slow := registry.Subscribe(roomID)
	fast := registry.Subscribe(roomID)

	// Fill the slow observer's buffer without draining it.
	registry.Publish(roomID, makeEvent(roomID, 100))
	registry.Publish(roomID, makeEvent(roomID, 150))
	// Drain the fast observer so it keeps room in its buffer.
	<-fast.C
	<-fast.C

	registry.Publish(roomID, makeEvent(roomID, 200))

	if got := registry.ObserverCount(roomID); got != 1 {
		t.Fatalf("expected slow observer dropped, observer count %d", got)
	}

	// The slow observer's channel must be closed after its buffered events.
	drained := 0
	for range slow.C {
		drained++
	}
	if drained != 2 {
		t.Fatalf("expected 2 buffered events before close, got %d", drained)
	}

	select {
	case event := <-fast.C:
		if event.PriceCents != 200 {
			t.Fatalf("expected price 200, got %d", event.PriceCents)
		}
	case <-time.After(time.Second):
		t.Fatal("fast observer missed event")
	}
}

func TestDroppedDistinguishesOverflowFromUnsubscribe(t *testing.T) {
	registry := newTestRegistry(1)
	roomID := uuid.New()

	slow := registry.Subscribe(roomID)
	registry.Publish(roomID, makeEvent(roomID, 100))
	registry.Publish(roomID, makeEvent(roomID, 150))

	if !slow.Dropped() {
		t.Fatal("expected overflow-evicted observer marked dropped")
	}

	clean := registry.Subscribe(roomID)
	registry.Unsubscribe(clean)

	if _, open := <-clean.C; open {
		t.Fatal("expected channel closed after unsubscribe")
	}
	if clean.Dropped() {
		t.Fatal("unsubscribed observer must not read as dropped")
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	registry := newTestRegistry(4)
	roomID := uuid.New()
	observer := registry.Subscribe(roomID)

	registry.Unsubscribe(observer)
	registry.Unsubscribe(observer)

	if got := registry.ObserverCount(roomID); got != 0 {
		t.Fatalf("expected 0 observers, got %d", got)
	}

	if _, open := <-observer.C; open {
		t.Fatal("expected channel closed after unsubscribe")
	}

	// Publishing to an empty room must not panic.
	registry.Publish(roomID, makeEvent(roomID, 100))
}
