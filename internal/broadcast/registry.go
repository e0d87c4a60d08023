package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mercadero/auction-engine/pkg/metrics"
)

// Observer receives the ordered event feed for one room subscription.
// Events arrives on C in the order their bids committed. The channel is
// closed when the observer is dropped or unsubscribed.
type Observer struct {
	C chan BidEvent

	roomID  uuid.UUID
	once    sync.Once
	dropped atomic.Bool
}

// RoomID returns the room this observer is attached to.
func (o *Observer) RoomID() uuid.UUID {
	return o.roomID
}

// Dropped reports whether the registry evicted this observer for a full
// buffer. It stays false when the channel closed through Unsubscribe.
func (o *Observer) Dropped() bool {
	return o.dropped.Load()
}

func (o *Observer) close() {
	o.once.Do(func() {
		close(o.C)
	})
}

// Registry fans bid events out to per-room observer sets. An observer whose
// buffer is full when an event arrives is dropped rather than slowing the
// rest of the room.
type Registry struct {
	mtx     sync.Mutex
	rooms   map[uuid.UUID]map[*Observer]struct{}
	buffer  int
	metrics *metrics.StreamMetrics
}

// NewRegistry builds a registry with the given per-observer buffer size.
func NewRegistry(buffer int, streamMetrics *metrics.StreamMetrics) *Registry {
	if buffer <= 0 {
		buffer = 16
	}
	return &Registry{
		rooms:   make(map[uuid.UUID]map[*Observer]struct{}),
		buffer:  buffer,
		metrics: streamMetrics,
	}
}

// Subscribe registers a new observer for the room and returns it.
func (r *Registry) Subscribe(roomID uuid.UUID) *Observer {
	observer := &Observer{
		C:      make(chan BidEvent, r.buffer),
		roomID: roomID,
	}

	r.mtx.Lock()
	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[*Observer]struct{})
		r.rooms[roomID] = set
	}
	set[observer] = struct{}{}
	r.mtx.Unlock()

	r.metrics.ObserverConnected()
	return observer
}

// Unsubscribe removes the observer and closes its channel. Calling it twice
// is a no-op.
func (r *Registry) Unsubscribe(observer *Observer) {
	if observer == nil {
		return
	}

	r.mtx.Lock()
	set, ok := r.rooms[observer.roomID]
	if ok {
		if _, present := set[observer]; present {
			delete(set, observer)
			if len(set) == 0 {
				delete(r.rooms, observer.roomID)
			}
			r.mtx.Unlock()
			observer.close()
			r.metrics.ObserverDisconnected()
			return
		}
	}
	r.mtx.Unlock()
}

// Publish delivers the event to every observer of the room. Observers with a
// full buffer are dropped and their channel closed.
func (r *Registry) Publish(roomID uuid.UUID, event BidEvent) {
	r.mtx.Lock()
	set, ok := r.rooms[roomID]
	if !ok {
		r.mtx.Unlock()
		return
	}

	var dropped []*Observer
	for observer := range set {
		select {
		case observer.C <- event:
		default:
			dropped = append(dropped, observer)
		}
	}
	for _, observer := range dropped {
		delete(set, observer)
	}
	if len(set) == 0 {
		delete(r.rooms, roomID)
	}
	r.mtx.Unlock()

	r.metrics.IncPublished(roomID.String())
	for _, observer := range dropped {
		observer.dropped.Store(true)
		observer.close()
		r.metrics.ObserverDisconnected()
		r.metrics.IncDropped(roomID.String())
	}
}

// ObserverCount reports how many observers a room currently has.
func (r *Registry) ObserverCount(roomID uuid.UUID) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.rooms[roomID])
}
