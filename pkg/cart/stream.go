package cart

import (
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/example/storefront/pkg/models"
)

// Changed is published after every successful cart mutation. Items is the
// full line set after the change, so subscribers never have to merge deltas.
type Changed struct {
	UserID string
	Items  []models.CartItem
}

// Stream fans cart change events out to per-user subscribers, giving callers
// a live view of the cart without polling the store.
type Stream struct {
	es *eventstream.EventStream
}

// Subscription is a live view of one user's cart. Close it when the session
// ends; no further values are delivered after Close returns.
type Subscription struct {
	C      <-chan []models.CartItem
	stream *Stream
	sub    *eventstream.Subscription
}

func NewStream() *Stream {
	return &Stream{es: eventstream.NewEventStream()}
}

func (s *Stream) Publish(evt Changed) {
	s.es.Publish(evt)
}

// Subscribe delivers every subsequent change of userID's cart. Slow consumers
// drop intermediate snapshots rather than block publishers; the latest state
// is always the next delivered value.
func (s *Stream) Subscribe(userID string) *Subscription {
	ch := make(chan []models.CartItem, 1)

	sub := s.es.SubscribeWithPredicate(
		func(evt interface{}) {
			changed, ok := evt.(Changed)
			if !ok {
				return
			}
			select {
			case ch <- changed.Items:
			default:
				// Drop the stale snapshot, keep the newest.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- changed.Items:
				default:
				}
			}
		},
		func(evt interface{}) bool {
			changed, ok := evt.(Changed)
			return ok && changed.UserID == userID
		},
	)

	return &Subscription{C: ch, stream: s, sub: sub}
}

func (s *Subscription) Close() {
	s.stream.es.Unsubscribe(s.sub)
}
