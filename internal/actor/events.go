package actor

import (
	"context"

	"github.com/dilbagh/theunfairwheel/internal/models"
)

// subscriberBuffer is the native send queue depth per spec §4.3: "the actor
// does not buffer-per-subscriber beyond the transport's native send queue."
// A slow client that can't drain this many events before the next
// transaction is disconnected rather than stalling the actor.
const subscriberBuffer = 16

// Subscription is returned to a caller (the realtime transport) after a
// successful Subscribe. Events arrives pre-seeded with a snapshot.
type Subscription struct {
	ID     uint64
	Events <-chan models.Event
}

func (a *Actor) Subscribe(ctx context.Context) (Subscription, error) {
	var out Subscription
	err := a.call(ctx, "subscribe", nil, func(r response) {
		if r.err == nil {
			out = r.data.(Subscription)
		}
	})
	return out, err
}

func (a *Actor) Unsubscribe(id uint64) {
	// Fire-and-forget: the mailbox loop will still be running as long as
	// the actor is alive, and there is nothing useful to do with an error
	// from a disconnect on the way out.
	go func() {
		reply := make(chan response, 1)
		select {
		case a.mailbox <- request{op: "unsubscribe", args: id, reply: reply}:
			<-reply
		case <-a.stop:
		}
	}()
}

func (a *Actor) handleSubscribe() response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	ch := make(chan models.Event, subscriberBuffer)
	id := a.nextSubscriber
	a.nextSubscriber++
	a.subscribers[id] = ch

	snapshot := models.Event{
		Type:    models.EventSnapshot,
		GroupID: a.id,
		Version: a.version,
		Ts:      a.now(),
		Payload: models.SnapshotPayload{
			Group:        a.group,
			Participants: append([]models.Participant(nil), a.participants...),
			Spin:         a.spin,
		},
	}
	ch <- snapshot // buffered; cannot block on a fresh channel

	return response{data: Subscription{ID: id, Events: ch}}
}

func (a *Actor) handleUnsubscribe(id uint64) {
	if ch, ok := a.subscribers[id]; ok {
		delete(a.subscribers, id)
		close(ch)
	}
}

// emit stamps an event with the actor's current version and fans it out to
// every live subscriber. A transaction that touches multiple entities (a
// spin resolve, a roster commit) calls emit several times under the same
// version, per spec §9's versioning note. Subscribers that can't keep up
// are dropped and their socket closed with 1011 by the realtime layer,
// which learns about the drop by its channel closing.
func (a *Actor) emit(eventType string, payload interface{}) {
	ev := models.Event{
		Type:    eventType,
		GroupID: a.id,
		Version: a.version,
		Ts:      a.now(),
		Payload: payload,
	}
	for id, ch := range a.subscribers {
		select {
		case ch <- ev:
		default:
			delete(a.subscribers, id)
			close(ch)
		}
	}
}
