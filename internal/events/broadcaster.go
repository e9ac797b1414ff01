// Package events provides the in-process broadcast channel used to hand
// preserved state back to whichever consumer is currently mounted.
package events

import (
	"sync"

	"github.com/vietddude/guardrail/internal/core/domain"
)

// Broadcaster is a small publish/subscribe hub for recovery events.
// Subscribers and the broadcaster stay decoupled: the publisher never holds a
// reference to the subtree that failed.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[domain.RecoveryEventType][]chan domain.RecoveryEvent
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[domain.RecoveryEventType][]chan domain.RecoveryEvent),
	}
}

// Subscribe registers for one event type. The returned cancel func removes
// the subscription and closes the channel.
func (b *Broadcaster) Subscribe(t domain.RecoveryEventType, buffer int) (<-chan domain.RecoveryEvent, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan domain.RecoveryEvent, buffer)

	b.mu.Lock()
	b.subs[t] = append(b.subs[t], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[t]
		for i, c := range chans {
			if c == ch {
				b.subs[t] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its type. Sends never
// block: a subscriber with a full buffer misses the event rather than
// stalling the publisher.
func (b *Broadcaster) Publish(ev domain.RecoveryEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.Type] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions for a type.
func (b *Broadcaster) SubscriberCount(t domain.RecoveryEventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}
