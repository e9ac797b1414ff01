package events

import (
	"testing"

	"github.com/vietddude/guardrail/internal/core/domain"
)

func TestBroadcaster_DeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster()

	ch, cancel := b.Subscribe(domain.EventRestoreTransactions, 1)
	defer cancel()

	b.Publish(domain.RecoveryEvent{
		Type:         domain.EventRestoreTransactions,
		Transactions: []domain.PendingTransaction{{ID: "tx-1"}},
	})

	select {
	case ev := <-ch:
		if len(ev.Transactions) != 1 || ev.Transactions[0].ID != "tx-1" {
			t.Errorf("unexpected event payload: %+v", ev)
		}
	default:
		t.Fatal("subscriber did not receive the event")
	}
}

func TestBroadcaster_TypeIsolation(t *testing.T) {
	b := NewBroadcaster()

	txCh, cancelTx := b.Subscribe(domain.EventRestoreTransactions, 1)
	defer cancelTx()
	chCh, cancelCh := b.Subscribe(domain.EventRestoreUnsavedChanges, 1)
	defer cancelCh()

	b.Publish(domain.RecoveryEvent{
		Type:           domain.EventRestoreUnsavedChanges,
		UnsavedChanges: map[string]any{"formA": "draft"},
	})

	select {
	case <-txCh:
		t.Error("transaction subscriber received an unsaved-changes event")
	default:
	}

	select {
	case ev := <-chCh:
		if ev.UnsavedChanges["formA"] != "draft" {
			t.Errorf("unexpected payload: %+v", ev.UnsavedChanges)
		}
	default:
		t.Fatal("unsaved-changes subscriber missed the event")
	}
}

func TestBroadcaster_FullBufferNeverBlocks(t *testing.T) {
	b := NewBroadcaster()

	_, cancel := b.Subscribe(domain.EventRestoreTransactions, 1)
	defer cancel()

	// Two publishes into a buffer of one: the second is dropped, not blocked.
	done := make(chan struct{})
	go func() {
		b.Publish(domain.RecoveryEvent{Type: domain.EventRestoreTransactions})
		b.Publish(domain.RecoveryEvent{Type: domain.EventRestoreTransactions})
		close(done)
	}()
	<-done
}

func TestBroadcaster_CancelRemovesSubscription(t *testing.T) {
	b := NewBroadcaster()

	ch, cancel := b.Subscribe(domain.EventRestoreTransactions, 1)
	cancel()

	if b.SubscriberCount(domain.EventRestoreTransactions) != 0 {
		t.Error("cancel should remove the subscription")
	}
	if _, open := <-ch; open {
		t.Error("cancel should close the channel")
	}
}
