package restore

import (
	"context"
	"testing"

	"github.com/vietddude/guardrail/internal/core/domain"
	"github.com/vietddude/guardrail/internal/events"
	"github.com/vietddude/guardrail/internal/infra/storage/memory"
)

func TestHasRecoveryData(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	if has, _ := HasRecoveryData(ctx, store); has {
		t.Error("empty store should report no recovery data")
	}

	_ = store.PutAuthEnvelope(ctx, &domain.AuthRecoveryEnvelope{URL: "/budget"})
	if has, _ := HasRecoveryData(ctx, store); !has {
		t.Error("an envelope alone should count as recovery data")
	}
}

func TestGetRecoveryData_ConsumesEnvelopesOnce(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_ = store.SaveTransactions(ctx, []domain.PendingTransaction{{ID: "tx-1"}})
	_ = store.SaveChange(ctx, "formA", "draft")
	_ = store.PutAuthEnvelope(ctx, &domain.AuthRecoveryEnvelope{URL: "/settings"})
	_ = store.PutCriticalEnvelope(ctx, &domain.CriticalContextEnvelope{Operation: "payment-processing"})

	payload, err := GetRecoveryData(ctx, store)
	if err != nil {
		t.Fatalf("GetRecoveryData failed: %v", err)
	}
	if len(payload.Transactions) != 1 || payload.UnsavedChanges["formA"] != "draft" {
		t.Errorf("partitions missing from payload: %+v", payload)
	}
	if payload.AuthRecovery == nil || payload.AuthRecovery.URL != "/settings" {
		t.Error("auth envelope missing from payload")
	}
	if payload.CriticalContext == nil || payload.CriticalContext.Operation != "payment-processing" {
		t.Error("critical envelope missing from payload")
	}

	// Envelopes are read-once; partitions remain until cleared.
	second, err := GetRecoveryData(ctx, store)
	if err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if second.AuthRecovery != nil || second.CriticalContext != nil {
		t.Error("envelopes must be consumed by the first read")
	}
	if len(second.Transactions) != 1 {
		t.Error("partitions must survive assembly")
	}
}

func TestClearRecoveryData(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_ = store.SaveChange(ctx, "formA", "draft")
	if err := ClearRecoveryData(ctx, store); err != nil {
		t.Fatalf("ClearRecoveryData failed: %v", err)
	}
	if has, _ := store.HasAny(ctx); has {
		t.Error("store should be empty after clear")
	}
}

func TestRestore_BroadcastsBothEvents(t *testing.T) {
	bus := events.NewBroadcaster()
	txCh, cancelTx := bus.Subscribe(domain.EventRestoreTransactions, 1)
	defer cancelTx()
	chCh, cancelCh := bus.Subscribe(domain.EventRestoreUnsavedChanges, 1)
	defer cancelCh()

	Restore(bus, &domain.RecoveryPayload{
		Transactions:   []domain.PendingTransaction{{ID: "tx-1"}},
		UnsavedChanges: map[string]any{"formA": "draft"},
	})

	select {
	case ev := <-txCh:
		if len(ev.Transactions) != 1 {
			t.Errorf("transactions event payload: %+v", ev)
		}
	default:
		t.Error("restore_transactions not broadcast")
	}

	select {
	case ev := <-chCh:
		if ev.UnsavedChanges["formA"] != "draft" {
			t.Errorf("changes event payload: %+v", ev)
		}
	default:
		t.Error("restore_unsaved_changes not broadcast")
	}
}

func TestRestore_FallsBackToEnvelopeChanges(t *testing.T) {
	bus := events.NewBroadcaster()
	chCh, cancel := bus.Subscribe(domain.EventRestoreUnsavedChanges, 1)
	defer cancel()

	// No live partition, but an auth envelope from a pre-restart fault.
	Restore(bus, &domain.RecoveryPayload{
		AuthRecovery: &domain.AuthRecoveryEnvelope{
			URL:            "/budget",
			UnsavedChanges: map[string]any{"formB": 42},
		},
	})

	select {
	case ev := <-chCh:
		if ev.UnsavedChanges["formB"] != 42 {
			t.Errorf("payload: %+v", ev.UnsavedChanges)
		}
	default:
		t.Error("envelope changes were not rebroadcast")
	}
}

func TestRestore_EmptyPayloadIsSilent(t *testing.T) {
	bus := events.NewBroadcaster()
	ch, cancel := bus.Subscribe(domain.EventRestoreTransactions, 1)
	defer cancel()

	Restore(bus, &domain.RecoveryPayload{})
	Restore(bus, nil)

	select {
	case <-ch:
		t.Error("empty payload must not publish anything")
	default:
	}
}
