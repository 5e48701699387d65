package services

import (
	"context"
	"errors"
	"testing"

	"strafen/internal/core"
)

type fakeLedgerStore struct {
	rows     [][]core.LedgerRow
	err      error
	closed   bool
	closeErr error
}

func (f *fakeLedgerStore) AppendLedger(_ context.Context, rows []core.LedgerRow) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, rows)
	return "batch-1", nil
}

func (f *fakeLedgerStore) Close() error {
	f.closed = true
	return f.closeErr
}

type fakePublisher struct {
	published map[string]int
	err       error
	closed    bool
}

func (f *fakePublisher) PublishEntrySync(_ context.Context, batchID string, rows int) error {
	if f.err != nil {
		return f.err
	}
	if f.published == nil {
		f.published = map[string]int{}
	}
	f.published[batchID] = rows
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func testRows(n int) []core.LedgerRow {
	rows := make([]core.LedgerRow, n)
	for i := range rows {
		rows[i] = core.LedgerRow{Date: "07.03.2026", Name: "Max", Infraction: core.PaidLabel, FinalCost: core.UnitMarker}
	}
	return rows
}

func TestEntryService_Record(t *testing.T) {
	store := &fakeLedgerStore{}
	pub := &fakePublisher{}
	service := NewEntryService(store, pub)

	id, err := service.Record(context.Background(), testRows(3))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if id != "batch-1" {
		t.Errorf("Record() id = %q", id)
	}
	if len(store.rows) != 1 || len(store.rows[0]) != 3 {
		t.Errorf("stored = %v, want one batch of 3", store.rows)
	}
	if pub.published["batch-1"] != 3 {
		t.Errorf("published = %v", pub.published)
	}
}

func TestEntryService_RecordPublishFailureIsNotFatal(t *testing.T) {
	store := &fakeLedgerStore{}
	service := NewEntryService(store, &fakePublisher{err: errors.New("circuit breaker is open")})

	if _, err := service.Record(context.Background(), testRows(1)); err != nil {
		t.Fatalf("Record() error = %v, want nil", err)
	}
	if len(store.rows) != 1 {
		t.Error("rows should be saved locally")
	}
}

func TestEntryService_RecordWithoutPublisher(t *testing.T) {
	service := NewEntryService(&fakeLedgerStore{}, nil)
	if _, err := service.Record(context.Background(), testRows(1)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}

func TestEntryService_RecordStorageError(t *testing.T) {
	pub := &fakePublisher{}
	service := NewEntryService(&fakeLedgerStore{err: errors.New("disk full")}, pub)

	if _, err := service.Record(context.Background(), testRows(1)); err == nil {
		t.Fatal("Record() error = nil, want error")
	}
	if len(pub.published) != 0 {
		t.Error("nothing should be published when saving fails")
	}
}

func TestEntryService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &EntryService{}
		if err := service.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes both", func(t *testing.T) {
		store := &fakeLedgerStore{closeErr: errors.New("busy")}
		pub := &fakePublisher{}
		err := NewEntryService(store, pub).Close()
		if err == nil {
			t.Error("Close() error = nil, want storage error")
		}
		if !store.closed || !pub.closed {
			t.Error("both components should be closed")
		}
	})
}
