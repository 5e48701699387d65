package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"strafen/internal/amqp"
	"strafen/internal/core"
	"strafen/internal/services"
)

type fakeSyncer struct {
	mu       sync.Mutex
	batches  []string
	pending  []int
	sweeps   int
	batchErr error
}

func (f *fakeSyncer) SyncBatch(_ context.Context, batchID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return false, f.batchErr
	}
	f.batches = append(f.batches, batchID)
	return true, nil
}

func (f *fakeSyncer) SyncPending(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	if len(f.pending) == 0 {
		return 0, nil
	}
	n := f.pending[0]
	f.pending = f.pending[1:]
	return n, nil
}

func (f *fakeSyncer) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

type fakeCatalogSource struct {
	catalog core.Catalog
	err     error
}

func (f fakeCatalogSource) Load(context.Context) (core.Catalog, error) {
	return f.catalog, f.err
}

type fakeMirror struct {
	mu       sync.Mutex
	replaced []core.Catalog
}

func (f *fakeMirror) ReplaceCatalog(_ context.Context, c core.Catalog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, c)
	return nil
}

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaced)
}

type fakeConsumer struct {
	messages []*amqp.EntrySyncMessage
	handled  chan error
}

func (f *fakeConsumer) ConsumeEntrySync(ctx context.Context, handler func(context.Context, *amqp.EntrySyncMessage) error) error {
	for _, m := range f.messages {
		f.handled <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func testCatalog() core.Catalog {
	c := core.NewCatalog()
	c.Add("Zu spät", "5,00 €")
	return c
}

func TestSyncWorker_HandleSyncMessage(t *testing.T) {
	syncer := &fakeSyncer{}
	w := NewSyncWorker(syncer, fakeCatalogSource{}, &fakeMirror{})

	if err := w.HandleSyncMessage(context.Background(), amqp.NewEntrySyncMessage("b1", 2)); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if len(syncer.batches) != 1 || syncer.batches[0] != "b1" {
		t.Errorf("batches = %v", syncer.batches)
	}
}

func TestSyncWorker_HandleSyncMessageErrors(t *testing.T) {
	t.Run("unknown batch is dropped", func(t *testing.T) {
		syncer := &fakeSyncer{batchErr: services.ErrBatchNotFound}
		w := NewSyncWorker(syncer, fakeCatalogSource{}, &fakeMirror{})
		if err := w.HandleSyncMessage(context.Background(), amqp.NewEntrySyncMessage("gone", 1)); err != nil {
			t.Errorf("HandleSyncMessage() error = %v, want nil", err)
		}
	})

	t.Run("append failure is returned", func(t *testing.T) {
		syncer := &fakeSyncer{batchErr: errors.New("quota exceeded")}
		w := NewSyncWorker(syncer, fakeCatalogSource{}, &fakeMirror{})
		if err := w.HandleSyncMessage(context.Background(), amqp.NewEntrySyncMessage("b1", 1)); err == nil {
			t.Error("HandleSyncMessage() error = nil, want error")
		}
	})
}

func TestSyncWorker_StartupSyncCheck(t *testing.T) {
	syncer := &fakeSyncer{pending: []int{10, 10, 3}}
	w := NewSyncWorker(syncer, fakeCatalogSource{}, &fakeMirror{})

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if syncer.sweeps != 4 {
		t.Errorf("sweeps = %d, want 4", syncer.sweeps)
	}
}

func TestSyncWorker_StartupSyncCheckIsBounded(t *testing.T) {
	syncer := &fakeSyncer{pending: []int{1, 1, 1, 1, 1, 1, 1, 1}}
	w := NewSyncWorker(syncer, fakeCatalogSource{}, &fakeMirror{})

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if syncer.sweeps != startupRounds {
		t.Errorf("sweeps = %d, want %d", syncer.sweeps, startupRounds)
	}
}

func TestSyncWorker_MirrorCatalog(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewSyncWorker(&fakeSyncer{}, fakeCatalogSource{catalog: testCatalog()}, mirror)

	if err := w.MirrorCatalog(context.Background()); err != nil {
		t.Fatalf("MirrorCatalog() error = %v", err)
	}
	if mirror.count() != 1 || mirror.replaced[0].Len() != 1 {
		t.Errorf("replaced = %+v", mirror.replaced)
	}

	w = NewSyncWorker(&fakeSyncer{}, fakeCatalogSource{err: errors.New("quota exceeded")}, mirror)
	if err := w.MirrorCatalog(context.Background()); err == nil {
		t.Error("MirrorCatalog() error = nil, want error")
	}
	if mirror.count() != 1 {
		t.Error("a failed load must not touch the mirror")
	}
}

func TestSyncWorker_Run(t *testing.T) {
	syncer := &fakeSyncer{}
	mirror := &fakeMirror{}
	w := NewSyncWorker(syncer, fakeCatalogSource{catalog: testCatalog()}, mirror)
	consumer := &fakeConsumer{
		messages: []*amqp.EntrySyncMessage{amqp.NewEntrySyncMessage("b1", 1)},
		handled:  make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, consumer, nil, RunConfig{
			SyncInterval:           5 * time.Millisecond,
			CatalogRefreshInterval: 5 * time.Millisecond,
		})
	}()

	select {
	case err := <-consumer.handled:
		if err != nil {
			t.Errorf("handler error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message was not handled")
	}

	deadline := time.Now().Add(2 * time.Second)
	for (syncer.sweepCount() == 0 || mirror.count() == 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if syncer.sweepCount() == 0 || mirror.count() == 0 {
		t.Errorf("sweeps = %d, catalog refreshes = %d", syncer.sweepCount(), mirror.count())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSyncWorker_RunWithoutConsumer(t *testing.T) {
	w := NewSyncWorker(&fakeSyncer{}, fakeCatalogSource{catalog: testCatalog()}, &fakeMirror{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx, nil, nil, RunConfig{SyncInterval: time.Millisecond, CatalogRefreshInterval: time.Hour}); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

type fakeSweeper struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (f *fakeSweeper) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeSweeper) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func TestSyncWorker_RunWithSweeper(t *testing.T) {
	syncer := &fakeSyncer{}
	sweeper := &fakeSweeper{}
	w := NewSyncWorker(syncer, fakeCatalogSource{catalog: testCatalog()}, &fakeMirror{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx, nil, sweeper, RunConfig{SyncInterval: time.Millisecond, CatalogRefreshInterval: time.Hour}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !sweeper.started || !sweeper.stopped {
		t.Errorf("sweeper started=%v stopped=%v", sweeper.started, sweeper.stopped)
	}
	if syncer.sweepCount() != 0 {
		t.Error("the built-in ticker must not run next to a sweeper")
	}
}
