package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lifeboard-backend/internal/domain"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
	"github.com/yungbote/lifeboard-backend/internal/registry"
)

type memStore struct {
	mu    sync.Mutex
	doc   *Document
	saves int
	err   error
	block chan struct{}
}

func (m *memStore) Name() string { return "mem" }

func (m *memStore) Load(context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.doc == nil {
		return nil, ErrNoSnapshot
	}
	return m.doc, nil
}

func (m *memStore) Save(ctx context.Context, doc *Document) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.doc = doc
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) snapshot() (*Document, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc, m.saves
}

func wire(t *testing.T, store Store, mode Mode) (*registry.Registry, *Persister) {
	t.Helper()
	reg := registry.New(logger.Nop())
	p := NewPersister(logger.Nop(), store, reg, PersisterOptions{Mode: mode, Timeout: 2 * time.Second})
	reg.OnChange(p.Notify)
	return reg, p
}

func TestSyncPersisterSavesOnEveryMutation(t *testing.T) {
	store := &memStore{}
	reg, _ := wire(t, store, ModeSync)
	ctx := context.Background()

	b, err := reg.Create(ctx, domain.Grid{{false, true, false}, {false, true, false}, {false, true, false}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := reg.AdvanceOne(ctx, b.ID); !ok {
		t.Fatalf("AdvanceOne: board missing")
	}
	doc, saves := store.snapshot()
	if saves != 2 {
		t.Fatalf("saves: want=2 got=%d", saves)
	}
	if len(doc.Boards) != 1 || doc.Boards[0].Generation != 1 {
		t.Fatalf("saved document does not reflect the advance: %+v", doc.Boards)
	}
}

func TestSyncPersisterSurvivesCancelledRequest(t *testing.T) {
	store := &memStore{}
	reg, _ := wire(t, store, ModeSync)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := reg.Create(ctx, domain.Grid{{true}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc, _ := store.snapshot(); doc == nil || len(doc.Boards) != 1 {
		t.Fatalf("save should run despite the cancelled request context")
	}
}

func TestPersistFailureDoesNotFailMutation(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	reg, p := wire(t, store, ModeSync)

	b, err := reg.Create(context.Background(), domain.Grid{{true, true}, {true, true}})
	if err != nil {
		t.Fatalf("Create should succeed despite the failing store: %v", err)
	}
	if _, ok := reg.Get(b.ID); !ok {
		t.Fatalf("board should be readable after a failed save")
	}

	// The failed save is retried on flush.
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if doc, _ := store.snapshot(); doc == nil || len(doc.Boards) != 1 {
		t.Fatalf("flush should persist the unsaved board")
	}
	_, before := store.snapshot()
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if _, after := store.snapshot(); after != before {
		t.Fatalf("flush with nothing pending should not save: before=%d after=%d", before, after)
	}
}

func TestAsyncPersisterCoalescesAndFlushesOnShutdown(t *testing.T) {
	store := &memStore{}
	reg, p := wire(t, store, ModeAsync)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, err := reg.Create(ctx, domain.Grid{{i%2 == 0}}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, saves := store.snapshot(); saves != 0 {
		t.Fatalf("async mode must not save inline: saves=%d", saves)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	doc, saves := store.snapshot()
	if saves != 1 {
		t.Fatalf("20 notifications should coalesce into one save: got=%d", saves)
	}
	if len(doc.Boards) != 20 {
		t.Fatalf("saved boards: want=20 got=%d", len(doc.Boards))
	}
}

func TestRestoreRoundTripThroughFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	reg, _ := wire(t, store, ModeSync)

	ctx := context.Background()
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			grid := domain.NewGrid(3+i%4, 2+i%5)
			grid[i%3][i%2] = true
			b, err := reg.Create(ctx, grid)
			if err != nil {
				return err
			}
			if i%2 == 0 {
				reg.AdvanceOne(ctx, b.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("populate: %v", err)
	}
	want := reg.Snapshot()

	reopened, _ := NewFileStore(path)
	fresh := registry.New(logger.Nop())
	p := NewPersister(logger.Nop(), reopened, fresh, PersisterOptions{})
	if n := p.Restore(ctx); n != len(want) {
		t.Fatalf("restored: want=%d got=%d", len(want), n)
	}
	got := fresh.Snapshot()
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("board %d id: want=%s got=%s", i, want[i].ID, got[i].ID)
		}
		if !got[i].State.Equal(want[i].State) {
			t.Fatalf("board %s state: want=%v got=%v", want[i].ID, want[i].State, got[i].State)
		}
		if got[i].Generation != want[i].Generation {
			t.Fatalf("board %s generation: want=%d got=%d", want[i].ID, want[i].Generation, got[i].Generation)
		}
	}
}

func TestRestoreWithoutSnapshotStartsEmpty(t *testing.T) {
	for name, store := range map[string]*memStore{
		"missing": {},
		"broken":  {err: errors.New("permission denied")},
	} {
		reg := registry.New(logger.Nop())
		p := NewPersister(logger.Nop(), store, reg, PersisterOptions{})
		if n := p.Restore(context.Background()); n != 0 {
			t.Fatalf("%s: restored: want=0 got=%d", name, n)
		}
		if reg.Len() != 0 {
			t.Fatalf("%s: registry should be empty", name)
		}
	}
}

func TestSaveTimeoutIsReportedAsError(t *testing.T) {
	store := &memStore{block: make(chan struct{})}
	reg := registry.New(logger.Nop())
	p := NewPersister(logger.Nop(), store, reg, PersisterOptions{Timeout: 20 * time.Millisecond})
	err := p.Persist(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"": ModeSync, "sync": ModeSync, " ASYNC ": ModeAsync}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q): want=%s got=%s err=%v", in, want, got, err)
		}
	}
	if _, err := ParseMode("eventually"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

type countingObserver struct {
	mu       sync.Mutex
	ok, fail int
	restored int
}

func (o *countingObserver) ObserveSnapshotSave(_ string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.fail++
		return
	}
	o.ok++
}

func (o *countingObserver) ObserveSnapshotRestore(boards int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.restored = boards
}

func TestPersisterReportsToObserver(t *testing.T) {
	store := &memStore{}
	obs := &countingObserver{}
	reg := registry.New(logger.Nop())
	p := NewPersister(logger.Nop(), store, reg, PersisterOptions{Mode: ModeSync, Observer: obs})
	reg.OnChange(p.Notify)
	ctx := context.Background()

	if _, err := reg.Create(ctx, domain.Grid{{true}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.mu.Lock()
	store.err = errors.New("unavailable")
	store.mu.Unlock()
	if _, err := reg.Create(ctx, domain.Grid{{false}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	obs.mu.Lock()
	ok, fail := obs.ok, obs.fail
	obs.mu.Unlock()
	if ok != 1 || fail != 1 {
		t.Fatalf("observer: want ok=1 fail=1 got ok=%d fail=%d", ok, fail)
	}

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	fresh := registry.New(logger.Nop())
	restorer := NewPersister(logger.Nop(), store, fresh, PersisterOptions{Observer: obs})
	if n := restorer.Restore(ctx); n != 1 {
		t.Fatalf("Restore: want=1 got=%d", n)
	}
	if obs.restored != 1 {
		t.Fatalf("observer restored: want=1 got=%d", obs.restored)
	}
}
