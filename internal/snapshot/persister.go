package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/lifeboard-backend/internal/domain"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
)

type Mode string

const (
	// ModeSync saves inside the mutating request, after the mutation is
	// visible and before the response is written.
	ModeSync Mode = "sync"
	// ModeAsync marks the registry dirty and lets Run save in the background.
	ModeAsync Mode = "async"
)

const DefaultTimeout = 10 * time.Second

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSync:
		return ModeSync, nil
	case ModeAsync:
		return ModeAsync, nil
	default:
		return "", fmt.Errorf("unknown snapshot mode %q", s)
	}
}

// Observer receives save and restore outcomes, typically for metrics.
type Observer interface {
	ObserveSnapshotSave(store string, err error, dur time.Duration)
	ObserveSnapshotRestore(boards int)
}

// Source is the state a Persister saves and restores.
type Source interface {
	Snapshot() []domain.Board
	Restore(boards []domain.Board) int
}

type PersisterOptions struct {
	Mode     Mode
	Timeout  time.Duration
	Now      func() time.Time
	// Observer may be nil.
	Observer Observer
}

// Persister writes registry snapshots to a Store. Saves are serialised and
// each one captures the registry at the moment it starts, so a later save
// never loses to an earlier one.
type Persister struct {
	log     *logger.Logger
	store   Store
	src     Source
	mode    Mode
	timeout time.Duration
	now     func() time.Time
	obs     Observer

	saveMu  sync.Mutex
	dirty   chan struct{}
	// set when a sync-mode save failed and the stored snapshot is stale
	unsaved atomic.Bool
}

func NewPersister(log *logger.Logger, store Store, src Source, opts PersisterOptions) *Persister {
	if store == nil {
		store = Discard{}
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeSync
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Persister{
		log:     log.With("component", "SnapshotPersister", "store", store.Name(), "mode", string(mode)),
		store:   store,
		src:     src,
		mode:    mode,
		timeout: timeout,
		now:     now,
		obs:     opts.Observer,
		dirty:   make(chan struct{}, 1),
	}
}

func (p *Persister) Mode() Mode { return p.mode }

func (p *Persister) StoreName() string { return p.store.Name() }

// Notify records that the registry changed. It never fails: save errors are
// logged and the caller carries on.
func (p *Persister) Notify(ctx context.Context) {
	if p.mode == ModeAsync {
		select {
		case p.dirty <- struct{}{}:
		default:
		}
		return
	}
	// The mutation already happened; a client disconnect must not abort its save.
	if err := p.Persist(context.WithoutCancel(ctx)); err != nil {
		p.unsaved.Store(true)
		p.log.Error("snapshot save failed", "error", err)
	}
}

// Persist saves the current registry contents.
func (p *Persister) Persist(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	doc := NewDocument(p.src.Snapshot(), p.now())

	saveCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.store.Save(saveCtx, doc)
	if p.obs != nil {
		p.obs.ObserveSnapshotSave(p.store.Name(), err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("save snapshot to %s: %w", p.store.Name(), err)
	}
	p.log.Debug("snapshot saved", "boards", len(doc.Boards), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// Run drains dirty notifications until ctx is done, then flushes anything
// still unsaved. In sync mode nothing is ever queued, so it only waits.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return p.Flush(context.WithoutCancel(ctx))
		case <-p.dirty:
			if err := p.Persist(ctx); err != nil {
				p.unsaved.Store(true)
				p.log.Error("snapshot save failed", "error", err)
			}
		}
	}
}

// Flush saves if a change has not reached the store yet.
func (p *Persister) Flush(ctx context.Context) error {
	pending := p.unsaved.Swap(false)
	select {
	case <-p.dirty:
		pending = true
	default:
	}
	if !pending {
		return nil
	}
	if err := p.Persist(ctx); err != nil {
		p.unsaved.Store(true)
		return err
	}
	return nil
}

// Restore loads the stored snapshot into the source and returns how many
// boards were restored. A missing or unreadable snapshot leaves the source
// empty; the service still starts.
func (p *Persister) Restore(ctx context.Context) int {
	loadCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	doc, err := p.store.Load(loadCtx)
	if errors.Is(err, ErrNoSnapshot) {
		p.log.Info("no snapshot found, starting empty")
		return 0
	}
	if err != nil {
		p.log.Error("snapshot load failed, starting empty", "error", err)
		return 0
	}

	boards, skipped := doc.DomainBoards()
	for _, s := range skipped {
		p.log.Warn("skipping invalid snapshot record", "error", s)
	}
	n := p.src.Restore(boards)
	if p.obs != nil {
		p.obs.ObserveSnapshotRestore(n)
	}
	p.log.Info("snapshot restored",
		"boards", n,
		"skipped", len(skipped),
		"version", doc.Version,
		"saved_at", doc.SavedAt,
	)
	return n
}

// Close closes the underlying store.
func (p *Persister) Close() error {
	return p.store.Close()
}
