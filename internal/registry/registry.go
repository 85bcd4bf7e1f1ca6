// Package registry holds every board in memory and serialises mutation per board.
//
// The map itself is guarded by an RWMutex that is only held long enough to
// find or insert an entry. Each entry carries its own mutex, so stepping one
// board never blocks callers working on another.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lifeboard-backend/internal/domain"
	"github.com/yungbote/lifeboard-backend/internal/life"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
)

// ChangeFunc is invoked after a board has been created or advanced.
type ChangeFunc func(ctx context.Context)

type entry struct {
	mu    sync.Mutex
	board domain.Board
}

func (e *entry) snapshot() domain.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.Clone()
}

type Registry struct {
	log *logger.Logger

	mu     sync.RWMutex
	boards map[uuid.UUID]*entry

	hookMu   sync.RWMutex
	onChange ChangeFunc

	now   func() time.Time
	newID func() uuid.UUID
}

type Option func(*Registry)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(r *Registry) { r.newID = gen }
}

func New(log *logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		log:    log.With("component", "BoardRegistry"),
		boards: make(map[uuid.UUID]*entry),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnChange registers the hook fired after every mutation. Passing nil clears it.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.hookMu.Lock()
	r.onChange = fn
	r.hookMu.Unlock()
}

func (r *Registry) changed(ctx context.Context) {
	r.hookMu.RLock()
	fn := r.onChange
	r.hookMu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

func (r *Registry) lookup(id uuid.UUID) (*entry, bool) {
	r.mu.RLock()
	e, ok := r.boards[id]
	r.mu.RUnlock()
	return e, ok
}

// Create validates the grid, stores a private copy under a fresh id and
// returns a copy of the stored board.
func (r *Registry) Create(ctx context.Context, state domain.Grid) (domain.Board, error) {
	if err := state.Validate(); err != nil {
		return domain.Board{}, err
	}
	board := domain.Board{
		State:     state.Clone(),
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	for {
		board.ID = r.newID()
		if _, taken := r.boards[board.ID]; !taken && board.ID != uuid.Nil {
			break
		}
	}
	r.boards[board.ID] = &entry{board: board}
	r.mu.Unlock()

	r.log.Debug("board created", "board_id", board.ID, "rows", board.State.Rows(), "cols", board.State.Cols())
	r.changed(ctx)
	return board.Clone(), nil
}

func (r *Registry) Get(id uuid.UUID) (domain.Board, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Board{}, false
	}
	return e.snapshot(), true
}

// AdvanceOne replaces the stored state with its next generation and returns
// the updated board. The read-compute-write cycle holds the entry lock.
func (r *Registry) AdvanceOne(ctx context.Context, id uuid.UUID) (domain.Board, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Board{}, false
	}
	e.mu.Lock()
	e.board.State = life.Next(e.board.State)
	e.board.Generation++
	out := e.board.Clone()
	e.mu.Unlock()

	r.changed(ctx)
	return out, true
}

// AdvanceN projects the board steps generations ahead without touching it.
func (r *Registry) AdvanceN(id uuid.UUID, steps int) (domain.Grid, bool, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, false, nil
	}
	board := e.snapshot()
	out, err := life.Advance(board.State, steps)
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}

// Stabilize searches for a fixed point starting from a copy of the board.
func (r *Registry) Stabilize(id uuid.UUID, maxIterations int) (domain.Grid, int, bool, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, 0, false, nil
	}
	board := e.snapshot()
	out, iterations, err := life.Stabilize(board.State, maxIterations)
	if err != nil {
		return nil, iterations, true, err
	}
	return out, iterations, true, nil
}

// List returns copies of every board ordered by creation time, then id.
func (r *Registry) List() []domain.Board {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.boards))
	for _, e := range r.boards {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]domain.Board, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Snapshot returns a point-in-time copy of every board. Entries are cloned
// one at a time under their own locks.
func (r *Registry) Snapshot() []domain.Board {
	return r.List()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}

// Restore inserts boards, overwriting entries with the same id. Invalid
// boards are skipped and logged. It does not fire the change hook.
func (r *Registry) Restore(boards []domain.Board) int {
	restored := 0
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range boards {
		if err := b.Validate(); err != nil {
			r.log.Warn("skipping invalid board on restore", "board_id", b.ID, "error", err)
			continue
		}
		if e, ok := r.boards[b.ID]; ok {
			e.mu.Lock()
			e.board = b.Clone()
			e.mu.Unlock()
		} else {
			r.boards[b.ID] = &entry{board: b.Clone()}
		}
		restored++
	}
	return restored
}
