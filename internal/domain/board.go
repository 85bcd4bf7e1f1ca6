package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Grid is a rectangular matrix of cells indexed [row][col]; true means alive.
type Grid [][]bool

// NewGrid allocates an all-dead grid.
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	cells := make([]bool, rows*cols)
	for r := range g {
		g[r] = cells[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return g
}

func (g Grid) Rows() int { return len(g) }

func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Validate reports ErrInvalidInput for nil, empty or ragged grids.
func (g Grid) Validate() error {
	if len(g) == 0 || len(g[0]) == 0 {
		return fmt.Errorf("%w: state must be a non-empty 2D list", ErrInvalidInput)
	}
	cols := len(g[0])
	for r, row := range g {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvalidInput, r, len(row), cols)
		}
	}
	return nil
}

// Clone returns a deep copy that shares no backing storage with g.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := NewGrid(g.Rows(), g.Cols())
	for r := range g {
		copy(out[r], g[r])
	}
	return out
}

// Equal compares dimensions and every cell.
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for r := range g {
		if len(g[r]) != len(other[r]) {
			return false
		}
		for c := range g[r] {
			if g[r][c] != other[r][c] {
				return false
			}
		}
	}
	return true
}

func (g Grid) Alive() int {
	n := 0
	for _, row := range g {
		for _, cell := range row {
			if cell {
				n++
			}
		}
	}
	return n
}

type Board struct {
	ID         uuid.UUID `json:"id"`
	State      Grid      `json:"state"`
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
}

// Clone copies the board including its grid.
func (b Board) Clone() Board {
	b.State = b.State.Clone()
	return b
}

// Validate checks the invariants a stored board must hold.
func (b Board) Validate() error {
	if b.ID == uuid.Nil {
		return fmt.Errorf("%w: board id is required", ErrInvalidInput)
	}
	return b.State.Validate()
}

func (b Board) Summary() BoardSummary {
	return BoardSummary{
		ID:         b.ID,
		Rows:       b.State.Rows(),
		Cols:       b.State.Cols(),
		Alive:      b.State.Alive(),
		Generation: b.Generation,
		CreatedAt:  b.CreatedAt,
	}
}

type BoardSummary struct {
	ID         uuid.UUID `json:"id"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Alive      int       `json:"alive"`
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
}
