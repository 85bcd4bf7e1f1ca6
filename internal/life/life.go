// Package life implements Conway's Game of Life on bounded grids.
//
// Cells outside the grid are treated as permanently dead; there is no
// wraparound. All functions are pure: inputs are never modified.
package life

import (
	"fmt"

	"github.com/yungbote/lifeboard-backend/internal/domain"
)

// DefaultMaxIterations bounds Stabilize when the caller does not choose a limit.
const DefaultMaxIterations = 1000

// Next computes one generation. The grid must be non-degenerate; callers
// validate with Grid.Validate before stepping.
func Next(cur domain.Grid) domain.Grid {
	rows, cols := cur.Rows(), cur.Cols()
	nxt := domain.NewGrid(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			n := aliveNeighbors(cur, r, c, rows, cols)
			alive := cur[r][c]
			nxt[r][c] = (alive && (n == 2 || n == 3)) || (!alive && n == 3)
		}
	}
	return nxt
}

func aliveNeighbors(g domain.Grid, row, col, rows, cols int) int {
	count := 0
	for dr := -1; dr <= 1; dr++ {
		r := row + dr
		if r < 0 || r >= rows {
			continue
		}
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			c := col + dc
			if c >= 0 && c < cols && g[r][c] {
				count++
			}
		}
	}
	return count
}

// Advance applies Next steps times. Zero steps returns a copy of the input.
func Advance(g domain.Grid, steps int) (domain.Grid, error) {
	if steps < 0 {
		return nil, fmt.Errorf("%w: steps must be >= 0, got %d", domain.ErrInvalidInput, steps)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	cur := g.Clone()
	for i := 0; i < steps; i++ {
		cur = Next(cur)
	}
	return cur, nil
}

// Stabilize steps the grid until a generation equals its predecessor and
// returns that generation together with the number of generations applied.
//
// Only period-1 fixed points are detected. Oscillators of period >= 2 run
// out the budget and yield a *domain.NotStabilizedError.
func Stabilize(g domain.Grid, maxIterations int) (domain.Grid, int, error) {
	if maxIterations < 0 {
		return nil, 0, fmt.Errorf("%w: max iterations must be >= 0, got %d", domain.ErrInvalidInput, maxIterations)
	}
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	if err := g.Validate(); err != nil {
		return nil, 0, err
	}
	prev := g
	for i := 1; i <= maxIterations; i++ {
		cur := Next(prev)
		if cur.Equal(prev) {
			return cur, i, nil
		}
		prev = cur
	}
	return nil, maxIterations, &domain.NotStabilizedError{MaxIterations: maxIterations}
}
