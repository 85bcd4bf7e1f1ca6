// Package render draws boards as PNG images.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/yungbote/lifeboard-backend/internal/domain"
)

const (
	DefaultCellSize = 10
	MaxCellSize     = 64
	DefaultMaxSide  = 4096
)

var (
	DeadColor = color.RGBA{R: 0xf7, G: 0xf7, B: 0xf2, A: 0xff}
	LiveColor = color.RGBA{R: 0x1f, G: 0x2a, B: 0x37, A: 0xff}
	LineColor = color.RGBA{R: 0xdc, G: 0xdc, B: 0xd5, A: 0xff}
)

// CellSize clamps the requested cell size so neither image side exceeds
// maxSide pixels. It returns an ErrInvalidInput error when the board is
// wider or taller than maxSide cells.
func CellSize(rows, cols, requested, maxSide int) (int, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	if requested <= 0 {
		requested = DefaultCellSize
	}
	if requested > MaxCellSize {
		requested = MaxCellSize
	}
	longest := rows
	if cols > longest {
		longest = cols
	}
	if longest > maxSide {
		return 0, fmt.Errorf("%w: board %dx%d exceeds %d pixels per side", domain.ErrInvalidInput, rows, cols, maxSide)
	}
	if longest*requested > maxSide {
		requested = maxSide / longest
	}
	return requested, nil
}

// PNG renders g with cellSize pixels per cell. Grid lines are drawn once
// cells are large enough to keep them readable.
func PNG(g domain.Grid, cellSize, maxSide int) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	rows, cols := g.Rows(), g.Cols()
	size, err := CellSize(rows, cols, cellSize, maxSide)
	if err != nil {
		return nil, err
	}

	// One pixel per cell, then nearest-neighbour upscale keeps edges sharp.
	small := image.NewPaletted(image.Rect(0, 0, cols, rows), color.Palette{DeadColor, LiveColor})
	for r, row := range g {
		for c, alive := range row {
			if alive {
				small.SetColorIndex(c, r, 1)
			}
		}
	}
	w, h := cols*size, rows*size
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), small, small.Bounds(), draw.Src, nil)

	dc := gg.NewContextForRGBA(scaled)
	if size >= 4 {
		dc.SetColor(LineColor)
		dc.SetLineWidth(1)
		for c := 1; c < cols; c++ {
			x := float64(c*size) + 0.5
			dc.DrawLine(x, 0, x, float64(h))
		}
		for r := 1; r < rows; r++ {
			y := float64(r*size) + 0.5
			dc.DrawLine(0, y, float64(w), y)
		}
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
