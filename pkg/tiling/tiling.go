// Package tiling computes rectangular mosaic layouts for same-size image
// tiles, picking a grid whose overall aspect ratio is as close as possible
// to a target and scattering the tiles over the grid at random.
package tiling

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"time"
)

// DefaultAspectRatio is the target width/height ratio of the mosaic,
// matching an ISO paper page in landscape orientation.
const DefaultAspectRatio = 1.414

// Plan is the computed layout for one mosaic build: the grid shape, the
// tile size, the optional spacing between tiles, and the pixel offset
// assigned to each image index. A plan is produced once, consumed
// immediately to paste the tiles, and not persisted.
type Plan struct {
	Columns    int
	Rows       int
	TileWidth  int
	TileHeight int
	Padding    int
	Slots      []image.Point
}

// Options controls the layout computation.
type Options struct {
	// AspectRatio is the target width/height ratio of the mosaic. Zero
	// means DefaultAspectRatio.
	AspectRatio float64

	// Padding is the spacing in pixels inserted between tiles and around
	// the mosaic border.
	Padding int

	// Rand is the randomness source for the slot shuffle. Nil means a
	// time-seeded source; pass a seeded one to make the layout
	// reproducible.
	Rand *rand.Rand
}

// PlanTiling computes the mosaic layout for numImages tiles of the given
// size. A non-positive tileHeight defaults to tileWidth, producing square
// tiles. Every image index gets exactly one slot; grid cells beyond
// numImages are left empty.
func PlanTiling(numImages, tileWidth, tileHeight int, opts Options) (Plan, error) {
	if numImages <= 0 {
		return Plan{}, fmt.Errorf("tiling: nothing to tile (%d images)", numImages)
	}
	if tileWidth <= 0 {
		return Plan{}, fmt.Errorf("tiling: invalid tile width %d", tileWidth)
	}
	if tileHeight <= 0 {
		tileHeight = tileWidth
	}
	aspectRatio := opts.AspectRatio
	if aspectRatio <= 0 {
		aspectRatio = DefaultAspectRatio
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	// Treating the mosaic as a continuous rectangle of columns*rows tiles,
	// this is the column count bringing its aspect ratio closest to the
	// target.
	columns := int(math.Round(math.Sqrt(aspectRatio*float64(numImages)*float64(tileHeight)/float64(tileWidth)) + 0.5))
	rows := int(math.Round(float64(numImages)/float64(columns) + 0.5))
	if columns*rows < numImages {
		panic(fmt.Sprintf("tiling: %d x %d grid cannot hold %d images", columns, rows, numImages))
	}
	// Scatter the images over the grid: shuffle all the slot indices and
	// hand the first numImages of them out in image order.
	perm := rng.Perm(columns * rows)
	slots := make([]image.Point, numImages)
	for i := range slots {
		slot := perm[i]
		col, row := slot%columns, slot/columns
		slots[i] = image.Point{
			X: opts.Padding + col*(tileWidth+opts.Padding),
			Y: opts.Padding + row*(tileHeight+opts.Padding),
		}
	}
	return Plan{
		Columns:    columns,
		Rows:       rows,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Padding:    opts.Padding,
		Slots:      slots,
	}, nil
}

// Slot returns the pixel offset of the top-left corner of the tile for the
// given image index.
func (p Plan) Slot(i int) image.Point {
	return p.Slots[i]
}

// CanvasSize returns the exact pixel size of the mosaic canvas. With zero
// padding this is columns*tileWidth by rows*tileHeight.
func (p Plan) CanvasSize() (int, int) {
	width := p.Columns*(p.TileWidth+p.Padding) + p.Padding
	height := p.Rows*(p.TileHeight+p.Padding) + p.Padding
	return width, height
}
