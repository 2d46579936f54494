// Package detect provides the face-detector collaborators feeding the crop
// pipeline. Backends differ in how they find faces but share one contract:
// they return zero or more square candidate rectangles in pixel
// coordinates, sorted from the smallest to the largest area.
package detect

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/posterface/posterface/pkg/geometry"
)

// Detector locates face candidates in an image.
type Detector interface {
	// DetectFaces returns the square face candidates found in the image,
	// sorted by ascending area. An empty slice with a nil error means the
	// backend ran fine and found nothing.
	DetectFaces(ctx context.Context, img image.Image) ([]geometry.Rectangle, error)
}

// squareAround returns the square of the given side centered on (cx, cy),
// rounded to pixel coordinates.
func squareAround(cx, cy, side float64) geometry.Rectangle {
	s := int(math.Round(side))
	x0 := int(math.Round(cx - side/2))
	y0 := int(math.Round(cy - side/2))
	return geometry.NewSquare(x0, y0, s)
}

// sortByArea orders candidates from the smallest to the largest, the order
// the selection policy downstream expects.
func sortByArea(candidates []geometry.Rectangle) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Less(candidates[j])
	})
}

// minDetectionSize converts a fractional minimum size into pixels, using
// the geometric mean of the image sides as the reference scale so that the
// threshold behaves the same on portrait and landscape sources.
func minDetectionSize(width, height int, fraction float64) int {
	return int(math.Round(fraction * math.Sqrt(float64(width)*float64(height))))
}
