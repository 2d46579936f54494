// Package facecrop turns a raw face-detector candidate into the final square
// crop region used for poster portraits.
//
// Detectors return tight squares around the visible part of the face, which
// systematically cut off hair and forehead. The deriver adds asymmetric
// padding biased toward the top, keeps the padded region square, and clamps
// the result inside the source image, falling back to the largest square
// that fits when the padded ideal cannot.
package facecrop

import (
	"errors"
	"fmt"
	"math"

	"github.com/posterface/posterface/pkg/geometry"
)

// ErrNotSquare is returned when the candidate handed to Derive is not
// square. The face-detector boundary is contracted to always produce
// squares, so a non-square candidate is a caller bug rather than a
// condition to recover from.
var ErrNotSquare = errors.New("facecrop: candidate rectangle is not square")

// Options controls the padding applied around the detected face.
type Options struct {
	// HorizontalPadding is the padding added on the left and on the right,
	// in units of the candidate's equivalent square side.
	HorizontalPadding float64

	// TopScaleFactor is the ratio between the top padding and the
	// horizontal one, typically in [1.0, 1.5]. The bottom padding is
	// adjusted so that the total vertical padding equals the total
	// horizontal padding and a square candidate stays square.
	TopScaleFactor float64
}

// DefaultOptions returns the padding values tuned on real poster headshots.
func DefaultOptions() Options {
	return Options{
		HorizontalPadding: 0.4,
		TopScaleFactor:    1.25,
	}
}

// Derive computes the final crop region for a square face candidate within
// an image of the given size.
//
// The padded region keeps its exact size and is translated inside the image
// when it fits. When it does not, the result degrades to the largest square
// that fits in the image, centered as closely as possible on the original,
// unpadded candidate. The returned rectangle is always square and always
// fully contained in [0, imageWidth) x [0, imageHeight).
func Derive(candidate geometry.Rectangle, imageWidth, imageHeight int, opts Options) (geometry.Rectangle, error) {
	if !candidate.IsSquare() {
		return geometry.Rectangle{}, fmt.Errorf("%w: %v", ErrNotSquare, candidate)
	}
	right := int(math.Round(opts.HorizontalPadding * float64(candidate.EquivalentSquareSide())))
	top := int(math.Round(opts.TopScaleFactor * float64(right)))
	// Total vertical padding matches the total horizontal one, so the
	// padded rectangle is square whatever the top scale factor.
	bottom := 2*right - top
	padded := candidate.Pad(top, right, bottom, right)
	if padded.FitsWithin(imageWidth, imageHeight) {
		return padded.ShiftToFit(imageWidth, imageHeight)
	}
	// The padded ideal exceeds the image: settle for the largest square
	// that fits, centered on the unpadded candidate.
	side := min(imageWidth, imageHeight)
	fallback := geometry.NewSquare(
		candidate.X0-(side-candidate.Width)/2,
		candidate.Y0-(side-candidate.Height)/2,
		side,
	)
	return fallback.ShiftToFit(imageWidth, imageHeight)
}

// SelectCandidate picks the subject rectangle from a detector candidate
// list, assumed sorted from the smallest to the largest area. With no
// candidates the whole-image centered square is used; with more than one
// the largest wins.
func SelectCandidate(candidates []geometry.Rectangle, imageWidth, imageHeight int) geometry.Rectangle {
	if len(candidates) == 0 {
		return geometry.SquareFromSize(imageWidth, imageHeight)
	}
	return candidates[len(candidates)-1]
}
