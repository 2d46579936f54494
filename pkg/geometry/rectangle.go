// Package geometry provides the integer pixel rectangle used throughout the
// cropping pipeline, together with the padding and fitting primitives the
// face-crop deriver is built on.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrNotIntegral is returned when a rectangle is constructed from
// non-integral coordinates.
var ErrNotIntegral = errors.New("geometry: non-integral rectangle field")

// ErrCannotFit is returned when a rectangle is larger than the bounds it is
// asked to fit within.
var ErrCannotFit = errors.New("geometry: rectangle does not fit within bounds")

// Rectangle is an axis-aligned rectangle in pixel coordinates, with the
// origin at the top-left corner and y increasing downward.
//
// Width and Height are expected to be positive in every lived code path;
// the zero-size case is a caller precondition, not something the methods
// guard against.
type Rectangle struct {
	X0     int
	Y0     int
	Width  int
	Height int
}

// NewSquare returns a square rectangle with the given top-left corner and side.
func NewSquare(x0, y0, side int) Rectangle {
	return Rectangle{X0: x0, Y0: y0, Width: side, Height: side}
}

// FromFloats builds a Rectangle from floating-point values, as produced by
// detector backends working in scaled or normalized coordinates. Every value
// must be integral: pixels in a rastered image have no fractional part, and
// silently truncating here would hide detector bugs.
func FromFloats(x0, y0, width, height float64) (Rectangle, error) {
	for _, v := range []float64{x0, y0, width, height} {
		if v != math.Trunc(v) || math.IsNaN(v) || math.IsInf(v, 0) {
			return Rectangle{}, fmt.Errorf("%w: (%v, %v, %v, %v)", ErrNotIntegral, x0, y0, width, height)
		}
	}
	if width <= 0 || height <= 0 {
		return Rectangle{}, fmt.Errorf("geometry: non-positive size (%v x %v)", width, height)
	}
	return Rectangle{X0: int(x0), Y0: int(y0), Width: int(width), Height: int(height)}, nil
}

// SquareFromSize returns the largest square that fits in a canvas of the
// given size, centered in the canvas. It is the fallback candidate when no
// face is detected in an image.
func SquareFromSize(width, height int) Rectangle {
	side := min(width, height)
	return NewSquare((width-side)/2, (height-side)/2, side)
}

// Area returns the area of the rectangle.
func (r Rectangle) Area() int {
	return r.Width * r.Height
}

// IsSquare reports whether the rectangle is square.
func (r Rectangle) IsSquare() bool {
	return r.Width == r.Height
}

// Center returns the coordinates of the center of the rectangle.
func (r Rectangle) Center() (float64, float64) {
	return float64(r.X0) + float64(r.Width)/2, float64(r.Y0) + float64(r.Height)/2
}

// EquivalentSquareSide returns the side of the square with the same area as
// the rectangle, that is, the geometric mean of width and height rounded to
// the nearest integer. Fractional paddings are expressed in units of this
// side so that they scale with the rectangle itself rather than with the
// source image.
func (r Rectangle) EquivalentSquareSide() int {
	return int(math.Round(math.Sqrt(float64(r.Width) * float64(r.Height))))
}

// Pad expands the rectangle outward by the given per-side amounts and
// returns the result. No clamping is applied: the padded rectangle may have
// negative coordinates.
func (r Rectangle) Pad(top, right, bottom, left int) Rectangle {
	return Rectangle{
		X0:     r.X0 - left,
		Y0:     r.Y0 - top,
		Width:  r.Width + left + right,
		Height: r.Height + top + bottom,
	}
}

// PadUniform pads the rectangle by the same amount on all four sides.
func (r Rectangle) PadUniform(pad int) Rectangle {
	return r.Pad(pad, pad, pad, pad)
}

// PadSymmetric pads the rectangle by vertical on top and bottom and by
// horizontal on left and right.
func (r Rectangle) PadSymmetric(vertical, horizontal int) Rectangle {
	return r.Pad(vertical, horizontal, vertical, horizontal)
}

// FitsWithin reports whether the rectangle's width and height each fit in a
// canvas of the given size, irrespective of position.
func (r Rectangle) FitsWithin(width, height int) bool {
	return r.Width <= width && r.Height <= height
}

// ShiftToFit translates the rectangle by the minimal amount needed to lie
// entirely inside a canvas of the given size, preserving its width and
// height exactly. It returns ErrCannotFit when the rectangle is larger than
// the canvas; this is never a resize.
func (r Rectangle) ShiftToFit(width, height int) (Rectangle, error) {
	if !r.FitsWithin(width, height) {
		return Rectangle{}, fmt.Errorf("%w: %v in %d x %d", ErrCannotFit, r, width, height)
	}
	out := r
	out.X0 = clampInt(out.X0, 0, width-out.Width)
	out.Y0 = clampInt(out.Y0, 0, height-out.Height)
	return out, nil
}

// BoundingBox returns the (x0, y0, x1, y1) pixel box of the rectangle, with
// the bottom-right corner excluded, in the form consumed by image cropping.
func (r Rectangle) BoundingBox() (int, int, int, int) {
	return r.X0, r.Y0, r.X0 + r.Width, r.Y0 + r.Height
}

// ImageRect returns the rectangle as a stdlib image.Rectangle.
func (r Rectangle) ImageRect() image.Rectangle {
	x0, y0, x1, y1 := r.BoundingBox()
	return image.Rect(x0, y0, x1, y1)
}

// Less reports whether r has a smaller area than other. Sorting a candidate
// slice with it orders the rectangles from the smallest to the largest,
// which is the contract the selection policy downstream relies on.
func (r Rectangle) Less(other Rectangle) bool {
	return r.Area() < other.Area()
}

// String implements fmt.Stringer.
func (r Rectangle) String() string {
	return fmt.Sprintf("Rectangle(%d, %d, %d x %d)", r.X0, r.Y0, r.Width, r.Height)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
