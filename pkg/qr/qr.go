// Package qr generates the QR codes placed next to each poster, typically
// pointing at the contribution page or the full PDF.
package qr

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// Generate encodes data into a QR code image of the given square size, in
// black on white with no quiet-zone border, so the caller controls the
// spacing on the layout.
func Generate(data string, size int) (image.Image, error) {
	if data == "" {
		return nil, fmt.Errorf("nothing to encode")
	}
	code, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to build QR code: %w", err)
	}
	code.DisableBorder = true
	img := code.Image(size)
	// The qrcode library rounds the module size down; bring the image to
	// the exact requested size.
	if b := img.Bounds(); size > 0 && (b.Dx() != size || b.Dy() != size) {
		img = imaging.Resize(img, size, size, imaging.NearestNeighbor)
	}
	return img, nil
}
