// Package pdf rasterizes poster pages so they can be composed with the
// cropped portraits and QR codes on the final layout.
package pdf

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/posterface/posterface/internal/utils"
)

// Rasterize renders one page of a PDF document into an image of the given
// width, preserving the page aspect ratio. Pages are numbered from 0.
func Rasterize(path string, pageNumber, outputWidth int) (image.Image, error) {
	if err := utils.CheckInputFile(path, ".pdf"); err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf document: %w", err)
	}
	defer doc.Close()

	if pageNumber < 0 || pageNumber >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range, document has %d page(s)", pageNumber, doc.NumPage())
	}
	img, err := doc.Image(pageNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageNumber, err)
	}
	if outputWidth > 0 && img.Bounds().Dx() != outputWidth {
		return imaging.Resize(img, outputWidth, 0, imaging.Lanczos), nil
	}
	return img, nil
}
