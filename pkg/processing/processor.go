// Package processing implements the raster side of the pipeline: image
// loading with orientation correction, cropping and resizing, the optional
// circular portrait mask, debug overlays, and mosaic assembly.
package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/posterface/posterface/pkg/geometry"
	"github.com/posterface/posterface/pkg/tiling"
)

// Processor handles image processing operations.
type Processor struct{}

// NewProcessor creates a new image processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage loads an image from a file path, applying the EXIF orientation
// so that downstream geometry always works on upright pixels. WebP files
// fall back to an explicit decode when the registered decoders cannot
// handle them.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path, imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.Contains(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadImageFromURL downloads and decodes an image over http(s).
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s", parsed.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return p.decodeBytes(data)
}

// LoadImageSmart loads an image from either a file path or a URL.
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

func (p *Processor) decodeBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// CropToRegion cuts the given region out of the image and resizes the
// result to an outputSize square. The region is expected to lie fully
// inside the image, which is exactly what the crop deriver guarantees.
func (p *Processor) CropToRegion(img image.Image, region geometry.Rectangle, outputSize int) (image.Image, error) {
	rect := region.ImageRect().Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle %v", region)
	}
	cropped := imaging.Crop(img, rect)
	if outputSize > 0 {
		cropped = imaging.Resize(cropped, outputSize, outputSize, imaging.Lanczos)
	}
	return cropped, nil
}

// ResizeImage resizes an image to the given size. A zero width or height
// preserves the aspect ratio.
func (p *Processor) ResizeImage(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// EllipticalMask returns an alpha mask shaped as the largest ellipse
// inscribed in the image bounds, used to round off portrait crops.
func (p *Processor) EllipticalMask(img image.Image) *image.Alpha {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	rx, ry := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		dy := (float64(y) + 0.5 - ry) / ry
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - rx) / rx
			if dx*dx+dy*dy <= 1 {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return mask
}

// ApplyMask applies an alpha mask to the image, producing an NRGBA image
// whose pixels outside the mask are fully transparent.
func (p *Processor) ApplyMask(img image.Image, mask *image.Alpha) *image.NRGBA {
	out := imaging.Clone(img)
	bounds := out.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			a := mask.AlphaAt(x, y).A
			i := out.PixOffset(x, y)
			out.Pix[i+3] = uint8(uint32(out.Pix[i+3]) * uint32(a) / 255)
		}
	}
	return out
}

// SaveImage saves an image with the given format ("jpg", "png" or "webp")
// and quality settings.
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// DrawRegions returns a copy of the image with the raw detector candidate
// drawn in white and the final crop region in red, for eyeballing what the
// deriver did with a particular photo.
func (p *Processor) DrawRegions(img image.Image, candidate, final geometry.Rectangle) *image.NRGBA {
	out := imaging.Clone(img)
	stroke := max(2, int(0.004*float64(min(out.Bounds().Dx(), out.Bounds().Dy()))))
	drawRect(out, candidate, color.NRGBA{255, 255, 255, 255}, stroke)
	drawRect(out, final, color.NRGBA{255, 0, 0, 255}, stroke)
	return out
}

// BuildMosaic assembles same-size tiles into a single image according to a
// tiling plan. Tiles whose aspect ratio does not match the plan's are
// resized anyway, with a warning, since a distorted tile beats a broken
// layout.
func (p *Processor) BuildMosaic(tiles []image.Image, plan tiling.Plan) (*image.NRGBA, error) {
	if len(tiles) != len(plan.Slots) {
		return nil, fmt.Errorf("plan holds %d slots for %d tiles", len(plan.Slots), len(tiles))
	}
	width, height := plan.CanvasSize()
	canvas := imaging.New(width, height, color.NRGBA{0, 0, 0, 255})
	planRatio := float64(plan.TileWidth) / float64(plan.TileHeight)
	for i, tile := range tiles {
		b := tile.Bounds()
		if ratio := float64(b.Dx()) / float64(b.Dy()); math.Abs(ratio-planRatio) > 1e-3 {
			log.Printf("tile %d aspect ratio (%d x %d) does not match the plan (%d x %d)",
				i, b.Dx(), b.Dy(), plan.TileWidth, plan.TileHeight)
		}
		resized := imaging.Resize(tile, plan.TileWidth, plan.TileHeight, imaging.Lanczos)
		canvas = imaging.Paste(canvas, resized, plan.Slot(i))
	}
	return canvas, nil
}

func drawRect(img *image.NRGBA, rect geometry.Rectangle, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := rect.BoundingBox()
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
