package processing

import (
	"image"
	"image/color"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterface/posterface/pkg/geometry"
	"github.com/posterface/posterface/pkg/tiling"
)

// solidImage returns a uniformly colored test image.
func solidImage(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestCropToRegion(t *testing.T) {
	p := NewProcessor()
	img := solidImage(400, 300, color.NRGBA{200, 100, 50, 255})

	cropped, err := p.CropToRegion(img, geometry.NewSquare(50, 50, 200), 100)
	require.NoError(t, err)
	bounds := cropped.Bounds()
	assert.Equal(t, 100, bounds.Dx())
	assert.Equal(t, 100, bounds.Dy())
}

func TestCropToRegionNoResize(t *testing.T) {
	p := NewProcessor()
	img := solidImage(400, 300, color.NRGBA{200, 100, 50, 255})

	cropped, err := p.CropToRegion(img, geometry.NewSquare(10, 10, 120), 0)
	require.NoError(t, err)
	assert.Equal(t, 120, cropped.Bounds().Dx())
	assert.Equal(t, 120, cropped.Bounds().Dy())
}

func TestCropToRegionEmpty(t *testing.T) {
	p := NewProcessor()
	img := solidImage(100, 100, color.NRGBA{0, 0, 0, 255})

	_, err := p.CropToRegion(img, geometry.NewSquare(500, 500, 50), 0)
	assert.Error(t, err)
}

func TestEllipticalMask(t *testing.T) {
	p := NewProcessor()
	img := solidImage(100, 100, color.NRGBA{255, 255, 255, 255})
	mask := p.EllipticalMask(img)

	// Center opaque, corners transparent.
	assert.Equal(t, uint8(255), mask.AlphaAt(50, 50).A)
	assert.Equal(t, uint8(0), mask.AlphaAt(0, 0).A)
	assert.Equal(t, uint8(0), mask.AlphaAt(99, 0).A)
	assert.Equal(t, uint8(0), mask.AlphaAt(0, 99).A)
	assert.Equal(t, uint8(0), mask.AlphaAt(99, 99).A)
	// Edge midpoints lie on the ellipse boundary.
	assert.Equal(t, uint8(255), mask.AlphaAt(50, 1).A)
	assert.Equal(t, uint8(255), mask.AlphaAt(1, 50).A)
}

func TestApplyMask(t *testing.T) {
	p := NewProcessor()
	img := solidImage(100, 100, color.NRGBA{10, 20, 30, 255})
	masked := p.ApplyMask(img, p.EllipticalMask(img))

	assert.Equal(t, uint8(255), masked.NRGBAAt(50, 50).A)
	assert.Equal(t, uint8(0), masked.NRGBAAt(0, 0).A)
	// The color channels survive the masking.
	assert.Equal(t, uint8(10), masked.NRGBAAt(50, 50).R)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	p := NewProcessor()
	img := solidImage(60, 40, color.NRGBA{200, 100, 50, 255})

	for _, format := range []string{"png", "jpg", "webp"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out."+format)
			require.NoError(t, p.SaveImage(img, path, format, 90, false))

			loaded, err := p.LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, 60, loaded.Bounds().Dx())
			assert.Equal(t, 40, loaded.Bounds().Dy())
		})
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	p := NewProcessor()
	_, err := p.LoadImage(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestLoadImageFromURLRejectsScheme(t *testing.T) {
	p := NewProcessor()
	_, err := p.LoadImageFromURL("ftp://example.com/image.jpg")
	assert.Error(t, err)
}

func TestDrawRegions(t *testing.T) {
	p := NewProcessor()
	img := solidImage(200, 200, color.NRGBA{0, 0, 0, 255})

	overlay := p.DrawRegions(img, geometry.NewSquare(50, 50, 40), geometry.NewSquare(30, 30, 100))
	// Candidate outline in white, final region outline in red.
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, overlay.NRGBAAt(60, 50))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, overlay.NRGBAAt(60, 30))
	// Pixels well away from both outlines are untouched.
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, overlay.NRGBAAt(190, 190))
}

func TestBuildMosaic(t *testing.T) {
	p := NewProcessor()
	plan, err := tiling.PlanTiling(4, 50, 50, tiling.Options{
		AspectRatio: 1.0,
		Rand:        rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	tiles := []image.Image{
		solidImage(50, 50, color.NRGBA{255, 0, 0, 255}),
		solidImage(50, 50, color.NRGBA{0, 255, 0, 255}),
		solidImage(50, 50, color.NRGBA{0, 0, 255, 255}),
		solidImage(50, 50, color.NRGBA{255, 255, 0, 255}),
	}
	mosaic, err := p.BuildMosaic(tiles, plan)
	require.NoError(t, err)

	width, height := plan.CanvasSize()
	assert.Equal(t, width, mosaic.Bounds().Dx())
	assert.Equal(t, height, mosaic.Bounds().Dy())

	// Every tile center carries its color.
	for i, tile := range tiles {
		slot := plan.Slot(i)
		want := tile.At(25, 25)
		got := mosaic.NRGBAAt(slot.X+25, slot.Y+25)
		assert.Equal(t, want, got, "tile %d at %v", i, slot)
	}
}

func TestBuildMosaicCountMismatch(t *testing.T) {
	p := NewProcessor()
	plan, err := tiling.PlanTiling(3, 50, 50, tiling.Options{})
	require.NoError(t, err)

	_, err = p.BuildMosaic([]image.Image{solidImage(50, 50, color.NRGBA{})}, plan)
	assert.Error(t, err)
}
