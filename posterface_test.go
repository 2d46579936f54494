package posterface

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterface/posterface/internal/config"
	"github.com/posterface/posterface/pkg/geometry"
)

type stubDetector struct {
	faces []geometry.Rectangle
	err   error
}

func (s stubDetector) DetectFaces(ctx context.Context, img image.Image) ([]geometry.Rectangle, error) {
	return s.faces, s.err
}

func writeTestImage(t *testing.T, path string, width, height int, c color.NRGBA) {
	t.Helper()
	img := imaging.New(width, height, c)
	require.NoError(t, imaging.Save(img, path))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func TestFaceCropFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "speaker.png")
	writeTestImage(t, input, 400, 400, color.NRGBA{0, 128, 255, 255})

	cfg := testConfig(t)
	cfg.Crop.OutputSize = 50
	p := NewWithDetector(cfg, stubDetector{faces: []geometry.Rectangle{
		geometry.NewSquare(150, 150, 100),
	}})

	out, err := p.FaceCropFile(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "speaker.png"), out)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestFaceCropFileNoFace(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "crowdless.png")
	writeTestImage(t, input, 300, 200, color.NRGBA{200, 200, 200, 255})

	p := NewWithDetector(testConfig(t), stubDetector{})
	out, err := p.FaceCropFile(context.Background(), input)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestFaceCropFileCircularMask(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "speaker.jpg")
	writeTestImage(t, input, 200, 200, color.NRGBA{255, 0, 0, 255})

	cfg := testConfig(t)
	cfg.Crop.CircularMask = true
	cfg.Output.Format = "jpg"
	p := NewWithDetector(cfg, stubDetector{faces: []geometry.Rectangle{
		geometry.NewSquare(50, 50, 100),
	}})

	out, err := p.FaceCropFile(context.Background(), input)
	require.NoError(t, err)
	// The mask forces an alpha-capable format regardless of the
	// configured one.
	assert.Equal(t, ".png", filepath.Ext(out))

	img, err := imaging.Open(out)
	require.NoError(t, err)
	nrgba := imaging.Clone(img)
	_, _, _, a := nrgba.At(0, 0).RGBA()
	assert.Zero(t, a, "corner should be transparent")
	_, _, _, a = nrgba.At(img.Bounds().Dx()/2, img.Bounds().Dy()/2).RGBA()
	assert.NotZero(t, a, "center should be opaque")
}

func TestFaceCropBatchSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeTestImage(t, good, 200, 200, color.NRGBA{0, 255, 0, 255})

	p := NewWithDetector(testConfig(t), stubDetector{})
	outputs := p.FaceCropBatch(context.Background(), []string{
		filepath.Join(dir, "missing.png"),
		good,
	})
	require.Len(t, outputs, 1)
	assert.Equal(t, "good.png", filepath.Base(outputs[0]))
}

func TestTileFiles(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for i := 0; i < 4; i++ {
		path := filepath.Join(dir, "tile"+string(rune('a'+i))+".png")
		writeTestImage(t, path, 100, 100, color.NRGBA{uint8(60 * i), 0, 0, 255})
		inputs = append(inputs, path)
	}

	cfg := testConfig(t)
	p := NewWithDetector(cfg, stubDetector{})
	p.Rand = rand.New(rand.NewSource(1))

	out := filepath.Join(cfg.Output.Dir, "mosaic.png")
	require.NoError(t, p.TileFiles(inputs, out))

	img, err := imaging.Open(out)
	require.NoError(t, err)
	// 4 tiles of 100 px at aspect ratio 1.414 pack into 3 columns and
	// 2 rows.
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestQRCodeFile(t *testing.T) {
	cfg := testConfig(t)
	p := NewWithDetector(cfg, stubDetector{})

	out := filepath.Join(cfg.Output.Dir, "link.png")
	require.NoError(t, p.QRCodeFile("https://example.org/contribution/7", 150, out))

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestDeriveCropRegion(t *testing.T) {
	p := NewWithDetector(testConfig(t), stubDetector{})

	region, err := p.DeriveCropRegion([]geometry.Rectangle{
		geometry.NewSquare(400, 400, 100),
	}, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, geometry.Rectangle{X0: 360, Y0: 350, Width: 180, Height: 180}, region)

	// With no candidates the whole-image centered square is used.
	region, err = p.DeriveCropRegion(nil, 300, 200)
	require.NoError(t, err)
	assert.True(t, region.IsSquare())
	assert.Equal(t, 200, region.Height)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Detect.Backend = "tarot"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewMissingCascade(t *testing.T) {
	cfg := config.Default()
	cfg.Detect.CascadePath = filepath.Join(t.TempDir(), "nope")
	_, err := New(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
