package detect

import (
	"context"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/posterface/posterface/pkg/geometry"
)

// PigoConfig holds the tuning knobs of the local cascade detector.
type PigoConfig struct {
	// ShiftFactor determines how far the detection window moves at each
	// step, as a fraction of its size.
	ShiftFactor float64

	// ScaleFactor determines how much the detection window grows between
	// scales.
	ScaleFactor float64

	// MinFractionalSize is the minimum candidate side as a fraction of
	// the geometric mean of the image sides. Faces smaller than that are
	// background heads, not the portrait subject.
	MinFractionalSize float64

	// IoUThreshold is the intersection-over-union used to cluster
	// overlapping raw detections.
	IoUThreshold float64

	// QualityThreshold discards clustered detections scoring below it.
	QualityThreshold float32
}

// DefaultPigoConfig returns detection parameters tuned for close-up
// portrait photos.
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		ShiftFactor:       0.1,
		ScaleFactor:       1.1,
		MinFractionalSize: 0.15,
		IoUThreshold:      0.2,
		QualityThreshold:  5.0,
	}
}

// PigoDetector finds faces with the pigo pixel-intensity-comparison
// cascade, entirely in-process with no external service.
type PigoDetector struct {
	classifier *pigo.Pigo
	config     PigoConfig
}

// NewPigoDetector loads a binary cascade file and returns a detector with
// the default configuration.
func NewPigoDetector(cascadePath string) (*PigoDetector, error) {
	return NewPigoDetectorWithConfig(cascadePath, DefaultPigoConfig())
}

// NewPigoDetectorWithConfig loads a binary cascade file and returns a
// detector with a custom configuration.
func NewPigoDetectorWithConfig(cascadePath string, config PigoConfig) (*PigoDetector, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade file: %w", err)
	}
	return &PigoDetector{classifier: classifier, config: config}, nil
}

// DetectFaces runs the cascade over the image and returns the surviving
// candidates as squares sorted by ascending area.
func (d *PigoDetector) DetectFaces(ctx context.Context, img image.Image) ([]geometry.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	params := pigo.CascadeParams{
		MinSize:     minDetectionSize(cols, rows, d.config.MinFractionalSize),
		MaxSize:     min(cols, rows),
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	var candidates []geometry.Rectangle
	for _, det := range dets {
		if det.Q < d.config.QualityThreshold {
			continue
		}
		candidates = append(candidates,
			squareAround(float64(det.Col), float64(det.Row), float64(det.Scale)))
	}
	sortByArea(candidates)
	return candidates, nil
}
