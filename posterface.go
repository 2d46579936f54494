// Package posterface crops people's portraits out of arbitrary photos for
// conference poster layouts, and packs the resulting headshots into mosaic
// images.
//
// A face detector proposes square candidate regions; the geometric core
// derives the final crop by padding the best candidate asymmetrically
// (faces need more room above than below) while keeping it square and
// inside the image. A separate planner lays any number of same-size tiles
// out on a near-A-series-aspect grid with randomized placement.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/posterface/posterface"
//		"github.com/posterface/posterface/internal/config"
//	)
//
//	func main() {
//		pipeline, err := posterface.New(config.Default())
//		if err != nil {
//			log.Fatal(err)
//		}
//		out, err := pipeline.FaceCropFile(context.Background(), "speaker.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %s", out)
//	}
//
// The package consists of four main components:
//
//  1. Geometry (pkg/geometry): the integer Rectangle and its padding and
//     fitting primitives
//  2. Facecrop (pkg/facecrop): the crop-region deriver and candidate
//     selection policy
//  3. Tiling (pkg/tiling): the mosaic layout planner
//  4. Detect (pkg/detect): the pluggable face-detector backends
//
// pkg/processing, pkg/pdf and pkg/qr cover the raster plumbing around the
// core: decode/encode, poster rasterization and QR generation.
package posterface

import (
	"context"
	"fmt"
	"image"
	"log"
	"math/rand"

	"github.com/posterface/posterface/internal/config"
	"github.com/posterface/posterface/internal/utils"
	"github.com/posterface/posterface/pkg/detect"
	"github.com/posterface/posterface/pkg/facecrop"
	"github.com/posterface/posterface/pkg/geometry"
	"github.com/posterface/posterface/pkg/pdf"
	"github.com/posterface/posterface/pkg/processing"
	"github.com/posterface/posterface/pkg/qr"
	"github.com/posterface/posterface/pkg/tiling"
)

// Version of the posterface library.
const Version = "1.0.0"

// Pipeline wires a face detector, the geometric core and the raster
// processing into the end-to-end poster tasks.
type Pipeline struct {
	config    *config.Config
	detector  detect.Detector
	processor *processing.Processor

	// Rand seeds the tiling shuffle; nil leaves the planner time-seeded.
	Rand *rand.Rand

	// DebugOverlay additionally saves, for each cropped file, a copy of
	// the source with the candidate and final regions drawn on it.
	DebugOverlay bool
}

// New creates a Pipeline from a configuration, building the detector
// backend the configuration names.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	var detector detect.Detector
	var err error
	switch cfg.Detect.Backend {
	case "ollama":
		detector, err = detect.NewOllamaDetector(cfg.Detect.OllamaURL, cfg.Detect.OllamaModel)
	default:
		pigoCfg := detect.DefaultPigoConfig()
		pigoCfg.ScaleFactor = cfg.Detect.ScaleFactor
		pigoCfg.MinFractionalSize = cfg.Detect.MinFractionalSize
		detector, err = detect.NewPigoDetectorWithConfig(cfg.Detect.CascadePath, pigoCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s detector: %w", cfg.Detect.Backend, err)
	}
	return NewWithDetector(cfg, detector), nil
}

// NewWithDetector creates a Pipeline around a caller-supplied detector,
// bypassing the backend selection. Useful for tests and for embedding.
func NewWithDetector(cfg *config.Config, detector detect.Detector) *Pipeline {
	return &Pipeline{
		config:    cfg,
		detector:  detector,
		processor: processing.NewProcessor(),
	}
}

// FaceCropFile crops one image file to the best face candidate and saves
// the result, returning the output path. With no face detected the whole-
// image centered square is cropped instead; with several, the largest
// face wins.
func (p *Pipeline) FaceCropFile(ctx context.Context, inputPath string) (string, error) {
	img, err := p.processor.LoadImageSmart(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", inputPath, err)
	}
	bounds := img.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()

	candidates, err := p.detector.DetectFaces(ctx, img)
	if err != nil {
		return "", fmt.Errorf("face detection failed on %s: %w", inputPath, err)
	}
	switch {
	case len(candidates) == 0:
		log.Printf("no face candidate found in %s, picking generic square", inputPath)
	case len(candidates) > 1:
		log.Printf("%d face candidates found in %s, picking largest", len(candidates), inputPath)
	}
	candidate := facecrop.SelectCandidate(candidates, imgW, imgH)

	region, err := facecrop.Derive(candidate, imgW, imgH, facecrop.Options{
		HorizontalPadding: p.config.Crop.HorizontalPadding,
		TopScaleFactor:    p.config.Crop.TopScaleFactor,
	})
	if err != nil {
		return "", fmt.Errorf("failed to derive crop region for %s: %w", inputPath, err)
	}
	log.Printf("%s: candidate %v -> crop region %v", inputPath, candidate, region)

	cropped, err := p.processor.CropToRegion(img, region, p.config.Crop.OutputSize)
	if err != nil {
		return "", fmt.Errorf("failed to crop %s: %w", inputPath, err)
	}

	format := p.config.Output.Format
	var out image.Image = cropped
	if p.config.Crop.CircularMask {
		out = p.processor.ApplyMask(cropped, p.processor.EllipticalMask(cropped))
		// Transparency needs an alpha-capable container.
		format = "png"
	}

	if err := utils.EnsureDir(p.config.Output.Dir); err != nil {
		return "", err
	}
	outputPath, err := utils.OutputFilename(inputPath, p.config.Output.Dir, p.config.Output.Suffix, format)
	if err != nil {
		return "", err
	}
	if err := p.processor.SaveImage(out, outputPath, format, p.config.Output.Quality, p.config.Output.Lossless); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", outputPath, err)
	}

	if p.DebugOverlay {
		overlay := p.processor.DrawRegions(img, candidate, region)
		overlayPath, err := utils.OutputFilename(inputPath, p.config.Output.Dir, "regions", "png")
		if err == nil {
			err = p.processor.SaveImage(overlay, overlayPath, "png", p.config.Output.Quality, false)
		}
		if err != nil {
			log.Printf("failed to save debug overlay for %s: %v", inputPath, err)
		}
	}
	return outputPath, nil
}

// FaceCropBatch crops a list of image files, logging and skipping the
// files that fail rather than aborting the batch. It returns the output
// paths of the successful crops.
func (p *Pipeline) FaceCropBatch(ctx context.Context, inputPaths []string) []string {
	var outputs []string
	for _, path := range inputPaths {
		out, err := p.FaceCropFile(ctx, path)
		if err != nil {
			log.Printf("%v, giving up on this one", err)
			continue
		}
		outputs = append(outputs, out)
	}
	return outputs
}

// TileFiles packs a list of same-size image files into a mosaic and saves
// it at outputPath.
func (p *Pipeline) TileFiles(inputPaths []string, outputPath string) error {
	tileW := p.config.Tile.TileWidth
	tileH := p.config.Tile.TileHeight
	if tileH <= 0 {
		tileH = tileW
	}
	plan, err := tiling.PlanTiling(len(inputPaths), tileW, tileH, tiling.Options{
		AspectRatio: p.config.Tile.AspectRatio,
		Padding:     p.config.Tile.TilePadding,
		Rand:        p.Rand,
	})
	if err != nil {
		return err
	}
	tiles := make([]image.Image, 0, len(inputPaths))
	for _, path := range inputPaths {
		tile, err := p.processor.LoadImage(path)
		if err != nil {
			return fmt.Errorf("failed to load tile %s: %w", path, err)
		}
		tiles = append(tiles, tile)
	}
	mosaic, err := p.processor.BuildMosaic(tiles, plan)
	if err != nil {
		return err
	}
	format := utils.GetFileExtension(outputPath)
	if format == "" {
		format = "png"
	}
	return p.processor.SaveImage(mosaic, outputPath, format, p.config.Output.Quality, p.config.Output.Lossless)
}

// RasterizeFile renders one page of a PDF poster at the given width and
// saves it, returning the output path.
func (p *Pipeline) RasterizeFile(inputPath string, pageNumber, outputWidth int) (string, error) {
	img, err := pdf.Rasterize(inputPath, pageNumber, outputWidth)
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(p.config.Output.Dir); err != nil {
		return "", err
	}
	outputPath, err := utils.OutputFilename(inputPath, p.config.Output.Dir, p.config.Output.Suffix, p.config.Output.Format)
	if err != nil {
		return "", err
	}
	if err := p.processor.SaveImage(img, outputPath, p.config.Output.Format, p.config.Output.Quality, p.config.Output.Lossless); err != nil {
		return "", err
	}
	return outputPath, nil
}

// QRCodeFile generates a QR code for the given data and saves it at
// outputPath.
func (p *Pipeline) QRCodeFile(data string, size int, outputPath string) error {
	img, err := qr.Generate(data, size)
	if err != nil {
		return err
	}
	format := utils.GetFileExtension(outputPath)
	if format == "" {
		format = "png"
	}
	return p.processor.SaveImage(img, outputPath, format, p.config.Output.Quality, p.config.Output.Lossless)
}

// DeriveCropRegion exposes the geometric core directly: it selects the
// best candidate among the given ones and derives the final crop region
// for an image of the given size, without touching any pixel data.
func (p *Pipeline) DeriveCropRegion(candidates []geometry.Rectangle, imageWidth, imageHeight int) (geometry.Rectangle, error) {
	candidate := facecrop.SelectCandidate(candidates, imageWidth, imageHeight)
	return facecrop.Derive(candidate, imageWidth, imageHeight, facecrop.Options{
		HorizontalPadding: p.config.Crop.HorizontalPadding,
		TopScaleFactor:    p.config.Crop.TopScaleFactor,
	})
}
