package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/posterface/posterface"
	"github.com/posterface/posterface/internal/config"
	"github.com/posterface/posterface/internal/utils"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [options] ...

Commands:
  facecrop   crop input images to the detected face
  tile       pack same-size images into a mosaic
  rasterize  render a PDF page into an image
  qrcode     generate a QR code image

Run '%s <command> -h' for the options of a command.
`, filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "facecrop":
		runFaceCrop(os.Args[2:])
	case "tile":
		runTile(os.Args[2:])
	case "rasterize":
		runRasterize(os.Args[2:])
	case "qrcode":
		runQRCode(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		log.Printf("unknown command %q", os.Args[1])
		usage()
		os.Exit(2)
	}
}

// loadConfig loads the configuration file if one is given or present at the
// default location, and falls back to the built-in defaults otherwise.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.GetConfigPath()
		if _, err := os.Stat(path); err != nil {
			return config.Default()
		}
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	return cfg
}

func runFaceCrop(args []string) {
	fs := flag.NewFlagSet("facecrop", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file (JSON)")
	outDir := fs.String("out", "", "output directory")
	outputSize := fs.Int("size", 0, "output square side in pixels")
	hpad := fs.Float64("horizontal-padding", 0, "horizontal padding in units of the face square side")
	tsf := fs.Float64("top-scale-factor", 0, "ratio of top padding to horizontal padding")
	circular := fs.Bool("circular", false, "apply a circular mask to the output")
	backend := fs.String("backend", "", "detector backend: pigo or ollama")
	cascade := fs.String("cascade", "", "path to the pigo cascade file")
	format := fs.String("format", "", "output format: png, jpg or webp")
	suffix := fs.String("suffix", "", "suffix appended to output file names")
	debug := fs.Bool("debug", false, "also save overlays with the detected regions")
	fs.Parse(args)

	if fs.NArg() == 0 {
		log.Fatal("facecrop: no input files given")
	}

	cfg := loadConfig(*configPath)
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *outputSize > 0 {
		cfg.Crop.OutputSize = *outputSize
	}
	if *hpad > 0 {
		cfg.Crop.HorizontalPadding = *hpad
	}
	if *tsf > 0 {
		cfg.Crop.TopScaleFactor = *tsf
	}
	if *circular {
		cfg.Crop.CircularMask = true
	}
	if *backend != "" {
		cfg.Detect.Backend = *backend
	}
	if *cascade != "" {
		cfg.Detect.CascadePath = *cascade
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *suffix != "" {
		cfg.Output.Suffix = *suffix
	}

	pipeline, err := posterface.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	pipeline.DebugOverlay = *debug

	outputs := pipeline.FaceCropBatch(context.Background(), fs.Args())
	if len(outputs) == 0 {
		log.Fatal("facecrop: no image could be processed")
	}
	for _, out := range outputs {
		log.Printf("wrote %s", out)
	}
}

func runTile(args []string) {
	fs := flag.NewFlagSet("tile", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file (JSON)")
	out := fs.String("out", "mosaic.png", "output file")
	tileWidth := fs.Int("tile-width", 0, "tile width in pixels")
	tileHeight := fs.Int("tile-height", 0, "tile height in pixels, defaults to the width")
	padding := fs.Int("padding", -1, "padding between tiles in pixels")
	aspect := fs.Float64("aspect-ratio", 0, "target width/height ratio of the mosaic")
	fromDir := fs.String("dir", "", "tile all image files found in this directory")
	fs.Parse(args)

	inputs := fs.Args()
	if *fromDir != "" {
		found, err := utils.ListImageFiles(*fromDir)
		if err != nil {
			log.Fatal(err)
		}
		inputs = append(inputs, found...)
	}
	if len(inputs) == 0 {
		log.Fatal("tile: no input files given")
	}

	cfg := loadConfig(*configPath)
	if *tileWidth > 0 {
		cfg.Tile.TileWidth = *tileWidth
	}
	if *tileHeight > 0 {
		cfg.Tile.TileHeight = *tileHeight
	}
	if *padding >= 0 {
		cfg.Tile.TilePadding = *padding
	}
	if *aspect > 0 {
		cfg.Tile.AspectRatio = *aspect
	}

	// Tiling never needs a detector.
	pipeline := posterface.NewWithDetector(cfg, nil)
	if err := pipeline.TileFiles(inputs, *out); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", *out)
}

func runRasterize(args []string) {
	fs := flag.NewFlagSet("rasterize", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file (JSON)")
	outDir := fs.String("out", "", "output directory")
	page := fs.Int("page", 0, "page number, starting from 0")
	width := fs.Int("width", 1080, "output width in pixels")
	format := fs.String("format", "", "output format: png, jpg or webp")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("rasterize: exactly one input PDF expected")
	}

	cfg := loadConfig(*configPath)
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *format != "" {
		cfg.Output.Format = *format
	}

	pipeline := posterface.NewWithDetector(cfg, nil)
	out, err := pipeline.RasterizeFile(fs.Arg(0), *page, *width)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", out)
}

func runQRCode(args []string) {
	fs := flag.NewFlagSet("qrcode", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file (JSON)")
	out := fs.String("out", "qrcode.png", "output file")
	size := fs.Int("size", 200, "side of the output square in pixels")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("qrcode: exactly one data string expected")
	}

	cfg := loadConfig(*configPath)
	pipeline := posterface.NewWithDetector(cfg, nil)
	if err := pipeline.QRCodeFile(fs.Arg(0), *size, *out); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", *out)
}
