// Package config holds the explicit application configuration. Everything
// the pipeline needs is carried in one struct handed to the callers that
// use it; there is deliberately no process-wide mutable state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration.
type Config struct {
	Detect DetectConfig `json:"detect"`
	Crop   CropConfig   `json:"crop"`
	Tile   TileConfig   `json:"tile"`
	Output OutputConfig `json:"output"`
}

// DetectConfig holds the face-detection settings.
type DetectConfig struct {
	// Backend selects the detector: "pigo" (local cascade) or "ollama"
	// (remote vision model).
	Backend string `json:"backend"`

	// CascadePath is the path to the pigo binary cascade file.
	CascadePath string `json:"cascade_path"`

	// OllamaURL is the base URL of the Ollama server.
	OllamaURL string `json:"ollama_url"`

	// OllamaModel is the vision model name.
	OllamaModel string `json:"ollama_model"`

	// ScaleFactor determines how much the detection window grows between
	// scales of the cascade run.
	ScaleFactor float64 `json:"scale_factor"`

	// MinFractionalSize is the minimum face side as a fraction of the
	// geometric mean of the image sides.
	MinFractionalSize float64 `json:"min_fractional_size"`
}

// CropConfig holds the face-crop appearance settings.
type CropConfig struct {
	// HorizontalPadding is the padding on either side of the detected
	// face, in units of the candidate's equivalent square side.
	HorizontalPadding float64 `json:"horizontal_padding"`

	// TopScaleFactor is the ratio between the top and the horizontal
	// padding.
	TopScaleFactor float64 `json:"top_scale_factor"`

	// OutputSize is the side of the output square image in pixels.
	OutputSize int `json:"output_size"`

	// CircularMask applies an elliptical alpha mask to the output.
	CircularMask bool `json:"circular_mask"`
}

// TileConfig holds the mosaic settings.
type TileConfig struct {
	TileWidth   int     `json:"tile_width"`
	TileHeight  int     `json:"tile_height"`
	TilePadding int     `json:"tile_padding"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// OutputConfig holds the output file settings.
type OutputConfig struct {
	Dir      string `json:"dir"`
	Format   string `json:"format"`
	Suffix   string `json:"suffix"`
	Quality  int    `json:"quality"`
	Lossless bool   `json:"lossless"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Detect: DetectConfig{
			Backend:           "pigo",
			CascadePath:       "cascade/facefinder",
			OllamaURL:         "http://localhost:11434",
			OllamaModel:       "llava",
			ScaleFactor:       1.1,
			MinFractionalSize: 0.15,
		},
		Crop: CropConfig{
			HorizontalPadding: 0.4,
			TopScaleFactor:    1.25,
			OutputSize:        100,
			CircularMask:      false,
		},
		Tile: TileConfig{
			TileWidth:   100,
			TileHeight:  0,
			TilePadding: 0,
			AspectRatio: 1.414,
		},
		Output: OutputConfig{
			Dir:     "out",
			Format:  "png",
			Suffix:  "",
			Quality: 90,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Settings absent from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file.
func (c *Config) SaveToFile(filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Detect.Backend {
	case "pigo", "ollama":
	default:
		return fmt.Errorf("detect.backend must be \"pigo\" or \"ollama\"")
	}

	if c.Detect.ScaleFactor <= 1 {
		return fmt.Errorf("detect.scale_factor must be greater than 1")
	}

	if c.Detect.MinFractionalSize < 0 || c.Detect.MinFractionalSize > 1 {
		return fmt.Errorf("detect.min_fractional_size must be between 0 and 1")
	}

	if c.Crop.HorizontalPadding < 0 {
		return fmt.Errorf("crop.horizontal_padding must be non-negative")
	}

	if c.Crop.TopScaleFactor < 1 || c.Crop.TopScaleFactor > 2 {
		return fmt.Errorf("crop.top_scale_factor must be between 1 and 2")
	}

	if c.Crop.OutputSize < 1 {
		return fmt.Errorf("crop.output_size must be positive")
	}

	if c.Tile.TileWidth < 1 {
		return fmt.Errorf("tile.tile_width must be positive")
	}

	if c.Tile.AspectRatio <= 0 {
		return fmt.Errorf("tile.aspect_ratio must be positive")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "posterface", "config.json")
}
