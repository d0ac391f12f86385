package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the editor and export settings. Zero values are filled in
// by Default; a YAML file overlays the defaults via Load.
type Config struct {
	AssetsDir   string `yaml:"assets_dir"`   // sprite directory
	AssetDPI    int    `yaml:"asset_dpi"`    // rasterizing DPI for PDF road plans
	ProjectsDir string `yaml:"projects_dir"` // saved project documents
	OutputDir   string `yaml:"output_dir"`   // exported videos

	Background   string  `yaml:"background"`    // frame background color
	LeftMargin   float64 `yaml:"left_margin"`   // initial canvas offset
	TopMargin    float64 `yaml:"top_margin"`    //
	BoundsMargin float64 `yaml:"bounds_margin"` // padding around the road extent

	TickRate int     `yaml:"tick_rate"` // interactive playback ticks per second
	Speed    float64 `yaml:"speed"`     // playback speed multiplier
	Loop     bool    `yaml:"loop"`      // wrap playback at the timeline end

	FPS    int    `yaml:"fps"`     // export frame rate
	QRLink string `yaml:"qr_link"` // provenance stamp target, empty disables
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		AssetsDir:    "assets",
		AssetDPI:     150,
		ProjectsDir:  "projects",
		OutputDir:    "output",
		Background:   "#1e1e1e",
		LeftMargin:   200,
		TopMargin:    0,
		BoundsMargin: 100,
		TickRate:     30,
		Speed:        1.0,
		Loop:         true,
		FPS:          30,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error: the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.TickRate < 1 {
		cfg.TickRate = 30
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.FPS < 1 {
		cfg.FPS = 30
	}
	return cfg, nil
}
