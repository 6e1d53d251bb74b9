package isr

import (
	"errors"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero width", func(c *Config) { c.Width = 0 }, ErrInvalidResolution},
		{"negative height", func(c *Config) { c.Height = -1 }, ErrInvalidResolution},
		{"thresholds unordered", func(c *Config) { c.Threshold2x2 = 0.9 }, ErrUnorderedThresholds},
		{"negative threshold", func(c *Config) {
			c.Threshold1x1, c.Threshold2x2, c.Threshold4x4 = -0.1, -0.2, -0.3
		}, ErrUnorderedThresholds},
		{"blend above one", func(c *Config) { c.TemporalBlend = 1.5 }, ErrInvalidBlendFactor},
		{"blend negative", func(c *Config) { c.TemporalBlend = -0.1 }, ErrInvalidBlendFactor},
		{"negative weight", func(c *Config) { c.MotionWeight = -1 }, ErrInvalidWeight},
		{"inverted tier range", func(c *Config) {
			c.MinTier, c.MaxTier = TierEighth, TierFull
		}, ErrInvalidTierRange},
		{"tier outside enum", func(c *Config) {
			c.MinTier, c.MaxTier = ShadingTier(5), ShadingTier(6)
		}, ErrInvalidTierRange},
		{"max tier outside enum", func(c *Config) {
			c.MaxTier = ShadingTier(4)
		}, ErrInvalidTierRange},
		{"zero tile size", func(c *Config) { c.TileSize = 0 }, ErrInvalidTileSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateAllowsEdgeValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TemporalBlend = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("blend 0 rejected: %v", err)
	}

	cfg.TemporalBlend = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("blend 1 rejected: %v", err)
	}

	// Equal thresholds are ordered.
	cfg.Threshold1x1, cfg.Threshold2x2, cfg.Threshold4x4 = 0.5, 0.5, 0.5
	if err := cfg.Validate(); err != nil {
		t.Errorf("equal thresholds rejected: %v", err)
	}

	// Per-pixel mode ignores the tile size.
	cfg = DefaultConfig()
	cfg.Hierarchical = false
	cfg.TileSize = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("per-pixel mode with zero tile size rejected: %v", err)
	}
}

func TestConfigGridSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		hierarchical bool
		tileSize     int
		wantW, wantH int
	}{
		{"1080p default tiles", 1920, 1080, true, 8, 240, 135},
		{"partial tiles round up", 70, 33, true, 8, 9, 5},
		{"per pixel", 64, 32, false, 8, 64, 32},
		{"tile larger than frame", 4, 4, true, 8, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Width, cfg.Height = tt.w, tt.h
			cfg.Hierarchical = tt.hierarchical
			cfg.TileSize = tt.tileSize
			w, h := cfg.GridSize()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("GridSize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
