// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ratecompute

import "testing"

func testConfig(w, h int) Config {
	return Config{
		Width:  w,
		Height: h,
		Importance: ImportanceConfig{
			EdgeWeight:          0.4,
			NormalWeight:        0.3,
			DistanceWeight:      0.2,
			MotionWeight:        0.1,
			SilhouetteThreshold: 0.7,
			MaxMotion:           32,
		},
		Quantize:     defaultQuantize(),
		Blend:        0.9,
		Hierarchical: true,
		TileSize:     8,
	}
}

func TestPipelineGridSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		hierarchical bool
		tileSize     int
		wantW, wantH int
	}{
		{"exact tiles", 64, 32, true, 8, 8, 4},
		{"partial tiles", 70, 33, true, 8, 9, 5},
		{"per pixel", 64, 32, false, 8, 64, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(tt.w, tt.h)
			cfg.Hierarchical = tt.hierarchical
			cfg.TileSize = tt.tileSize
			p := NewPipeline(cfg)
			gw, gh := p.GridSize()
			if gw != tt.wantW || gh != tt.wantH {
				t.Errorf("GridSize() = %dx%d, want %dx%d", gw, gh, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestPipelineStaticSceneConverges(t *testing.T) {
	// A static scene must stop producing tier transitions after the
	// first frame: constant input smooths to itself and the dead band
	// holds every decision.
	cfg := testConfig(32, 16)
	p := NewPipeline(cfg)
	frame := uniformFrame(32, 16, 0.5)

	for i := 0; i < 10; i++ {
		if err := p.Update(frame); err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
		if i > 0 && p.Changed() != 0 {
			t.Fatalf("frame %d changed %d tiles on a static scene", i, p.Changed())
		}
	}
}

func TestPipelineSilhouetteForcesFullRate(t *testing.T) {
	// A sharp silhouette crossing the boundary between two tiles must
	// pin both tiles to full rate even when every fusion weight is
	// zero.
	cfg := testConfig(16, 8)
	cfg.Importance = ImportanceConfig{SilhouetteThreshold: 0.5, MaxMotion: 32}
	cfg.Blend = 0
	p := NewPipeline(cfg)

	frame := &Frame{
		Color:  stepColor(16, 8, 8), // step exactly on the tile boundary
		Normal: uniformImage(16, 8, 3, 0),
		Depth:  uniformImage(16, 8, 1, 1),
	}
	if err := p.Update(frame); err != nil {
		t.Fatal(err)
	}

	tiers := p.StableTiers()
	if len(tiers) != 2 {
		t.Fatalf("grid has %d entries, want 2", len(tiers))
	}
	if tiers[0] != TierFull || tiers[1] != TierFull {
		t.Errorf("tiers = %v, want both pinned to full rate", tiers)
	}
}

func TestPipelineCoarsensFlatRegions(t *testing.T) {
	// Uniform far-away content carries no signal and must land on the
	// coarsest tier.
	cfg := testConfig(32, 16)
	p := NewPipeline(cfg)
	if err := p.Update(uniformFrame(32, 16, 1)); err != nil {
		t.Fatal(err)
	}
	for i, tier := range p.StableTiers() {
		if tier != TierEighth {
			t.Fatalf("tile %d = %d on a flat far scene, want %d", i, tier, TierEighth)
		}
	}
}

func TestPipelineMotionOptional(t *testing.T) {
	cfg := testConfig(16, 16)
	p := NewPipeline(cfg)

	frame := uniformFrame(16, 16, 0.5)
	frame.Motion = nil
	if err := p.Update(frame); err != nil {
		t.Fatalf("Update without motion: %v", err)
	}

	frame.Motion = uniformImage(16, 16, 2, 0)
	if err := p.Update(frame); err != nil {
		t.Fatalf("Update with motion: %v", err)
	}
}

func TestPipelineRejectsBadInputs(t *testing.T) {
	cfg := testConfig(16, 16)

	tests := []struct {
		name  string
		frame *Frame
	}{
		{"nil frame", nil},
		{"missing depth", &Frame{
			Color:  uniformImage(16, 16, 3, 0),
			Normal: uniformImage(16, 16, 3, 0),
		}},
		{"wrong resolution", &Frame{
			Color:  uniformImage(8, 8, 3, 0),
			Normal: uniformImage(16, 16, 3, 0),
			Depth:  uniformImage(16, 16, 1, 0),
		}},
		{"too few color channels", &Frame{
			Color:  uniformImage(16, 16, 1, 0),
			Normal: uniformImage(16, 16, 3, 0),
			Depth:  uniformImage(16, 16, 1, 0),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(cfg)
			if err := p.Update(tt.frame); err == nil {
				t.Error("Update accepted invalid inputs")
			}
			if p.Frame() != 0 {
				t.Error("failed Update advanced the frame counter")
			}
		})
	}
}

func TestPipelineErrorKeepsPreviousGrid(t *testing.T) {
	cfg := testConfig(16, 16)
	p := NewPipeline(cfg)

	if err := p.Update(uniformFrame(16, 16, 0.5)); err != nil {
		t.Fatal(err)
	}
	before := make([]uint8, len(p.StableTiers()))
	copy(before, p.StableTiers())

	if err := p.Update(nil); err == nil {
		t.Fatal("Update accepted nil frame")
	}
	for i, tier := range p.StableTiers() {
		if tier != before[i] {
			t.Fatalf("tile %d changed from %d to %d across a failed update", i, before[i], tier)
		}
	}
}

func TestPipelineResetIdentity(t *testing.T) {
	// After Reset the next update must match a fresh pipeline's first
	// update on the same input.
	cfg := testConfig(32, 16)
	cfg.Importance = ImportanceConfig{DistanceWeight: 1, SilhouetteThreshold: 2, MaxMotion: 32}
	frameA := uniformFrame(32, 16, 0.1) // near, high importance
	frameB := uniformFrame(32, 16, 0.9) // far, low importance

	warmed := NewPipeline(cfg)
	for i := 0; i < 5; i++ {
		if err := warmed.Update(frameA); err != nil {
			t.Fatal(err)
		}
	}
	warmed.Reset()
	if warmed.Frame() != 0 {
		t.Errorf("frame counter = %d after Reset, want 0", warmed.Frame())
	}
	if err := warmed.Update(frameB); err != nil {
		t.Fatal(err)
	}

	fresh := NewPipeline(cfg)
	if err := fresh.Update(frameB); err != nil {
		t.Fatal(err)
	}

	w, f := warmed.StableTiers(), fresh.StableTiers()
	for i := range f {
		if w[i] != f[i] {
			t.Fatalf("tile %d = %d after Reset, fresh pipeline has %d", i, w[i], f[i])
		}
	}
}

func TestPipelineInvalidateHistory(t *testing.T) {
	// InvalidateHistory drops smoothing state but keeps the published
	// grids; the next update must behave like a first frame.
	cfg := testConfig(32, 16)
	cfg.Importance = ImportanceConfig{DistanceWeight: 1, SilhouetteThreshold: 2, MaxMotion: 32}
	p := NewPipeline(cfg)

	near := uniformFrame(32, 16, 0.1)
	for i := 0; i < 5; i++ {
		if err := p.Update(near); err != nil {
			t.Fatal(err)
		}
	}
	published := make([]uint8, len(p.StableTiers()))
	copy(published, p.StableTiers())

	p.InvalidateHistory()
	if p.Frame() != 0 {
		t.Errorf("frame counter = %d after InvalidateHistory, want 0", p.Frame())
	}
	for i, tier := range p.StableTiers() {
		if tier != published[i] {
			t.Fatalf("tile %d changed from %d to %d; grids must survive invalidation", i, published[i], tier)
		}
	}

	// A far frame after invalidation decides from itself alone, with
	// no smoothing toward the near history.
	if err := p.Update(uniformFrame(32, 16, 1)); err != nil {
		t.Fatal(err)
	}
	if p.StableTiers()[0] != TierEighth {
		t.Errorf("tier = %d after invalidation, want %d (no history carry-over)", p.StableTiers()[0], TierEighth)
	}
}

func TestPipelineResetIdempotent(t *testing.T) {
	cfg := testConfig(16, 16)
	p := NewPipeline(cfg)
	p.Reset()
	p.Reset()

	gw, gh := p.GridSize()
	if p.StableCounts() != [4]int{gw * gh, 0, 0, 0} {
		t.Errorf("counts = %v after double Reset, want all full rate", p.StableCounts())
	}
}

func TestPipelineReconfigureResizeInvalidatesHistory(t *testing.T) {
	cfg := testConfig(32, 16)
	p := NewPipeline(cfg)
	if err := p.Update(uniformFrame(32, 16, 0.5)); err != nil {
		t.Fatal(err)
	}

	cfg.Width = 64
	p.Reconfigure(cfg)
	if p.Frame() != 0 {
		t.Errorf("frame counter = %d after resize, want 0", p.Frame())
	}
	gw, _ := p.GridSize()
	if gw != 8 {
		t.Errorf("grid width = %d after resize, want 8", gw)
	}
	if err := p.Update(uniformFrame(64, 16, 0.5)); err != nil {
		t.Fatalf("Update after resize: %v", err)
	}
}

func TestPipelineReconfigureTuningKeepsHistory(t *testing.T) {
	cfg := testConfig(32, 16)
	p := NewPipeline(cfg)
	if err := p.Update(uniformFrame(32, 16, 0.5)); err != nil {
		t.Fatal(err)
	}

	cfg.Quantize.Threshold1x1 = 0.9
	p.Reconfigure(cfg)
	if p.Frame() != 1 {
		t.Errorf("frame counter = %d after tuning change, want 1", p.Frame())
	}
}

func TestPipelineBlendZeroTracksCurrentFrame(t *testing.T) {
	// With blend 0 the grid must follow the current frame immediately,
	// with no hold-over from history.
	cfg := testConfig(32, 16)
	cfg.Blend = 0
	cfg.Importance = ImportanceConfig{DistanceWeight: 1, SilhouetteThreshold: 2, MaxMotion: 32}
	p := NewPipeline(cfg)

	if err := p.Update(uniformFrame(32, 16, 0)); err != nil {
		t.Fatal(err)
	}
	near := p.StableTiers()[0]

	if err := p.Update(uniformFrame(32, 16, 1)); err != nil {
		t.Fatal(err)
	}
	far := p.StableTiers()[0]

	if near == far {
		t.Errorf("tier unchanged (%d) across a near-to-far cut with blend 0", near)
	}
	if far != TierEighth {
		t.Errorf("far tier = %d, want %d", far, TierEighth)
	}
}

func TestPipelineNonHierarchical(t *testing.T) {
	cfg := testConfig(8, 4)
	cfg.Hierarchical = false
	p := NewPipeline(cfg)

	if err := p.Update(uniformFrame(8, 4, 0.5)); err != nil {
		t.Fatal(err)
	}
	if len(p.StableTiers()) != 32 {
		t.Errorf("grid has %d entries, want one per pixel (32)", len(p.StableTiers()))
	}
}
