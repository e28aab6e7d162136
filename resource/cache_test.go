// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package resource

import (
	"image"
	"testing"

	"honnef.co/go/color"

	"honnef.co/go/wren/gfx"
	"honnef.co/go/wren/rtask"
)

func solid(r, g, b float64) *color.Color {
	return &color.Color{
		Space:  color.LinearSRGB,
		Values: [4]float64{r, g, b, 1},
	}
}

func countUploads(rec *rtask.Recording) int {
	n := 0
	for _, cmd := range rec.Commands {
		if _, ok := cmd.(*rtask.UploadImage); ok {
			n++
		}
	}
	return n
}

func TestRampDedupe(t *testing.T) {
	c := NewCache()
	c.BeginFrame()

	stops := []gfx.ColorStop{
		{Offset: 0, Color: solid(0, 0, 0)},
		{Offset: 1, Color: solid(1, 1, 1)},
	}
	row := c.AddRamp(stops)
	if again := c.AddRamp(stops); again != row {
		t.Errorf("identical stops must share a ramp row: %d vs %d", row, again)
	}

	other := []gfx.ColorStop{
		{Offset: 0, Color: solid(1, 0, 0)},
		{Offset: 1, Color: solid(0, 0, 1)},
	}
	if got := c.AddRamp(other); got == row {
		t.Error("different stops must not share a ramp row")
	}

	ramps := c.Ramps()
	if ramps.Width != RampSamples {
		t.Errorf("ramp width: got %d, want %d", ramps.Width, RampSamples)
	}
	if ramps.Height != 2 {
		t.Errorf("ramp height: got %d, want 2", ramps.Height)
	}
	if len(ramps.Data) != 2*RampSamples {
		t.Errorf("ramp texel count: got %d", len(ramps.Data))
	}
}

func TestRampSurvivesFrames(t *testing.T) {
	c := NewCache()
	stops := []gfx.ColorStop{
		{Offset: 0, Color: solid(0, 1, 0)},
		{Offset: 1, Color: solid(0, 0, 0)},
	}
	c.BeginFrame()
	row := c.AddRamp(stops)
	c.BeginFrame()
	if again := c.AddRamp(stops); again != row {
		t.Errorf("ramp must survive across frames: %d vs %d", row, again)
	}
}

func TestImageUploadOnce(t *testing.T) {
	c := NewCache()
	key := c.AddImage(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0, true)

	props, ok := c.GetImageProperties(key)
	if !ok {
		t.Fatal("added image must have properties")
	}
	if props.Descriptor.Width != 4 || props.Descriptor.Height != 4 || !props.Descriptor.IsOpaque {
		t.Errorf("unexpected descriptor %+v", props.Descriptor)
	}

	c.BeginFrame()
	c.RequestImage(ImageRequest{Key: key})
	var rec rtask.Recording
	c.EndFrame(&rec)
	if got := countUploads(&rec); got != 1 {
		t.Fatalf("first frame must upload the image once, got %d uploads", got)
	}

	c.BeginFrame()
	c.RequestImage(ImageRequest{Key: key})
	var rec2 rtask.Recording
	c.EndFrame(&rec2)
	if got := countUploads(&rec2); got != 0 {
		t.Errorf("resident image must not re-upload, got %d uploads", got)
	}
}

func TestTileUploads(t *testing.T) {
	c := NewCache()
	key := c.AddImage(image.NewRGBA(image.Rect(0, 0, 100, 100)), 64, false)

	c.BeginFrame()
	for _, tile := range []TileOffset{{0, 0}, {1, 0}, {0, 0}} {
		tile := tile
		c.RequestImage(ImageRequest{Key: key, Tile: &tile})
	}
	var rec rtask.Recording
	c.EndFrame(&rec)
	if got := countUploads(&rec); got != 2 {
		t.Fatalf("two distinct tiles requested, got %d uploads", got)
	}
	// The second tile is cut short by the right image edge.
	up := rec.Commands[1].(*rtask.UploadImage)
	if up.Image.Width != 36 || up.Image.Height != 64 {
		t.Errorf("edge tile size: got %dx%d, want 36x64", up.Image.Width, up.Image.Height)
	}
}

func TestPendingImageResolution(t *testing.T) {
	c := NewCache()
	key := c.AddPendingImage(0)

	if _, ok := c.GetImageProperties(key); ok {
		t.Fatal("pending image must report no properties")
	}

	c.BeginFrame()
	c.RequestImage(ImageRequest{Key: key})
	var rec rtask.Recording
	c.EndFrame(&rec)
	if got := countUploads(&rec); got != 0 {
		t.Errorf("unresolved image must not upload, got %d", got)
	}

	c.ResolveImage(key, image.NewRGBA(image.Rect(0, 0, 8, 8)), false)
	props, ok := c.GetImageProperties(key)
	if !ok {
		t.Fatal("resolved image must have properties")
	}
	if props.Descriptor.Width != 8 {
		t.Errorf("descriptor width: got %d", props.Descriptor.Width)
	}

	c.BeginFrame()
	c.RequestImage(ImageRequest{Key: key})
	var rec2 rtask.Recording
	c.EndFrame(&rec2)
	if got := countUploads(&rec2); got != 1 {
		t.Errorf("resolved image must upload once, got %d", got)
	}
}

func TestRequestGlyphsCountsNewOnly(t *testing.T) {
	c := NewCache()
	c.BeginFrame()

	glyphs := []GlyphID{1, 2, 3}
	if got := c.RequestGlyphs(1, glyphs, 1.0); got != 3 {
		t.Errorf("first request rasterizes all glyphs, got %d", got)
	}
	if got := c.RequestGlyphs(1, glyphs, 1.0); got != 0 {
		t.Errorf("repeat request must hit the cache, got %d", got)
	}
	// A different raster scale is a different cache entry.
	if got := c.RequestGlyphs(1, glyphs, 2.0); got != 3 {
		t.Errorf("new scale rasterizes again, got %d", got)
	}
	// Nearby scales quantize together.
	if got := c.RequestGlyphs(1, glyphs, 2.01); got != 0 {
		t.Errorf("quantized scale must hit the cache, got %d", got)
	}

	c.BeginFrame()
	if got := c.RequestGlyphs(1, glyphs, 1.0); got != 0 {
		t.Errorf("glyphs must survive a frame, got %d", got)
	}
}
