// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package resource

import "math"

// FontKey identifies a font instance (face + size) for the scene lifetime.
type FontKey uint32

// GlyphID is a glyph index within its font.
type GlyphID uint32

// GlyphRasterKey keys rasterized glyphs by font, glyph and the raster scale
// the text run renders at. Quantizing the scale keeps nearby zoom levels
// sharing entries.
type GlyphRasterKey struct {
	Font  FontKey
	Glyph GlyphID
	// Scale is the raster scale in 1/16 units.
	Scale int32
}

func quantizeScale(s float64) int32 {
	return int32(math.Round(s * 16))
}

type glyphEntry struct {
	epoch uint64
	// Atlas slot; allocation is owned by the texture atlas, which is not
	// part of this core.
	slot uint32
}

type glyphCache struct {
	epoch    uint64
	mapping  map[GlyphRasterKey]*glyphEntry
	nextSlot uint32
}

func newGlyphCache() *glyphCache {
	return &glyphCache{
		mapping: make(map[GlyphRasterKey]*glyphEntry),
	}
}

func (gc *glyphCache) maintain() {
	gc.epoch++
	for k, e := range gc.mapping {
		if e.epoch+8 < gc.epoch {
			delete(gc.mapping, k)
		}
	}
}

// RequestGlyphs marks the run's glyphs as needed at the given raster scale,
// allocating cache slots for new ones. It returns how many glyphs were
// newly rasterized this frame.
func (c *Cache) RequestGlyphs(font FontKey, glyphs []GlyphID, rasterScale float64) int {
	scale := quantizeScale(rasterScale)
	added := 0
	for _, g := range glyphs {
		key := GlyphRasterKey{Font: font, Glyph: g, Scale: scale}
		if e, ok := c.glyphs.mapping[key]; ok {
			e.epoch = c.glyphs.epoch
			continue
		}
		c.glyphs.mapping[key] = &glyphEntry{
			epoch: c.glyphs.epoch,
			slot:  c.glyphs.nextSlot,
		}
		c.glyphs.nextSlot++
		added++
	}
	return added
}
