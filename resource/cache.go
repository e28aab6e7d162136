// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package resource owns everything the frame builder requests but does not
// build itself: image templates and their tiles, rasterized glyphs,
// gradient ramps, and cached render tasks. Requests made during frame
// building are realized into upload commands at EndFrame.
package resource

import (
	"honnef.co/go/safeish"

	"honnef.co/go/wren/gfx"
	"honnef.co/go/wren/rtask"
)

type Cache struct {
	images       map[ImageKey]*imageTemplate
	nextImageKey ImageKey

	pendingImages []ImageKey
	pendingTiles  []pendingTile

	glyphs *glyphCache
	ramps  *rampCache

	// Tasks caches render tasks whose output is stable across frames.
	Tasks *rtask.TaskCache
}

func NewCache() *Cache {
	return &Cache{
		images: make(map[ImageKey]*imageTemplate),
		glyphs: newGlyphCache(),
		ramps:  newRampCache(),
		Tasks:  rtask.NewTaskCache(),
	}
}

// BeginFrame advances cache epochs and resets per-frame request queues.
func (c *Cache) BeginFrame() {
	c.ramps.maintain()
	c.glyphs.maintain()
	c.Tasks.BeginFrame()
	c.pendingImages = c.pendingImages[:0]
	c.pendingTiles = c.pendingTiles[:0]
}

// AddRamp caches a gradient ramp for the stop list and returns its row in
// the ramp texture.
func (c *Cache) AddRamp(stops []gfx.ColorStop) uint32 {
	return c.ramps.add(stops)
}

func (c *Cache) Ramps() Ramps {
	return c.ramps.ramps()
}

// EndFrame realizes pending image and ramp uploads into the recording.
func (c *Cache) EndFrame(rec *rtask.Recording) {
	for _, key := range c.pendingImages {
		tmpl := c.images[key]
		if tmpl.uploaded {
			continue
		}
		rgba := realizeImage(tmpl.data)
		tmpl.proxy = rec.UploadImage(
			uint32(tmpl.desc.Width),
			uint32(tmpl.desc.Height),
			rtask.Rgba8Srgb,
			rgba.Pix,
		)
		tmpl.uploaded = true
	}
	for _, pt := range c.pendingTiles {
		tmpl := c.images[pt.key]
		rgba := realizeTile(tmpl.data, pt.tile, tmpl.tiling)
		b := rgba.Bounds()
		rec.UploadImage(uint32(b.Dx()), uint32(b.Dy()), rtask.Rgba8Srgb, rgba.Pix)
	}

	ramps := c.ramps.ramps()
	if ramps.Height > 0 {
		rec.UploadImage(
			ramps.Width,
			ramps.Height,
			rtask.Rgba8,
			safeish.SliceCast[[]byte](ramps.Data),
		)
	}
}
