// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package gpu implements the host-side GPU data cache: small fixed-size
// blocks of shader-visible data, addressed through invalidatable handles.
// Templates own their handles and only rewrite blocks when a handle has
// been invalidated, so an unchanged frame uploads nothing.
package gpu

import (
	"structs"

	"honnef.co/go/curve"
	"honnef.co/go/safeish"
)

// Block is one row of the GPU cache texture: four f32 texels.
type Block struct {
	_ structs.HostLayout

	Data [4]float32
}

func BlockFromRect(r curve.Rect) Block {
	return Block{Data: [4]float32{
		float32(r.X0), float32(r.Y0),
		float32(r.X1 - r.X0), float32(r.Y1 - r.Y0),
	}}
}

func BlockFromFloats(a, b, c, d float32) Block {
	return Block{Data: [4]float32{a, b, c, d}}
}

type epoch uint32

// Handle is an opaque, owned-by-template token for a range of blocks.
// The zero value is unallocated and will be serviced on first request.
type Handle struct {
	id    int32 // 1-based; 0 means never allocated
	epoch epoch
}

// Address is the block offset handed to shaders.
type Address uint32

const InvalidAddress Address = ^Address(0)

type entry struct {
	epoch epoch
	start int
	len   int
}

// Cache holds the block arena and the allocation table. Entries persist
// across frames; only invalidated handles rewrite their blocks. Rewrites
// append fresh blocks and orphan the old range; once more than half the
// arena is orphaned, BeginFrame compacts it.
type Cache struct {
	frame   epoch
	entries []entry
	blocks  []Block
	dead    int
	dirty   bool
}

func NewCache() *Cache {
	return &Cache{frame: 1}
}

// BeginFrame starts a new frame. Handles stay valid; only explicit
// invalidation or eviction forces a rewrite.
func (c *Cache) BeginFrame() {
	c.frame++
	c.dirty = false
	if c.dead > 0 && c.dead*2 >= len(c.blocks) {
		c.compact()
	}
}

// compact rebuilds the arena from the live entries, reclaiming orphaned
// ranges. Addresses change, so the whole arena must be re-uploaded.
func (c *Cache) compact() {
	live := make([]Block, 0, len(c.blocks)-c.dead)
	for i := range c.entries {
		e := &c.entries[i]
		if e.epoch == 0 || e.len == 0 {
			continue
		}
		start := len(live)
		live = append(live, c.blocks[e.start:e.start+e.len]...)
		e.start = start
	}
	c.blocks = live
	c.dead = 0
	c.dirty = true
}

// Invalidate forces the next Request for h to produce a writer. The
// entry's current blocks become dead immediately.
func (c *Cache) Invalidate(h *Handle) {
	if h.id == 0 {
		return
	}
	e := &c.entries[h.id-1]
	if e.epoch != 0 {
		c.dead += e.len
		e.epoch = 0
		e.len = 0
	}
}

// Request returns a writer for h if its data needs to be (re)written this
// frame, or ok=false if the cached blocks are still valid. The returned
// writer must be finished with Finish before the next Request.
func (c *Cache) Request(h *Handle) (*Writer, bool) {
	if h.id != 0 {
		e := &c.entries[h.id-1]
		if e.epoch == h.epoch && e.epoch != 0 {
			return nil, false
		}
	}
	if h.id == 0 {
		c.entries = append(c.entries, entry{})
		h.id = int32(len(c.entries))
	}
	h.epoch = c.frame
	return &Writer{cache: c, handle: h, start: len(c.blocks)}, true
}

// Address resolves h to its block offset. Requesting an address for a
// handle that was never written is a logic bug upstream; it returns
// InvalidAddress instead of panicking so a broken frame draws wrong rather
// than crashing.
func (c *Cache) Address(h Handle) Address {
	if h.id == 0 {
		return InvalidAddress
	}
	e := c.entries[h.id-1]
	if e.epoch == 0 {
		return InvalidAddress
	}
	return Address(e.start)
}

// Blocks returns all blocks written so far, for upload.
func (c *Cache) Blocks() []Block { return c.blocks }

// Dirty reports whether any blocks were written (or moved by compaction)
// since BeginFrame. A clean frame needs no upload.
func (c *Cache) Dirty() bool { return c.dirty }

// Bytes returns the raw upload bytes of the block arena.
func (c *Cache) Bytes() []byte {
	return safeish.SliceCast[[]byte](c.blocks)
}

// Writer appends blocks for one handle.
type Writer struct {
	cache  *Cache
	handle *Handle
	start  int
}

func (w *Writer) PushBlock(b Block) {
	w.cache.blocks = append(w.cache.blocks, b)
}

func (w *Writer) PushRect(r curve.Rect) {
	w.PushBlock(BlockFromRect(r))
}

func (w *Writer) PushFloats(a, b, c, d float32) {
	w.PushBlock(BlockFromFloats(a, b, c, d))
}

// Finish commits the written range to the handle's entry. A range the
// entry still held from an earlier frame becomes dead.
func (w *Writer) Finish() {
	e := &w.cache.entries[w.handle.id-1]
	if e.len > 0 {
		w.cache.dead += e.len
	}
	e.epoch = w.cache.frame
	e.start = w.start
	e.len = len(w.cache.blocks) - w.start
	w.cache.dirty = true
}
