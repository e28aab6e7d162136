// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"math"

	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/resource"
	"honnef.co/go/wren/wmath"
)

// DefaultTileSize is the edge length of cache tiles in world pixels.
const DefaultTileSize = 512.0

// DirtyRegion is one world-space area that must be redrawn this frame.
// Primitives outside every dirty region keep their cached pixels.
type DirtyRegion struct {
	WorldRect curve.Rect
	Mask      VisibilityMask
}

type tileKey struct {
	X int32
	Y int32
}

type cacheTile struct {
	prevHash uint64
	currHash uint64
	inRange  bool
}

// TileCache caches the rasterization of a scrolling content picture in a
// grid of world-space tiles and tracks which tiles changed between frames.
type TileCache struct {
	SpatialNode wmath.SpatialNodeIndex
	TileSize    float64

	// SharedClips apply to everything in the cache; they are baked into
	// the cached tiles once instead of being evaluated per primitive.
	SharedClips []clip.ChainID

	tiles       map[tileKey]*cacheTile
	worldBounds curve.Rect

	// firstPrimInfo marks where this cache's visibility records start, so
	// PostUpdate can assign their masks.
	firstPrimInfo int

	dirtyRegions []DirtyRegion
}

func NewTileCache(spatial wmath.SpatialNodeIndex, sharedClips []clip.ChainID) *TileCache {
	return &TileCache{
		SpatialNode: spatial,
		TileSize:    DefaultTileSize,
		SharedClips: sharedClips,
		tiles:       make(map[tileKey]*cacheTile),
	}
}

func (tc *TileCache) tileRange(r curve.Rect) (x0, y0, x1, y1 int32) {
	x0 = int32(math.Floor(r.X0 / tc.TileSize))
	y0 = int32(math.Floor(r.Y0 / tc.TileSize))
	x1 = int32(math.Ceil(r.X1 / tc.TileSize))
	y1 = int32(math.Ceil(r.Y1 / tc.TileSize))
	return
}

func (tc *TileCache) tileRect(k tileKey) curve.Rect {
	return wmath.RectFromOriginSize(
		float64(k.X)*tc.TileSize,
		float64(k.Y)*tc.TileSize,
		tc.TileSize,
		tc.TileSize,
	)
}

// PreUpdate establishes the tile grid for this frame's cull rect and
// resets per-frame hashes. Tiles that scrolled out of range are dropped.
func (tc *TileCache) PreUpdate(ctx *FrameContext, state *FrameState) {
	tc.worldBounds = ctx.WorldCullRect
	tc.firstPrimInfo = len(state.Scratch.PrimInfo)
	tc.dirtyRegions = tc.dirtyRegions[:0]

	for _, t := range tc.tiles {
		t.inRange = false
	}
	x0, y0, x1, y1 := tc.tileRange(tc.worldBounds)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			k := tileKey{X: x, Y: y}
			t, ok := tc.tiles[k]
			if !ok {
				t = &cacheTile{}
				tc.tiles[k] = t
			}
			t.inRange = true
			t.currHash = hashSeed
			t.currHash = hashU64(t.currHash, uint64(uint32(k.X)))
			t.currHash = hashU64(t.currHash, uint64(uint32(k.Y)))
		}
	}
	for k, t := range tc.tiles {
		if !t.inRange {
			delete(tc.tiles, k)
		}
	}
}

// primDependencies is everything that, when changed, must invalidate the
// tiles a primitive touches.
type primDependencies struct {
	uid          uint64
	spatial      wmath.SpatialNodeIndex
	localRect    curve.Rect
	clippedWorld curve.Rect
	clipNodes    int
	needsMask    bool
	images       [3]resource.ImageKey
	opacity      float32
}

// UpdatePrimDependencies folds the primitive's dependencies into every
// tile it touches. It returns false when the primitive lies outside the
// tile grid entirely; such primitives are culled.
func (tc *TileCache) UpdatePrimDependencies(deps *primDependencies) bool {
	r, ok := wmath.Intersect(deps.clippedWorld, tc.worldBounds)
	if !ok {
		return false
	}
	h := hashSeed
	h = hashU64(h, deps.uid)
	h = hashU64(h, uint64(uint32(deps.spatial)))
	h = hashRect(h, deps.localRect)
	h = hashRect(h, deps.clippedWorld)
	h = hashU64(h, uint64(deps.clipNodes))
	if deps.needsMask {
		h = hashU64(h, 1)
	}
	for _, img := range deps.images {
		h = hashU64(h, uint64(img))
	}
	h = hashU64(h, uint64(math.Float32bits(deps.opacity)))

	x0, y0, x1, y1 := tc.tileRange(r)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if t, ok := tc.tiles[tileKey{X: x, Y: y}]; ok {
				t.currHash = hashU64(t.currHash, h)
			}
		}
	}
	return true
}

// PostUpdate diffs tile hashes against the previous frame, merges changed
// tiles into at most MaxDirtyRegions regions, and assigns each of this
// cache's visibility records the mask of regions it intersects.
func (tc *TileCache) PostUpdate(ctx *FrameContext, state *FrameState) {
	for k, t := range tc.tiles {
		if t.currHash == t.prevHash {
			continue
		}
		t.prevHash = t.currHash
		rect, ok := wmath.Intersect(tc.tileRect(k), tc.worldBounds)
		if !ok {
			continue
		}
		tc.addDirtyRect(rect)
	}

	debugAssert(tc.firstPrimInfo <= len(state.Scratch.PrimInfo), "tile cache saw the scratch buffer reset mid-frame")
	infos := state.Scratch.PrimInfo[tc.firstPrimInfo:]
	for i := range infos {
		info := &infos[i]
		var mask VisibilityMask
		for _, region := range tc.dirtyRegions {
			if _, ok := wmath.Intersect(info.ClippedWorldRect, region.WorldRect); ok {
				mask |= region.Mask
			}
		}
		info.VisibilityMask = mask
	}

	state.DirtyRegions = append(state.DirtyRegions[:0], tc.dirtyRegions...)
}

// addDirtyRect records rect as dirty. Once MaxDirtyRegions exist, further
// rects merge into the last region rather than growing the list; masks
// must stay within 16 bits.
func (tc *TileCache) addDirtyRect(rect curve.Rect) {
	// Coalesce with an existing region it already touches, to keep the
	// region count low for mostly contiguous damage.
	for i := range tc.dirtyRegions {
		region := &tc.dirtyRegions[i]
		if _, ok := wmath.Intersect(wmath.Inflate(region.WorldRect, 1, 1), rect); ok {
			region.WorldRect = wmath.Union(region.WorldRect, rect)
			return
		}
	}
	if len(tc.dirtyRegions) >= MaxDirtyRegions {
		last := &tc.dirtyRegions[MaxDirtyRegions-1]
		last.WorldRect = wmath.Union(last.WorldRect, rect)
		return
	}
	tc.dirtyRegions = append(tc.dirtyRegions, DirtyRegion{
		WorldRect: rect,
		Mask:      1 << len(tc.dirtyRegions),
	})
}

// DirtyRegions exposes the regions computed by the last PostUpdate.
func (tc *TileCache) DirtyRegions() []DirtyRegion {
	return tc.dirtyRegions
}

// FNV-1a, unrolled for uint64 input.
const hashSeed uint64 = 0xcbf29ce484222325

func hashU64(h, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= 0x100000001b3
		v >>= 8
	}
	return h
}

func hashRect(h uint64, r curve.Rect) uint64 {
	h = hashU64(h, math.Float64bits(r.X0))
	h = hashU64(h, math.Float64bits(r.Y0))
	h = hashU64(h, math.Float64bits(r.X1))
	h = hashU64(h, math.Float64bits(r.Y1))
	return h
}
