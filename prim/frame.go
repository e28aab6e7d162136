// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"log/slog"

	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/gpu"
	"honnef.co/go/wren/resource"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/wmath"
)

// maxLocalRect bounds space mappers when no tighter estimate exists.
var maxLocalRect = curve.Rect{X0: -1e15, Y0: -1e15, X1: 1e15, Y1: 1e15}

// FrameContext is the read-only input of one frame build.
type FrameContext struct {
	WorldCullRect   curve.Rect
	DeviceScale     wmath.DevicePixelScale
	SpatialTree     *wmath.SpatialTree
	RootSpatialNode wmath.SpatialNodeIndex
	DebugFlags      DebugFlags

	// ChaseUID selects one instance whose journey through the frame is
	// logged; zero disables chasing.
	ChaseUID uint64
	Logger   *slog.Logger
}

// FrameState is the mutable output side of one frame build.
type FrameState struct {
	Scratch   *ScratchBuffer
	ClipStore *clip.Store
	GpuCache  *gpu.Cache
	Resources *resource.Cache
	Tasks     *rtask.Graph

	Surfaces []Surface

	// DirtyRegions is what the active tile cache computed; empty means
	// everything is treated as dirty.
	DirtyRegions []DirtyRegion

	tileCaches []*TileCache
}

func (fs *FrameState) pushTileCache(tc *TileCache) {
	fs.tileCaches = append(fs.tileCaches, tc)
}

func (fs *FrameState) popTileCache() {
	fs.tileCaches = fs.tileCaches[:len(fs.tileCaches)-1]
}

func (fs *FrameState) currentTileCache() *TileCache {
	if len(fs.tileCaches) == 0 {
		return nil
	}
	return fs.tileCaches[len(fs.tileCaches)-1]
}

// skipClip reports whether chain is a shared clip of the active tile
// cache. Shared clips are applied once to the cached surface instead of to
// every primitive.
func (fs *FrameState) skipClip(chain clip.ChainID) bool {
	tc := fs.currentTileCache()
	if tc == nil {
		return false
	}
	for _, shared := range tc.SharedClips {
		if shared == chain {
			return true
		}
	}
	return false
}

// AssignSurfaces rebuilds the per-frame surface list. Every picture with a
// composite mode or a tile cache renders to its own surface; pass-through
// pictures inherit the parent's.
func (s *Store) AssignSurfaces(root PictureIndex, ctx *FrameContext, state *FrameState) {
	state.Surfaces = state.Surfaces[:0]
	s.assignSurfaces(root, RootSurfaceIndex, true, ctx, state)
}

func (s *Store) assignSurfaces(picIndex PictureIndex, parent SurfaceIndex, isRoot bool, ctx *FrameContext, state *FrameState) {
	pic := s.Picture(picIndex)
	pic.RasterConfig = nil
	pic.SegmentInstance = SegmentsUnbuilt

	needsSurface := isRoot || pic.RequestedCompositeMode != nil || pic.TileCache != nil
	surfaceIndex := parent
	if needsSurface {
		mode := pic.RequestedCompositeMode
		if mode == nil && pic.TileCache != nil {
			mode = TileCacheComposite{}
		}

		rasterRoot := pic.SpatialNode
		establishes := true
		if _, blur := mode.(FilterBlur); !blur && !isRoot {
			// Only blurs and the root must rasterize in their own space;
			// everything else can share the parent's raster grid and avoid
			// a re-rasterization when only the transform animates.
			establishes = false
			rasterRoot = ctx.RootSpatialNode
		}

		surfaceIndex = SurfaceIndex(len(state.Surfaces))
		state.Surfaces = append(state.Surfaces, Surface{
			SurfaceSpatialNode: pic.SpatialNode,
			RasterSpatialNode:  rasterRoot,
			DeviceScale:        ctx.DeviceScale,
			InflationFactor:    inflationFor(mode),
			Task: state.Tasks.Add(&rtask.SurfaceTask{
				DeviceScale: ctx.DeviceScale,
			}),
		})
		pic.RasterConfig = &RasterConfig{
			CompositeMode:         mode,
			SurfaceIndex:          surfaceIndex,
			EstablishesRasterRoot: establishes,
		}
	}

	for ci := range pic.PrimList.Clusters {
		cl := &pic.PrimList.Clusters[ci]
		for i := cl.Instances.Start; i < cl.Instances.End; i++ {
			if k, ok := pic.PrimList.Instances[i].Kind.(*PictureKind); ok {
				s.assignSurfaces(k.Pic, surfaceIndex, false, ctx, state)
			}
		}
	}
}
