// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"math"

	"honnef.co/go/curve"

	"honnef.co/go/wren/resource"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/segment"
	"honnef.co/go/wren/wmath"
)

// UpdateVisibility walks the picture tree depth first and records a
// visibility entry for every primitive that survives culling. It
// accumulates each surface's footprint as a side effect; surfaces that end
// up empty are culled late by the prepare pass.
func (s *Store) UpdateVisibility(picIndex PictureIndex, parentSurface SurfaceIndex, ctx *FrameContext, state *FrameState) {
	pic := s.Picture(picIndex)

	surfaceIndex := parentSurface
	if pic.RasterConfig != nil {
		surfaceIndex = pic.RasterConfig.SurfaceIndex
		state.Surfaces[surfaceIndex].Rect = curve.Rect{}
	}
	if pic.TileCache != nil {
		pic.TileCache.PreUpdate(ctx, state)
		state.pushTileCache(pic.TileCache)
	}

	surface := &state.Surfaces[surfaceIndex]
	mapLocalToSurface := wmath.NewSpaceMapper(surface.SurfaceSpatialNode, maxLocalRect)
	mapSurfaceToWorld := wmath.NewSpaceMapper(ctx.RootSpatialNode, maxLocalRect)
	mapSurfaceToWorld.SetTargetSpatialNode(surface.SurfaceSpatialNode, ctx.SpatialTree)

	for ci := range pic.PrimList.Clusters {
		cl := &pic.PrimList.Clusters[ci]
		insts := pic.PrimList.Instances[cl.Instances.Start:cl.Instances.End]

		if cl.Flags&ClusterVisible == 0 {
			for i := range insts {
				resetInstance(&insts[i])
			}
			continue
		}

		mapLocalToSurface.SetTargetSpatialNode(cl.SpatialNode, ctx.SpatialTree)
		if cl.Flags&ClusterBackfaceHidden != 0 && mapLocalToSurface.VisibleFace() == wmath.FaceBack {
			for i := range insts {
				resetInstance(&insts[i])
			}
			continue
		}

		for i := range insts {
			inst := &insts[i]
			resetInstance(inst)

			var localRect curve.Rect
			if k, ok := inst.Kind.(*PictureKind); ok {
				s.UpdateVisibility(k.Pic, surfaceIndex, ctx, state)
				child := s.Picture(k.Pic)
				if child.RasterConfig == nil {
					// Pass-through: the children recorded themselves onto
					// this surface already; the grouping itself carries no
					// geometry.
					continue
				}
				localRect = child.PreciseLocalRect
			} else {
				localRect = s.LocalRect(inst)
			}

			if wmath.Area(localRect) == 0 {
				ctx.chaseLog(inst, "culled: zero-area local rect")
				continue
			}

			inflated := localRect
			if surface.InflationFactor > 0 {
				inflated = wmath.Inflate(inflated, surface.InflationFactor, surface.InflationFactor)
			}
			clippedLocal, ok := wmath.Intersect(inflated, inst.LocalClipRect)
			if !ok {
				ctx.chaseLog(inst, "culled: local clip rect")
				continue
			}

			state.ClipStore.SetActiveClips(inst.ClipChain, cl.SpatialNode, ctx.SpatialTree, state.skipClip)
			chain, ok := state.ClipStore.BuildChainInstance(
				clippedLocal,
				inst.LocalClipRect,
				mapLocalToSurface,
				mapSurfaceToWorld,
				ctx.WorldCullRect,
				pic.ApplyLocalClipRect,
			)
			if !ok {
				ctx.chaseLog(inst, "culled: clip chain")
				continue
			}

			worldRect, ok := mapSurfaceToWorld.Map(chain.PicClipRect)
			if !ok {
				ctx.chaseLog(inst, "culled: unmappable to world")
				continue
			}
			clippedWorld, ok := wmath.Intersect(worldRect, ctx.WorldCullRect)
			if !ok {
				ctx.chaseLog(inst, "culled: world cull rect")
				continue
			}

			combined := inst.LocalClipRect
			var flags VisibilityFlags
			if pic.ApplyLocalClipRect {
				combined = chain.LocalClipRect
				flags |= VisibilityAppliedLocalClip
			}
			if wmath.Area(combined) == 0 {
				ctx.chaseLog(inst, "culled: empty combined clip rect")
				continue
			}

			if tc := state.currentTileCache(); tc != nil {
				deps := primDependencies{
					uid:          inst.UID,
					spatial:      cl.SpatialNode,
					localRect:    localRect,
					clippedWorld: clippedWorld,
					clipNodes:    chain.ClipNodeRange.Len(),
					needsMask:    chain.NeedsMask,
					images:       s.imageDependencies(inst),
					opacity:      s.opacityDependency(inst),
				}
				if !tc.UpdatePrimDependencies(&deps) {
					ctx.chaseLog(inst, "culled: outside tile cache")
					continue
				}
			}

			if !s.requestResources(inst, localRect, combined, ctx, state) {
				ctx.chaseLog(inst, "culled: resources unavailable")
				continue
			}

			idx := VisibilityIndex(len(state.Scratch.PrimInfo))
			state.Scratch.PrimInfo = append(state.Scratch.PrimInfo, PrimitiveVisibility{
				ClipChain:             chain,
				ClippedWorldRect:      clippedWorld,
				CombinedLocalClipRect: combined,
				ClipTaskIndex:         InvalidClipTaskIndex,
				VisibilityMask:        AllVisible,
				Flags:                 flags,
			})
			inst.VisibilityInfo = idx

			surface.Rect = wmath.Union(surface.Rect, chain.PicClipRect)

			if ctx.DebugFlags&DebugPrimitives != 0 {
				state.Scratch.PushDebugRect(clippedWorld, debugVisibleColor)
			}
			ctx.chaseLog(inst, "visible",
				"clippedWorld", clippedWorld,
				"needsMask", chain.NeedsMask,
			)
		}
	}

	if pic.TileCache != nil {
		pic.TileCache.PostUpdate(ctx, state)
		state.popTileCache()
	}

	if rc := pic.RasterConfig; rc != nil {
		// The per-primitive rects were already inflated while accumulating,
		// so the surface rect only needs the drop shadow's translation.
		rect := surface.Rect
		if !wmath.IsEmpty(rect) {
			if ds, ok := rc.CompositeMode.(FilterDropShadow); ok {
				rect = wmath.Union(rect, wmath.Translate(rect, ds.Offset))
			}
		}
		surface.Rect = rect

		snapper := wmath.NewSpaceSnapper(surface.RasterSpatialNode, surface.DeviceScale)
		snapper.SetTargetSpatialNode(pic.SpatialNode, ctx.SpatialTree)
		snapped := snapper.SnapRect(rect)
		if rect != pic.PreciseLocalRect || snapped != pic.SnappedLocalRect {
			state.GpuCache.Invalidate(&pic.GpuHandle)
			pic.SegmentsAreValid = false
			pic.SegmentInstance = SegmentsUnbuilt
		}
		pic.PreciseLocalRect = rect
		pic.SnappedLocalRect = snapped
	}
}

// resetInstance clears all per-frame instance state. Segment and tile
// indices point into the scratch buffer, which does not survive the frame.
func resetInstance(inst *Instance) {
	inst.VisibilityInfo = InvalidVisibilityIndex
	switch k := inst.Kind.(type) {
	case *RectangleKind:
		k.SegmentInstance = SegmentsUnbuilt
	case *ImageKind:
		k.SegmentInstance = SegmentsUnbuilt
		k.VisibleTiles = Range{}
	case *YuvImageKind:
		k.SegmentInstance = SegmentsUnbuilt
	case *LineDecorationKind:
		k.CacheHandle = rtask.InvalidTaskID
	case *NormalBorderKind:
		k.CacheHandles = k.CacheHandles[:0]
	case *LinearGradientKind:
		k.VisibleTiles = Range{}
	case *RadialGradientKind:
		k.VisibleTiles = Range{}
	case *ConicGradientKind:
		k.VisibleTiles = Range{}
	}
}

// imageDependencies collects the image keys a primitive samples, for tile
// cache invalidation.
func (s *Store) imageDependencies(inst *Instance) [3]resource.ImageKey {
	switch k := inst.Kind.(type) {
	case *ImageKind:
		return [3]resource.ImageKey{s.Data.Images.Get(k.Data).Key}
	case *YuvImageKind:
		return s.Data.YuvImages.Get(k.Data).Keys
	case *ImageBorderKind:
		return [3]resource.ImageKey{s.Data.ImageBorders.Get(k.Data).Key}
	default:
		return [3]resource.ImageKey{}
	}
}

func (s *Store) opacityDependency(inst *Instance) float32 {
	switch k := inst.Kind.(type) {
	case *RectangleKind:
		return s.ResolveOpacity(k.OpacityBinding)
	case *ImageKind:
		return s.ResolveOpacity(k.OpacityBinding)
	default:
		return 1
	}
}

// requestResources asks the resource cache for everything the primitive
// needs this frame. It returns false when a required resource is not
// available yet; the primitive stays invisible until it is.
func (s *Store) requestResources(inst *Instance, localRect, combinedClip curve.Rect, ctx *FrameContext, state *FrameState) bool {
	switch k := inst.Kind.(type) {
	case *ImageKind:
		return s.requestImageTiles(k, localRect, combinedClip, state)
	case *YuvImageKind:
		t := s.Data.YuvImages.Get(k.Data)
		for _, key := range t.Keys {
			if key == resource.InvalidImageKey {
				continue
			}
			if _, ok := state.Resources.GetImageProperties(key); !ok {
				return false
			}
			state.Resources.RequestImage(resource.ImageRequest{Key: key})
		}
		return true
	case *ImageBorderKind:
		t := s.Data.ImageBorders.Get(k.Data)
		if _, ok := state.Resources.GetImageProperties(t.Key); !ok {
			return false
		}
		state.Resources.RequestImage(resource.ImageRequest{Key: t.Key})
		return true
	default:
		return true
	}
}

// requestImageTiles handles image primitives. Untiled images request their
// single texture; tiled images compute the visible tile set and request
// only that. An image with no visible tiles is culled.
func (s *Store) requestImageTiles(k *ImageKind, localRect, combinedClip curve.Rect, state *FrameState) bool {
	t := s.Data.Images.Get(k.Data)
	props, ok := state.Resources.GetImageProperties(t.Key)
	if !ok {
		return false
	}
	if props.Tiling == 0 {
		k.VisibleTiles = Range{}
		state.Resources.RequestImage(resource.ImageRequest{Key: t.Key})
		return true
	}

	visible, ok := wmath.Intersect(localRect, combinedClip)
	if !ok {
		return false
	}

	nx := int32(math.Ceil(float64(props.Descriptor.Width) / float64(props.Tiling)))
	ny := int32(math.Ceil(float64(props.Descriptor.Height) / float64(props.Tiling)))
	tileW := wmath.Width(localRect) / float64(nx)
	tileH := wmath.Height(localRect) / float64(ny)

	start := int32(len(state.Scratch.ImageTiles))
	for ty := int32(0); ty < ny; ty++ {
		for tx := int32(0); tx < nx; tx++ {
			tileRect := wmath.RectFromOriginSize(
				localRect.X0+float64(tx)*tileW,
				localRect.Y0+float64(ty)*tileH,
				tileW,
				tileH,
			)
			if _, ok := wmath.Intersect(tileRect, visible); !ok {
				continue
			}
			var edges segment.EdgeFlags
			if tx == 0 {
				edges |= segment.EdgeLeft
			}
			if ty == 0 {
				edges |= segment.EdgeTop
			}
			if tx == nx-1 {
				edges |= segment.EdgeRight
			}
			if ty == ny-1 {
				edges |= segment.EdgeBottom
			}
			tile := resource.TileOffset{X: tx, Y: ty}
			state.Scratch.ImageTiles = append(state.Scratch.ImageTiles, VisibleImageTile{
				Tile:          tile,
				LocalRect:     tileRect,
				LocalClipRect: combinedClip,
				EdgeFlags:     edges,
			})
			state.Resources.RequestImage(resource.ImageRequest{Key: t.Key, Tile: &tile})
		}
	}
	end := int32(len(state.Scratch.ImageTiles))
	k.VisibleTiles = Range{Start: start, End: end}
	return end > start
}
