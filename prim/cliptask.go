// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"math"

	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/segment"
	"honnef.co/go/wren/wmath"
)

const (
	// MinBrushSplitArea is the local-space area below which segmenting a
	// brush costs more than a whole-primitive mask.
	MinBrushSplitArea = 128.0 * 128.0

	// MaxMaskSize caps mask render targets; larger masks render at reduced
	// scale instead.
	MaxMaskSize = 4096.0
)

// adjustMaskScaleForMaxSize rounds deviceRect to integers and, when either
// dimension exceeds MaxMaskSize, shrinks rect and scale proportionally so
// the mask fits a render target.
func adjustMaskScaleForMaxSize(deviceRect curve.Rect, scale wmath.DevicePixelScale) (curve.Rect, wmath.DevicePixelScale) {
	r := wmath.RoundOut(deviceRect)
	m := max(wmath.Width(r), wmath.Height(r))
	if m <= MaxMaskSize {
		return r, scale
	}
	f := (MaxMaskSize - 1) / m
	scaled := wmath.Scale(r, f, f)
	out := wmath.RectFromOriginSize(
		math.Floor(scaled.X0),
		math.Floor(scaled.Y0),
		math.Floor(wmath.Width(scaled)),
		math.Floor(wmath.Height(scaled)),
	)
	return out, wmath.DevicePixelScale(float64(scale) * f)
}

// updateClipTask decides how the primitive's clip chain is realized:
// nothing, one whole-primitive mask task, or one mask decision per brush
// segment. Returns false when the primitive turned out to be fully clipped
// after all.
func (s *Store) updateClipTask(
	inst *Instance,
	vis *PrimitiveVisibility,
	spatial wmath.SpatialNodeIndex,
	pc *prepContext,
	ctx *FrameContext,
	state *FrameState,
) bool {
	vis.ClipTaskIndex = InvalidClipTaskIndex

	s.buildSegmentsIfNeeded(inst, vis, spatial, ctx, state)

	if s.updateClipTaskForBrushSegments(inst, vis, spatial, pc, ctx, state) {
		return true
	}

	if !vis.ClipChain.NeedsMask {
		return true
	}

	device, scale := adjustMaskScaleForMaxSize(
		wmath.Scale(vis.ClippedWorldRect, float64(ctx.DeviceScale), float64(ctx.DeviceScale)),
		ctx.DeviceScale,
	)
	if wmath.IsEmpty(device) {
		return false
	}
	task := state.Tasks.Add(&rtask.MaskTask{
		DeviceRect:        device,
		DeviceScale:       scale,
		ClipNodeCount:     vis.ClipChain.ClipNodeRange.Len(),
		MainClipIsImage:   mainClipIsImage(state.ClipStore, &vis.ClipChain),
		RasterSpatialNode: pc.surface.RasterSpatialNode,
	})
	state.Tasks.AddDependency(pc.surface.Task, task)

	idx := ClipTaskIndex(len(state.Scratch.ClipMaskInstances))
	debugAssert(idx > 0, "clip mask sentinel missing from scratch buffer")
	state.Scratch.ClipMaskInstances = append(state.Scratch.ClipMaskInstances, ClipMaskInstance{
		Kind: ClipMaskMask,
		Task: task,
	})
	vis.ClipTaskIndex = idx
	ctx.chaseLog(inst, "whole-primitive mask", "deviceRect", device)
	return true
}

// mainClipIsImage reports whether the first clip node of the chain is an
// image mask; the mask shader samples it directly in that case.
func mainClipIsImage(store *clip.Store, chain *clip.ChainInstance) bool {
	nodes := store.ChainNodes(chain.ClipNodeRange)
	if len(nodes) == 0 {
		return false
	}
	_, ok := store.Node(nodes[0]).Item.(clip.ImageMaskClip)
	return ok
}

// segmentationTarget returns where the instance stores its segment index
// and which local rect to partition. Kinds that cannot be drawn as
// segmented brushes return nil.
func (s *Store) segmentationTarget(inst *Instance, state *FrameState) (*SegmentInstanceIndex, curve.Rect) {
	switch k := inst.Kind.(type) {
	case *RectangleKind:
		return &k.SegmentInstance, s.Data.Rectangles.Get(k.Data).Common.LocalRect
	case *YuvImageKind:
		return &k.SegmentInstance, s.Data.YuvImages.Get(k.Data).Common.LocalRect
	case *ImageKind:
		t := s.Data.Images.Get(k.Data)
		props, ok := state.Resources.GetImageProperties(t.Key)
		if !ok || props.Tiling != 0 {
			// Tiled images are already split per tile.
			return nil, curve.Rect{}
		}
		return &k.SegmentInstance, t.Common.LocalRect
	case *PictureKind:
		pic := s.Picture(k.Pic)
		if rc := pic.RasterConfig; rc != nil {
			switch rc.CompositeMode.(type) {
			case MixBlend, FilterOpacity:
				return &pic.SegmentInstance, pic.SnappedLocalRect
			}
		}
		return nil, curve.Rect{}
	default:
		return nil, curve.Rect{}
	}
}

// buildSegmentsIfNeeded partitions the brush against its clip chain, once
// per frame. Small primitives and chains containing image masks skip
// segmentation; partitions of a single segment are discarded as useless.
func (s *Store) buildSegmentsIfNeeded(
	inst *Instance,
	vis *PrimitiveVisibility,
	spatial wmath.SpatialNodeIndex,
	ctx *FrameContext,
	state *FrameState,
) {
	segp, localRect := s.segmentationTarget(inst, state)
	if segp == nil || *segp != SegmentsUnbuilt {
		return
	}
	*segp = SegmentsUnused

	if wmath.Area(localRect) < MinBrushSplitArea {
		return
	}

	state.ClipStore.SetActiveClipsFromChainInstance(&vis.ClipChain, spatial, ctx.SpatialTree)

	var builder segment.Builder
	builder.Init(localRect, vis.CombinedLocalClipRect)
	for _, ac := range state.ClipStore.ActiveClips() {
		node := state.ClipStore.Node(ac.Node)
		switch item := node.Item.(type) {
		case clip.RectClip:
			if ac.SameSpatialNode {
				builder.PushClipRect(item.Rect, clip.BorderRadii{}, item.Mode)
			} else if ac.HasValidRect && item.Mode == clip.ModeClip {
				builder.PushClipRect(ac.LocalRect, clip.BorderRadii{}, item.Mode)
			} else {
				return
			}
		case clip.RoundedRectClip:
			if !ac.SameSpatialNode {
				return
			}
			builder.PushClipRect(item.Rect, item.Radii, item.Mode)
		case clip.BoxShadowClip:
			if !ac.SameSpatialNode {
				return
			}
			builder.PushMaskRegion(item.ShadowRect, item.SourceRect, item.Inset)
		case clip.ImageMaskClip:
			// An image mask covers the whole primitive; per-segment masks
			// would resample it for no win.
			return
		default:
			return
		}
	}

	start := int32(len(state.Scratch.Segments))
	count := 0
	ok := builder.Build(func(seg segment.Segment) {
		state.Scratch.Segments = append(state.Scratch.Segments, seg)
		count++
	})
	if !ok || count <= 1 {
		state.Scratch.Segments = state.Scratch.Segments[:start]
		return
	}

	idx := SegmentInstanceIndex(len(state.Scratch.SegmentInstances))
	state.Scratch.SegmentInstances = append(state.Scratch.SegmentInstances, SegmentedInstance{
		Segments: Range{Start: start, End: start + int32(count)},
	})
	*segp = idx
	ctx.chaseLog(inst, "segmented", "segments", count)
}

// updateClipTaskForBrushSegments allocates one ClipMaskInstance per
// segment. Returns false when the instance has no usable segmentation and
// the whole-primitive path must run instead.
func (s *Store) updateClipTaskForBrushSegments(
	inst *Instance,
	vis *PrimitiveVisibility,
	spatial wmath.SpatialNodeIndex,
	pc *prepContext,
	ctx *FrameContext,
	state *FrameState,
) bool {
	segp, localRect := s.segmentationTarget(inst, state)
	if segp == nil || *segp < 0 {
		return false
	}
	si := &state.Scratch.SegmentInstances[*segp]
	segRange := si.Segments

	idx := ClipTaskIndex(len(state.Scratch.ClipMaskInstances))
	debugAssert(idx > 0, "clip mask sentinel missing from scratch buffer")
	origin := curve.Vec2{X: localRect.X0, Y: localRect.Y0}

	// Single-segment partitions were already discarded as SegmentsUnused,
	// so every segment here gets its own tightened chain.
	for i := segRange.Start; i < segRange.End; i++ {
		seg := &state.Scratch.Segments[i]
		var cmi ClipMaskInstance
		if !vis.ClipChain.NeedsMask && !seg.MayNeedClipMask {
			cmi = ClipMaskInstance{Kind: ClipMaskNone}
		} else {
			state.ClipStore.SetActiveClipsFromChainInstance(&vis.ClipChain, spatial, ctx.SpatialTree)
			segLocal := wmath.Translate(seg.Rect, origin)
			chain, ok := state.ClipStore.BuildChainInstance(
				segLocal,
				vis.CombinedLocalClipRect,
				pc.mapLocalToSurface,
				pc.mapSurfaceToWorld,
				ctx.WorldCullRect,
				true,
			)
			cmi = s.segmentClipTask(seg, &chain, ok, pc, ctx, state)
		}
		state.Scratch.ClipMaskInstances = append(state.Scratch.ClipMaskInstances, cmi)
	}
	vis.ClipTaskIndex = idx
	return true
}

// segmentClipTask resolves one segment's mask requirement against its
// (possibly tightened) clip chain.
func (s *Store) segmentClipTask(
	seg *segment.Segment,
	chain *clip.ChainInstance,
	hasChain bool,
	pc *prepContext,
	ctx *FrameContext,
	state *FrameState,
) ClipMaskInstance {
	if !hasChain {
		return ClipMaskInstance{Kind: ClipMaskClipped}
	}
	if !chain.NeedsMask && !seg.MayNeedClipMask {
		return ClipMaskInstance{Kind: ClipMaskNone}
	}
	world, ok := pc.mapSurfaceToWorld.Map(chain.PicClipRect)
	if !ok {
		return ClipMaskInstance{Kind: ClipMaskClipped}
	}
	clipped, ok := wmath.Intersect(world, ctx.WorldCullRect)
	if !ok {
		return ClipMaskInstance{Kind: ClipMaskClipped}
	}
	device, scale := adjustMaskScaleForMaxSize(
		wmath.Scale(clipped, float64(ctx.DeviceScale), float64(ctx.DeviceScale)),
		ctx.DeviceScale,
	)
	if wmath.IsEmpty(device) {
		return ClipMaskInstance{Kind: ClipMaskClipped}
	}
	task := state.Tasks.Add(&rtask.MaskTask{
		DeviceRect:        device,
		DeviceScale:       scale,
		ClipNodeCount:     chain.ClipNodeRange.Len(),
		MainClipIsImage:   mainClipIsImage(state.ClipStore, chain),
		RasterSpatialNode: pc.surface.RasterSpatialNode,
	})
	state.Tasks.AddDependency(pc.surface.Task, task)
	return ClipMaskInstance{Kind: ClipMaskMask, Task: task}
}
