// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"math"

	"honnef.co/go/curve"

	"honnef.co/go/wren/gfx"
	"honnef.co/go/wren/gpu"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/wmath"
)

const (
	// GradientFpStops is the number of gradient stops packed per GPU block
	// row; the stop shader reads them four at a time.
	GradientFpStops = 4

	// MaxLineDecorationResolution caps cached line decoration tiles.
	MaxLineDecorationResolution = 4096
)

// Task cache key kinds.
const (
	taskKindLineDecoration int32 = iota + 1
	taskKindBorderSegment
	taskKindGradientRamp
)

// prepContext carries the per-picture state of the prepare pass.
type prepContext struct {
	pic               *Picture
	surfaceIndex      SurfaceIndex
	surface           *Surface
	mapLocalToSurface *wmath.SpaceMapper
	mapSurfaceToWorld *wmath.SpaceMapper
}

// PreparePrimitives runs after visibility: it resolves clip tasks, builds
// brush segments, requests cached render tasks, and writes GPU data for
// every primitive that stayed visible. Pictures whose surface came out
// empty are culled here, after their own children were already skipped.
func (s *Store) PreparePrimitives(picIndex PictureIndex, parentSurface SurfaceIndex, ctx *FrameContext, state *FrameState) {
	pic := s.Picture(picIndex)
	surfaceIndex := parentSurface
	if pic.RasterConfig != nil {
		surfaceIndex = pic.RasterConfig.SurfaceIndex
	}
	surface := &state.Surfaces[surfaceIndex]

	pc := prepContext{
		pic:               pic,
		surfaceIndex:      surfaceIndex,
		surface:           surface,
		mapLocalToSurface: wmath.NewSpaceMapper(surface.SurfaceSpatialNode, maxLocalRect),
		mapSurfaceToWorld: wmath.NewSpaceMapper(ctx.RootSpatialNode, maxLocalRect),
	}
	pc.mapSurfaceToWorld.SetTargetSpatialNode(surface.SurfaceSpatialNode, ctx.SpatialTree)

	for ci := range pic.PrimList.Clusters {
		cl := &pic.PrimList.Clusters[ci]
		insts := pic.PrimList.Instances[cl.Instances.Start:cl.Instances.End]
		pc.mapLocalToSurface.SetTargetSpatialNode(cl.SpatialNode, ctx.SpatialTree)

		for i := range insts {
			inst := &insts[i]

			if k, ok := inst.Kind.(*PictureKind); ok {
				s.PreparePrimitives(k.Pic, surfaceIndex, ctx, state)
				child := s.Picture(k.Pic)
				if child.RasterConfig != nil && wmath.IsEmpty(child.PreciseLocalRect) {
					// The surface ended up with no visible content; drop
					// the composite of it too.
					inst.VisibilityInfo = InvalidVisibilityIndex
					ctx.chaseLog(inst, "culled late: empty surface")
					continue
				}
			}

			if inst.VisibilityInfo == InvalidVisibilityIndex {
				continue
			}
			vis := &state.Scratch.PrimInfo[inst.VisibilityInfo]
			if vis.VisibilityMask.IsEmpty() {
				// Entirely outside the dirty regions; the cached pixels
				// stay valid and no GPU data is needed this frame.
				continue
			}

			if !s.updateClipTask(inst, vis, cl.SpatialNode, &pc, ctx, state) {
				inst.VisibilityInfo = InvalidVisibilityIndex
				ctx.chaseLog(inst, "culled late: clip task")
				continue
			}

			s.prepareKind(inst, vis, cl.SpatialNode, &pc, ctx, state)
		}
	}
}

func (s *Store) prepareKind(
	inst *Instance,
	vis *PrimitiveVisibility,
	spatial wmath.SpatialNodeIndex,
	pc *prepContext,
	ctx *FrameContext,
	state *FrameState,
) {
	switch k := inst.Kind.(type) {
	case *PictureKind:
		s.preparePicture(k, state)
	case *RectangleKind:
		t := s.Data.Rectangles.Get(k.Data)
		t.write(state.GpuCache, s.ResolveOpacity(k.OpacityBinding))
		s.writeSegmentData(k.SegmentInstance, t.Common.LocalRect, state)
	case *ClearKind:
		t := s.Data.Rectangles.Get(k.Data)
		t.write(state.GpuCache, 1)
	case *ImageKind:
		s.prepareImage(k, vis, ctx, state)
	case *YuvImageKind:
		t := s.Data.YuvImages.Get(k.Data)
		t.write(state.GpuCache)
		s.writeSegmentData(k.SegmentInstance, t.Common.LocalRect, state)
	case *LineDecorationKind:
		s.prepareLineDecoration(k, pc, ctx, state)
	case *NormalBorderKind:
		s.prepareNormalBorder(k, spatial, pc, ctx, state)
	case *ImageBorderKind:
		s.Data.ImageBorders.Get(k.Data).write(state.GpuCache)
	case *LinearGradientKind:
		s.prepareLinearGradient(k, inst, vis, pc, ctx, state)
	case *RadialGradientKind:
		t := s.Data.RadialGradients.Get(k.Data)
		s.prepareGradientCommon(&t.Common, &t.Gradient, &k.VisibleTiles, inst, vis, state, func(w *gpu.Writer) {
			w.PushFloats(
				float32(t.Center.X), float32(t.Center.Y),
				float32(t.Radius.X), float32(t.Radius.Y),
			)
			w.PushFloats(float32(t.StartE), float32(t.EndE), float32(t.Gradient.Extend), 0)
		})
	case *ConicGradientKind:
		t := s.Data.ConicGradients.Get(k.Data)
		s.prepareGradientCommon(&t.Common, &t.Gradient, &k.VisibleTiles, inst, vis, state, func(w *gpu.Writer) {
			w.PushFloats(
				float32(t.Center.X), float32(t.Center.Y),
				float32(t.Angle), float32(t.Gradient.Extend),
			)
		})
	case *TextRunKind:
		s.prepareTextRun(k, spatial, ctx, state)
	case *BackdropKind:
		t := s.Data.Backdrops.Get(k.Data)
		if w, ok := state.GpuCache.Request(&t.Common.GpuHandle); ok {
			w.PushRect(t.Common.LocalRect)
			w.Finish()
		}
	}
}

// preparePicture writes the composite parameters of an off-screen surface.
func (s *Store) preparePicture(k *PictureKind, state *FrameState) {
	pic := s.Picture(k.Pic)
	rc := pic.RasterConfig
	if rc == nil {
		return
	}
	w, ok := state.GpuCache.Request(&pic.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(pic.SnappedLocalRect)
	switch mode := rc.CompositeMode.(type) {
	case FilterOpacity:
		w.PushFloats(mode.Binding.Value, 0, 0, 0)
	case FilterBlur:
		w.PushFloats(float32(mode.Radius), 0, 0, 0)
	case FilterDropShadow:
		w.PushFloats(
			float32(mode.Offset.X), float32(mode.Offset.Y),
			float32(mode.Radius), 0,
		)
	case MixBlend:
		w.PushFloats(float32(mode.Mode), 0, 0, 0)
	default:
		w.PushFloats(0, 0, 0, 0)
	}
	w.Finish()
	s.writeSegmentData(pic.SegmentInstance, pic.SnappedLocalRect, state)
}

// writeSegmentData uploads the per-segment rects of a segmented instance.
func (s *Store) writeSegmentData(segIdx SegmentInstanceIndex, localRect curve.Rect, state *FrameState) {
	if segIdx < 0 {
		return
	}
	si := &state.Scratch.SegmentInstances[segIdx]
	w, ok := state.GpuCache.Request(&si.GpuHandle)
	if !ok {
		return
	}
	origin := curve.Vec2{X: localRect.X0, Y: localRect.Y0}
	for i := si.Segments.Start; i < si.Segments.End; i++ {
		seg := &state.Scratch.Segments[i]
		w.PushRect(wmath.Translate(seg.Rect, origin))
	}
	w.Finish()
}

func (s *Store) prepareImage(k *ImageKind, vis *PrimitiveVisibility, ctx *FrameContext, state *FrameState) {
	t := s.Data.Images.Get(k.Data)
	opacity := s.ResolveOpacity(k.OpacityBinding)
	if ctx.DebugFlags&DebugObscureImages != 0 {
		opacity = 0
	}
	t.write(state.GpuCache, opacity)

	if k.VisibleTiles.Len() == 0 {
		s.writeSegmentData(k.SegmentInstance, t.Common.LocalRect, state)
		return
	}
	tiles := state.Scratch.ImageTiles[k.VisibleTiles.Start:k.VisibleTiles.End]
	for i := range tiles {
		tile := &tiles[i]
		w, ok := state.GpuCache.Request(&tile.GpuHandle)
		if !ok {
			continue
		}
		w.PushRect(tile.LocalRect)
		w.PushRect(tile.LocalClipRect)
		w.Finish()
	}
}

func (s *Store) prepareLineDecoration(k *LineDecorationKind, pc *prepContext, ctx *FrameContext, state *FrameState) {
	t := s.Data.LineDecorations.Get(k.Data)
	t.write(state.GpuCache)
	if t.Style == LineSolid {
		return
	}

	ds := float64(ctx.DeviceScale)
	w := wmath.Width(t.Common.LocalRect) * ds
	h := wmath.Height(t.Common.LocalRect) * ds
	if m := max(w, h); m > MaxLineDecorationResolution {
		f := MaxLineDecorationResolution / m
		w *= f
		h *= f
	}
	size := [2]int32{int32(math.Ceil(w)), int32(math.Ceil(h))}

	key := rtask.TaskCacheKey{
		Kind:      taskKindLineDecoration,
		Size:      size,
		Variant:   int64(t.Style)<<32 | int64(t.Orientation),
		ScaleBits: math.Float64bits(t.Wavelength),
	}
	id, _ := state.Resources.Tasks.Request(key, state.Tasks, func() rtask.Task {
		return &rtask.LineDecorationTask{
			Size:        size,
			Style:       int32(t.Style),
			Orientation: int32(t.Orientation),
			Wavelength:  float32(t.Wavelength),
		}
	})
	state.Tasks.AddDependency(pc.surface.Task, id)
	k.CacheHandle = id
}

func (s *Store) prepareNormalBorder(k *NormalBorderKind, spatial wmath.SpatialNodeIndex, pc *prepContext, ctx *FrameContext, state *FrameState) {
	t := s.Data.NormalBorders.Get(k.Data)
	t.write(state.GpuCache)

	// Border segments are cached at a power-of-two world scale so that
	// animated zooms reuse entries instead of rebuilding every frame.
	sx, sy := ctx.SpatialTree.WorldScaleFactors(spatial)
	scale := wmath.ClampToPowerOfTwo(max(sx, sy)*float64(ctx.DeviceScale), MaxMaskSize)

	for _, seg := range t.Segments {
		size := [2]int32{
			int32(math.Ceil(wmath.Width(seg.Rect) * scale)),
			int32(math.Ceil(wmath.Height(seg.Rect) * scale)),
		}
		key := rtask.TaskCacheKey{
			Kind:      taskKindBorderSegment,
			Size:      size,
			Variant:   int64(k.Data)<<32 | int64(seg.CacheKeyIndex),
			ScaleBits: math.Float64bits(scale),
		}
		id, _ := state.Resources.Tasks.Request(key, state.Tasks, func() rtask.Task {
			return &rtask.BorderSegmentTask{
				Size:         size,
				ScaleFactor:  float32(scale),
				SegmentIndex: seg.CacheKeyIndex,
			}
		})
		state.Tasks.AddDependency(pc.surface.Task, id)
		k.CacheHandles = append(k.CacheHandles, id)
	}
}

func (s *Store) prepareTextRun(k *TextRunKind, spatial wmath.SpatialNodeIndex, ctx *FrameContext, state *FrameState) {
	t := s.Data.TextRuns.Get(k.Data)
	sx, sy := ctx.SpatialTree.WorldScaleFactors(spatial)
	rasterScale := max(sx, sy) * float64(ctx.DeviceScale)
	state.Resources.RequestGlyphs(t.Font, t.Glyphs, rasterScale)
	t.write(state.GpuCache)
}

func (s *Store) prepareLinearGradient(k *LinearGradientKind, inst *Instance, vis *PrimitiveVisibility, pc *prepContext, ctx *FrameContext, state *FrameState) {
	t := s.Data.LinearGradients.Get(k.Data)

	if t.SupportsCaching {
		t.RampRow = state.Resources.AddRamp(t.Gradient.Stops)
		key := rtask.TaskCacheKey{
			Kind:    taskKindGradientRamp,
			Variant: int64(t.RampRow),
		}
		id, _ := state.Resources.Tasks.Request(key, state.Tasks, func() rtask.Task {
			return &rtask.GradientRampTask{
				RampIndex: t.RampRow,
				Stops:     uint32(len(t.Gradient.Stops)),
			}
		})
		state.Tasks.AddDependency(pc.surface.Task, id)
	}

	s.prepareGradientCommon(&t.Common, &t.Gradient, &k.VisibleTiles, inst, vis, state, func(w *gpu.Writer) {
		w.PushFloats(
			float32(t.Start.X), float32(t.Start.Y),
			float32(t.End.X), float32(t.End.Y),
		)
		w.PushFloats(float32(t.Gradient.Extend), boolFloat(t.SupportsCaching), float32(t.RampRow), 0)
	})
}

func boolFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// prepareGradientCommon writes the gradient's GPU data and, for tiled
// gradients, decomposes the primitive into visible repetitions. A tiled
// gradient with no visible repetition culls itself.
func (s *Store) prepareGradientCommon(
	common *TemplateCommon,
	grad *GradientCommon,
	visibleTiles *Range,
	inst *Instance,
	vis *PrimitiveVisibility,
	state *FrameState,
	writeParams func(w *gpu.Writer),
) {
	if w, ok := state.GpuCache.Request(&common.GpuHandle); ok {
		w.PushRect(common.LocalRect)
		writeParams(w)
		writeGradientStops(w, grad.Stops)
		w.Finish()
	}

	if !grad.IsTiled(common.LocalRect) {
		return
	}

	visible, ok := wmath.Intersect(common.LocalRect, vis.CombinedLocalClipRect)
	if !ok {
		inst.VisibilityInfo = InvalidVisibilityIndex
		return
	}
	stride := curve.Vec2{
		X: grad.TileSize.X + grad.TileSpacing.X,
		Y: grad.TileSize.Y + grad.TileSpacing.Y,
	}
	// Snap the repeat stride to whole pixels; otherwise adjacent
	// repetitions sample the ramp at drifting offsets and visibly shimmer.
	stride.X = max(1, math.Round(stride.X))
	stride.Y = max(1, math.Round(stride.Y))

	start := int32(len(state.Scratch.GradientTiles))
	forEachRepetition(common.LocalRect, visible, stride, func(origin curve.Point) {
		tileRect := wmath.RectFromOriginSize(origin.X, origin.Y, grad.TileSize.X, grad.TileSize.Y)
		state.Scratch.GradientTiles = append(state.Scratch.GradientTiles, VisibleGradientTile{
			LocalRect:     tileRect,
			LocalClipRect: vis.CombinedLocalClipRect,
		})
	})
	end := int32(len(state.Scratch.GradientTiles))
	*visibleTiles = Range{Start: start, End: end}

	if end == start {
		inst.VisibilityInfo = InvalidVisibilityIndex
		return
	}
	tiles := state.Scratch.GradientTiles[start:end]
	for i := range tiles {
		tile := &tiles[i]
		if w, ok := state.GpuCache.Request(&tile.GpuHandle); ok {
			w.PushRect(tile.LocalRect)
			w.PushRect(tile.LocalClipRect)
			w.Finish()
		}
	}
}

// writeGradientStops packs stops in groups of GradientFpStops: one block
// of offsets followed by the four premultiplied colors. Short groups are
// padded by repeating the last stop.
func writeGradientStops(w *gpu.Writer, stops []gfx.ColorStop) {
	for i := 0; i < len(stops); i += GradientFpStops {
		chunk := stops[i:min(i+GradientFpStops, len(stops))]
		var offs [GradientFpStops]float32
		for j := range offs {
			offs[j] = chunk[min(j, len(chunk)-1)].Offset
		}
		w.PushFloats(offs[0], offs[1], offs[2], offs[3])
		for j := 0; j < GradientFpStops; j++ {
			c := gfx.Premul32(chunk[min(j, len(chunk)-1)].Color)
			w.PushFloats(c[0], c[1], c[2], c[3])
		}
	}
}

// forEachRepetition visits the origin of every repetition of primRect's
// tile pattern that overlaps visibleRect.
func forEachRepetition(primRect, visibleRect curve.Rect, stride curve.Vec2, f func(origin curve.Point)) {
	x0 := max(math.Floor((visibleRect.X0-primRect.X0)/stride.X), 0)
	y0 := max(math.Floor((visibleRect.Y0-primRect.Y0)/stride.Y), 0)
	for y := y0; primRect.Y0+y*stride.Y < visibleRect.Y1; y++ {
		for x := x0; primRect.X0+x*stride.X < visibleRect.X1; x++ {
			f(curve.Point{
				X: primRect.X0 + x*stride.X,
				Y: primRect.Y0 + y*stride.Y,
			})
		}
	}
}
