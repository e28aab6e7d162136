// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"testing"

	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/gfx"
	"honnef.co/go/wren/resource"
	"honnef.co/go/wren/rtask"
)

func grayStops(n int) []gfx.ColorStop {
	stops := make([]gfx.ColorStop, n)
	for i := range stops {
		v := float64(i) / float64(n-1)
		stops[i] = gfx.ColorStop{Offset: float32(v), Color: solid(v, v, v)}
	}
	return stops
}

func (e *frameEnv) addLinearGradient(rect curve.Rect, clipRect curve.Rect, tmpl LinearGradientTemplate) int {
	tmpl.Common.LocalRect = rect
	h := e.store.Data.LinearGradients.Add(tmpl)
	inst := e.store.NewInstance(&LinearGradientKind{Data: h}, clipRect, clip.NilChainID, e.tree.RootNode())
	p := e.store.Picture(e.root)
	e.store.AddToList(&p.PrimList, inst, 0)
	return len(p.PrimList.Instances) - 1
}

func (e *frameEnv) addLine(rect curve.Rect, style LineStyle) int {
	h := e.store.Data.LineDecorations.Add(LineDecorationTemplate{
		Common:      TemplateCommon{LocalRect: rect},
		Style:       style,
		Orientation: LineHorizontal,
		Wavelength:  8,
		Color:       solid(0, 0, 0),
	})
	inst := e.store.NewInstance(&LineDecorationKind{Data: h, CacheHandle: rtask.InvalidTaskID}, bigClip, clip.NilChainID, e.tree.RootNode())
	p := e.store.Picture(e.root)
	e.store.AddToList(&p.PrimList, inst, 0)
	return len(p.PrimList.Instances) - 1
}

func TestGradientStopPacking(t *testing.T) {
	e := newEnv()
	e.addLinearGradient(
		curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}, bigClip,
		LinearGradientTemplate{
			Gradient: GradientCommon{Stops: grayStops(5)},
			Start:    curve.Point{X: 0, Y: 0},
			End:      curve.Point{X: 100, Y: 0},
		})
	e.buildFrame(wholeWorld)

	// 1 rect block, 2 parameter blocks, then 2 stop chunks of 1 offset
	// block + 4 color blocks each.
	if got := len(e.gpuCache.Blocks()); got != 13 {
		t.Errorf("expected 13 blocks, got %d", got)
	}
}

func TestTiledGradientRepetitions(t *testing.T) {
	e := newEnv()
	i := e.addLinearGradient(
		curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 10}, bigClip,
		LinearGradientTemplate{
			Gradient: GradientCommon{
				Stops:    grayStops(2),
				TileSize: curve.Vec2{X: 25, Y: 10},
			},
			End: curve.Point{X: 25, Y: 0},
		})
	e.buildFrame(wholeWorld)

	k := e.inst(e.root, i).Kind.(*LinearGradientKind)
	if k.VisibleTiles.Len() != 4 {
		t.Fatalf("expected 4 repetitions, got %d", k.VisibleTiles.Len())
	}
	tiles := e.scratch.GradientTiles[k.VisibleTiles.Start:k.VisibleTiles.End]
	want := curve.Rect{X0: 25, Y0: 0, X1: 50, Y1: 10}
	if tiles[1].LocalRect != want {
		t.Errorf("repetition 1: got %v, want %v", tiles[1].LocalRect, want)
	}
}

func TestTiledGradientClippedRepetitions(t *testing.T) {
	e := newEnv()
	i := e.addLinearGradient(
		curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 10},
		curve.Rect{X0: 0, Y0: 0, X1: 49, Y1: 10},
		LinearGradientTemplate{
			Gradient: GradientCommon{
				Stops:    grayStops(2),
				TileSize: curve.Vec2{X: 25, Y: 10},
			},
			End: curve.Point{X: 25, Y: 0},
		})
	e.buildFrame(wholeWorld)

	k := e.inst(e.root, i).Kind.(*LinearGradientKind)
	if k.VisibleTiles.Len() != 2 {
		t.Errorf("only repetitions overlapping the clip survive, got %d", k.VisibleTiles.Len())
	}
}

func TestLinearGradientRampCached(t *testing.T) {
	e := newEnv()
	e.addLinearGradient(
		curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}, bigClip,
		LinearGradientTemplate{
			Gradient:        GradientCommon{Stops: grayStops(3)},
			End:             curve.Point{X: 100, Y: 0},
			SupportsCaching: true,
		})
	e.buildFrame(wholeWorld)

	if ramps := e.resources.Ramps(); ramps.Height != 1 {
		t.Errorf("expected 1 cached ramp row, got %d", ramps.Height)
	}
	found := false
	for _, id := range e.graph.Dependencies(e.state.Surfaces[RootSurfaceIndex].Task) {
		if _, ok := e.graph.Task(id).(*rtask.GradientRampTask); ok {
			found = true
		}
	}
	if !found {
		t.Error("cachable gradient must schedule a ramp task for the surface")
	}
}

func TestDottedLineTaskShared(t *testing.T) {
	e := newEnv()
	i1 := e.addLine(curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 4}, LineDotted)
	i2 := e.addLine(curve.Rect{X0: 0, Y0: 10, X1: 100, Y1: 14}, LineDotted)
	e.buildFrame(wholeWorld)

	k1 := e.inst(e.root, i1).Kind.(*LineDecorationKind)
	k2 := e.inst(e.root, i2).Kind.(*LineDecorationKind)
	if k1.CacheHandle == rtask.InvalidTaskID {
		t.Fatal("dotted lines need a decoration task")
	}
	if k1.CacheHandle != k2.CacheHandle {
		t.Error("identical decorations must share one cached task")
	}
	task := e.graph.Task(k1.CacheHandle).(*rtask.LineDecorationTask)
	if task.Size != [2]int32{100, 4} {
		t.Errorf("task size: got %v", task.Size)
	}
}

func TestSolidLineNoTask(t *testing.T) {
	e := newEnv()
	i := e.addLine(curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 4}, LineSolid)
	e.buildFrame(wholeWorld)

	if k := e.inst(e.root, i).Kind.(*LineDecorationKind); k.CacheHandle != rtask.InvalidTaskID {
		t.Error("solid lines render directly, no task")
	}
}

func TestLineDecorationResolutionCapped(t *testing.T) {
	e := newEnv()
	i := e.addLine(curve.Rect{X0: 0, Y0: 0, X1: 8192, Y1: 8}, LineDashed)
	e.buildFrame(curve.Rect{X0: 0, Y0: 0, X1: 10000, Y1: 10000})

	k := e.inst(e.root, i).Kind.(*LineDecorationKind)
	task := e.graph.Task(k.CacheHandle).(*rtask.LineDecorationTask)
	if task.Size[0] > MaxLineDecorationResolution {
		t.Errorf("task width %d exceeds the cap", task.Size[0])
	}
	// The aspect ratio survives the clamp.
	if task.Size != [2]int32{4096, 4} {
		t.Errorf("task size: got %v, want [4096 4]", task.Size)
	}
}

func TestNormalBorderSegmentTasks(t *testing.T) {
	e := newEnv()
	h := e.store.Data.NormalBorders.Add(NormalBorderTemplate{
		Common: TemplateCommon{LocalRect: curve.Rect{X0: 0, Y0: 0, X1: 200, Y1: 100}},
		Widths: [4]float64{4, 4, 4, 4},
		Segments: []BorderSegmentInfo{
			{Rect: curve.Rect{X0: 0, Y0: 0, X1: 8, Y1: 8}, CacheKeyIndex: 0},
			{Rect: curve.Rect{X0: 192, Y0: 0, X1: 200, Y1: 8}, CacheKeyIndex: 1},
		},
	})
	inst := e.store.NewInstance(&NormalBorderKind{Data: h}, bigClip, clip.NilChainID, e.tree.RootNode())
	p := e.store.Picture(e.root)
	e.store.AddToList(&p.PrimList, inst, 0)
	e.buildFrame(wholeWorld)

	k := e.inst(e.root, 0).Kind.(*NormalBorderKind)
	if len(k.CacheHandles) != 2 {
		t.Fatalf("expected one task per border segment, got %d", len(k.CacheHandles))
	}
	task := e.graph.Task(k.CacheHandles[0]).(*rtask.BorderSegmentTask)
	if task.Size != [2]int32{8, 8} {
		t.Errorf("corner task size: got %v", task.Size)
	}
	if task.ScaleFactor != 1 {
		t.Errorf("identity transform at scale 1 must cache at scale 1, got %v", task.ScaleFactor)
	}
}

func TestSegmentDataUploaded(t *testing.T) {
	e := newEnv()
	rect := curve.Rect{X0: 0, Y0: 0, X1: 300, Y1: 300}
	chain := e.roundedChain(rect, 50)
	i := e.addRect(e.root, rect, bigClip, chain, e.tree.RootNode())
	e.buildFrame(wholeWorld)

	k := e.inst(e.root, i).Kind.(*RectangleKind)
	si := e.scratch.SegmentInstances[k.SegmentInstance]
	addr := e.gpuCache.Address(si.GpuHandle)
	blocks := e.gpuCache.Blocks()
	// Template rect + color first, then one block per segment.
	if addr != 2 {
		t.Errorf("segment data address: got %d, want 2", addr)
	}
	if len(blocks) != 2+si.Segments.Len() {
		t.Errorf("expected %d blocks, got %d", 2+si.Segments.Len(), len(blocks))
	}
	seg := e.scratch.Segments[si.Segments.Start].Rect
	want := [4]float32{
		float32(seg.X0), float32(seg.Y0),
		float32(seg.X1 - seg.X0), float32(seg.Y1 - seg.Y0),
	}
	if blocks[addr].Data != want {
		t.Errorf("first segment block: got %v, want %v", blocks[addr].Data, want)
	}
}

func TestOpacityFoldedIntoColor(t *testing.T) {
	e := newEnv()
	i := e.addRect(e.root, curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}, bigClip, clip.NilChainID, e.tree.RootNode())
	k := e.inst(e.root, i).Kind.(*RectangleKind)
	k.OpacityBinding = e.store.AddOpacityBinding()
	e.store.pushOpacityBinding(k.OpacityBinding, OpacityBinding{Value: 0.5})
	e.buildFrame(wholeWorld)

	blocks := e.gpuCache.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("expected rect + color blocks, got %d", len(blocks))
	}
	want := [4]float32{0, 0.5, 0, 0.5}
	if blocks[1].Data != want {
		t.Errorf("premultiplied color: got %v, want %v", blocks[1].Data, want)
	}
}

func TestTextRunPrepares(t *testing.T) {
	e := newEnv()
	h := e.store.Data.TextRuns.Add(TextRunTemplate{
		Common:       TemplateCommon{LocalRect: curve.Rect{X0: 0, Y0: 0, X1: 80, Y1: 16}},
		Font:         resource.FontKey(1),
		Glyphs:       []resource.GlyphID{12, 13},
		GlyphOffsets: []curve.Point{{X: 0, Y: 12}, {X: 10, Y: 12}},
		FontSize:     14,
		Color:        solid(0, 0, 0),
	})
	inst := e.store.NewInstance(&TextRunKind{Data: h}, bigClip, clip.NilChainID, e.tree.RootNode())
	p := e.store.Picture(e.root)
	e.store.AddToList(&p.PrimList, inst, 0)
	e.buildFrame(wholeWorld)

	e.vis(t, e.inst(e.root, 0))
	// rect + color + params + one block per glyph offset
	if got := len(e.gpuCache.Blocks()); got != 5 {
		t.Errorf("expected 5 blocks, got %d", got)
	}
}
