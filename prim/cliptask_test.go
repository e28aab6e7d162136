// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"image"
	"testing"

	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/wmath"
)

func (e *frameEnv) roundedChain(rect curve.Rect, radius float64) clip.ChainID {
	node := e.clips.AddNode(clip.RoundedRectClip{
		Rect:  rect,
		Radii: clip.UniformRadii(radius),
	}, e.tree.RootNode())
	return e.clips.AddChainNode(node, clip.NilChainID)
}

func (e *frameEnv) maskInstances(t *testing.T, vis *PrimitiveVisibility, n int) []ClipMaskInstance {
	t.Helper()
	if vis.ClipTaskIndex == InvalidClipTaskIndex {
		t.Fatal("expected a clip task allocation")
	}
	return e.scratch.ClipMaskInstances[vis.ClipTaskIndex : int(vis.ClipTaskIndex)+n]
}

func TestNoClipNoTask(t *testing.T) {
	e := newEnv()
	i := e.addRect(e.root, curve.Rect{X0: 0, Y0: 0, X1: 300, Y1: 300}, bigClip, clip.NilChainID, e.tree.RootNode())
	e.buildFrame(wholeWorld)

	inst := e.inst(e.root, i)
	vis := e.vis(t, inst)
	if vis.ClipTaskIndex != InvalidClipTaskIndex {
		t.Error("unclipped primitive must not allocate clip mask instances")
	}
	// An unclipped partition degenerates to one segment, which is useless.
	if k := inst.Kind.(*RectangleKind); k.SegmentInstance != SegmentsUnused {
		t.Errorf("segmentation must be rejected, got %v", k.SegmentInstance)
	}
	if e.graph.Len() != 1 {
		t.Errorf("only the surface task should exist, graph has %d", e.graph.Len())
	}
}

func TestSegmentedRoundedClip(t *testing.T) {
	e := newEnv()
	rect := curve.Rect{X0: 0, Y0: 0, X1: 300, Y1: 300}
	chain := e.roundedChain(rect, 50)
	i := e.addRect(e.root, rect, bigClip, chain, e.tree.RootNode())
	e.buildFrame(wholeWorld)

	inst := e.inst(e.root, i)
	k := inst.Kind.(*RectangleKind)
	if k.SegmentInstance < 0 {
		t.Fatalf("large rounded-clipped rect must be segmented, got %v", k.SegmentInstance)
	}
	segs := e.scratch.SegmentInstances[k.SegmentInstance].Segments
	if segs.Len() != 9 {
		t.Fatalf("expected a 3x3 partition, got %d segments", segs.Len())
	}

	vis := e.vis(t, inst)
	cmis := e.maskInstances(t, vis, segs.Len())
	masks, nones := 0, 0
	for si, cmi := range cmis {
		switch cmi.Kind {
		case ClipMaskMask:
			masks++
			if cmi.Task == rtask.InvalidTaskID {
				t.Errorf("segment %d: mask without a task", si)
			}
		case ClipMaskNone:
			nones++
		default:
			t.Errorf("segment %d: unexpected kind %v", si, cmi.Kind)
		}
	}
	if masks != 4 {
		t.Errorf("only the corner segments need masks, got %d", masks)
	}
	if nones != 5 {
		t.Errorf("edges and center render mask-free, got %d", nones)
	}
}

func TestSegmentMaskIsTight(t *testing.T) {
	e := newEnv()
	rect := curve.Rect{X0: 0, Y0: 0, X1: 300, Y1: 300}
	chain := e.roundedChain(rect, 50)
	i := e.addRect(e.root, rect, bigClip, chain, e.tree.RootNode())
	e.buildFrame(wholeWorld)

	vis := e.vis(t, e.inst(e.root, i))
	k := e.inst(e.root, i).Kind.(*RectangleKind)
	segs := e.scratch.SegmentInstances[k.SegmentInstance].Segments
	cmis := e.maskInstances(t, vis, segs.Len())
	for si, cmi := range cmis {
		if cmi.Kind != ClipMaskMask {
			continue
		}
		seg := e.scratch.Segments[int(segs.Start)+si]
		task := e.graph.Task(cmi.Task).(*rtask.MaskTask)
		if wmath.Width(task.DeviceRect) > wmath.Width(seg.Rect)+1 ||
			wmath.Height(task.DeviceRect) > wmath.Height(seg.Rect)+1 {
			t.Errorf("segment %d: mask %v much larger than segment %v", si, task.DeviceRect, seg.Rect)
		}
	}
}

func TestSmallPrimWholeMask(t *testing.T) {
	e := newEnv()
	rect := curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}
	chain := e.roundedChain(rect, 20)
	i := e.addRect(e.root, rect, bigClip, chain, e.tree.RootNode())
	e.buildFrame(wholeWorld)

	inst := e.inst(e.root, i)
	if k := inst.Kind.(*RectangleKind); k.SegmentInstance != SegmentsUnused {
		t.Errorf("100x100 is below the split threshold, got %v", k.SegmentInstance)
	}
	vis := e.vis(t, inst)
	cmi := e.maskInstances(t, vis, 1)[0]
	if cmi.Kind != ClipMaskMask {
		t.Fatalf("expected a whole-primitive mask, got %v", cmi.Kind)
	}
	task := e.graph.Task(cmi.Task).(*rtask.MaskTask)
	if task.DeviceRect != rect {
		t.Errorf("mask rect: got %v, want %v", task.DeviceRect, rect)
	}
	if task.ClipNodeCount != 1 {
		t.Errorf("mask must record 1 clip node, got %d", task.ClipNodeCount)
	}
}

func TestMaskSizeCapped(t *testing.T) {
	e := newEnv()
	cull := curve.Rect{X0: 0, Y0: 0, X1: 10000, Y1: 10000}
	rect := curve.Rect{X0: 0, Y0: 0, X1: 8000, Y1: 8000}
	// An image mask cannot be segmented, forcing the whole-primitive path.
	imgKey := e.resources.AddImage(image.NewRGBA(image.Rect(0, 0, 8, 8)), 0, false)
	node := e.clips.AddNode(clip.ImageMaskClip{Rect: rect, Image: imgKey}, e.tree.RootNode())
	chain := e.clips.AddChainNode(node, clip.NilChainID)
	i := e.addRect(e.root, rect, bigClip, chain, e.tree.RootNode())
	e.buildFrame(cull)

	inst := e.inst(e.root, i)
	if k := inst.Kind.(*RectangleKind); k.SegmentInstance != SegmentsUnused {
		t.Errorf("image-masked primitives must not segment, got %v", k.SegmentInstance)
	}
	vis := e.vis(t, inst)
	cmi := e.maskInstances(t, vis, 1)[0]
	task := e.graph.Task(cmi.Task).(*rtask.MaskTask)
	if m := max(wmath.Width(task.DeviceRect), wmath.Height(task.DeviceRect)); m > MaxMaskSize {
		t.Errorf("mask dimension %v exceeds the cap", m)
	}
	if task.DeviceScale >= 1 {
		t.Errorf("an oversized mask must render at reduced scale, got %v", task.DeviceScale)
	}
	if !task.MainClipIsImage {
		t.Error("the mask shader must know its main clip is an image")
	}
}

func TestMaskTaskDependsOnSurface(t *testing.T) {
	e := newEnv()
	rect := curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}
	chain := e.roundedChain(rect, 20)
	e.addRect(e.root, rect, bigClip, chain, e.tree.RootNode())
	st := e.buildFrame(wholeWorld)

	deps := e.graph.Dependencies(st.Surfaces[RootSurfaceIndex].Task)
	if len(deps) != 1 {
		t.Fatalf("the surface must depend on its mask task, got %d deps", len(deps))
	}
	if _, ok := e.graph.Task(deps[0]).(*rtask.MaskTask); !ok {
		t.Error("surface dependency is not a mask task")
	}
}

func TestNonLocalClipWholeMask(t *testing.T) {
	e := newEnv()
	rot := wmath.Transform{Matrix: [4]float64{0, 1, -1, 0}}
	clipSpace := e.tree.AddNode(e.tree.RootNode(), rot)
	node := e.clips.AddNode(clip.RectClip{Rect: curve.Rect{X0: -400, Y0: -400, X1: 400, Y1: 400}}, clipSpace)
	chain := e.clips.AddChainNode(node, clip.NilChainID)

	rect := curve.Rect{X0: 0, Y0: 0, X1: 300, Y1: 300}
	i := e.addRect(e.root, rect, bigClip, chain, e.tree.RootNode())
	e.buildFrame(wholeWorld)

	inst := e.inst(e.root, i)
	// A rotated clip has no valid local rect; segmentation bails out.
	if k := inst.Kind.(*RectangleKind); k.SegmentInstance != SegmentsUnused {
		t.Errorf("rotated clip must fall back to a whole mask, got %v", k.SegmentInstance)
	}
	vis := e.vis(t, inst)
	if !vis.ClipChain.NeedsMask || !vis.ClipChain.HasNonLocalClips {
		t.Error("rotated non-local clip must need a mask")
	}
	cmi := e.maskInstances(t, vis, 1)[0]
	if cmi.Kind != ClipMaskMask {
		t.Errorf("expected a mask, got %v", cmi.Kind)
	}
}
