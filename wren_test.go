// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package wren

import (
	"testing"

	"honnef.co/go/color"
	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/prim"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/wmath"
)

func testScene() Scene {
	tree := wmath.NewSpatialTree()
	store := prim.NewStore()
	root := store.AddPicture(prim.Picture{
		SpatialNode:        tree.RootNode(),
		ApplyLocalClipRect: true,
	})
	return Scene{
		Store:       store,
		ClipStore:   clip.NewStore(),
		SpatialTree: tree,
		Root:        root,
	}
}

func addRect(scene Scene, rect curve.Rect) {
	h := scene.Store.Data.Rectangles.Add(prim.RectangleTemplate{
		Common: prim.TemplateCommon{LocalRect: rect, IsOpaque: true},
		Color: &color.Color{
			Space:  color.LinearSRGB,
			Values: [4]float64{1, 0, 0, 1},
		},
	})
	kind := &prim.RectangleKind{
		Data:            h,
		OpacityBinding:  prim.NoOpacityBinding,
		SegmentInstance: prim.SegmentsUnbuilt,
	}
	inst := scene.Store.NewInstance(kind, curve.Rect{X0: -1e9, Y0: -1e9, X1: 1e9, Y1: 1e9}, clip.NilChainID, scene.SpatialTree.RootNode())
	p := scene.Store.Picture(scene.Root)
	scene.Store.AddToList(&p.PrimList, inst, 0)
}

func TestBuildFrame(t *testing.T) {
	scene := testScene()
	addRect(scene, curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100})
	addRect(scene, curve.Rect{X0: 0, Y0: 2000, X1: 100, Y1: 2100})

	fb := NewFrameBuilder(scene)
	frame := fb.BuildFrame(FrameParams{
		WorldCullRect: curve.Rect{X0: 0, Y0: 0, X1: 1000, Y1: 1000},
		DeviceScale:   1,
	})

	// The off-screen rectangle is culled before it gets a record.
	if got := len(frame.Scratch.PrimInfo); got != 1 {
		t.Errorf("expected 1 visible primitive, got %d", got)
	}
	if len(frame.Surfaces) != 1 {
		t.Errorf("expected the root surface only, got %d", len(frame.Surfaces))
	}

	foundCacheUpload := false
	for _, cmd := range frame.Recording.Commands {
		if up, ok := cmd.(*rtask.Upload); ok && up.Buffer.Name == "gpu_cache" {
			foundCacheUpload = true
			if len(up.Data) == 0 {
				t.Error("gpu cache upload is empty")
			}
		}
	}
	if !foundCacheUpload {
		t.Error("frame must upload the gpu cache buffer")
	}
}

func TestBuildFrameIsRepeatable(t *testing.T) {
	scene := testScene()
	addRect(scene, curve.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100})

	fb := NewFrameBuilder(scene)
	params := FrameParams{
		WorldCullRect: curve.Rect{X0: 0, Y0: 0, X1: 1000, Y1: 1000},
		DeviceScale:   1,
	}
	first := fb.BuildFrame(params)
	nPrims := len(first.Scratch.PrimInfo)
	nTasks := first.Graph.Len()

	second := fb.BuildFrame(params)
	if got := len(second.Scratch.PrimInfo); got != nPrims {
		t.Errorf("second frame visibility diverged: %d vs %d", got, nPrims)
	}
	if got := second.Graph.Len(); got != nTasks {
		t.Errorf("second frame task count diverged: %d vs %d", got, nTasks)
	}
	// Nothing changed, so no cache blocks were rewritten and nothing needs
	// uploading.
	for _, cmd := range second.Recording.Commands {
		if up, ok := cmd.(*rtask.Upload); ok && up.Buffer.Name == "gpu_cache" {
			t.Error("an unchanged frame must not re-upload the gpu cache")
		}
	}
}

func TestCollapseRunsOncePerScene(t *testing.T) {
	scene := testScene()
	child := scene.Store.AddPicture(prim.Picture{
		SpatialNode:            scene.SpatialTree.RootNode(),
		RequestedCompositeMode: prim.FilterOpacity{Binding: prim.OpacityBinding{Value: 0.5}},
		ApplyLocalClipRect:     true,
	})
	inst := scene.Store.NewInstance(&prim.PictureKind{Pic: child}, curve.Rect{X0: -1e9, Y0: -1e9, X1: 1e9, Y1: 1e9}, clip.NilChainID, scene.SpatialTree.RootNode())
	p := scene.Store.Picture(scene.Root)
	scene.Store.AddToList(&p.PrimList, inst, 0)

	h := scene.Store.Data.Rectangles.Add(prim.RectangleTemplate{
		Common: prim.TemplateCommon{LocalRect: curve.Rect{X0: 0, Y0: 0, X1: 50, Y1: 50}, IsOpaque: true},
		Color: &color.Color{
			Space:  color.LinearSRGB,
			Values: [4]float64{0, 0, 1, 1},
		},
	})
	rectInst := scene.Store.NewInstance(&prim.RectangleKind{
		Data:            h,
		OpacityBinding:  prim.NoOpacityBinding,
		SegmentInstance: prim.SegmentsUnbuilt,
	}, curve.Rect{X0: -1e9, Y0: -1e9, X1: 1e9, Y1: 1e9}, clip.NilChainID, scene.SpatialTree.RootNode())
	cp := scene.Store.Picture(child)
	scene.Store.AddToList(&cp.PrimList, rectInst, 0)

	fb := NewFrameBuilder(scene)
	params := FrameParams{
		WorldCullRect: curve.Rect{X0: 0, Y0: 0, X1: 1000, Y1: 1000},
		DeviceScale:   1,
	}
	fb.BuildFrame(params)

	if scene.Store.Picture(child).RequestedCompositeMode != nil {
		t.Fatal("single-primitive opacity filter must collapse")
	}
	k := scene.Store.Picture(child).PrimList.Instances[0].Kind.(*prim.RectangleKind)
	binding := k.OpacityBinding
	if binding == prim.NoOpacityBinding {
		t.Fatal("opacity must be bound to the rectangle")
	}

	// A second frame must not fold the opacity in again.
	fb.BuildFrame(params)
	if got := scene.Store.ResolveOpacity(binding); got != 0.5 {
		t.Errorf("opacity folded twice: got %v, want 0.5", got)
	}
}
