// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package wren builds frames: given a scene's picture tree, spatial tree
// and clip store, it computes which primitives are visible, which need
// clip masks, and what GPU data and render tasks the backend must
// execute.
package wren

import (
	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/gpu"
	"honnef.co/go/wren/prim"
	"honnef.co/go/wren/resource"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/wmath"
)

// Scene is everything that survives across frames: the primitive tree and
// the stores it references.
type Scene struct {
	Store       *prim.Store
	ClipStore   *clip.Store
	SpatialTree *wmath.SpatialTree
	Root        prim.PictureIndex
}

// FrameParams selects what one frame renders.
type FrameParams struct {
	WorldCullRect curve.Rect
	DeviceScale   wmath.DevicePixelScale
	DebugFlags    prim.DebugFlags

	// ChaseUID logs the journey of one primitive instance through the
	// frame via the package logger; zero disables it.
	ChaseUID uint64
}

// Frame is the output of one build: the task graph, the upload recording,
// and the per-frame primitive state the backend batches from.
type Frame struct {
	Graph        *rtask.Graph
	Recording    rtask.Recording
	Scratch      *prim.ScratchBuffer
	GpuCache     *gpu.Cache
	Surfaces     []prim.Surface
	DirtyRegions []prim.DirtyRegion
}

// FrameBuilder owns the reusable per-frame machinery. One builder serves
// one scene at a time; it is not safe for concurrent use.
type FrameBuilder struct {
	scene Scene

	scratch   *prim.ScratchBuffer
	gpuCache  *gpu.Cache
	resources *resource.Cache
	graph     *rtask.Graph
	surfaces  []prim.Surface

	sceneOptimized bool
}

func NewFrameBuilder(scene Scene) *FrameBuilder {
	return &FrameBuilder{
		scene:     scene,
		scratch:   prim.NewScratchBuffer(),
		gpuCache:  gpu.NewCache(),
		resources: resource.NewCache(),
		graph:     rtask.NewGraph(),
	}
}

// Resources exposes the builder's resource cache so callers can register
// images and fonts.
func (fb *FrameBuilder) Resources() *resource.Cache {
	return fb.resources
}

// BuildFrame runs the full pipeline: surface assignment, the visibility
// pass, the prepare pass, and resource upload. The returned frame's
// scratch data is valid until the next BuildFrame call.
func (fb *FrameBuilder) BuildFrame(params FrameParams) *Frame {
	log := logger()

	if !fb.sceneOptimized {
		fb.scene.Store.CollapseOpacity(fb.scene.Root)
		fb.sceneOptimized = true
	}

	fb.scratch.Recycle()
	fb.scratch.BeginFrame()
	fb.scene.ClipStore.BeginFrame()
	fb.gpuCache.BeginFrame()
	fb.resources.BeginFrame()
	fb.graph.BeginFrame()

	ctx := prim.FrameContext{
		WorldCullRect:   params.WorldCullRect,
		DeviceScale:     params.DeviceScale,
		SpatialTree:     fb.scene.SpatialTree,
		RootSpatialNode: fb.scene.SpatialTree.RootNode(),
		DebugFlags:      params.DebugFlags,
		ChaseUID:        params.ChaseUID,
		Logger:          log,
	}
	state := prim.FrameState{
		Scratch:   fb.scratch,
		ClipStore: fb.scene.ClipStore,
		GpuCache:  fb.gpuCache,
		Resources: fb.resources,
		Tasks:     fb.graph,
		Surfaces:  fb.surfaces,
	}

	fb.scene.Store.AssignSurfaces(fb.scene.Root, &ctx, &state)
	fb.scene.Store.UpdateVisibility(fb.scene.Root, prim.RootSurfaceIndex, &ctx, &state)
	fb.scene.Store.PreparePrimitives(fb.scene.Root, prim.RootSurfaceIndex, &ctx, &state)

	var rec rtask.Recording
	if fb.gpuCache.Dirty() {
		if data := fb.gpuCache.Bytes(); len(data) > 0 {
			rec.Upload("gpu_cache", data)
		}
	}
	fb.resources.EndFrame(&rec)

	fb.surfaces = state.Surfaces

	log.Debug("frame built",
		"primitives", len(fb.scratch.PrimInfo),
		"tasks", fb.graph.Len(),
		"surfaces", len(state.Surfaces),
		"dirtyRegions", len(state.DirtyRegions),
	)

	return &Frame{
		Graph:        fb.graph,
		Recording:    rec,
		Scratch:      fb.scratch,
		GpuCache:     fb.gpuCache,
		Surfaces:     state.Surfaces,
		DirtyRegions: state.DirtyRegions,
	}
}
