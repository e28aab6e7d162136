// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package rtask tracks per-frame GPU work as a dependency graph of render
// tasks. The frame builder only requests work here; nothing is executed
// until the backend consumes the graph and the accompanying Recording.
package rtask

import (
	"honnef.co/go/curve"

	"honnef.co/go/wren/wmath"
)

// TaskID addresses a task within one frame's graph. The zero value is
// invalid.
type TaskID uint32

const InvalidTaskID TaskID = 0

// Task is the payload of a graph node.
type Task interface {
	isTask()
}

func (*MaskTask) isTask()           {}
func (*LineDecorationTask) isTask() {}
func (*BorderSegmentTask) isTask()  {}
func (*GradientRampTask) isTask()   {}
func (*SurfaceTask) isTask()        {}

// MaskTask rasterizes the clip mask for one primitive or segment into the
// mask atlas. DeviceRect is the exact screen sub-rect covered; the clip
// sources are referenced by their GPU cache addresses.
type MaskTask struct {
	DeviceRect        curve.Rect
	DeviceScale       wmath.DevicePixelScale
	ClipNodeCount     int
	MainClipIsImage   bool
	RasterSpatialNode wmath.SpatialNodeIndex
}

// LineDecorationTask renders one repeating dash/dot/wavy tile.
type LineDecorationTask struct {
	Size        [2]int32
	Style       int32
	Orientation int32
	Wavelength  float32
}

// BorderSegmentTask renders one cached border segment at a quantized world
// scale.
type BorderSegmentTask struct {
	Size         [2]int32
	ScaleFactor  float32
	SegmentIndex int32
}

// GradientRampTask uploads one cached gradient ramp row.
type GradientRampTask struct {
	RampIndex uint32
	Stops     uint32
}

// SurfaceTask is the port of an off-screen surface; mask tasks feeding a
// surface's primitives are added as its dependencies.
type SurfaceTask struct {
	DeviceRect  curve.Rect
	DeviceScale wmath.DevicePixelScale
}

type node struct {
	task     Task
	children []TaskID
}

// Graph is rebuilt every frame. Task ids are only meaningful within the
// frame they were allocated in.
type Graph struct {
	nodes []node
}

func NewGraph() *Graph {
	g := &Graph{}
	g.BeginFrame()
	return g
}

func (g *Graph) BeginFrame() {
	g.nodes = g.nodes[:0]
	// Slot 0 is reserved so that the zero TaskID stays invalid.
	g.nodes = append(g.nodes, node{})
}

// Add inserts a task and returns its id.
func (g *Graph) Add(task Task) TaskID {
	g.nodes = append(g.nodes, node{task: task})
	return TaskID(len(g.nodes) - 1)
}

// AddDependency records that parent cannot run before child. Edges must be
// added before the parent's surface is finalized; a dangling edge is a
// frame-builder bug, not a recoverable condition.
func (g *Graph) AddDependency(parent, child TaskID) {
	n := &g.nodes[parent]
	n.children = append(n.children, child)
}

func (g *Graph) Task(id TaskID) Task {
	return g.nodes[id].task
}

func (g *Graph) Dependencies(id TaskID) []TaskID {
	return g.nodes[id].children
}

func (g *Graph) Len() int {
	return len(g.nodes) - 1
}
