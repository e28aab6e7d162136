// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"honnef.co/go/curve"

	"honnef.co/go/wren/gpu"
	"honnef.co/go/wren/resource"
	"honnef.co/go/wren/segment"
)

// SegmentedInstance records a primitive's segment partition for one frame.
type SegmentedInstance struct {
	Segments  Range
	GpuHandle gpu.Handle
}

// VisibleImageTile is one tile of a tiled image that survived culling this
// frame.
type VisibleImageTile struct {
	Tile          resource.TileOffset
	LocalRect     curve.Rect
	LocalClipRect curve.Rect
	EdgeFlags     segment.EdgeFlags
	GpuHandle     gpu.Handle
}

// VisibleGradientTile is one repetition of a tiled gradient.
type VisibleGradientTile struct {
	LocalRect     curve.Rect
	LocalClipRect curve.Rect
	GpuHandle     gpu.Handle
}

// ScratchBuffer holds all per-frame primitive state. It is recycled across
// frames so that steady-state frame building does not allocate.
type ScratchBuffer struct {
	PrimInfo          []PrimitiveVisibility
	ClipMaskInstances []ClipMaskInstance
	Segments          []segment.Segment
	SegmentInstances  []SegmentedInstance
	ImageTiles        []VisibleImageTile
	GradientTiles     []VisibleGradientTile
	DebugItems        []DebugItem
}

func NewScratchBuffer() *ScratchBuffer {
	s := &ScratchBuffer{}
	s.BeginFrame()
	return s
}

// BeginFrame truncates all per-frame storage, keeping capacity.
// ClipMaskInstances gets its sentinel back so that ClipTaskIndex zero
// always resolves to "no mask".
func (s *ScratchBuffer) BeginFrame() {
	s.PrimInfo = s.PrimInfo[:0]
	s.ClipMaskInstances = s.ClipMaskInstances[:0]
	s.ClipMaskInstances = append(s.ClipMaskInstances, ClipMaskInstance{Kind: ClipMaskNone})
	s.Segments = s.Segments[:0]
	s.SegmentInstances = s.SegmentInstances[:0]
	s.ImageTiles = s.ImageTiles[:0]
	s.GradientTiles = s.GradientTiles[:0]
	s.DebugItems = s.DebugItems[:0]
}

// Recycle releases capacity that a past, unusually heavy frame left behind.
// Called between frames, not during one.
func (s *ScratchBuffer) Recycle() {
	s.PrimInfo = recycle(s.PrimInfo)
	s.ClipMaskInstances = recycle(s.ClipMaskInstances)
	s.Segments = recycle(s.Segments)
	s.SegmentInstances = recycle(s.SegmentInstances)
	s.ImageTiles = recycle(s.ImageTiles)
	s.GradientTiles = recycle(s.GradientTiles)
	s.DebugItems = recycle(s.DebugItems)
}

// recycle drops the backing array when the last frame used less than a
// quarter of a large capacity.
func recycle[T any](s []T) []T {
	const threshold = 2048
	if cap(s) >= threshold && len(s) < cap(s)/4 {
		return nil
	}
	return s[:0]
}
