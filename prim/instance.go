// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/wmath"
)

// VisibilityIndex addresses a PrimitiveVisibility record in the scratch
// buffer.
type VisibilityIndex int32

const InvalidVisibilityIndex VisibilityIndex = -1

// ClipTaskIndex addresses a primitive's first ClipMaskInstance in the
// scratch buffer. Index zero is the reserved sentinel, so the zero value
// means "no clip task".
type ClipTaskIndex int32

const InvalidClipTaskIndex ClipTaskIndex = 0

// SegmentInstanceIndex addresses a segmented instance in the scratch
// buffer. Two negative sentinels distinguish "not built yet" from
// "segmentation was considered and rejected".
type SegmentInstanceIndex int32

const (
	SegmentsUnbuilt SegmentInstanceIndex = -1
	SegmentsUnused  SegmentInstanceIndex = -2
)

// ClipMaskKind says how a primitive (or one segment of it) interacts with
// its clip chain.
type ClipMaskKind int8

const (
	// ClipMaskNone needs no mask; rect clipping fully expresses the chain.
	ClipMaskNone ClipMaskKind = iota
	// ClipMaskMask references a mask render task.
	ClipMaskMask
	// ClipMaskClipped marks a segment that the clip chain culls entirely;
	// it is not drawn at all.
	ClipMaskClipped
)

type ClipMaskInstance struct {
	Kind ClipMaskKind
	Task rtask.TaskID
}

// PrimitiveVisibility is the per-frame visibility record of one primitive
// that survived culling.
type PrimitiveVisibility struct {
	ClipChain clip.ChainInstance

	// ClippedWorldRect is the primitive's footprint intersected with the
	// world cull rect.
	ClippedWorldRect curve.Rect

	// CombinedLocalClipRect merges the instance's local clip rect with the
	// clip chain's, depending on the owning picture's clipping mode.
	CombinedLocalClipRect curve.Rect

	ClipTaskIndex  ClipTaskIndex
	VisibilityMask VisibilityMask
	Flags          VisibilityFlags
}

// Instance is one occurrence of a primitive in a picture's list. The
// template data lives in DataStores; the instance carries only placement
// and per-frame state.
type Instance struct {
	Kind          Kind
	LocalClipRect curve.Rect
	ClipChain     clip.ChainID
	SpatialNode   wmath.SpatialNodeIndex

	// VisibilityInfo is reset every frame; InvalidVisibilityIndex means the
	// instance was culled.
	VisibilityInfo VisibilityIndex

	// UID survives across frames and keys tile-cache dependencies and
	// chase tracing.
	UID uint64
}

// Kind is the per-kind payload of an instance.
type Kind interface {
	isKind()
}

func (*PictureKind) isKind()        {}
func (*RectangleKind) isKind()      {}
func (*ClearKind) isKind()          {}
func (*ImageKind) isKind()          {}
func (*YuvImageKind) isKind()       {}
func (*LineDecorationKind) isKind() {}
func (*NormalBorderKind) isKind()   {}
func (*ImageBorderKind) isKind()    {}
func (*LinearGradientKind) isKind() {}
func (*RadialGradientKind) isKind() {}
func (*ConicGradientKind) isKind()  {}
func (*TextRunKind) isKind()        {}
func (*BackdropKind) isKind()       {}

type PictureKind struct {
	Pic PictureIndex
}

type RectangleKind struct {
	Data            DataHandle
	OpacityBinding  OpacityBindingIndex
	SegmentInstance SegmentInstanceIndex
}

// ClearKind draws a rect that clears to transparent black.
type ClearKind struct {
	Data DataHandle
}

type ImageKind struct {
	Data            DataHandle
	OpacityBinding  OpacityBindingIndex
	SegmentInstance SegmentInstanceIndex

	// VisibleTiles addresses this frame's visible tiles in the scratch
	// buffer; only meaningful for tiled images.
	VisibleTiles Range
}

type YuvImageKind struct {
	Data            DataHandle
	SegmentInstance SegmentInstanceIndex
}

type LineDecorationKind struct {
	Data DataHandle

	// CacheHandle is the cached decoration tile task for this frame, or
	// InvalidTaskID for solid lines which need no task.
	CacheHandle rtask.TaskID
}

type NormalBorderKind struct {
	Data DataHandle

	// CacheHandles holds one cached task per border segment, rebuilt each
	// frame.
	CacheHandles []rtask.TaskID
}

type ImageBorderKind struct {
	Data DataHandle
}

type LinearGradientKind struct {
	Data         DataHandle
	VisibleTiles Range
}

type RadialGradientKind struct {
	Data         DataHandle
	VisibleTiles Range
}

type ConicGradientKind struct {
	Data         DataHandle
	VisibleTiles Range
}

type TextRunKind struct {
	Data DataHandle
}

// BackdropKind samples the backdrop of a mix-blend or backdrop-filter
// picture.
type BackdropKind struct {
	Data DataHandle
	Pic  PictureIndex
}
