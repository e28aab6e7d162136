// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

// MaxDirtyRegions is the number of dirty regions a frame can track; the
// visibility mask is one bit per region.
const MaxDirtyRegions = 16

// VisibilityMask is a bitset of the dirty regions a primitive intersects.
// An empty mask means the primitive is outside every region and can be
// skipped entirely this frame.
type VisibilityMask uint16

const AllVisible VisibilityMask = ^VisibilityMask(0)

func (m *VisibilityMask) SetVisible(region int) {
	*m |= 1 << region
}

func (m VisibilityMask) IsEmpty() bool { return m == 0 }

func (m VisibilityMask) Intersects(other VisibilityMask) bool {
	return m&other != 0
}

// DebugFlags enables optional debug overlays and tracing.
type DebugFlags uint8

const (
	// DebugPrimitives records an overlay rect for every visible primitive.
	DebugPrimitives DebugFlags = 1 << iota
	// DebugObscureImages replaces image primitives with solid overlays.
	DebugObscureImages
)

// ClusterFlags describe a whole cluster of primitives sharing a spatial
// node.
type ClusterFlags uint8

const (
	// ClusterVisible is computed during scene building from the cluster's
	// aggregate bounds; clusters without it are reset and skipped.
	ClusterVisible ClusterFlags = 1 << iota
	// ClusterBackfaceHidden culls the cluster when its transform shows
	// the back face.
	ClusterBackfaceHidden
)

// VisibilityFlags annotate a PrimitiveVisibility record.
type VisibilityFlags uint8

const (
	// VisibilityAppliedLocalClip is set when the combined local clip rect
	// includes the clip chain's local rect rather than only the
	// instance's own.
	VisibilityAppliedLocalClip VisibilityFlags = 1 << iota
)
