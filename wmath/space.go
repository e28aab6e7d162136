// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package wmath

import (
	"math"

	"honnef.co/go/curve"
)

type coordKind int

const (
	coordKindLocal coordKind = iota
	coordKindScaleOffset
	coordKindTransform
)

// SpaceMapper maps rects and vectors from a target spatial node's space into
// a fixed reference node's space. Retargeting to the node it is already set
// to is free, which amortizes transform lookups across the primitives of a
// cluster.
type SpaceMapper struct {
	RefSpatialNode SpatialNodeIndex

	// Bounds limits mapped rects in the reference space; geometry outside it
	// can never become visible.
	Bounds curve.Rect

	target      SpatialNodeIndex
	kind        coordKind
	scaleOffset ScaleOffset
	transform   Transform
	face        VisibleFace
	valid       bool
}

func NewSpaceMapper(ref SpatialNodeIndex, bounds curve.Rect) *SpaceMapper {
	return &SpaceMapper{
		RefSpatialNode: ref,
		Bounds:         bounds,
		target:         InvalidSpatialNode,
		valid:          true,
	}
}

// SetTargetSpatialNode points the mapper at target. A no-op if the target is
// unchanged.
func (m *SpaceMapper) SetTargetSpatialNode(target SpatialNodeIndex, tree *SpatialTree) {
	if target == m.target {
		return
	}
	m.target = target
	m.valid = true
	m.face = FaceFront

	switch {
	case target == m.RefSpatialNode:
		m.kind = coordKindLocal
	case tree.CoordSystem(target) == tree.CoordSystem(m.RefSpatialNode):
		so, ok := tree.RelativeScaleOffset(target, m.RefSpatialNode)
		if !ok {
			m.valid = false
			return
		}
		m.kind = coordKindScaleOffset
		m.scaleOffset = so
	default:
		xf, ok := tree.RelativeTransform(target, m.RefSpatialNode)
		if !ok {
			m.valid = false
			return
		}
		m.kind = coordKindTransform
		m.transform = xf
		m.face = xf.Face()
	}
}

// VisibleFace reports which face of the target plane the reference space
// sees.
func (m *SpaceMapper) VisibleFace() VisibleFace { return m.face }

// Map maps r from target space into reference space. ok is false when the
// transform cannot produce a valid footprint; callers treat that as not
// visible.
func (m *SpaceMapper) Map(r curve.Rect) (curve.Rect, bool) {
	if !m.valid {
		return curve.Rect{}, false
	}
	switch m.kind {
	case coordKindLocal:
		return r, true
	case coordKindScaleOffset:
		return m.scaleOffset.MapRect(r), true
	default:
		mapped := m.transform.MapRect(r)
		if math.IsNaN(mapped.X0) || math.IsNaN(mapped.Y0) ||
			math.IsNaN(mapped.X1) || math.IsNaN(mapped.Y1) {
			return curve.Rect{}, false
		}
		return mapped, true
	}
}

// MapClamped is Map intersected with the mapper's bounds.
func (m *SpaceMapper) MapClamped(r curve.Rect) (curve.Rect, bool) {
	mapped, ok := m.Map(r)
	if !ok {
		return curve.Rect{}, false
	}
	return Intersect(mapped, m.Bounds)
}

// Unmap maps r from reference space back into target space.
func (m *SpaceMapper) Unmap(r curve.Rect) (curve.Rect, bool) {
	if !m.valid {
		return curve.Rect{}, false
	}
	switch m.kind {
	case coordKindLocal:
		return r, true
	case coordKindScaleOffset:
		return m.scaleOffset.UnmapRect(r)
	default:
		return m.transform.InverseMapRect(r)
	}
}

// MapVector maps a vector (no translation) into reference space.
func (m *SpaceMapper) MapVector(v curve.Vec2) curve.Vec2 {
	if !m.valid {
		return curve.Vec2{}
	}
	switch m.kind {
	case coordKindLocal:
		return v
	case coordKindScaleOffset:
		return m.scaleOffset.MapVector(v)
	default:
		return m.transform.ApplyVec(v)
	}
}

// SpaceSnapper snaps rects to device pixel boundaries in the reference
// space, avoiding seams between adjacent primitives that rasterize
// separately. Snapping only applies when the target space is reachable by
// scale/offset; under rotation there is no meaningful pixel grid to snap to.
type SpaceSnapper struct {
	RefSpatialNode SpatialNodeIndex
	DeviceScale    DevicePixelScale

	target      SpatialNodeIndex
	scaleOffset ScaleOffset
	snappable   bool
}

func NewSpaceSnapper(ref SpatialNodeIndex, scale DevicePixelScale) *SpaceSnapper {
	return &SpaceSnapper{
		RefSpatialNode: ref,
		DeviceScale:    scale,
		target:         InvalidSpatialNode,
	}
}

func (s *SpaceSnapper) SetTargetSpatialNode(target SpatialNodeIndex, tree *SpatialTree) {
	if target == s.target {
		return
	}
	s.target = target
	so, ok := tree.RelativeScaleOffset(target, s.RefSpatialNode)
	s.scaleOffset = so
	s.snappable = ok
}

// SnapRect snaps r (in target space) to the device pixel grid of the
// reference space and returns it in target space again. Rects that cannot
// be snapped are returned unchanged.
func (s *SpaceSnapper) SnapRect(r curve.Rect) curve.Rect {
	if !s.snappable {
		return r
	}
	ds := float64(s.DeviceScale)
	device := Scale(s.scaleOffset.MapRect(r), ds, ds)
	snapped := curve.Rect{
		X0: math.Round(device.X0),
		Y0: math.Round(device.Y0),
		X1: math.Round(device.X1),
		Y1: math.Round(device.Y1),
	}
	snapped = Scale(snapped, 1/ds, 1/ds)
	out, ok := s.scaleOffset.UnmapRect(snapped)
	if !ok {
		return r
	}
	return out
}
