// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package wmath

// SpatialNodeIndex addresses a node in a SpatialTree.
type SpatialNodeIndex int32

const InvalidSpatialNode SpatialNodeIndex = -1

// CoordinateSystemID identifies a group of spatial nodes whose relative
// transforms are all axis-aligned scale/offsets. Mapping between two nodes
// in the same system never needs a full matrix.
type CoordinateSystemID int32

type SpatialNode struct {
	Parent      SpatialNodeIndex
	CoordSystem CoordinateSystemID

	// Transform from this node's space to its parent's space.
	local Transform

	// Content transform from this node's space to world space, and its
	// scale/offset relative to the root of its coordinate system.
	world        Transform
	systemOffset ScaleOffset
}

// SpatialTree is a flat arena of spatial nodes. Node 0 is the root and world
// space. Axis-aligned children stay in their parent's coordinate system;
// rotated or sheared children start a new one.
type SpatialTree struct {
	nodes      []SpatialNode
	numSystems CoordinateSystemID
}

func NewSpatialTree() *SpatialTree {
	t := &SpatialTree{numSystems: 1}
	t.nodes = append(t.nodes, SpatialNode{
		Parent:       InvalidSpatialNode,
		CoordSystem:  0,
		local:        Identity,
		world:        Identity,
		systemOffset: IdentityScaleOffset,
	})
	return t
}

// RootNode returns the world-space root.
func (t *SpatialTree) RootNode() SpatialNodeIndex { return 0 }

func (t *SpatialTree) Len() int { return len(t.nodes) }

// AddNode appends a child of parent with the given local transform and
// returns its index.
func (t *SpatialTree) AddNode(parent SpatialNodeIndex, local Transform) SpatialNodeIndex {
	p := &t.nodes[parent]
	node := SpatialNode{
		Parent: parent,
		local:  local,
		world:  p.world.Mul(local),
	}
	if so, ok := ScaleOffsetFromTransform(local); ok {
		node.CoordSystem = p.CoordSystem
		node.systemOffset = so.Accumulate(p.systemOffset)
	} else {
		node.CoordSystem = t.numSystems
		t.numSystems++
		node.systemOffset = IdentityScaleOffset
	}
	t.nodes = append(t.nodes, node)
	return SpatialNodeIndex(len(t.nodes) - 1)
}

// AddScrollNode is AddNode with a pure offset, the common case for scroll
// frames.
func (t *SpatialTree) AddScrollNode(parent SpatialNodeIndex, offsetX, offsetY float64) SpatialNodeIndex {
	return t.AddNode(parent, Transform{
		Matrix:      [4]float64{1, 0, 0, 1},
		Translation: [2]float64{offsetX, offsetY},
	})
}

func (t *SpatialTree) Node(index SpatialNodeIndex) *SpatialNode {
	return &t.nodes[index]
}

func (t *SpatialTree) CoordSystem(index SpatialNodeIndex) CoordinateSystemID {
	return t.nodes[index].CoordSystem
}

// WorldTransform returns the transform from node space to world space.
func (t *SpatialTree) WorldTransform(index SpatialNodeIndex) Transform {
	return t.nodes[index].world
}

// RelativeTransform returns the transform mapping from-space into to-space.
// ok is false if the chain through world space is singular.
func (t *SpatialTree) RelativeTransform(from, to SpatialNodeIndex) (Transform, bool) {
	if from == to {
		return Identity, true
	}
	toWorldInv, ok := t.nodes[to].world.Invert()
	if !ok {
		return Transform{}, false
	}
	return toWorldInv.Mul(t.nodes[from].world), true
}

// RelativeScaleOffset returns the scale/offset mapping from-space into
// to-space. ok is false when the two nodes live in different coordinate
// systems.
func (t *SpatialTree) RelativeScaleOffset(from, to SpatialNodeIndex) (ScaleOffset, bool) {
	f := &t.nodes[from]
	o := &t.nodes[to]
	if f.CoordSystem != o.CoordSystem {
		return ScaleOffset{}, false
	}
	inv, ok := o.systemOffset.Invert()
	if !ok {
		return ScaleOffset{}, false
	}
	return f.systemOffset.Accumulate(inv), true
}

// WorldScaleFactors returns the device-independent scale the node's content
// is rendered at, used to pick raster scales for cached border tasks.
func (t *SpatialTree) WorldScaleFactors(index SpatialNodeIndex) (sx, sy float64) {
	return t.nodes[index].world.ScaleFactors()
}
