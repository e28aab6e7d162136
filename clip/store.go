// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package clip

import (
	"honnef.co/go/curve"

	"honnef.co/go/wren/wmath"
)

// ActiveClip is one clip node instantiated against the current primitive.
type ActiveClip struct {
	Node            NodeIndex
	SpatialNode     wmath.SpatialNodeIndex
	SameSpatialNode bool
	// LocalRect is the clip item's bounding rect mapped into the
	// primitive's local space. Only meaningful when HasValidRect.
	LocalRect    curve.Rect
	HasValidRect bool
}

// ChainInstance is the resolved clip state of one primitive for one frame.
type ChainInstance struct {
	// LocalClipRect is the combined clip rect in primitive-local space.
	LocalClipRect curve.Rect
	// PicClipRect is the clip rect mapped into the surface the primitive
	// renders to.
	PicClipRect curve.Rect
	// NeedsMask is set when rect intersection alone cannot express the
	// clip and a mask task is required.
	NeedsMask bool
	// HasNonLocalClips is set when some clip lives on another spatial node.
	HasNonLocalClips bool
	// ClipNodeRange addresses this instance's nodes in the store's
	// per-frame node list; segments re-activate the same set.
	ClipNodeRange Range
}

type Range struct {
	Start int32
	End   int32
}

func (r Range) Len() int { return int(r.End - r.Start) }

// Store owns clip nodes and chains for a scene, plus the per-frame active
// clip state.
type Store struct {
	nodes  []Node
	chains []chainNode

	// active is rebuilt by SetActiveClips and read by BuildChainInstance
	// and segment rebuilds.
	active []ActiveClip

	// frameNodes records each built instance's node set for the frame, so
	// segment clip rebuilds can re-activate them without rewalking chains.
	frameNodes []NodeIndex
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) BeginFrame() {
	s.frameNodes = s.frameNodes[:0]
	s.active = s.active[:0]
}

func (s *Store) AddNode(item Item, spatial wmath.SpatialNodeIndex) NodeIndex {
	s.nodes = append(s.nodes, Node{Item: item, SpatialNode: spatial})
	return NodeIndex(len(s.nodes) - 1)
}

func (s *Store) Node(index NodeIndex) *Node {
	return &s.nodes[index]
}

// AddChainNode links a clip node onto parent and returns the new chain id.
func (s *Store) AddChainNode(node NodeIndex, parent ChainID) ChainID {
	s.chains = append(s.chains, chainNode{node: node, parent: parent})
	return ChainID(len(s.chains) - 1)
}

// SetActiveClips walks chain towards the root and instantiates each clip
// against a primitive on primSpatial. Chains for which skip reports true
// are ignored; tile caches use this for shared clips that are baked into
// the surface itself.
func (s *Store) SetActiveClips(
	chain ChainID,
	primSpatial wmath.SpatialNodeIndex,
	tree *wmath.SpatialTree,
	skip func(ChainID) bool,
) {
	s.active = s.active[:0]
	for chain != NilChainID {
		if skip != nil && skip(chain) {
			chain = s.chains[chain].parent
			continue
		}
		cn := s.chains[chain]
		s.activate(cn.node, primSpatial, tree)
		chain = cn.parent
	}
}

// SetActiveClipsFromChainInstance re-activates the exact node set a
// previous BuildChainInstance recorded, used when rebuilding tighter clip
// chains per brush segment.
func (s *Store) SetActiveClipsFromChainInstance(
	inst *ChainInstance,
	primSpatial wmath.SpatialNodeIndex,
	tree *wmath.SpatialTree,
) {
	s.active = s.active[:0]
	for _, node := range s.frameNodes[inst.ClipNodeRange.Start:inst.ClipNodeRange.End] {
		s.activate(node, primSpatial, tree)
	}
}

func (s *Store) activate(node NodeIndex, primSpatial wmath.SpatialNodeIndex, tree *wmath.SpatialTree) {
	n := &s.nodes[node]
	ac := ActiveClip{
		Node:            node,
		SpatialNode:     n.SpatialNode,
		SameSpatialNode: n.SpatialNode == primSpatial,
	}
	rect, hasRect := itemRect(n.Item)
	if hasRect {
		if ac.SameSpatialNode {
			ac.LocalRect = rect
			ac.HasValidRect = true
		} else if xf, ok := tree.RelativeTransform(n.SpatialNode, primSpatial); ok && xf.IsAxisAligned() {
			// Under rotation or shear the mapped rect is only a bounding
			// box; leaving it invalid forces a mask instead of an
			// incorrect rect intersection.
			ac.LocalRect = xf.MapRect(rect)
			ac.HasValidRect = true
		}
	}
	s.active = append(s.active, ac)
}

// ActiveClips exposes the current active set; segment building inspects it
// to decide segmentability.
func (s *Store) ActiveClips() []ActiveClip {
	return s.active
}

// ChainNodes returns the node set a chain instance recorded for this
// frame.
func (s *Store) ChainNodes(r Range) []NodeIndex {
	return s.frameNodes[r.Start:r.End]
}

// itemRect returns the rect that bounds the item's keep-region, or
// hasRect=false when the item cannot restrict the primitive rect
// (clip-out rects, inset shadows).
func itemRect(item Item) (curve.Rect, bool) {
	switch item := item.(type) {
	case RectClip:
		if item.Mode == ModeClip {
			return item.Rect, true
		}
		return curve.Rect{}, false
	case RoundedRectClip:
		if item.Mode == ModeClip {
			return item.Rect, true
		}
		return curve.Rect{}, false
	case ImageMaskClip:
		return item.Rect, true
	case BoxShadowClip:
		if !item.Inset {
			return item.ShadowRect, true
		}
		return curve.Rect{}, false
	default:
		return curve.Rect{}, false
	}
}

// itemNeedsMask reports whether the item can be expressed by rect
// intersection alone when instantiated in the primitive's space.
func itemNeedsMask(item Item, sameSpace bool, hasValidRect bool) bool {
	switch item := item.(type) {
	case RectClip:
		if item.Mode == ModeClipOut {
			return true
		}
		// An axis-aligned rect clip in the same space is pure
		// intersection. From another space we only have its bounding box,
		// which over-approximates, so a mask is required unless the
		// mapped rect is exact (axis-aligned transform), which activate
		// already guarantees when HasValidRect is set and the transform
		// was a scale/offset. Be conservative for non-local clips.
		return !sameSpace && !hasValidRect
	case RoundedRectClip:
		if item.Mode == ModeClipOut {
			return true
		}
		return !item.Radii.IsZero()
	case ImageMaskClip:
		return true
	case BoxShadowClip:
		return true
	default:
		return true
	}
}

// touchesCorners reports whether r overlaps any corner region of the
// rounded rect. A rect that avoids all four corners is clipped by plain
// rect intersection.
func touchesCorners(c RoundedRectClip, r curve.Rect) bool {
	for _, box := range c.cornerRects() {
		if _, ok := wmath.Intersect(box, r); ok {
			return true
		}
	}
	return false
}

// BuildChainInstance resolves the active clips against a primitive.
//
// localPrimRect is the primitive's local rect already inflated and
// intersected with its local clip rect. ok=false means the primitive is
// fully clipped away this frame.
func (s *Store) BuildChainInstance(
	localPrimRect curve.Rect,
	localClipRect curve.Rect,
	mapLocalToSurface *wmath.SpaceMapper,
	mapSurfaceToWorld *wmath.SpaceMapper,
	worldCullRect curve.Rect,
	applyLocalClipRect bool,
) (ChainInstance, bool) {
	inst := ChainInstance{
		LocalClipRect: localClipRect,
		ClipNodeRange: Range{
			Start: int32(len(s.frameNodes)),
			End:   int32(len(s.frameNodes)),
		},
	}

	localRect := localPrimRect
	for i := range s.active {
		ac := &s.active[i]
		n := &s.nodes[ac.Node]

		if !ac.SameSpatialNode {
			inst.HasNonLocalClips = true
		}
		if ac.HasValidRect {
			// A keep-region clip: the primitive cannot extend past it.
			var ok bool
			localRect, ok = wmath.Intersect(localRect, ac.LocalRect)
			if !ok {
				return ChainInstance{}, false
			}
			if applyLocalClipRect {
				if r, ok := wmath.Intersect(inst.LocalClipRect, ac.LocalRect); ok {
					inst.LocalClipRect = r
				} else {
					return ChainInstance{}, false
				}
			}
		}
		if needsMask := itemNeedsMask(n.Item, ac.SameSpatialNode, ac.HasValidRect); needsMask {
			// Rounded rects whose corner regions don't reach the
			// primitive behave like plain rects.
			if rr, ok := n.Item.(RoundedRectClip); ok && rr.Mode == ModeClip && ac.SameSpatialNode {
				if !touchesCorners(rr, localRect) {
					needsMask = false
				}
			}
			if needsMask {
				inst.NeedsMask = true
			}
		}
		s.frameNodes = append(s.frameNodes, ac.Node)
		inst.ClipNodeRange.End++
	}

	picRect, ok := mapLocalToSurface.MapClamped(localRect)
	if !ok {
		return ChainInstance{}, false
	}
	inst.PicClipRect = picRect

	// Conservative world cull; the visibility pass recomputes the precise
	// clipped world rect.
	worldRect, ok := mapSurfaceToWorld.Map(picRect)
	if !ok {
		return ChainInstance{}, false
	}
	if _, ok := wmath.Intersect(worldRect, worldCullRect); !ok {
		return ChainInstance{}, false
	}

	return inst, true
}
