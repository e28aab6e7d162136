// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

// CollapseOpacity removes opacity filters that cover exactly one
// collapsible primitive, folding the opacity into the primitive's own
// shading. This turns a whole off-screen surface, its composite and its
// memory traffic into a single multiplied color.
//
// Call once per scene, after the picture tree is built and before the
// first frame.
func (s *Store) CollapseOpacity(root PictureIndex) {
	pic := s.Picture(root)

	for ci := range pic.PrimList.Clusters {
		cl := &pic.PrimList.Clusters[ci]
		for i := cl.Instances.Start; i < cl.Instances.End; i++ {
			if k, ok := pic.PrimList.Instances[i].Kind.(*PictureKind); ok {
				s.CollapseOpacity(k.Pic)
			}
		}
	}

	mode, ok := pic.RequestedCompositeMode.(FilterOpacity)
	if !ok {
		return
	}
	target := s.collapseTarget(root, true)
	if target == nil {
		return
	}

	switch k := target.Kind.(type) {
	case *RectangleKind:
		if k.OpacityBinding == NoOpacityBinding {
			k.OpacityBinding = s.AddOpacityBinding()
		}
		s.pushOpacityBinding(k.OpacityBinding, mode.Binding)
	case *ImageKind:
		if k.OpacityBinding == NoOpacityBinding {
			k.OpacityBinding = s.AddOpacityBinding()
		}
		s.pushOpacityBinding(k.OpacityBinding, mode.Binding)
	default:
		return
	}
	pic.RequestedCompositeMode = nil
}

// collapseTarget finds the single primitive an opacity filter would
// multiply, looking through pass-through picture nesting. Any second
// primitive, or any picture with its own surface, makes the filter
// uncollapsible.
func (s *Store) collapseTarget(picIndex PictureIndex, isRoot bool) *Instance {
	pic := s.Picture(picIndex)
	if !isRoot && (pic.RequestedCompositeMode != nil || pic.TileCache != nil) {
		return nil
	}
	if len(pic.PrimList.Instances) != 1 {
		return nil
	}
	inst := &pic.PrimList.Instances[0]
	switch k := inst.Kind.(type) {
	case *RectangleKind:
		return inst
	case *ImageKind:
		return inst
	case *PictureKind:
		return s.collapseTarget(k.Pic, false)
	default:
		return nil
	}
}
