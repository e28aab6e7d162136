// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package segment decomposes a clipped primitive rect into axis-aligned
// sub-rects so that clip-mask work can be restricted to the corners and
// regions that actually need it. The center of a rounded-rect clip, for
// example, renders without any mask at all.
package segment

import (
	"slices"
	"sort"

	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/wmath"
)

// EdgeFlags marks which edges of a segment lie on the outer bound of the
// clipped region and therefore need anti-aliasing.
type EdgeFlags uint8

const (
	EdgeLeft EdgeFlags = 1 << iota
	EdgeTop
	EdgeRight
	EdgeBottom
	EdgeAll = EdgeLeft | EdgeTop | EdgeRight | EdgeBottom
)

// Segment is one cell of the partition, relative to the primitive rect's
// origin.
type Segment struct {
	Rect            curve.Rect
	EdgeFlags       EdgeFlags
	MayNeedClipMask bool
}

// maxSegments bounds the partition size; primitives that would exceed it
// fall back to a single whole-primitive mask. Segment tables are indexed
// with 16-bit offsets downstream.
const maxSegments = 64

type itemKind int

const (
	itemClipRect itemKind = iota
	itemClipOutRect
	itemRoundedRect
	itemMaskRegion
)

type item struct {
	kind     itemKind
	rect     curve.Rect
	inner    curve.Rect
	radii    clip.BorderRadii
	inverted bool
}

// Builder accumulates clip items against a primitive rect and produces the
// partition.
type Builder struct {
	primRect curve.Rect
	bounds   curve.Rect
	items    []item
	valid    bool
}

// Init sets up the builder for one primitive. primRect is the primitive's
// local rect, clipRect the combined local clip rect.
func (b *Builder) Init(primRect, clipRect curve.Rect) {
	b.primRect = primRect
	b.items = b.items[:0]
	bounds, ok := wmath.Intersect(primRect, clipRect)
	b.bounds = bounds
	b.valid = ok
}

// PushClipRect adds a rect or rounded-rect clip.
func (b *Builder) PushClipRect(rect curve.Rect, radii clip.BorderRadii, mode clip.Mode) {
	if !b.valid {
		return
	}
	switch {
	case mode == clip.ModeClipOut:
		b.items = append(b.items, item{kind: itemClipOutRect, rect: rect, radii: radii})
	case radii.IsZero():
		var ok bool
		b.bounds, ok = wmath.Intersect(b.bounds, rect)
		if !ok {
			b.valid = false
			return
		}
		b.items = append(b.items, item{kind: itemClipRect, rect: rect})
	default:
		var ok bool
		b.bounds, ok = wmath.Intersect(b.bounds, rect)
		if !ok {
			b.valid = false
			return
		}
		inner := curve.Rect{
			X0: rect.X0 + max(radii.TopLeft.X, radii.BottomLeft.X),
			Y0: rect.Y0 + max(radii.TopLeft.Y, radii.TopRight.Y),
			X1: rect.X1 - max(radii.TopRight.X, radii.BottomRight.X),
			Y1: rect.Y1 - max(radii.BottomLeft.Y, radii.BottomRight.Y),
		}
		b.items = append(b.items, item{kind: itemRoundedRect, rect: rect, inner: inner, radii: radii})
	}
}

// PushMaskRegion adds a region (box shadow reach) whose cells may need a
// mask without clipping anything away. inverted marks inset shadows, where
// the inner region needs the mask instead of the ring between outer and
// inner.
func (b *Builder) PushMaskRegion(outer, inner curve.Rect, inverted bool) {
	if !b.valid {
		return
	}
	b.items = append(b.items, item{kind: itemMaskRegion, rect: outer, inner: inner, inverted: inverted})
}

// Build produces the partition. It returns false when the primitive is
// fully clipped away or the partition would be degenerate or too large;
// callers then skip segmentation.
func (b *Builder) Build(yield func(Segment)) bool {
	if !b.valid || wmath.IsEmpty(b.bounds) {
		return false
	}

	xs := []float64{b.bounds.X0, b.bounds.X1}
	ys := []float64{b.bounds.Y0, b.bounds.Y1}
	for i := range b.items {
		it := &b.items[i]
		xs = append(xs, it.rect.X0, it.rect.X1)
		ys = append(ys, it.rect.Y0, it.rect.Y1)
		switch it.kind {
		case itemRoundedRect, itemMaskRegion:
			xs = append(xs, it.inner.X0, it.inner.X1)
			ys = append(ys, it.inner.Y0, it.inner.Y1)
		}
	}
	xs = gridLines(xs, b.bounds.X0, b.bounds.X1)
	ys = gridLines(ys, b.bounds.Y0, b.bounds.Y1)

	if (len(xs)-1)*(len(ys)-1) > maxSegments {
		return false
	}

	origin := curve.Vec2{X: -b.primRect.X0, Y: -b.primRect.Y0}
	for yi := 0; yi+1 < len(ys); yi++ {
		for xi := 0; xi+1 < len(xs); xi++ {
			cell := curve.Rect{X0: xs[xi], Y0: ys[yi], X1: xs[xi+1], Y1: ys[yi+1]}
			seg := Segment{
				Rect:            wmath.Translate(cell, origin),
				EdgeFlags:       b.edgeFlags(cell),
				MayNeedClipMask: b.cellNeedsMask(cell),
			}
			yield(seg)
		}
	}
	return true
}

func (b *Builder) edgeFlags(cell curve.Rect) EdgeFlags {
	var flags EdgeFlags
	if cell.X0 <= b.bounds.X0+wmath.Epsilon {
		flags |= EdgeLeft
	}
	if cell.Y0 <= b.bounds.Y0+wmath.Epsilon {
		flags |= EdgeTop
	}
	if cell.X1 >= b.bounds.X1-wmath.Epsilon {
		flags |= EdgeRight
	}
	if cell.Y1 >= b.bounds.Y1-wmath.Epsilon {
		flags |= EdgeBottom
	}
	return flags
}

func (b *Builder) cellNeedsMask(cell curve.Rect) bool {
	c := wmath.Center(cell)
	for i := range b.items {
		it := &b.items[i]
		switch it.kind {
		case itemClipRect:
			// Pure intersection, already folded into bounds.
		case itemClipOutRect:
			if wmath.Contains(it.rect, c) {
				return true
			}
		case itemRoundedRect:
			// Only the corner regions outside the inner rect can differ
			// from plain rect clipping.
			if wmath.Contains(it.rect, c) && !wmath.Contains(it.inner, c) {
				return true
			}
		case itemMaskRegion:
			inOuter := wmath.Contains(it.rect, c)
			inInner := wmath.Contains(it.inner, c)
			if it.inverted {
				if inInner {
					return true
				}
			} else if inOuter && !inInner {
				return true
			}
		}
	}
	return false
}

// gridLines sorts, dedupes and clamps candidate coordinates into
// [lo, hi].
func gridLines(coords []float64, lo, hi float64) []float64 {
	out := coords[:0]
	for _, c := range coords {
		if c > lo && c < hi {
			out = append(out, c)
		}
	}
	out = append(out, lo, hi)
	sort.Float64s(out)
	return slices.Compact(out)
}
