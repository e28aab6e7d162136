// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package clip resolves the stack of clips that applies to a primitive
// into a single combined clip rect plus a mask requirement. The frame
// builder consumes clip-chain instances; it never looks at individual clip
// items on the hot path.
package clip

import (
	"honnef.co/go/curve"

	"honnef.co/go/wren/gpu"
	"honnef.co/go/wren/resource"
	"honnef.co/go/wren/wmath"
)

type Mode int

const (
	// ModeClip keeps pixels inside the item.
	ModeClip Mode = iota
	// ModeClipOut keeps pixels outside the item.
	ModeClipOut
)

// Item is one clip source.
type Item interface {
	isClipItem()
}

func (RectClip) isClipItem()        {}
func (RoundedRectClip) isClipItem() {}
func (ImageMaskClip) isClipItem()   {}
func (BoxShadowClip) isClipItem()   {}

type RectClip struct {
	Rect curve.Rect
	Mode Mode
}

// BorderRadii holds per-corner ellipse radii.
type BorderRadii struct {
	TopLeft     curve.Vec2
	TopRight    curve.Vec2
	BottomLeft  curve.Vec2
	BottomRight curve.Vec2
}

func UniformRadii(r float64) BorderRadii {
	v := curve.Vec2{X: r, Y: r}
	return BorderRadii{v, v, v, v}
}

func (r BorderRadii) IsZero() bool {
	return r.TopLeft == curve.Vec2{} && r.TopRight == curve.Vec2{} &&
		r.BottomLeft == curve.Vec2{} && r.BottomRight == curve.Vec2{}
}

type RoundedRectClip struct {
	Rect  curve.Rect
	Radii BorderRadii
	Mode  Mode
}

// cornerRects returns the four boxes the radii carve out of the rect.
// Zero radii produce empty boxes.
func (c RoundedRectClip) cornerRects() [4]curve.Rect {
	r := c.Rect
	return [4]curve.Rect{
		{X0: r.X0, Y0: r.Y0, X1: r.X0 + c.Radii.TopLeft.X, Y1: r.Y0 + c.Radii.TopLeft.Y},
		{X0: r.X1 - c.Radii.TopRight.X, Y0: r.Y0, X1: r.X1, Y1: r.Y0 + c.Radii.TopRight.Y},
		{X0: r.X0, Y0: r.Y1 - c.Radii.BottomLeft.Y, X1: r.X0 + c.Radii.BottomLeft.X, Y1: r.Y1},
		{X0: r.X1 - c.Radii.BottomRight.X, Y0: r.Y1 - c.Radii.BottomRight.Y, X1: r.X1, Y1: r.Y1},
	}
}

// ImageMaskClip clips by the alpha channel of an image. It can never be
// expressed as a rect and always forces a mask.
type ImageMaskClip struct {
	Rect   curve.Rect
	Image  resource.ImageKey
	Repeat bool
}

// BoxShadowClip restricts shadow rendering to the region the blur can
// visually affect. Inset shadows invert the region.
type BoxShadowClip struct {
	// SourceRect is the box casting the shadow, in clip-local space.
	SourceRect curve.Rect
	// ShadowRect is the outer bound of the blurred shadow.
	ShadowRect curve.Rect
	BlurRadius float64
	Inset      bool
}

// NodeIndex addresses a clip node in the store.
type NodeIndex int32

type Node struct {
	Item        Item
	SpatialNode wmath.SpatialNodeIndex

	// Handle caches the item's GPU parameters for mask shaders.
	Handle gpu.Handle
}

// ChainID addresses a clip chain node; chains are singly linked towards the
// root.
type ChainID int32

const NilChainID ChainID = -1

type chainNode struct {
	node   NodeIndex
	parent ChainID
}
