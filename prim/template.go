// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"honnef.co/go/color"
	"honnef.co/go/curve"

	"honnef.co/go/wren/gfx"
	"honnef.co/go/wren/gpu"
	"honnef.co/go/wren/resource"
)

// TemplateCommon is shared by every interned template.
type TemplateCommon struct {
	LocalRect curve.Rect

	// GpuHandle caches the template's shader data. Templates only rewrite
	// their blocks when the handle has been invalidated.
	GpuHandle gpu.Handle

	IsOpaque bool
}

type RectangleTemplate struct {
	Common TemplateCommon
	Color  *color.Color
}

func (t *RectangleTemplate) write(cache *gpu.Cache, opacity float32) {
	w, ok := cache.Request(&t.Common.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(t.Common.LocalRect)
	c := gfx.Premul32(t.Color)
	w.PushFloats(c[0]*opacity, c[1]*opacity, c[2]*opacity, c[3]*opacity)
	w.Finish()
}

type ImageTemplate struct {
	Common      TemplateCommon
	Key         resource.ImageKey
	StretchSize curve.Vec2
	TileSpacing curve.Vec2
}

func (t *ImageTemplate) write(cache *gpu.Cache, opacity float32) {
	w, ok := cache.Request(&t.Common.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(t.Common.LocalRect)
	w.PushFloats(
		float32(t.StretchSize.X), float32(t.StretchSize.Y),
		float32(t.TileSpacing.X), opacity,
	)
	w.Finish()
}

// YuvColorSpace selects the YUV to RGB conversion matrix.
type YuvColorSpace int32

const (
	YuvRec601 YuvColorSpace = iota
	YuvRec709
	YuvRec2020
)

type YuvFormat int32

const (
	YuvPlanar YuvFormat = iota
	YuvNV12
	YuvInterleaved
)

type YuvImageTemplate struct {
	Common     TemplateCommon
	Keys       [3]resource.ImageKey
	ColorSpace YuvColorSpace
	Format     YuvFormat
	ColorDepth int32
}

func (t *YuvImageTemplate) write(cache *gpu.Cache) {
	w, ok := cache.Request(&t.Common.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(t.Common.LocalRect)
	w.PushFloats(
		float32(t.ColorSpace), float32(t.Format), float32(t.ColorDepth), 0,
	)
	w.Finish()
}

type LineStyle int32

const (
	LineSolid LineStyle = iota
	LineDotted
	LineDashed
	LineWavy
)

type LineOrientation int32

const (
	LineHorizontal LineOrientation = iota
	LineVertical
)

type LineDecorationTemplate struct {
	Common      TemplateCommon
	Style       LineStyle
	Orientation LineOrientation
	Wavelength  float64
	Color       *color.Color
}

func (t *LineDecorationTemplate) write(cache *gpu.Cache) {
	w, ok := cache.Request(&t.Common.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(t.Common.LocalRect)
	c := gfx.Premul32(t.Color)
	w.PushFloats(c[0], c[1], c[2], c[3])
	w.PushFloats(float32(t.Style), float32(t.Orientation), float32(t.Wavelength), 0)
	w.Finish()
}

// BorderSegmentInfo is one cacheable piece of a border (corners and edges),
// relative to the border rect's origin.
type BorderSegmentInfo struct {
	Rect curve.Rect
	// CacheKeyIndex distinguishes segment shapes within the template for
	// task cache keys.
	CacheKeyIndex int32
}

type NormalBorderTemplate struct {
	Common   TemplateCommon
	Widths   [4]float64
	Segments []BorderSegmentInfo
}

func (t *NormalBorderTemplate) write(cache *gpu.Cache) {
	w, ok := cache.Request(&t.Common.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(t.Common.LocalRect)
	w.PushFloats(
		float32(t.Widths[0]), float32(t.Widths[1]),
		float32(t.Widths[2]), float32(t.Widths[3]),
	)
	w.Finish()
}

type ImageBorderTemplate struct {
	Common TemplateCommon
	Key    resource.ImageKey
	Widths [4]float64
	Fill   bool
}

func (t *ImageBorderTemplate) write(cache *gpu.Cache) {
	w, ok := cache.Request(&t.Common.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(t.Common.LocalRect)
	w.PushFloats(
		float32(t.Widths[0]), float32(t.Widths[1]),
		float32(t.Widths[2]), float32(t.Widths[3]),
	)
	w.Finish()
}

// GradientCommon holds what all gradient kinds share: the stop list and
// tiling parameters.
type GradientCommon struct {
	Stops       []gfx.ColorStop
	Extend      gfx.Extend
	TileSize    curve.Vec2
	TileSpacing curve.Vec2
}

// IsTiled reports whether the gradient repeats in tiles smaller than its
// local rect.
func (g *GradientCommon) IsTiled(local curve.Rect) bool {
	return g.TileSize.X > 0 && g.TileSize.Y > 0 &&
		(g.TileSize.X+g.TileSpacing.X < local.X1-local.X0 ||
			g.TileSize.Y+g.TileSpacing.Y < local.Y1-local.Y0)
}

type LinearGradientTemplate struct {
	Common   TemplateCommon
	Gradient GradientCommon
	Start    curve.Point
	End      curve.Point

	// SupportsCaching is set for axis-aligned gradients whose ramp can be
	// baked into the ramp texture.
	SupportsCaching bool

	// RampRow is the cached ramp texture row, valid after prepare when
	// SupportsCaching.
	RampRow uint32
}

type RadialGradientTemplate struct {
	Common   TemplateCommon
	Gradient GradientCommon
	Center   curve.Point
	Radius   curve.Vec2
	StartE   float64
	EndE     float64
}

type ConicGradientTemplate struct {
	Common   TemplateCommon
	Gradient GradientCommon
	Center   curve.Point
	Angle    float64
}

type TextRunTemplate struct {
	Common       TemplateCommon
	Font         resource.FontKey
	Glyphs       []resource.GlyphID
	GlyphOffsets []curve.Point
	FontSize     float64
	Color        *color.Color
	ShadowOffset curve.Vec2
}

func (t *TextRunTemplate) write(cache *gpu.Cache) {
	w, ok := cache.Request(&t.Common.GpuHandle)
	if !ok {
		return
	}
	w.PushRect(t.Common.LocalRect)
	c := gfx.Premul32(t.Color)
	w.PushFloats(c[0], c[1], c[2], c[3])
	w.PushFloats(float32(t.ShadowOffset.X), float32(t.ShadowOffset.Y), float32(t.FontSize), 0)
	for _, off := range t.GlyphOffsets {
		w.PushFloats(float32(off.X), float32(off.Y), 0, 0)
	}
	w.Finish()
}

type BackdropTemplate struct {
	Common TemplateCommon
}

// OpacityBindingIndex addresses a list of opacity bindings in the store.
type OpacityBindingIndex int32

const NoOpacityBinding OpacityBindingIndex = -1

// OpacityBinding is an externally animated opacity value. Collapsed
// opacity filters push their binding onto the primitive they collapsed
// into.
type OpacityBinding struct {
	Value float32
}

type opacityBindingInfo struct {
	bindings []OpacityBinding
}
