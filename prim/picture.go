// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"honnef.co/go/curve"

	"honnef.co/go/wren/clip"
	"honnef.co/go/wren/gpu"
	"honnef.co/go/wren/rtask"
	"honnef.co/go/wren/wmath"
)

// PictureIndex addresses a picture in the store's flat arena.
type PictureIndex int32

const InvalidPictureIndex PictureIndex = -1

// CompositeMode says how a picture's surface is composited into its
// parent.
type CompositeMode interface {
	isCompositeMode()
}

func (FilterOpacity) isCompositeMode()      {}
func (FilterBlur) isCompositeMode()         {}
func (FilterDropShadow) isCompositeMode()   {}
func (MixBlend) isCompositeMode()           {}
func (TileCacheComposite) isCompositeMode() {}

// FilterOpacity multiplies the surface by an animatable opacity. It is the
// one mode the collapse optimization can remove.
type FilterOpacity struct {
	Binding OpacityBinding
}

type FilterBlur struct {
	Radius float64
}

type FilterDropShadow struct {
	Offset curve.Vec2
	Radius float64
}

type BlendMode int32

const (
	BlendMultiply BlendMode = iota
	BlendScreen
	BlendOverlay
	BlendDifference
)

type MixBlend struct {
	Mode BlendMode
}

// TileCacheComposite marks the root tile-cache picture; its surface is
// composited tile by tile.
type TileCacheComposite struct{}

// blurSampleScale converts a blur radius to the inflation the blur kernel
// can visually reach.
const blurSampleScale = 3.0

func inflationFor(mode CompositeMode) float64 {
	switch mode := mode.(type) {
	case FilterBlur:
		return mode.Radius * blurSampleScale
	case FilterDropShadow:
		return mode.Radius * blurSampleScale
	default:
		return 0
	}
}

// SurfaceIndex addresses a surface in the frame state.
type SurfaceIndex int32

const RootSurfaceIndex SurfaceIndex = 0

// Surface is one off-screen (or root) render target for a frame.
type Surface struct {
	// Rect accumulates the visible primitive footprint in surface-local
	// space during the visibility pass.
	Rect curve.Rect

	SurfaceSpatialNode wmath.SpatialNodeIndex
	RasterSpatialNode  wmath.SpatialNodeIndex
	DeviceScale        wmath.DevicePixelScale
	InflationFactor    float64

	// Task is the surface's port in the render task graph; mask tasks for
	// the surface's primitives become its dependencies.
	Task rtask.TaskID
}

// RasterConfig is assigned per frame to pictures that render to their own
// surface.
type RasterConfig struct {
	CompositeMode         CompositeMode
	SurfaceIndex          SurfaceIndex
	EstablishesRasterRoot bool
}

// Cluster groups consecutive instances sharing a spatial node, so the
// visibility pass can cull and retarget space mappers per group instead of
// per primitive.
type Cluster struct {
	SpatialNode wmath.SpatialNodeIndex
	Flags       ClusterFlags
	Bounds      curve.Rect
	Instances   Range
}

type PrimitiveList struct {
	Instances []Instance
	Clusters  []Cluster
}

// Picture is an interior node of the primitive tree.
type Picture struct {
	PrimList    PrimitiveList
	SpatialNode wmath.SpatialNodeIndex

	// RequestedCompositeMode is what the scene asked for; nil means the
	// picture is a pass-through grouping. The collapse optimization may
	// clear it.
	RequestedCompositeMode CompositeMode

	// RasterConfig is recomputed every frame by AssignSurfaces; nil for
	// pass-through pictures.
	RasterConfig *RasterConfig

	// ApplyLocalClipRect selects whether child primitives fold the clip
	// chain's rect into their combined local clip rect, or keep only
	// their own.
	ApplyLocalClipRect bool

	// TileCache is set on the root scrolling content picture.
	TileCache *TileCache

	// PreciseLocalRect is the exact accumulated footprint from the last
	// visibility pass; SnappedLocalRect is it snapped to the device grid.
	PreciseLocalRect curve.Rect
	SnappedLocalRect curve.Rect

	SegmentsAreValid bool
	GpuHandle        gpu.Handle
	SegmentInstance  SegmentInstanceIndex
}

// Store owns the primitive tree for a scene: pictures, interned templates,
// and opacity bindings.
type Store struct {
	pictures        []Picture
	Data            DataStores
	opacityBindings []opacityBindingInfo

	nextUID uint64
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) AddPicture(p Picture) PictureIndex {
	p.SegmentInstance = SegmentsUnbuilt
	s.pictures = append(s.pictures, p)
	return PictureIndex(len(s.pictures) - 1)
}

func (s *Store) Picture(i PictureIndex) *Picture {
	return &s.pictures[i]
}

func (s *Store) PictureCount() int { return len(s.pictures) }

// NewInstance builds an instance with a fresh UID.
func (s *Store) NewInstance(kind Kind, localClipRect curve.Rect, chain clip.ChainID, spatial wmath.SpatialNodeIndex) Instance {
	s.nextUID++
	return Instance{
		Kind:           kind,
		LocalClipRect:  localClipRect,
		ClipChain:      chain,
		SpatialNode:    spatial,
		VisibilityInfo: InvalidVisibilityIndex,
		UID:            s.nextUID,
	}
}

// AddToList appends inst to pl, clustering it with the preceding instance
// when they share a spatial node. The cluster's aggregate bounds decide
// ClusterVisible.
func (s *Store) AddToList(pl *PrimitiveList, inst Instance, flags ClusterFlags) {
	idx := int32(len(pl.Instances))
	pl.Instances = append(pl.Instances, inst)

	local := s.LocalRect(&pl.Instances[idx])

	n := len(pl.Clusters)
	if n > 0 {
		cl := &pl.Clusters[n-1]
		if cl.SpatialNode == inst.SpatialNode && cl.Flags&^ClusterVisible == flags&^ClusterVisible {
			cl.Instances.End = idx + 1
			cl.Bounds = wmath.Union(cl.Bounds, local)
			if !wmath.IsEmpty(cl.Bounds) {
				cl.Flags |= ClusterVisible
			}
			return
		}
	}
	cl := Cluster{
		SpatialNode: inst.SpatialNode,
		Flags:       flags,
		Bounds:      local,
		Instances:   Range{Start: idx, End: idx + 1},
	}
	if !wmath.IsEmpty(cl.Bounds) {
		cl.Flags |= ClusterVisible
	}
	pl.Clusters = append(pl.Clusters, cl)
}

// LocalRect returns the instance's local-space rect from its template.
// Picture footprints are only known after a visibility pass, so for
// clustering they count as unbounded.
func (s *Store) LocalRect(inst *Instance) curve.Rect {
	switch k := inst.Kind.(type) {
	case *PictureKind:
		return maxLocalRect
	case *RectangleKind:
		return s.Data.Rectangles.Get(k.Data).Common.LocalRect
	case *ClearKind:
		return s.Data.Rectangles.Get(k.Data).Common.LocalRect
	case *ImageKind:
		return s.Data.Images.Get(k.Data).Common.LocalRect
	case *YuvImageKind:
		return s.Data.YuvImages.Get(k.Data).Common.LocalRect
	case *LineDecorationKind:
		return s.Data.LineDecorations.Get(k.Data).Common.LocalRect
	case *NormalBorderKind:
		return s.Data.NormalBorders.Get(k.Data).Common.LocalRect
	case *ImageBorderKind:
		return s.Data.ImageBorders.Get(k.Data).Common.LocalRect
	case *LinearGradientKind:
		return s.Data.LinearGradients.Get(k.Data).Common.LocalRect
	case *RadialGradientKind:
		return s.Data.RadialGradients.Get(k.Data).Common.LocalRect
	case *ConicGradientKind:
		return s.Data.ConicGradients.Get(k.Data).Common.LocalRect
	case *TextRunKind:
		return s.Data.TextRuns.Get(k.Data).Common.LocalRect
	case *BackdropKind:
		return s.Data.Backdrops.Get(k.Data).Common.LocalRect
	default:
		return curve.Rect{}
	}
}

// AddOpacityBinding interns a binding list slot and returns its index.
func (s *Store) AddOpacityBinding() OpacityBindingIndex {
	s.opacityBindings = append(s.opacityBindings, opacityBindingInfo{})
	return OpacityBindingIndex(len(s.opacityBindings) - 1)
}

func (s *Store) pushOpacityBinding(idx OpacityBindingIndex, b OpacityBinding) {
	s.opacityBindings[idx].bindings = append(s.opacityBindings[idx].bindings, b)
}

// ResolveOpacity multiplies all bindings attached to idx.
func (s *Store) ResolveOpacity(idx OpacityBindingIndex) float32 {
	if idx == NoOpacityBinding {
		return 1
	}
	opacity := float32(1)
	for _, b := range s.opacityBindings[idx].bindings {
		opacity *= b.Value
	}
	return opacity
}
