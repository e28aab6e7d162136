// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package prim is the core of the frame builder: it stores the primitive
// tree, computes per-frame visibility, builds clip-mask tasks and segment
// partitions, and prepares GPU data for every primitive that survived
// culling.
package prim

// Range addresses a slice of per-frame scratch storage.
type Range struct {
	Start int32
	End   int32
}

func (r Range) Len() int { return int(r.End - r.Start) }

// DataHandle addresses an interned template in its kind's store.
type DataHandle int32

// DataStore is a per-kind template arena. Templates live for the scene;
// instances reference them by handle.
type DataStore[T any] struct {
	items []T
}

func (s *DataStore[T]) Add(v T) DataHandle {
	s.items = append(s.items, v)
	return DataHandle(len(s.items) - 1)
}

func (s *DataStore[T]) Get(h DataHandle) *T {
	return &s.items[h]
}

func (s *DataStore[T]) Len() int { return len(s.items) }

// DataStores groups the template arenas of every primitive kind.
type DataStores struct {
	Rectangles      DataStore[RectangleTemplate]
	Images          DataStore[ImageTemplate]
	YuvImages       DataStore[YuvImageTemplate]
	LineDecorations DataStore[LineDecorationTemplate]
	NormalBorders   DataStore[NormalBorderTemplate]
	ImageBorders    DataStore[ImageBorderTemplate]
	LinearGradients DataStore[LinearGradientTemplate]
	RadialGradients DataStore[RadialGradientTemplate]
	ConicGradients  DataStore[ConicGradientTemplate]
	TextRuns        DataStore[TextRunTemplate]
	Backdrops       DataStore[BackdropTemplate]
}
