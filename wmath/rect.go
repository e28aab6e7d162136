// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package wmath

import (
	"math"

	"honnef.co/go/curve"
)

// Rect helpers on curve.Rect. A rect with non-positive width or height is
// treated as empty everywhere in this module.

func RectFromOriginSize(x, y, w, h float64) curve.Rect {
	return curve.Rect{X0: x, Y0: y, X1: x + w, Y1: y + h}
}

func Width(r curve.Rect) float64  { return r.X1 - r.X0 }
func Height(r curve.Rect) float64 { return r.Y1 - r.Y0 }

func Area(r curve.Rect) float64 {
	if IsEmpty(r) {
		return 0
	}
	return (r.X1 - r.X0) * (r.Y1 - r.Y0)
}

func IsEmpty(r curve.Rect) bool {
	return r.X1-r.X0 <= 0 || r.Y1-r.Y0 <= 0
}

func Union(a, b curve.Rect) curve.Rect {
	if IsEmpty(a) {
		return b
	}
	if IsEmpty(b) {
		return a
	}
	return curve.Rect{
		X0: min(a.X0, b.X0),
		Y0: min(a.Y0, b.Y0),
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
	}
}

// Intersect returns the intersection of a and b. ok is false if the two
// rects do not overlap.
func Intersect(a, b curve.Rect) (curve.Rect, bool) {
	out := curve.Rect{
		X0: max(a.X0, b.X0),
		Y0: max(a.Y0, b.Y0),
		X1: min(a.X1, b.X1),
		Y1: min(a.Y1, b.Y1),
	}
	if IsEmpty(out) {
		return curve.Rect{}, false
	}
	return out, true
}

func Contains(r curve.Rect, p curve.Point) bool {
	return p.X >= r.X0 && p.X < r.X1 && p.Y >= r.Y0 && p.Y < r.Y1
}

func ContainsRect(outer, inner curve.Rect) bool {
	return inner.X0 >= outer.X0 && inner.Y0 >= outer.Y0 &&
		inner.X1 <= outer.X1 && inner.Y1 <= outer.Y1
}

func Translate(r curve.Rect, v curve.Vec2) curve.Rect {
	return curve.Rect{X0: r.X0 + v.X, Y0: r.Y0 + v.Y, X1: r.X1 + v.X, Y1: r.Y1 + v.Y}
}

func Inflate(r curve.Rect, dx, dy float64) curve.Rect {
	return curve.Rect{X0: r.X0 - dx, Y0: r.Y0 - dy, X1: r.X1 + dx, Y1: r.Y1 + dy}
}

func Scale(r curve.Rect, sx, sy float64) curve.Rect {
	return curve.Rect{X0: r.X0 * sx, Y0: r.Y0 * sy, X1: r.X1 * sx, Y1: r.Y1 * sy}
}

// RoundOut expands r to the smallest rect with integer coordinates that
// contains it.
func RoundOut(r curve.Rect) curve.Rect {
	return curve.Rect{
		X0: math.Floor(r.X0),
		Y0: math.Floor(r.Y0),
		X1: math.Ceil(r.X1),
		Y1: math.Ceil(r.Y1),
	}
}

// RoundIn shrinks r to the largest rect with integer coordinates contained
// in it.
func RoundIn(r curve.Rect) curve.Rect {
	return curve.Rect{
		X0: math.Ceil(r.X0),
		Y0: math.Ceil(r.Y0),
		X1: math.Floor(r.X1),
		Y1: math.Floor(r.Y1),
	}
}

func Origin(r curve.Rect) curve.Point {
	return curve.Point{X: r.X0, Y: r.Y0}
}

func Center(r curve.Rect) curve.Point {
	return curve.Point{X: (r.X0 + r.X1) / 2, Y: (r.Y0 + r.Y1) / 2}
}
