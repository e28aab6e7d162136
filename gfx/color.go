// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gfx

import (
	"honnef.co/go/color"

	"honnef.co/go/wren/wmath"
)

func Premul16(c *color.Color) [4]wmath.Float16 {
	cc := c.Convert(color.LinearSRGB)
	r := cc.Values[0]
	g := cc.Values[1]
	b := cc.Values[2]
	a := cc.Values[3]

	return [4]wmath.Float16{
		wmath.Float16bits(float32(r * a)),
		wmath.Float16bits(float32(g * a)),
		wmath.Float16bits(float32(b * a)),
		wmath.Float16bits(float32(a)),
	}
}

func Premul32(c *color.Color) [4]float32 {
	cc := c.Convert(color.LinearSRGB)
	r := cc.Values[0]
	g := cc.Values[1]
	b := cc.Values[2]
	a := cc.Values[3]

	return [4]float32{
		float32(r * a),
		float32(g * a),
		float32(b * a),
		float32(a),
	}
}

// Lerp interpolates between two colors in linear sRGB, returning
// premultiplied components.
func Lerp(a, b *color.Color, t float64) [4]float32 {
	pa := Premul32(a)
	pb := Premul32(b)
	var out [4]float32
	for i := range out {
		out[i] = pa[i] + float32(t)*(pb[i]-pa[i])
	}
	return out
}
