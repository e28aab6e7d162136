// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package wmath

import (
	"math"

	"golang.org/x/exp/constraints"
)

const Epsilon = 1e-6

// DevicePixelScale is the ratio of device pixels per layout pixel for a
// surface or the global screen.
type DevicePixelScale float64

// Float16 is an IEEE-754 binary16 value represented as its bits.
type Float16 uint16

// Float16bits converts an f32 to IEEE-754 binary16 format. This
// implementation was adapted from Fabian Giesen's float_to_half_fast3()
// function which can be found at
// <https://gist.github.com/rygorous/2156668#file-gistfile1-cpp-L285>
func Float16bits(val float32) Float16 {
	const inf32 uint32 = 255 << 23
	const inf16 uint32 = 31 << 23
	const magic uint32 = 15 << 23
	const signMask uint32 = 0x8000_0000
	const roundMask uint32 = 0xF000

	u := math.Float32bits(val)
	sign := u & signMask
	u = u ^ sign

	var output uint16
	if u >= inf32 {
		// NaN -> qNaN and Inf -> Inf
		if u > inf32 {
			output = 0x7E00
		} else {
			output = 0x7C00
		}
	} else {
		u := u & roundMask
		u = math.Float32bits(math.Float32frombits(u) * math.Float32frombits(magic))
		u = u - roundMask
		// Clamp to signed infinity if exponent overflowed
		if u > inf16 {
			u = inf16
		}
		output = uint16(u >> 13)
	}
	return Float16(output | uint16(sign>>16))
}

func AlignUp[T constraints.Integer](len T, alignment T) T {
	return (len + alignment - 1) & -alignment
}

// NextMultipleOf rounds x up to the next multiple of y.
func NextMultipleOf[T constraints.Integer](x, y T) T {
	r := x % y
	if r == 0 {
		return x
	}
	return x + y - r
}

// ClampToPowerOfTwo returns the largest power of two that is not larger than
// v, clamped to [1, limit]. Used for quantizing raster scale factors so that
// cached render tasks are shared across nearby zoom levels.
func ClampToPowerOfTwo(v float64, limit float64) float64 {
	if v <= 1 {
		return 1
	}
	p := math.Exp2(math.Floor(math.Log2(v)))
	return min(p, limit)
}
