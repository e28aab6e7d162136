package gfx

import "honnef.co/go/color"

type ColorStop struct {
	Offset float32
	Color  *color.Color
}

type Extend int

const (
	Pad Extend = iota
	Repeat
	Reflect
)
