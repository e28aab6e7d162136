// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package prim

import (
	"honnef.co/go/curve"
)

// DebugItem is one overlay rect, in world space.
type DebugItem struct {
	Rect  curve.Rect
	Color [4]float32
}

func (s *ScratchBuffer) PushDebugRect(r curve.Rect, color [4]float32) {
	s.DebugItems = append(s.DebugItems, DebugItem{Rect: r, Color: color})
}

var debugVisibleColor = [4]float32{0, 1, 0, 1}

// chasing reports whether inst is the instance selected for tracing.
func (ctx *FrameContext) chasing(inst *Instance) bool {
	return ctx.ChaseUID != 0 && inst.UID == ctx.ChaseUID
}

func (ctx *FrameContext) chaseLog(inst *Instance, msg string, args ...any) {
	if !ctx.chasing(inst) || ctx.Logger == nil {
		return
	}
	args = append(args, "uid", inst.UID)
	ctx.Logger.Debug(msg, args...)
}
