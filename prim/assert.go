// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

//go:build !wrendebug

package prim

func debugAssert(cond bool, msg string) {}
