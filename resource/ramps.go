// Copyright 2022 the Vello Authors
// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package resource

import (
	"encoding/binary"
	"math"
	"strings"

	"honnef.co/go/safeish"

	"honnef.co/go/wren/gfx"
	"honnef.co/go/wren/wmath"
)

// Ramps is the gradient ramp texture: one row of RampSamples texels per
// cached ramp.
type Ramps struct {
	Data   [][4]wmath.Float16
	Width  uint32
	Height uint32
}

type rampCacheEntry struct {
	id    uint32
	epoch uint64
}

// rampCache caches rasterized gradient ramps across frames, keyed by stop
// content. Ramps unused for two frames become candidates for slot reuse.
type rampCache struct {
	epoch   uint64
	mapping map[string]*rampCacheEntry
	data    [][4]wmath.Float16

	// slice reused across calls to add, used for building the map key.
	key []byte
}

// RampSamples is the width of the ramp texture.
const RampSamples = 512
const retainedRamps = 64

func newRampCache() *rampCache {
	return &rampCache{
		mapping: make(map[string]*rampCacheEntry),
	}
}

func (rc *rampCache) maintain() {
	rc.epoch++
	if len(rc.mapping) > retainedRamps {
		for k, v := range rc.mapping {
			if v.id >= retainedRamps {
				delete(rc.mapping, k)
			}
		}
		rc.data = rc.data[:retainedRamps*RampSamples]
	}
}

func (rc *rampCache) add(stops []gfx.ColorStop) uint32 {
	key := rc.key[:0]
	// Adding the number of stops makes the key unique for different length
	// sequences of colors that would have the same concatenation.
	key = binary.LittleEndian.AppendUint64(key, uint64(len(stops)))
	for _, stop := range stops {
		if stop.Color == nil {
			panic("nil color in gradient")
		}
		key = binary.LittleEndian.AppendUint32(key, math.Float32bits(stop.Offset))
		premul := gfx.Premul32(stop.Color)
		for _, v := range premul {
			key = binary.LittleEndian.AppendUint32(key, math.Float32bits(v))
		}
	}
	rc.key = key[:0]

	keyStr := safeish.Cast[string](key)
	if entry, ok := rc.mapping[keyStr]; ok {
		entry.epoch = rc.epoch
		return entry.id
	} else if len(rc.mapping) < retainedRamps {
		id := uint32(len(rc.data) / RampSamples)
		rc.data = append(rc.data, makeRamp(stops)...)
		// Copy the key so it no longer aliases the scratch slice.
		rc.mapping[strings.Clone(keyStr)] = &rampCacheEntry{id, rc.epoch}
		return id
	} else {
		var reuseID uint32
		var reuseKey string
		var found bool
		for k, entry := range rc.mapping {
			if entry.epoch+2 < rc.epoch {
				reuseID = entry.id
				reuseKey = k
				found = true
				break
			}
		}
		if found {
			delete(rc.mapping, reuseKey)
			start := int(reuseID) * RampSamples
			copy(rc.data[start:start+RampSamples], makeRamp(stops))
			rc.mapping[strings.Clone(keyStr)] = &rampCacheEntry{reuseID, rc.epoch}
			return reuseID
		} else {
			id := uint32(len(rc.data) / RampSamples)
			rc.data = append(rc.data, makeRamp(stops)...)
			return id
		}
	}
}

func (rc *rampCache) ramps() Ramps {
	return Ramps{
		Data:   rc.data,
		Width:  RampSamples,
		Height: uint32(len(rc.data) / RampSamples),
	}
}

func makeRamp(stops []gfx.ColorStop) [][4]wmath.Float16 {
	out := make([][4]wmath.Float16, RampSamples)

	lastU := float64(0.0)
	lastC := stops[0].Color
	thisU := lastU
	thisC := lastC
	j := 0
	for i := range RampSamples {
		u := float64(i) / (RampSamples - 1)
		for u > thisU {
			lastU = thisU
			lastC = thisC
			if j+1 < len(stops) {
				s := stops[j+1]
				thisU = float64(s.Offset)
				thisC = s.Color
				j++
			} else {
				break
			}
		}
		du := thisU - lastU
		var c [4]float32
		if du < 1e-9 {
			c = gfx.Premul32(thisC)
		} else {
			c = gfx.Lerp(lastC, thisC, (u-lastU)/du)
		}
		out[i] = [4]wmath.Float16{
			wmath.Float16bits(c[0]),
			wmath.Float16bits(c[1]),
			wmath.Float16bits(c[2]),
			wmath.Float16bits(c[3]),
		}
	}

	return out
}
