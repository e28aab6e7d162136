// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package rtask

// TaskCache reuses render tasks whose output is identical across frames
// (line decoration tiles, border segments, gradient ramps). Entries are
// keyed by content and evicted with the same epoch scheme as the gradient
// ramp cache: an entry untouched for two frames may be replaced.
type TaskCache struct {
	epoch   uint64
	mapping map[TaskCacheKey]*taskCacheEntry
}

// TaskCacheKey must fully describe the task output. Two requests with equal
// keys may share one task.
type TaskCacheKey struct {
	Kind      int32
	Size      [2]int32
	Variant   int64
	ScaleBits uint64
}

type taskCacheEntry struct {
	epoch uint64
	id    TaskID
	fresh bool
}

func NewTaskCache() *TaskCache {
	return &TaskCache{
		mapping: make(map[TaskCacheKey]*taskCacheEntry),
	}
}

// BeginFrame bumps the epoch and drops entries that were not requested
// recently. Task ids are per-frame, so every surviving entry is marked
// stale and rebuilt on first request.
func (tc *TaskCache) BeginFrame() {
	tc.epoch++
	for k, e := range tc.mapping {
		if e.epoch+2 < tc.epoch {
			delete(tc.mapping, k)
			continue
		}
		e.fresh = false
	}
}

// Request returns the task for key, building it via build on first use this
// frame. The bool result reports whether the task was newly built.
func (tc *TaskCache) Request(key TaskCacheKey, g *Graph, build func() Task) (TaskID, bool) {
	if e, ok := tc.mapping[key]; ok && e.fresh {
		e.epoch = tc.epoch
		return e.id, false
	}
	id := g.Add(build())
	tc.mapping[key] = &taskCacheEntry{
		epoch: tc.epoch,
		id:    id,
		fresh: true,
	}
	return id, true
}

func (tc *TaskCache) Len() int { return len(tc.mapping) }
