/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package concurrent

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gotest.tools/assert"
)

func TestExec(t *testing.T) {
	var calls int32
	successes, err := Exec(5, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	assert.NilError(t, err)
	assert.Equal(t, 5, successes)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))

	successes, err = Exec(0, func() error { return nil })
	assert.NilError(t, err)
	assert.Equal(t, 0, successes)
}

func TestExecReportsFailure(t *testing.T) {
	var n int32
	successes, err := Exec(4, func() error {
		if atomic.AddInt32(&n, 1)%2 == 0 {
			return fmt.Errorf("boom")
		}
		return nil
	})
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 2, successes)
}

func TestForEach(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	var mu sync.Mutex
	seen := map[string]bool{}

	err := ForEach(items, func(item string) error {
		mu.Lock()
		defer mu.Unlock()
		seen[item] = true
		return nil
	})
	assert.NilError(t, err)
	assert.Equal(t, len(items), len(seen))

	assert.NilError(t, ForEach(nil, func(string) error { return nil }))
}

func TestForEachAggregatesAllFailures(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var attempted int32
	err := ForEach(items, func(item int) error {
		atomic.AddInt32(&attempted, 1)
		if item%2 == 0 {
			return fmt.Errorf("item %d failed", item)
		}
		return nil
	})
	// Every item runs even when some fail.
	assert.Equal(t, int32(5), atomic.LoadInt32(&attempted))
	assert.ErrorContains(t, err, "item 2 failed")
	assert.ErrorContains(t, err, "item 4 failed")
}

func TestForEachBoundsParallelism(t *testing.T) {
	items := make([]int, 64)
	var inFlight, peak int32
	err := ForEach(items, func(int) error {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	assert.NilError(t, err)
	assert.Assert(t, atomic.LoadInt32(&peak) <= maxParallel)
}
