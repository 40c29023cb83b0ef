/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthRegistryIdle(t *testing.T) {
	registry := newHealthRegistry()
	registry.Stamp("Job")
	registry.Stamp("Deployment")

	assert.Empty(t, registry.Idle(time.Hour))

	// A stamp that never refreshes falls out of the window.
	registry.stamps["Job"] = time.Now().Add(-10 * time.Minute)
	idle := registry.Idle(watcherIdleLimit)
	assert.Equal(t, []string{"Job"}, idle)
}

// Every watcher must be visible to the idle gate from process start, so one
// whose very first list hangs or errors forever still degrades /v1/health.
func TestWatcherNamesCoverAllWatchers(t *testing.T) {
	names := map[string]bool{}
	for _, name := range watcherNames() {
		names[name] = true
	}
	for _, w := range componentWatches {
		assert.True(t, names[w.gvk.Kind], "missing watcher name %s", w.gvk.Kind)
	}
	assert.True(t, names[kaiwoQueueConfigGvk.Kind])
	assert.True(t, names[aimClusterModelGvk.Kind])
	assert.Len(t, names, len(componentWatches)+2)

	registry := newHealthRegistry()
	for _, name := range watcherNames() {
		registry.Stamp(name)
	}
	registry.stamps[kaiwoQueueConfigGvk.Kind] = time.Now().Add(-10 * time.Minute)
	assert.Equal(t, []string{kaiwoQueueConfigGvk.Kind}, registry.Idle(watcherIdleLimit))
}
