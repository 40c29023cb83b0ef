/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourcesArithmetic(t *testing.T) {
	a := Resources{CpuMilli: 4000, MemoryBytes: 16 << 30, EphemeralStorageBytes: 10 << 30, GpuCount: 2}
	b := Resources{CpuMilli: 1000, MemoryBytes: 8 << 30, GpuCount: 4}

	sum := a.Add(b)
	assert.Equal(t, int64(5000), sum.CpuMilli)
	assert.Equal(t, int64(24<<30), sum.MemoryBytes)
	assert.Equal(t, int64(6), sum.GpuCount)

	diff := a.Sub(b)
	assert.Equal(t, int64(3000), diff.CpuMilli)
	assert.Equal(t, int64(-2), diff.GpuCount)

	clamped := diff.ClampZero()
	assert.Equal(t, int64(3000), clamped.CpuMilli)
	assert.Equal(t, int64(0), clamped.GpuCount)
}

func TestResourcesExceeding(t *testing.T) {
	limit := Resources{CpuMilli: 4000, MemoryBytes: 16 << 30, EphemeralStorageBytes: 10 << 30, GpuCount: 2}

	assert.Empty(t, limit.Exceeding(limit))
	assert.Empty(t, Resources{}.Exceeding(limit))

	over := Resources{CpuMilli: 5000, MemoryBytes: 16 << 30, GpuCount: 3}
	assert.Equal(t, []string{ResourceCpu, ResourceGpu}, over.Exceeding(limit))
}

func TestResourcesIsZero(t *testing.T) {
	assert.True(t, Resources{}.IsZero())
	assert.False(t, Resources{GpuCount: 1}.IsZero())
}

func TestMessageFactory(t *testing.T) {
	assert.True(t, KnownMessageType(TypeHeartbeat))
	assert.True(t, KnownMessageType(TypeDeleteWorkload))
	assert.False(t, KnownMessageType("telemetry_v2"))

	msg := NewMessage(TypeClusterNodes)
	assert.NotNil(t, msg)
	_, ok := msg.(*ClusterNodes)
	assert.True(t, ok)

	assert.Nil(t, NewMessage("telemetry_v2"))
}
