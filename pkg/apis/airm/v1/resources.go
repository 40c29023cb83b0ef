/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

// Resources is the four-dimensional capacity vector used by quotas, node
// inventory and allocation messages. CPU is in millicores, memory and
// ephemeral storage in bytes, GPUs in whole devices.
type Resources struct {
	CpuMilli              int64 `json:"cpu_milli"`
	MemoryBytes           int64 `json:"memory_bytes"`
	EphemeralStorageBytes int64 `json:"ephemeral_storage_bytes"`
	GpuCount              int64 `json:"gpu_count"`
}

// ResourceCpu and friends name the vector dimensions in validation errors and
// drift reports.
const (
	ResourceCpu              = "cpu"
	ResourceMemory           = "memory"
	ResourceEphemeralStorage = "ephemeral_storage"
	ResourceGpu              = "gpu"
)

func (r Resources) Add(o Resources) Resources {
	return Resources{
		CpuMilli:              r.CpuMilli + o.CpuMilli,
		MemoryBytes:           r.MemoryBytes + o.MemoryBytes,
		EphemeralStorageBytes: r.EphemeralStorageBytes + o.EphemeralStorageBytes,
		GpuCount:              r.GpuCount + o.GpuCount,
	}
}

func (r Resources) Sub(o Resources) Resources {
	return Resources{
		CpuMilli:              r.CpuMilli - o.CpuMilli,
		MemoryBytes:           r.MemoryBytes - o.MemoryBytes,
		EphemeralStorageBytes: r.EphemeralStorageBytes - o.EphemeralStorageBytes,
		GpuCount:              r.GpuCount - o.GpuCount,
	}
}

// ClampZero floors every dimension at zero. The catch-all queue is built from
// a clamped remainder so transient overcommit never produces negative quota.
func (r Resources) ClampZero() Resources {
	return Resources{
		CpuMilli:              max64(r.CpuMilli, 0),
		MemoryBytes:           max64(r.MemoryBytes, 0),
		EphemeralStorageBytes: max64(r.EphemeralStorageBytes, 0),
		GpuCount:              max64(r.GpuCount, 0),
	}
}

// Exceeding returns the dimension names where r is strictly greater than the
// limit. Each dimension is judged independently.
func (r Resources) Exceeding(limit Resources) []string {
	var out []string
	if r.CpuMilli > limit.CpuMilli {
		out = append(out, ResourceCpu)
	}
	if r.MemoryBytes > limit.MemoryBytes {
		out = append(out, ResourceMemory)
	}
	if r.EphemeralStorageBytes > limit.EphemeralStorageBytes {
		out = append(out, ResourceEphemeralStorage)
	}
	if r.GpuCount > limit.GpuCount {
		out = append(out, ResourceGpu)
	}
	return out
}

func (r Resources) IsZero() bool {
	return r == Resources{}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// GpuInfo describes the GPU population of a node. A node carries at most one
// GPU model.
type GpuInfo struct {
	Vendor          string `json:"vendor,omitempty"`
	Type            string `json:"type,omitempty"`
	Product         string `json:"product,omitempty"`
	VramPerGpuBytes int64  `json:"vram_per_gpu_bytes,omitempty"`
}

// PriorityClass pairs a workload priority name with its Kueue weight.
type PriorityClass struct {
	Name  string `json:"name"`
	Value int32  `json:"value"`
}

// DefaultPriorityClasses are pushed with every quota allocation.
func DefaultPriorityClasses() []PriorityClass {
	return []PriorityClass{
		{Name: "low", Value: -100},
		{Name: "medium", Value: 0},
		{Name: "high", Value: 100},
	}
}
