/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

func TestQueueConfigSpec(t *testing.T) {
	msg := v1.NewClusterQuotasAllocation([]v1.QueueQuota{
		{
			Name:       "alpha",
			Resources:  v1.Resources{CpuMilli: 4500, MemoryBytes: 16 << 30, EphemeralStorageBytes: 10 << 30, GpuCount: 2},
			Namespaces: []string{"alpha-ns"},
		},
		{
			Name:      v1.DefaultCatchAllQuotaName,
			Resources: v1.Resources{CpuMilli: 2000},
		},
	}, "amd", time.Now())

	spec := queueConfigSpec(msg)
	obj := &unstructured.Unstructured{Object: map[string]interface{}{"spec": spec}}

	queues, _, _ := unstructured.NestedSlice(obj.Object, "spec", "clusterQueues")
	assert.Len(t, queues, 2)
	first := queues[0].(map[string]interface{})
	assert.Equal(t, "alpha", first["name"])
	quota := first["quota"].(map[string]interface{})
	assert.Equal(t, "4500m", quota["cpu"])
	assert.Equal(t, "16Gi", quota["memory"])
	assert.Equal(t, "10Gi", quota["ephemeral-storage"])
	assert.Equal(t, int64(2), quota["amd.com/gpu"])

	classes, _, _ := unstructured.NestedSlice(obj.Object, "spec", "priorityClasses")
	assert.Len(t, classes, len(v1.DefaultPriorityClasses()))
}

func TestQueueConfigSpecNvidia(t *testing.T) {
	msg := v1.NewClusterQuotasAllocation([]v1.QueueQuota{
		{Name: "alpha", Resources: v1.Resources{GpuCount: 8}},
	}, "nvidia", time.Now())

	spec := queueConfigSpec(msg)
	queues := spec["clusterQueues"].([]interface{})
	quota := queues[0].(map[string]interface{})["quota"].(map[string]interface{})
	_, hasAmd := quota["amd.com/gpu"]
	assert.False(t, hasAmd)
	assert.Equal(t, int64(8), quota["nvidia.com/gpu"])
}

func TestQuotasFromQueueConfigRoundTrip(t *testing.T) {
	want := []v1.QueueQuota{
		{
			Name:       "alpha",
			Resources:  v1.Resources{CpuMilli: 4500, MemoryBytes: 16 << 30, EphemeralStorageBytes: 10 << 30, GpuCount: 2},
			Namespaces: []string{"alpha-ns"},
		},
		{
			Name:      v1.DefaultCatchAllQuotaName,
			Resources: v1.Resources{CpuMilli: 2000},
		},
	}
	msg := v1.NewClusterQuotasAllocation(want, "amd", time.Now())
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"spec": queueConfigSpec(msg),
	}}

	got := quotasFromQueueConfig(obj)
	assert.Equal(t, want, got)
}

func TestQuotasFromQueueConfigToleratesLooseTypes(t *testing.T) {
	// A round trip through the apiserver turns numbers into int64 or float64
	// depending on the client; both must parse.
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"spec": map[string]interface{}{
			"clusterQueues": []interface{}{
				map[string]interface{}{
					"name": "alpha",
					"quota": map[string]interface{}{
						"cpu":            "2",
						"memory":         "1Gi",
						"nvidia.com/gpu": float64(4),
					},
				},
				map[string]interface{}{"quota": map[string]interface{}{"cpu": "1"}},
			},
		},
	}}

	got := quotasFromQueueConfig(obj)
	// The nameless entry is skipped.
	assert.Len(t, got, 1)
	assert.Equal(t, int64(2000), got[0].CpuMilli)
	assert.Equal(t, int64(1<<30), got[0].MemoryBytes)
	assert.Equal(t, int64(4), got[0].GpuCount)
}
