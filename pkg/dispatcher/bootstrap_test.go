/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func gpuNode() *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: "node-1",
			Labels: map[string]string{
				labelAmdGpuProduct: "Instinct MI300X",
				labelAmdGpuFamily:  "AI",
				labelAmdGpuVram:    "192Gi",
			},
		},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:              resource.MustParse("96"),
				corev1.ResourceMemory:           resource.MustParse("1024Gi"),
				corev1.ResourceEphemeralStorage: resource.MustParse("2Ti"),
				resourceAmdGpu:                  resource.MustParse("8"),
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func TestNodeInfo(t *testing.T) {
	at := time.Now().UTC()
	info := nodeInfo(gpuNode(), at)

	assert.Equal(t, "node-1", info.Name)
	assert.True(t, info.IsReady)
	assert.Equal(t, "Ready", info.Status)
	assert.Equal(t, int64(96000), info.CpuMilli)
	assert.Equal(t, int64(1024<<30), info.MemoryBytes)
	assert.Equal(t, int64(2<<40), info.EphemeralStorageBytes)
	assert.Equal(t, int64(8), info.GpuCount)
	assert.Equal(t, "amd", info.Gpu.Vendor)
	assert.Equal(t, "Instinct MI300X", info.Gpu.Product)
	assert.Equal(t, int64(192<<30), info.Gpu.VramPerGpuBytes)
}

func TestNodeInfoNvidia(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: "node-2",
			Labels: map[string]string{
				labelNvidiaGpuProduct: "H100-SXM5",
				labelNvidiaGpuMemory:  "81920",
			},
		},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				resourceNvidiaGpu: resource.MustParse("4"),
			},
		},
	}
	info := nodeInfo(node, time.Now())
	assert.Equal(t, int64(4), info.GpuCount)
	assert.Equal(t, "nvidia", info.Gpu.Vendor)
	assert.Equal(t, int64(81920<<20), info.Gpu.VramPerGpuBytes)
}

func TestNodeInfoCpuOnly(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-3"},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU: resource.MustParse("8"),
			},
		},
	}
	info := nodeInfo(node, time.Now())
	assert.Equal(t, int64(0), info.GpuCount)
	assert.Empty(t, info.Gpu.Vendor)
}

func TestNodeReadiness(t *testing.T) {
	notReady := gpuNode()
	notReady.Status.Conditions = []corev1.NodeCondition{
		{Type: corev1.NodeReady, Status: corev1.ConditionFalse, Reason: "KubeletNotReady"},
	}
	ready, status := nodeReadiness(notReady)
	assert.False(t, ready)
	assert.Equal(t, "KubeletNotReady", status)

	unknown := gpuNode()
	unknown.Status.Conditions = nil
	ready, status = nodeReadiness(unknown)
	assert.False(t, ready)
	assert.Equal(t, "Unknown", status)
}

func TestAimModelInfo(t *testing.T) {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"metadata": map[string]interface{}{
			"name":   "llama-70b",
			"labels": map[string]interface{}{"tier": "premium"},
		},
		"spec":   map[string]interface{}{"imageReference": "registry.example.com/aim/llama:70b"},
		"status": map[string]interface{}{"status": "READY"},
	}}
	info := aimModelInfo(obj)
	assert.Equal(t, "llama-70b", info.ResourceName)
	assert.Equal(t, "registry.example.com/aim/llama:70b", info.ImageReference)
	assert.Equal(t, "READY", info.Status)
	assert.Equal(t, "premium", info.Labels["tier"])

	legacy := &unstructured.Unstructured{Object: map[string]interface{}{
		"metadata": map[string]interface{}{"name": "old-model"},
		"spec":     map[string]interface{}{"image": "registry.example.com/aim/old:1"},
	}}
	info = aimModelInfo(legacy)
	assert.Equal(t, "registry.example.com/aim/old:1", info.ImageReference)
	assert.Empty(t, info.Status)
}
