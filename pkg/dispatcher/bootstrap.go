/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// GPU accounting follows the device plugin conventions of both vendors.
const (
	resourceAmdGpu    = "amd.com/gpu"
	resourceNvidiaGpu = "nvidia.com/gpu"

	labelAmdGpuProduct = "amd.com/gpu.product-name"
	labelAmdGpuFamily  = "amd.com/gpu.family"
	labelAmdGpuVram    = "amd.com/gpu.vram"

	labelNvidiaGpuProduct = "nvidia.com/gpu.product"
	labelNvidiaGpuFamily  = "nvidia.com/gpu.family"
	labelNvidiaGpuMemory  = "nvidia.com/gpu.memory"
)

var aimClusterModelGvr = schema.GroupVersionResource{
	Group:    v1.AimGroup,
	Version:  v1.AimVersion,
	Resource: "aimclustermodels",
}

func (d *Dispatcher) reportHeartbeat(ctx context.Context) error {
	return d.report(ctx, v1.NewHeartbeat(d.cfg.ClusterName, d.cfg.OrganizationName, time.Now().UTC()))
}

// reportClusterNodes snapshots the full node inventory. The controller
// replaces, never merges, so the snapshot must be complete.
func (d *Dispatcher) reportClusterNodes(ctx context.Context) error {
	list, err := d.clients.kube.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	nodes := make([]v1.NodeInfo, 0, len(list.Items))
	for i := range list.Items {
		nodes = append(nodes, nodeInfo(&list.Items[i], now))
	}
	return d.report(ctx, v1.NewClusterNodes(d.cfg.ClusterName, d.cfg.OrganizationName, nodes, now))
}

func nodeInfo(node *corev1.Node, at time.Time) v1.NodeInfo {
	info := v1.NodeInfo{
		Name: node.Name,
		Resources: v1.Resources{
			CpuMilli:              node.Status.Allocatable.Cpu().MilliValue(),
			MemoryBytes:           node.Status.Allocatable.Memory().Value(),
			EphemeralStorageBytes: node.Status.Allocatable.StorageEphemeral().Value(),
		},
		UpdatedAt: at,
	}
	info.IsReady, info.Status = nodeReadiness(node)
	if gpus, ok := node.Status.Allocatable[resourceAmdGpu]; ok && !gpus.IsZero() {
		info.GpuCount = gpus.Value()
		info.Gpu = gpuInfo("amd", node.Labels, labelAmdGpuProduct, labelAmdGpuFamily, labelAmdGpuVram)
	} else if gpus, ok := node.Status.Allocatable[resourceNvidiaGpu]; ok && !gpus.IsZero() {
		info.GpuCount = gpus.Value()
		info.Gpu = gpuInfo("nvidia", node.Labels, labelNvidiaGpuProduct, labelNvidiaGpuFamily, labelNvidiaGpuMemory)
	}
	return info
}

func nodeReadiness(node *corev1.Node) (bool, string) {
	for _, cond := range node.Status.Conditions {
		if cond.Type != corev1.NodeReady {
			continue
		}
		if cond.Status == corev1.ConditionTrue {
			return true, string(corev1.NodeReady)
		}
		if cond.Reason != "" {
			return false, cond.Reason
		}
		return false, "NotReady"
	}
	return false, "Unknown"
}

func gpuInfo(vendor string, labels map[string]string, productLabel, familyLabel, vramLabel string) v1.GpuInfo {
	return v1.GpuInfo{
		Vendor:          vendor,
		Type:            labels[familyLabel],
		Product:         labels[productLabel],
		VramPerGpuBytes: parseVram(labels[vramLabel]),
	}
}

// parseVram tolerates both quantity strings ("192Gi") and bare MiB integers,
// which is what the nvidia plugin stamps.
func parseVram(raw string) int64 {
	if raw == "" {
		return 0
	}
	if q, err := resource.ParseQuantity(raw); err == nil {
		if q.Value() < 1<<20 {
			// Bare number: MiB by convention.
			return q.Value() << 20
		}
		return q.Value()
	}
	return 0
}

// reportAimModels snapshots the AIM catalog. The controller reconciles by
// image reference and marks absent entries deleted.
func (d *Dispatcher) reportAimModels(ctx context.Context) error {
	list, err := d.clients.dynamic.Resource(aimClusterModelGvr).List(ctx, metav1.ListOptions{})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	models := make([]v1.AimModelInfo, 0, len(list.Items))
	for i := range list.Items {
		models = append(models, aimModelInfo(&list.Items[i]))
	}
	return d.report(ctx, v1.NewAimClusterModels(d.cfg.ClusterName, d.cfg.OrganizationName, models, now))
}

func aimModelInfo(obj *unstructured.Unstructured) v1.AimModelInfo {
	image, _, _ := unstructured.NestedString(obj.Object, "spec", "imageReference")
	if image == "" {
		image, _, _ = unstructured.NestedString(obj.Object, "spec", "image")
	}
	status, _, _ := unstructured.NestedString(obj.Object, "status", "status")
	return v1.AimModelInfo{
		ResourceName:   obj.GetName(),
		ImageReference: image,
		Status:         status,
		Labels:         obj.GetLabels(),
	}
}
