/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

var kaiwoQueueConfigGvr = schema.GroupVersionResource{
	Group:    v1.KaiwoGroup,
	Version:  v1.KaiwoVersion,
	Resource: "kaiwoqueueconfigs",
}

// Quota quantity keys inside a cluster queue. GPU capacity uses the vendor
// device plugin resource name.
const (
	quotaKeyCpu              = "cpu"
	quotaKeyMemory           = "memory"
	quotaKeyEphemeralStorage = "ephemeral-storage"
)

// applyQueueConfig replaces the spec of the singleton KaiwoQueueConfig with
// the allocation. The object is cluster scoped and always named "kaiwo"; the
// operator fans it out into Kueue queues and reflects the result in status.
func (d *Dispatcher) applyQueueConfig(ctx context.Context, msg *v1.ClusterQuotasAllocation) error {
	spec := queueConfigSpec(msg)
	client := d.clients.dynamic.Resource(kaiwoQueueConfigGvr)

	existing, err := client.Get(ctx, v1.KaiwoQueueConfigName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		obj := &unstructured.Unstructured{Object: map[string]interface{}{
			"apiVersion": v1.KaiwoGroup + "/" + v1.KaiwoVersion,
			"kind":       v1.KaiwoQueueConfigKind,
			"metadata":   map[string]interface{}{"name": v1.KaiwoQueueConfigName},
			"spec":       spec,
		}}
		_, err = client.Create(ctx, obj, metav1.CreateOptions{})
	} else if err == nil {
		existing.Object["spec"] = spec
		_, err = client.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		klog.ErrorS(err, "failed to apply queue config")
		return d.report(ctx, v1.NewClusterQuotasFailure(d.cfg.ClusterName, d.cfg.OrganizationName,
			err.Error(), time.Now().UTC()))
	}
	return nil
}

func queueConfigSpec(msg *v1.ClusterQuotasAllocation) map[string]interface{} {
	gpuResource := resourceAmdGpu
	if msg.GpuVendor == "nvidia" {
		gpuResource = resourceNvidiaGpu
	}
	queues := make([]interface{}, 0, len(msg.Quotas))
	for _, q := range msg.Quotas {
		quota := map[string]interface{}{
			quotaKeyCpu:              resource.NewMilliQuantity(q.CpuMilli, resource.DecimalSI).String(),
			quotaKeyMemory:           resource.NewQuantity(q.MemoryBytes, resource.BinarySI).String(),
			quotaKeyEphemeralStorage: resource.NewQuantity(q.EphemeralStorageBytes, resource.BinarySI).String(),
			gpuResource:              q.GpuCount,
		}
		namespaces := make([]interface{}, 0, len(q.Namespaces))
		for _, ns := range q.Namespaces {
			namespaces = append(namespaces, ns)
		}
		queues = append(queues, map[string]interface{}{
			"name":       q.Name,
			"namespaces": namespaces,
			"quota":      quota,
		})
	}
	classes := make([]interface{}, 0, len(msg.PriorityClasses))
	for _, pc := range msg.PriorityClasses {
		classes = append(classes, map[string]interface{}{"name": pc.Name, "value": int64(pc.Value)})
	}
	return map[string]interface{}{
		"clusterQueues":   queues,
		"priorityClasses": classes,
	}
}

// reportQueueConfigStatus translates a KaiwoQueueConfig the watcher observed
// into the quota feedback messages. READY echoes the applied layout back from
// the object spec; FAILED reports the allocation as a whole.
func (d *Dispatcher) reportQueueConfigStatus(ctx context.Context, obj *unstructured.Unstructured) error {
	status, _, _ := unstructured.NestedString(obj.Object, "status", "status")
	switch status {
	case string(v1.ComponentReady):
		quotas := quotasFromQueueConfig(obj)
		return d.report(ctx, v1.NewClusterQuotasStatus(d.cfg.ClusterName, d.cfg.OrganizationName,
			quotas, time.Now().UTC()))
	case string(v1.ComponentFailed):
		reason, _, _ := unstructured.NestedString(obj.Object, "status", "message")
		if reason == "" {
			reason = "queue config rejected by the operator"
		}
		return d.report(ctx, v1.NewClusterQuotasFailure(d.cfg.ClusterName, d.cfg.OrganizationName,
			reason, time.Now().UTC()))
	default:
		// PENDING and empty statuses carry no information worth forwarding.
		return nil
	}
}

// quotasFromQueueConfig parses the applied queue layout back out of the
// object spec, one entry per cluster queue including the catch-all.
func quotasFromQueueConfig(obj *unstructured.Unstructured) []v1.QueueQuota {
	queues, _, _ := unstructured.NestedSlice(obj.Object, "spec", "clusterQueues")
	out := make([]v1.QueueQuota, 0, len(queues))
	for _, raw := range queues {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _, _ := unstructured.NestedString(entry, "name")
		if name == "" {
			continue
		}
		q := v1.QueueQuota{Name: name}
		if namespaces, _, _ := unstructured.NestedStringSlice(entry, "namespaces"); len(namespaces) > 0 {
			q.Namespaces = namespaces
		}
		if quota, found, _ := unstructured.NestedMap(entry, "quota"); found {
			q.Resources = resourcesFromQuota(quota)
		}
		out = append(out, q)
	}
	return out
}

func resourcesFromQuota(quota map[string]interface{}) v1.Resources {
	res := v1.Resources{}
	if q, ok := parseQuantityValue(quota[quotaKeyCpu]); ok {
		res.CpuMilli = q.MilliValue()
	}
	if q, ok := parseQuantityValue(quota[quotaKeyMemory]); ok {
		res.MemoryBytes = q.Value()
	}
	if q, ok := parseQuantityValue(quota[quotaKeyEphemeralStorage]); ok {
		res.EphemeralStorageBytes = q.Value()
	}
	for _, key := range []string{resourceAmdGpu, resourceNvidiaGpu} {
		if q, ok := parseQuantityValue(quota[key]); ok {
			res.GpuCount = q.Value()
			break
		}
	}
	return res
}

// parseQuantityValue tolerates the shapes unstructured JSON produces for a
// quantity: strings, ints and floats.
func parseQuantityValue(raw interface{}) (resource.Quantity, bool) {
	switch val := raw.(type) {
	case string:
		q, err := resource.ParseQuantity(val)
		if err != nil {
			return resource.Quantity{}, false
		}
		return q, true
	case int64:
		return *resource.NewQuantity(val, resource.DecimalSI), true
	case float64:
		return *resource.NewQuantity(int64(val), resource.DecimalSI), true
	default:
		return resource.Quantity{}, false
	}
}
