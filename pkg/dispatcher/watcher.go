/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// watchTimeoutSeconds bounds each server-side watch so the loop re-lists and
// stamps health well inside the idle limit even on a quiet cluster.
const watchTimeoutSeconds = int64(240)

type componentWatch struct {
	gvk    schema.GroupVersionKind
	mapper statusMapper
}

// componentWatches lists every kind whose labeled instances become workload
// components. The mapper decides what each observation means.
var componentWatches = []componentWatch{
	{schema.GroupVersionKind{Group: "batch", Version: "v1", Kind: "Job"}, jobStatus},
	{schema.GroupVersionKind{Group: "batch", Version: "v1", Kind: "CronJob"}, addedOnlyStatus},
	{schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, deploymentStatus},
	{schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "StatefulSet"}, statefulSetStatus},
	{schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "DaemonSet"}, daemonSetStatus},
	{schema.GroupVersionKind{Group: "", Version: "v1", Kind: "Pod"}, podStatus},
	{schema.GroupVersionKind{Group: "", Version: "v1", Kind: "Service"}, serviceStatus},
	{schema.GroupVersionKind{Group: "", Version: "v1", Kind: "ConfigMap"}, addedOnlyStatus},
	{schema.GroupVersionKind{Group: "networking.k8s.io", Version: "v1", Kind: "Ingress"}, addedOnlyStatus},
	{schema.GroupVersionKind{Group: "gateway.networking.k8s.io", Version: "v1", Kind: "HTTPRoute"}, addedOnlyStatus},
	{schema.GroupVersionKind{Group: v1.KaiwoGroup, Version: v1.KaiwoVersion, Kind: v1.KaiwoJobKind}, crStatus},
	{schema.GroupVersionKind{Group: v1.KaiwoGroup, Version: v1.KaiwoVersion, Kind: v1.KaiwoServiceKind}, crStatus},
	{schema.GroupVersionKind{Group: v1.AimGroup, Version: v1.AimVersion, Kind: v1.AimServiceKind}, crStatus},
}

// deletableKinds are the kinds cascade delete sweeps. Pods are excluded: they
// die with their owners and deleting them directly just races the garbage
// collector.
var deletableKinds = func() []schema.GroupVersionKind {
	var kinds []schema.GroupVersionKind
	for _, w := range componentWatches {
		if w.gvk.Kind == "Pod" {
			continue
		}
		kinds = append(kinds, w.gvk)
	}
	return kinds
}()

var kaiwoQueueConfigGvk = schema.GroupVersionKind{
	Group:   v1.KaiwoGroup,
	Version: v1.KaiwoVersion,
	Kind:    v1.KaiwoQueueConfigKind,
}

var aimClusterModelGvk = schema.GroupVersionKind{
	Group:   v1.AimGroup,
	Version: v1.AimVersion,
	Kind:    v1.AimClusterModelKind,
}

// watcherNames lists every health-tracked watcher, the component kinds plus
// the two cluster-scoped CR watchers.
func watcherNames() []string {
	names := make([]string, 0, len(componentWatches)+2)
	for _, w := range componentWatches {
		names = append(names, w.gvk.Kind)
	}
	return append(names, kaiwoQueueConfigGvk.Kind, aimClusterModelGvk.Kind)
}

func (d *Dispatcher) startWatchers(ctx context.Context) {
	// Seed a start stamp for every watcher. One that never completes its
	// first list would otherwise be invisible to the idle gate.
	for _, name := range watcherNames() {
		d.health.Stamp(name)
	}
	for _, w := range componentWatches {
		go d.watchComponents(ctx, w)
	}
	go d.runWatch(ctx, kaiwoQueueConfigGvk, func(eventType watch.EventType, obj *unstructured.Unstructured) {
		if eventType == watch.Deleted {
			return
		}
		if err := d.reportQueueConfigStatus(ctx, obj); err != nil {
			klog.ErrorS(err, "failed to report queue config status")
		}
	})
	go d.runWatch(ctx, aimClusterModelGvk, func(eventType watch.EventType, obj *unstructured.Unstructured) {
		// Any catalog change triggers a full snapshot; the controller
		// reconciles by image reference.
		if err := d.reportAimModels(ctx); err != nil {
			klog.ErrorS(err, "failed to report aim models")
		}
	})
}

func (d *Dispatcher) watchComponents(ctx context.Context, w componentWatch) {
	announced := map[types.UID]bool{}
	d.runWatch(ctx, w.gvk, func(eventType watch.EventType, obj *unstructured.Unstructured) {
		d.handleComponentEvent(ctx, w, eventType, obj, announced)
	})
}

func (d *Dispatcher) handleComponentEvent(ctx context.Context, w componentWatch, eventType watch.EventType, obj *unstructured.Unstructured, announced map[types.UID]bool) {
	labels := obj.GetLabels()
	workloadId := labels[v1.WorkloadIdLabel]
	if workloadId == "" {
		return
	}
	now := time.Now().UTC()
	componentId := labels[v1.ComponentIdLabel]

	if obj.GetAnnotations()[v1.AutoDiscoveredAnnotation] == "true" && !announced[obj.GetUID()] {
		announced[obj.GetUID()] = true
		discovery := v1.NewAutoDiscoveredWorkloadComponent(workloadId, componentId,
			obj.GetKind(), obj.GetName(), obj.GetNamespace(), now)
		discovery.ProjectId = labels[v1.ProjectIdLabel]
		if err := d.report(ctx, discovery); err != nil {
			klog.ErrorS(err, "failed to announce auto-discovered component",
				"workload", workloadId, "kind", obj.GetKind(), "name", obj.GetName())
		}
	}

	update := &v1.WorkloadComponentStatusUpdate{
		TypeMeta:    v1.TypeMeta{MessageType: v1.TypeWorkloadComponentStatusUpdate},
		WorkloadId:  workloadId,
		ComponentId: componentId,
		ProjectId:   labels[v1.ProjectIdLabel],
		Kind:        obj.GetKind(),
		Name:        obj.GetName(),
		Namespace:   obj.GetNamespace(),
		UpdatedAt:   now,
	}
	if eventType == watch.Deleted {
		delete(announced, obj.GetUID())
		update.Status = v1.ComponentDeleted
	} else {
		update.Status, update.Reason = w.mapper(obj)
	}
	if err := d.report(ctx, update); err != nil {
		klog.ErrorS(err, "failed to report component status",
			"workload", workloadId, "kind", obj.GetKind(), "name", obj.GetName())
	}
}

// runWatch drives one list-then-watch loop until ctx is cancelled. The list
// replays current state through the handler so nothing observed while the
// dispatcher was down is lost. Failures back off exponentially; an expired
// resourceVersion restarts from a fresh list.
func (d *Dispatcher) runWatch(ctx context.Context, gvk schema.GroupVersionKind, handle func(watch.EventType, *unstructured.Unstructured)) {
	delay := backoff.NewExponentialBackOff()
	delay.InitialInterval = 5 * time.Second
	delay.MaxInterval = 2 * time.Minute
	delay.MaxElapsedTime = 0

	for ctx.Err() == nil {
		if err := d.watchOnce(ctx, gvk, handle); err != nil {
			if apierrors.IsNotFound(err) || meta.IsNoMatchError(err) {
				// CRD not installed. A valid steady state, not a stall.
				d.health.Stamp(gvk.Kind)
				klog.V(4).InfoS("kind not available, retrying", "kind", gvk.Kind)
			} else {
				klog.ErrorS(err, "watch failed", "kind", gvk.Kind)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay.NextBackOff()):
			}
			continue
		}
		delay.Reset()
	}
}

func (d *Dispatcher) watchOnce(ctx context.Context, gvk schema.GroupVersionKind, handle func(watch.EventType, *unstructured.Unstructured)) error {
	gvr, _, err := d.clients.resourceFor(gvk)
	if err != nil {
		return err
	}
	client := d.clients.dynamic.Resource(gvr)

	list, err := client.List(ctx, metav1.ListOptions{})
	if err != nil {
		return err
	}
	d.health.Stamp(gvk.Kind)
	for i := range list.Items {
		handle(watch.Added, &list.Items[i])
	}

	watcher, err := client.Watch(ctx, metav1.ListOptions{
		ResourceVersion: list.GetResourceVersion(),
		TimeoutSeconds:  ptr.To(watchTimeoutSeconds),
	})
	if err != nil {
		if apierrors.IsResourceExpired(err) || apierrors.IsGone(err) {
			// Stale version; the next list starts fresh.
			return nil
		}
		return err
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.ResultChan():
			if !ok {
				// Server closed the watch; re-list and resume.
				return nil
			}
			d.health.Stamp(gvk.Kind)
			switch event.Type {
			case watch.Added, watch.Modified, watch.Deleted:
				if obj, ok := event.Object.(*unstructured.Unstructured); ok {
					handle(event.Type, obj)
				}
			case watch.Error:
				return apierrors.FromObject(event.Object)
			}
		}
	}
}
