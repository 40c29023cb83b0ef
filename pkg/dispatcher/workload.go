/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// applyWorkload creates every document of the bundle. Identity is recovered
// from the labels the controller rendered in; a per-manifest failure reports
// CreateFailed for that component and moves on.
func (d *Dispatcher) applyWorkload(ctx context.Context, msg *v1.WorkloadCreate) error {
	objs, err := splitManifests(msg.Manifests)
	if err != nil {
		klog.ErrorS(err, "unusable workload bundle", "workload", msg.WorkloadId)
		return d.report(ctx, v1.NewWorkloadStatusUpdate(msg.WorkloadId, v1.WorkloadCreateFailed, err.Error(), time.Now().UTC()))
	}
	for _, obj := range objs {
		if obj.GetNamespace() == "" {
			obj.SetNamespace(msg.Namespace)
		}
		if err := d.createObject(ctx, obj); err != nil {
			d.reportCreateFailed(ctx, msg, obj, err)
		}
	}
	return nil
}

func (d *Dispatcher) createObject(ctx context.Context, obj *unstructured.Unstructured) error {
	gvr, namespaced, err := d.clients.resourceFor(obj.GroupVersionKind())
	if err != nil {
		return err
	}
	client := d.clients.dynamic.Resource(gvr)
	if namespaced {
		_, err = client.Namespace(obj.GetNamespace()).Create(ctx, obj, metav1.CreateOptions{})
	} else {
		_, err = client.Create(ctx, obj, metav1.CreateOptions{})
	}
	if apierrors.IsAlreadyExists(err) {
		// Redelivery of the same bundle; the watcher reports real status.
		return nil
	}
	return err
}

func (d *Dispatcher) reportCreateFailed(ctx context.Context, msg *v1.WorkloadCreate, obj *unstructured.Unstructured, cause error) {
	labels := obj.GetLabels()
	update := &v1.WorkloadComponentStatusUpdate{
		TypeMeta:    v1.TypeMeta{MessageType: v1.TypeWorkloadComponentStatusUpdate},
		WorkloadId:  labels[v1.WorkloadIdLabel],
		ComponentId: labels[v1.ComponentIdLabel],
		ProjectId:   labels[v1.ProjectIdLabel],
		Kind:        obj.GetKind(),
		Name:        obj.GetName(),
		Namespace:   obj.GetNamespace(),
		Status:      v1.ComponentCreateFailed,
		Reason:      cause.Error(),
		UpdatedAt:   time.Now().UTC(),
	}
	if update.WorkloadId == "" {
		update.WorkloadId = msg.WorkloadId
	}
	klog.ErrorS(cause, "failed to create workload component",
		"workload", update.WorkloadId, "kind", obj.GetKind(), "name", obj.GetName())
	if err := d.report(ctx, update); err != nil {
		klog.ErrorS(err, "failed to report create failure", "workload", update.WorkloadId)
	}
}

// deleteWorkload cascade-deletes everything labeled with the workload id. A
// delete that matches nothing reports a synthetic Deleted so the controller
// can advance.
func (d *Dispatcher) deleteWorkload(ctx context.Context, msg *v1.DeleteWorkload) error {
	selector := v1.WorkloadIdLabel + "=" + msg.WorkloadId
	matched, err := d.cascadeDelete(ctx, msg.Namespace, selector)
	if err != nil {
		return err
	}
	if matched == 0 {
		return d.report(ctx, v1.NewWorkloadStatusUpdate(msg.WorkloadId, v1.WorkloadDeleted,
			"no resources matched", time.Now().UTC()))
	}
	return nil
}

// cascadeDelete foreground-deletes every watched namespaced kind matching the
// selector and returns how many objects it hit. Kinds missing from the
// cluster (uninstalled CRDs) are skipped.
func (d *Dispatcher) cascadeDelete(ctx context.Context, namespace, selector string) (int, error) {
	propagation := metav1.DeletePropagationForeground
	deleteOpts := metav1.DeleteOptions{PropagationPolicy: &propagation}
	listOpts := metav1.ListOptions{LabelSelector: selector}

	matched := 0
	for _, kind := range deletableKinds {
		gvr, namespaced, err := d.clients.resourceFor(kind)
		if err != nil || !namespaced {
			continue
		}
		client := d.clients.dynamic.Resource(gvr).Namespace(namespace)
		list, err := client.List(ctx, listOpts)
		if err != nil {
			if apierrors.IsNotFound(err) {
				continue
			}
			return matched, err
		}
		for i := range list.Items {
			name := list.Items[i].GetName()
			if err := client.Delete(ctx, name, deleteOpts); err != nil && !apierrors.IsNotFound(err) {
				return matched, err
			}
			matched++
		}
	}
	return matched, nil
}
