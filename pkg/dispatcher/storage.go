/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// Storage ConfigMap data keys. Workload charts mount these to discover the
// bucket and the credential secret.
const (
	storageKeyBucketUrl      = "bucket_url"
	storageKeySecretName     = "secret_name"
	storageKeyAccessKeyField = "access_key_field"
	storageKeySecretKeyField = "secret_key_field"
)

// applyStorageConfigmap materializes the storage binding ConfigMap in the
// project namespace. Create and update commands land here alike.
func (d *Dispatcher) applyStorageConfigmap(ctx context.Context, projectId, storageId, namespace, name string, spec v1.StorageSpec) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels: map[string]string{
				v1.ProjectStorageIdLabel: storageId,
				v1.ProjectIdLabel:        projectId,
			},
		},
		Data: map[string]string{
			storageKeyBucketUrl:      spec.BucketUrl,
			storageKeySecretName:     spec.SecretName,
			storageKeyAccessKeyField: spec.AccessKeyField,
			storageKeySecretKeyField: spec.SecretKeyField,
		},
	}

	client := d.clients.kube.CoreV1().ConfigMaps(namespace)
	_, err := client.Create(ctx, cm, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := client.Get(ctx, name, metav1.GetOptions{})
		if getErr != nil {
			err = getErr
		} else {
			cm.ResourceVersion = existing.ResourceVersion
			_, err = client.Update(ctx, cm, metav1.UpdateOptions{})
		}
	}
	if err != nil {
		klog.ErrorS(err, "failed to apply storage configmap",
			"project", projectId, "storage", storageId, "namespace", namespace)
		return d.report(ctx, v1.NewProjectStorageStatus(projectId, storageId, namespace,
			v1.SyncFailed, err.Error(), time.Now().UTC()))
	}
	return d.report(ctx, v1.NewProjectStorageStatus(projectId, storageId, namespace,
		v1.SyncSynced, "", time.Now().UTC()))
}

// deleteStorageConfigmap removes the binding by its assignment label. Nothing
// matching still reports Deleted so the controller can finish the unassign.
func (d *Dispatcher) deleteStorageConfigmap(ctx context.Context, msg *v1.ProjectStorageDelete) error {
	client := d.clients.kube.CoreV1().ConfigMaps(msg.Namespace)
	selector := v1.ProjectStorageIdLabel + "=" + msg.StorageId
	list, err := client.List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		klog.ErrorS(err, "failed to list storage configmaps",
			"storage", msg.StorageId, "namespace", msg.Namespace)
		return d.report(ctx, v1.NewProjectStorageStatus(msg.ProjectId, msg.StorageId, msg.Namespace,
			v1.SyncDeleteFailed, err.Error(), time.Now().UTC()))
	}
	for i := range list.Items {
		name := list.Items[i].Name
		if err := client.Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			klog.ErrorS(err, "failed to delete storage configmap",
				"storage", msg.StorageId, "name", name, "namespace", msg.Namespace)
			return d.report(ctx, v1.NewProjectStorageStatus(msg.ProjectId, msg.StorageId, msg.Namespace,
				v1.SyncDeleteFailed, err.Error(), time.Now().UTC()))
		}
	}
	return d.report(ctx, v1.NewProjectStorageStatus(msg.ProjectId, msg.StorageId, msg.Namespace,
		v1.SyncDeleted, "", time.Now().UTC()))
}
