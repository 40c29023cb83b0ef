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
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

const (
	namespaceDeletePollInterval = 5 * time.Second
	namespaceDeleteTimeout      = 10 * time.Minute
)

// createNamespace materializes the project namespace with its identity
// labels. An existing namespace counts as success; the controller tolerates
// redelivery.
func (d *Dispatcher) createNamespace(ctx context.Context, msg *v1.ProjectNamespaceCreate) error {
	labels := map[string]string{
		v1.ProjectIdLabel:    msg.ProjectId,
		v1.QueueManagedLabel: "true",
	}
	for k, v := range msg.Labels {
		labels[k] = v
	}
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: msg.Name, Labels: labels},
	}
	_, err := d.clients.kube.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		klog.ErrorS(err, "failed to create namespace", "namespace", msg.Name)
		return d.report(ctx, v1.NewProjectNamespaceStatus(msg.ProjectId, msg.Name,
			v1.NamespaceFailed, err.Error(), time.Now().UTC()))
	}
	return d.report(ctx, v1.NewProjectNamespaceStatus(msg.ProjectId, msg.Name,
		v1.NamespaceActive, "", time.Now().UTC()))
}

// deleteNamespace tears the namespace down and confirms Deleted once it is
// gone. Termination is reported immediately so the controller sees progress.
func (d *Dispatcher) deleteNamespace(ctx context.Context, msg *v1.ProjectNamespaceDelete) error {
	err := d.clients.kube.CoreV1().Namespaces().Delete(ctx, msg.Name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return d.report(ctx, v1.NewProjectNamespaceStatus(msg.ProjectId, msg.Name,
			v1.NamespaceDeleted, "", time.Now().UTC()))
	}
	if err != nil {
		klog.ErrorS(err, "failed to delete namespace", "namespace", msg.Name)
		return d.report(ctx, v1.NewProjectNamespaceStatus(msg.ProjectId, msg.Name,
			v1.NamespaceDeleteFailed, err.Error(), time.Now().UTC()))
	}
	if err := d.report(ctx, v1.NewProjectNamespaceStatus(msg.ProjectId, msg.Name,
		v1.NamespaceTerminating, "", time.Now().UTC())); err != nil {
		return err
	}
	go d.confirmNamespaceGone(ctx, msg.ProjectId, msg.Name)
	return nil
}

// confirmNamespaceGone polls until the namespace disappears, then reports
// Deleted. A timeout reports DeleteFailed so the project does not hang in
// Deleting forever.
func (d *Dispatcher) confirmNamespaceGone(ctx context.Context, projectId, name string) {
	err := wait.PollUntilContextTimeout(ctx, namespaceDeletePollInterval, namespaceDeleteTimeout, true,
		func(ctx context.Context) (bool, error) {
			_, err := d.clients.kube.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			return false, nil
		})
	status, reason := v1.NamespaceDeleted, ""
	if err != nil {
		status, reason = v1.NamespaceDeleteFailed, "namespace did not terminate in time"
	}
	if reportErr := d.report(ctx, v1.NewProjectNamespaceStatus(projectId, name,
		status, reason, time.Now().UTC())); reportErr != nil {
		klog.ErrorS(reportErr, "failed to report namespace deletion", "namespace", name)
	}
}
