/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// applyProjectSecret materializes one rendered secret manifest in the project
// namespace. Create and update commands land here alike; an existing secret is
// overwritten so the newest payload always wins.
func (d *Dispatcher) applyProjectSecret(ctx context.Context, projectId, secretId, namespace, manifest string) error {
	secret, err := decodeSecretManifest(manifest)
	if err != nil {
		klog.ErrorS(err, "unusable secret manifest", "project", projectId, "secret", secretId)
		return d.report(ctx, v1.NewProjectSecretsStatus(projectId, secretId, namespace,
			v1.SyncFailed, err.Error(), time.Now().UTC()))
	}
	secret.Namespace = namespace
	if secret.Labels == nil {
		secret.Labels = map[string]string{}
	}
	secret.Labels[v1.ProjectSecretIdLabel] = secretId
	secret.Labels[v1.ProjectIdLabel] = projectId

	client := d.clients.kube.CoreV1().Secrets(namespace)
	_, err = client.Create(ctx, secret, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := client.Get(ctx, secret.Name, metav1.GetOptions{})
		if getErr != nil {
			err = getErr
		} else {
			secret.ResourceVersion = existing.ResourceVersion
			_, err = client.Update(ctx, secret, metav1.UpdateOptions{})
		}
	}
	if err != nil {
		klog.ErrorS(err, "failed to apply project secret",
			"project", projectId, "secret", secretId, "namespace", namespace)
		return d.report(ctx, v1.NewProjectSecretsStatus(projectId, secretId, namespace,
			v1.SyncFailed, err.Error(), time.Now().UTC()))
	}
	return d.report(ctx, v1.NewProjectSecretsStatus(projectId, secretId, namespace,
		v1.SyncSynced, "", time.Now().UTC()))
}

// deleteProjectSecret removes the secret by its assignment label. Nothing
// matching still reports Deleted so the controller can finish the unassign.
func (d *Dispatcher) deleteProjectSecret(ctx context.Context, msg *v1.ProjectSecretsDelete) error {
	client := d.clients.kube.CoreV1().Secrets(msg.Namespace)
	selector := v1.ProjectSecretIdLabel + "=" + msg.SecretId
	list, err := client.List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		klog.ErrorS(err, "failed to list project secrets",
			"secret", msg.SecretId, "namespace", msg.Namespace)
		return d.report(ctx, v1.NewProjectSecretsStatus(msg.ProjectId, msg.SecretId, msg.Namespace,
			v1.SyncDeleteFailed, err.Error(), time.Now().UTC()))
	}
	for i := range list.Items {
		name := list.Items[i].Name
		if err := client.Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			klog.ErrorS(err, "failed to delete project secret",
				"secret", msg.SecretId, "name", name, "namespace", msg.Namespace)
			return d.report(ctx, v1.NewProjectSecretsStatus(msg.ProjectId, msg.SecretId, msg.Namespace,
				v1.SyncDeleteFailed, err.Error(), time.Now().UTC()))
		}
	}
	return d.report(ctx, v1.NewProjectSecretsStatus(msg.ProjectId, msg.SecretId, msg.Namespace,
		v1.SyncDeleted, "", time.Now().UTC()))
}

func decodeSecretManifest(manifest string) (*corev1.Secret, error) {
	secret := &corev1.Secret{}
	if err := yaml.UnmarshalStrict([]byte(manifest), secret); err != nil {
		return nil, fmt.Errorf("invalid secret manifest: %w", err)
	}
	if secret.Name == "" {
		return nil, fmt.Errorf("secret manifest has no name")
	}
	if secret.Kind != "Secret" {
		return nil, fmt.Errorf("manifest kind %q is not a Secret", secret.Kind)
	}
	return secret, nil
}
