/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package status holds the pure rollup functions that fold many child
// statuses into one parent status plus a human reason. Nothing here performs
// I/O and every input combination maps to a value of the declared enum.
package status

import (
	"fmt"
	"strings"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// ResolveParent rolls the child sync statuses of a secret or storage into the
// parent's status. The parent's current status only matters for the Deleting
// branch; everything else is a function of the children alone.
func ResolveParent(parent v1.SyncStatus, children []v1.SyncStatus) (v1.SyncStatus, string) {
	counts := map[v1.SyncStatus]int{}
	for _, child := range children {
		counts[child]++
	}

	if parent == v1.SyncDeleting {
		switch {
		case len(children) == 0:
			return v1.SyncDeleted, "all assignments removed"
		case counts[v1.SyncDeleteFailed] > 0:
			return v1.SyncDeleteFailed, fmt.Sprintf("%d assignments failed to delete", counts[v1.SyncDeleteFailed])
		default:
			return v1.SyncDeleting, "waiting for assignments to be removed"
		}
	}

	switch {
	case len(children) == 0:
		return v1.SyncUnassigned, "not assigned to any project"
	case counts[v1.SyncDeleteFailed] > 0:
		return v1.SyncDeleteFailed, fmt.Sprintf("%d assignments failed to delete", counts[v1.SyncDeleteFailed])
	case counts[v1.SyncFailed] > 0:
		return v1.SyncFailed, fmt.Sprintf("%d assignments failed", counts[v1.SyncFailed])
	case counts[v1.SyncSyncedError] > 0 || counts[v1.SyncUnknown] > 0:
		return v1.SyncSyncedError, "some assignments are in error"
	case counts[v1.SyncSynced] == len(children):
		return v1.SyncSynced, ""
	case counts[v1.SyncDeleted] > 0:
		// A deleted child while the parent is alive means something removed
		// the cluster-side object behind our back.
		return v1.SyncSyncedError, "unexpected delete of an assignment"
	case counts[v1.SyncPending]+counts[v1.SyncDeleting] == len(children):
		return v1.SyncPending, "assignments are being synced"
	case counts[v1.SyncSynced] > 0:
		return v1.SyncPartiallySynced, fmt.Sprintf("%d of %d assignments synced", counts[v1.SyncSynced], len(children))
	default:
		return v1.SyncSyncedError, "assignments are in unknown states"
	}
}

// ResolveProject folds namespace and quota status into the project status.
// Priority order: Deleting sticks, any failed component fails the project,
// then both-ready, both-pending, mixed, and a terminal Failed fallback.
func ResolveProject(current v1.ProjectStatus,
	namespace v1.NamespaceStatus, namespaceReason string,
	quota v1.QuotaStatus, quotaReason string) (v1.ProjectStatus, string) {

	if current == v1.ProjectDeleting {
		return v1.ProjectDeleting, concatReasons(namespaceReason, quotaReason)
	}

	var failed []string
	if namespace == v1.NamespaceFailed || namespace == v1.NamespaceDeleteFailed {
		failed = append(failed, fmt.Sprintf("namespace: %s", orDefault(namespaceReason, string(namespace))))
	}
	if quota == v1.QuotaFailed {
		failed = append(failed, fmt.Sprintf("quota: %s", orDefault(quotaReason, string(quota))))
	}
	if len(failed) > 0 {
		return v1.ProjectFailed, strings.Join(failed, "; ")
	}

	namespaceReady := namespace == v1.NamespaceActive
	quotaReady := quota == v1.QuotaReady
	namespacePending := namespace == v1.NamespacePending
	quotaPending := quota == v1.QuotaPending

	switch {
	case namespaceReady && quotaReady:
		return v1.ProjectReady, ""
	case namespacePending && quotaPending:
		return v1.ProjectPending, concatReasons(namespaceReason, quotaReason)
	case (namespaceReady && quotaPending) || (namespacePending && quotaReady):
		return v1.ProjectPartiallyReady, concatReasons(namespaceReason, quotaReason)
	default:
		return v1.ProjectFailed, fmt.Sprintf("unexpected component states: namespace=%s quota=%s", namespace, quota)
	}
}

// ResolveWorkload folds component statuses into the workload status. The
// Deleting branch mirrors ResolveParent: the workload only advances to
// Deleted once every component confirmed its removal.
func ResolveWorkload(current v1.WorkloadStatus, components []v1.ComponentStatus) (v1.WorkloadStatus, string) {
	counts := map[v1.ComponentStatus]int{}
	for _, component := range components {
		counts[component]++
	}

	if current == v1.WorkloadDeleting {
		if len(components) == 0 || counts[v1.ComponentDeleted] == len(components) {
			return v1.WorkloadDeleted, "all components removed"
		}
		return v1.WorkloadDeleting, "waiting for components to be removed"
	}

	switch {
	case len(components) == 0:
		return v1.WorkloadPending, "no components reported yet"
	case counts[v1.ComponentCreateFailed] > 0:
		return v1.WorkloadCreateFailed, fmt.Sprintf("%d components failed to create", counts[v1.ComponentCreateFailed])
	case counts[v1.ComponentFailed] > 0:
		return v1.WorkloadFailed, fmt.Sprintf("%d components failed", counts[v1.ComponentFailed])
	case counts[v1.ComponentDeleted] > 0:
		return v1.WorkloadFailed, "unexpected delete of a component"
	case counts[v1.ComponentComplete] > 0 &&
		counts[v1.ComponentComplete]+counts[v1.ComponentReady]+counts[v1.ComponentAdded] == len(components):
		return v1.WorkloadComplete, ""
	case counts[v1.ComponentRunning] > 0 &&
		counts[v1.ComponentRunning]+counts[v1.ComponentComplete]+counts[v1.ComponentReady]+counts[v1.ComponentAdded] == len(components):
		return v1.WorkloadRunning, ""
	default:
		return v1.WorkloadPending, "components are starting"
	}
}

// ResolveProjectStorage computes the composite status of a storage bound to a
// project from its ConfigMap status and the linked project-secret assignment
// status.
func ResolveProjectStorage(configmap v1.ComponentStatus, secret v1.SyncStatus) (v1.SyncStatus, string) {
	if configmap == v1.ComponentCreateFailed || configmap == v1.ComponentFailed || secret == v1.SyncFailed {
		return v1.SyncFailed, "storage configmap or credential secret failed"
	}
	switch {
	case configmap == v1.ComponentAdded && secret == v1.SyncSynced:
		return v1.SyncSynced, ""
	case configmap == v1.ComponentAdded && secret == v1.SyncPending:
		return v1.SyncPending, "waiting for credential secret"
	case configmap == v1.ComponentDeleted && secret == v1.SyncSynced,
		configmap == v1.ComponentAdded && secret == v1.SyncDeleted,
		configmap == v1.ComponentAdded && secret == v1.SyncSyncedError:
		return v1.SyncSyncedError, fmt.Sprintf("inconsistent storage state: configmap=%s secret=%s", configmap, secret)
	default:
		return v1.SyncFailed, fmt.Sprintf("unexpected storage state: configmap=%s secret=%s", configmap, secret)
	}
}

func concatReasons(reasons ...string) string {
	var parts []string
	for _, reason := range reasons {
		if reason != "" {
			parts = append(parts, reason)
		}
	}
	return strings.Join(parts, "; ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
