/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

// ClusterStatus is derived from heartbeat recency, never stored.
type ClusterStatus string

const (
	// ClusterVerifying means no heartbeat has ever been received.
	ClusterVerifying ClusterStatus = "VERIFYING"
	ClusterHealthy   ClusterStatus = "HEALTHY"
	ClusterUnhealthy ClusterStatus = "UNHEALTHY"
)

// SyncStatus is the lifecycle of anything the controller pushes to a cluster
// and waits on: quota assignments, namespaces, secret and storage assignments.
// The parent-level values Unassigned and PartiallySynced only appear in
// resolved composites, never on a single assignment row.
type SyncStatus string

const (
	SyncPending      SyncStatus = "Pending"
	SyncSynced       SyncStatus = "Synced"
	SyncSyncedError  SyncStatus = "SyncedError"
	SyncFailed       SyncStatus = "Failed"
	SyncDeleting     SyncStatus = "Deleting"
	SyncDeleted      SyncStatus = "Deleted"
	SyncDeleteFailed SyncStatus = "DeleteFailed"
	SyncUnknown      SyncStatus = "Unknown"

	SyncUnassigned      SyncStatus = "Unassigned"
	SyncPartiallySynced SyncStatus = "PartiallySynced"
)

// ProjectStatus is rolled up from the project's quota assignments.
type ProjectStatus string

const (
	ProjectPending        ProjectStatus = "Pending"
	ProjectReady          ProjectStatus = "Ready"
	ProjectPartiallyReady ProjectStatus = "PartiallyReady"
	ProjectFailed         ProjectStatus = "Failed"
	ProjectDeleting       ProjectStatus = "Deleting"
)

// QuotaStatus is the per-assignment quota lifecycle reported back by clusters.
type QuotaStatus string

const (
	QuotaPending  QuotaStatus = "Pending"
	QuotaReady    QuotaStatus = "Ready"
	QuotaFailed   QuotaStatus = "Failed"
	QuotaDeleting QuotaStatus = "Deleting"
	QuotaDeleted  QuotaStatus = "Deleted"
)

// NamespaceStatus mirrors the Kubernetes namespace phase plus the transitions
// the dispatcher reports while creating or tearing one down.
type NamespaceStatus string

const (
	NamespacePending      NamespaceStatus = "Pending"
	NamespaceActive       NamespaceStatus = "Active"
	NamespaceTerminating  NamespaceStatus = "Terminating"
	NamespaceDeleted      NamespaceStatus = "Deleted"
	NamespaceFailed       NamespaceStatus = "Failed"
	NamespaceDeleteFailed NamespaceStatus = "DeleteFailed"
)

// ComponentStatus is what per-kind watchers report for a single workload
// component. Kind-specific mappers produce the upper-cased values; CreateFailed
// and Deleted are synthesized by the dispatcher itself.
type ComponentStatus string

const (
	ComponentPending      ComponentStatus = "PENDING"
	ComponentRunning      ComponentStatus = "RUNNING"
	ComponentComplete     ComponentStatus = "COMPLETE"
	ComponentFailed       ComponentStatus = "FAILED"
	ComponentSuspended    ComponentStatus = "SUSPENDED"
	ComponentReady        ComponentStatus = "READY"
	ComponentInvalid      ComponentStatus = "INVALID"
	ComponentAdded        ComponentStatus = "ADDED"
	ComponentCreateFailed ComponentStatus = "CreateFailed"
	ComponentDeleted      ComponentStatus = "Deleted"
	ComponentUnknown      ComponentStatus = "Unknown"
)

// KnownComponentStatus reports whether the value belongs to the component
// vocabulary. Operator CRs publish free-form strings; anything outside the
// enum must degrade to Unknown instead of being stored verbatim.
func KnownComponentStatus(status ComponentStatus) bool {
	switch status {
	case ComponentPending, ComponentRunning, ComponentComplete, ComponentFailed,
		ComponentSuspended, ComponentReady, ComponentInvalid, ComponentAdded,
		ComponentCreateFailed, ComponentDeleted, ComponentUnknown:
		return true
	}
	return false
}

// WorkloadStatus is rolled up from component statuses.
type WorkloadStatus string

const (
	WorkloadPending      WorkloadStatus = "Pending"
	WorkloadRunning      WorkloadStatus = "Running"
	WorkloadComplete     WorkloadStatus = "Complete"
	WorkloadFailed       WorkloadStatus = "Failed"
	WorkloadCreateFailed WorkloadStatus = "CreateFailed"
	WorkloadDeleting     WorkloadStatus = "Deleting"
	WorkloadDeleted      WorkloadStatus = "Deleted"
)

// AimStatusDeleted marks catalog entries that disappeared from a bulk refresh.
// Rows are never hard-deleted so historical references stay resolvable.
const AimStatusDeleted = "DELETED"

// Secret classification. Scope decides ownership and fan-out; kind decides
// whether the payload materializes as a Kubernetes secret or stays a
// reference to an external store.
const (
	SecretScopeOrganization = "Organization"
	SecretScopeProject      = "Project"

	SecretKindExternal   = "External"
	SecretKindKubernetes = "KubernetesSecret"

	// SecretUseCaseHuggingFace triggers the use-case label on the shipped
	// manifest so in-cluster tooling can mount the token.
	SecretUseCaseHuggingFace = "HUGGING_FACE"
)

// SecretType discriminates the manifest shape rendered for a project secret.
type SecretType string

const (
	SecretTypeGeneric        SecretType = "generic"
	SecretTypeDockerRegistry SecretType = "docker_registry"
	SecretTypeHuggingFace    SecretType = "hugging_face"
)
