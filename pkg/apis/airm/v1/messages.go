/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import "time"

// MessageType discriminates bus payloads. Every message carries it in the
// message_type field; consumers reject unknown values instead of guessing.
type MessageType string

const (
	// Dispatcher to controller.
	TypeHeartbeat                       MessageType = "heartbeat"
	TypeClusterNodes                    MessageType = "cluster_nodes"
	TypeClusterQuotasStatus             MessageType = "cluster_quotas_status"
	TypeClusterQuotasFailure            MessageType = "cluster_quotas_failure"
	TypeProjectNamespaceStatus          MessageType = "project_namespace_status"
	TypeProjectSecretsStatus            MessageType = "project_secrets_status"
	TypeProjectStorageStatus            MessageType = "project_storage_status"
	TypeWorkloadStatusUpdate            MessageType = "workload_status_update"
	TypeWorkloadComponentStatusUpdate   MessageType = "workload_component_status_update"
	TypeAutoDiscoveredWorkloadComponent MessageType = "auto_discovered_workload_component"
	TypeAimClusterModels                MessageType = "aim_cluster_models"

	// Controller to dispatcher.
	TypeClusterQuotasAllocation MessageType = "cluster_quotas_allocation"
	TypeProjectNamespaceCreate  MessageType = "project_namespace_create"
	TypeProjectNamespaceDelete  MessageType = "project_namespace_delete"
	TypeProjectSecretsCreate    MessageType = "project_secrets_create"
	TypeProjectSecretsUpdate    MessageType = "project_secrets_update"
	TypeProjectSecretsDelete    MessageType = "project_secrets_delete"
	TypeProjectS3StorageCreate  MessageType = "project_s3_storage_create"
	TypeProjectStorageUpdate    MessageType = "project_storage_update"
	TypeProjectStorageDelete    MessageType = "project_storage_delete"
	TypeWorkloadCreate          MessageType = "workload_create"
	TypeDeleteWorkload          MessageType = "delete_workload"
)

// Message is any bus payload. The concrete type is recovered from the
// message_type discriminator by the messaging codec.
type Message interface {
	GetMessageType() MessageType
}

// TypeMeta carries the wire discriminator. Constructors in this package set
// it; hand-built literals must fill it or the codec refuses to encode.
type TypeMeta struct {
	MessageType MessageType `json:"message_type"`
}

func (t TypeMeta) GetMessageType() MessageType { return t.MessageType }

// ---------------------------------------------------------------------------
// Dispatcher to controller
// ---------------------------------------------------------------------------

// Heartbeat announces dispatcher liveness. ClusterName and OrganizationName
// identify the sender; the controller matches them against its inventory and
// adopts the cluster name on first contact when the organization matches.
type Heartbeat struct {
	TypeMeta         `json:",inline"`
	ClusterName      string    `json:"cluster_name"`
	OrganizationName string    `json:"organization_name"`
	LastHeartbeatAt  time.Time `json:"last_heartbeat_at"`
}

func NewHeartbeat(cluster, org string, at time.Time) *Heartbeat {
	return &Heartbeat{TypeMeta: TypeMeta{TypeHeartbeat}, ClusterName: cluster, OrganizationName: org, LastHeartbeatAt: at}
}

// NodeInfo is one node row in a cluster_nodes snapshot.
type NodeInfo struct {
	Name      string    `json:"name"`
	Resources `json:",inline"`
	Gpu       GpuInfo   `json:"gpu"`
	IsReady   bool      `json:"is_ready"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClusterNodes is the full node inventory of one cluster. Consumers replace,
// never merge: nodes absent from the snapshot are deleted.
type ClusterNodes struct {
	TypeMeta         `json:",inline"`
	ClusterName      string     `json:"cluster_name"`
	OrganizationName string     `json:"organization_name"`
	Nodes            []NodeInfo `json:"nodes"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func NewClusterNodes(cluster, org string, nodes []NodeInfo, at time.Time) *ClusterNodes {
	return &ClusterNodes{TypeMeta: TypeMeta{TypeClusterNodes}, ClusterName: cluster, OrganizationName: org, Nodes: nodes, UpdatedAt: at}
}

// ClusterQuotasStatus echoes the queue layout actually applied on a cluster,
// one entry per queue including the catch-all. The controller diff-matches it
// against configured quotas by name.
type ClusterQuotasStatus struct {
	TypeMeta         `json:",inline"`
	ClusterName      string       `json:"cluster_name"`
	OrganizationName string       `json:"organization_name"`
	Quotas           []QueueQuota `json:"quotas"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func NewClusterQuotasStatus(cluster, org string, quotas []QueueQuota, at time.Time) *ClusterQuotasStatus {
	return &ClusterQuotasStatus{TypeMeta: TypeMeta{TypeClusterQuotasStatus}, ClusterName: cluster, OrganizationName: org, Quotas: quotas, UpdatedAt: at}
}

// ClusterQuotasFailure reports that an allocation could not be applied at all.
type ClusterQuotasFailure struct {
	TypeMeta         `json:",inline"`
	ClusterName      string    `json:"cluster_name"`
	OrganizationName string    `json:"organization_name"`
	Reason           string    `json:"reason"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewClusterQuotasFailure(cluster, org, reason string, at time.Time) *ClusterQuotasFailure {
	return &ClusterQuotasFailure{TypeMeta: TypeMeta{TypeClusterQuotasFailure}, ClusterName: cluster, OrganizationName: org, Reason: reason, UpdatedAt: at}
}

// ProjectNamespaceStatus reports a namespace lifecycle transition.
type ProjectNamespaceStatus struct {
	TypeMeta  `json:",inline"`
	ProjectId string          `json:"project_id"`
	Name      string          `json:"name"`
	Status    NamespaceStatus `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewProjectNamespaceStatus(projectId, name string, status NamespaceStatus, reason string, at time.Time) *ProjectNamespaceStatus {
	return &ProjectNamespaceStatus{TypeMeta: TypeMeta{TypeProjectNamespaceStatus}, ProjectId: projectId, Name: name, Status: status, Reason: reason, UpdatedAt: at}
}

// ProjectSecretsStatus reports the apply or delete outcome for one secret
// assignment in one namespace.
type ProjectSecretsStatus struct {
	TypeMeta  `json:",inline"`
	ProjectId string     `json:"project_id"`
	SecretId  string     `json:"secret_id"`
	Namespace string     `json:"namespace"`
	Status    SyncStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewProjectSecretsStatus(projectId, secretId, namespace string, status SyncStatus, reason string, at time.Time) *ProjectSecretsStatus {
	return &ProjectSecretsStatus{TypeMeta: TypeMeta{TypeProjectSecretsStatus}, ProjectId: projectId, SecretId: secretId, Namespace: namespace, Status: status, Reason: reason, UpdatedAt: at}
}

// ProjectStorageStatus reports the apply or delete outcome for one storage
// ConfigMap in one namespace.
type ProjectStorageStatus struct {
	TypeMeta  `json:",inline"`
	ProjectId string     `json:"project_id"`
	StorageId string     `json:"storage_id"`
	Namespace string     `json:"namespace"`
	Status    SyncStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewProjectStorageStatus(projectId, storageId, namespace string, status SyncStatus, reason string, at time.Time) *ProjectStorageStatus {
	return &ProjectStorageStatus{TypeMeta: TypeMeta{TypeProjectStorageStatus}, ProjectId: projectId, StorageId: storageId, Namespace: namespace, Status: status, Reason: reason, UpdatedAt: at}
}

// WorkloadStatusUpdate reports a workload-level transition the dispatcher
// resolves itself, such as completion of a cascade delete.
type WorkloadStatusUpdate struct {
	TypeMeta   `json:",inline"`
	WorkloadId string         `json:"workload_id"`
	Status     WorkloadStatus `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func NewWorkloadStatusUpdate(workloadId string, status WorkloadStatus, reason string, at time.Time) *WorkloadStatusUpdate {
	return &WorkloadStatusUpdate{TypeMeta: TypeMeta{TypeWorkloadStatusUpdate}, WorkloadId: workloadId, Status: status, Reason: reason, UpdatedAt: at}
}

// WorkloadComponentStatusUpdate reports one component transition observed by
// a per-kind watcher.
type WorkloadComponentStatusUpdate struct {
	TypeMeta    `json:",inline"`
	WorkloadId  string          `json:"workload_id"`
	ComponentId string          `json:"component_id"`
	ProjectId   string          `json:"project_id,omitempty"`
	Kind        string          `json:"kind"`
	Name        string          `json:"name"`
	Namespace   string          `json:"namespace"`
	Status      ComponentStatus `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewWorkloadComponentStatusUpdate(workloadId, componentId string, status ComponentStatus, at time.Time) *WorkloadComponentStatusUpdate {
	return &WorkloadComponentStatusUpdate{TypeMeta: TypeMeta{TypeWorkloadComponentStatusUpdate}, WorkloadId: workloadId, ComponentId: componentId, Status: status, UpdatedAt: at}
}

// AutoDiscoveredWorkloadComponent announces a labeled resource the controller
// never created, so a component row exists before its first status update.
type AutoDiscoveredWorkloadComponent struct {
	TypeMeta    `json:",inline"`
	WorkloadId  string    `json:"workload_id"`
	ComponentId string    `json:"component_id"`
	ProjectId   string    `json:"project_id,omitempty"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Namespace   string    `json:"namespace"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewAutoDiscoveredWorkloadComponent(workloadId, componentId, kind, name, namespace string, at time.Time) *AutoDiscoveredWorkloadComponent {
	return &AutoDiscoveredWorkloadComponent{TypeMeta: TypeMeta{TypeAutoDiscoveredWorkloadComponent}, WorkloadId: workloadId, ComponentId: componentId, Kind: kind, Name: name, Namespace: namespace, UpdatedAt: at}
}

// AimModelInfo is one AIMClusterModel observed on a cluster.
type AimModelInfo struct {
	ResourceName   string            `json:"resource_name"`
	ImageReference string            `json:"image_reference"`
	Status         string            `json:"status,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
}

// AimClusterModels is the full AIM catalog snapshot of one cluster. Consumers
// reconcile by image reference and mark absent rows DELETED.
type AimClusterModels struct {
	TypeMeta         `json:",inline"`
	ClusterName      string         `json:"cluster_name"`
	OrganizationName string         `json:"organization_name"`
	Models           []AimModelInfo `json:"models"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func NewAimClusterModels(cluster, org string, models []AimModelInfo, at time.Time) *AimClusterModels {
	return &AimClusterModels{TypeMeta: TypeMeta{TypeAimClusterModels}, ClusterName: cluster, OrganizationName: org, Models: models, UpdatedAt: at}
}

// ---------------------------------------------------------------------------
// Controller to dispatcher
// ---------------------------------------------------------------------------

// QueueQuota is one cluster queue in an allocation: its capacity vector plus
// the namespaces allowed to borrow from it.
type QueueQuota struct {
	Name       string   `json:"name"`
	Resources  `json:",inline"`
	Namespaces []string `json:"namespaces,omitempty"`
}

// ClusterQuotasAllocation is the complete desired queue layout of one
// cluster: every active project quota plus the catch-all remainder.
type ClusterQuotasAllocation struct {
	TypeMeta        `json:",inline"`
	Quotas          []QueueQuota    `json:"quotas"`
	GpuVendor       string          `json:"gpu_vendor,omitempty"`
	PriorityClasses []PriorityClass `json:"priority_classes"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func NewClusterQuotasAllocation(quotas []QueueQuota, gpuVendor string, at time.Time) *ClusterQuotasAllocation {
	return &ClusterQuotasAllocation{
		TypeMeta:        TypeMeta{TypeClusterQuotasAllocation},
		Quotas:          quotas,
		GpuVendor:       gpuVendor,
		PriorityClasses: DefaultPriorityClasses(),
		UpdatedAt:       at,
	}
}

// ProjectNamespaceCreate asks the dispatcher to create a project namespace
// with the given labels.
type ProjectNamespaceCreate struct {
	TypeMeta  `json:",inline"`
	ProjectId string            `json:"project_id"`
	Name      string            `json:"name"`
	Labels    map[string]string `json:"labels,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewProjectNamespaceCreate(projectId, name string, labels map[string]string, at time.Time) *ProjectNamespaceCreate {
	return &ProjectNamespaceCreate{TypeMeta: TypeMeta{TypeProjectNamespaceCreate}, ProjectId: projectId, Name: name, Labels: labels, UpdatedAt: at}
}

// ProjectNamespaceDelete asks the dispatcher to delete a project namespace.
type ProjectNamespaceDelete struct {
	TypeMeta  `json:",inline"`
	ProjectId string    `json:"project_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewProjectNamespaceDelete(projectId, name string, at time.Time) *ProjectNamespaceDelete {
	return &ProjectNamespaceDelete{TypeMeta: TypeMeta{TypeProjectNamespaceDelete}, ProjectId: projectId, Name: name, UpdatedAt: at}
}

// ProjectSecretsCreate carries a rendered secret manifest for one namespace.
// The manifest is complete YAML; the dispatcher applies it verbatim.
type ProjectSecretsCreate struct {
	TypeMeta   `json:",inline"`
	ProjectId  string     `json:"project_id"`
	SecretId   string     `json:"secret_id"`
	Namespace  string     `json:"namespace"`
	Name       string     `json:"name"`
	SecretType SecretType `json:"secret_type"`
	Manifest   string     `json:"manifest"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewProjectSecretsCreate(projectId, secretId, namespace, name string, secretType SecretType, manifest string, at time.Time) *ProjectSecretsCreate {
	return &ProjectSecretsCreate{TypeMeta: TypeMeta{TypeProjectSecretsCreate}, ProjectId: projectId, SecretId: secretId, Namespace: namespace, Name: name, SecretType: secretType, Manifest: manifest, UpdatedAt: at}
}

// ProjectSecretsUpdate re-applies a secret whose payload changed. Identical
// shape to create; kept distinct so handlers can log intent.
type ProjectSecretsUpdate struct {
	TypeMeta   `json:",inline"`
	ProjectId  string     `json:"project_id"`
	SecretId   string     `json:"secret_id"`
	Namespace  string     `json:"namespace"`
	Name       string     `json:"name"`
	SecretType SecretType `json:"secret_type"`
	Manifest   string     `json:"manifest"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewProjectSecretsUpdate(projectId, secretId, namespace, name string, secretType SecretType, manifest string, at time.Time) *ProjectSecretsUpdate {
	return &ProjectSecretsUpdate{TypeMeta: TypeMeta{TypeProjectSecretsUpdate}, ProjectId: projectId, SecretId: secretId, Namespace: namespace, Name: name, SecretType: secretType, Manifest: manifest, UpdatedAt: at}
}

// ProjectSecretsDelete removes a secret from one namespace by label selector.
type ProjectSecretsDelete struct {
	TypeMeta  `json:",inline"`
	ProjectId string    `json:"project_id"`
	SecretId  string    `json:"secret_id"`
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewProjectSecretsDelete(projectId, secretId, namespace, name string, at time.Time) *ProjectSecretsDelete {
	return &ProjectSecretsDelete{TypeMeta: TypeMeta{TypeProjectSecretsDelete}, ProjectId: projectId, SecretId: secretId, Namespace: namespace, Name: name, UpdatedAt: at}
}

// StorageSpec is the S3 binding material the dispatcher renders into a
// storage ConfigMap: bucket location plus the names of the keys inside the
// credential secret.
type StorageSpec struct {
	BucketUrl      string `json:"bucket_url"`
	SecretName     string `json:"secret_name"`
	AccessKeyField string `json:"access_key_field"`
	SecretKeyField string `json:"secret_key_field"`
}

// ProjectS3StorageCreate asks the dispatcher to materialize a storage
// ConfigMap in one namespace.
type ProjectS3StorageCreate struct {
	TypeMeta    `json:",inline"`
	ProjectId   string    `json:"project_id"`
	StorageId   string    `json:"storage_id"`
	Namespace   string    `json:"namespace"`
	Name        string    `json:"name"`
	StorageSpec `json:",inline"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewProjectS3StorageCreate(projectId, storageId, namespace, name string, spec StorageSpec, at time.Time) *ProjectS3StorageCreate {
	return &ProjectS3StorageCreate{TypeMeta: TypeMeta{TypeProjectS3StorageCreate}, ProjectId: projectId, StorageId: storageId, Namespace: namespace, Name: name, StorageSpec: spec, UpdatedAt: at}
}

// ProjectStorageUpdate re-applies a storage ConfigMap whose binding changed.
type ProjectStorageUpdate struct {
	TypeMeta    `json:",inline"`
	ProjectId   string    `json:"project_id"`
	StorageId   string    `json:"storage_id"`
	Namespace   string    `json:"namespace"`
	Name        string    `json:"name"`
	StorageSpec `json:",inline"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewProjectStorageUpdate(projectId, storageId, namespace, name string, spec StorageSpec, at time.Time) *ProjectStorageUpdate {
	return &ProjectStorageUpdate{TypeMeta: TypeMeta{TypeProjectStorageUpdate}, ProjectId: projectId, StorageId: storageId, Namespace: namespace, Name: name, StorageSpec: spec, UpdatedAt: at}
}

// ProjectStorageDelete removes a storage ConfigMap from one namespace.
type ProjectStorageDelete struct {
	TypeMeta  `json:",inline"`
	ProjectId string    `json:"project_id"`
	StorageId string    `json:"storage_id"`
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewProjectStorageDelete(projectId, storageId, namespace, name string, at time.Time) *ProjectStorageDelete {
	return &ProjectStorageDelete{TypeMeta: TypeMeta{TypeProjectStorageDelete}, ProjectId: projectId, StorageId: storageId, Namespace: namespace, Name: name, UpdatedAt: at}
}

// WorkloadCreate carries the rendered multi-document manifest of a workload.
// Labels in the manifests already carry workload, component and project ids.
type WorkloadCreate struct {
	TypeMeta   `json:",inline"`
	WorkloadId string    `json:"workload_id"`
	ProjectId  string    `json:"project_id"`
	Namespace  string    `json:"namespace"`
	Manifests  string    `json:"manifests"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewWorkloadCreate(workloadId, projectId, namespace, manifests string, at time.Time) *WorkloadCreate {
	return &WorkloadCreate{TypeMeta: TypeMeta{TypeWorkloadCreate}, WorkloadId: workloadId, ProjectId: projectId, Namespace: namespace, Manifests: manifests, UpdatedAt: at}
}

// DeleteWorkload asks the dispatcher to cascade-delete everything labeled
// with the workload id in the namespace.
type DeleteWorkload struct {
	TypeMeta   `json:",inline"`
	WorkloadId string    `json:"workload_id"`
	Namespace  string    `json:"namespace"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewDeleteWorkload(workloadId, namespace string, at time.Time) *DeleteWorkload {
	return &DeleteWorkload{TypeMeta: TypeMeta{TypeDeleteWorkload}, WorkloadId: workloadId, Namespace: namespace, UpdatedAt: at}
}

// messageFactories maps every known discriminator to an allocator. The codec
// uses it for decoding and for rejecting unknown types.
var messageFactories = map[MessageType]func() Message{
	TypeHeartbeat:                       func() Message { return &Heartbeat{} },
	TypeClusterNodes:                    func() Message { return &ClusterNodes{} },
	TypeClusterQuotasStatus:             func() Message { return &ClusterQuotasStatus{} },
	TypeClusterQuotasFailure:            func() Message { return &ClusterQuotasFailure{} },
	TypeProjectNamespaceStatus:          func() Message { return &ProjectNamespaceStatus{} },
	TypeProjectSecretsStatus:            func() Message { return &ProjectSecretsStatus{} },
	TypeProjectStorageStatus:            func() Message { return &ProjectStorageStatus{} },
	TypeWorkloadStatusUpdate:            func() Message { return &WorkloadStatusUpdate{} },
	TypeWorkloadComponentStatusUpdate:   func() Message { return &WorkloadComponentStatusUpdate{} },
	TypeAutoDiscoveredWorkloadComponent: func() Message { return &AutoDiscoveredWorkloadComponent{} },
	TypeAimClusterModels:                func() Message { return &AimClusterModels{} },
	TypeClusterQuotasAllocation:         func() Message { return &ClusterQuotasAllocation{} },
	TypeProjectNamespaceCreate:          func() Message { return &ProjectNamespaceCreate{} },
	TypeProjectNamespaceDelete:          func() Message { return &ProjectNamespaceDelete{} },
	TypeProjectSecretsCreate:            func() Message { return &ProjectSecretsCreate{} },
	TypeProjectSecretsUpdate:            func() Message { return &ProjectSecretsUpdate{} },
	TypeProjectSecretsDelete:            func() Message { return &ProjectSecretsDelete{} },
	TypeProjectS3StorageCreate:          func() Message { return &ProjectS3StorageCreate{} },
	TypeProjectStorageUpdate:            func() Message { return &ProjectStorageUpdate{} },
	TypeProjectStorageDelete:            func() Message { return &ProjectStorageDelete{} },
	TypeWorkloadCreate:                  func() Message { return &WorkloadCreate{} },
	TypeDeleteWorkload:                  func() Message { return &DeleteWorkload{} },
}

// NewMessage allocates an empty message for the given discriminator, or nil
// when the type is unknown.
func NewMessage(t MessageType) Message {
	factory, ok := messageFactories[t]
	if !ok {
		return nil
	}
	return factory()
}

// KnownMessageType reports whether t is part of the wire contract.
func KnownMessageType(t MessageType) bool {
	_, ok := messageFactories[t]
	return ok
}
