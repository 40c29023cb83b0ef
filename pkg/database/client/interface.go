/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

type Interface interface {
	OrganizationInterface
	ClusterInterface
	ClusterNodeInterface
	ProjectInterface
	QuotaInterface
	NamespaceInterface
	SecretInterface
	StorageInterface
	ChartInterface
	WorkloadInterface
	ApiKeyInterface
	AimInterface
	AuditLogInterface

	// WithTransaction runs fn inside one transaction; the callback client
	// joins an already-open transaction instead of nesting.
	WithTransaction(ctx context.Context, fn func(txc *Client) error) error
}

type OrganizationInterface interface {
	InsertOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (*Organization, error)
	SelectOrganizations(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Organization, error)
}

type ClusterInterface interface {
	InsertCluster(ctx context.Context, cluster *Cluster) error
	GetCluster(ctx context.Context, id string) (*Cluster, error)
	GetClusterByName(ctx context.Context, organizationId, name string) (*Cluster, error)
	SelectClusters(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Cluster, error)
	CountClusters(ctx context.Context, query sqrl.Sqlizer) (int, error)
	SetClusterName(ctx context.Context, id, name, updatedBy string) error
	AdvanceClusterHeartbeat(ctx context.Context, id string, at time.Time) error
	DeleteCluster(ctx context.Context, id string) error
}

type ClusterNodeInterface interface {
	InsertClusterNode(ctx context.Context, node *ClusterNode) error
	UpdateClusterNode(ctx context.Context, node *ClusterNode) (bool, error)
	SelectClusterNodes(ctx context.Context, clusterId string) ([]*ClusterNode, error)
	DeleteClusterNodes(ctx context.Context, clusterId string, names []string) error
}

type ProjectInterface interface {
	InsertProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	GetProjectByName(ctx context.Context, organizationId, name string) (*Project, error)
	SelectProjects(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Project, error)
	CountProjects(ctx context.Context, query sqrl.Sqlizer) (int, error)
	CountClusterProjects(ctx context.Context, clusterId string) (int, error)
	SetProjectStatus(ctx context.Context, id string, status v1.ProjectStatus, reason, updatedBy string) error
	DeleteProject(ctx context.Context, id string) error
}

type QuotaInterface interface {
	InsertQuota(ctx context.Context, quota *Quota) error
	GetQuota(ctx context.Context, id string) (*Quota, error)
	GetQuotaByProject(ctx context.Context, projectId string) (*Quota, error)
	UpdateQuotaResources(ctx context.Context, quota *Quota) error
	SetQuotaStatus(ctx context.Context, id string, status v1.QuotaStatus, reason, updatedBy string) error
	// SetQuotaStatusIfOlder applies the transition only when the persisted
	// updated_at is not newer than threshold; returns whether a row changed.
	SetQuotaStatusIfOlder(ctx context.Context, id string, status v1.QuotaStatus, reason string, threshold time.Time) (bool, error)
	SetQuotaResourcesIfOlder(ctx context.Context, id string, res v1.Resources, status v1.QuotaStatus, reason string, threshold time.Time) (bool, error)
	SelectClusterQuotas(ctx context.Context, clusterId string) ([]*ProjectQuota, error)
	DeleteQuota(ctx context.Context, id string) error
}

type NamespaceInterface interface {
	InsertNamespace(ctx context.Context, namespace *Namespace) error
	GetNamespace(ctx context.Context, id string) (*Namespace, error)
	GetNamespaceByProject(ctx context.Context, projectId string) (*Namespace, error)
	SetNamespaceStatus(ctx context.Context, id string, status v1.NamespaceStatus, reason, updatedBy string) error
	SetNamespaceStatusIfOlder(ctx context.Context, id string, status v1.NamespaceStatus, reason string, threshold time.Time) (bool, error)
	DeleteNamespace(ctx context.Context, id string) error
}

type SecretInterface interface {
	InsertSecret(ctx context.Context, secret *Secret) error
	GetSecret(ctx context.Context, id string) (*Secret, error)
	GetSecretByName(ctx context.Context, organizationId, name string) (*Secret, error)
	SelectSecrets(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Secret, error)
	UpdateSecretData(ctx context.Context, id, data, updatedBy string) error
	SetSecretStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error
	DeleteSecret(ctx context.Context, id string) error

	InsertSecretAssignment(ctx context.Context, assignment *SecretAssignment) error
	GetSecretAssignment(ctx context.Context, secretId, projectId string) (*SecretAssignment, error)
	SelectSecretAssignments(ctx context.Context, query sqrl.Sqlizer) ([]*SecretAssignment, error)
	SetSecretAssignmentStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error
	SetSecretAssignmentStatusIfOlder(ctx context.Context, id string, status v1.SyncStatus, reason string, threshold time.Time) (bool, error)
	DeleteSecretAssignment(ctx context.Context, id string) error
	// SelectBlockingStorages lists storages in the project that still
	// reference the secret, which veto assignment removal.
	SelectBlockingStorages(ctx context.Context, secretId, projectId string) ([]string, error)
}

type StorageInterface interface {
	InsertStorage(ctx context.Context, storage *Storage) error
	GetStorage(ctx context.Context, id string) (*Storage, error)
	GetStorageByName(ctx context.Context, organizationId, name string) (*Storage, error)
	SelectStorages(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Storage, error)
	UpdateStorage(ctx context.Context, storage *Storage) error
	SetStorageStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error
	DeleteStorage(ctx context.Context, id string) error

	InsertProjectStorage(ctx context.Context, ps *ProjectStorage) error
	GetProjectStorage(ctx context.Context, storageId, projectId string) (*ProjectStorage, error)
	SelectProjectStorages(ctx context.Context, query sqrl.Sqlizer) ([]*ProjectStorage, error)
	SetProjectStorageStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error
	DeleteProjectStorage(ctx context.Context, id string) error

	InsertProjectStorageConfigmap(ctx context.Context, cm *ProjectStorageConfigmap) error
	GetProjectStorageConfigmap(ctx context.Context, projectStorageId string) (*ProjectStorageConfigmap, error)
	SetProjectStorageConfigmapStatusIfOlder(ctx context.Context, id string, status v1.ComponentStatus, reason string, threshold time.Time) (bool, error)
	DeleteProjectStorageConfigmap(ctx context.Context, id string) error
}

type ChartInterface interface {
	InsertChart(ctx context.Context, chart *Chart) error
	GetChart(ctx context.Context, id string) (*Chart, error)
	GetChartByNameVersion(ctx context.Context, name, version string) (*Chart, error)
	SelectCharts(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Chart, error)
	DeleteChart(ctx context.Context, id string) error
}

type WorkloadInterface interface {
	InsertWorkload(ctx context.Context, workload *Workload) error
	GetWorkload(ctx context.Context, id string) (*Workload, error)
	SelectWorkloads(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Workload, error)
	CountWorkloads(ctx context.Context, query sqrl.Sqlizer) (int, error)
	SetWorkloadStatus(ctx context.Context, id string, status v1.WorkloadStatus, reason, updatedBy string) error
	SetWorkloadStatusIfOlder(ctx context.Context, id string, status v1.WorkloadStatus, reason string, threshold time.Time) (bool, error)
	// SelectAimAuthGroups resolves the cluster-auth group ids owned by the
	// AIM's running or pending inference workloads.
	SelectAimAuthGroups(ctx context.Context, aimId string) ([]string, error)
	DeleteWorkload(ctx context.Context, id string) error

	UpsertWorkloadComponent(ctx context.Context, component *WorkloadComponent) error
	GetWorkloadComponent(ctx context.Context, id string) (*WorkloadComponent, error)
	SelectWorkloadComponents(ctx context.Context, workloadId string) ([]*WorkloadComponent, error)
	SetWorkloadComponentStatusIfOlder(ctx context.Context, id string, status v1.ComponentStatus, reason string, threshold time.Time) (bool, error)
	DeleteWorkloadComponents(ctx context.Context, workloadId string) error
}

type ApiKeyInterface interface {
	InsertApiKey(ctx context.Context, key *ApiKey) error
	GetApiKey(ctx context.Context, id string) (*ApiKey, error)
	GetApiKeyByName(ctx context.Context, projectId, name string) (*ApiKey, error)
	SelectApiKeys(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*ApiKey, error)
	DeleteApiKey(ctx context.Context, id string) error
}

type AimInterface interface {
	UpsertAim(ctx context.Context, aim *Aim) error
	GetAim(ctx context.Context, id string) (*Aim, error)
	GetAimByImageReference(ctx context.Context, imageReference string) (*Aim, error)
	SelectAims(ctx context.Context) ([]*Aim, error)
	UpsertAimClusterModel(ctx context.Context, model *AimClusterModel) error
	SelectAimClusterModels(ctx context.Context, clusterId string) ([]*AimClusterModel, error)
	// MarkAimClusterModelsDeleted flags every model of the cluster that is
	// not in keepIds. Rows are never hard-deleted.
	MarkAimClusterModelsDeleted(ctx context.Context, clusterId string, keepIds []string) error
}

type AuditLogInterface interface {
	InsertAuditLog(ctx context.Context, auditLog *AuditLog) error
	SelectAuditLogs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*AuditLog, error)
	CountAuditLogs(ctx context.Context, query sqrl.Sqlizer) (int, error)
}
