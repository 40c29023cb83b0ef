/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import "regexp"

const (
	AirmPrefix = "airm.silogen.ai/"

	// Identity labels stamped on every Kubernetes object the dispatcher manages.
	// The controller renders them into manifests; the dispatcher selects on them.
	ProjectIdLabel        = "project-id"
	WorkloadIdLabel       = "workload-id"
	ComponentIdLabel      = "component-id"
	ProjectSecretIdLabel  = "project-secret-id"
	ProjectStorageIdLabel = "project-storage-id"
	QueueManagedLabel     = "queue-managed"

	// AutoDiscoveredAnnotation marks resources created out-of-band (sidecar
	// charts, operators). The dispatcher announces them before reporting status.
	AutoDiscoveredAnnotation = AirmPrefix + "auto-discovered"

	// UseCaseLabel tags project secrets with their intended consumer.
	UseCaseLabel       = "airm.silogen.com/use-case"
	UseCaseHuggingFace = "hugging_face"
)

const (
	// CommonVhost carries all dispatcher-to-controller traffic.
	CommonVhost = "vh_airm_common"
	// CommonQueue is the single inbound queue on CommonVhost.
	CommonQueue = "airm_common"
	// ClusterVhostPrefix prefixes the per-cluster (controller-to-dispatcher) vhosts.
	ClusterVhostPrefix = "vh_"
)

const (
	// DefaultCatchAllQuotaName is the synthetic cluster queue holding
	// unallocated capacity. It is present in every allocation message and is
	// never reconciled against a project.
	DefaultCatchAllQuotaName = "kaiwo"

	// DefaultMaxProjectsPerCluster bounds active projects per cluster; one
	// queue slot stays reserved for the catch-all.
	DefaultMaxProjectsPerCluster = 10
)

// RestrictedProjectNames cannot be used as project names: the catch-all queue
// name plus group names reserved by the identity provider.
var RestrictedProjectNames = []string{
	DefaultCatchAllQuotaName,
	"minio-users",
	"platformadmins",
}

const (
	// ProjectNameMaxLen leaves room for the "-predictor-{namespace}" suffix
	// under the Kubernetes 63-character object name limit.
	ProjectNameMaxLen = 41
	ProjectNameMinLen = 2

	// DNS subdomain bounds for secret and storage names.
	SubdomainNameMaxLen = 253
	SubdomainNameMinLen = 2
)

var (
	// ProjectNameRegexp is the DNS label form required of project names.
	ProjectNameRegexp = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	// SubdomainNameRegexp is the DNS subdomain form required of secret and storage names.
	SubdomainNameRegexp = regexp.MustCompile(`^[a-z0-9]([-a-z0-9.]*[a-z0-9])?$`)
)

// Realm roles carried in identity-provider tokens.
const (
	RoleSuperAdmin    = "super_admin"
	RolePlatformAdmin = "platform_admin"
	RoleTeamMember    = "team_member"
)

// Entity kinds used in error details and audit records.
const (
	OrganizationKind     = "Organization"
	ClusterKind          = "Cluster"
	ClusterNodeKind      = "ClusterNode"
	ProjectKind          = "Project"
	QuotaKind            = "Quota"
	ProjectNamespaceKind = "ProjectNamespace"
	SecretKind           = "Secret"
	StorageKind          = "Storage"
	ChartKind            = "Chart"
	WorkloadKind         = "Workload"
	ComponentKind        = "WorkloadComponent"
	ApiKeyKind           = "ApiKey"
	AimKind              = "Aim"
)

// Kubernetes custom resource groups the dispatcher works with.
const (
	KaiwoGroup   = "kaiwo.silogen.ai"
	KaiwoVersion = "v1alpha1"
	AimGroup     = "aim.silogen.ai"
	AimVersion   = "v1alpha1"

	KaiwoQueueConfigKind = "KaiwoQueueConfig"
	KaiwoJobKind         = "KaiwoJob"
	KaiwoServiceKind     = "KaiwoService"
	AimServiceKind       = "AIMService"
	AimClusterModelKind  = "AIMClusterModel"

	// KaiwoQueueConfigName is the singleton queue configuration object per cluster.
	KaiwoQueueConfigName = "kaiwo"
)

// GpuConfigMapName is the well-known ConfigMap the dispatcher falls back to
// for cluster and organization names when env vars are unset.
const (
	GpuConfigMapName      = "gpu-config"
	GpuConfigMapNamespace = "kube-system"
	GpuConfigClusterKey   = "cluster_name"
	GpuConfigOrgKey       = "org_name"
)
