/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	DESC = "desc"
	ASC  = "asc"

	CreatedAt = "created_at"
	UpdatedAt = "updated_at"

	// DispatcherPrincipal is recorded as updated_by for message-driven writes.
	DispatcherPrincipal = "dispatcher"
)

// Organization is the tenancy root. Name uniqueness is case-folded.
type Organization struct {
	Id         string         `db:"id"`
	Name       string         `db:"name"`
	IdpOrgId   sql.NullString `db:"idp_org_id"`
	IdpGroupId sql.NullString `db:"idp_group_id"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
	CreatedBy  string         `db:"created_by"`
	UpdatedBy  string         `db:"updated_by"`
}

// Cluster is a managed Kubernetes cluster. Status is derived from
// LastHeartbeatAt, never stored.
type Cluster struct {
	Id               string         `db:"id"`
	OrganizationId   string         `db:"organization_id"`
	Name             string         `db:"name"`
	WorkloadsBaseUrl sql.NullString `db:"workloads_base_url"`
	KubeApiUrl       sql.NullString `db:"kube_api_url"`
	LastHeartbeatAt  pq.NullTime    `db:"last_heartbeat_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	CreatedBy        string         `db:"created_by"`
	UpdatedBy        string         `db:"updated_by"`
}

// ClusterNode is one node of a cluster, replaced in bulk from dispatcher
// inventory reports.
type ClusterNode struct {
	Id                    string         `db:"id"`
	ClusterId             string         `db:"cluster_id"`
	Name                  string         `db:"name"`
	CpuMilli              int64          `db:"cpu_milli"`
	MemoryBytes           int64          `db:"memory_bytes"`
	EphemeralStorageBytes int64          `db:"ephemeral_storage_bytes"`
	GpuCount              int64          `db:"gpu_count"`
	GpuVendor             sql.NullString `db:"gpu_vendor"`
	GpuType               sql.NullString `db:"gpu_type"`
	GpuProduct            sql.NullString `db:"gpu_product"`
	GpuVramBytes          int64          `db:"gpu_vram_bytes"`
	IsReady               bool           `db:"is_ready"`
	Status                sql.NullString `db:"status"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
	CreatedBy             string         `db:"created_by"`
	UpdatedBy             string         `db:"updated_by"`
}

type Project struct {
	Id             string         `db:"id"`
	OrganizationId string         `db:"organization_id"`
	ClusterId      string         `db:"cluster_id"`
	Name           string         `db:"name"`
	Description    sql.NullString `db:"description"`
	IdpGroupId     sql.NullString `db:"idp_group_id"`
	Status         string         `db:"status"`
	StatusReason   sql.NullString `db:"status_reason"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	CreatedBy      string         `db:"created_by"`
	UpdatedBy      string         `db:"updated_by"`
}

// Quota is one-to-one with its project.
type Quota struct {
	Id                    string         `db:"id"`
	ProjectId             string         `db:"project_id"`
	CpuMilli              int64          `db:"cpu_milli"`
	MemoryBytes           int64          `db:"memory_bytes"`
	EphemeralStorageBytes int64          `db:"ephemeral_storage_bytes"`
	GpuCount              int64          `db:"gpu_count"`
	Status                string         `db:"status"`
	StatusReason          sql.NullString `db:"status_reason"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
	CreatedBy             string         `db:"created_by"`
	UpdatedBy             string         `db:"updated_by"`
}

// ProjectQuota joins a quota with the owning project's name, status and
// namespace, which is what the allocation builder needs.
type ProjectQuota struct {
	Quota
	ProjectName   string         `db:"project_name"`
	ProjectStatus string         `db:"project_status"`
	NamespaceName sql.NullString `db:"namespace_name"`
}

// Namespace is the project namespace on its cluster, one-to-one with project.
type Namespace struct {
	Id           string         `db:"id"`
	ProjectId    string         `db:"project_id"`
	ClusterId    string         `db:"cluster_id"`
	Name         string         `db:"name"`
	Status       string         `db:"status"`
	StatusReason sql.NullString `db:"status_reason"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CreatedBy    string         `db:"created_by"`
	UpdatedBy    string         `db:"updated_by"`
}

// Secret is either organization-scoped (fanned out to projects through
// assignments) or project-scoped (exactly one assignment). Data holds the
// JSON-encoded payload for KubernetesSecret kinds.
type Secret struct {
	Id             string         `db:"id"`
	OrganizationId string         `db:"organization_id"`
	ProjectId      sql.NullString `db:"project_id"`
	Name           string         `db:"name"`
	Scope          string         `db:"scope"`
	Kind           string         `db:"kind"`
	SecretType     string         `db:"secret_type"`
	UseCase        sql.NullString `db:"use_case"`
	Data           sql.NullString `db:"data"`
	Status         string         `db:"status"`
	StatusReason   sql.NullString `db:"status_reason"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	CreatedBy      string         `db:"created_by"`
	UpdatedBy      string         `db:"updated_by"`
}

// SecretAssignment links a secret to one target project. Status follows the
// sync lifecycle; the parent secret status is the rollup of its assignments.
type SecretAssignment struct {
	Id           string         `db:"id"`
	SecretId     string         `db:"secret_id"`
	ProjectId    string         `db:"project_id"`
	Status       string         `db:"status"`
	StatusReason sql.NullString `db:"status_reason"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CreatedBy    string         `db:"created_by"`
	UpdatedBy    string         `db:"updated_by"`
}

// Storage is an organization-scoped S3 location whose credentials live in a
// referenced secret.
type Storage struct {
	Id             string         `db:"id"`
	OrganizationId string         `db:"organization_id"`
	Name           string         `db:"name"`
	SecretId       string         `db:"secret_id"`
	BucketUrl      string         `db:"bucket_url"`
	AccessKeyField string         `db:"access_key_field"`
	SecretKeyField string         `db:"secret_key_field"`
	Status         string         `db:"status"`
	StatusReason   sql.NullString `db:"status_reason"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	CreatedBy      string         `db:"created_by"`
	UpdatedBy      string         `db:"updated_by"`
}

// ProjectStorage binds a storage to one project.
type ProjectStorage struct {
	Id           string         `db:"id"`
	StorageId    string         `db:"storage_id"`
	ProjectId    string         `db:"project_id"`
	Status       string         `db:"status"`
	StatusReason sql.NullString `db:"status_reason"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CreatedBy    string         `db:"created_by"`
	UpdatedBy    string         `db:"updated_by"`
}

// ProjectStorageConfigmap tracks the cluster-side ConfigMap of one
// project-storage binding.
type ProjectStorageConfigmap struct {
	Id               string         `db:"id"`
	ProjectStorageId string         `db:"project_storage_id"`
	Name             string         `db:"name"`
	Status           string         `db:"status"`
	StatusReason     sql.NullString `db:"status_reason"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	CreatedBy        string         `db:"created_by"`
	UpdatedBy        string         `db:"updated_by"`
}

// Chart is a packaged workload template stored in the blob store.
type Chart struct {
	Id          string         `db:"id"`
	Name        string         `db:"name"`
	Version     string         `db:"version"`
	Description sql.NullString `db:"description"`
	S3Key       string         `db:"s3_key"`
	Digest      sql.NullString `db:"digest"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	CreatedBy   string         `db:"created_by"`
	UpdatedBy   string         `db:"updated_by"`
}

// Workload is a unit that reconciles into a set of labeled Kubernetes
// resources. Manifests holds the rendered multi-document YAML at submit time
// so the message can be re-emitted.
type Workload struct {
	Id           string         `db:"id"`
	ProjectId    string         `db:"project_id"`
	Name         string         `db:"name"`
	DisplayName  sql.NullString `db:"display_name"`
	Namespace    string         `db:"namespace"`
	WorkloadType sql.NullString `db:"workload_type"`
	ChartId      sql.NullString `db:"chart_id"`
	OverlayId    sql.NullString `db:"overlay_id"`
	ModelId      sql.NullString `db:"model_id"`
	DatasetId    sql.NullString `db:"dataset_id"`
	AimId        sql.NullString `db:"aim_id"`
	AuthGroupId  sql.NullString `db:"auth_group_id"`
	Manifests    sql.NullString `db:"manifests"`
	Values       sql.NullString `db:"values"`
	Status       string         `db:"status"`
	StatusReason sql.NullString `db:"status_reason"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CreatedBy    string         `db:"created_by"`
	UpdatedBy    string         `db:"updated_by"`
}

// WorkloadComponent is one Kubernetes resource of a workload, tracked by
// component id.
type WorkloadComponent struct {
	Id             string         `db:"id"`
	WorkloadId     string         `db:"workload_id"`
	ProjectId      sql.NullString `db:"project_id"`
	Kind           string         `db:"kind"`
	Name           string         `db:"name"`
	Namespace      string         `db:"namespace"`
	Status         string         `db:"status"`
	StatusReason   sql.NullString `db:"status_reason"`
	AutoDiscovered bool           `db:"auto_discovered"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	CreatedBy      string         `db:"created_by"`
	UpdatedBy      string         `db:"updated_by"`
}

// ApiKey stores only the truncated display form and the external key id;
// validity metadata lives in the external auth service.
type ApiKey struct {
	Id            string    `db:"id"`
	ProjectId     string    `db:"project_id"`
	Name          string    `db:"name"`
	TruncatedKey  string    `db:"truncated_key"`
	ExternalKeyId string    `db:"external_key_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	CreatedBy     string    `db:"created_by"`
	UpdatedBy     string    `db:"updated_by"`
}

// AuditLog records one mutating API call.
type AuditLog struct {
	Id         int64          `db:"id"`
	UserId     string         `db:"user_id"`
	Method     string         `db:"method"`
	Path       string         `db:"path"`
	EntityKind sql.NullString `db:"entity_kind"`
	EntityId   sql.NullString `db:"entity_id"`
	StatusCode int            `db:"status_code"`
	Detail     sql.NullString `db:"detail"`
	CreatedAt  time.Time      `db:"created_at"`
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// generateCommand generates SQL command string using reflection.
// Iterates through struct fields and builds column and value lists,
// skipping fields with the specified ignoreTag.
func generateCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}
