/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// listWindow is the limit/offset pair parsed from the query string.
type listWindow struct {
	Limit  int
	Offset int
}

func parseListWindow(c *gin.Context) listWindow {
	w := listWindow{Limit: defaultPageSize}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			w.Limit = min(n, maxPageSize)
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			w.Offset = n
		}
	}
	return w
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

type OrganizationView struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	CreatedBy string `json:"createdBy"`
}

func toOrganizationView(org *dbclient.Organization) OrganizationView {
	return OrganizationView{
		Id:        org.Id,
		Name:      org.Name,
		CreatedAt: org.CreatedAt.Format(timeLayout),
		CreatedBy: org.CreatedBy,
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

type ClusterView struct {
	Id               string        `json:"id"`
	OrganizationId   string        `json:"organizationId"`
	Name             string        `json:"name"`
	Status           string        `json:"status"`
	WorkloadsBaseUrl string        `json:"workloadsBaseUrl,omitempty"`
	KubeApiUrl       string        `json:"kubeApiUrl,omitempty"`
	LastHeartbeatAt  string        `json:"lastHeartbeatAt,omitempty"`
	Available        *v1.Resources `json:"available,omitempty"`
	Allocated        *v1.Resources `json:"allocated,omitempty"`
	Gpu              *v1.GpuInfo   `json:"gpu,omitempty"`
	CreatedAt        string        `json:"createdAt"`
}

type NodeView struct {
	Name      string       `json:"name"`
	IsReady   bool         `json:"isReady"`
	Status    string       `json:"status,omitempty"`
	Capacity  v1.Resources `json:"capacity"`
	Gpu       v1.GpuInfo   `json:"gpu,omitempty"`
	UpdatedAt string       `json:"updatedAt"`
}

func toNodeView(node *dbclient.ClusterNode) NodeView {
	return NodeView{
		Name:    node.Name,
		IsReady: node.IsReady,
		Status:  dbutils.ParseNullString(node.Status),
		Capacity: v1.Resources{
			CpuMilli:              node.CpuMilli,
			MemoryBytes:           node.MemoryBytes,
			EphemeralStorageBytes: node.EphemeralStorageBytes,
			GpuCount:              node.GpuCount,
		},
		Gpu: v1.GpuInfo{
			Vendor:          dbutils.ParseNullString(node.GpuVendor),
			Type:            dbutils.ParseNullString(node.GpuType),
			Product:         dbutils.ParseNullString(node.GpuProduct),
			VramPerGpuBytes: node.GpuVramBytes,
		},
		UpdatedAt: node.UpdatedAt.Format(timeLayout),
	}
}

type ProjectView struct {
	Id             string `json:"id"`
	OrganizationId string `json:"organizationId"`
	ClusterId      string `json:"clusterId"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Status         string `json:"status"`
	StatusReason   string `json:"statusReason,omitempty"`
	CreatedAt      string `json:"createdAt"`
	CreatedBy      string `json:"createdBy"`
}

func toProjectView(project *dbclient.Project) ProjectView {
	return ProjectView{
		Id:             project.Id,
		OrganizationId: project.OrganizationId,
		ClusterId:      project.ClusterId,
		Name:           project.Name,
		Description:    dbutils.ParseNullString(project.Description),
		Status:         project.Status,
		StatusReason:   dbutils.ParseNullString(project.StatusReason),
		CreatedAt:      project.CreatedAt.Format(timeLayout),
		CreatedBy:      project.CreatedBy,
	}
}

type QuotaView struct {
	Id           string       `json:"id"`
	ProjectId    string       `json:"projectId"`
	Resources    v1.Resources `json:"resources"`
	Status       string       `json:"status"`
	StatusReason string       `json:"statusReason,omitempty"`
	UpdatedAt    string       `json:"updatedAt"`
}

func toQuotaView(quota *dbclient.Quota) QuotaView {
	return QuotaView{
		Id:        quota.Id,
		ProjectId: quota.ProjectId,
		Resources: v1.Resources{
			CpuMilli:              quota.CpuMilli,
			MemoryBytes:           quota.MemoryBytes,
			EphemeralStorageBytes: quota.EphemeralStorageBytes,
			GpuCount:              quota.GpuCount,
		},
		Status:       quota.Status,
		StatusReason: dbutils.ParseNullString(quota.StatusReason),
		UpdatedAt:    quota.UpdatedAt.Format(timeLayout),
	}
}

// SecretView never carries the payload back out; only metadata and the
// per-project sync map leave the API.
type SecretView struct {
	Id             string                   `json:"id"`
	OrganizationId string                   `json:"organizationId"`
	ProjectId      string                   `json:"projectId,omitempty"`
	Name           string                   `json:"name"`
	Scope          string                   `json:"scope"`
	Kind           string                   `json:"kind"`
	SecretType     string                   `json:"secretType"`
	UseCase        string                   `json:"useCase,omitempty"`
	Status         string                   `json:"status"`
	StatusReason   string                   `json:"statusReason,omitempty"`
	Assignments    map[string]v1.SyncStatus `json:"assignments,omitempty"`
	CreatedAt      string                   `json:"createdAt"`
	CreatedBy      string                   `json:"createdBy"`
}

func toSecretView(secret *dbclient.Secret) SecretView {
	return SecretView{
		Id:             secret.Id,
		OrganizationId: secret.OrganizationId,
		ProjectId:      dbutils.ParseNullString(secret.ProjectId),
		Name:           secret.Name,
		Scope:          secret.Scope,
		Kind:           secret.Kind,
		SecretType:     secret.SecretType,
		UseCase:        dbutils.ParseNullString(secret.UseCase),
		Status:         secret.Status,
		StatusReason:   dbutils.ParseNullString(secret.StatusReason),
		CreatedAt:      secret.CreatedAt.Format(timeLayout),
		CreatedBy:      secret.CreatedBy,
	}
}

type StorageView struct {
	Id             string            `json:"id"`
	OrganizationId string            `json:"organizationId"`
	Name           string            `json:"name"`
	SecretId       string            `json:"secretId"`
	BucketUrl      string            `json:"bucketUrl"`
	AccessKeyField string            `json:"accessKeyField"`
	SecretKeyField string            `json:"secretKeyField"`
	Status         string            `json:"status"`
	StatusReason   string            `json:"statusReason,omitempty"`
	Bindings       map[string]string `json:"bindings,omitempty"`
	CreatedAt      string            `json:"createdAt"`
	CreatedBy      string            `json:"createdBy"`
}

func toStorageView(storage *dbclient.Storage) StorageView {
	return StorageView{
		Id:             storage.Id,
		OrganizationId: storage.OrganizationId,
		Name:           storage.Name,
		SecretId:       storage.SecretId,
		BucketUrl:      storage.BucketUrl,
		AccessKeyField: storage.AccessKeyField,
		SecretKeyField: storage.SecretKeyField,
		Status:         storage.Status,
		StatusReason:   dbutils.ParseNullString(storage.StatusReason),
		CreatedAt:      storage.CreatedAt.Format(timeLayout),
		CreatedBy:      storage.CreatedBy,
	}
}

type ChartView struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Digest      string `json:"digest,omitempty"`
	CreatedAt   string `json:"createdAt"`
	CreatedBy   string `json:"createdBy"`
}

func toChartView(chart *dbclient.Chart) ChartView {
	return ChartView{
		Id:          chart.Id,
		Name:        chart.Name,
		Version:     chart.Version,
		Description: dbutils.ParseNullString(chart.Description),
		Digest:      dbutils.ParseNullString(chart.Digest),
		CreatedAt:   chart.CreatedAt.Format(timeLayout),
		CreatedBy:   chart.CreatedBy,
	}
}

type ComponentView struct {
	Id             string `json:"id"`
	Kind           string `json:"kind"`
	Name           string `json:"name"`
	Namespace      string `json:"namespace"`
	Status         string `json:"status"`
	StatusReason   string `json:"statusReason,omitempty"`
	AutoDiscovered bool   `json:"autoDiscovered,omitempty"`
	UpdatedAt      string `json:"updatedAt"`
}

func toComponentView(component *dbclient.WorkloadComponent) ComponentView {
	return ComponentView{
		Id:             component.Id,
		Kind:           component.Kind,
		Name:           component.Name,
		Namespace:      component.Namespace,
		Status:         component.Status,
		StatusReason:   dbutils.ParseNullString(component.StatusReason),
		AutoDiscovered: component.AutoDiscovered,
		UpdatedAt:      component.UpdatedAt.Format(timeLayout),
	}
}

type WorkloadView struct {
	Id           string          `json:"id"`
	ProjectId    string          `json:"projectId"`
	Name         string          `json:"name"`
	DisplayName  string          `json:"displayName,omitempty"`
	Namespace    string          `json:"namespace"`
	WorkloadType string          `json:"workloadType,omitempty"`
	ChartId      string          `json:"chartId,omitempty"`
	OverlayId    string          `json:"overlayId,omitempty"`
	AimId        string          `json:"aimId,omitempty"`
	Status       string          `json:"status"`
	StatusReason string          `json:"statusReason,omitempty"`
	Components   []ComponentView `json:"components,omitempty"`
	CreatedAt    string          `json:"createdAt"`
	CreatedBy    string          `json:"createdBy"`
}

func toWorkloadView(workload *dbclient.Workload) WorkloadView {
	return WorkloadView{
		Id:           workload.Id,
		ProjectId:    workload.ProjectId,
		Name:         workload.Name,
		DisplayName:  dbutils.ParseNullString(workload.DisplayName),
		Namespace:    workload.Namespace,
		WorkloadType: dbutils.ParseNullString(workload.WorkloadType),
		ChartId:      dbutils.ParseNullString(workload.ChartId),
		OverlayId:    dbutils.ParseNullString(workload.OverlayId),
		AimId:        dbutils.ParseNullString(workload.AimId),
		Status:       workload.Status,
		StatusReason: dbutils.ParseNullString(workload.StatusReason),
		CreatedAt:    workload.CreatedAt.Format(timeLayout),
		CreatedBy:    workload.CreatedBy,
	}
}

type ApiKeyView struct {
	Id           string `json:"id"`
	ProjectId    string `json:"projectId"`
	Name         string `json:"name"`
	TruncatedKey string `json:"truncatedKey"`
	// Key carries the full secret exactly once, on create.
	Key        string `json:"key,omitempty"`
	ExpireTime string `json:"expireTime,omitempty"`
	Renewable  bool   `json:"renewable,omitempty"`
	CreatedAt  string `json:"createdAt"`
	CreatedBy  string `json:"createdBy"`
}

func toApiKeyView(row *dbclient.ApiKey) ApiKeyView {
	return ApiKeyView{
		Id:           row.Id,
		ProjectId:    row.ProjectId,
		Name:         row.Name,
		TruncatedKey: row.TruncatedKey,
		CreatedAt:    row.CreatedAt.Format(timeLayout),
		CreatedBy:    row.CreatedBy,
	}
}

type AimView struct {
	Id             string `json:"id"`
	ImageReference string `json:"imageReference"`
	ResourceName   string `json:"resourceName,omitempty"`
	Labels         string `json:"labels,omitempty"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updatedAt"`
}

type AuditLogView struct {
	Id         int64  `json:"id"`
	UserId     string `json:"userId"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	EntityKind string `json:"entityKind,omitempty"`
	EntityId   string `json:"entityId,omitempty"`
	StatusCode int    `json:"statusCode"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func toAuditLogView(row *dbclient.AuditLog) AuditLogView {
	return AuditLogView{
		Id:         row.Id,
		UserId:     row.UserId,
		Method:     row.Method,
		Path:       row.Path,
		EntityKind: dbutils.ParseNullString(row.EntityKind),
		EntityId:   dbutils.ParseNullString(row.EntityId),
		StatusCode: row.StatusCode,
		Detail:     dbutils.ParseNullString(row.Detail),
		CreatedAt:  row.CreatedAt.Format(timeLayout),
	}
}
