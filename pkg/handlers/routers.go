/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	"github.com/amd-enterprise-ai/airm/pkg/handlers/authority"
)

const (
	ParamId        = "id"
	ParamProjectId = "projectId"
)

func InitRouters(e *gin.Engine, h *Handler) {
	base := commonconfig.GetServerBasePath()

	group := e.Group(base, authority.Authorize(), h.Audit())
	{
		group.POST("organizations", authority.RequireRole(v1.RolePlatformAdmin), h.CreateOrganization)
		group.GET("organizations", h.ListOrganizations)
		group.GET(fmt.Sprintf("organizations/:%s", ParamId), h.GetOrganization)

		group.POST("clusters", authority.RequireRole(v1.RolePlatformAdmin), h.RegisterCluster)
		group.GET("clusters", h.ListClusters)
		group.GET(fmt.Sprintf("clusters/:%s", ParamId), h.GetCluster)
		group.GET(fmt.Sprintf("clusters/:%s/nodes", ParamId), h.ListClusterNodes)
		group.DELETE(fmt.Sprintf("clusters/:%s", ParamId), authority.RequireRole(v1.RolePlatformAdmin), h.UnregisterCluster)

		group.POST("projects", authority.RequireRole(v1.RolePlatformAdmin), h.CreateProject)
		group.GET("projects", h.ListProjects)
		group.GET(fmt.Sprintf("projects/:%s", ParamId), h.GetProject)
		group.DELETE(fmt.Sprintf("projects/:%s", ParamId), authority.RequireRole(v1.RolePlatformAdmin), h.DeleteProject)
		group.GET(fmt.Sprintf("projects/:%s/quota", ParamId), h.GetQuota)
		group.PUT(fmt.Sprintf("projects/:%s/quota", ParamId), authority.RequireRole(v1.RolePlatformAdmin), h.UpdateQuota)

		group.POST("secrets", h.CreateSecret)
		group.GET("secrets", h.ListSecrets)
		group.GET(fmt.Sprintf("secrets/:%s", ParamId), h.GetSecret)
		group.PATCH(fmt.Sprintf("secrets/:%s/data", ParamId), h.UpdateSecretData)
		group.PUT(fmt.Sprintf("secrets/:%s/assignments", ParamId), h.UpdateSecretAssignments)
		group.DELETE(fmt.Sprintf("secrets/:%s", ParamId), h.DeleteSecret)

		group.POST("storages", h.CreateStorage)
		group.GET("storages", h.ListStorages)
		group.GET(fmt.Sprintf("storages/:%s", ParamId), h.GetStorage)
		group.POST(fmt.Sprintf("storages/:%s/assignments/:%s", ParamId, ParamProjectId), h.AssignStorage)
		group.DELETE(fmt.Sprintf("storages/:%s/assignments/:%s", ParamId, ParamProjectId), h.UnassignStorage)
		group.DELETE(fmt.Sprintf("storages/:%s", ParamId), h.DeleteStorage)

		group.POST("charts", authority.RequireRole(v1.RolePlatformAdmin), h.CreateChart)
		group.GET("charts", h.ListCharts)
		group.GET(fmt.Sprintf("charts/:%s/download", ParamId), h.DownloadChart)
		group.DELETE(fmt.Sprintf("charts/:%s", ParamId), authority.RequireRole(v1.RolePlatformAdmin), h.DeleteChart)

		group.POST("workloads", h.CreateWorkload)
		group.GET("workloads", h.ListWorkloads)
		group.GET(fmt.Sprintf("workloads/:%s", ParamId), h.GetWorkload)
		group.DELETE(fmt.Sprintf("workloads/:%s", ParamId), h.DeleteWorkload)

		group.POST("apikeys", h.CreateApiKey)
		group.GET("apikeys", h.ListApiKeys)
		group.GET(fmt.Sprintf("apikeys/:%s", ParamId), h.GetApiKey)
		group.POST(fmt.Sprintf("apikeys/:%s/renew", ParamId), h.RenewApiKey)
		group.PUT(fmt.Sprintf("apikeys/:%s/bindings", ParamId), h.UpdateApiKeyBindings)
		group.DELETE(fmt.Sprintf("apikeys/:%s", ParamId), h.RevokeApiKey)

		group.GET("aims", h.ListAims)

		group.GET("auditlogs", authority.RequireRole(v1.RolePlatformAdmin), h.ListAuditLogs)
	}

	// Probes stay unauthenticated so the platform can scrape them.
	e.GET("/v1/health", h.Healthz)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Healthz)
}
