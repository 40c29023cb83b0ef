/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	"github.com/amd-enterprise-ai/airm/pkg/controllers"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/handlers/authority"
)

type createProjectRequest struct {
	OrganizationId string       `json:"organizationId,omitempty"`
	ClusterId      string       `json:"clusterId"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Quota          v1.Resources `json:"quota"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &createProjectRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if req.OrganizationId == "" {
		req.OrganizationId = principal.OrganizationId
	}
	project, err := h.ctrl.Project.CreateProject(c.Request.Context(), controllers.CreateProjectRequest{
		OrganizationId: req.OrganizationId,
		ClusterId:      req.ClusterId,
		Name:           req.Name,
		Description:    req.Description,
		Quota:          req.Quota,
		Principal:      principal.Name(),
	})
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ProjectKind, project.Id)
	c.JSON(http.StatusCreated, toProjectView(project))
}

func (h *Handler) ListProjects(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	window := parseListWindow(c)
	query := sqrl.And{sqrl.Eq{"organization_id": h.requestOrg(c, principal)}}
	if clusterId := c.Query("clusterId"); clusterId != "" {
		query = append(query, sqrl.Eq{"cluster_id": clusterId})
	}
	projects, err := h.db.SelectProjects(c.Request.Context(), query,
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		if !principal.CanAccessProject(project.Name) {
			continue
		}
		views = append(views, toProjectView(project))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetProject(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	project, err := h.projectForCaller(c, principal, c.Param(ParamId))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectView(project))
}

func (h *Handler) DeleteProject(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	id := c.Param(ParamId)
	if _, err := h.projectForCaller(c, principal, id); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.Project.DeleteProject(c.Request.Context(), id, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ProjectKind, id)
	c.Status(http.StatusAccepted)
}

func (h *Handler) GetQuota(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	project, err := h.projectForCaller(c, principal, c.Param(ParamId))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	quota, err := h.db.GetQuotaByProject(c.Request.Context(), project.Id)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuotaView(quota))
}

type updateQuotaRequest struct {
	Quota v1.Resources `json:"quota"`
}

func (h *Handler) UpdateQuota(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	project, err := h.projectForCaller(c, principal, c.Param(ParamId))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	req := &updateQuotaRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	quota, err := h.ctrl.Quota.UpdateQuota(c.Request.Context(), project.Id, req.Quota, principal.Name())
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.QuotaKind, quota.Id)
	c.JSON(http.StatusOK, toQuotaView(quota))
}

// projectForCaller loads the project and enforces both the organization
// boundary and the caller's project membership.
func (h *Handler) projectForCaller(c *gin.Context, principal *authority.Principal, id string) (*dbclient.Project, error) {
	project, err := h.db.GetProject(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if project.OrganizationId != h.requestOrg(c, principal) {
		return nil, commonerrors.NewNotFound(v1.ProjectKind, id)
	}
	if !principal.CanAccessProject(project.Name) {
		return nil, commonerrors.NewForbidden("the caller is not a member of the project")
	}
	return project, nil
}
