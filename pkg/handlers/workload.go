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

type createWorkloadRequest struct {
	ProjectId    string                 `json:"projectId"`
	Name         string                 `json:"name"`
	DisplayName  string                 `json:"displayName,omitempty"`
	WorkloadType string                 `json:"workloadType,omitempty"`
	ChartId      string                 `json:"chartId"`
	OverlayId    string                 `json:"overlayId,omitempty"`
	AimId        string                 `json:"aimId,omitempty"`
	AuthGroupId  string                 `json:"authGroupId,omitempty"`
	Values       map[string]interface{} `json:"values,omitempty"`
}

func (h *Handler) CreateWorkload(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &createWorkloadRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if _, err := h.projectForCaller(c, principal, req.ProjectId); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	workload, err := h.ctrl.Workload.CreateWorkload(c.Request.Context(), controllers.CreateWorkloadRequest{
		ProjectId:    req.ProjectId,
		Name:         req.Name,
		DisplayName:  req.DisplayName,
		WorkloadType: req.WorkloadType,
		ChartId:      req.ChartId,
		OverlayId:    req.OverlayId,
		AimId:        req.AimId,
		AuthGroupId:  req.AuthGroupId,
		Values:       req.Values,
		Principal:    principal.Name(),
	})
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.WorkloadKind, workload.Id)
	c.JSON(http.StatusCreated, toWorkloadView(workload))
}

// ListWorkloads requires a project filter; workloads have no organization
// column of their own, so access is resolved through the project.
func (h *Handler) ListWorkloads(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	projectId := c.Query("projectId")
	if projectId == "" {
		apiutils.AbortWithApiError(c, commonerrors.NewValidation("the projectId query parameter is required"))
		return
	}
	if _, err := h.projectForCaller(c, principal, projectId); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	window := parseListWindow(c)
	workloads, err := h.db.SelectWorkloads(c.Request.Context(), sqrl.Eq{"project_id": projectId},
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]WorkloadView, 0, len(workloads))
	for _, workload := range workloads {
		views = append(views, toWorkloadView(workload))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetWorkload(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	workload, err := h.workloadForCaller(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	view := toWorkloadView(workload)
	components, err := h.db.SelectWorkloadComponents(c.Request.Context(), workload.Id)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	view.Components = make([]ComponentView, 0, len(components))
	for _, component := range components {
		view.Components = append(view.Components, toComponentView(component))
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) DeleteWorkload(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	workload, err := h.workloadForCaller(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.Workload.DeleteWorkload(c.Request.Context(), workload.Id, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.WorkloadKind, workload.Id)
	c.Status(http.StatusAccepted)
}

// workloadForCaller loads the path workload and enforces access through its
// owning project. Foreign workload ids read as not found.
func (h *Handler) workloadForCaller(c *gin.Context, principal *authority.Principal) (*dbclient.Workload, error) {
	id := c.Param(ParamId)
	workload, err := h.db.GetWorkload(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, err := h.projectForCaller(c, principal, workload.ProjectId); err != nil {
		if commonerrors.IsNotFound(err) {
			return nil, commonerrors.NewNotFound(v1.WorkloadKind, id)
		}
		return nil, err
	}
	return workload, nil
}
