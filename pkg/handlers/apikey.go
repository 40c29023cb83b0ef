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
	"github.com/amd-enterprise-ai/airm/pkg/extauth"
	"github.com/amd-enterprise-ai/airm/pkg/handlers/authority"
)

type createApiKeyRequest struct {
	ProjectId string          `json:"projectId"`
	Name      string          `json:"name"`
	Spec      extauth.KeySpec `json:"spec"`
	AimIds    []string        `json:"aimIds,omitempty"`
}

func (h *Handler) CreateApiKey(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &createApiKeyRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if _, err := h.projectForCaller(c, principal, req.ProjectId); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	issued, err := h.ctrl.ApiKey.CreateApiKey(c.Request.Context(), controllers.CreateApiKeyRequest{
		ProjectId: req.ProjectId,
		Name:      req.Name,
		Spec:      req.Spec,
		AimIds:    req.AimIds,
		Principal: principal.Name(),
	})
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ApiKeyKind, issued.Row.Id)
	view := toApiKeyView(issued.Row)
	view.Key = issued.Key
	if issued.Metadata != nil {
		view.ExpireTime = issued.Metadata.ExpireTime
		view.Renewable = issued.Metadata.Renewable
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) ListApiKeys(c *gin.Context) {
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
	rows, err := h.db.SelectApiKeys(c.Request.Context(), sqrl.Eq{"project_id": projectId},
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]ApiKeyView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toApiKeyView(row))
	}
	c.JSON(http.StatusOK, views)
}

// GetApiKey merges the local row with live validity metadata from the auth
// service. The full key is never returned here.
func (h *Handler) GetApiKey(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	if _, err := h.apiKeyForCaller(c, principal); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	row, metadata, err := h.ctrl.ApiKey.GetApiKey(c.Request.Context(), c.Param(ParamId))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	view := toApiKeyView(row)
	view.ExpireTime = metadata.ExpireTime
	view.Renewable = metadata.Renewable
	c.JSON(http.StatusOK, view)
}

func (h *Handler) RenewApiKey(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	row, err := h.apiKeyForCaller(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	metadata, err := h.ctrl.ApiKey.RenewApiKey(c.Request.Context(), row.Id)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ApiKeyKind, row.Id)
	view := toApiKeyView(row)
	view.ExpireTime = metadata.ExpireTime
	view.Renewable = metadata.Renewable
	c.JSON(http.StatusOK, view)
}

type updateApiKeyBindingsRequest struct {
	AimIds []string `json:"aimIds"`
}

func (h *Handler) UpdateApiKeyBindings(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	row, err := h.apiKeyForCaller(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	req := &updateApiKeyBindingsRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.ApiKey.UpdateBindings(c.Request.Context(), row.Id, req.AimIds); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ApiKeyKind, row.Id)
	c.Status(http.StatusOK)
}

func (h *Handler) RevokeApiKey(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	row, err := h.apiKeyForCaller(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.ApiKey.RevokeApiKey(c.Request.Context(), row.Id); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ApiKeyKind, row.Id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListAims(c *gin.Context) {
	if h.principal(c) == nil {
		return
	}
	aims, err := h.db.SelectAims(c.Request.Context())
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]AimView, 0, len(aims))
	for _, aim := range aims {
		views = append(views, AimView{
			Id:             aim.Id,
			ImageReference: aim.ImageReference,
			ResourceName:   aim.ResourceName,
			Labels:         aim.Labels,
			Status:         aim.Status,
			UpdatedAt:      aim.UpdatedAt.Format(timeLayout),
		})
	}
	c.JSON(http.StatusOK, views)
}

// apiKeyForCaller loads the path key and enforces access through its owning
// project. Foreign key ids read as not found.
func (h *Handler) apiKeyForCaller(c *gin.Context, principal *authority.Principal) (*dbclient.ApiKey, error) {
	id := c.Param(ParamId)
	row, err := h.db.GetApiKey(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, err := h.projectForCaller(c, principal, row.ProjectId); err != nil {
		if commonerrors.IsNotFound(err) {
			return nil, commonerrors.NewNotFound(v1.ApiKeyKind, id)
		}
		return nil, err
	}
	return row, nil
}
