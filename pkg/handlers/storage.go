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

type createStorageRequest struct {
	OrganizationId string `json:"organizationId,omitempty"`
	Name           string `json:"name"`
	SecretId       string `json:"secretId"`
	BucketUrl      string `json:"bucketUrl"`
	AccessKeyField string `json:"accessKeyField"`
	SecretKeyField string `json:"secretKeyField"`
}

func (h *Handler) CreateStorage(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &createStorageRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if req.OrganizationId == "" {
		req.OrganizationId = principal.OrganizationId
	}
	storage, err := h.ctrl.Storage.CreateStorage(c.Request.Context(), controllers.CreateStorageRequest{
		OrganizationId: req.OrganizationId,
		Name:           req.Name,
		SecretId:       req.SecretId,
		BucketUrl:      req.BucketUrl,
		AccessKeyField: req.AccessKeyField,
		SecretKeyField: req.SecretKeyField,
		Principal:      principal.Name(),
	})
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.StorageKind, storage.Id)
	c.JSON(http.StatusCreated, toStorageView(storage))
}

func (h *Handler) ListStorages(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	window := parseListWindow(c)
	query := sqrl.Eq{"organization_id": h.requestOrg(c, principal)}
	storages, err := h.db.SelectStorages(c.Request.Context(), query,
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]StorageView, 0, len(storages))
	for _, storage := range storages {
		views = append(views, toStorageView(storage))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetStorage(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	storage, err := h.storageInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	view := toStorageView(storage)
	bindings, err := h.db.SelectProjectStorages(c.Request.Context(), sqrl.Eq{"storage_id": storage.Id})
	if err == nil && len(bindings) > 0 {
		view.Bindings = make(map[string]string, len(bindings))
		for _, binding := range bindings {
			view.Bindings[binding.ProjectId] = binding.Status
		}
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) AssignStorage(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	storage, err := h.storageInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	projectId := c.Param(ParamProjectId)
	if _, err := h.projectForCaller(c, principal, projectId); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.Storage.AssignStorage(c.Request.Context(), storage.Id, projectId, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.StorageKind, storage.Id)
	c.Status(http.StatusAccepted)
}

func (h *Handler) UnassignStorage(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	storage, err := h.storageInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	projectId := c.Param(ParamProjectId)
	if _, err := h.projectForCaller(c, principal, projectId); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.Storage.UnassignStorage(c.Request.Context(), storage.Id, projectId, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.StorageKind, storage.Id)
	c.Status(http.StatusAccepted)
}

func (h *Handler) DeleteStorage(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	storage, err := h.storageInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.Storage.DeleteStorage(c.Request.Context(), storage.Id, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.StorageKind, storage.Id)
	c.Status(http.StatusAccepted)
}

func (h *Handler) storageInOrg(c *gin.Context, principal *authority.Principal) (*dbclient.Storage, error) {
	id := c.Param(ParamId)
	storage, err := h.db.GetStorage(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if storage.OrganizationId != h.requestOrg(c, principal) {
		return nil, commonerrors.NewNotFound(v1.StorageKind, id)
	}
	return storage, nil
}
