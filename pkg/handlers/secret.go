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

type createSecretRequest struct {
	OrganizationId string            `json:"organizationId,omitempty"`
	Name           string            `json:"name"`
	Scope          string            `json:"scope"`
	Kind           string            `json:"kind"`
	SecretType     string            `json:"secretType,omitempty"`
	UseCase        string            `json:"useCase,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	ProjectIds     []string          `json:"projectIds,omitempty"`
}

func (h *Handler) CreateSecret(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &createSecretRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if req.OrganizationId == "" {
		req.OrganizationId = principal.OrganizationId
	}
	// Organization-wide secrets are an admin concern; project members may
	// only create secrets scoped to their own projects.
	if req.Scope == v1.SecretScopeOrganization && !principal.HasRole(v1.RolePlatformAdmin) {
		apiutils.AbortWithApiError(c, commonerrors.NewForbidden("organization-scoped secrets need a platform admin"))
		return
	}
	for _, projectId := range req.ProjectIds {
		if _, err := h.projectForCaller(c, principal, projectId); err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
	}
	secretType := req.SecretType
	if secretType == "" {
		secretType = string(v1.SecretTypeGeneric)
	}
	secret, err := h.ctrl.Secret.CreateSecret(c.Request.Context(), controllers.CreateSecretRequest{
		OrganizationId: req.OrganizationId,
		Name:           req.Name,
		Scope:          req.Scope,
		Kind:           req.Kind,
		SecretType:     v1.SecretType(secretType),
		UseCase:        req.UseCase,
		Data:           req.Data,
		ProjectIds:     req.ProjectIds,
		Principal:      principal.Name(),
	})
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.SecretKind, secret.Id)
	c.JSON(http.StatusCreated, toSecretView(secret))
}

func (h *Handler) ListSecrets(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	window := parseListWindow(c)
	query := sqrl.Eq{"organization_id": h.requestOrg(c, principal)}
	secrets, err := h.db.SelectSecrets(c.Request.Context(), query,
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]SecretView, 0, len(secrets))
	for _, secret := range secrets {
		views = append(views, toSecretView(secret))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetSecret(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	secret, err := h.secretInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	view := toSecretView(secret)
	if assignments, err := h.ctrl.Secret.AssignmentSummary(c.Request.Context(), secret.Id); err == nil {
		view.Assignments = assignments
	}
	c.JSON(http.StatusOK, view)
}

type updateSecretDataRequest struct {
	Data map[string]string `json:"data"`
}

func (h *Handler) UpdateSecretData(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	secret, err := h.secretInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	req := &updateSecretDataRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.Secret.UpdateSecretData(c.Request.Context(), secret.Id, req.Data, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.SecretKind, secret.Id)
	c.Status(http.StatusAccepted)
}

type updateSecretAssignmentsRequest struct {
	ProjectIds []string `json:"projectIds"`
}

func (h *Handler) UpdateSecretAssignments(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	secret, err := h.secretInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	req := &updateSecretAssignmentsRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	for _, projectId := range req.ProjectIds {
		if _, err := h.projectForCaller(c, principal, projectId); err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
	}
	if err := h.ctrl.Secret.UpdateAssignments(c.Request.Context(), secret.Id, req.ProjectIds, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.SecretKind, secret.Id)
	c.Status(http.StatusAccepted)
}

func (h *Handler) DeleteSecret(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	secret, err := h.secretInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := h.ctrl.Secret.DeleteSecret(c.Request.Context(), secret.Id, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.SecretKind, secret.Id)
	c.Status(http.StatusAccepted)
}

func (h *Handler) secretInOrg(c *gin.Context, principal *authority.Principal) (*dbclient.Secret, error) {
	id := c.Param(ParamId)
	secret, err := h.db.GetSecret(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if secret.OrganizationId != h.requestOrg(c, principal) {
		return nil, commonerrors.NewNotFound(v1.SecretKind, id)
	}
	return secret, nil
}
