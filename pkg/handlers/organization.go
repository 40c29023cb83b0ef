/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"
	"net/http"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	"github.com/amd-enterprise-ai/airm/pkg/controllers"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/handlers/authority"
)

// principal returns the caller, aborting with 401 when Authorize did not run.
func (h *Handler) principal(c *gin.Context) *authority.Principal {
	principal := authority.FromContext(c)
	if principal == nil {
		apiutils.AbortWithApiError(c, commonerrors.NewUnauthorized("the request is not authenticated"))
	}
	return principal
}

// requestOrg resolves the organization a request operates on: platform admins
// may address any organization through the query string, everyone else is
// pinned to the organization in their token.
func (h *Handler) requestOrg(c *gin.Context, principal *authority.Principal) string {
	if requested := c.Query("organizationId"); requested != "" && principal.HasRole(v1.RolePlatformAdmin) {
		return requested
	}
	return principal.OrganizationId
}

type createOrganizationRequest struct {
	Name string `json:"name"`
	// IdpOrgId and IdpGroupId point at the organization the installer
	// provisioned in the identity provider. Project groups are created under
	// IdpGroupId.
	IdpOrgId   string `json:"idpOrgId,omitempty"`
	IdpGroupId string `json:"idpGroupId,omitempty"`
}

func (h *Handler) CreateOrganization(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &createOrganizationRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if err := controllers.ValidateSubdomainName("organization", req.Name); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.db.GetOrganizationByName(ctx, req.Name); err == nil {
		apiutils.AbortWithApiError(c, commonerrors.NewConflict(fmt.Sprintf("organization %s already exists", req.Name)))
		return
	} else if !commonerrors.IsNotFound(err) {
		apiutils.AbortWithApiError(c, err)
		return
	}
	now := time.Now().UTC()
	org := &dbclient.Organization{
		Id:         uuid.NewString(),
		Name:       req.Name,
		IdpOrgId:   dbutils.NullString(req.IdpOrgId),
		IdpGroupId: dbutils.NullString(req.IdpGroupId),
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  principal.Name(),
		UpdatedBy:  principal.Name(),
	}
	if err := h.db.InsertOrganization(ctx, org); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.OrganizationKind, org.Id)
	c.JSON(http.StatusCreated, toOrganizationView(org))
}

func (h *Handler) ListOrganizations(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	window := parseListWindow(c)
	var query sqrl.Sqlizer
	if !principal.HasRole(v1.RolePlatformAdmin) {
		query = sqrl.Eq{"id": principal.OrganizationId}
	}
	orgs, err := h.db.SelectOrganizations(c.Request.Context(), query,
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]OrganizationView, 0, len(orgs))
	for _, org := range orgs {
		views = append(views, toOrganizationView(org))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetOrganization(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	id := c.Param(ParamId)
	if !principal.HasRole(v1.RolePlatformAdmin) && id != principal.OrganizationId {
		apiutils.AbortWithApiError(c, commonerrors.NewForbidden("the caller belongs to another organization"))
		return
	}
	org, err := h.db.GetOrganization(c.Request.Context(), id)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrganizationView(org))
}
