/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	"github.com/amd-enterprise-ai/airm/pkg/controllers"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/handlers/authority"
)

type registerClusterRequest struct {
	OrganizationId string `json:"organizationId"`
	// Name may be empty; a name-less cluster adopts the name carried by its
	// first heartbeat.
	Name string `json:"name,omitempty"`
}

// registerClusterResponse carries the dispatcher broker credentials exactly
// once. They are not retrievable afterwards.
type registerClusterResponse struct {
	Cluster  ClusterView `json:"cluster"`
	Username string      `json:"username"`
	Secret   string      `json:"secret"`
	Vhost    string      `json:"vhost"`
}

func (h *Handler) RegisterCluster(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &registerClusterRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if req.OrganizationId == "" {
		req.OrganizationId = principal.OrganizationId
	}
	ctx := c.Request.Context()
	if _, err := h.db.GetOrganization(ctx, req.OrganizationId); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	credentials, err := h.ctrl.Inventory.RegisterCluster(ctx, req.OrganizationId, req.Name, principal.Name())
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ClusterKind, credentials.Cluster.Id)
	c.JSON(http.StatusCreated, registerClusterResponse{
		Cluster:  h.toClusterView(c, credentials.Cluster, false),
		Username: credentials.Username,
		Secret:   credentials.Secret,
		Vhost:    v1.ClusterVhostPrefix + credentials.Cluster.Id,
	})
}

func (h *Handler) UnregisterCluster(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	id := c.Param(ParamId)
	if err := h.ctrl.Inventory.UnregisterCluster(c.Request.Context(), id); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ClusterKind, id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListClusters(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	window := parseListWindow(c)
	query := sqrl.Eq{"organization_id": h.requestOrg(c, principal)}
	clusters, err := h.db.SelectClusters(c.Request.Context(), query,
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]ClusterView, 0, len(clusters))
	for _, cluster := range clusters {
		views = append(views, h.toClusterView(c, cluster, false))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetCluster(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	cluster, err := h.clusterInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toClusterView(c, cluster, true))
}

func (h *Handler) ListClusterNodes(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	cluster, err := h.clusterInOrg(c, principal)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	nodes, err := h.db.SelectClusterNodes(c.Request.Context(), cluster.Id)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]NodeView, 0, len(nodes))
	for _, node := range nodes {
		views = append(views, toNodeView(node))
	}
	c.JSON(http.StatusOK, views)
}

// clusterInOrg loads the path cluster and verifies it belongs to the caller's
// organization. Cross-organization ids read as not found, never as forbidden.
func (h *Handler) clusterInOrg(c *gin.Context, principal *authority.Principal) (*dbclient.Cluster, error) {
	id := c.Param(ParamId)
	cluster, err := h.db.GetCluster(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if cluster.OrganizationId != h.requestOrg(c, principal) {
		return nil, commonerrors.NewNotFound(v1.ClusterKind, id)
	}
	return cluster, nil
}

// toClusterView derives status from heartbeat recency; withResources adds the
// live capacity and allocation sums, which cost extra queries.
func (h *Handler) toClusterView(c *gin.Context, cluster *dbclient.Cluster, withResources bool) ClusterView {
	view := ClusterView{
		Id:               cluster.Id,
		OrganizationId:   cluster.OrganizationId,
		Name:             cluster.Name,
		Status:           string(controllers.DeriveClusterStatus(cluster, time.Now())),
		WorkloadsBaseUrl: dbutils.ParseNullString(cluster.WorkloadsBaseUrl),
		KubeApiUrl:       dbutils.ParseNullString(cluster.KubeApiUrl),
		CreatedAt:        cluster.CreatedAt.Format(timeLayout),
	}
	if cluster.LastHeartbeatAt.Valid {
		view.LastHeartbeatAt = cluster.LastHeartbeatAt.Time.Format(timeLayout)
	}
	if !withResources {
		return view
	}
	ctx := c.Request.Context()
	if available, gpu, err := h.ctrl.Inventory.AvailableResources(ctx, cluster.Id); err == nil {
		view.Available = &available
		view.Gpu = &gpu
	}
	if allocated, err := h.ctrl.Inventory.AllocatedResources(ctx, cluster.Id); err == nil {
		view.Allocated = &allocated
	}
	return view
}
