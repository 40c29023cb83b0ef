/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/metrics"
	"github.com/amd-enterprise-ai/airm/pkg/quota"
)

// InventoryController owns cluster rows, node inventory and heartbeat health.
type InventoryController struct {
	*base
	provisioner *messaging.Provisioner
}

// ClusterCredentials is returned exactly once from RegisterCluster; the
// dispatcher secret is never stored.
type ClusterCredentials struct {
	Cluster  *dbclient.Cluster
	Username string
	Secret   string
}

// RegisterCluster inserts the cluster row and provisions its messaging vhost,
// user and directional permissions.
func (c *InventoryController) RegisterCluster(ctx context.Context, organizationId, name, createdBy string) (*ClusterCredentials, error) {
	now := time.Now().UTC()
	cluster := &dbclient.Cluster{
		Id:             uuid.NewString(),
		OrganizationId: organizationId,
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      createdBy,
		UpdatedBy:      createdBy,
	}
	if err := c.db.InsertCluster(ctx, cluster); err != nil {
		return nil, err
	}
	secret, err := c.provisioner.ProvisionCluster(cluster.Id)
	if err != nil {
		// The broker is the source of truth for credentials; without it the
		// cluster row is useless, so take it back.
		if delErr := c.db.DeleteCluster(ctx, cluster.Id); delErr != nil {
			klog.ErrorS(delErr, "failed to remove cluster after provisioning failure", "cluster", cluster.Id)
		}
		return nil, err
	}
	return &ClusterCredentials{Cluster: cluster, Username: cluster.Id, Secret: secret}, nil
}

// UnregisterCluster removes the cluster row and tears down its vhost. The
// caller is responsible for having drained projects first.
func (c *InventoryController) UnregisterCluster(ctx context.Context, clusterId string) error {
	cluster, err := c.db.GetCluster(ctx, clusterId)
	if err != nil {
		return err
	}
	count, err := c.db.CountClusterProjects(ctx, clusterId)
	if err != nil {
		return err
	}
	if count > 0 {
		return commonerrors.NewValidation("the cluster still hosts projects")
	}
	if err := c.db.DeleteCluster(ctx, clusterId); err != nil {
		return err
	}
	if err := c.provisioner.DeprovisionCluster(clusterId); err != nil {
		klog.ErrorS(err, "failed to deprovision cluster messaging", "cluster", clusterId)
	}
	if registry, ok := c.sender.(*messaging.Registry); ok {
		registry.Forget(clusterId)
	}
	org, err := c.db.GetOrganization(ctx, cluster.OrganizationId)
	if err == nil {
		metrics.ClearCluster(org.Name, cluster.Name)
	}
	return nil
}

// DeriveClusterStatus turns heartbeat recency into the cluster status.
func DeriveClusterStatus(cluster *dbclient.Cluster, now time.Time) v1.ClusterStatus {
	if !cluster.LastHeartbeatAt.Valid {
		return v1.ClusterVerifying
	}
	window := time.Duration(commonconfig.GetHeartbeatUnhealthySecond()) * time.Second
	if now.Sub(cluster.LastHeartbeatAt.Time) < window {
		return v1.ClusterHealthy
	}
	return v1.ClusterUnhealthy
}

// HandleHeartbeat advances the cluster heartbeat, adopting the name on first
// contact when the stored name is empty and the organization matches.
func (c *InventoryController) HandleHeartbeat(ctx context.Context, msg *v1.Heartbeat) error {
	cluster, err := c.findOrAdopt(ctx, msg.OrganizationName, msg.ClusterName)
	if err != nil || cluster == nil {
		return err
	}
	return c.db.AdvanceClusterHeartbeat(ctx, cluster.Id, msg.LastHeartbeatAt)
}

// findOrAdopt resolves the sender cluster; when no cluster of that name
// exists, a single name-less cluster of the organization is adopted.
func (c *InventoryController) findOrAdopt(ctx context.Context, organizationName, clusterName string) (*dbclient.Cluster, error) {
	org, err := c.db.GetOrganizationByName(ctx, organizationName)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("dropping message from unknown organization", "organization", organizationName)
			return nil, nil
		}
		return nil, err
	}
	cluster, err := c.db.GetClusterByName(ctx, org.Id, clusterName)
	if err == nil {
		return cluster, nil
	}
	if !commonerrors.IsNotFound(err) {
		return nil, err
	}
	candidates, err := c.db.SelectClusters(ctx, sqrl.Eq{"organization_id": org.Id, "name": ""}, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		klog.InfoS("dropping message from unknown cluster", "organization", organizationName, "cluster", clusterName)
		return nil, nil
	}
	adopted := candidates[0]
	if err := c.db.SetClusterName(ctx, adopted.Id, clusterName, dbclient.DispatcherPrincipal); err != nil {
		return nil, err
	}
	adopted.Name = clusterName
	klog.InfoS("adopted cluster name from heartbeat", "cluster", adopted.Id, "name", clusterName)
	return adopted, nil
}

// HandleClusterNodes replaces the node inventory from a full snapshot. The
// set is diffed by case-folded name; rows are only touched when the snapshot
// timestamp dominates. A material change re-emits the quota allocation
// because the catch-all remainder depends on capacity.
func (c *InventoryController) HandleClusterNodes(ctx context.Context, msg *v1.ClusterNodes) error {
	cluster, err := c.resolveCluster(ctx, msg.OrganizationName, msg.ClusterName)
	if err != nil || cluster == nil {
		return err
	}

	existing, err := c.db.SelectClusterNodes(ctx, cluster.Id)
	if err != nil {
		return err
	}
	byName := map[string]*dbclient.ClusterNode{}
	for _, node := range existing {
		byName[strings.ToLower(node.Name)] = node
	}

	changed := false
	seen := map[string]bool{}
	for _, info := range msg.Nodes {
		seen[strings.ToLower(info.Name)] = true
		row := nodeRow(cluster.Id, info)
		if current, ok := byName[strings.ToLower(info.Name)]; ok {
			row.Id = current.Id
			updated, err := c.db.UpdateClusterNode(ctx, row)
			if err != nil {
				return err
			}
			changed = changed || updated
			continue
		}
		row.Id = uuid.NewString()
		row.CreatedAt = info.UpdatedAt
		row.CreatedBy = dbclient.DispatcherPrincipal
		if err := c.db.InsertClusterNode(ctx, row); err != nil {
			if commonerrors.IsConflict(err) {
				continue
			}
			return err
		}
		changed = true
	}

	stale := lo.FilterMap(existing, func(node *dbclient.ClusterNode, _ int) (string, bool) {
		return node.Name, !seen[strings.ToLower(node.Name)]
	})
	if len(stale) > 0 {
		if err := c.db.DeleteClusterNodes(ctx, cluster.Id, stale); err != nil {
			return err
		}
		changed = true
	}

	if !changed {
		return nil
	}
	c.publishCapacityMetric(ctx, cluster)
	return c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		return c.enqueueAllocation(ctx, txc, box, cluster.Id)
	})
}

func (c *InventoryController) publishCapacityMetric(ctx context.Context, cluster *dbclient.Cluster) {
	org, err := c.db.GetOrganization(ctx, cluster.OrganizationId)
	if err != nil {
		return
	}
	nodes, err := c.db.SelectClusterNodes(ctx, cluster.Id)
	if err != nil {
		return
	}
	available, _ := deriveClusterResources(nodes)
	metrics.SetClusterCapacity(org.Name, cluster.Name, available.GpuCount)
}

// AvailableResources derives the live capacity and GPU description of the
// cluster for read APIs and quota validation.
func (c *InventoryController) AvailableResources(ctx context.Context, clusterId string) (v1.Resources, v1.GpuInfo, error) {
	nodes, err := c.db.SelectClusterNodes(ctx, clusterId)
	if err != nil {
		return v1.Resources{}, v1.GpuInfo{}, err
	}
	available, gpu := deriveClusterResources(nodes)
	return available, gpu, nil
}

// AllocatedResources sums every quota that still occupies capacity.
func (c *InventoryController) AllocatedResources(ctx context.Context, clusterId string) (v1.Resources, error) {
	quotas, err := c.db.SelectClusterQuotas(ctx, clusterId)
	if err != nil {
		return v1.Resources{}, err
	}
	return quota.AllocatedActive(quotas), nil
}

func nodeRow(clusterId string, info v1.NodeInfo) *dbclient.ClusterNode {
	return &dbclient.ClusterNode{
		ClusterId:             clusterId,
		Name:                  info.Name,
		CpuMilli:              info.CpuMilli,
		MemoryBytes:           info.MemoryBytes,
		EphemeralStorageBytes: info.EphemeralStorageBytes,
		GpuCount:              info.GpuCount,
		GpuVendor:             dbutils.NullString(info.Gpu.Vendor),
		GpuType:               dbutils.NullString(info.Gpu.Type),
		GpuProduct:            dbutils.NullString(info.Gpu.Product),
		GpuVramBytes:          info.Gpu.VramPerGpuBytes,
		IsReady:               info.IsReady,
		Status:                dbutils.NullString(info.Status),
		UpdatedAt:             info.UpdatedAt,
		UpdatedBy:             dbclient.DispatcherPrincipal,
	}
}
