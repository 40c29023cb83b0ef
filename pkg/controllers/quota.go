/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/metrics"
	"github.com/amd-enterprise-ai/airm/pkg/quota"
)

// QuotaController edits quotas and folds applied-queue reports back into
// per-quota status.
type QuotaController struct {
	*base
	projects *ProjectController
}

// UpdateQuota rewrites the project's quota vector. An unchanged vector only
// settles the status to Ready; nothing is published because the cluster
// already runs this layout.
func (c *QuotaController) UpdateQuota(ctx context.Context, projectId string, proposed v1.Resources, principal string) (*dbclient.Quota, error) {
	project, err := c.db.GetProject(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if project.Status == string(v1.ProjectDeleting) {
		return nil, commonerrors.NewConflict(fmt.Sprintf("project %s is being deleted", project.Name))
	}
	quotaRow, err := c.db.GetQuotaByProject(ctx, projectId)
	if err != nil {
		return nil, err
	}
	current := v1.Resources{
		CpuMilli:              quotaRow.CpuMilli,
		MemoryBytes:           quotaRow.MemoryBytes,
		EphemeralStorageBytes: quotaRow.EphemeralStorageBytes,
		GpuCount:              quotaRow.GpuCount,
	}
	if current == proposed {
		if err := c.db.SetQuotaStatus(ctx, quotaRow.Id, v1.QuotaReady, "", principal); err != nil {
			return nil, err
		}
		quotaRow.Status = string(v1.QuotaReady)
		return quotaRow, nil
	}

	nodes, err := c.db.SelectClusterNodes(ctx, project.ClusterId)
	if err != nil {
		return nil, err
	}
	available, _ := deriveClusterResources(nodes)
	quotas, err := c.db.SelectClusterQuotas(ctx, project.ClusterId)
	if err != nil {
		return nil, err
	}
	if err := quota.Validate(proposed, available, quota.AllocatedOthers(quotas, quotaRow.Id)); err != nil {
		return nil, err
	}

	quotaRow.CpuMilli = proposed.CpuMilli
	quotaRow.MemoryBytes = proposed.MemoryBytes
	quotaRow.EphemeralStorageBytes = proposed.EphemeralStorageBytes
	quotaRow.GpuCount = proposed.GpuCount
	quotaRow.Status = string(v1.QuotaPending)
	quotaRow.StatusReason = dbutils.NullString("applying to cluster")
	quotaRow.UpdatedBy = principal
	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.UpdateQuotaResources(ctx, quotaRow); err != nil {
			return err
		}
		return c.enqueueAllocation(ctx, txc, box, project.ClusterId)
	})
	if err != nil {
		return nil, err
	}
	return quotaRow, nil
}

// HandleQuotasStatus diff-matches the applied queue layout a dispatcher
// reports against the configured quotas and persists the consequences. Each
// touched quota re-rolls its project.
func (c *QuotaController) HandleQuotasStatus(ctx context.Context, msg *v1.ClusterQuotasStatus) error {
	cluster, err := c.resolveCluster(ctx, msg.OrganizationName, msg.ClusterName)
	if err != nil || cluster == nil {
		return err
	}
	quotas, err := c.db.SelectClusterQuotas(ctx, cluster.Id)
	if err != nil {
		return err
	}
	for _, transition := range quota.BuildTransitions(quotas, msg.Quotas, msg.UpdatedAt) {
		if err := c.applyTransition(ctx, transition, msg.UpdatedAt); err != nil {
			return err
		}
		if err := c.projects.RollupProject(ctx, transition.ProjectId); err != nil {
			return err
		}
	}
	c.publishAllocationMetrics(ctx, cluster)
	return nil
}

func (c *QuotaController) applyTransition(ctx context.Context, t quota.Transition, reportedAt time.Time) error {
	switch {
	case t.HardDelete:
		return c.db.DeleteQuota(ctx, t.QuotaId)
	case t.Resources != nil:
		_, err := c.db.SetQuotaResourcesIfOlder(ctx, t.QuotaId, *t.Resources, t.Status, t.Reason, reportedAt)
		return err
	default:
		_, err := c.db.SetQuotaStatusIfOlder(ctx, t.QuotaId, t.Status, t.Reason, reportedAt)
		return err
	}
}

// HandleQuotasFailure fails every quota still waiting on the cluster when the
// dispatcher could not apply the allocation at all.
func (c *QuotaController) HandleQuotasFailure(ctx context.Context, msg *v1.ClusterQuotasFailure) error {
	cluster, err := c.resolveCluster(ctx, msg.OrganizationName, msg.ClusterName)
	if err != nil || cluster == nil {
		return err
	}
	klog.ErrorS(nil, "cluster rejected quota allocation", "cluster", cluster.Name, "reason", msg.Reason)
	quotas, err := c.db.SelectClusterQuotas(ctx, cluster.Id)
	if err != nil {
		return err
	}
	for _, quotaRow := range quotas {
		if quotaRow.Status != string(v1.QuotaPending) {
			continue
		}
		changed, err := c.db.SetQuotaStatusIfOlder(ctx, quotaRow.Id, v1.QuotaFailed, msg.Reason, msg.UpdatedAt)
		if err != nil {
			return err
		}
		if changed {
			if err := c.projects.RollupProject(ctx, quotaRow.ProjectId); err != nil {
				return err
			}
		}
	}
	return nil
}

// publishAllocationMetrics refreshes the per-project allocation gauges from
// the current quota rows.
func (c *QuotaController) publishAllocationMetrics(ctx context.Context, cluster *dbclient.Cluster) {
	org, err := c.db.GetOrganization(ctx, cluster.OrganizationId)
	if err != nil {
		return
	}
	nodes, err := c.db.SelectClusterNodes(ctx, cluster.Id)
	if err != nil {
		return
	}
	_, gpu := deriveClusterResources(nodes)
	quotas, err := c.db.SelectClusterQuotas(ctx, cluster.Id)
	if err != nil {
		return
	}
	for _, quotaRow := range quotas {
		if !quota.IsActive(v1.QuotaStatus(quotaRow.Status)) {
			metrics.ClearQuotaAllocation(org.Name, cluster.Name, quotaRow.ProjectName)
			continue
		}
		metrics.SetQuotaAllocation(org.Name, cluster.Name, quotaRow.ProjectName,
			quotaRow.GpuCount, quotaRow.GpuCount*gpu.VramPerGpuBytes)
	}
}
