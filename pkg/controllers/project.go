/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/idp"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/metrics"
	"github.com/amd-enterprise-ai/airm/pkg/quota"
	"github.com/amd-enterprise-ai/airm/pkg/status"
	"github.com/amd-enterprise-ai/airm/pkg/utils/stringutil"
)

// ProjectController orchestrates the project lifecycle: namespace plus quota
// creation in one transaction, status rollup on component changes and ordered
// teardown finishing with a hard delete.
type ProjectController struct {
	*base
	idp idp.Interface
}

type CreateProjectRequest struct {
	OrganizationId string
	ClusterId      string
	Name           string
	Description    string
	Quota          v1.Resources
	Principal      string
}

// ValidateProjectName enforces the DNS label form, the length window and the
// restricted name set.
func ValidateProjectName(name string) error {
	if len(name) < v1.ProjectNameMinLen || len(name) > v1.ProjectNameMaxLen {
		return commonerrors.NewValidation(fmt.Sprintf("project name must be %d to %d characters",
			v1.ProjectNameMinLen, v1.ProjectNameMaxLen))
	}
	if !v1.ProjectNameRegexp.MatchString(name) {
		return commonerrors.NewValidation("project name must be a lowercase DNS label")
	}
	if stringutil.ContainsFold(v1.RestrictedProjectNames, name) {
		return commonerrors.NewRestrictedName(name)
	}
	return nil
}

// CreateProject runs the five-step create: identity-provider group, project,
// quota and namespace rows, then the allocation and namespace-create messages.
// Everything after the group creation shares one transaction and outbox.
func (c *ProjectController) CreateProject(ctx context.Context, req CreateProjectRequest) (*dbclient.Project, error) {
	if err := ValidateProjectName(req.Name); err != nil {
		return nil, err
	}
	org, err := c.db.GetOrganization(ctx, req.OrganizationId)
	if err != nil {
		return nil, err
	}
	cluster, err := c.db.GetCluster(ctx, req.ClusterId)
	if err != nil {
		return nil, err
	}
	if cluster.OrganizationId != org.Id {
		return nil, commonerrors.NewNotFound(v1.ClusterKind, req.ClusterId)
	}
	if derived := DeriveClusterStatus(cluster, time.Now()); derived != v1.ClusterHealthy {
		return nil, commonerrors.NewPreconditionNotMet(
			fmt.Sprintf("cluster %s is %s, projects need a healthy cluster", cluster.Name, derived))
	}
	// One queue slot is always reserved for the catch-all.
	limit := commonconfig.GetMaxProjectsPerCluster() - 1
	count, err := c.db.CountClusterProjects(ctx, cluster.Id)
	if err != nil {
		return nil, err
	}
	if count >= limit {
		return nil, commonerrors.NewClusterFull(cluster.Name, limit)
	}
	if _, err := c.db.GetProjectByName(ctx, org.Id, req.Name); err == nil {
		return nil, commonerrors.NewConflict(fmt.Sprintf("project %s already exists", req.Name))
	} else if !commonerrors.IsNotFound(err) {
		return nil, err
	}
	nodes, err := c.db.SelectClusterNodes(ctx, cluster.Id)
	if err != nil {
		return nil, err
	}
	available, _ := deriveClusterResources(nodes)
	quotas, err := c.db.SelectClusterQuotas(ctx, cluster.Id)
	if err != nil {
		return nil, err
	}
	if err := quota.Validate(req.Quota, available, quota.AllocatedActive(quotas)); err != nil {
		return nil, err
	}

	groupId, err := c.idp.CreateGroup(ctx, dbutils.ParseNullString(org.IdpGroupId), req.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project := &dbclient.Project{
		Id:             uuid.NewString(),
		OrganizationId: org.Id,
		ClusterId:      cluster.Id,
		Name:           req.Name,
		Description:    dbutils.NullString(req.Description),
		IdpGroupId:     dbutils.NullString(groupId),
		Status:         string(v1.ProjectPending),
		StatusReason:   dbutils.NullString("being created"),
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      req.Principal,
		UpdatedBy:      req.Principal,
	}
	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.InsertProject(ctx, project); err != nil {
			return err
		}
		if err := txc.InsertQuota(ctx, &dbclient.Quota{
			Id:                    uuid.NewString(),
			ProjectId:             project.Id,
			CpuMilli:              req.Quota.CpuMilli,
			MemoryBytes:           req.Quota.MemoryBytes,
			EphemeralStorageBytes: req.Quota.EphemeralStorageBytes,
			GpuCount:              req.Quota.GpuCount,
			Status:                string(v1.QuotaPending),
			CreatedAt:             now,
			UpdatedAt:             now,
			CreatedBy:             req.Principal,
			UpdatedBy:             req.Principal,
		}); err != nil {
			return err
		}
		if err := txc.InsertNamespace(ctx, &dbclient.Namespace{
			Id:           uuid.NewString(),
			ProjectId:    project.Id,
			ClusterId:    cluster.Id,
			Name:         project.Name,
			Status:       string(v1.NamespacePending),
			StatusReason: dbutils.NullString("creating"),
			CreatedAt:    now,
			UpdatedAt:    now,
			CreatedBy:    req.Principal,
			UpdatedBy:    req.Principal,
		}); err != nil {
			return err
		}
		if err := c.enqueueAllocation(ctx, txc, box, cluster.Id); err != nil {
			return err
		}
		box.Enqueue(cluster.Id, v1.NewProjectNamespaceCreate(project.Id, project.Name, map[string]string{
			v1.ProjectIdLabel:    project.Id,
			v1.QueueManagedLabel: "true",
		}, now))
		return nil
	})
	if err != nil {
		// The group is orphaned if it stays; removal failure only leaves an
		// unused identity-provider group behind.
		if delErr := c.idp.DeleteGroup(ctx, groupId); delErr != nil {
			klog.ErrorS(delErr, "failed to delete group after project create rollback", "group", groupId)
		}
		return nil, err
	}
	metrics.SetQuotaAllocation(org.Name, cluster.Name, project.Name, req.Quota.GpuCount, 0)
	return project, nil
}

// DeleteProject starts teardown: quota to Deleting (which drops it from the
// re-emitted allocation), namespace to Terminating, namespace-delete message.
// The hard delete happens later, when both components confirm removal.
func (c *ProjectController) DeleteProject(ctx context.Context, projectId, principal string) error {
	project, err := c.db.GetProject(ctx, projectId)
	if err != nil {
		return err
	}
	if project.Status == string(v1.ProjectDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("project %s is already being deleted", project.Name))
	}
	now := time.Now().UTC()
	return c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.SetProjectStatus(ctx, project.Id, v1.ProjectDeleting, "being deleted", principal); err != nil {
			return err
		}
		quotaRow, err := txc.GetQuotaByProject(ctx, project.Id)
		if err == nil {
			if err := txc.SetQuotaStatus(ctx, quotaRow.Id, v1.QuotaDeleting, "project deletion", principal); err != nil {
				return err
			}
		} else if !commonerrors.IsNotFound(err) {
			return err
		}
		namespace, err := txc.GetNamespaceByProject(ctx, project.Id)
		if err == nil {
			if err := txc.SetNamespaceStatus(ctx, namespace.Id, v1.NamespaceTerminating, "project deletion", principal); err != nil {
				return err
			}
			box.Enqueue(project.ClusterId, v1.NewProjectNamespaceDelete(project.Id, namespace.Name, now))
		} else if !commonerrors.IsNotFound(err) {
			return err
		}
		return c.enqueueAllocation(ctx, txc, box, project.ClusterId)
	})
}

// HandleNamespaceStatus applies a dispatcher namespace report and re-rolls the
// project status.
func (c *ProjectController) HandleNamespaceStatus(ctx context.Context, msg *v1.ProjectNamespaceStatus) error {
	namespace, err := c.db.GetNamespaceByProject(ctx, msg.ProjectId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("namespace status for unknown project, dropping", "project", msg.ProjectId)
			return nil
		}
		return err
	}
	changed, err := c.db.SetNamespaceStatusIfOlder(ctx, namespace.Id, msg.Status, msg.Reason, msg.UpdatedAt)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return c.RollupProject(ctx, msg.ProjectId)
}

// RollupProject recomputes the project status from its namespace and quota.
// While the project is Deleting it instead checks for teardown completion and
// hard-deletes the project once both components are gone.
func (c *ProjectController) RollupProject(ctx context.Context, projectId string) error {
	project, err := c.db.GetProject(ctx, projectId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	namespaceStatus, namespaceReason := v1.NamespaceDeleted, ""
	var namespaceRow *dbclient.Namespace
	if namespaceRow, err = c.db.GetNamespaceByProject(ctx, projectId); err == nil {
		namespaceStatus = v1.NamespaceStatus(namespaceRow.Status)
		namespaceReason = dbutils.ParseNullString(namespaceRow.StatusReason)
	} else if !commonerrors.IsNotFound(err) {
		return err
	}

	quotaStatus, quotaReason := v1.QuotaDeleted, ""
	var quotaRow *dbclient.Quota
	if quotaRow, err = c.db.GetQuotaByProject(ctx, projectId); err == nil {
		quotaStatus = v1.QuotaStatus(quotaRow.Status)
		quotaReason = dbutils.ParseNullString(quotaRow.StatusReason)
	} else if !commonerrors.IsNotFound(err) {
		return err
	}

	if project.Status == string(v1.ProjectDeleting) {
		namespaceGone := namespaceRow == nil || namespaceStatus == v1.NamespaceDeleted
		quotaGone := quotaRow == nil || quotaStatus == v1.QuotaDeleted
		if namespaceGone && quotaGone {
			return c.finalizeDelete(ctx, project, namespaceRow, quotaRow)
		}
		return nil
	}

	resolved, reason := status.ResolveProject(v1.ProjectStatus(project.Status),
		namespaceStatus, namespaceReason, quotaStatus, quotaReason)
	if string(resolved) == project.Status && reason == dbutils.ParseNullString(project.StatusReason) {
		return nil
	}
	return c.db.SetProjectStatus(ctx, project.Id, resolved, reason, dbclient.DispatcherPrincipal)
}

// finalizeDelete hard-deletes the project with its component rows and removes
// the identity-provider group.
func (c *ProjectController) finalizeDelete(ctx context.Context, project *dbclient.Project,
	namespaceRow *dbclient.Namespace, quotaRow *dbclient.Quota) error {
	err := c.db.WithTransaction(ctx, func(txc *dbclient.Client) error {
		if namespaceRow != nil {
			if err := txc.DeleteNamespace(ctx, namespaceRow.Id); err != nil {
				return err
			}
		}
		if quotaRow != nil {
			if err := txc.DeleteQuota(ctx, quotaRow.Id); err != nil {
				return err
			}
		}
		return txc.DeleteProject(ctx, project.Id)
	})
	if err != nil {
		return err
	}
	if groupId := dbutils.ParseNullString(project.IdpGroupId); groupId != "" {
		if err := c.idp.DeleteGroup(ctx, groupId); err != nil {
			klog.ErrorS(err, "failed to delete project group", "project", project.Name, "group", groupId)
		}
	}
	if org, err := c.db.GetOrganization(ctx, project.OrganizationId); err == nil {
		if cluster, err := c.db.GetCluster(ctx, project.ClusterId); err == nil {
			metrics.ClearQuotaAllocation(org.Name, cluster.Name, project.Name)
		}
	}
	klog.InfoS("project deleted", "project", project.Name, "id", project.Id)
	return nil
}
