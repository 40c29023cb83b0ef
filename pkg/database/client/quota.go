/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

const (
	TQuota = "quota"
)

var (
	insertQuotaFormat    = `INSERT INTO ` + TQuota + ` (%s) VALUES (%s)`
	getQuotaCmd          = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TQuota)
	getQuotaByProjectCmd = fmt.Sprintf(`SELECT * FROM %s WHERE project_id = $1 LIMIT 1`, TQuota)
	updateQuotaResources = fmt.Sprintf(`UPDATE %s
		SET cpu_milli = :cpu_milli,
		    memory_bytes = :memory_bytes,
		    ephemeral_storage_bytes = :ephemeral_storage_bytes,
		    gpu_count = :gpu_count,
		    status = :status,
		    status_reason = :status_reason,
		    updated_at = :updated_at,
		    updated_by = :updated_by
		WHERE id = :id`, TQuota)
	setQuotaStatusCmd = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TQuota)
	// setQuotaStatusIfOlderCmd applies the transition only when the persisted
	// row is not newer than the message timestamp. updated_at keeps the
	// message time, not now(), so monotonicity survives replays.
	setQuotaStatusIfOlderCmd = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = '%s'
		WHERE id = $1 AND updated_at <= $4`, TQuota, DispatcherPrincipal)
	setQuotaResourcesIfOlderCmd = fmt.Sprintf(`UPDATE %s
		SET cpu_milli = $2, memory_bytes = $3, ephemeral_storage_bytes = $4, gpu_count = $5,
		    status = $6, status_reason = $7, updated_at = $8, updated_by = '%s'
		WHERE id = $1 AND updated_at <= $8`, TQuota, DispatcherPrincipal)
	deleteQuotaCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TQuota)
	// selectClusterQuotasCmd joins each quota with its project's name, status
	// and namespace, which is everything the allocation builder needs.
	selectClusterQuotasCmd = fmt.Sprintf(`SELECT q.*, p.name AS project_name, p.status AS project_status, n.name AS namespace_name
		FROM %s q
		JOIN %s p ON p.id = q.project_id
		LEFT JOIN %s n ON n.project_id = p.id
		WHERE p.cluster_id = $1
		ORDER BY p.name`, TQuota, TProject, TNamespace)
)

func (c *Client) InsertQuota(ctx context.Context, quota *Quota) error {
	if quota == nil {
		return commonerrors.NewValidation("the quota is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*quota, insertQuotaFormat, ""), quota)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("quota for project %s already exists", quota.ProjectId))
		}
		klog.ErrorS(err, "failed to insert quota", "project", quota.ProjectId)
		return err
	}
	return nil
}

func (c *Client) GetQuota(ctx context.Context, id string) (*Quota, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var quota Quota
	if err := sqlx.GetContext(ctx, ext, &quota, getQuotaCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.QuotaKind, id)
		}
		return nil, err
	}
	return &quota, nil
}

func (c *Client) GetQuotaByProject(ctx context.Context, projectId string) (*Quota, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var quota Quota
	if err := sqlx.GetContext(ctx, ext, &quota, getQuotaByProjectCmd, projectId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.QuotaKind, projectId)
		}
		return nil, err
	}
	return &quota, nil
}

// UpdateQuotaResources rewrites the resource vector together with status and
// reason. The caller decides Pending (republish) or Ready (no-change edit).
func (c *Client) UpdateQuotaResources(ctx context.Context, quota *Quota) error {
	if quota == nil {
		return commonerrors.NewValidation("the quota is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	quota.UpdatedAt = time.Now().UTC()
	if _, err := sqlx.NamedExecContext(ctx, ext, updateQuotaResources, quota); err != nil {
		klog.ErrorS(err, "failed to update quota resources", "id", quota.Id)
		return err
	}
	return nil
}

func (c *Client) SetQuotaStatus(ctx context.Context, id string, status v1.QuotaStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setQuotaStatusCmd, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set quota status", "id", id, "status", status)
	}
	return err
}

func (c *Client) SetQuotaStatusIfOlder(ctx context.Context, id string, status v1.QuotaStatus, reason string, threshold time.Time) (bool, error) {
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	res, err := ext.ExecContext(ctx, setQuotaStatusIfOlderCmd, id, status, dbutils.NullString(reason), threshold.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to set quota status", "id", id, "status", status)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) SetQuotaResourcesIfOlder(ctx context.Context, id string, res v1.Resources, status v1.QuotaStatus, reason string, threshold time.Time) (bool, error) {
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	result, err := ext.ExecContext(ctx, setQuotaResourcesIfOlderCmd, id,
		res.CpuMilli, res.MemoryBytes, res.EphemeralStorageBytes, res.GpuCount,
		status, dbutils.NullString(reason), threshold.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to set quota resources", "id", id, "status", status)
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) SelectClusterQuotas(ctx context.Context, clusterId string) ([]*ProjectQuota, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var quotas []*ProjectQuota
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &quotas, selectClusterQuotasCmd, clusterId); err != nil {
		return nil, err
	}
	return quotas, nil
}

func (c *Client) DeleteQuota(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteQuotaCmd, id)
	return err
}
