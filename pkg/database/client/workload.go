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

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

const (
	TWorkload          = "workload"
	TWorkloadComponent = "workload_component"
)

var (
	insertWorkloadFormat  = `INSERT INTO ` + TWorkload + ` (%s) VALUES (%s)`
	getWorkloadCmd        = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TWorkload)
	setWorkloadStatusCmd  = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TWorkload)
	setWorkloadIfOlderCmd = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = '%s'
		WHERE id = $1 AND updated_at <= $4`, TWorkload, DispatcherPrincipal)
	deleteWorkloadCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TWorkload)

	// selectAimAuthGroupsCmd resolves the auth group ids of the AIM's
	// inference workloads that are still running or pending. Key bindings
	// follow these groups.
	selectAimAuthGroupsCmd = fmt.Sprintf(`SELECT DISTINCT auth_group_id FROM %s
		WHERE aim_id = $1 AND auth_group_id IS NOT NULL AND status IN ($2, $3)`, TWorkload)

	// upsertComponentCmd lets an auto-discovered announcement and the create
	// path race safely: the later write only refreshes mutable fields.
	upsertComponentCmd = `INSERT INTO ` + TWorkloadComponent + ` (%s) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			namespace = EXCLUDED.namespace,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`
	getComponentCmd        = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TWorkloadComponent)
	selectComponentsCmd    = fmt.Sprintf(`SELECT * FROM %s WHERE workload_id = $1 ORDER BY created_at`, TWorkloadComponent)
	setComponentIfOlderCmd = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = '%s'
		WHERE id = $1 AND updated_at <= $4`, TWorkloadComponent, DispatcherPrincipal)
	deleteComponentsCmd = fmt.Sprintf(`DELETE FROM %s WHERE workload_id = $1`, TWorkloadComponent)
)

func (c *Client) InsertWorkload(ctx context.Context, workload *Workload) error {
	if workload == nil {
		return commonerrors.NewValidation("the workload is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*workload, insertWorkloadFormat, ""), workload)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("workload %s already exists", workload.Name))
		}
		klog.ErrorS(err, "failed to insert workload", "name", workload.Name)
		return err
	}
	return nil
}

func (c *Client) GetWorkload(ctx context.Context, id string) (*Workload, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var workload Workload
	if err := sqlx.GetContext(ctx, ext, &workload, getWorkloadCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.WorkloadKind, id)
		}
		return nil, err
	}
	return &workload, nil
}

func (c *Client) SelectWorkloads(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Workload, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TWorkload)
	if query != nil {
		builder = builder.Where(query)
	}
	for _, order := range orderBy {
		builder = builder.OrderBy(order)
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}
	sql2, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var workloads []*Workload
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &workloads, sql2, args...); err != nil {
		return nil, err
	}
	return workloads, nil
}

func (c *Client) CountWorkloads(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	ext, err := c.ext()
	if err != nil {
		return 0, err
	}
	sql2, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TWorkload).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = sqlx.GetContext(ctx, ext, &cnt, sql2, args...)
	return cnt, err
}

func (c *Client) SetWorkloadStatus(ctx context.Context, id string, status v1.WorkloadStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setWorkloadStatusCmd, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set workload status", "id", id, "status", status)
	}
	return err
}

func (c *Client) SetWorkloadStatusIfOlder(ctx context.Context, id string, status v1.WorkloadStatus, reason string, threshold time.Time) (bool, error) {
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	res, err := ext.ExecContext(ctx, setWorkloadIfOlderCmd, id, status, dbutils.NullString(reason), threshold.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to set workload status", "id", id, "status", status)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) SelectAimAuthGroups(ctx context.Context, aimId string) ([]string, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var groups []string
	if err := sqlx.SelectContext(ctx, ext, &groups, selectAimAuthGroupsCmd,
		aimId, v1.WorkloadRunning, v1.WorkloadPending); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) DeleteWorkload(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteWorkloadCmd, id)
	return err
}

func (c *Client) UpsertWorkloadComponent(ctx context.Context, component *WorkloadComponent) error {
	if component == nil {
		return commonerrors.NewValidation("the component is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*component, upsertComponentCmd, ""), component)
	if err != nil {
		klog.ErrorS(err, "failed to upsert workload component", "id", component.Id)
		return err
	}
	return nil
}

func (c *Client) GetWorkloadComponent(ctx context.Context, id string) (*WorkloadComponent, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var component WorkloadComponent
	if err := sqlx.GetContext(ctx, ext, &component, getComponentCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ComponentKind, id)
		}
		return nil, err
	}
	return &component, nil
}

func (c *Client) SelectWorkloadComponents(ctx context.Context, workloadId string) ([]*WorkloadComponent, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var components []*WorkloadComponent
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &components, selectComponentsCmd, workloadId); err != nil {
		return nil, err
	}
	return components, nil
}

func (c *Client) SetWorkloadComponentStatusIfOlder(ctx context.Context, id string, status v1.ComponentStatus, reason string, threshold time.Time) (bool, error) {
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	res, err := ext.ExecContext(ctx, setComponentIfOlderCmd, id, status, dbutils.NullString(reason), threshold.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to set workload component status", "id", id, "status", status)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) DeleteWorkloadComponents(ctx context.Context, workloadId string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteComponentsCmd, workloadId)
	return err
}
