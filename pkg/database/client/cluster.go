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
	TCluster     = "cluster"
	TClusterNode = "cluster_node"
)

var (
	insertClusterFormat     = `INSERT INTO ` + TCluster + ` (%s) VALUES (%s)`
	getClusterCmd           = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TCluster)
	getClusterByNameCmd     = fmt.Sprintf(`SELECT * FROM %s WHERE organization_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`, TCluster)
	setClusterNameCmd       = fmt.Sprintf(`UPDATE %s SET name = $2, updated_at = $3, updated_by = $4 WHERE id = $1`, TCluster)
	advanceHeartbeatCmd     = fmt.Sprintf(`UPDATE %s SET last_heartbeat_at = $2, updated_at = $2, updated_by = '%s' WHERE id = $1 AND (last_heartbeat_at IS NULL OR last_heartbeat_at < $2)`, TCluster, DispatcherPrincipal)
	deleteClusterCmd        = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TCluster)
	insertClusterNodeFormat = `INSERT INTO ` + TClusterNode + ` (%s) VALUES (%s)`
	updateClusterNodeCmd    = fmt.Sprintf(`UPDATE %s
		SET cpu_milli = :cpu_milli,
		    memory_bytes = :memory_bytes,
		    ephemeral_storage_bytes = :ephemeral_storage_bytes,
		    gpu_count = :gpu_count,
		    gpu_vendor = :gpu_vendor,
		    gpu_type = :gpu_type,
		    gpu_product = :gpu_product,
		    gpu_vram_bytes = :gpu_vram_bytes,
		    is_ready = :is_ready,
		    status = :status,
		    updated_at = :updated_at,
		    updated_by = :updated_by
		WHERE id = :id AND updated_at < :updated_at`, TClusterNode)
	selectClusterNodesCmd = fmt.Sprintf(`SELECT * FROM %s WHERE cluster_id = $1 ORDER BY name`, TClusterNode)
)

func (c *Client) InsertCluster(ctx context.Context, cluster *Cluster) error {
	if cluster == nil {
		return commonerrors.NewValidation("the cluster is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*cluster, insertClusterFormat, ""), cluster)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("cluster %s already exists", cluster.Name))
		}
		klog.ErrorS(err, "failed to insert cluster", "name", cluster.Name)
		return err
	}
	return nil
}

func (c *Client) GetCluster(ctx context.Context, id string) (*Cluster, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var cluster Cluster
	if err := sqlx.GetContext(ctx, ext, &cluster, getClusterCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ClusterKind, id)
		}
		return nil, err
	}
	return &cluster, nil
}

// GetClusterByName matches case-insensitively within the organization.
func (c *Client) GetClusterByName(ctx context.Context, organizationId, name string) (*Cluster, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var cluster Cluster
	if err := sqlx.GetContext(ctx, ext, &cluster, getClusterByNameCmd, organizationId, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ClusterKind, name)
		}
		return nil, err
	}
	return &cluster, nil
}

func (c *Client) SelectClusters(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Cluster, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TCluster)
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
	var clusters []*Cluster
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &clusters, sql2, args...); err != nil {
		return nil, err
	}
	return clusters, nil
}

func (c *Client) CountClusters(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	ext, err := c.ext()
	if err != nil {
		return 0, err
	}
	sql2, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TCluster).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = sqlx.GetContext(ctx, ext, &cnt, sql2, args...)
	return cnt, err
}

// SetClusterName is used by heartbeat adoption when the stored name is unset
// or stale.
func (c *Client) SetClusterName(ctx context.Context, id, name, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setClusterNameCmd, id, name, time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set cluster name", "id", id, "name", name)
	}
	return err
}

// AdvanceClusterHeartbeat moves last_heartbeat_at forward only; older
// timestamps are ignored.
func (c *Client) AdvanceClusterHeartbeat(ctx context.Context, id string, at time.Time) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, advanceHeartbeatCmd, id, at.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to advance cluster heartbeat", "id", id)
	}
	return err
}

func (c *Client) DeleteCluster(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteClusterCmd, id)
	return err
}

func (c *Client) InsertClusterNode(ctx context.Context, node *ClusterNode) error {
	if node == nil {
		return commonerrors.NewValidation("the node is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*node, insertClusterNodeFormat, ""), node)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("node %s already exists", node.Name))
		}
		klog.ErrorS(err, "failed to insert cluster node", "name", node.Name)
		return err
	}
	return nil
}

// UpdateClusterNode applies the row only when its updated_at strictly
// dominates the persisted one. Returns whether a row changed.
func (c *Client) UpdateClusterNode(ctx context.Context, node *ClusterNode) (bool, error) {
	if node == nil {
		return false, commonerrors.NewValidation("the node is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	res, err := sqlx.NamedExecContext(ctx, ext, updateClusterNodeCmd, node)
	if err != nil {
		klog.ErrorS(err, "failed to update cluster node", "name", node.Name)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) SelectClusterNodes(ctx context.Context, clusterId string) ([]*ClusterNode, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var nodes []*ClusterNode
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &nodes, selectClusterNodesCmd, clusterId); err != nil {
		return nil, err
	}
	return nodes, nil
}

// DeleteClusterNodes removes the named nodes of the cluster.
func (c *Client) DeleteClusterNodes(ctx context.Context, clusterId string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	sql2, args, err := sqrl.Delete(TClusterNode).PlaceholderFormat(sqrl.Dollar).
		Where(sqrl.Eq{"cluster_id": clusterId, "name": names}).ToSql()
	if err != nil {
		return err
	}
	if _, err := ext.ExecContext(ctx, sql2, args...); err != nil {
		klog.ErrorS(err, "failed to delete cluster nodes", "cluster", clusterId, "count", len(names))
		return err
	}
	return nil
}
