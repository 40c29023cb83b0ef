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
	TStorage                 = "storage"
	TProjectStorage          = "project_storage"
	TProjectStorageConfigmap = "project_storage_configmap"
)

var (
	insertStorageFormat = `INSERT INTO ` + TStorage + ` (%s) VALUES (%s)`
	getStorageCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TStorage)
	getStorageByNameCmd = fmt.Sprintf(`SELECT * FROM %s WHERE organization_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`, TStorage)
	updateStorageCmd    = fmt.Sprintf(`UPDATE %s
		SET secret_id = :secret_id,
		    bucket_url = :bucket_url,
		    access_key_field = :access_key_field,
		    secret_key_field = :secret_key_field,
		    status = :status,
		    status_reason = :status_reason,
		    updated_at = :updated_at,
		    updated_by = :updated_by
		WHERE id = :id`, TStorage)
	setStorageStatusCmd = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TStorage)
	deleteStorageCmd    = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TStorage)

	insertProjectStorageFormat = `INSERT INTO ` + TProjectStorage + ` (%s) VALUES (%s)`
	getProjectStorageCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE storage_id = $1 AND project_id = $2 LIMIT 1`, TProjectStorage)
	setProjectStorageStatusCmd = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TProjectStorage)
	deleteProjectStorageCmd    = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TProjectStorage)

	insertConfigmapFormat = `INSERT INTO ` + TProjectStorageConfigmap + ` (%s) VALUES (%s)`
	getConfigmapCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE project_storage_id = $1 LIMIT 1`, TProjectStorageConfigmap)
	setConfigmapIfOlder   = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = '%s'
		WHERE id = $1 AND updated_at <= $4`, TProjectStorageConfigmap, DispatcherPrincipal)
	deleteConfigmapCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TProjectStorageConfigmap)
)

func (c *Client) InsertStorage(ctx context.Context, storage *Storage) error {
	if storage == nil {
		return commonerrors.NewValidation("the storage is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*storage, insertStorageFormat, ""), storage)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("storage %s already exists", storage.Name))
		}
		klog.ErrorS(err, "failed to insert storage", "name", storage.Name)
		return err
	}
	return nil
}

func (c *Client) GetStorage(ctx context.Context, id string) (*Storage, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var storage Storage
	if err := sqlx.GetContext(ctx, ext, &storage, getStorageCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.StorageKind, id)
		}
		return nil, err
	}
	return &storage, nil
}

func (c *Client) GetStorageByName(ctx context.Context, organizationId, name string) (*Storage, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var storage Storage
	if err := sqlx.GetContext(ctx, ext, &storage, getStorageByNameCmd, organizationId, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.StorageKind, name)
		}
		return nil, err
	}
	return &storage, nil
}

func (c *Client) SelectStorages(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Storage, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TStorage)
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
	var storages []*Storage
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &storages, sql2, args...); err != nil {
		return nil, err
	}
	return storages, nil
}

func (c *Client) UpdateStorage(ctx context.Context, storage *Storage) error {
	if storage == nil {
		return commonerrors.NewValidation("the storage is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	storage.UpdatedAt = time.Now().UTC()
	if _, err := sqlx.NamedExecContext(ctx, ext, updateStorageCmd, storage); err != nil {
		klog.ErrorS(err, "failed to update storage", "id", storage.Id)
		return err
	}
	return nil
}

func (c *Client) SetStorageStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setStorageStatusCmd, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set storage status", "id", id, "status", status)
	}
	return err
}

func (c *Client) DeleteStorage(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteStorageCmd, id)
	return err
}

func (c *Client) InsertProjectStorage(ctx context.Context, ps *ProjectStorage) error {
	if ps == nil {
		return commonerrors.NewValidation("the project storage is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*ps, insertProjectStorageFormat, ""), ps)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(
				fmt.Sprintf("storage %s is already assigned to project %s", ps.StorageId, ps.ProjectId))
		}
		klog.ErrorS(err, "failed to insert project storage", "storage", ps.StorageId, "project", ps.ProjectId)
		return err
	}
	return nil
}

func (c *Client) GetProjectStorage(ctx context.Context, storageId, projectId string) (*ProjectStorage, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var ps ProjectStorage
	if err := sqlx.GetContext(ctx, ext, &ps, getProjectStorageCmd, storageId, projectId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.StorageKind, storageId)
		}
		return nil, err
	}
	return &ps, nil
}

func (c *Client) SelectProjectStorages(ctx context.Context, query sqrl.Sqlizer) ([]*ProjectStorage, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TProjectStorage).OrderBy(CreatedAt)
	if query != nil {
		builder = builder.Where(query)
	}
	sql2, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var list []*ProjectStorage
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &list, sql2, args...); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) SetProjectStorageStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setProjectStorageStatusCmd, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set project storage status", "id", id, "status", status)
	}
	return err
}

func (c *Client) DeleteProjectStorage(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteProjectStorageCmd, id)
	return err
}

func (c *Client) InsertProjectStorageConfigmap(ctx context.Context, cm *ProjectStorageConfigmap) error {
	if cm == nil {
		return commonerrors.NewValidation("the configmap is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*cm, insertConfigmapFormat, ""), cm)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("configmap for project storage %s already exists", cm.ProjectStorageId))
		}
		klog.ErrorS(err, "failed to insert project storage configmap", "projectStorage", cm.ProjectStorageId)
		return err
	}
	return nil
}

func (c *Client) GetProjectStorageConfigmap(ctx context.Context, projectStorageId string) (*ProjectStorageConfigmap, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var cm ProjectStorageConfigmap
	if err := sqlx.GetContext(ctx, ext, &cm, getConfigmapCmd, projectStorageId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.StorageKind, projectStorageId)
		}
		return nil, err
	}
	return &cm, nil
}

func (c *Client) SetProjectStorageConfigmapStatusIfOlder(ctx context.Context, id string, status v1.ComponentStatus, reason string, threshold time.Time) (bool, error) {
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	res, err := ext.ExecContext(ctx, setConfigmapIfOlder, id, status, dbutils.NullString(reason), threshold.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to set project storage configmap status", "id", id, "status", status)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) DeleteProjectStorageConfigmap(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteConfigmapCmd, id)
	return err
}
