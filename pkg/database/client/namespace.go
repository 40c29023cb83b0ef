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
	TNamespace = "namespace"
)

var (
	insertNamespaceFormat    = `INSERT INTO ` + TNamespace + ` (%s) VALUES (%s)`
	getNamespaceCmd          = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TNamespace)
	getNamespaceByProjectCmd = fmt.Sprintf(`SELECT * FROM %s WHERE project_id = $1 LIMIT 1`, TNamespace)
	setNamespaceStatusCmd    = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TNamespace)
	setNamespaceIfOlderCmd   = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = '%s'
		WHERE id = $1 AND updated_at <= $4`, TNamespace, DispatcherPrincipal)
	deleteNamespaceCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TNamespace)
)

func (c *Client) InsertNamespace(ctx context.Context, namespace *Namespace) error {
	if namespace == nil {
		return commonerrors.NewValidation("the namespace is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*namespace, insertNamespaceFormat, ""), namespace)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("namespace %s already exists", namespace.Name))
		}
		klog.ErrorS(err, "failed to insert namespace", "name", namespace.Name)
		return err
	}
	return nil
}

func (c *Client) GetNamespace(ctx context.Context, id string) (*Namespace, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var namespace Namespace
	if err := sqlx.GetContext(ctx, ext, &namespace, getNamespaceCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ProjectNamespaceKind, id)
		}
		return nil, err
	}
	return &namespace, nil
}

func (c *Client) GetNamespaceByProject(ctx context.Context, projectId string) (*Namespace, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var namespace Namespace
	if err := sqlx.GetContext(ctx, ext, &namespace, getNamespaceByProjectCmd, projectId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ProjectNamespaceKind, projectId)
		}
		return nil, err
	}
	return &namespace, nil
}

func (c *Client) SetNamespaceStatus(ctx context.Context, id string, status v1.NamespaceStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setNamespaceStatusCmd, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set namespace status", "id", id, "status", status)
	}
	return err
}

func (c *Client) SetNamespaceStatusIfOlder(ctx context.Context, id string, status v1.NamespaceStatus, reason string, threshold time.Time) (bool, error) {
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	res, err := ext.ExecContext(ctx, setNamespaceIfOlderCmd, id, status, dbutils.NullString(reason), threshold.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to set namespace status", "id", id, "status", status)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) DeleteNamespace(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteNamespaceCmd, id)
	return err
}
