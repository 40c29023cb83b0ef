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
	TSecret           = "secret"
	TSecretAssignment = "secret_assignment"
)

var (
	insertSecretFormat  = `INSERT INTO ` + TSecret + ` (%s) VALUES (%s)`
	getSecretCmd        = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TSecret)
	getSecretByNameCmd  = fmt.Sprintf(`SELECT * FROM %s WHERE organization_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`, TSecret)
	updateSecretDataCmd = fmt.Sprintf(`UPDATE %s SET data = $2, updated_at = $3, updated_by = $4 WHERE id = $1`, TSecret)
	setSecretStatusCmd  = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TSecret)
	deleteSecretCmd     = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TSecret)

	insertAssignmentFormat = `INSERT INTO ` + TSecretAssignment + ` (%s) VALUES (%s)`
	getAssignmentCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE secret_id = $1 AND project_id = $2 LIMIT 1`, TSecretAssignment)
	setAssignmentStatus    = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TSecretAssignment)
	setAssignmentIfOlder   = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = '%s'
		WHERE id = $1 AND updated_at <= $4`, TSecretAssignment, DispatcherPrincipal)
	deleteAssignmentCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TSecretAssignment)

	// selectBlockingStoragesCmd lists storages bound to the project whose
	// credential secret is the one being unassigned. They veto the removal.
	selectBlockingStoragesCmd = fmt.Sprintf(`SELECT s.name FROM %s s
		JOIN %s ps ON ps.storage_id = s.id
		WHERE s.secret_id = $1 AND ps.project_id = $2
		ORDER BY s.name`, TStorage, TProjectStorage)
)

func (c *Client) InsertSecret(ctx context.Context, secret *Secret) error {
	if secret == nil {
		return commonerrors.NewValidation("the secret is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*secret, insertSecretFormat, ""), secret)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("secret %s already exists", secret.Name))
		}
		klog.ErrorS(err, "failed to insert secret", "name", secret.Name)
		return err
	}
	return nil
}

func (c *Client) GetSecret(ctx context.Context, id string) (*Secret, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var secret Secret
	if err := sqlx.GetContext(ctx, ext, &secret, getSecretCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.SecretKind, id)
		}
		return nil, err
	}
	return &secret, nil
}

func (c *Client) GetSecretByName(ctx context.Context, organizationId, name string) (*Secret, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var secret Secret
	if err := sqlx.GetContext(ctx, ext, &secret, getSecretByNameCmd, organizationId, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.SecretKind, name)
		}
		return nil, err
	}
	return &secret, nil
}

func (c *Client) SelectSecrets(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Secret, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TSecret)
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
	var secrets []*Secret
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &secrets, sql2, args...); err != nil {
		return nil, err
	}
	return secrets, nil
}

func (c *Client) UpdateSecretData(ctx context.Context, id, data, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, updateSecretDataCmd, id, dbutils.NullString(data), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to update secret data", "id", id)
	}
	return err
}

func (c *Client) SetSecretStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setSecretStatusCmd, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set secret status", "id", id, "status", status)
	}
	return err
}

func (c *Client) DeleteSecret(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteSecretCmd, id)
	return err
}

func (c *Client) InsertSecretAssignment(ctx context.Context, assignment *SecretAssignment) error {
	if assignment == nil {
		return commonerrors.NewValidation("the assignment is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*assignment, insertAssignmentFormat, ""), assignment)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(
				fmt.Sprintf("secret %s is already assigned to project %s", assignment.SecretId, assignment.ProjectId))
		}
		klog.ErrorS(err, "failed to insert secret assignment", "secret", assignment.SecretId, "project", assignment.ProjectId)
		return err
	}
	return nil
}

func (c *Client) GetSecretAssignment(ctx context.Context, secretId, projectId string) (*SecretAssignment, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var assignment SecretAssignment
	if err := sqlx.GetContext(ctx, ext, &assignment, getAssignmentCmd, secretId, projectId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.SecretKind, secretId)
		}
		return nil, err
	}
	return &assignment, nil
}

func (c *Client) SelectSecretAssignments(ctx context.Context, query sqrl.Sqlizer) ([]*SecretAssignment, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TSecretAssignment).OrderBy(CreatedAt)
	if query != nil {
		builder = builder.Where(query)
	}
	sql2, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var assignments []*SecretAssignment
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &assignments, sql2, args...); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (c *Client) SetSecretAssignmentStatus(ctx context.Context, id string, status v1.SyncStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setAssignmentStatus, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set secret assignment status", "id", id, "status", status)
	}
	return err
}

func (c *Client) SetSecretAssignmentStatusIfOlder(ctx context.Context, id string, status v1.SyncStatus, reason string, threshold time.Time) (bool, error) {
	ext, err := c.ext()
	if err != nil {
		return false, err
	}
	res, err := ext.ExecContext(ctx, setAssignmentIfOlder, id, status, dbutils.NullString(reason), threshold.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to set secret assignment status", "id", id, "status", status)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) DeleteSecretAssignment(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteAssignmentCmd, id)
	return err
}

func (c *Client) SelectBlockingStorages(ctx context.Context, secretId, projectId string) ([]string, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var names []string
	if err := sqlx.SelectContext(ctx, ext, &names, selectBlockingStoragesCmd, secretId, projectId); err != nil {
		return nil, err
	}
	return names, nil
}
