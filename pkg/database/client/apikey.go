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

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

const (
	TApiKey = "api_key"
)

var (
	insertApiKeyFormat  = `INSERT INTO ` + TApiKey + ` (%s) VALUES (%s)`
	getApiKeyCmd        = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TApiKey)
	getApiKeyByNameCmd  = fmt.Sprintf(`SELECT * FROM %s WHERE project_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`, TApiKey)
	deleteApiKeyByIdCmd = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TApiKey)
)

func (c *Client) InsertApiKey(ctx context.Context, key *ApiKey) error {
	if key == nil {
		return commonerrors.NewValidation("the api key is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*key, insertApiKeyFormat, ""), key)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("api key %s already exists in the project", key.Name))
		}
		klog.ErrorS(err, "failed to insert api key", "name", key.Name)
		return err
	}
	return nil
}

func (c *Client) GetApiKey(ctx context.Context, id string) (*ApiKey, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var key ApiKey
	if err := sqlx.GetContext(ctx, ext, &key, getApiKeyCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ApiKeyKind, id)
		}
		return nil, err
	}
	return &key, nil
}

func (c *Client) GetApiKeyByName(ctx context.Context, projectId, name string) (*ApiKey, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var key ApiKey
	if err := sqlx.GetContext(ctx, ext, &key, getApiKeyByNameCmd, projectId, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ApiKeyKind, name)
		}
		return nil, err
	}
	return &key, nil
}

func (c *Client) SelectApiKeys(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*ApiKey, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TApiKey)
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
	var keys []*ApiKey
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &keys, sql2, args...); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *Client) DeleteApiKey(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteApiKeyByIdCmd, id)
	return err
}
