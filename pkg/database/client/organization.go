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
	TOrganization = "organization"
)

var (
	insertOrganizationFormat = `INSERT INTO ` + TOrganization + ` (%s) VALUES (%s)`
	getOrganizationCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TOrganization)
	getOrganizationByNameCmd = fmt.Sprintf(`SELECT * FROM %s WHERE LOWER(name) = LOWER($1) LIMIT 1`, TOrganization)
)

func (c *Client) InsertOrganization(ctx context.Context, org *Organization) error {
	if org == nil {
		return commonerrors.NewValidation("the organization is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*org, insertOrganizationFormat, ""), org)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("organization %s already exists", org.Name))
		}
		klog.ErrorS(err, "failed to insert organization", "name", org.Name)
		return err
	}
	return nil
}

func (c *Client) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var org Organization
	if err := sqlx.GetContext(ctx, ext, &org, getOrganizationCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.OrganizationKind, id)
		}
		return nil, err
	}
	return &org, nil
}

// GetOrganizationByName matches case-insensitively.
func (c *Client) GetOrganizationByName(ctx context.Context, name string) (*Organization, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var org Organization
	if err := sqlx.GetContext(ctx, ext, &org, getOrganizationByNameCmd, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.OrganizationKind, name)
		}
		return nil, err
	}
	return &org, nil
}

func (c *Client) SelectOrganizations(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Organization, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TOrganization)
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
	var orgs []*Organization
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &orgs, sql2, args...); err != nil {
		return nil, err
	}
	return orgs, nil
}
