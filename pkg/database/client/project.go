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
	TProject = "project"
)

var (
	insertProjectFormat  = `INSERT INTO ` + TProject + ` (%s) VALUES (%s)`
	getProjectCmd        = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TProject)
	getProjectByNameCmd  = fmt.Sprintf(`SELECT * FROM %s WHERE organization_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`, TProject)
	setProjectStatusCmd  = fmt.Sprintf(`UPDATE %s SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5 WHERE id = $1`, TProject)
	deleteProjectCmd     = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TProject)
	countClusterProjects = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE cluster_id = $1`, TProject)
)

func (c *Client) InsertProject(ctx context.Context, project *Project) error {
	if project == nil {
		return commonerrors.NewValidation("the project is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*project, insertProjectFormat, ""), project)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("project %s already exists", project.Name))
		}
		klog.ErrorS(err, "failed to insert project", "name", project.Name)
		return err
	}
	return nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var project Project
	if err := sqlx.GetContext(ctx, ext, &project, getProjectCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ProjectKind, id)
		}
		return nil, err
	}
	return &project, nil
}

// GetProjectByName matches case-insensitively within the organization.
func (c *Client) GetProjectByName(ctx context.Context, organizationId, name string) (*Project, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var project Project
	if err := sqlx.GetContext(ctx, ext, &project, getProjectByNameCmd, organizationId, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ProjectKind, name)
		}
		return nil, err
	}
	return &project, nil
}

func (c *Client) SelectProjects(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Project, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TProject)
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
	var projects []*Project
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &projects, sql2, args...); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) CountProjects(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	ext, err := c.ext()
	if err != nil {
		return 0, err
	}
	sql2, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TProject).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = sqlx.GetContext(ctx, ext, &cnt, sql2, args...)
	return cnt, err
}

// CountClusterProjects counts every project pinned to the cluster, including
// ones that are Deleting; their queue slot is not free until teardown ends.
func (c *Client) CountClusterProjects(ctx context.Context, clusterId string) (int, error) {
	ext, err := c.ext()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = sqlx.GetContext(ctx, ext, &cnt, countClusterProjects, clusterId)
	return cnt, err
}

func (c *Client) SetProjectStatus(ctx context.Context, id string, status v1.ProjectStatus, reason, updatedBy string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, setProjectStatusCmd, id, status, dbutils.NullString(reason), time.Now().UTC(), updatedBy)
	if err != nil {
		klog.ErrorS(err, "failed to set project status", "id", id, "status", status)
	}
	return err
}

// DeleteProject hard-deletes the row. Called only after every component has
// confirmed its terminal deleted state.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteProjectCmd, id)
	return err
}
