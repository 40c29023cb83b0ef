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
	TChart = "chart"
)

var (
	insertChartFormat = `INSERT INTO ` + TChart + ` (%s) VALUES (%s)`
	getChartCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TChart)
	getChartByNVCmd   = fmt.Sprintf(`SELECT * FROM %s WHERE LOWER(name) = LOWER($1) AND version = $2 LIMIT 1`, TChart)
	deleteChartCmd    = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TChart)
)

func (c *Client) InsertChart(ctx context.Context, chart *Chart) error {
	if chart == nil {
		return commonerrors.NewValidation("the chart is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*chart, insertChartFormat, ""), chart)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewConflict(fmt.Sprintf("chart %s version %s already exists", chart.Name, chart.Version))
		}
		klog.ErrorS(err, "failed to insert chart", "name", chart.Name, "version", chart.Version)
		return err
	}
	return nil
}

func (c *Client) GetChart(ctx context.Context, id string) (*Chart, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var chart Chart
	if err := sqlx.GetContext(ctx, ext, &chart, getChartCmd, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ChartKind, id)
		}
		return nil, err
	}
	return &chart, nil
}

func (c *Client) GetChartByNameVersion(ctx context.Context, name, version string) (*Chart, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	var chart Chart
	if err := sqlx.GetContext(ctx, ext, &chart, getChartByNVCmd, name, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound(v1.ChartKind, name)
		}
		return nil, err
	}
	return &chart, nil
}

func (c *Client) SelectCharts(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Chart, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TChart)
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
	var charts []*Chart
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &charts, sql2, args...); err != nil {
		return nil, err
	}
	return charts, nil
}

func (c *Client) DeleteChart(ctx context.Context, id string) error {
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, deleteChartCmd, id)
	return err
}
