/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

const (
	TAuditLog = "audit_log"
)

// insertAuditLogFormat skips the serial id column.
var insertAuditLogFormat = `INSERT INTO ` + TAuditLog + ` (%s) VALUES (%s)`

func (c *Client) InsertAuditLog(ctx context.Context, auditLog *AuditLog) error {
	if auditLog == nil {
		return commonerrors.NewValidation("the audit log is empty")
	}
	ext, err := c.ext()
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, ext, generateCommand(*auditLog, insertAuditLogFormat, "id"), auditLog)
	if err != nil {
		klog.ErrorS(err, "failed to insert audit log", "path", auditLog.Path)
		return err
	}
	return nil
}

func (c *Client) SelectAuditLogs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*AuditLog, error) {
	ext, err := c.ext()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TAuditLog)
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
	var logs []*AuditLog
	ctx2, cancel := c.opCtx(ctx)
	defer cancel()
	if err := sqlx.SelectContext(ctx2, ext, &logs, sql2, args...); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) CountAuditLogs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	ext, err := c.ext()
	if err != nil {
		return 0, err
	}
	sql2, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TAuditLog).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = sqlx.GetContext(ctx, ext, &cnt, sql2, args...)
	return cnt, err
}
