/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"

	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
)

// ListAuditLogs returns the newest entries first, optionally filtered by user
// or entity kind.
func (h *Handler) ListAuditLogs(c *gin.Context) {
	if h.principal(c) == nil {
		return
	}
	window := parseListWindow(c)
	query := sqrl.And{}
	if userId := c.Query("userId"); userId != "" {
		query = append(query, sqrl.Eq{"user_id": userId})
	}
	if entityKind := c.Query("entityKind"); entityKind != "" {
		query = append(query, sqrl.Eq{"entity_kind": entityKind})
	}
	var filter sqrl.Sqlizer
	if len(query) > 0 {
		filter = query
	}
	rows, err := h.db.SelectAuditLogs(c.Request.Context(), filter,
		[]string{dbclient.CreatedAt + " DESC"}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]AuditLogView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toAuditLogView(row))
	}
	c.JSON(http.StatusOK, views)
}
