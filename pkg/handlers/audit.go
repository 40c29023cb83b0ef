/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	"github.com/amd-enterprise-ai/airm/pkg/handlers/authority"
)

const (
	auditEntityKindKey = "audit-entity-kind"
	auditEntityIdKey   = "audit-entity-id"
)

// setAuditEntity tags the request with the entity it touched so the audit row
// can be filtered by entity later.
func setAuditEntity(c *gin.Context, kind, id string) {
	c.Set(auditEntityKindKey, kind)
	c.Set(auditEntityIdKey, id)
}

// Audit records every mutating request after it completes. Reads are not
// audited. An insert failure is logged, never surfaced; the response already
// went out.
func (h *Handler) Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		switch c.Request.Method {
		case "POST", "PUT", "PATCH", "DELETE":
		default:
			return
		}
		userId := ""
		if principal := authority.FromContext(c); principal != nil {
			userId = principal.Name()
		}
		detail := ""
		if len(c.Errors) > 0 {
			detail = c.Errors.Last().Error()
		}
		row := &dbclient.AuditLog{
			UserId:     userId,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			EntityKind: dbutils.NullString(c.GetString(auditEntityKindKey)),
			EntityId:   dbutils.NullString(c.GetString(auditEntityIdKey)),
			StatusCode: c.Writer.Status(),
			Detail:     dbutils.NullString(detail),
			CreatedAt:  time.Now().UTC(),
		}
		if err := h.db.InsertAuditLog(c.Request.Context(), row); err != nil {
			klog.ErrorS(err, "failed to record audit log", "method", row.Method, "path", row.Path)
		}
	}
}
