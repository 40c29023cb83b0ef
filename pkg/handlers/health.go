/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

// Healthz reports 200 only when both the database and the broker connection
// answer. It serves the liveness and readiness probes.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		apiutils.AbortWithApiError(c, commonerrors.NewUnhealthy("the database is unreachable"))
		return
	}
	if !h.busHealthy() {
		apiutils.AbortWithApiError(c, commonerrors.NewUnhealthy("the message broker connection is down"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
