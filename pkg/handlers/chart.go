/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	"github.com/amd-enterprise-ai/airm/pkg/controllers"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
)

type createChartRequest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	// Payload is the chart archive, base64 per encoding/json []byte rules.
	Payload []byte `json:"payload"`
}

func (h *Handler) CreateChart(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	req := &createChartRequest{}
	if _, err := apiutils.ParseRequestBody(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	chart, err := h.ctrl.Chart.CreateChart(c.Request.Context(), controllers.CreateChartRequest{
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		Payload:     req.Payload,
		Principal:   principal.Name(),
	})
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ChartKind, chart.Id)
	c.JSON(http.StatusCreated, toChartView(chart))
}

func (h *Handler) ListCharts(c *gin.Context) {
	if h.principal(c) == nil {
		return
	}
	window := parseListWindow(c)
	charts, err := h.db.SelectCharts(c.Request.Context(), nil,
		[]string{dbclient.CreatedAt}, window.Limit, window.Offset)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	views := make([]ChartView, 0, len(charts))
	for _, chart := range charts {
		views = append(views, toChartView(chart))
	}
	c.JSON(http.StatusOK, views)
}

// DownloadChart hands back a presigned object url instead of streaming the
// archive through the API.
func (h *Handler) DownloadChart(c *gin.Context) {
	if h.principal(c) == nil {
		return
	}
	url, err := h.ctrl.Chart.DownloadUrl(c.Request.Context(), c.Param(ParamId))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) DeleteChart(c *gin.Context) {
	principal := h.principal(c)
	if principal == nil {
		return
	}
	id := c.Param(ParamId)
	if err := h.ctrl.Chart.DeleteChart(c.Request.Context(), id, principal.Name()); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	setAuditEntity(c, v1.ChartKind, id)
	c.Status(http.StatusNoContent)
}
