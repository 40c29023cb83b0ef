/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers exposes the control-plane REST API over the controllers.
// Handlers translate between HTTP and controller calls; they hold no business
// logic of their own.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	"github.com/amd-enterprise-ai/airm/pkg/controllers"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

type Handler struct {
	ctrl *controllers.Controllers
	db   *dbclient.Client
	// busHealthy reports whether the common-queue consumer currently holds a
	// broker connection. Feeds the health endpoint.
	busHealthy func() bool
}

func NewHandler(ctrl *controllers.Controllers, db *dbclient.Client, busHealthy func() bool) *Handler {
	if busHealthy == nil {
		busHealthy = func() bool { return true }
	}
	return &Handler{ctrl: ctrl, db: db, busHealthy: busHealthy}
}

// InitHttpHandlers builds the engine with logging, recovery and the routers.
func InitHttpHandlers(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(apiutils.Logger(), gin.Recovery())
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, commonerrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})
	InitRouters(engine, h)
	return engine
}
