/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package server assembles the controller process: config, store, broker
// fabric, controllers, the inbound consumer and the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	genericapiserver "k8s.io/apiserver/pkg/server"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/blob"
	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	"github.com/amd-enterprise-ai/airm/pkg/controllers"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	"github.com/amd-enterprise-ai/airm/pkg/extauth"
	"github.com/amd-enterprise-ai/airm/pkg/handlers"
	"github.com/amd-enterprise-ai/airm/pkg/idp"
	commonklog "github.com/amd-enterprise-ai/airm/pkg/klog"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/metrics"
	"github.com/amd-enterprise-ai/airm/pkg/options"
)

type Server struct {
	opts       *options.Options
	httpServer *http.Server

	db         *dbclient.Client
	registry   *messaging.Registry
	commonConn *messaging.Connection
	consumer   *messaging.Consumer
	ctrl       *controllers.Controllers
	cron       *cron.Cron

	ctx      context.Context
	isInited bool
}

func NewServer() (*Server, error) {
	s := &Server{
		opts: &options.Options{},
		ctx:  genericapiserver.SetupSignalContext(),
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = commonklog.Init(s.opts.LogfilePath, s.opts.LogFileSize); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if err = s.initControllers(); err != nil {
		klog.ErrorS(err, "failed to init controllers")
		return err
	}
	s.initCron()
	s.isInited = true
	return nil
}

func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = commonconfig.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

func (s *Server) initControllers() error {
	s.db = dbclient.NewClient()
	if s.db == nil {
		return fmt.Errorf("failed to connect the database")
	}
	s.registry = messaging.NewRegistry(commonconfig.GetRabbitUrl(),
		time.Duration(commonconfig.GetRabbitPublishTimeoutSecond())*time.Second)
	provisioner, err := messaging.NewProvisioner(commonconfig.GetRabbitManagementUrl(),
		commonconfig.GetRabbitUser(), commonconfig.GetRabbitPassword())
	if err != nil {
		return err
	}
	blobStore, err := blob.NewStore(s.ctx)
	if err != nil {
		return err
	}
	s.ctrl = controllers.New(s.db, s.registry, provisioner, idp.NewClient(), extauth.NewClient(), blobStore)

	s.commonConn = messaging.NewConnection(messaging.Endpoint{
		Url:   commonconfig.GetRabbitUrl(),
		Vhost: v1.CommonVhost,
	})
	s.consumer = messaging.NewConsumer(s.commonConn, v1.CommonQueue,
		commonconfig.GetRabbitConsumerPrefetch(), s.ctrl.Dispatch)
	return nil
}

func (s *Server) initCron() {
	s.cron = cron.New()
	schedule := commonconfig.GetApiKeySweepCron()
	if _, err := s.cron.AddFunc(schedule, func() {
		s.ctrl.ApiKey.SweepOrphans(s.ctx)
	}); err != nil {
		klog.ErrorS(err, "failed to schedule api key sweep", "schedule", schedule)
	}
}

func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init the controller first")
		return
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	klog.Infof("starting airm-controller")
	go s.consumer.Run(s.ctx)
	s.cron.Start()

	if commonconfig.IsMetricsEnable() {
		go metrics.Serve(commonconfig.GetMetricsPort())
	}

	go func() {
		if err := s.startHttpServer(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http-server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "failed to shutdown http-server")
		}
	}
	s.cron.Stop()
	s.registry.Close()
	s.commonConn.Close()
	s.db.Close()
	klog.Info("airm-controller is stopped")
	klog.Flush()
}

func (s *Server) startHttpServer() error {
	if commonconfig.GetServerPort() <= 0 {
		return fmt.Errorf("the server port is not defined")
	}
	handler := handlers.NewHandler(s.ctrl, s.db, s.commonConn.IsHealthy)
	engine := handlers.InitHttpHandlers(handler)
	addr := fmt.Sprintf(":%d", commonconfig.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: engine}
	klog.Infof("http-server listen port: %d", commonconfig.GetServerPort())
	return s.httpServer.ListenAndServe()
}
