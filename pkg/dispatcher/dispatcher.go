/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package dispatcher is the per-cluster agent. It consumes controller
// commands from the cluster vhost, reconciles them against Kubernetes and
// streams status back over the common vhost.
package dispatcher

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/metrics"
)

const (
	heartbeatInterval = time.Minute
	nodeSyncInterval  = 5 * time.Minute
	aimSyncInterval   = 10 * time.Minute
)

type Dispatcher struct {
	cfg     *Config
	clients *kubeClients

	commonConn  *messaging.Connection
	clusterConn *messaging.Connection
	publisher   *messaging.Publisher
	consumer    *messaging.Consumer

	health *healthRegistry
}

func New(ctx context.Context) (*Dispatcher, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	clients, err := newKubeClients(cfg.UseLocalKubeContext)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveNames(ctx, clients.kube); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		cfg:     cfg,
		clients: clients,
		health:  newHealthRegistry(),
	}
	d.commonConn = messaging.NewConnection(messaging.Endpoint{Url: cfg.BrokerUrl(), Vhost: v1.CommonVhost})
	d.clusterConn = messaging.NewConnection(messaging.Endpoint{Url: cfg.BrokerUrl(), Vhost: cfg.ClusterVhost()})
	d.publisher = messaging.NewPublisher(d.commonConn, v1.CommonQueue, 10*time.Second)
	d.consumer = messaging.NewConsumer(d.clusterConn, cfg.ClusterQueue(), 1, d.handle)
	return d, nil
}

// Run bootstraps, starts the watchers and the consumer and blocks until ctx
// is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	klog.InfoS("starting dispatcher",
		"cluster", d.cfg.ClusterName, "organization", d.cfg.OrganizationName)

	// One-shot reports so the controller sees the cluster before the first
	// ticker fires.
	if err := d.reportClusterNodes(ctx); err != nil {
		return err
	}
	if err := d.reportHeartbeat(ctx); err != nil {
		return err
	}
	if err := d.reportAimModels(ctx); err != nil {
		// A cluster without the AIM CRD is still serviceable.
		klog.ErrorS(err, "failed to report aim models at bootstrap")
	}

	d.startWatchers(ctx)
	go d.consumer.Run(ctx)
	go d.serveHealth()
	go d.runTickers(ctx)

	<-ctx.Done()
	d.publisher.Close()
	d.commonConn.Close()
	d.clusterConn.Close()
	klog.Info("dispatcher stopped")
	return nil
}

func (d *Dispatcher) runTickers(ctx context.Context) {
	heartbeat := time.NewTicker(heartbeatInterval)
	nodes := time.NewTicker(nodeSyncInterval)
	aims := time.NewTicker(aimSyncInterval)
	defer heartbeat.Stop()
	defer nodes.Stop()
	defer aims.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := d.reportHeartbeat(ctx); err != nil {
				klog.ErrorS(err, "failed to report heartbeat")
			}
		case <-nodes.C:
			if err := d.reportClusterNodes(ctx); err != nil {
				klog.ErrorS(err, "failed to report cluster nodes")
			}
		case <-aims.C:
			if err := d.reportAimModels(ctx); err != nil {
				klog.ErrorS(err, "failed to report aim models")
			}
		}
	}
}

// handle dispatches one controller command. Reconciliation outcomes travel
// back as status messages, so per-resource failures ack the command; only
// infrastructure errors requeue it.
func (d *Dispatcher) handle(ctx context.Context, msg v1.Message) error {
	switch m := msg.(type) {
	case *v1.ClusterQuotasAllocation:
		return d.applyQueueConfig(ctx, m)
	case *v1.ProjectNamespaceCreate:
		return d.createNamespace(ctx, m)
	case *v1.ProjectNamespaceDelete:
		return d.deleteNamespace(ctx, m)
	case *v1.ProjectSecretsCreate:
		return d.applyProjectSecret(ctx, m.ProjectId, m.SecretId, m.Namespace, m.Manifest)
	case *v1.ProjectSecretsUpdate:
		return d.applyProjectSecret(ctx, m.ProjectId, m.SecretId, m.Namespace, m.Manifest)
	case *v1.ProjectSecretsDelete:
		return d.deleteProjectSecret(ctx, m)
	case *v1.ProjectS3StorageCreate:
		return d.applyStorageConfigmap(ctx, m.ProjectId, m.StorageId, m.Namespace, m.Name, m.StorageSpec)
	case *v1.ProjectStorageUpdate:
		return d.applyStorageConfigmap(ctx, m.ProjectId, m.StorageId, m.Namespace, m.Name, m.StorageSpec)
	case *v1.ProjectStorageDelete:
		return d.deleteStorageConfigmap(ctx, m)
	case *v1.WorkloadCreate:
		return d.applyWorkload(ctx, m)
	case *v1.DeleteWorkload:
		return d.deleteWorkload(ctx, m)
	default:
		// Controller-bound types never belong on this queue; requeueing
		// cannot fix a misrouted message.
		klog.InfoS("dropping misrouted message", "type", msg.GetMessageType())
		return nil
	}
}

// report publishes one status message to the common queue.
func (d *Dispatcher) report(ctx context.Context, msg v1.Message) error {
	if err := d.publisher.Publish(ctx, msg); err != nil {
		return err
	}
	metrics.CountPublished(d.cfg.ClusterName, msg.GetMessageType())
	return nil
}
