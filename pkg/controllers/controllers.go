/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package controllers holds the control-plane business logic: everything
// between the HTTP handlers and the entity store / message fabric. Each
// controller owns one entity family; they share the store, the per-cluster
// publisher registry and the external service clients.
package controllers

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/blob"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/extauth"
	"github.com/amd-enterprise-ai/airm/pkg/idp"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/quota"
)

// Controllers bundles every controller over one set of dependencies.
type Controllers struct {
	Inventory *InventoryController
	Project   *ProjectController
	Quota     *QuotaController
	Secret    *SecretController
	Storage   *StorageController
	Chart     *ChartController
	Workload  *WorkloadController
	ApiKey    *ApiKeyController
}

func New(db *dbclient.Client, sender messaging.Sender, provisioner *messaging.Provisioner,
	idpClient idp.Interface, authClient extauth.Interface, blobStore blob.Interface) *Controllers {
	base := &base{db: db, sender: sender}
	project := &ProjectController{base: base, idp: idpClient}
	secret := &SecretController{base: base}
	storage := &StorageController{base: base, secrets: secret}
	// Secret reports feed storage composites and vice versa.
	secret.storages = storage
	return &Controllers{
		Inventory: &InventoryController{base: base, provisioner: provisioner},
		Project:   project,
		Quota:     &QuotaController{base: base, projects: project},
		Secret:    secret,
		Storage:   storage,
		Chart:     &ChartController{base: base, blob: blobStore},
		Workload:  &WorkloadController{base: base, blob: blobStore},
		ApiKey:    &ApiKeyController{base: base, auth: authClient},
	}
}

// base carries the store and the publisher shared by every controller.
type base struct {
	db     *dbclient.Client
	sender messaging.Sender
}

// withTxOutbox nests the two request scopes: a database transaction inside,
// an outbox outside. The transaction commits strictly before the flush; a
// rolled-back transaction drops the outbox unflushed.
func (b *base) withTxOutbox(ctx context.Context, fn func(txc *dbclient.Client, box *messaging.Outbox) error) error {
	box := messaging.NewOutbox()
	if err := b.db.WithTransaction(ctx, func(txc *dbclient.Client) error {
		return fn(txc, box)
	}); err != nil {
		return err
	}
	if err := box.Flush(ctx, b.sender); err != nil {
		// The rows are committed; the consumer-side dominance checks absorb
		// the re-emission a later reconciliation produces.
		klog.ErrorS(err, "outbox flush failed after commit")
		return err
	}
	return nil
}

// enqueueAllocation materializes the full quota allocation of the cluster and
// queues it. Call inside the transaction that changed capacity or quotas.
func (b *base) enqueueAllocation(ctx context.Context, txc *dbclient.Client, box *messaging.Outbox, clusterId string) error {
	nodes, err := txc.SelectClusterNodes(ctx, clusterId)
	if err != nil {
		return err
	}
	available, gpuInfo := deriveClusterResources(nodes)
	quotas, err := txc.SelectClusterQuotas(ctx, clusterId)
	if err != nil {
		return err
	}
	box.Enqueue(clusterId, quota.BuildAllocation(quotas, available, gpuInfo.Vendor, time.Now().UTC()))
	return nil
}

// deriveClusterResources sums capacity over ready nodes and picks the GPU
// description from any GPU-bearing node, clusters being GPU-homogeneous.
func deriveClusterResources(nodes []*dbclient.ClusterNode) (v1.Resources, v1.GpuInfo) {
	var available v1.Resources
	var gpu v1.GpuInfo
	for _, node := range nodes {
		if !node.IsReady {
			continue
		}
		available = available.Add(v1.Resources{
			CpuMilli:              node.CpuMilli,
			MemoryBytes:           node.MemoryBytes,
			EphemeralStorageBytes: node.EphemeralStorageBytes,
			GpuCount:              node.GpuCount,
		})
		if node.GpuCount > 0 && gpu.Vendor == "" {
			gpu = v1.GpuInfo{
				Vendor:          dbutils.ParseNullString(node.GpuVendor),
				Type:            dbutils.ParseNullString(node.GpuType),
				Product:         dbutils.ParseNullString(node.GpuProduct),
				VramPerGpuBytes: node.GpuVramBytes,
			}
		}
	}
	return available, gpu
}

// resolveCluster maps the (organization_name, cluster_name) pair every
// dispatcher message carries back to the cluster row. An unknown pair returns
// nil without error: such messages are logged and dropped, requeueing them
// can never succeed.
func (b *base) resolveCluster(ctx context.Context, organizationName, clusterName string) (*dbclient.Cluster, error) {
	org, err := b.db.GetOrganizationByName(ctx, organizationName)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("dropping message from unknown organization", "organization", organizationName)
			return nil, nil
		}
		return nil, err
	}
	cluster, err := b.db.GetClusterByName(ctx, org.Id, clusterName)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return cluster, nil
}
