/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"

	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/metrics"
)

// Dispatch routes one inbound dispatcher message to its handler. A returned
// error makes the consumer requeue; handlers drop (return nil) whatever can
// never succeed on retry.
func (c *Controllers) Dispatch(ctx context.Context, msg v1.Message) error {
	var err error
	switch m := msg.(type) {
	case *v1.Heartbeat:
		err = c.Inventory.HandleHeartbeat(ctx, m)
	case *v1.ClusterNodes:
		err = c.Inventory.HandleClusterNodes(ctx, m)
	case *v1.ClusterQuotasStatus:
		err = c.Quota.HandleQuotasStatus(ctx, m)
	case *v1.ClusterQuotasFailure:
		err = c.Quota.HandleQuotasFailure(ctx, m)
	case *v1.ProjectNamespaceStatus:
		err = c.Project.HandleNamespaceStatus(ctx, m)
	case *v1.ProjectSecretsStatus:
		err = c.Secret.HandleSecretsStatus(ctx, m)
	case *v1.ProjectStorageStatus:
		err = c.Storage.HandleStorageStatus(ctx, m)
	case *v1.WorkloadStatusUpdate:
		err = c.Workload.HandleWorkloadStatus(ctx, m)
	case *v1.WorkloadComponentStatusUpdate:
		err = c.Workload.HandleComponentStatus(ctx, m)
	case *v1.AutoDiscoveredWorkloadComponent:
		err = c.Workload.HandleAutoDiscovered(ctx, m)
	case *v1.AimClusterModels:
		err = c.ApiKey.HandleAimClusterModels(ctx, m)
	default:
		// Controller-to-dispatcher types echoed back are a wiring mistake,
		// not a transient condition.
		klog.InfoS("dropping message not meant for the controller", "type", msg.GetMessageType())
	}
	if err != nil {
		metrics.CountConsumed(msg.GetMessageType(), "error")
		return err
	}
	metrics.CountConsumed(msg.GetMessageType(), "ok")
	return nil
}
