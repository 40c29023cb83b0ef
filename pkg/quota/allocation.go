/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package quota

import (
	"time"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
)

// BuildAllocation materializes the complete desired queue layout of one
// cluster: one queue per active project quota plus the synthetic catch-all
// holding whatever capacity is left. The catch-all owns no namespaces and is
// clamped at zero when the cluster is overcommitted.
func BuildAllocation(quotas []*dbclient.ProjectQuota, available v1.Resources, gpuVendor string, at time.Time) *v1.ClusterQuotasAllocation {
	queues := make([]v1.QueueQuota, 0, len(quotas)+1)
	var allocated v1.Resources
	for _, quota := range quotas {
		if !IsActive(v1.QuotaStatus(quota.Status)) {
			continue
		}
		resources := v1.Resources{
			CpuMilli:              quota.CpuMilli,
			MemoryBytes:           quota.MemoryBytes,
			EphemeralStorageBytes: quota.EphemeralStorageBytes,
			GpuCount:              quota.GpuCount,
		}
		allocated = allocated.Add(resources)
		var namespaces []string
		if namespace := dbutils.ParseNullString(quota.NamespaceName); namespace != "" {
			namespaces = []string{namespace}
		}
		queues = append(queues, v1.QueueQuota{
			Name:       quota.ProjectName,
			Resources:  resources,
			Namespaces: namespaces,
		})
	}
	queues = append(queues, v1.QueueQuota{
		Name:      v1.DefaultCatchAllQuotaName,
		Resources: available.Sub(allocated).ClampZero(),
	})
	return v1.NewClusterQuotasAllocation(queues, gpuVendor, at)
}

// AllocatedActive sums the resource vectors of every active quota.
func AllocatedActive(quotas []*dbclient.ProjectQuota) v1.Resources {
	var total v1.Resources
	for _, quota := range quotas {
		if !IsActive(v1.QuotaStatus(quota.Status)) {
			continue
		}
		total = total.Add(v1.Resources{
			CpuMilli:              quota.CpuMilli,
			MemoryBytes:           quota.MemoryBytes,
			EphemeralStorageBytes: quota.EphemeralStorageBytes,
			GpuCount:              quota.GpuCount,
		})
	}
	return total
}

// AllocatedOthers sums active quotas excluding the one being edited.
func AllocatedOthers(quotas []*dbclient.ProjectQuota, excludeQuotaId string) v1.Resources {
	var total v1.Resources
	for _, quota := range quotas {
		if quota.Id == excludeQuotaId || !IsActive(v1.QuotaStatus(quota.Status)) {
			continue
		}
		total = total.Add(v1.Resources{
			CpuMilli:              quota.CpuMilli,
			MemoryBytes:           quota.MemoryBytes,
			EphemeralStorageBytes: quota.EphemeralStorageBytes,
			GpuCount:              quota.GpuCount,
		})
	}
	return total
}
