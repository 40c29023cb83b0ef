/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package quota

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

func projectQuota(id, project string, status v1.QuotaStatus, res v1.Resources, updatedAt time.Time) *dbclient.ProjectQuota {
	return &dbclient.ProjectQuota{
		Quota: dbclient.Quota{
			Id:                    id,
			ProjectId:             "proj-" + project,
			CpuMilli:              res.CpuMilli,
			MemoryBytes:           res.MemoryBytes,
			EphemeralStorageBytes: res.EphemeralStorageBytes,
			GpuCount:              res.GpuCount,
			Status:                string(status),
			UpdatedAt:             updatedAt,
		},
		ProjectName:   project,
		NamespaceName: sql.NullString{String: project + "-ns", Valid: true},
	}
}

func TestValidate(t *testing.T) {
	available := v1.Resources{CpuMilli: 10000, MemoryBytes: 1 << 30, EphemeralStorageBytes: 1 << 30, GpuCount: 8}

	err := Validate(v1.Resources{CpuMilli: 4000, GpuCount: 4}, available, v1.Resources{CpuMilli: 4000, GpuCount: 4})
	assert.NoError(t, err)

	err = Validate(v1.Resources{CpuMilli: 4000, GpuCount: 5}, available, v1.Resources{CpuMilli: 4000, GpuCount: 4})
	assert.Error(t, err)
	assert.True(t, commonerrors.IsValidation(err))
	assert.Equal(t, commonerrors.QuotaExceeded, commonerrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "gpu")
	assert.NotContains(t, err.Error(), "memory")

	err = Validate(v1.Resources{CpuMilli: 20000, MemoryBytes: 2 << 30}, available, v1.Resources{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cpu")
	assert.Contains(t, err.Error(), "memory")
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive(v1.QuotaPending))
	assert.True(t, IsActive(v1.QuotaReady))
	assert.True(t, IsActive(v1.QuotaFailed))
	assert.False(t, IsActive(v1.QuotaDeleting))
	assert.False(t, IsActive(v1.QuotaDeleted))
}

func TestBuildAllocation(t *testing.T) {
	now := time.Now()
	available := v1.Resources{CpuMilli: 16000, MemoryBytes: 64 << 30, EphemeralStorageBytes: 100 << 30, GpuCount: 8}
	quotas := []*dbclient.ProjectQuota{
		projectQuota("q1", "alpha", v1.QuotaReady, v1.Resources{CpuMilli: 4000, MemoryBytes: 16 << 30, GpuCount: 2}, now),
		projectQuota("q2", "beta", v1.QuotaPending, v1.Resources{CpuMilli: 8000, MemoryBytes: 32 << 30, GpuCount: 4}, now),
		projectQuota("q3", "gone", v1.QuotaDeleting, v1.Resources{CpuMilli: 4000, GpuCount: 2}, now),
	}

	alloc := BuildAllocation(quotas, available, "amd", now)
	assert.Len(t, alloc.Quotas, 3)
	assert.Equal(t, "alpha", alloc.Quotas[0].Name)
	assert.Equal(t, []string{"alpha-ns"}, alloc.Quotas[0].Namespaces)
	assert.Equal(t, "beta", alloc.Quotas[1].Name)

	catchAll := alloc.Quotas[2]
	assert.Equal(t, v1.DefaultCatchAllQuotaName, catchAll.Name)
	assert.Empty(t, catchAll.Namespaces)
	assert.Equal(t, int64(4000), catchAll.CpuMilli)
	assert.Equal(t, int64(16<<30), catchAll.MemoryBytes)
	assert.Equal(t, int64(2), catchAll.GpuCount)

	assert.Equal(t, v1.TypeClusterQuotasAllocation, alloc.GetMessageType())
	assert.NotEmpty(t, alloc.PriorityClasses)
}

func TestBuildAllocationOvercommitClampsCatchAll(t *testing.T) {
	now := time.Now()
	available := v1.Resources{CpuMilli: 4000, GpuCount: 2}
	quotas := []*dbclient.ProjectQuota{
		projectQuota("q1", "alpha", v1.QuotaReady, v1.Resources{CpuMilli: 8000, GpuCount: 4}, now),
	}

	alloc := BuildAllocation(quotas, available, "amd", now)
	catchAll := alloc.Quotas[len(alloc.Quotas)-1]
	assert.Equal(t, v1.DefaultCatchAllQuotaName, catchAll.Name)
	assert.Equal(t, v1.Resources{}, catchAll.Resources)
}

func TestBuildAllocationEmptyCluster(t *testing.T) {
	now := time.Now()
	available := v1.Resources{CpuMilli: 4000, GpuCount: 2}

	alloc := BuildAllocation(nil, available, "nvidia", now)
	assert.Len(t, alloc.Quotas, 1)
	assert.Equal(t, v1.DefaultCatchAllQuotaName, alloc.Quotas[0].Name)
	assert.Equal(t, available, alloc.Quotas[0].Resources)
}

func TestAllocatedOthers(t *testing.T) {
	now := time.Now()
	quotas := []*dbclient.ProjectQuota{
		projectQuota("q1", "alpha", v1.QuotaReady, v1.Resources{CpuMilli: 4000}, now),
		projectQuota("q2", "beta", v1.QuotaReady, v1.Resources{CpuMilli: 8000}, now),
		projectQuota("q3", "gamma", v1.QuotaDeleting, v1.Resources{CpuMilli: 2000}, now),
	}
	assert.Equal(t, int64(12000), AllocatedActive(quotas).CpuMilli)
	assert.Equal(t, int64(8000), AllocatedOthers(quotas, "q1").CpuMilli)
	assert.Equal(t, int64(12000), AllocatedOthers(quotas, "q3").CpuMilli)
}

func TestBuildTransitions(t *testing.T) {
	reportedAt := time.Now()
	stale := reportedAt.Add(-time.Minute)
	res := v1.Resources{CpuMilli: 4000, MemoryBytes: 16 << 30, GpuCount: 2}

	quotas := []*dbclient.ProjectQuota{
		projectQuota("q1", "alpha", v1.QuotaPending, res, stale),
		projectQuota("q2", "beta", v1.QuotaReady, res, stale),
		projectQuota("q3", "gamma", v1.QuotaDeleting, res, stale),
		projectQuota("q4", "delta", v1.QuotaReady, res, stale),
	}
	reported := []v1.QueueQuota{
		{Name: "Alpha", Resources: res},
		{Name: "beta", Resources: v1.Resources{CpuMilli: 2000, MemoryBytes: 16 << 30, GpuCount: 2}},
		{Name: v1.DefaultCatchAllQuotaName, Resources: v1.Resources{CpuMilli: 99999}},
	}

	transitions := BuildTransitions(quotas, reported, reportedAt)
	assert.Len(t, transitions, 4)

	byQuota := map[string]Transition{}
	for _, tr := range transitions {
		byQuota[tr.QuotaId] = tr
	}

	// Queue names match case-insensitively.
	assert.Equal(t, v1.QuotaReady, byQuota["q1"].Status)

	// A drifted vector fails the quota but keeps the stored numbers.
	assert.Equal(t, v1.QuotaFailed, byQuota["q2"].Status)
	assert.Contains(t, byQuota["q2"].Reason, "drifted")
	assert.Nil(t, byQuota["q2"].Resources)

	// Absence confirms a pending teardown.
	assert.Equal(t, v1.QuotaDeleted, byQuota["q3"].Status)
	assert.True(t, byQuota["q3"].HardDelete)

	// A live quota missing from the cluster is zeroed.
	assert.Equal(t, v1.QuotaFailed, byQuota["q4"].Status)
	assert.NotNil(t, byQuota["q4"].Resources)
	assert.Equal(t, v1.Resources{}, *byQuota["q4"].Resources)
}

func TestBuildTransitionsSkipsNewerEdits(t *testing.T) {
	reportedAt := time.Now()
	res := v1.Resources{CpuMilli: 4000}
	quotas := []*dbclient.ProjectQuota{
		projectQuota("q1", "alpha", v1.QuotaPending, res, reportedAt.Add(time.Second)),
	}
	transitions := BuildTransitions(quotas, nil, reportedAt)
	assert.Empty(t, transitions)
}
