/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package quota validates per-project quotas against cluster capacity,
// materializes cluster-wide allocation messages and diffs applied queue
// layouts back into per-quota transitions. Everything here is pure; the
// controllers package persists the results.
package quota

import (
	"fmt"
	"strings"
	"time"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/utils/stringutil"
)

// Validate checks that the proposed quota fits into what the cluster has left
// after every other active quota. The four dimensions are judged
// independently and all violations are reported together.
func Validate(proposed, available, allocatedOthers v1.Resources) error {
	exceeded := proposed.Add(allocatedOthers).Exceeding(available)
	if len(exceeded) == 0 {
		return nil
	}
	return commonerrors.NewQuotaExceeded(
		fmt.Sprintf("requested resources exceed cluster capacity: %s", strings.Join(exceeded, ", ")))
}

// IsActive reports whether the quota still occupies capacity. Deleting and
// deleted quotas release their share immediately so a replacement project can
// claim it.
func IsActive(status v1.QuotaStatus) bool {
	return status != v1.QuotaDeleting && status != v1.QuotaDeleted
}

// Transition is one persisted consequence of an applied-quota report.
type Transition struct {
	QuotaId   string
	ProjectId string
	Status    v1.QuotaStatus
	Reason    string
	// Resources is non-nil when the stored vector must be rewritten, which
	// only happens when the cluster dropped the quota and the row is zeroed.
	Resources *v1.Resources
	// HardDelete removes the quota row once the cluster confirmed absence.
	HardDelete bool
}

// BuildTransitions diff-matches the queue layout a cluster reports against
// the configured quotas. The catch-all queue is skipped, and quotas written
// after the message was produced are left alone so a newer edit is not
// clobbered by a stale report.
func BuildTransitions(quotas []*dbclient.ProjectQuota, reported []v1.QueueQuota, reportedAt time.Time) []Transition {
	applied := make(map[string]v1.QueueQuota, len(reported))
	for _, queue := range reported {
		if stringutil.FoldEqual(queue.Name, v1.DefaultCatchAllQuotaName) {
			continue
		}
		applied[strings.ToLower(queue.Name)] = queue
	}

	var out []Transition
	for _, quota := range quotas {
		if quota.UpdatedAt.After(reportedAt) {
			continue
		}
		configured := v1.Resources{
			CpuMilli:              quota.CpuMilli,
			MemoryBytes:           quota.MemoryBytes,
			EphemeralStorageBytes: quota.EphemeralStorageBytes,
			GpuCount:              quota.GpuCount,
		}
		queue, found := applied[strings.ToLower(quota.ProjectName)]
		status := v1.QuotaStatus(quota.Status)

		switch {
		case !found && status == v1.QuotaDeleting:
			// The cluster confirmed the queue is gone; teardown can finish.
			out = append(out, Transition{
				QuotaId: quota.Id, ProjectId: quota.ProjectId,
				Status: v1.QuotaDeleted, Reason: "quota removed from cluster", HardDelete: true,
			})
		case !found && status != v1.QuotaDeleted:
			// Alive in the DB but gone on the cluster. The row is zeroed so
			// derived allocation stays truthful; the prior numbers survive in
			// the reason for operators to recover.
			zero := v1.Resources{}
			out = append(out, Transition{
				QuotaId: quota.Id, ProjectId: quota.ProjectId,
				Status: v1.QuotaFailed,
				Reason: fmt.Sprintf("quota was removed from the cluster (was %s)", renderResources(configured)),
				Resources: &zero,
			})
		case found && configured == queue.Resources:
			out = append(out, Transition{
				QuotaId: quota.Id, ProjectId: quota.ProjectId,
				Status: v1.QuotaReady,
			})
		case found:
			out = append(out, Transition{
				QuotaId: quota.Id, ProjectId: quota.ProjectId,
				Status: v1.QuotaFailed,
				Reason: fmt.Sprintf("applied quota drifted: configured %s, applied %s",
					renderResources(configured), renderResources(queue.Resources)),
			})
		}
	}
	return out
}

func renderResources(r v1.Resources) string {
	return fmt.Sprintf("cpu=%dm memory=%dB ephemeral-storage=%dB gpu=%d",
		r.CpuMilli, r.MemoryBytes, r.EphemeralStorageBytes, r.GpuCount)
}
