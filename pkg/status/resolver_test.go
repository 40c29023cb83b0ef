/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

func TestResolveParent(t *testing.T) {
	tests := []struct {
		name     string
		parent   v1.SyncStatus
		children []v1.SyncStatus
		expected v1.SyncStatus
	}{
		{
			name:     "no assignments",
			parent:   v1.SyncSynced,
			children: nil,
			expected: v1.SyncUnassigned,
		},
		{
			name:     "all synced",
			parent:   v1.SyncPending,
			children: []v1.SyncStatus{v1.SyncSynced, v1.SyncSynced},
			expected: v1.SyncSynced,
		},
		{
			name:     "one failed wins over synced",
			parent:   v1.SyncSynced,
			children: []v1.SyncStatus{v1.SyncSynced, v1.SyncFailed},
			expected: v1.SyncFailed,
		},
		{
			name:     "delete failed wins over failed",
			parent:   v1.SyncSynced,
			children: []v1.SyncStatus{v1.SyncFailed, v1.SyncDeleteFailed},
			expected: v1.SyncDeleteFailed,
		},
		{
			name:     "unknown child degrades to synced error",
			parent:   v1.SyncSynced,
			children: []v1.SyncStatus{v1.SyncSynced, v1.SyncUnknown},
			expected: v1.SyncSyncedError,
		},
		{
			name:     "all pending",
			parent:   v1.SyncPending,
			children: []v1.SyncStatus{v1.SyncPending, v1.SyncPending},
			expected: v1.SyncPending,
		},
		{
			name:     "mix of synced and pending is partial",
			parent:   v1.SyncPending,
			children: []v1.SyncStatus{v1.SyncSynced, v1.SyncPending},
			expected: v1.SyncPartiallySynced,
		},
		{
			name:     "deleted child while parent alive",
			parent:   v1.SyncSynced,
			children: []v1.SyncStatus{v1.SyncDeleted, v1.SyncPending},
			expected: v1.SyncSyncedError,
		},
		{
			name:     "deleting parent waits for children",
			parent:   v1.SyncDeleting,
			children: []v1.SyncStatus{v1.SyncDeleting, v1.SyncDeleted},
			expected: v1.SyncDeleting,
		},
		{
			name:     "deleting parent finishes when empty",
			parent:   v1.SyncDeleting,
			children: nil,
			expected: v1.SyncDeleted,
		},
		{
			name:     "deleting parent sticks on delete failure",
			parent:   v1.SyncDeleting,
			children: []v1.SyncStatus{v1.SyncDeleteFailed},
			expected: v1.SyncDeleteFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := ResolveParent(tt.parent, tt.children)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveProject(t *testing.T) {
	tests := []struct {
		name      string
		current   v1.ProjectStatus
		namespace v1.NamespaceStatus
		quota     v1.QuotaStatus
		expected  v1.ProjectStatus
	}{
		{
			name:      "both ready",
			current:   v1.ProjectPending,
			namespace: v1.NamespaceActive,
			quota:     v1.QuotaReady,
			expected:  v1.ProjectReady,
		},
		{
			name:      "both pending",
			current:   v1.ProjectPending,
			namespace: v1.NamespacePending,
			quota:     v1.QuotaPending,
			expected:  v1.ProjectPending,
		},
		{
			name:      "namespace ready quota pending",
			current:   v1.ProjectPending,
			namespace: v1.NamespaceActive,
			quota:     v1.QuotaPending,
			expected:  v1.ProjectPartiallyReady,
		},
		{
			name:      "namespace failed",
			current:   v1.ProjectReady,
			namespace: v1.NamespaceFailed,
			quota:     v1.QuotaReady,
			expected:  v1.ProjectFailed,
		},
		{
			name:      "quota failed",
			current:   v1.ProjectReady,
			namespace: v1.NamespaceActive,
			quota:     v1.QuotaFailed,
			expected:  v1.ProjectFailed,
		},
		{
			name:      "deleting sticks regardless of children",
			current:   v1.ProjectDeleting,
			namespace: v1.NamespaceActive,
			quota:     v1.QuotaReady,
			expected:  v1.ProjectDeleting,
		},
		{
			name:      "terminating namespace outside deletion fails",
			current:   v1.ProjectReady,
			namespace: v1.NamespaceTerminating,
			quota:     v1.QuotaReady,
			expected:  v1.ProjectFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := ResolveProject(tt.current, tt.namespace, "", tt.quota, "")
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveWorkload(t *testing.T) {
	tests := []struct {
		name       string
		current    v1.WorkloadStatus
		components []v1.ComponentStatus
		expected   v1.WorkloadStatus
	}{
		{
			name:       "no components yet",
			current:    v1.WorkloadPending,
			components: nil,
			expected:   v1.WorkloadPending,
		},
		{
			name:       "all running",
			current:    v1.WorkloadPending,
			components: []v1.ComponentStatus{v1.ComponentRunning, v1.ComponentReady},
			expected:   v1.WorkloadRunning,
		},
		{
			name:       "running with added config",
			current:    v1.WorkloadPending,
			components: []v1.ComponentStatus{v1.ComponentRunning, v1.ComponentAdded},
			expected:   v1.WorkloadRunning,
		},
		{
			name:       "complete once every runtime component finished",
			current:    v1.WorkloadRunning,
			components: []v1.ComponentStatus{v1.ComponentComplete, v1.ComponentAdded},
			expected:   v1.WorkloadComplete,
		},
		{
			name:       "one failure fails the workload",
			current:    v1.WorkloadRunning,
			components: []v1.ComponentStatus{v1.ComponentRunning, v1.ComponentFailed},
			expected:   v1.WorkloadFailed,
		},
		{
			name:       "create failure wins over runtime failure",
			current:    v1.WorkloadPending,
			components: []v1.ComponentStatus{v1.ComponentCreateFailed, v1.ComponentFailed},
			expected:   v1.WorkloadCreateFailed,
		},
		{
			name:       "still starting",
			current:    v1.WorkloadPending,
			components: []v1.ComponentStatus{v1.ComponentPending, v1.ComponentRunning},
			expected:   v1.WorkloadPending,
		},
		{
			name:       "unexpected component delete",
			current:    v1.WorkloadRunning,
			components: []v1.ComponentStatus{v1.ComponentRunning, v1.ComponentDeleted},
			expected:   v1.WorkloadFailed,
		},
		{
			name:       "deleting waits for all components",
			current:    v1.WorkloadDeleting,
			components: []v1.ComponentStatus{v1.ComponentDeleted, v1.ComponentRunning},
			expected:   v1.WorkloadDeleting,
		},
		{
			name:       "deleting finishes when all confirmed",
			current:    v1.WorkloadDeleting,
			components: []v1.ComponentStatus{v1.ComponentDeleted, v1.ComponentDeleted},
			expected:   v1.WorkloadDeleted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := ResolveWorkload(tt.current, tt.components)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveProjectStorage(t *testing.T) {
	tests := []struct {
		name      string
		configmap v1.ComponentStatus
		secret    v1.SyncStatus
		expected  v1.SyncStatus
	}{
		{"both healthy", v1.ComponentAdded, v1.SyncSynced, v1.SyncSynced},
		{"secret still syncing", v1.ComponentAdded, v1.SyncPending, v1.SyncPending},
		{"configmap failed", v1.ComponentCreateFailed, v1.SyncSynced, v1.SyncFailed},
		{"secret failed", v1.ComponentAdded, v1.SyncFailed, v1.SyncFailed},
		{"configmap gone behind our back", v1.ComponentDeleted, v1.SyncSynced, v1.SyncSyncedError},
		{"secret gone behind our back", v1.ComponentAdded, v1.SyncDeleted, v1.SyncSyncedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := ResolveProjectStorage(tt.configmap, tt.secret)
			assert.Equal(t, tt.expected, result)
		})
	}
}
