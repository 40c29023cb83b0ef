/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

func obj(spec, status map[string]interface{}) *unstructured.Unstructured {
	o := map[string]interface{}{}
	if spec != nil {
		o["spec"] = spec
	}
	if status != nil {
		o["status"] = status
	}
	return &unstructured.Unstructured{Object: o}
}

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name     string
		spec     map[string]interface{}
		status   map[string]interface{}
		expected v1.ComponentStatus
	}{
		{
			name:     "suspended",
			spec:     map[string]interface{}{"suspend": true},
			status:   map[string]interface{}{"active": int64(1)},
			expected: v1.ComponentSuspended,
		},
		{
			name:     "active pods",
			status:   map[string]interface{}{"active": int64(2)},
			expected: v1.ComponentRunning,
		},
		{
			name:     "succeeded with default completions",
			status:   map[string]interface{}{"succeeded": int64(1)},
			expected: v1.ComponentComplete,
		},
		{
			name:     "partially succeeded",
			spec:     map[string]interface{}{"completions": int64(3)},
			status:   map[string]interface{}{"succeeded": int64(2)},
			expected: v1.ComponentPending,
		},
		{
			name:     "failed pods",
			status:   map[string]interface{}{"failed": int64(1)},
			expected: v1.ComponentFailed,
		},
		{
			name:     "nothing reported yet",
			expected: v1.ComponentPending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := jobStatus(obj(tt.spec, tt.status))
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestJobFailureReason(t *testing.T) {
	o := obj(nil, map[string]interface{}{
		"failed": int64(1),
		"conditions": []interface{}{
			map[string]interface{}{"type": "Failed", "status": "True", "reason": "BackoffLimitExceeded"},
		},
	})
	status, reason := jobStatus(o)
	assert.Equal(t, v1.ComponentFailed, status)
	assert.Equal(t, "BackoffLimitExceeded", reason)
}

func TestDeploymentStatus(t *testing.T) {
	running := obj(
		map[string]interface{}{"replicas": int64(2)},
		map[string]interface{}{"readyReplicas": int64(2)})
	result, _ := deploymentStatus(running)
	assert.Equal(t, v1.ComponentRunning, result)

	rollingOut := obj(
		map[string]interface{}{"replicas": int64(3)},
		map[string]interface{}{"readyReplicas": int64(2)})
	result, _ = deploymentStatus(rollingOut)
	assert.Equal(t, v1.ComponentPending, result)

	// Unset replicas defaults to one.
	single := obj(nil, map[string]interface{}{"readyReplicas": int64(1)})
	result, _ = deploymentStatus(single)
	assert.Equal(t, v1.ComponentRunning, result)
}

func TestStatefulSetStatus(t *testing.T) {
	ready := obj(
		map[string]interface{}{"replicas": int64(2)},
		map[string]interface{}{"readyReplicas": int64(2), "availableReplicas": int64(2)})
	result, _ := statefulSetStatus(ready)
	assert.Equal(t, v1.ComponentRunning, result)

	notAvailable := obj(
		map[string]interface{}{"replicas": int64(2)},
		map[string]interface{}{"readyReplicas": int64(2), "availableReplicas": int64(1)})
	result, _ = statefulSetStatus(notAvailable)
	assert.Equal(t, v1.ComponentPending, result)
}

func TestDaemonSetStatus(t *testing.T) {
	ready := obj(nil, map[string]interface{}{
		"desiredNumberScheduled": int64(3), "numberReady": int64(3), "numberAvailable": int64(3)})
	result, _ := daemonSetStatus(ready)
	assert.Equal(t, v1.ComponentRunning, result)

	empty := obj(nil, map[string]interface{}{"desiredNumberScheduled": int64(0)})
	result, _ = daemonSetStatus(empty)
	assert.Equal(t, v1.ComponentPending, result)
}

func TestPodStatus(t *testing.T) {
	tests := []struct {
		phase    string
		expected v1.ComponentStatus
	}{
		{"Pending", v1.ComponentPending},
		{"Running", v1.ComponentRunning},
		{"Succeeded", v1.ComponentComplete},
		{"Failed", v1.ComponentFailed},
		{"", v1.ComponentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			result, _ := podStatus(obj(nil, map[string]interface{}{"phase": tt.phase}))
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestServiceStatus(t *testing.T) {
	valid := obj(map[string]interface{}{
		"selector": map[string]interface{}{"app": "web"},
		"ports":    []interface{}{map[string]interface{}{"port": int64(80)}},
	}, nil)
	result, _ := serviceStatus(valid)
	assert.Equal(t, v1.ComponentReady, result)

	noSelector := obj(map[string]interface{}{
		"ports": []interface{}{map[string]interface{}{"port": int64(80)}},
	}, nil)
	result, reason := serviceStatus(noSelector)
	assert.Equal(t, v1.ComponentInvalid, result)
	assert.NotEmpty(t, reason)

	pendingLb := obj(map[string]interface{}{
		"type":     "LoadBalancer",
		"selector": map[string]interface{}{"app": "web"},
		"ports":    []interface{}{map[string]interface{}{"port": int64(80)}},
	}, nil)
	result, _ = serviceStatus(pendingLb)
	assert.Equal(t, v1.ComponentPending, result)

	readyLb := obj(map[string]interface{}{
		"type":     "LoadBalancer",
		"selector": map[string]interface{}{"app": "web"},
		"ports":    []interface{}{map[string]interface{}{"port": int64(80)}},
	}, map[string]interface{}{
		"loadBalancer": map[string]interface{}{
			"ingress": []interface{}{map[string]interface{}{"ip": "10.0.0.1"}},
		},
	})
	result, _ = serviceStatus(readyLb)
	assert.Equal(t, v1.ComponentReady, result)
}

func TestCrStatus(t *testing.T) {
	running := obj(nil, map[string]interface{}{"status": "RUNNING"})
	result, _ := crStatus(running)
	assert.Equal(t, v1.ComponentRunning, result)

	failed := obj(nil, map[string]interface{}{"status": "FAILED", "message": "image pull failed"})
	result, reason := crStatus(failed)
	assert.Equal(t, v1.ComponentFailed, result)
	assert.Equal(t, "image pull failed", reason)

	empty := obj(nil, nil)
	result, _ = crStatus(empty)
	assert.Equal(t, v1.ComponentUnknown, result)

	// Operator vocabulary outside the enum degrades to Unknown instead of
	// flowing into the controller verbatim.
	novel := obj(nil, map[string]interface{}{"status": "PROVISIONING", "message": "rolling out"})
	result, reason = crStatus(novel)
	assert.Equal(t, v1.ComponentUnknown, result)
	assert.Equal(t, "rolling out", reason)
}

func TestKnownComponentStatus(t *testing.T) {
	assert.True(t, v1.KnownComponentStatus(v1.ComponentRunning))
	assert.True(t, v1.KnownComponentStatus(v1.ComponentCreateFailed))
	assert.False(t, v1.KnownComponentStatus("PROVISIONING"))
	assert.False(t, v1.KnownComponentStatus(""))
}

func TestAddedOnlyStatus(t *testing.T) {
	result, _ := addedOnlyStatus(obj(nil, nil))
	assert.Equal(t, v1.ComponentAdded, result)
}
