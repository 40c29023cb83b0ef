/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// statusMapper derives a component status from one observed object. Each
// watched kind gets its own mapper; kinds without meaningful runtime state
// map to ADDED once and stay there.
type statusMapper func(obj *unstructured.Unstructured) (v1.ComponentStatus, string)

func jobStatus(obj *unstructured.Unstructured) (v1.ComponentStatus, string) {
	if suspended, _, _ := unstructured.NestedBool(obj.Object, "spec", "suspend"); suspended {
		return v1.ComponentSuspended, ""
	}
	if active, _, _ := unstructured.NestedInt64(obj.Object, "status", "active"); active > 0 {
		return v1.ComponentRunning, ""
	}
	completions, found, _ := unstructured.NestedInt64(obj.Object, "spec", "completions")
	if !found {
		completions = 1
	}
	if succeeded, _, _ := unstructured.NestedInt64(obj.Object, "status", "succeeded"); succeeded >= completions {
		return v1.ComponentComplete, ""
	}
	if failed, _, _ := unstructured.NestedInt64(obj.Object, "status", "failed"); failed > 0 {
		return v1.ComponentFailed, jobFailureReason(obj)
	}
	return v1.ComponentPending, ""
}

func jobFailureReason(obj *unstructured.Unstructured) string {
	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, raw := range conditions {
		cond, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		condType, _, _ := unstructured.NestedString(cond, "type")
		condStatus, _, _ := unstructured.NestedString(cond, "status")
		if condType == "Failed" && condStatus == "True" {
			reason, _, _ := unstructured.NestedString(cond, "reason")
			return reason
		}
	}
	return ""
}

func deploymentStatus(obj *unstructured.Unstructured) (v1.ComponentStatus, string) {
	replicas, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	if !found {
		replicas = 1
	}
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")
	if replicas > 0 && ready >= replicas {
		return v1.ComponentRunning, ""
	}
	return v1.ComponentPending, ""
}

func statefulSetStatus(obj *unstructured.Unstructured) (v1.ComponentStatus, string) {
	replicas, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	if !found {
		replicas = 1
	}
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")
	available, _, _ := unstructured.NestedInt64(obj.Object, "status", "availableReplicas")
	if replicas > 0 && ready >= replicas && available >= replicas {
		return v1.ComponentRunning, ""
	}
	return v1.ComponentPending, ""
}

func daemonSetStatus(obj *unstructured.Unstructured) (v1.ComponentStatus, string) {
	desired, _, _ := unstructured.NestedInt64(obj.Object, "status", "desiredNumberScheduled")
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "numberReady")
	available, _, _ := unstructured.NestedInt64(obj.Object, "status", "numberAvailable")
	if desired > 0 && ready >= desired && available >= desired {
		return v1.ComponentRunning, ""
	}
	return v1.ComponentPending, ""
}

func podStatus(obj *unstructured.Unstructured) (v1.ComponentStatus, string) {
	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
	switch phase {
	case "Pending":
		return v1.ComponentPending, ""
	case "Running":
		return v1.ComponentRunning, ""
	case "Succeeded":
		return v1.ComponentComplete, ""
	case "Failed":
		reason, _, _ := unstructured.NestedString(obj.Object, "status", "reason")
		return v1.ComponentFailed, reason
	default:
		return v1.ComponentUnknown, ""
	}
}

func serviceStatus(obj *unstructured.Unstructured) (v1.ComponentStatus, string) {
	selector, _, _ := unstructured.NestedMap(obj.Object, "spec", "selector")
	ports, _, _ := unstructured.NestedSlice(obj.Object, "spec", "ports")
	if len(selector) == 0 || len(ports) == 0 {
		return v1.ComponentInvalid, "service has no selector or ports"
	}
	svcType, _, _ := unstructured.NestedString(obj.Object, "spec", "type")
	if svcType == "LoadBalancer" {
		ingress, _, _ := unstructured.NestedSlice(obj.Object, "status", "loadBalancer", "ingress")
		if len(ingress) == 0 {
			return v1.ComponentPending, "waiting for load balancer"
		}
	}
	return v1.ComponentReady, ""
}

// crStatus passes the operator-reported status through when it matches the
// component vocabulary. Anything else, including an absent status, reads as
// Unknown so a novel operator string cannot leak into the controller.
func crStatus(obj *unstructured.Unstructured) (v1.ComponentStatus, string) {
	status, _, _ := unstructured.NestedString(obj.Object, "status", "status")
	reason, _, _ := unstructured.NestedString(obj.Object, "status", "message")
	parsed := v1.ComponentStatus(status)
	if !v1.KnownComponentStatus(parsed) {
		return v1.ComponentUnknown, reason
	}
	return parsed, reason
}

// addedOnlyStatus is for config-like kinds whose presence is the whole story.
func addedOnlyStatus(*unstructured.Unstructured) (v1.ComponentStatus, string) {
	return v1.ComponentAdded, ""
}
