/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleBundle = `apiVersion: batch/v1
kind: Job
metadata:
  name: train
  labels:
    workload-id: wl-1
    component-id: cmp-1
---
apiVersion: v1
kind: Service
metadata:
  name: train-svc
  namespace: custom-ns
---
`

func TestSplitManifests(t *testing.T) {
	objs, err := splitManifests(sampleBundle)
	assert.NoError(t, err)
	assert.Len(t, objs, 2)

	assert.Equal(t, "Job", objs[0].GetKind())
	assert.Equal(t, "train", objs[0].GetName())
	assert.Equal(t, "wl-1", objs[0].GetLabels()["workload-id"])
	assert.Equal(t, "", objs[0].GetNamespace())

	assert.Equal(t, "Service", objs[1].GetKind())
	assert.Equal(t, "custom-ns", objs[1].GetNamespace())
}

func TestSplitManifestsEmptyDocuments(t *testing.T) {
	objs, err := splitManifests("---\n\n---\n")
	assert.NoError(t, err)
	assert.Empty(t, objs)
}

func TestSplitManifestsMissingKind(t *testing.T) {
	_, err := splitManifests("metadata:\n  name: nameless\n")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "apiVersion or kind")
}

func TestSplitManifestsInvalidYaml(t *testing.T) {
	_, err := splitManifests("kind: Job\n\tbad-indent: true\n")
	assert.Error(t, err)
}

func TestParseVram(t *testing.T) {
	assert.Equal(t, int64(192<<30), parseVram("192Gi"))
	// Bare integers are MiB, the nvidia plugin convention.
	assert.Equal(t, int64(81920<<20), parseVram("81920"))
	assert.Equal(t, int64(0), parseVram(""))
	assert.Equal(t, int64(0), parseVram("not-a-quantity"))
}
