/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

type fakeSender struct {
	sent    []string
	failAt  int
	samples []v1.Message
}

func (f *fakeSender) Publish(_ context.Context, clusterId string, msg v1.Message) error {
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		return fmt.Errorf("broker unavailable")
	}
	f.sent = append(f.sent, clusterId+"/"+string(msg.GetMessageType()))
	f.samples = append(f.samples, msg)
	return nil
}

func TestOutboxFlushPreservesOrder(t *testing.T) {
	now := time.Now().UTC()
	outbox := NewOutbox()
	outbox.Enqueue("c1", v1.NewProjectNamespaceCreate("p1", "alpha-ns", nil, now))
	outbox.Enqueue("c1", v1.NewProjectSecretsDelete("p1", "s1", "alpha-ns", "token", now))
	outbox.Enqueue("c2", v1.NewDeleteWorkload("wl1", "beta-ns", now))
	assert.Equal(t, 3, outbox.Len())

	sender := &fakeSender{}
	assert.NoError(t, outbox.Flush(context.Background(), sender))
	assert.Equal(t, []string{
		"c1/project_namespace_create",
		"c1/project_secrets_delete",
		"c2/delete_workload",
	}, sender.sent)
	assert.Equal(t, 0, outbox.Len())
}

func TestOutboxFlushStopsOnFailure(t *testing.T) {
	now := time.Now().UTC()
	outbox := NewOutbox()
	outbox.Enqueue("c1", v1.NewProjectNamespaceCreate("p1", "alpha-ns", nil, now))
	outbox.Enqueue("c1", v1.NewProjectNamespaceDelete("p2", "beta-ns", now))
	outbox.Enqueue("c1", v1.NewDeleteWorkload("wl1", "beta-ns", now))

	sender := &fakeSender{failAt: 2}
	err := outbox.Flush(context.Background(), sender)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "project_namespace_delete")
	assert.Len(t, sender.sent, 1)
	// The unsent remainder survives for a retry.
	assert.Equal(t, 2, outbox.Len())

	sender.failAt = 0
	assert.NoError(t, outbox.Flush(context.Background(), sender))
	assert.Len(t, sender.sent, 3)
}

func TestOutboxFlushOnlyOnce(t *testing.T) {
	outbox := NewOutbox()
	sender := &fakeSender{}
	assert.NoError(t, outbox.Flush(context.Background(), sender))
	assert.Error(t, outbox.Flush(context.Background(), sender))
}
