/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"context"
	"fmt"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// Outbox buffers messages produced inside a database transaction. Nothing is
// published until Flush, which the caller invokes strictly after the commit;
// a rolled-back transaction simply drops the outbox. Not safe for concurrent
// use: one outbox belongs to one request.
type Outbox struct {
	pending []outboxEntry
	flushed bool
}

type outboxEntry struct {
	clusterId string
	msg       v1.Message
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Enqueue records a message for the cluster. Order is preserved.
func (o *Outbox) Enqueue(clusterId string, msg v1.Message) {
	o.pending = append(o.pending, outboxEntry{clusterId: clusterId, msg: msg})
}

func (o *Outbox) Len() int {
	return len(o.pending)
}

// Flush publishes the buffered messages in order. On a mid-flush failure the
// unsent remainder stays queued and the error surfaces; already-sent messages
// are not taken back, consumers tolerate the duplicates a retry produces.
func (o *Outbox) Flush(ctx context.Context, sender Sender) error {
	if o.flushed {
		return fmt.Errorf("outbox already flushed")
	}
	for len(o.pending) > 0 {
		entry := o.pending[0]
		if err := sender.Publish(ctx, entry.clusterId, entry.msg); err != nil {
			return fmt.Errorf("outbox flush stopped at %s for cluster %s: %w",
				entry.msg.GetMessageType(), entry.clusterId, err)
		}
		o.pending = o.pending[1:]
	}
	o.flushed = true
	return nil
}
