/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

const consumeRetryDelay = 5 * time.Second

// Handler processes one decoded message. A returned error requeues the
// delivery, so handlers must be idempotent under at-least-once redelivery.
type Handler func(ctx context.Context, msg v1.Message) error

// Consumer drains one queue with manual acks. Deliveries are handled one at a
// time; the updated_at dominance checks in the store are the only
// cross-message ordering guarantee.
type Consumer struct {
	conn     *Connection
	queue    string
	prefetch int
	handler  Handler
}

func NewConsumer(conn *Connection, queue string, prefetch int, handler Handler) *Consumer {
	return &Consumer{conn: conn, queue: queue, prefetch: prefetch, handler: handler}
}

// Run consumes until ctx is cancelled, re-opening the channel after broker
// failures. The in-flight message is drained before exit.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if err := c.consume(ctx); err != nil {
			klog.ErrorS(err, "consumer stopped, retrying", "queue", c.queue)
		}
		select {
		case <-ctx.Done():
			klog.InfoS("consumer shut down", "queue", c.queue)
			return
		case <-time.After(consumeRetryDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return err
	}
	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	klog.InfoS("consuming", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery decodes, dispatches and acks one message. Handler errors
// and unknown message types requeue the delivery; only a successfully
// processed message is acked.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	msg, err := Decode(delivery.Body)
	if err != nil {
		var unknown *ErrUnknownMessageType
		if errors.As(err, &unknown) {
			klog.ErrorS(err, "unknown message type, requeueing", "queue", c.queue)
			c.nack(delivery, true)
			return
		}
		// Malformed payloads never become valid; drop them instead of
		// poisoning the queue.
		klog.ErrorS(err, "dropping malformed message", "queue", c.queue)
		c.nack(delivery, false)
		return
	}
	if err := c.handler(ctx, msg); err != nil {
		klog.ErrorS(err, "handler failed, requeueing", "queue", c.queue, "type", msg.GetMessageType())
		c.nack(delivery, true)
		return
	}
	if err := delivery.Ack(false); err != nil {
		klog.ErrorS(err, "failed to ack", "queue", c.queue, "type", msg.GetMessageType())
	}
}

func (c *Consumer) nack(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		klog.ErrorS(err, "failed to nack", "queue", c.queue, "requeue", requeue)
	}
}
