/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

// Sender publishes one message toward one cluster. The controller-side
// registry and the dispatcher-side common publisher both satisfy it, as does
// the outbox used inside transactions.
type Sender interface {
	Publish(ctx context.Context, clusterId string, msg v1.Message) error
}

// Publisher writes to a single queue on a single vhost with publisher
// confirms. A lost channel is rebuilt on the next publish, so emission order
// within one publisher is preserved.
type Publisher struct {
	conn           *Connection
	queue          string
	publishTimeout time.Duration

	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(conn *Connection, queue string, publishTimeout time.Duration) *Publisher {
	return &Publisher{conn: conn, queue: queue, publishTimeout: publishTimeout}
}

// Publish encodes and sends one message, waiting for the broker confirm.
// An unconfirmed publish is an error; the caller decides whether to retry.
func (p *Publisher) Publish(ctx context.Context, msg v1.Message) error {
	body, err := Encode(msg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	if p.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		// Drop the dead channel so the next publish rebuilds it.
		p.ch = nil
		return fmt.Errorf("failed to publish %s to %s: %w", msg.GetMessageType(), p.queue, err)
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		p.ch = nil
		return fmt.Errorf("confirm wait for %s on %s: %w", msg.GetMessageType(), p.queue, err)
	}
	if !ok {
		return fmt.Errorf("broker nacked %s on %s", msg.GetMessageType(), p.queue)
	}
	klog.V(4).InfoS("published message", "type", msg.GetMessageType(), "queue", p.queue)
	return nil
}

// channel returns the cached confirm-mode channel, creating one on demand.
// Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable confirms on %s: %w", p.queue, err)
	}
	if err := declareQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		_ = p.ch.Close()
	}
	p.ch = nil
}

// Registry hands out one publisher per cluster vhost so messages to a given
// cluster keep their emission order. It satisfies Sender for the outbox.
type Registry struct {
	brokerUrl      string
	publishTimeout time.Duration

	mu         sync.Mutex
	publishers map[string]*Publisher
	conns      map[string]*Connection
}

func NewRegistry(brokerUrl string, publishTimeout time.Duration) *Registry {
	return &Registry{
		brokerUrl:      brokerUrl,
		publishTimeout: publishTimeout,
		publishers:     map[string]*Publisher{},
		conns:          map[string]*Connection{},
	}
}

// Publish routes the message onto the cluster's dedicated vhost and queue.
func (r *Registry) Publish(ctx context.Context, clusterId string, msg v1.Message) error {
	return r.publisherFor(clusterId).Publish(ctx, msg)
}

func (r *Registry) publisherFor(clusterId string) *Publisher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.publishers[clusterId]; ok {
		return p
	}
	conn := NewConnection(Endpoint{Url: r.brokerUrl, Vhost: v1.ClusterVhostPrefix + clusterId})
	p := NewPublisher(conn, clusterId, r.publishTimeout)
	r.conns[clusterId] = conn
	r.publishers[clusterId] = p
	return p
}

// Forget drops the cached publisher of a removed cluster.
func (r *Registry) Forget(clusterId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.publishers[clusterId]; ok {
		p.Close()
		delete(r.publishers, clusterId)
	}
	if conn, ok := r.conns[clusterId]; ok {
		conn.Close()
		delete(r.conns, clusterId)
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.publishers {
		p.Close()
	}
	for _, conn := range r.conns {
		conn.Close()
	}
	r.publishers = map[string]*Publisher{}
	r.conns = map[string]*Connection{}
}
