/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"k8s.io/klog/v2"

	"github.com/amd-enterprise-ai/airm/pkg/utils/backoff"
)

const (
	dialRetryMaxElapsed  = 2 * time.Minute
	dialRetryMaxInterval = 10 * time.Second
)

// Endpoint identifies one broker vhost. Url carries scheme, host, port and
// credentials; the vhost is tracked separately so one config entry serves
// every per-cluster vhost.
type Endpoint struct {
	Url   string
	Vhost string
}

func (e Endpoint) amqpUri() (string, error) {
	u, err := url.Parse(e.Url)
	if err != nil {
		return "", fmt.Errorf("invalid broker url: %w", err)
	}
	u.Path = "/" + url.PathEscape(e.Vhost)
	return u.String(), nil
}

// Connection is a self-healing AMQP connection to one vhost. Channel() hands
// out fresh channels and re-dials transparently after a connection loss.
type Connection struct {
	endpoint Endpoint

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewConnection(endpoint Endpoint) *Connection {
	return &Connection{endpoint: endpoint}
}

// Channel returns a new channel, dialing first when no healthy connection
// exists. Channels are cheap; callers close them when done.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		if err := c.dial(); err != nil {
			return nil, err
		}
	}
	ch, err := c.conn.Channel()
	if err != nil {
		// The connection may have died between the health check and the
		// channel open; one re-dial covers it.
		if dialErr := c.dial(); dialErr != nil {
			return nil, dialErr
		}
		return c.conn.Channel()
	}
	return ch, nil
}

// dial connects with exponential backoff. Callers hold c.mu.
func (c *Connection) dial() error {
	uri, err := c.endpoint.amqpUri()
	if err != nil {
		return err
	}
	err = backoff.Retry(func() error {
		conn, dialErr := amqp.Dial(uri)
		if dialErr != nil {
			klog.ErrorS(dialErr, "failed to dial broker", "vhost", c.endpoint.Vhost)
			return dialErr
		}
		c.conn = conn
		return nil
	}, dialRetryMaxElapsed, dialRetryMaxInterval)
	if err != nil {
		return fmt.Errorf("failed to connect vhost %s: %w", c.endpoint.Vhost, err)
	}
	klog.InfoS("connected to broker", "vhost", c.endpoint.Vhost)
	return nil
}

func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			klog.ErrorS(err, "failed to close broker connection", "vhost", c.endpoint.Vhost)
		}
	}
	c.conn = nil
}

// IsHealthy reports whether a live connection is currently held. Used by the
// controller health endpoint.
func (c *Connection) IsHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// declareQueue declares the durable queue the fabric uses on every vhost.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}
