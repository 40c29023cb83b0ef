/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

const (
	defaultRabbitPort = 5672
	defaultHealthPort = 8081
)

// Config is the dispatcher's immutable runtime configuration. It is filled
// once at startup from the environment, with the gpu-config ConfigMap as the
// fallback source for the cluster and organization names, then only read.
type Config struct {
	OrganizationName string
	ClusterName      string

	RabbitHost     string
	RabbitPort     int
	RabbitUser     string
	RabbitPassword string

	UseLocalKubeContext bool
	HealthPort          int
}

// LoadConfig reads the environment. Names may still be empty afterwards;
// ResolveNames fills them from the cluster once a client exists.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		OrganizationName: os.Getenv("ORG_NAME"),
		ClusterName:      os.Getenv("KUBE_CLUSTER_NAME"),
		RabbitHost:       os.Getenv("RABBITMQ_HOST"),
		RabbitPort:       intEnv("RABBITMQ_PORT", defaultRabbitPort),
		RabbitUser:       os.Getenv("RABBITMQ_USER"),
		RabbitPassword:   os.Getenv("RABBITMQ_PASSWORD"),
		UseLocalKubeContext: boolEnv("USE_LOCAL_KUBE_CONTEXT"),
		HealthPort:          intEnv("HEALTH_PORT", defaultHealthPort),
	}
	if cfg.RabbitHost == "" {
		return nil, fmt.Errorf("RABBITMQ_HOST is not set")
	}
	if cfg.RabbitUser == "" {
		return nil, fmt.Errorf("RABBITMQ_USER is not set")
	}
	return cfg, nil
}

// ResolveNames fills empty cluster/organization names from the well-known
// gpu-config ConfigMap. Both names are required before any message is sent.
func (c *Config) ResolveNames(ctx context.Context, kube kubernetes.Interface) error {
	if c.ClusterName != "" && c.OrganizationName != "" {
		return nil
	}
	cm, err := kube.CoreV1().ConfigMaps(v1.GpuConfigMapNamespace).Get(ctx, v1.GpuConfigMapName, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to read %s/%s: %w", v1.GpuConfigMapNamespace, v1.GpuConfigMapName, err)
	}
	if c.ClusterName == "" {
		c.ClusterName = cm.Data[v1.GpuConfigClusterKey]
	}
	if c.OrganizationName == "" {
		c.OrganizationName = cm.Data[v1.GpuConfigOrgKey]
	}
	if c.ClusterName == "" || c.OrganizationName == "" {
		return fmt.Errorf("cluster or organization name missing from env and %s", v1.GpuConfigMapName)
	}
	return nil
}

// BrokerUrl renders the AMQP endpoint without a vhost; the messaging layer
// attaches the vhost per connection.
func (c *Config) BrokerUrl() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d",
		url.QueryEscape(c.RabbitUser), url.QueryEscape(c.RabbitPassword), c.RabbitHost, c.RabbitPort)
}

// ClusterVhost is the per-cluster inbound vhost. The broker user name is the
// cluster id by provisioning convention.
func (c *Config) ClusterVhost() string {
	return v1.ClusterVhostPrefix + c.RabbitUser
}

// ClusterQueue is the controller-to-dispatcher queue, named after the cluster id.
func (c *Config) ClusterQueue() string {
	return c.RabbitUser
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func boolEnv(key string) bool {
	ok, _ := strconv.ParseBool(os.Getenv(key))
	return ok
}
