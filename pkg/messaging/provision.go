/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"fmt"

	rabbithole "github.com/michaelklishin/rabbit-hole/v2"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/utils/stringutil"
)

const dispatcherSecretBytes = 32

// Provisioner drives the broker management API to set up per-cluster vhosts,
// users and directional permissions.
type Provisioner struct {
	client *rabbithole.Client
}

func NewProvisioner(managementUrl, user, password string) (*Provisioner, error) {
	client, err := rabbithole.NewClient(managementUrl, user, password)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker management client: %w", err)
	}
	return &Provisioner{client: client}, nil
}

// ProvisionCluster creates the cluster vhost and dispatcher user, then grants
// the directional permissions: read-only on the cluster's own vhost, write-
// only on the common vhost. The generated secret is returned exactly once and
// never stored.
func (p *Provisioner) ProvisionCluster(clusterId string) (string, error) {
	secret, err := stringutil.RandomHexSecret(dispatcherSecretBytes)
	if err != nil {
		return "", commonerrors.NewInternalError(fmt.Sprintf("failed to generate dispatcher secret: %v", err))
	}
	vhost := v1.ClusterVhostPrefix + clusterId
	if _, err := p.client.PutVhost(vhost, rabbithole.VhostSettings{}); err != nil {
		return "", p.wrap(err, "failed to create vhost "+vhost)
	}
	if _, err := p.client.PutUser(clusterId, rabbithole.UserSettings{Password: secret}); err != nil {
		return "", p.wrap(err, "failed to create user "+clusterId)
	}
	// Dispatcher may only consume from its own vhost.
	if _, err := p.client.UpdatePermissionsIn(vhost, clusterId, rabbithole.Permissions{
		Configure: ".*",
		Write:     "^$",
		Read:      ".*",
	}); err != nil {
		return "", p.wrap(err, "failed to grant read permissions on "+vhost)
	}
	// And may only publish into the common vhost.
	if _, err := p.client.UpdatePermissionsIn(v1.CommonVhost, clusterId, rabbithole.Permissions{
		Configure: ".*",
		Write:     ".*",
		Read:      "^$",
	}); err != nil {
		return "", p.wrap(err, "failed to grant write permissions on "+v1.CommonVhost)
	}
	klog.InfoS("provisioned cluster messaging", "cluster", clusterId, "vhost", vhost)
	return secret, nil
}

// DeprovisionCluster removes the user and vhost of a deleted cluster.
// Best-effort: a half-removed cluster only leaves an unused vhost behind.
func (p *Provisioner) DeprovisionCluster(clusterId string) error {
	if _, err := p.client.DeleteUser(clusterId); err != nil {
		klog.ErrorS(err, "failed to delete broker user", "cluster", clusterId)
	}
	vhost := v1.ClusterVhostPrefix + clusterId
	if _, err := p.client.DeleteVhost(vhost); err != nil {
		return p.wrap(err, "failed to delete vhost "+vhost)
	}
	return nil
}

func (p *Provisioner) wrap(err error, message string) error {
	return commonerrors.NewExternalServiceError(fmt.Sprintf("%s: %v", message, err))
}
