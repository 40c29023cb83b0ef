/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

func TestEncodeDecodeHeartbeat(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	data, err := Encode(v1.NewHeartbeat("cluster-1", "acme", at))
	assert.NoError(t, err)

	decoded, err := Decode(data)
	assert.NoError(t, err)
	hb, ok := decoded.(*v1.Heartbeat)
	assert.True(t, ok)
	assert.Equal(t, "cluster-1", hb.ClusterName)
	assert.Equal(t, "acme", hb.OrganizationName)
	assert.True(t, hb.LastHeartbeatAt.Equal(at))
}

func TestEncodeDecodeWorkloadCreate(t *testing.T) {
	at := time.Now().UTC().Truncate(time.Second)
	msg := v1.NewWorkloadCreate("wl-1", "proj-1", "alpha-ns", "apiVersion: v1\nkind: ConfigMap\n", at)
	data, err := Encode(msg)
	assert.NoError(t, err)

	decoded, err := Decode(data)
	assert.NoError(t, err)
	create, ok := decoded.(*v1.WorkloadCreate)
	assert.True(t, ok)
	assert.Equal(t, msg.WorkloadId, create.WorkloadId)
	assert.Equal(t, msg.Manifests, create.Manifests)
}

func TestEncodeRefusesMissingDiscriminator(t *testing.T) {
	_, err := Encode(&v1.Heartbeat{ClusterName: "cluster-1"})
	assert.Error(t, err)
	var unknown *ErrUnknownMessageType
	assert.ErrorAs(t, err, &unknown)

	_, err = Encode(nil)
	assert.Error(t, err)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"message_type":"telemetry_v2"}`))
	assert.Error(t, err)
	var unknown *ErrUnknownMessageType
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, v1.MessageType("telemetry_v2"), unknown.MessageType)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)
	var unknown *ErrUnknownMessageType
	assert.False(t, errors.As(err, &unknown), "malformed bodies must not look requeueable")
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`{"message_type":"heartbeat","cluster_name":"c1","organization_name":"o1","last_heartbeat_at":"2025-06-01T12:00:00Z","extra_field":true}`))
	assert.Error(t, err)
}
