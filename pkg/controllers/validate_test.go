/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"valid", "ml-training", ""},
		{"valid with digits", "team42", ""},
		{"minimum length", "ab", ""},
		{"too short", "a", "characters"},
		{"too long", strings.Repeat("a", v1.ProjectNameMaxLen+1), "characters"},
		{"uppercase", "MyProject", "dns label"},
		{"leading dash", "-team", "dns label"},
		{"trailing dash", "team-", "dns label"},
		{"dots not allowed", "team.a", "dns label"},
		{"catch-all name reserved", "kaiwo", "reserved"},
		{"reserved idp group", "platformadmins", "reserved"},
		{"reserved name case-insensitive check", "minio-users", "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectName(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.wantErr)
		})
	}
}

func TestValidateProjectNameRestrictedCode(t *testing.T) {
	err := ValidateProjectName("kaiwo")
	assert.Error(t, err)
	assert.Equal(t, commonerrors.RestrictedName, commonerrors.GetErrorCode(err))
	assert.True(t, commonerrors.IsValidation(err))
}

func TestValidateSubdomainName(t *testing.T) {
	assert.NoError(t, ValidateSubdomainName("secret", "hf-token"))
	assert.NoError(t, ValidateSubdomainName("storage", "datasets.eu-west"))
	assert.Error(t, ValidateSubdomainName("secret", "x"))
	assert.Error(t, ValidateSubdomainName("secret", "Token"))
	assert.Error(t, ValidateSubdomainName("secret", ".leading-dot"))
	assert.Error(t, ValidateSubdomainName("storage", strings.Repeat("a", v1.SubdomainNameMaxLen+1)))
}

func TestDeriveClusterStatus(t *testing.T) {
	now := time.Now()

	neverSeen := &dbclient.Cluster{}
	assert.Equal(t, v1.ClusterVerifying, DeriveClusterStatus(neverSeen, now))

	fresh := &dbclient.Cluster{
		LastHeartbeatAt: pq.NullTime{Time: now.Add(-time.Minute), Valid: true},
	}
	assert.Equal(t, v1.ClusterHealthy, DeriveClusterStatus(fresh, now))

	silent := &dbclient.Cluster{
		LastHeartbeatAt: pq.NullTime{Time: now.Add(-time.Hour), Valid: true},
	}
	assert.Equal(t, v1.ClusterUnhealthy, DeriveClusterStatus(silent, now))
}
