/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package authority

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

var signingKey *rsa.PrivateKey

// TestMain mounts a generated verification key before any test runs; the
// parsed key is cached process-wide.
func TestMain(m *testing.M) {
	var err error
	signingKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	dir, err := os.MkdirTemp("", "jwt")
	if err != nil {
		panic(err)
	}

	der, err := x509.MarshalPKIXPublicKey(&signingKey.PublicKey)
	if err != nil {
		panic(err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err := os.WriteFile(filepath.Join(dir, "public.pem"), pemBytes, 0o600); err != nil {
		panic(err)
	}
	commonconfig.SetValue("jwt.secret_path", dir)

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(signingKey)
	assert.NoError(t, err)
	return raw
}

func TestParseToken(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub":          "user-1",
		"email":        "dev@example.com",
		"org_id":       "org-1",
		"groups":       []string{"proj-1", "proj-2"},
		"realm_access": map[string]interface{}{"roles": []string{v1.RoleTeamMember}},
		"exp":          time.Now().Add(time.Hour).Unix(),
	})

	principal, err := ParseToken(raw)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", principal.UserId)
	assert.Equal(t, "dev@example.com", principal.Email)
	assert.Equal(t, "org-1", principal.OrganizationId)
	assert.Equal(t, []string{"proj-1", "proj-2"}, principal.Projects)
	assert.Equal(t, "dev@example.com", principal.Name())
}

func TestParseTokenExpired(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err := ParseToken(raw)
	assert.Error(t, err)
	assert.Equal(t, commonerrors.Unauthorized, commonerrors.GetErrorCode(err))
}

func TestParseTokenNoSubject(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err := ParseToken(raw)
	assert.Error(t, err)
}

func TestParseTokenWrongAlgorithm(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("shared-secret"))
	assert.NoError(t, err)

	_, err = ParseToken(raw)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"plain bearer", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"case-insensitive scheme", "bearer abc", "abc", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic dXNlcg==", "", true},
		{"scheme only", "Bearer ", "", true},
		{"no scheme", "abc.def.ghi", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrincipalRoles(t *testing.T) {
	member := &Principal{Roles: []string{v1.RoleTeamMember}, Projects: []string{"proj-1"}}
	assert.True(t, member.HasRole(v1.RoleTeamMember))
	assert.False(t, member.HasRole(v1.RolePlatformAdmin))
	assert.True(t, member.CanAccessProject("proj-1"))
	assert.False(t, member.CanAccessProject("proj-2"))

	admin := &Principal{Roles: []string{v1.RolePlatformAdmin}}
	assert.True(t, admin.CanAccessProject("proj-2"))

	super := &Principal{Roles: []string{v1.RoleSuperAdmin}}
	assert.True(t, super.HasRole(v1.RolePlatformAdmin))
	assert.True(t, super.CanAccessProject("anything"))

	anonymous := &Principal{UserId: "user-1"}
	assert.Equal(t, "user-1", anonymous.Name())
}
