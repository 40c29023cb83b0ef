/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package authority validates bearer tokens issued by the identity provider
// and exposes the caller's identity to the handlers.
package authority

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

// Principal is the authenticated caller extracted from the token.
type Principal struct {
	UserId         string
	Email          string
	OrganizationId string
	Roles          []string
	// Projects holds the project memberships carried in the token's groups
	// claim. Admin roles bypass the membership check.
	Projects []string
}

func (p *Principal) Name() string {
	if p.Email != "" {
		return p.Email
	}
	return p.UserId
}

func (p *Principal) HasRole(roles ...string) bool {
	// The super admin implicitly holds every role.
	if lo.Contains(p.Roles, v1.RoleSuperAdmin) {
		return true
	}
	for _, role := range roles {
		if lo.Contains(p.Roles, role) {
			return true
		}
	}
	return false
}

// CanAccessProject reports whether the caller may operate inside the named
// project. Membership travels as project names in the groups claim; platform
// admins see every project of their organization.
func (p *Principal) CanAccessProject(projectName string) bool {
	if p.HasRole(v1.RolePlatformAdmin) {
		return true
	}
	return lo.Contains(p.Projects, projectName)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email          string   `json:"email,omitempty"`
	OrganizationId string   `json:"org_id,omitempty"`
	Groups         []string `json:"groups,omitempty"`
	RealmAccess    struct {
		Roles []string `json:"roles,omitempty"`
	} `json:"realm_access,omitempty"`
}

var (
	keyOnce   sync.Once
	publicKey *rsa.PublicKey
	keyErr    error
)

// verificationKey parses the mounted PEM once. A missing key is a deployment
// error; every request fails until it is fixed.
func verificationKey() (*rsa.PublicKey, error) {
	keyOnce.Do(func() {
		pem := commonconfig.GetJwtPublicKey()
		if pem == "" {
			keyErr = fmt.Errorf("the jwt public key is not configured")
			return
		}
		publicKey, keyErr = jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	})
	return publicKey, keyErr
}

// ParseToken validates the signed token and returns the caller principal.
func ParseToken(raw string) (*Principal, error) {
	key, err := verificationKey()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if issuer := commonconfig.GetJwtIssuer(); issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	if audience := commonconfig.GetJwtAudience(); audience != "" {
		options = append(options, jwt.WithAudience(audience))
	}
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, options...)
	if err != nil {
		return nil, commonerrors.NewUnauthorized(fmt.Sprintf("invalid token: %v", err))
	}
	if !token.Valid {
		return nil, commonerrors.NewUnauthorized("invalid token")
	}
	if claims.Subject == "" {
		return nil, commonerrors.NewUnauthorized("the token carries no subject")
	}
	return &Principal{
		UserId:         claims.Subject,
		Email:          claims.Email,
		OrganizationId: claims.OrganizationId,
		Roles:          claims.RealmAccess.Roles,
		Projects:       claims.Groups,
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", commonerrors.NewUnauthorized("the authorization header is missing")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", commonerrors.NewUnauthorized("the authorization header is not a bearer token")
	}
	return strings.TrimSpace(parts[1]), nil
}
