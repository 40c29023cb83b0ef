/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package authority

import (
	"github.com/gin-gonic/gin"

	"github.com/amd-enterprise-ai/airm/pkg/apiutils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

const principalKey = "airm-principal"

// Authorize validates the bearer token and stores the principal on the
// context.
func Authorize(_ ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		principal, err := ParseToken(raw)
		if err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		c.Set(principalKey, principal)
	}
}

// RequireRole aborts unless the caller holds one of the roles. Runs after
// Authorize.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := FromContext(c)
		if principal == nil {
			apiutils.AbortWithApiError(c, commonerrors.NewUnauthorized("the request is not authenticated"))
			return
		}
		if !principal.HasRole(roles...) {
			apiutils.AbortWithApiError(c, commonerrors.NewForbidden("the caller role does not allow this operation"))
			return
		}
	}
}

// FromContext returns the principal Authorize stored, or nil.
func FromContext(c *gin.Context) *Principal {
	val, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, ok := val.(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// SetPrincipal injects a principal directly, for tests.
func SetPrincipal(c *gin.Context, principal *Principal) {
	c.Set(principalKey, principal)
}
