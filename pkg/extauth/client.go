/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package extauth wraps the external auth service that issues API keys and
// owns their validity metadata. The controller never stores a full key.
package extauth

import (
	"context"
	"fmt"
	"net/http"

	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/utils/httpclient"
)

type Interface interface {
	CreateApiKey(ctx context.Context, spec KeySpec) (*IssuedKey, error)
	GetApiKey(ctx context.Context, externalId string) (*KeyMetadata, error)
	RenewApiKey(ctx context.Context, externalId string) (*KeyMetadata, error)
	RevokeApiKey(ctx context.Context, externalId string) error

	GetKeyGroups(ctx context.Context, externalId string) ([]string, error)
	BindKeyToGroup(ctx context.Context, externalId, groupId string) error
	UnbindKeyFromGroup(ctx context.Context, externalId, groupId string) error
}

// KeySpec mirrors the issuance parameters of the auth service.
type KeySpec struct {
	Ttl            string `json:"ttl,omitempty"`
	NumUses        int    `json:"num_uses,omitempty"`
	Renewable      bool   `json:"renewable"`
	Period         string `json:"period,omitempty"`
	ExplicitMaxTtl string `json:"explicit_max_ttl,omitempty"`
}

// IssuedKey carries the full key exactly once; only the external id and a
// truncated form survive in the controller.
type IssuedKey struct {
	Key        string `json:"key"`
	ExternalId string `json:"key_id"`
}

type KeyMetadata struct {
	ExternalId string `json:"key_id"`
	ExpireTime string `json:"expire_time"`
	Renewable  bool   `json:"renewable"`
	NumUses    int    `json:"num_uses"`
}

func NewClient() Interface {
	return &client{
		http:     httpclient.New(),
		endpoint: commonconfig.GetAuthEndpoint(),
		token:    commonconfig.GetAuthToken(),
	}
}

type client struct {
	http     httpclient.Interface
	endpoint string
	token    string
}

func (c *client) CreateApiKey(ctx context.Context, spec KeySpec) (*IssuedKey, error) {
	result, err := c.http.Post(ctx, c.endpoint+"/v1/keys", spec, "Authorization", "Bearer "+c.token)
	if err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("failed to create api key: %v", err))
	}
	if !result.IsSuccess() {
		return nil, commonerrors.NewExternalServiceError("failed to create api key: " + result.String())
	}
	var issued IssuedKey
	if err := result.Decode(&issued); err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("bad create key response: %v", err))
	}
	return &issued, nil
}

func (c *client) GetApiKey(ctx context.Context, externalId string) (*KeyMetadata, error) {
	result, err := c.http.Get(ctx, c.keyUrl(externalId), "Authorization", "Bearer "+c.token)
	if err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("failed to look up api key: %v", err))
	}
	if result.StatusCode == http.StatusNotFound {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("api key %s not found in the auth service", externalId))
	}
	if !result.IsSuccess() {
		return nil, commonerrors.NewExternalServiceError("failed to look up api key: " + result.String())
	}
	var metadata KeyMetadata
	if err := result.Decode(&metadata); err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("bad key metadata response: %v", err))
	}
	return &metadata, nil
}

func (c *client) RenewApiKey(ctx context.Context, externalId string) (*KeyMetadata, error) {
	result, err := c.http.Post(ctx, c.keyUrl(externalId)+"/renew", nil, "Authorization", "Bearer "+c.token)
	if err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("failed to renew api key: %v", err))
	}
	if result.StatusCode == http.StatusNotFound {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("api key %s not found in the auth service", externalId))
	}
	if !result.IsSuccess() {
		return nil, commonerrors.NewExternalServiceError("failed to renew api key: " + result.String())
	}
	var metadata KeyMetadata
	if err := result.Decode(&metadata); err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("bad renew response: %v", err))
	}
	return &metadata, nil
}

func (c *client) RevokeApiKey(ctx context.Context, externalId string) error {
	result, err := c.http.Delete(ctx, c.keyUrl(externalId), "Authorization", "Bearer "+c.token)
	if err != nil {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to revoke api key: %v", err))
	}
	// Revoking an already-gone key is the desired end state.
	if !result.IsSuccess() && result.StatusCode != http.StatusNotFound {
		return commonerrors.NewExternalServiceError("failed to revoke api key: " + result.String())
	}
	return nil
}

func (c *client) GetKeyGroups(ctx context.Context, externalId string) ([]string, error) {
	result, err := c.http.Get(ctx, c.keyUrl(externalId)+"/groups", "Authorization", "Bearer "+c.token)
	if err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("failed to list key groups: %v", err))
	}
	if result.StatusCode == http.StatusNotFound {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("api key %s not found in the auth service", externalId))
	}
	if !result.IsSuccess() {
		return nil, commonerrors.NewExternalServiceError("failed to list key groups: " + result.String())
	}
	var groups struct {
		GroupIds []string `json:"group_ids"`
	}
	if err := result.Decode(&groups); err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("bad key groups response: %v", err))
	}
	return groups.GroupIds, nil
}

func (c *client) BindKeyToGroup(ctx context.Context, externalId, groupId string) error {
	result, err := c.http.Put(ctx, c.groupUrl(externalId, groupId), nil, "Authorization", "Bearer "+c.token)
	if err != nil {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to bind key to group %s: %v", groupId, err))
	}
	if !result.IsSuccess() {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to bind key to group %s: %s", groupId, result.String()))
	}
	return nil
}

func (c *client) UnbindKeyFromGroup(ctx context.Context, externalId, groupId string) error {
	result, err := c.http.Delete(ctx, c.groupUrl(externalId, groupId), "Authorization", "Bearer "+c.token)
	if err != nil {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to unbind key from group %s: %v", groupId, err))
	}
	if !result.IsSuccess() && result.StatusCode != http.StatusNotFound {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to unbind key from group %s: %s", groupId, result.String()))
	}
	return nil
}

func (c *client) keyUrl(externalId string) string {
	return fmt.Sprintf("%s/v1/keys/%s", c.endpoint, externalId)
}

func (c *client) groupUrl(externalId, groupId string) string {
	return fmt.Sprintf("%s/v1/keys/%s/groups/%s", c.endpoint, externalId, groupId)
}
