/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package idp talks to the identity provider's admin API. The provider is
// the source of truth for users and group membership; the controller only
// creates and removes the per-project groups under each organization group.
package idp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"k8s.io/klog/v2"

	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/utils/httpclient"
)

type Interface interface {
	// CreateGroup creates a child group under the parent and returns its id.
	CreateGroup(ctx context.Context, parentGroupId, name string) (string, error)
	DeleteGroup(ctx context.Context, groupId string) error
}

// NewClient returns the admin-API client, or a disabled stub when the
// identity provider integration is turned off in config.
func NewClient() Interface {
	if !commonconfig.IsIdpEnable() {
		klog.Infof("identity provider integration is disabled")
		return &disabled{}
	}
	return &client{
		http:     httpclient.New(),
		endpoint: commonconfig.GetIdpEndpoint(),
		realm:    commonconfig.GetIdpRealm(),
		username: commonconfig.GetIdpUser(),
		password: commonconfig.GetIdpPassword(),
	}
}

type client struct {
	http     httpclient.Interface
	endpoint string
	realm    string
	username string
	password string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type groupResponse struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// accessToken returns a cached admin token, refreshing shortly before expiry.
func (c *client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	form := fmt.Sprintf("grant_type=password&client_id=admin-cli&username=%s&password=%s", c.username, c.password)
	url := fmt.Sprintf("%s/realms/master/protocol/openid-connect/token", c.endpoint)
	result, err := c.http.Post(ctx, url, form, "Content-Type", "application/x-www-form-urlencoded")
	if err != nil {
		return "", commonerrors.NewExternalServiceError(fmt.Sprintf("identity provider token request failed: %v", err))
	}
	if !result.IsSuccess() {
		return "", commonerrors.NewExternalServiceError("identity provider token request failed: " + result.String())
	}
	var token tokenResponse
	if err := result.Decode(&token); err != nil {
		return "", commonerrors.NewExternalServiceError(fmt.Sprintf("bad identity provider token response: %v", err))
	}
	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - 30*time.Second)
	return c.token, nil
}

func (c *client) CreateGroup(ctx context.Context, parentGroupId, name string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/admin/realms/%s/groups/%s/children", c.endpoint, c.realm, parentGroupId)
	result, err := c.http.Post(ctx, url, map[string]string{"name": name}, "Authorization", "Bearer "+token)
	if err != nil {
		return "", commonerrors.NewExternalServiceError(fmt.Sprintf("failed to create group %s: %v", name, err))
	}
	switch {
	case result.StatusCode == http.StatusConflict:
		return "", commonerrors.NewConflict(fmt.Sprintf("group %s already exists", name))
	case !result.IsSuccess():
		return "", commonerrors.NewExternalServiceError("failed to create group: " + result.String())
	}
	var group groupResponse
	if err := result.Decode(&group); err != nil {
		return "", commonerrors.NewExternalServiceError(fmt.Sprintf("bad group response: %v", err))
	}
	return group.Id, nil
}

func (c *client) DeleteGroup(ctx context.Context, groupId string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/admin/realms/%s/groups/%s", c.endpoint, c.realm, groupId)
	result, err := c.http.Delete(ctx, url, "Authorization", "Bearer "+token)
	if err != nil {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to delete group %s: %v", groupId, err))
	}
	// A missing group is already the desired state.
	if !result.IsSuccess() && result.StatusCode != http.StatusNotFound {
		return commonerrors.NewExternalServiceError("failed to delete group: " + result.String())
	}
	return nil
}

// disabled satisfies Interface for deployments without an identity provider.
type disabled struct{}

func (d *disabled) CreateGroup(_ context.Context, _, name string) (string, error) {
	return "disabled-" + name, nil
}

func (d *disabled) DeleteGroup(context.Context, string) error {
	return nil
}
