/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/extauth"
	"github.com/amd-enterprise-ai/airm/pkg/utils/concurrent"
	jsonutil "github.com/amd-enterprise-ai/airm/pkg/utils/json"
	"github.com/amd-enterprise-ai/airm/pkg/utils/stringutil"
)

// truncatedKeyLen is how much of the issued key survives in the database.
const truncatedKeyLen = 8

// ApiKeyController coordinates key issuance with the external auth service and
// keeps the local rows consistent with it. The auth service owns validity; the
// controller stores only name, truncated form and external id.
type ApiKeyController struct {
	*base
	auth extauth.Interface
}

type CreateApiKeyRequest struct {
	ProjectId string
	Name      string
	Spec      extauth.KeySpec
	AimIds    []string
	Principal string
}

// IssuedApiKey is the create response. Key carries the full secret exactly
// once; it is never persisted.
type IssuedApiKey struct {
	Row      *dbclient.ApiKey
	Key      string
	Metadata *extauth.KeyMetadata
}

// CreateApiKey issues the key, persists the row, fetches canonical metadata
// and binds the key to every auth group owned by the requested AIMs. Any
// failure after issuance revokes the key; a failed revocation is logged, not
// surfaced, because the caller can do nothing about it.
func (c *ApiKeyController) CreateApiKey(ctx context.Context, req CreateApiKeyRequest) (*IssuedApiKey, error) {
	if err := ValidateSubdomainName("api key", req.Name); err != nil {
		return nil, err
	}
	project, err := c.db.GetProject(ctx, req.ProjectId)
	if err != nil {
		return nil, err
	}
	if project.Status == string(v1.ProjectDeleting) {
		return nil, commonerrors.NewValidation(fmt.Sprintf("project %s is being deleted", project.Name))
	}
	if _, err := c.db.GetApiKeyByName(ctx, req.ProjectId, req.Name); err == nil {
		return nil, commonerrors.NewConflict(fmt.Sprintf("api key %s already exists", req.Name))
	} else if !commonerrors.IsNotFound(err) {
		return nil, err
	}
	groups, err := c.resolveAuthGroups(ctx, req.AimIds)
	if err != nil {
		return nil, err
	}

	issued, err := c.auth.CreateApiKey(ctx, req.Spec)
	if err != nil {
		return nil, err
	}
	revoke := func(cause string) {
		if err := c.auth.RevokeApiKey(ctx, issued.ExternalId); err != nil {
			klog.ErrorS(err, "failed to revoke api key after "+cause, "externalId", issued.ExternalId)
		}
	}

	now := time.Now().UTC()
	row := &dbclient.ApiKey{
		Id:            uuid.NewString(),
		ProjectId:     req.ProjectId,
		Name:          req.Name,
		TruncatedKey:  stringutil.TruncateKey(issued.Key, truncatedKeyLen),
		ExternalKeyId: issued.ExternalId,
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     req.Principal,
		UpdatedBy:     req.Principal,
	}
	if err := c.db.InsertApiKey(ctx, row); err != nil {
		revoke("insert failure")
		return nil, err
	}
	metadata, err := c.auth.GetApiKey(ctx, issued.ExternalId)
	if err != nil {
		revoke("metadata fetch failure")
		c.dropRow(ctx, row.Id)
		return nil, err
	}
	if err := concurrent.ForEach(groups, func(groupId string) error {
		return c.auth.BindKeyToGroup(ctx, issued.ExternalId, groupId)
	}); err != nil {
		revoke("group binding failure")
		c.dropRow(ctx, row.Id)
		return nil, err
	}
	return &IssuedApiKey{Row: row, Key: issued.Key, Metadata: metadata}, nil
}

func (c *ApiKeyController) dropRow(ctx context.Context, id string) {
	if err := c.db.DeleteApiKey(ctx, id); err != nil {
		klog.ErrorS(err, "failed to remove api key row", "id", id)
	}
}

// resolveAuthGroups maps AIM ids onto the auth group ids of their running or
// pending inference workloads, deduplicated.
func (c *ApiKeyController) resolveAuthGroups(ctx context.Context, aimIds []string) ([]string, error) {
	var groups []string
	for _, aimId := range aimIds {
		if _, err := c.db.GetAim(ctx, aimId); err != nil {
			return nil, err
		}
		aimGroups, err := c.db.SelectAimAuthGroups(ctx, aimId)
		if err != nil {
			return nil, err
		}
		groups = append(groups, aimGroups...)
	}
	return lo.Uniq(groups), nil
}

// UpdateBindings replaces the key's group set with the groups owned by the
// given AIMs. Adds and removes run in parallel; failures come back as one
// aggregate.
func (c *ApiKeyController) UpdateBindings(ctx context.Context, apiKeyId string, aimIds []string) error {
	row, err := c.db.GetApiKey(ctx, apiKeyId)
	if err != nil {
		return err
	}
	target, err := c.resolveAuthGroups(ctx, aimIds)
	if err != nil {
		return err
	}
	current, err := c.auth.GetKeyGroups(ctx, row.ExternalKeyId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			c.dropRow(ctx, row.Id)
		}
		return err
	}
	added, removed := lo.Difference(target, current)

	type bindingOp struct {
		groupId string
		bind    bool
	}
	ops := make([]bindingOp, 0, len(added)+len(removed))
	for _, groupId := range added {
		ops = append(ops, bindingOp{groupId: groupId, bind: true})
	}
	for _, groupId := range removed {
		ops = append(ops, bindingOp{groupId: groupId})
	}
	return concurrent.ForEach(ops, func(op bindingOp) error {
		if op.bind {
			return c.auth.BindKeyToGroup(ctx, row.ExternalKeyId, op.groupId)
		}
		return c.auth.UnbindKeyFromGroup(ctx, row.ExternalKeyId, op.groupId)
	})
}

// GetApiKey returns the row with canonical metadata. A key the auth service no
// longer knows is an orphan: the row is removed and not-found returned.
func (c *ApiKeyController) GetApiKey(ctx context.Context, apiKeyId string) (*dbclient.ApiKey, *extauth.KeyMetadata, error) {
	row, err := c.db.GetApiKey(ctx, apiKeyId)
	if err != nil {
		return nil, nil, err
	}
	metadata, err := c.auth.GetApiKey(ctx, row.ExternalKeyId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("removing orphaned api key row", "id", row.Id, "name", row.Name)
			c.dropRow(ctx, row.Id)
		}
		return nil, nil, err
	}
	return row, metadata, nil
}

// RenewApiKey extends the key's validity through the auth service.
func (c *ApiKeyController) RenewApiKey(ctx context.Context, apiKeyId string) (*extauth.KeyMetadata, error) {
	row, err := c.db.GetApiKey(ctx, apiKeyId)
	if err != nil {
		return nil, err
	}
	metadata, err := c.auth.RenewApiKey(ctx, row.ExternalKeyId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("removing orphaned api key row", "id", row.Id, "name", row.Name)
			c.dropRow(ctx, row.Id)
		}
		return nil, err
	}
	return metadata, nil
}

// RevokeApiKey revokes in the auth service (absence tolerated) and drops the
// row.
func (c *ApiKeyController) RevokeApiKey(ctx context.Context, apiKeyId string) error {
	row, err := c.db.GetApiKey(ctx, apiKeyId)
	if err != nil {
		return err
	}
	if err := c.auth.RevokeApiKey(ctx, row.ExternalKeyId); err != nil {
		return err
	}
	return c.db.DeleteApiKey(ctx, row.Id)
}

// SweepOrphans removes rows whose external key disappeared. Runs on a cron
// schedule; bounded per pass so a large table cannot stall the controller.
func (c *ApiKeyController) SweepOrphans(ctx context.Context) {
	rows, err := c.db.SelectApiKeys(ctx, nil, []string{dbclient.UpdatedAt}, commonconfig.GetApiKeySweepLimit(), 0)
	if err != nil {
		klog.ErrorS(err, "api key sweep failed to list rows")
		return
	}
	removed := 0
	for _, row := range rows {
		if _, err := c.auth.GetApiKey(ctx, row.ExternalKeyId); err == nil {
			continue
		} else if !commonerrors.IsNotFound(err) {
			klog.ErrorS(err, "api key sweep lookup failed", "id", row.Id)
			continue
		}
		if err := c.db.DeleteApiKey(ctx, row.Id); err != nil {
			klog.ErrorS(err, "api key sweep failed to remove orphan", "id", row.Id)
			continue
		}
		removed++
	}
	if removed > 0 {
		klog.InfoS("api key sweep removed orphaned rows", "count", removed)
	}
}

// HandleAimClusterModels reconciles the full AIM snapshot of one cluster:
// insert or refresh by image reference, then retire everything absent.
func (c *ApiKeyController) HandleAimClusterModels(ctx context.Context, msg *v1.AimClusterModels) error {
	cluster, err := c.resolveCluster(ctx, msg.OrganizationName, msg.ClusterName)
	if err != nil || cluster == nil {
		return err
	}
	keepIds := make([]string, 0, len(msg.Models))
	for _, model := range msg.Models {
		aim, err := c.db.GetAimByImageReference(ctx, model.ImageReference)
		if err != nil {
			if !commonerrors.IsNotFound(err) {
				return err
			}
			aim = &dbclient.Aim{
				Id:             uuid.NewString(),
				ImageReference: model.ImageReference,
				CreatedAt:      msg.UpdatedAt,
				CreatedBy:      dbclient.DispatcherPrincipal,
			}
		}
		aim.ResourceName = model.ResourceName
		aim.Labels = string(jsonutil.MarshalSilently(model.Labels))
		aim.Status = model.Status
		aim.UpdatedAt = msg.UpdatedAt
		aim.UpdatedBy = dbclient.DispatcherPrincipal
		if err := c.db.UpsertAim(ctx, aim); err != nil {
			return err
		}
		if err := c.db.UpsertAimClusterModel(ctx, &dbclient.AimClusterModel{
			Id:        uuid.NewString(),
			AimId:     aim.Id,
			ClusterId: cluster.Id,
			Status:    model.Status,
			CreatedAt: msg.UpdatedAt,
			UpdatedAt: msg.UpdatedAt,
			CreatedBy: dbclient.DispatcherPrincipal,
			UpdatedBy: dbclient.DispatcherPrincipal,
		}); err != nil {
			return err
		}
		keepIds = append(keepIds, aim.Id)
	}
	return c.db.MarkAimClusterModelsDeleted(ctx, cluster.Id, keepIds)
}
