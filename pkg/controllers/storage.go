/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/status"
	jsonutil "github.com/amd-enterprise-ai/airm/pkg/utils/json"
)

// StorageController binds S3 storages to projects. The cluster-side material
// is a ConfigMap naming the bucket plus a credential secret; the composite
// binding status folds both.
type StorageController struct {
	*base
	secrets *SecretController
}

type CreateStorageRequest struct {
	OrganizationId string
	Name           string
	SecretId       string
	BucketUrl      string
	AccessKeyField string
	SecretKeyField string
	Principal      string
}

// CreateStorage inserts the storage row. No cluster traffic happens until the
// storage is assigned to a project.
func (c *StorageController) CreateStorage(ctx context.Context, req CreateStorageRequest) (*dbclient.Storage, error) {
	if err := ValidateSubdomainName("storage", req.Name); err != nil {
		return nil, err
	}
	if req.BucketUrl == "" || req.AccessKeyField == "" || req.SecretKeyField == "" {
		return nil, commonerrors.NewValidation("bucket url and credential key fields are required")
	}
	secret, err := c.db.GetSecret(ctx, req.SecretId)
	if err != nil {
		return nil, err
	}
	if secret.OrganizationId != req.OrganizationId {
		return nil, commonerrors.NewNotFound(v1.SecretKind, req.SecretId)
	}
	if secret.Kind != v1.SecretKindKubernetes {
		return nil, commonerrors.NewValidation("storage credentials must live in a Kubernetes secret")
	}
	if _, err := c.db.GetStorageByName(ctx, req.OrganizationId, req.Name); err == nil {
		return nil, commonerrors.NewConflict(fmt.Sprintf("storage %s already exists", req.Name))
	} else if !commonerrors.IsNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	storage := &dbclient.Storage{
		Id:             uuid.NewString(),
		OrganizationId: req.OrganizationId,
		Name:           req.Name,
		SecretId:       req.SecretId,
		BucketUrl:      req.BucketUrl,
		AccessKeyField: req.AccessKeyField,
		SecretKeyField: req.SecretKeyField,
		Status:         string(v1.SyncUnassigned),
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      req.Principal,
		UpdatedBy:      req.Principal,
	}
	if err := c.db.InsertStorage(ctx, storage); err != nil {
		return nil, err
	}
	return storage, nil
}

// AssignStorage binds the storage to one project. The underlying secret
// assignment is ensured first so the ConfigMap never points at a secret that
// was never shipped.
func (c *StorageController) AssignStorage(ctx context.Context, storageId, projectId, principal string) error {
	storage, err := c.db.GetStorage(ctx, storageId)
	if err != nil {
		return err
	}
	if storage.Status == string(v1.SyncDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("storage %s is being deleted", storage.Name))
	}
	secret, err := c.db.GetSecret(ctx, storage.SecretId)
	if err != nil {
		return err
	}
	target, err := c.secrets.targetOf(ctx, projectId)
	if err != nil {
		return err
	}
	if target.project.OrganizationId != storage.OrganizationId {
		return commonerrors.NewNotFound(v1.ProjectKind, projectId)
	}
	if target.project.Status == string(v1.ProjectDeleting) {
		return commonerrors.NewValidation(fmt.Sprintf("project %s is being deleted", target.project.Name))
	}
	if _, err := c.db.GetProjectStorage(ctx, storageId, projectId); err == nil {
		return commonerrors.NewConflict(fmt.Sprintf("storage %s is already assigned to the project", storage.Name))
	} else if !commonerrors.IsNotFound(err) {
		return err
	}

	now := time.Now().UTC()
	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := c.ensureSecretAssignment(ctx, txc, box, secret, target, principal, now); err != nil {
			return err
		}
		projectStorage := &dbclient.ProjectStorage{
			Id:        uuid.NewString(),
			StorageId: storage.Id,
			ProjectId: projectId,
			Status:    string(v1.SyncPending),
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: principal,
			UpdatedBy: principal,
		}
		if err := txc.InsertProjectStorage(ctx, projectStorage); err != nil {
			return err
		}
		if err := txc.InsertProjectStorageConfigmap(ctx, &dbclient.ProjectStorageConfigmap{
			Id:               uuid.NewString(),
			ProjectStorageId: projectStorage.Id,
			Name:             storage.Name,
			Status:           string(v1.ComponentAdded),
			CreatedAt:        now,
			UpdatedAt:        now,
			CreatedBy:        principal,
			UpdatedBy:        principal,
		}); err != nil {
			return err
		}
		box.Enqueue(target.project.ClusterId, v1.NewProjectS3StorageCreate(
			projectId, storage.Id, target.namespace, storage.Name, v1.StorageSpec{
				BucketUrl:      storage.BucketUrl,
				SecretName:     secret.Name,
				AccessKeyField: storage.AccessKeyField,
				SecretKeyField: storage.SecretKeyField,
			}, now))
		return nil
	})
	if err != nil {
		return err
	}
	return c.rollupStorage(ctx, storageId)
}

// ensureSecretAssignment creates the project's assignment of the credential
// secret when it does not exist yet.
func (c *StorageController) ensureSecretAssignment(ctx context.Context, txc *dbclient.Client, box *messaging.Outbox,
	secret *dbclient.Secret, target secretTarget, principal string, now time.Time) error {

	_, err := txc.GetSecretAssignment(ctx, secret.Id, target.project.Id)
	if err == nil {
		return nil
	}
	if !commonerrors.IsNotFound(err) {
		return err
	}
	var data map[string]string
	if raw := dbutils.ParseNullString(secret.Data); raw != "" {
		if err := jsonutil.UnmarshalWithCheck([]byte(raw), &data); err != nil {
			return commonerrors.NewInconsistentState(fmt.Sprintf("stored secret payload is unreadable: %v", err))
		}
	}
	klog.InfoS("creating missing secret assignment for storage binding",
		"secret", secret.Name, "project", target.project.Name)
	return c.secrets.addAssignment(ctx, txc, box, secret, target, data, principal, now)
}

// UnassignStorage starts removal of one project binding.
func (c *StorageController) UnassignStorage(ctx context.Context, storageId, projectId, principal string) error {
	storage, err := c.db.GetStorage(ctx, storageId)
	if err != nil {
		return err
	}
	projectStorage, err := c.db.GetProjectStorage(ctx, storageId, projectId)
	if err != nil {
		return err
	}
	if projectStorage.Status == string(v1.SyncDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("storage %s is already being unassigned", storage.Name))
	}
	target, err := c.secrets.targetOf(ctx, projectId)
	if err != nil {
		// No namespace left to clean up; drop the rows directly.
		if commonerrors.IsNotFound(err) {
			return c.dropBinding(ctx, projectStorage)
		}
		return err
	}
	now := time.Now().UTC()
	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.SetProjectStorageStatus(ctx, projectStorage.Id, v1.SyncDeleting, "unassigned", principal); err != nil {
			return err
		}
		box.Enqueue(target.project.ClusterId, v1.NewProjectStorageDelete(
			projectId, storage.Id, target.namespace, storage.Name, now))
		return nil
	})
	if err != nil {
		return err
	}
	return c.rollupStorage(ctx, storageId)
}

// DeleteStorage tears down every binding first; the parent row goes when the
// last binding confirms. An unassigned storage is removed immediately.
func (c *StorageController) DeleteStorage(ctx context.Context, storageId, principal string) error {
	storage, err := c.db.GetStorage(ctx, storageId)
	if err != nil {
		return err
	}
	if storage.Status == string(v1.SyncDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("storage %s is already being deleted", storage.Name))
	}
	bindings, err := c.db.SelectProjectStorages(ctx, sqrl.Eq{"storage_id": storageId})
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		return c.db.DeleteStorage(ctx, storageId)
	}
	if err := c.db.SetStorageStatus(ctx, storageId, v1.SyncDeleting, "being deleted", principal); err != nil {
		return err
	}
	for _, binding := range bindings {
		if binding.Status == string(v1.SyncDeleting) {
			continue
		}
		if err := c.UnassignStorage(ctx, storageId, binding.ProjectId, principal); err != nil {
			return err
		}
	}
	return nil
}

// componentStatusOf maps a dispatcher sync report onto the ConfigMap component
// lifecycle.
func componentStatusOf(s v1.SyncStatus) v1.ComponentStatus {
	switch s {
	case v1.SyncSynced:
		return v1.ComponentAdded
	case v1.SyncPending:
		return v1.ComponentPending
	case v1.SyncDeleted:
		return v1.ComponentDeleted
	case v1.SyncFailed, v1.SyncDeleteFailed:
		return v1.ComponentFailed
	default:
		return v1.ComponentUnknown
	}
}

// HandleStorageStatus applies one dispatcher ConfigMap report, recomputes the
// composite binding status and re-rolls the parent storage.
func (c *StorageController) HandleStorageStatus(ctx context.Context, msg *v1.ProjectStorageStatus) error {
	projectStorage, err := c.db.GetProjectStorage(ctx, msg.StorageId, msg.ProjectId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("storage status for unknown binding, dropping",
				"storage", msg.StorageId, "project", msg.ProjectId)
			return nil
		}
		return err
	}
	configmap, err := c.db.GetProjectStorageConfigmap(ctx, projectStorage.Id)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	changed, err := c.db.SetProjectStorageConfigmapStatusIfOlder(ctx, configmap.Id,
		componentStatusOf(msg.Status), msg.Reason, msg.UpdatedAt)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if msg.Status == v1.SyncDeleted {
		if err := c.dropBinding(ctx, projectStorage); err != nil {
			return err
		}
		return c.rollupStorage(ctx, msg.StorageId)
	}
	if err := c.resolveBinding(ctx, projectStorage); err != nil {
		return err
	}
	return c.rollupStorage(ctx, msg.StorageId)
}

// dropBinding hard-deletes a confirmed-gone binding with its ConfigMap row.
func (c *StorageController) dropBinding(ctx context.Context, projectStorage *dbclient.ProjectStorage) error {
	return c.db.WithTransaction(ctx, func(txc *dbclient.Client) error {
		if configmap, err := txc.GetProjectStorageConfigmap(ctx, projectStorage.Id); err == nil {
			if err := txc.DeleteProjectStorageConfigmap(ctx, configmap.Id); err != nil {
				return err
			}
		} else if !commonerrors.IsNotFound(err) {
			return err
		}
		return txc.DeleteProjectStorage(ctx, projectStorage.Id)
	})
}

// resolveBinding folds (configmap status, credential-secret status) into the
// composite binding status.
func (c *StorageController) resolveBinding(ctx context.Context, projectStorage *dbclient.ProjectStorage) error {
	storage, err := c.db.GetStorage(ctx, projectStorage.StorageId)
	if err != nil {
		return err
	}
	configmapStatus := v1.ComponentUnknown
	if configmap, err := c.db.GetProjectStorageConfigmap(ctx, projectStorage.Id); err == nil {
		configmapStatus = v1.ComponentStatus(configmap.Status)
	} else if !commonerrors.IsNotFound(err) {
		return err
	}
	secretStatus := v1.SyncUnknown
	if assignment, err := c.db.GetSecretAssignment(ctx, storage.SecretId, projectStorage.ProjectId); err == nil {
		secretStatus = v1.SyncStatus(assignment.Status)
	} else if !commonerrors.IsNotFound(err) {
		return err
	}
	resolved, reason := status.ResolveProjectStorage(configmapStatus, secretStatus)
	if string(resolved) == projectStorage.Status {
		return nil
	}
	return c.db.SetProjectStorageStatus(ctx, projectStorage.Id, resolved, reason, dbclient.DispatcherPrincipal)
}

// ResyncSecretDependents recomputes every binding in the project whose storage
// references the secret. Called after a secret assignment report lands,
// because the composite depends on both sides.
func (c *StorageController) ResyncSecretDependents(ctx context.Context, secretId, projectId string) error {
	storages, err := c.db.SelectStorages(ctx, sqrl.Eq{"secret_id": secretId}, nil, 0, 0)
	if err != nil {
		return err
	}
	for _, storage := range storages {
		projectStorage, err := c.db.GetProjectStorage(ctx, storage.Id, projectId)
		if err != nil {
			if commonerrors.IsNotFound(err) {
				continue
			}
			return err
		}
		if err := c.resolveBinding(ctx, projectStorage); err != nil {
			return err
		}
		if err := c.rollupStorage(ctx, storage.Id); err != nil {
			return err
		}
	}
	return nil
}

// rollupStorage recomputes the parent from its bindings; a Deleting parent
// with none left is removed.
func (c *StorageController) rollupStorage(ctx context.Context, storageId string) error {
	storage, err := c.db.GetStorage(ctx, storageId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	bindings, err := c.db.SelectProjectStorages(ctx, sqrl.Eq{"storage_id": storageId})
	if err != nil {
		return err
	}
	if len(bindings) == 0 && storage.Status == string(v1.SyncDeleting) {
		klog.InfoS("storage fully unwound, removing", "storage", storage.Name, "id", storage.Id)
		return c.db.DeleteStorage(ctx, storage.Id)
	}
	children := lo.Map(bindings, func(b *dbclient.ProjectStorage, _ int) v1.SyncStatus {
		return v1.SyncStatus(b.Status)
	})
	resolved, reason := status.ResolveParent(v1.SyncStatus(storage.Status), children)
	if string(resolved) == storage.Status && reason == dbutils.ParseNullString(storage.StatusReason) {
		return nil
	}
	return c.db.SetStorageStatus(ctx, storage.Id, resolved, reason, dbclient.DispatcherPrincipal)
}
