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
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/status"
	jsonutil "github.com/amd-enterprise-ai/airm/pkg/utils/json"
)

// SecretController fans secrets out to project namespaces and rolls parent
// status up from assignment reports.
type SecretController struct {
	*base
	storages *StorageController
}

type CreateSecretRequest struct {
	OrganizationId string
	Name           string
	Scope          string
	Kind           string
	SecretType     v1.SecretType
	UseCase        string
	// Data is the payload for KubernetesSecret kinds, keyed like the
	// stringData block of the rendered manifest.
	Data       map[string]string
	ProjectIds []string
	Principal  string
}

// ValidateSubdomainName enforces the DNS subdomain form used by secret and
// storage names.
func ValidateSubdomainName(kind, name string) error {
	if len(name) < v1.SubdomainNameMinLen || len(name) > v1.SubdomainNameMaxLen {
		return commonerrors.NewValidation(fmt.Sprintf("%s name must be %d to %d characters",
			kind, v1.SubdomainNameMinLen, v1.SubdomainNameMaxLen))
	}
	if !v1.SubdomainNameRegexp.MatchString(name) {
		return commonerrors.NewValidation(fmt.Sprintf("%s name must be a lowercase DNS subdomain", kind))
	}
	return nil
}

// CreateSecret inserts the secret with its initial assignment set. Kubernetes
// kinds ship a rendered manifest per target namespace; External kinds are
// bookkeeping only and sync nothing to clusters.
func (c *SecretController) CreateSecret(ctx context.Context, req CreateSecretRequest) (*dbclient.Secret, error) {
	if err := ValidateSubdomainName("secret", req.Name); err != nil {
		return nil, err
	}
	switch req.Scope {
	case v1.SecretScopeProject:
		if len(req.ProjectIds) != 1 {
			return nil, commonerrors.NewValidation("a project-scoped secret needs exactly one project")
		}
	case v1.SecretScopeOrganization:
	default:
		return nil, commonerrors.NewValidation(fmt.Sprintf("unknown secret scope %q", req.Scope))
	}
	if req.Kind != v1.SecretKindExternal && req.Kind != v1.SecretKindKubernetes {
		return nil, commonerrors.NewValidation(fmt.Sprintf("unknown secret kind %q", req.Kind))
	}
	if req.Kind == v1.SecretKindKubernetes && len(req.Data) == 0 {
		return nil, commonerrors.NewValidation("a Kubernetes secret needs a payload")
	}
	if _, err := c.db.GetSecretByName(ctx, req.OrganizationId, req.Name); err == nil {
		return nil, commonerrors.NewConflict(fmt.Sprintf("secret %s already exists", req.Name))
	} else if !commonerrors.IsNotFound(err) {
		return nil, err
	}

	targets, err := c.resolveTargets(ctx, req.OrganizationId, req.ProjectIds)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	secret := &dbclient.Secret{
		Id:             uuid.NewString(),
		OrganizationId: req.OrganizationId,
		Name:           req.Name,
		Scope:          req.Scope,
		Kind:           req.Kind,
		SecretType:     string(req.SecretType),
		UseCase:        dbutils.NullString(req.UseCase),
		Data:           dbutils.NullString(string(jsonutil.MarshalSilently(req.Data))),
		Status:         string(initialParentStatus(req.Kind, len(targets))),
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      req.Principal,
		UpdatedBy:      req.Principal,
	}
	if req.Scope == v1.SecretScopeProject {
		secret.ProjectId = dbutils.NullString(req.ProjectIds[0])
	}

	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.InsertSecret(ctx, secret); err != nil {
			return err
		}
		for _, target := range targets {
			if err := c.addAssignment(ctx, txc, box, secret, target, req.Data, req.Principal, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// secretTarget is one resolved fan-out destination.
type secretTarget struct {
	project   *dbclient.Project
	namespace string
}

func (c *SecretController) resolveTargets(ctx context.Context, organizationId string, projectIds []string) ([]secretTarget, error) {
	targets := make([]secretTarget, 0, len(projectIds))
	for _, projectId := range projectIds {
		project, err := c.db.GetProject(ctx, projectId)
		if err != nil {
			return nil, err
		}
		if project.OrganizationId != organizationId {
			return nil, commonerrors.NewNotFound(v1.ProjectKind, projectId)
		}
		if project.Status == string(v1.ProjectDeleting) {
			return nil, commonerrors.NewValidation(fmt.Sprintf("project %s is being deleted", project.Name))
		}
		namespace, err := c.db.GetNamespaceByProject(ctx, projectId)
		if err != nil {
			return nil, err
		}
		targets = append(targets, secretTarget{project: project, namespace: namespace.Name})
	}
	return targets, nil
}

func initialParentStatus(kind string, targets int) v1.SyncStatus {
	switch {
	case kind == v1.SecretKindExternal:
		return v1.SyncSynced
	case targets == 0:
		return v1.SyncUnassigned
	default:
		return v1.SyncPending
	}
}

// addAssignment inserts the assignment row and, for Kubernetes kinds, ships
// the rendered manifest. External assignments are born Synced.
func (c *SecretController) addAssignment(ctx context.Context, txc *dbclient.Client, box *messaging.Outbox,
	secret *dbclient.Secret, target secretTarget, data map[string]string, principal string, now time.Time) error {

	assignment := &dbclient.SecretAssignment{
		Id:        uuid.NewString(),
		SecretId:  secret.Id,
		ProjectId: target.project.Id,
		Status:    string(v1.SyncPending),
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: principal,
		UpdatedBy: principal,
	}
	if secret.Kind == v1.SecretKindExternal {
		assignment.Status = string(v1.SyncSynced)
		return txc.InsertSecretAssignment(ctx, assignment)
	}
	if err := txc.InsertSecretAssignment(ctx, assignment); err != nil {
		return err
	}
	manifest, err := renderSecretManifest(secret, target, data)
	if err != nil {
		return err
	}
	box.Enqueue(target.project.ClusterId, v1.NewProjectSecretsCreate(
		target.project.Id, secret.Id, target.namespace, secret.Name,
		v1.SecretType(secret.SecretType), manifest, now))
	return nil
}

// renderSecretManifest produces the complete Kubernetes Secret YAML shipped to
// the dispatcher. Huggingface tokens get the use-case label so in-cluster
// tooling can find the token by selector.
func renderSecretManifest(secret *dbclient.Secret, target secretTarget, data map[string]string) (string, error) {
	labels := map[string]string{
		v1.ProjectSecretIdLabel: secret.Id,
		v1.ProjectIdLabel:       target.project.Id,
	}
	if dbutils.ParseNullString(secret.UseCase) == v1.SecretUseCaseHuggingFace {
		labels[v1.UseCaseLabel] = v1.UseCaseHuggingFace
	}
	obj := corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      secret.Name,
			Namespace: target.namespace,
			Labels:    labels,
		},
		Type:       kubernetesSecretType(v1.SecretType(secret.SecretType)),
		StringData: data,
	}
	out, err := yaml.Marshal(&obj)
	if err != nil {
		return "", commonerrors.NewValidation(fmt.Sprintf("failed to render secret manifest: %v", err))
	}
	return string(out), nil
}

func kubernetesSecretType(t v1.SecretType) corev1.SecretType {
	if t == v1.SecretTypeDockerRegistry {
		return corev1.SecretTypeDockerConfigJson
	}
	return corev1.SecretTypeOpaque
}

// UpdateSecretData replaces the payload and re-ships it to every live
// assignment.
func (c *SecretController) UpdateSecretData(ctx context.Context, secretId string, data map[string]string, principal string) error {
	secret, err := c.db.GetSecret(ctx, secretId)
	if err != nil {
		return err
	}
	if secret.Status == string(v1.SyncDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("secret %s is being deleted", secret.Name))
	}
	if secret.Kind != v1.SecretKindKubernetes {
		return commonerrors.NewValidation("an External secret carries no payload")
	}
	if len(data) == 0 {
		return commonerrors.NewValidation("the payload is empty")
	}
	assignments, err := c.db.SelectSecretAssignments(ctx, sqrl.Eq{"secret_id": secretId})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.UpdateSecretData(ctx, secretId, string(jsonutil.MarshalSilently(data)), principal); err != nil {
			return err
		}
		for _, assignment := range assignments {
			if assignment.Status == string(v1.SyncDeleting) || assignment.Status == string(v1.SyncDeleted) {
				continue
			}
			target, err := c.targetOf(ctx, assignment.ProjectId)
			if err != nil {
				return err
			}
			if err := txc.SetSecretAssignmentStatus(ctx, assignment.Id, v1.SyncPending, "payload updated", principal); err != nil {
				return err
			}
			manifest, err := renderSecretManifest(secret, target, data)
			if err != nil {
				return err
			}
			box.Enqueue(target.project.ClusterId, v1.NewProjectSecretsUpdate(
				target.project.Id, secret.Id, target.namespace, secret.Name,
				v1.SecretType(secret.SecretType), manifest, now))
		}
		return nil
	})
}

func (c *SecretController) targetOf(ctx context.Context, projectId string) (secretTarget, error) {
	project, err := c.db.GetProject(ctx, projectId)
	if err != nil {
		return secretTarget{}, err
	}
	namespace, err := c.db.GetNamespaceByProject(ctx, projectId)
	if err != nil {
		return secretTarget{}, err
	}
	return secretTarget{project: project, namespace: namespace.Name}, nil
}

// UpdateAssignments replaces the target project set of an organization-scoped
// secret. Removal is refused while a storage in the project still references
// the secret.
func (c *SecretController) UpdateAssignments(ctx context.Context, secretId string, projectIds []string, principal string) error {
	secret, err := c.db.GetSecret(ctx, secretId)
	if err != nil {
		return err
	}
	if secret.Scope != v1.SecretScopeOrganization {
		return commonerrors.NewValidation("only organization-scoped secrets support assignment edits")
	}
	if secret.Status == string(v1.SyncDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("secret %s is being deleted", secret.Name))
	}
	current, err := c.db.SelectSecretAssignments(ctx, sqrl.Eq{"secret_id": secretId})
	if err != nil {
		return err
	}
	currentIds := lo.FilterMap(current, func(a *dbclient.SecretAssignment, _ int) (string, bool) {
		return a.ProjectId, a.Status != string(v1.SyncDeleting) && a.Status != string(v1.SyncDeleted)
	})
	added, removed := lo.Difference(projectIds, currentIds)

	for _, projectId := range removed {
		blocking, err := c.db.SelectBlockingStorages(ctx, secretId, projectId)
		if err != nil {
			return err
		}
		if len(blocking) > 0 {
			return commonerrors.NewSecretReferenced(secret.Name, blocking)
		}
	}
	targets, err := c.resolveTargets(ctx, secret.OrganizationId, added)
	if err != nil {
		return err
	}

	var data map[string]string
	if raw := dbutils.ParseNullString(secret.Data); raw != "" {
		if err := jsonutil.UnmarshalWithCheck([]byte(raw), &data); err != nil {
			return commonerrors.NewInconsistentState(fmt.Sprintf("stored secret payload is unreadable: %v", err))
		}
	}

	now := time.Now().UTC()
	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		for _, target := range targets {
			if err := c.addAssignment(ctx, txc, box, secret, target, data, principal, now); err != nil {
				return err
			}
		}
		for _, assignment := range current {
			if !lo.Contains(removed, assignment.ProjectId) {
				continue
			}
			if err := c.removeAssignment(ctx, txc, box, secret, assignment, principal, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.rollupSecret(ctx, secretId)
}

// removeAssignment starts (or for External kinds, completes) the removal of
// one assignment.
func (c *SecretController) removeAssignment(ctx context.Context, txc *dbclient.Client, box *messaging.Outbox,
	secret *dbclient.Secret, assignment *dbclient.SecretAssignment, principal string, now time.Time) error {

	if secret.Kind == v1.SecretKindExternal {
		return txc.DeleteSecretAssignment(ctx, assignment.Id)
	}
	target, err := c.targetOf(ctx, assignment.ProjectId)
	if err != nil {
		// The namespace can already be gone mid project teardown; the row is
		// removed directly since there is nothing left to undeploy.
		if commonerrors.IsNotFound(err) {
			return txc.DeleteSecretAssignment(ctx, assignment.Id)
		}
		return err
	}
	if err := txc.SetSecretAssignmentStatus(ctx, assignment.Id, v1.SyncDeleting, "unassigned", principal); err != nil {
		return err
	}
	box.Enqueue(target.project.ClusterId, v1.NewProjectSecretsDelete(
		target.project.Id, secret.Id, target.namespace, secret.Name, now))
	return nil
}

// DeleteSecret tears the secret down: every assignment is unwound first, the
// parent row is removed once the last one confirms.
func (c *SecretController) DeleteSecret(ctx context.Context, secretId, principal string) error {
	secret, err := c.db.GetSecret(ctx, secretId)
	if err != nil {
		return err
	}
	if secret.Status == string(v1.SyncDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("secret %s is already being deleted", secret.Name))
	}
	assignments, err := c.db.SelectSecretAssignments(ctx, sqrl.Eq{"secret_id": secretId})
	if err != nil {
		return err
	}
	for _, assignment := range assignments {
		blocking, err := c.db.SelectBlockingStorages(ctx, secretId, assignment.ProjectId)
		if err != nil {
			return err
		}
		if len(blocking) > 0 {
			return commonerrors.NewSecretReferenced(secret.Name, blocking)
		}
	}

	now := time.Now().UTC()
	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.SetSecretStatus(ctx, secretId, v1.SyncDeleting, "being deleted", principal); err != nil {
			return err
		}
		for _, assignment := range assignments {
			if err := c.removeAssignment(ctx, txc, box, secret, assignment, principal, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.rollupSecret(ctx, secretId)
}

// HandleSecretsStatus applies one dispatcher report for an assignment, then
// re-rolls the parent secret and any storage composites that depend on it.
func (c *SecretController) HandleSecretsStatus(ctx context.Context, msg *v1.ProjectSecretsStatus) error {
	assignment, err := c.db.GetSecretAssignment(ctx, msg.SecretId, msg.ProjectId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("secret status for unknown assignment, dropping",
				"secret", msg.SecretId, "project", msg.ProjectId)
			return nil
		}
		return err
	}
	changed, err := c.db.SetSecretAssignmentStatusIfOlder(ctx, assignment.Id, msg.Status, msg.Reason, msg.UpdatedAt)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if msg.Status == v1.SyncDeleted {
		if err := c.db.DeleteSecretAssignment(ctx, assignment.Id); err != nil {
			return err
		}
	}
	if err := c.rollupSecret(ctx, msg.SecretId); err != nil {
		return err
	}
	if c.storages != nil {
		return c.storages.ResyncSecretDependents(ctx, msg.SecretId, msg.ProjectId)
	}
	return nil
}

// rollupSecret recomputes the parent status from its assignments. A Deleting
// parent with no assignments left is hard-deleted; a project-scoped secret
// whose only assignment is gone goes with it.
func (c *SecretController) rollupSecret(ctx context.Context, secretId string) error {
	secret, err := c.db.GetSecret(ctx, secretId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	assignments, err := c.db.SelectSecretAssignments(ctx, sqrl.Eq{"secret_id": secretId})
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		if secret.Status == string(v1.SyncDeleting) || secret.Scope == v1.SecretScopeProject {
			klog.InfoS("secret fully unwound, removing", "secret", secret.Name, "id", secret.Id)
			return c.db.DeleteSecret(ctx, secret.Id)
		}
	}
	children := lo.Map(assignments, func(a *dbclient.SecretAssignment, _ int) v1.SyncStatus {
		return v1.SyncStatus(a.Status)
	})
	resolved, reason := status.ResolveParent(v1.SyncStatus(secret.Status), children)
	if string(resolved) == secret.Status && reason == dbutils.ParseNullString(secret.StatusReason) {
		return nil
	}
	return c.db.SetSecretStatus(ctx, secret.Id, resolved, reason, dbclient.DispatcherPrincipal)
}

// AssignmentSummary lists per-project statuses for read APIs.
func (c *SecretController) AssignmentSummary(ctx context.Context, secretId string) (map[string]v1.SyncStatus, error) {
	assignments, err := c.db.SelectSecretAssignments(ctx, sqrl.Eq{"secret_id": secretId})
	if err != nil {
		return nil, err
	}
	out := make(map[string]v1.SyncStatus, len(assignments))
	for _, assignment := range assignments {
		out[assignment.ProjectId] = v1.SyncStatus(assignment.Status)
	}
	return out, nil
}
