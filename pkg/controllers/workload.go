/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	"github.com/amd-enterprise-ai/airm/pkg/blob"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	"github.com/amd-enterprise-ai/airm/pkg/messaging"
	"github.com/amd-enterprise-ai/airm/pkg/status"
	jsonutil "github.com/amd-enterprise-ai/airm/pkg/utils/json"
)

// WorkloadController turns chart payloads into labeled manifests, tracks the
// per-resource components and rolls workload status up from their reports.
type WorkloadController struct {
	*base
	blob blob.Interface
}

type CreateWorkloadRequest struct {
	ProjectId    string
	Name         string
	DisplayName  string
	WorkloadType string
	ChartId      string
	OverlayId    string
	AimId        string
	AuthGroupId  string
	Values       map[string]interface{}
	Principal    string
}

// CreateWorkload renders the chart into identity-labeled manifests, persists
// the workload with one component row per document and ships the bundle.
func (c *WorkloadController) CreateWorkload(ctx context.Context, req CreateWorkloadRequest) (*dbclient.Workload, error) {
	if err := ValidateSubdomainName("workload", req.Name); err != nil {
		return nil, err
	}
	project, err := c.db.GetProject(ctx, req.ProjectId)
	if err != nil {
		return nil, err
	}
	if project.Status != string(v1.ProjectReady) {
		return nil, commonerrors.NewPreconditionNotMet(
			fmt.Sprintf("project %s is %s, workloads need a ready project", project.Name, project.Status))
	}
	namespace, err := c.db.GetNamespaceByProject(ctx, req.ProjectId)
	if err != nil {
		return nil, err
	}

	docs, err := c.renderChartDocuments(ctx, req.ChartId, req.OverlayId)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, commonerrors.NewValidation("the chart renders to no resources")
	}

	now := time.Now().UTC()
	workloadId := uuid.NewString()
	components := make([]*dbclient.WorkloadComponent, 0, len(docs))
	rendered := make([]string, 0, len(docs))
	for _, doc := range docs {
		componentId := uuid.NewString()
		labels := doc.GetLabels()
		if labels == nil {
			labels = map[string]string{}
		}
		labels[v1.WorkloadIdLabel] = workloadId
		labels[v1.ComponentIdLabel] = componentId
		labels[v1.ProjectIdLabel] = req.ProjectId
		doc.SetLabels(labels)
		doc.SetNamespace(namespace.Name)
		out, err := yaml.Marshal(doc.Object)
		if err != nil {
			return nil, commonerrors.NewValidation(fmt.Sprintf("failed to render manifest: %v", err))
		}
		rendered = append(rendered, string(out))
		components = append(components, &dbclient.WorkloadComponent{
			Id:         componentId,
			WorkloadId: workloadId,
			ProjectId:  dbutils.NullString(req.ProjectId),
			Kind:       doc.GetKind(),
			Name:       doc.GetName(),
			Namespace:  namespace.Name,
			Status:     string(v1.ComponentPending),
			CreatedAt:  now,
			UpdatedAt:  now,
			CreatedBy:  req.Principal,
			UpdatedBy:  req.Principal,
		})
	}
	manifests := strings.Join(rendered, "---\n")

	workload := &dbclient.Workload{
		Id:           workloadId,
		ProjectId:    req.ProjectId,
		Name:         req.Name,
		DisplayName:  dbutils.NullString(req.DisplayName),
		Namespace:    namespace.Name,
		WorkloadType: dbutils.NullString(req.WorkloadType),
		ChartId:      dbutils.NullString(req.ChartId),
		OverlayId:    dbutils.NullString(req.OverlayId),
		AimId:        dbutils.NullString(req.AimId),
		AuthGroupId:  dbutils.NullString(req.AuthGroupId),
		Manifests:    dbutils.NullString(manifests),
		Values:       dbutils.NullString(string(jsonutil.MarshalSilently(req.Values))),
		Status:       string(v1.WorkloadPending),
		StatusReason: dbutils.NullString("being created"),
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    req.Principal,
		UpdatedBy:    req.Principal,
	}
	err = c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.InsertWorkload(ctx, workload); err != nil {
			return err
		}
		for _, component := range components {
			if err := txc.UpsertWorkloadComponent(ctx, component); err != nil {
				return err
			}
		}
		box.Enqueue(project.ClusterId, v1.NewWorkloadCreate(workloadId, req.ProjectId, namespace.Name, manifests, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return workload, nil
}

// renderChartDocuments loads the chart payload (plus an optional overlay,
// whose documents append) from the blob store and splits the stream.
func (c *WorkloadController) renderChartDocuments(ctx context.Context, chartId, overlayId string) ([]*unstructured.Unstructured, error) {
	chart, err := c.db.GetChart(ctx, chartId)
	if err != nil {
		return nil, err
	}
	payload, err := c.blob.Get(ctx, chart.S3Key)
	if err != nil {
		return nil, err
	}
	docs, err := jsonutil.ParseYamlDocuments(string(payload))
	if err != nil {
		return nil, commonerrors.NewValidation(fmt.Sprintf("chart %s holds invalid YAML: %v", chart.Name, err))
	}
	if overlayId == "" {
		return docs, nil
	}
	overlay, err := c.db.GetChart(ctx, overlayId)
	if err != nil {
		return nil, err
	}
	overlayPayload, err := c.blob.Get(ctx, overlay.S3Key)
	if err != nil {
		return nil, err
	}
	overlayDocs, err := jsonutil.ParseYamlDocuments(string(overlayPayload))
	if err != nil {
		return nil, commonerrors.NewValidation(fmt.Sprintf("overlay %s holds invalid YAML: %v", overlay.Name, err))
	}
	return append(docs, overlayDocs...), nil
}

// DeleteWorkload starts the cascade delete on the cluster. The row advances to
// Deleted only when the dispatcher confirms everything is gone.
func (c *WorkloadController) DeleteWorkload(ctx context.Context, workloadId, principal string) error {
	workload, err := c.db.GetWorkload(ctx, workloadId)
	if err != nil {
		return err
	}
	if workload.Status == string(v1.WorkloadDeleting) {
		return commonerrors.NewConflict(fmt.Sprintf("workload %s is already being deleted", workload.Name))
	}
	project, err := c.db.GetProject(ctx, workload.ProjectId)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return c.withTxOutbox(ctx, func(txc *dbclient.Client, box *messaging.Outbox) error {
		if err := txc.SetWorkloadStatus(ctx, workloadId, v1.WorkloadDeleting, "being deleted", principal); err != nil {
			return err
		}
		box.Enqueue(project.ClusterId, v1.NewDeleteWorkload(workloadId, workload.Namespace, now))
		return nil
	})
}

// HandleWorkloadStatus applies a workload-level transition the dispatcher
// resolved itself. A confirmed Deleted drops the component rows; the workload
// row stays for history.
func (c *WorkloadController) HandleWorkloadStatus(ctx context.Context, msg *v1.WorkloadStatusUpdate) error {
	changed, err := c.db.SetWorkloadStatusIfOlder(ctx, msg.WorkloadId, msg.Status, msg.Reason, msg.UpdatedAt)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if msg.Status == v1.WorkloadDeleted {
		return c.db.DeleteWorkloadComponents(ctx, msg.WorkloadId)
	}
	return nil
}

// HandleComponentStatus applies one component report and re-rolls the
// workload.
func (c *WorkloadController) HandleComponentStatus(ctx context.Context, msg *v1.WorkloadComponentStatusUpdate) error {
	component, err := c.db.GetWorkloadComponent(ctx, msg.ComponentId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("component status for unknown component, dropping",
				"workload", msg.WorkloadId, "component", msg.ComponentId)
			return nil
		}
		return err
	}
	changed, err := c.db.SetWorkloadComponentStatusIfOlder(ctx, component.Id, msg.Status, msg.Reason, msg.UpdatedAt)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return c.rollupWorkload(ctx, msg.WorkloadId)
}

// HandleAutoDiscovered creates the component row for a labeled resource the
// controller never rendered, so its first status report has somewhere to land.
func (c *WorkloadController) HandleAutoDiscovered(ctx context.Context, msg *v1.AutoDiscoveredWorkloadComponent) error {
	if _, err := c.db.GetWorkload(ctx, msg.WorkloadId); err != nil {
		if commonerrors.IsNotFound(err) {
			klog.InfoS("auto-discovered component for unknown workload, dropping", "workload", msg.WorkloadId)
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	err := c.db.UpsertWorkloadComponent(ctx, &dbclient.WorkloadComponent{
		Id:             msg.ComponentId,
		WorkloadId:     msg.WorkloadId,
		ProjectId:      dbutils.NullString(msg.ProjectId),
		Kind:           msg.Kind,
		Name:           msg.Name,
		Namespace:      msg.Namespace,
		Status:         string(v1.ComponentUnknown),
		AutoDiscovered: true,
		CreatedAt:      now,
		UpdatedAt:      msg.UpdatedAt,
		CreatedBy:      dbclient.DispatcherPrincipal,
		UpdatedBy:      dbclient.DispatcherPrincipal,
	})
	if err != nil {
		return err
	}
	return c.rollupWorkload(ctx, msg.WorkloadId)
}

func (c *WorkloadController) rollupWorkload(ctx context.Context, workloadId string) error {
	workload, err := c.db.GetWorkload(ctx, workloadId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	components, err := c.db.SelectWorkloadComponents(ctx, workloadId)
	if err != nil {
		return err
	}
	statuses := make([]v1.ComponentStatus, 0, len(components))
	for _, component := range components {
		statuses = append(statuses, v1.ComponentStatus(component.Status))
	}
	resolved, reason := status.ResolveWorkload(v1.WorkloadStatus(workload.Status), statuses)
	if string(resolved) == workload.Status && reason == dbutils.ParseNullString(workload.StatusReason) {
		return nil
	}
	if err := c.db.SetWorkloadStatus(ctx, workload.Id, resolved, reason, dbclient.DispatcherPrincipal); err != nil {
		return err
	}
	if resolved == v1.WorkloadDeleted {
		return c.db.DeleteWorkloadComponents(ctx, workload.Id)
	}
	return nil
}
