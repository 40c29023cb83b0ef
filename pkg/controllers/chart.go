/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package controllers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/amd-enterprise-ai/airm/pkg/blob"
	dbclient "github.com/amd-enterprise-ai/airm/pkg/database/client"
	dbutils "github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	jsonutil "github.com/amd-enterprise-ai/airm/pkg/utils/json"
)

// ChartController owns packaged workload templates. Rows carry metadata only;
// the YAML payload lives in the blob store under S3Key.
type ChartController struct {
	*base
	blob blob.Interface
}

type CreateChartRequest struct {
	Name        string
	Version     string
	Description string
	Payload     []byte
	Principal   string
}

// CreateChart validates and stores the payload, then inserts the row. A blob
// failure surfaces as UploadFailed; a row failure removes the fresh object so
// nothing is orphaned.
func (c *ChartController) CreateChart(ctx context.Context, req CreateChartRequest) (*dbclient.Chart, error) {
	if err := ValidateSubdomainName("chart", req.Name); err != nil {
		return nil, err
	}
	if req.Version == "" {
		return nil, commonerrors.NewValidation("the chart version is required")
	}
	if len(req.Payload) == 0 {
		return nil, commonerrors.NewValidation("the chart payload is empty")
	}
	if _, err := jsonutil.ParseYamlDocuments(string(req.Payload)); err != nil {
		return nil, commonerrors.NewValidation(fmt.Sprintf("the chart payload is not valid YAML: %v", err))
	}
	if _, err := c.db.GetChartByNameVersion(ctx, req.Name, req.Version); err == nil {
		return nil, commonerrors.NewConflict(fmt.Sprintf("chart %s version %s already exists", req.Name, req.Version))
	} else if !commonerrors.IsNotFound(err) {
		return nil, err
	}

	id := uuid.NewString()
	key := fmt.Sprintf("charts/%s/%s/%s.yaml", req.Name, req.Version, id)
	if err := c.blob.Put(ctx, key, req.Payload); err != nil {
		return nil, commonerrors.NewUploadFailed(fmt.Sprintf("failed to store chart payload: %v", err))
	}
	sum := sha256.Sum256(req.Payload)

	now := time.Now().UTC()
	chart := &dbclient.Chart{
		Id:          id,
		Name:        req.Name,
		Version:     req.Version,
		Description: dbutils.NullString(req.Description),
		S3Key:       key,
		Digest:      dbutils.NullString("sha256:" + hex.EncodeToString(sum[:])),
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   req.Principal,
		UpdatedBy:   req.Principal,
	}
	if err := c.db.InsertChart(ctx, chart); err != nil {
		if delErr := c.blob.Delete(ctx, key); delErr != nil {
			klog.ErrorS(delErr, "failed to remove chart payload after insert failure", "key", key)
		}
		return nil, err
	}
	return chart, nil
}

// DeleteChart refuses while workloads still reference the chart, then removes
// row and payload.
func (c *ChartController) DeleteChart(ctx context.Context, chartId, principal string) error {
	chart, err := c.db.GetChart(ctx, chartId)
	if err != nil {
		return err
	}
	count, err := c.db.CountWorkloads(ctx, chartReferenceFilter(chartId))
	if err != nil {
		return err
	}
	if count > 0 {
		return commonerrors.NewValidation(
			fmt.Sprintf("chart %s is still referenced by %d workloads", chart.Name, count))
	}
	if err := c.db.DeleteChart(ctx, chartId); err != nil {
		return err
	}
	if err := c.blob.Delete(ctx, chart.S3Key); err != nil {
		klog.ErrorS(err, "failed to remove chart payload", "key", chart.S3Key)
	}
	return nil
}

func chartReferenceFilter(chartId string) sqrl.Sqlizer {
	return sqrl.Or{sqrl.Eq{"chart_id": chartId}, sqrl.Eq{"overlay_id": chartId}}
}

// DownloadUrl returns a time-limited URL for the chart payload.
func (c *ChartController) DownloadUrl(ctx context.Context, chartId string) (string, error) {
	chart, err := c.db.GetChart(ctx, chartId)
	if err != nil {
		return "", err
	}
	return c.blob.PresignGet(ctx, chart.S3Key)
}
