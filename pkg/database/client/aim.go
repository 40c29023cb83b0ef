/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

// Aim is one catalog entry for a deployable inference-model image. The table
// is reconciled in bulk from dispatcher discovery reports and managed through
// gorm so snapshots can be upserted in one statement.
type Aim struct {
	Id             string    `gorm:"column:id;primaryKey"`
	ImageReference string    `gorm:"column:image_reference;uniqueIndex"`
	ResourceName   string    `gorm:"column:resource_name"`
	Labels         string    `gorm:"column:labels"`
	Status         string    `gorm:"column:status"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
	CreatedBy      string    `gorm:"column:created_by"`
	UpdatedBy      string    `gorm:"column:updated_by"`
}

func (Aim) TableName() string {
	return "aim"
}

// AimClusterModel records on which cluster an AIM image was observed.
type AimClusterModel struct {
	Id        string    `gorm:"column:id;primaryKey"`
	AimId     string    `gorm:"column:aim_id;index"`
	ClusterId string    `gorm:"column:cluster_id;index"`
	Status    string    `gorm:"column:status"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	CreatedBy string    `gorm:"column:created_by"`
	UpdatedBy string    `gorm:"column:updated_by"`
}

func (AimClusterModel) TableName() string {
	return "aim_cluster_model"
}

// UpsertAim refreshes the mutable catalog fields when the image reference is
// already known.
func (c *Client) UpsertAim(ctx context.Context, aim *Aim) error {
	if aim == nil {
		return commonerrors.NewValidation("the aim is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "image_reference"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"resource_name", "labels", "status", "updated_at", "updated_by",
		}),
	}).Create(aim).Error
}

func (c *Client) GetAim(ctx context.Context, id string) (*Aim, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	var aim Aim
	if err := db.WithContext(ctx).First(&aim, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, commonerrors.NewNotFound(v1.AimKind, id)
		}
		return nil, err
	}
	return &aim, nil
}

func (c *Client) GetAimByImageReference(ctx context.Context, imageReference string) (*Aim, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	var aim Aim
	if err := db.WithContext(ctx).First(&aim, "image_reference = ?", imageReference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, commonerrors.NewNotFound(v1.AimKind, imageReference)
		}
		return nil, err
	}
	return &aim, nil
}

func (c *Client) SelectAims(ctx context.Context) ([]*Aim, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	var aims []*Aim
	if err := db.WithContext(ctx).Order("image_reference").Find(&aims).Error; err != nil {
		return nil, err
	}
	return aims, nil
}

func (c *Client) UpsertAimClusterModel(ctx context.Context, model *AimClusterModel) error {
	if model == nil {
		return commonerrors.NewValidation("the aim cluster model is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "aim_id"}, {Name: "cluster_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "updated_at", "updated_by",
		}),
	}).Create(model).Error
}

func (c *Client) SelectAimClusterModels(ctx context.Context, clusterId string) ([]*AimClusterModel, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	var models []*AimClusterModel
	if err := db.WithContext(ctx).Where("cluster_id = ?", clusterId).Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

// MarkAimClusterModelsDeleted flags every model of the cluster not named in
// keepIds. Absent catalog rows are retired, never hard-deleted, so historical
// workload references keep resolving.
func (c *Client) MarkAimClusterModelsDeleted(ctx context.Context, clusterId string, keepIds []string) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	tx := db.WithContext(ctx).Model(&AimClusterModel{}).
		Where("cluster_id = ? AND status <> ?", clusterId, v1.AimStatusDeleted)
	if len(keepIds) > 0 {
		tx = tx.Where("aim_id NOT IN ?", keepIds)
	}
	return tx.Updates(map[string]interface{}{
		"status":     v1.AimStatusDeleted,
		"updated_at": time.Now().UTC(),
		"updated_by": DispatcherPrincipal,
	}).Error
}
