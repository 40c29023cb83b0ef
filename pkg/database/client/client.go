/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	"github.com/amd-enterprise-ai/airm/pkg/database/utils"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

var (
	once     sync.Once
	instance *Client
)

const dbNotInitialized = "The client of db has not been initialized"

// Client manages both sqlx and gorm database connections. A Client produced
// by WithTransaction is bound to the transaction; all other state is shared.
type Client struct {
	db              *sqlx.DB
	gorm            *gorm.DB
	tx              *sqlx.Tx
	*utils.DBConfig // Embedded database configuration
}

// NewClient creates a singleton instance of the database Client.
// It initializes the database configuration from common configuration,
// validates the parameters, and establishes connections using both sqlx and gorm.
// The initialization happens only once even if called multiple times.
func NewClient() *Client {
	once.Do(func() {
		cfg := &utils.DBConfig{
			DBName:         commonconfig.GetDBName(),
			Username:       commonconfig.GetDBUser(),
			Password:       commonconfig.GetDBPassword(),
			Host:           commonconfig.GetDBHost(),
			Port:           commonconfig.GetDBPort(),
			SSLMode:        commonconfig.GetDBSslMode(),
			MaxOpenConns:   commonconfig.GetDBMaxOpenConns(),
			MaxIdleConns:   commonconfig.GetDBMaxIdleConns(),
			MaxLifetime:    time.Duration(commonconfig.GetDBMaxLifetimeSecond()) * time.Second,
			MaxIdleTime:    time.Duration(commonconfig.GetDBMaxIdleTimeSecond()) * time.Second,
			ConnectTimeout: commonconfig.GetDBConnectTimeoutSecond(),
			RequestTimeout: time.Duration(commonconfig.GetDBRequestTimeoutSecond()) * time.Second,
		}
		if err := checkParams(cfg); err != nil {
			klog.ErrorS(err, "failed to check db params")
			return
		}
		db, err := utils.Connect(cfg, utils.PgDriver)
		if err != nil {
			klog.Errorf("%s", err.Error())
			return
		}
		err = db.Ping()
		if err != nil {
			klog.ErrorS(err, "failed to ping db")
			return
		}
		gormDb, err := utils.ConnectGorm(cfg)
		if err != nil {
			klog.ErrorS(err, "failed to init gorm")
			return
		}
		instance = &Client{db: db, DBConfig: cfg, gorm: gormDb}
		klog.Infof("init db-client successfully! conn-timeout: %d(s), request-timeout: %d(s)",
			cfg.ConnectTimeout, commonconfig.GetDBRequestTimeoutSecond())
	})
	return instance
}

// NewClientWith wraps existing connections, for tests.
func NewClientWith(db *sqlx.DB, gormDb *gorm.DB) *Client {
	return &Client{db: db, gorm: gormDb, DBConfig: &utils.DBConfig{}}
}

// Close performs the Close operation.
func (c *Client) Close() {
	err := c.db.Close()
	if err != nil {
		klog.ErrorS(err, "failed to close db connection")
	}
}

// WithTransaction runs fn inside a single transaction. The callback receives
// a Client bound to the transaction; calling WithTransaction on that client
// joins the outer transaction instead of opening a new one. Commit happens
// only when fn returns nil.
func (c *Client) WithTransaction(ctx context.Context, fn func(txc *Client) error) error {
	if c.tx != nil {
		return fn(c)
	}
	if c.db == nil {
		return commonerrors.NewInternalError(dbNotInitialized)
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	txc := &Client{db: c.db, gorm: c.gorm, tx: tx, DBConfig: c.DBConfig}
	if err := fn(txc); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			klog.ErrorS(rbErr, "failed to roll back transaction")
		}
		return err
	}
	return tx.Commit()
}

// Ping verifies the pool still reaches the database. Used by the health
// endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c.db == nil {
		return commonerrors.NewInternalError(dbNotInitialized)
	}
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()
	return c.db.PingContext(opCtx)
}

// ext selects the transaction when one is active, the pool otherwise.
func (c *Client) ext() (sqlx.ExtContext, error) {
	if c.tx != nil {
		return c.tx.Unsafe(), nil
	}
	if c.db == nil {
		return nil, commonerrors.NewInternalError(dbNotInitialized)
	}
	return c.db.Unsafe(), nil
}

// GetGormDB retrieves the gorm handle for entities managed through the ORM.
func (c *Client) GetGormDB() (*gorm.DB, error) {
	if c.gorm == nil {
		return nil, commonerrors.NewInternalError("The gorm client has not been initialized")
	}
	return c.gorm, nil
}

// opCtx applies the configured per-request timeout when one is set.
func (c *Client) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.RequestTimeout)
	}
	return ctx, func() {}
}

// checkParams checks Params and returns the result.
func checkParams(cfg *utils.DBConfig) error {
	var errs []error
	if cfg.DBName == "" {
		errs = append(errs, fmt.Errorf("dbname not found"))
	}
	if cfg.Username == "" {
		errs = append(errs, fmt.Errorf("username not found"))
	}
	if cfg.Password == "" {
		errs = append(errs, fmt.Errorf("password not found"))
	}
	if cfg.Host == "" {
		errs = append(errs, fmt.Errorf("host not found"))
	}
	if cfg.SSLMode == "" {
		errs = append(errs, fmt.Errorf("ssl_mode not found"))
	}
	if cfg.Port == 0 {
		errs = append(errs, fmt.Errorf("port not found"))
	}
	return utilerrors.NewAggregate(errs)
}
