/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix   = "server."
	serverPort     = serverPrefix + "port"
	serverBasePath = serverPrefix + "base_path"

	// health_check
	healthCheckPrefix = "health_check."
	healthCheckEnable = healthCheckPrefix + "enable"
	healthCheckPort   = healthCheckPrefix + "port"

	// db
	dbPrefix               = "db."
	dbSecretPath           = dbPrefix + "secret_path"
	dbHost                 = dbPrefix + "host"
	dbPort                 = dbPrefix + "port"
	dbName                 = dbPrefix + "dbname"
	dbUser                 = dbPrefix + "user"
	dbPassword             = dbPrefix + "password"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetime          = dbPrefix + "max_life_time_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_second"

	// rabbitmq
	rabbitPrefix            = "rabbitmq."
	rabbitSecretPath        = rabbitPrefix + "secret_path"
	rabbitUrl               = rabbitPrefix + "url"
	rabbitManagementUrl     = rabbitPrefix + "management_url"
	rabbitUser              = "username"
	rabbitPassword          = "password"
	rabbitConsumerPrefetch  = rabbitPrefix + "consumer_prefetch"
	rabbitPublishTimeoutSec = rabbitPrefix + "publish_timeout_second"

	// cluster
	clusterPrefix                   = "cluster."
	clusterHeartbeatUnhealthySecond = clusterPrefix + "heartbeat_unhealthy_second"
	clusterMaxProjects              = clusterPrefix + "max_projects"

	// idp (identity provider for users and groups)
	idpPrefix     = "idp."
	idpEnable     = idpPrefix + "enable"
	idpSecretPath = idpPrefix + "secret_path"
	idpEndpoint   = idpPrefix + "endpoint"
	idpRealm      = idpPrefix + "realm"

	// auth (external auth service issuing API keys)
	authPrefix     = "auth."
	authEnable     = authPrefix + "enable"
	authSecretPath = authPrefix + "secret_path"
	authEndpoint   = authPrefix + "endpoint"

	// apikey housekeeping
	apiKeyPrefix     = "apikey."
	apiKeySweepCron  = apiKeyPrefix + "orphan_sweep_cron"
	apiKeySweepLimit = apiKeyPrefix + "orphan_sweep_limit"

	// s3 (chart blob store)
	s3Prefix     = "s3."
	s3Enable     = s3Prefix + "enable"
	s3SecretPath = s3Prefix + "secret_path"
	s3AccessKey  = "access_key"
	s3SecretKey  = "secret_key"
	s3Endpoint   = s3Prefix + "endpoint"
	s3Bucket     = s3Prefix + "bucket"
	s3ExpireDay  = s3Prefix + "expire_day"

	// jwt validation
	jwtPrefix     = "jwt."
	jwtSecretPath = jwtPrefix + "secret_path"
	jwtIssuer     = jwtPrefix + "issuer"
	jwtAudience   = jwtPrefix + "audience"

	// metrics
	metricsPrefix = "metrics."
	metricsEnable = metricsPrefix + "enable"
	metricsPort   = metricsPrefix + "port"
)
