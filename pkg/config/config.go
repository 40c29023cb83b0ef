/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

func SetValue(key, value string) {
	viper.Set(key, value)
}

// LoadConfig reads the YAML config file and binds AIRM_* environment
// variables on top, so AIRM_DB_HOST overrides db.host.
func LoadConfig(path string) error {
	viper.SetEnvPrefix("AIRM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getFromFile(configPath, item string) string {
	path := getString(configPath, "")
	data, err := os.ReadFile(filepath.Join(path, item))
	if err != nil {
		return ""
	}
	key := string(data)
	return strings.TrimRight(key, "\r\n")
}

// fileOrKey prefers the direct config key and falls back to a mounted secret file.
func fileOrKey(directKey, secretPath, item string) string {
	if val := getString(directKey, ""); val != "" {
		return val
	}
	return getFromFile(secretPath, item)
}

func GetServerPort() int {
	return getInt(serverPort, 8080)
}

func GetServerBasePath() string {
	return getString(serverBasePath, "/v1")
}

func IsHealthCheckEnabled() bool {
	return getBool(healthCheckEnable, true)
}

func GetHealthCheckPort() int {
	return getInt(healthCheckPort, 0)
}

func GetDBHost() string {
	return fileOrKey(dbHost, dbSecretPath, "host")
}

func GetDBPort() int {
	data := fileOrKey(dbPort, dbSecretPath, "port")
	n, err := strconv.Atoi(data)
	if err != nil {
		return 0
	}
	return n
}

func GetDBName() string {
	return fileOrKey(dbName, dbSecretPath, "dbname")
}

func GetDBUser() string {
	return fileOrKey(dbUser, dbSecretPath, "user")
}

func GetDBPassword() string {
	return fileOrKey(dbPassword, dbSecretPath, "password")
}

func GetDBSslMode() string {
	return getString(dbSslMode, "require")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 100)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetime, 600)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 60)
}

func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 20)
}

func GetRabbitUrl() string {
	return fileOrKey(rabbitUrl, rabbitSecretPath, "url")
}

func GetRabbitManagementUrl() string {
	return fileOrKey(rabbitManagementUrl, rabbitSecretPath, "management_url")
}

func GetRabbitUser() string {
	return getFromFile(rabbitSecretPath, rabbitUser)
}

func GetRabbitPassword() string {
	return getFromFile(rabbitSecretPath, rabbitPassword)
}

func GetRabbitConsumerPrefetch() int {
	return getInt(rabbitConsumerPrefetch, 16)
}

func GetRabbitPublishTimeoutSecond() int {
	return getInt(rabbitPublishTimeoutSec, 10)
}

// GetHeartbeatUnhealthySecond is the silence window after which a cluster is
// reported UNHEALTHY.
func GetHeartbeatUnhealthySecond() int {
	return getInt(clusterHeartbeatUnhealthySecond, 300)
}

// GetMaxProjectsPerCluster bounds active projects per cluster; one queue slot
// is always reserved for the catch-all.
func GetMaxProjectsPerCluster() int {
	return getInt(clusterMaxProjects, 10)
}

func IsIdpEnable() bool {
	return getBool(idpEnable, true)
}

func GetIdpEndpoint() string {
	return getString(idpEndpoint, "")
}

func GetIdpRealm() string {
	return getString(idpRealm, "airm")
}

func GetIdpUser() string {
	return getFromFile(idpSecretPath, "username")
}

func GetIdpPassword() string {
	return getFromFile(idpSecretPath, "password")
}

func IsAuthEnable() bool {
	return getBool(authEnable, true)
}

func GetAuthEndpoint() string {
	return getString(authEndpoint, "")
}

func GetAuthToken() string {
	return getFromFile(authSecretPath, "token")
}

func GetApiKeySweepCron() string {
	return getString(apiKeySweepCron, "@hourly")
}

func GetApiKeySweepLimit() int {
	return getInt(apiKeySweepLimit, 200)
}

func IsS3Enable() bool {
	return getBool(s3Enable, false)
}

func GetS3AccessKey() string {
	if ak := getString(s3Prefix+s3AccessKey, ""); ak != "" {
		return ak
	}
	return getFromFile(s3SecretPath, s3AccessKey)
}

func GetS3SecretKey() string {
	if sk := getString(s3Prefix+s3SecretKey, ""); sk != "" {
		return sk
	}
	return getFromFile(s3SecretPath, s3SecretKey)
}

func GetS3Bucket() string {
	return getString(s3Bucket, "")
}

func GetS3Endpoint() string {
	return getString(s3Endpoint, "")
}

func GetS3ExpireDay() int32 {
	resp := getInt(s3ExpireDay, 7)
	return int32(resp)
}

func GetJwtPublicKey() string {
	return getFromFile(jwtSecretPath, "public.pem")
}

func GetJwtIssuer() string {
	return getString(jwtIssuer, "")
}

func GetJwtAudience() string {
	return getString(jwtAudience, "")
}

func IsMetricsEnable() bool {
	return getBool(metricsEnable, true)
}

func GetMetricsPort() int {
	return getInt(metricsPort, 9090)
}
