package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/papersson/code-bot/internal/flagx"
	"github.com/papersson/code-bot/internal/timex"
)

// JsonConfig is the DTO read from the JSON configuration file. Durations
// accept either strings such as "720h" or integer nanoseconds; pointer
// fields tell an absent key from an explicit zero.
type JsonConfig struct {
	EndpointAddrHTTP      string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC      string          `json:"endpoint_addr_grpc"`
	DatabaseDSN           string          `json:"database_dsn"`
	SecretKey             string          `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	TombstoneRetention    *timex.Duration `json:"tombstone_retention"`
	ReapInterval          *timex.Duration `json:"reap_interval"`
	HealthCheckInterval   *timex.Duration `json:"health_check_interval"`
	SyncOverlap           *timex.Duration `json:"sync_overlap"`
	S3Bucket              string          `json:"s3_bucket"`
	S3Region              string          `json:"s3_region"`
	S3BaseEndpoint        string          `json:"s3_base_endpoint"`
	S3RootUser            string          `json:"s3_root_user"`
	S3RootPassword        string          `json:"s3_root_password"`
	LogFormat             string          `json:"log_format"`
	AllowOrigins          []string        `json:"allow_origins"`
}

// parseJson overlays Config with the JSON file named by -c or -config.
// Without such a flag nothing is loaded. It panics when the file cannot be
// read or is not valid JSON.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setDuration(&config.TombstoneRetention, c.TombstoneRetention)
	setDuration(&config.ReapInterval, c.ReapInterval)
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval)
	setDuration(&config.SyncOverlap, c.SyncOverlap)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.LogFormat, c.LogFormat)
	if c.AllowOrigins != nil {
		config.AllowOrigins = c.AllowOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
