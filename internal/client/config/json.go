package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/papersson/code-bot/internal/flagx"
	"github.com/papersson/code-bot/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish an absent key from an explicit zero.
type JsonConfig struct {
	ServerEndpointAddr  string          `json:"server_endpoint_addr"`
	HealthEndpointAddr  string          `json:"health_endpoint_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	SyncInterval        *timex.Duration `json:"sync_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	DatabaseDSN         string          `json:"database_dsn"`
	UserID              string          `json:"user_id"`
	AccessToken         string          `json:"access_token"`
	ReapTombstones      *bool           `json:"reap_tombstones"`
	LogFormat           string          `json:"log_format"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.HealthEndpointAddr, jc.HealthEndpointAddr)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.UserID, jc.UserID)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.ReapTombstones != nil {
		cfg.ReapTombstones = *jc.ReapTombstones
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
