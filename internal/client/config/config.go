package config

import "time"

// Config holds runtime settings for the chat client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the sync HTTP API.
//   - HealthEndpointAddr: host:port of the gRPC health endpoint used as the online probe.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SyncInterval: period of background sync passes; zero disables them.
//   - RequestTimeout: upper bound for one sync exchange.
//   - DatabaseDSN: path of the local SQLite store.
//   - UserID / AccessToken: identity presented to the server.
//   - ReapTombstones: purge confirmed tombstones after each pass.
//   - LogFormat: text, json or zap.
type Config struct {
	ServerEndpointAddr  string
	HealthEndpointAddr  string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	RequestTimeout      time.Duration
	DatabaseDSN         string
	UserID              string
	AccessToken         string
	ReapTombstones      bool
	LogFormat           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.HealthEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 60 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.DatabaseDSN = "chats.db"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
