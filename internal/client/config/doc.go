// Package config loads runtime configuration for the chat client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the sync API
//	-g string   address:port of the gRPC health endpoint
//	-i int      online status check interval (seconds)
//	-s int      background sync interval (seconds, 0 disables)
//	-t int      sync request timeout (seconds)
//	-d string   local database path
//	-u string   user id
//	-k string   access token
//	-r          reap confirmed tombstones after each pass
//	-l string   log format: text, json or zap
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Keys that are absent keep their earlier value:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "health_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "sync_interval": "1m",
//	  "request_timeout": "30s",
//	  "database_dsn": "chats.db",
//	  "user_id": "u1",
//	  "access_token": "...",
//	  "reap_tombstones": true,
//	  "log_format": "text"
//	}
package config
