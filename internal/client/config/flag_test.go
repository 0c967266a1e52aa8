package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "http://10.0.0.1:8080", "-g", "10.0.0.1:50051", "-i", "10", "-s", "0", "-t", "5",
			"-d", "/tmp/c.db", "-u", "u1", "-k", "token", "-l", "json", "-r",
		}, expected: &Config{
			ServerEndpointAddr:  "http://10.0.0.1:8080",
			HealthEndpointAddr:  "10.0.0.1:50051",
			OnlineCheckInterval: 10 * time.Second,
			SyncInterval:        0,
			RequestTimeout:      5 * time.Second,
			DatabaseDSN:         "/tmp/c.db",
			UserID:              "u1",
			AccessToken:         "token",
			ReapTombstones:      true,
			LogFormat:           "json",
		}},
		{name: "unknown flags are ignored", args: []string{"cmd", "-x", "1", "-a", "http://h"},
			expected: &Config{ServerEndpointAddr: "http://h"}},
		{name: "incorrect check interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
