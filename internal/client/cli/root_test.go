package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/papersson/code-bot/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(&config.Config{})
	require.NotNil(t, cmd)
	assert.Equal(t, "chatsync", cmd.Use)
	assert.True(t, cmd.DisableFlagParsing)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(&config.Config{})

	for _, name := range []string{"sync", "status", "reap"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestStatusCommand(t *testing.T) {
	a, _, _, _ := newTestApp(t, "")
	require.NoError(t, a.NewChat(context.Background(), "Trip"))

	orig := newApp
	newApp = func(context.Context, *config.Config) (*App, error) { return a, nil }
	t.Cleanup(func() { newApp = orig })

	var out bytes.Buffer
	cmd := NewRootCommand(a.config)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Pending:      1")
}

func TestOneShotCommandPropagatesSetupError(t *testing.T) {
	orig := newApp
	newApp = func(context.Context, *config.Config) (*App, error) { return nil, errors.New("no database") }
	t.Cleanup(func() { newApp = orig })

	cmd := NewRootCommand(&config.Config{})
	cmd.SetArgs([]string{"sync"})
	cmd.SetErr(&bytes.Buffer{})
	assert.EqualError(t, cmd.Execute(), "no database")
}
