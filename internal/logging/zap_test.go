package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZapLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLoggerTo(&buf)
	ctx := context.Background()

	log.With("module", "sync").Info(ctx, "pass done", "pushed", 3)
	log.Warn(ctx, "skipped", "id", "c1")
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"msg":"pass done"`)
	assert.Contains(t, out, `"module":"sync"`)
	assert.Contains(t, out, `"pushed":3`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestNew_Formats(t *testing.T) {
	for _, f := range []string{"", FormatJSON, FormatText, FormatZap} {
		var buf bytes.Buffer
		l, err := New(f, &buf)
		require.NoError(t, err, f)
		l.Info(context.Background(), "hello")
		assert.Contains(t, buf.String(), "hello", f)
	}

	_, err := New("xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestZapLogger_IncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLoggerTo(&buf)

	ctx := ContextWith(context.Background(), "user_id", "u1")
	log.Error(ctx, "sync failed", "error", "boom")
	require.NoError(t, log.Sync())

	assert.Contains(t, buf.String(), `"user_id":"u1"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
