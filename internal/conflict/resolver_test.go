package conflict

import (
	"testing"
	"time"

	"github.com/papersson/code-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	tests := []struct {
		name   string
		local  time.Time
		remote time.Time
		want   Side
	}{
		{name: "local newer", local: t2, remote: t1, want: Local},
		{name: "remote newer", local: t1, remote: t2, want: Remote},
		{name: "tie goes to remote", local: t1, remote: t1, want: Remote},
		{name: "local missing", local: time.Time{}, remote: t1, want: Remote},
		{name: "remote missing", local: t1, remote: time.Time{}, want: Local},
		{name: "both missing", want: Remote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.local, tt.remote))
		})
	}
}

func TestResolve_TieIsDeterministic(t *testing.T) {
	at := time.Unix(1700000000, 0)
	for i := 0; i < 100; i++ {
		assert.Equal(t, Remote, Resolve(at, at))
	}
}

func TestResolveRecords(t *testing.T) {
	local := &models.Chat{Envelope: models.Envelope{ID: "c1", UpdatedAt: time.Unix(20, 0)}}
	remote := &models.Chat{Envelope: models.Envelope{ID: "c1", UpdatedAt: time.Unix(10, 0)}}
	assert.Equal(t, Local, ResolveRecords(local, remote))
	assert.Equal(t, Remote, ResolveRecords(remote, local))
}
