package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/papersson/code-bot/internal/models"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

func strPtr(s string) *string { return &s }

func TestSyncRequest_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden.json"))

	tests := []struct {
		name string
		req  SyncRequest
	}{
		{
			name: "first_sync",
			req: SyncRequest{
				LocalChats: []*models.Chat{{
					Envelope: models.Envelope{ID: "c1", CreatedAt: t0, UpdatedAt: t0},
					UserID:   "u1",
					Name:     "Trip",
				}},
				LocalMessages: []*models.ChatMessage{},
			},
		},
		{
			name: "incremental_with_tombstone",
			req: SyncRequest{
				LastSync: &t0,
				LocalChats: []*models.Chat{{
					Envelope:  models.Envelope{ID: "c1", CreatedAt: t0, UpdatedAt: t1, SyncedAt: &t0, Deleted: true},
					UserID:    "u1",
					Name:      "Trip",
					ProjectID: strPtr("p1"),
				}},
				LocalMessages: []*models.ChatMessage{{
					Envelope: models.Envelope{ID: "m1", CreatedAt: t0, UpdatedAt: t1},
					ChatID:   "c1",
					Sender:   models.SenderBot,
					Content:  "hello",
				}},
				LocalProjects: []*models.Project{{
					Envelope: models.Envelope{ID: "p1", CreatedAt: t0, UpdatedAt: t0},
					Name:     "Holidays",
				}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.MarshalIndent(tt.req, "", "  ")
			require.NoError(t, err)
			g.Assert(t, tt.name, b)
		})
	}
}

func TestSyncResponse_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden.json"))

	resp := SyncResponse{
		ServerChatsChanged: []*models.Chat{{
			Envelope: models.Envelope{ID: "c1", CreatedAt: t0, UpdatedAt: t1, SyncedAt: &t1},
			UserID:   "u1",
			Name:     "Trip",
		}},
		ServerMessagesChanged:            []*models.ChatMessage{},
		ServerProjectsChanged:            []*models.Project{},
		ServerProjectDescriptionsChanged: []*models.ProjectDescription{},
		ServerTime:                       t1,
	}
	b, err := json.MarshalIndent(resp, "", "  ")
	require.NoError(t, err)
	g.Assert(t, "response", b)
}

func TestSyncRequest_DecodesMinimalBody(t *testing.T) {
	body := `{"lastSync":null,"localChats":[{"id":"c1","userId":"u1","name":"Trip","updatedAt":"2024-03-10T12:00:00Z"}],"localMessages":[]}`

	var req SyncRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Nil(t, req.LastSync)
	require.Len(t, req.LocalChats, 1)
	assert.Equal(t, "c1", req.LocalChats[0].ID)
	assert.Equal(t, t0, req.LocalChats[0].UpdatedAt)
	assert.Nil(t, req.LocalChats[0].SyncedAt)
	assert.Empty(t, req.LocalProjects)
	assert.Equal(t, 1, req.Count())
}

func TestErrorResponse_Shape(t *testing.T) {
	b, err := json.Marshal(ErrorResponse{Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(b))
}
