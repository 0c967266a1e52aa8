// Package api declares the JSON wire format of the POST /sync exchange.
package api

import (
	"time"

	"github.com/papersson/code-bot/internal/models"
)

// SyncPath is the single sync endpoint.
const SyncPath = "/sync"

// SyncRequest carries the client's dirty records and its watermark.
// LastSync is null on the first pass, which asks for everything.
type SyncRequest struct {
	LastSync                 *time.Time                   `json:"lastSync"`
	LocalChats               []*models.Chat               `json:"localChats"`
	LocalMessages            []*models.ChatMessage        `json:"localMessages"`
	LocalProjects            []*models.Project            `json:"localProjects,omitempty"`
	LocalProjectDescriptions []*models.ProjectDescription `json:"localProjectDescriptions,omitempty"`
}

// SyncResponse carries rows the server changed since the watermark together
// with the canonical row of every pushed record.
type SyncResponse struct {
	ServerChatsChanged               []*models.Chat               `json:"serverChatsChanged"`
	ServerMessagesChanged            []*models.ChatMessage        `json:"serverMessagesChanged"`
	ServerProjectsChanged            []*models.Project            `json:"serverProjectsChanged"`
	ServerProjectDescriptionsChanged []*models.ProjectDescription `json:"serverProjectDescriptionsChanged"`
	ServerTime                       time.Time                    `json:"serverTime"`

	// RejectedIDs lists pushed records the server refused as invalid. The
	// client leaves them dirty.
	RejectedIDs []string `json:"rejectedIds,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Count returns the number of records pushed by the request.
func (r *SyncRequest) Count() int {
	return len(r.LocalChats) + len(r.LocalMessages) +
		len(r.LocalProjects) + len(r.LocalProjectDescriptions)
}

// Count returns the number of records carried by the response.
func (r *SyncResponse) Count() int {
	return len(r.ServerChatsChanged) + len(r.ServerMessagesChanged) +
		len(r.ServerProjectsChanged) + len(r.ServerProjectDescriptionsChanged)
}
