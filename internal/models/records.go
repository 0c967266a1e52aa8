package models

import (
	"fmt"
	"time"

	"github.com/papersson/code-bot/internal/common"
)

// Sender identifies the author of a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Chat struct {
	Envelope
	UserID               string  `json:"userId"`
	Name                 string  `json:"name"`
	ProjectID            *string `json:"projectId"`
	ProjectDescriptionID *string `json:"projectDescriptionId"`
}

func (c *Chat) Kind() Kind { return KindChat }

func (c *Chat) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: chat without id", common.ErrValidation)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: chat %s has no userId", common.ErrValidation, c.ID)
	}
	return nil
}

type ChatMessage struct {
	Envelope
	ChatID  string `json:"chatId"`
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

func (m *ChatMessage) Kind() Kind { return KindChatMessage }

func (m *ChatMessage) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: message without id", common.ErrValidation)
	}
	if m.ChatID == "" {
		return fmt.Errorf("%w: message %s has no chatId", common.ErrValidation, m.ID)
	}
	if m.Sender != SenderUser && m.Sender != SenderBot {
		return fmt.Errorf("%w: message %s has sender %q", common.ErrValidation, m.ID, m.Sender)
	}
	return nil
}

type Project struct {
	Envelope
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p *Project) Kind() Kind { return KindProject }

func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: project without id", common.ErrValidation)
	}
	return nil
}

type ProjectDescription struct {
	Envelope
	Language   string `json:"language"`
	Frameworks string `json:"frameworks"`
	Metadata   string `json:"metadata"`
}

func (d *ProjectDescription) Kind() Kind { return KindProjectDescription }

func (d *ProjectDescription) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: project description without id", common.ErrValidation)
	}
	return nil
}

// ContentEqual reports whether a and b carry the same replicated state:
// every field except SyncedAt, which is local bookkeeping.
func ContentEqual(a, b Record) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	ea, eb := a.Meta(), b.Meta()
	if ea.ID != eb.ID || ea.Deleted != eb.Deleted ||
		!ea.UpdatedAt.Equal(eb.UpdatedAt) || !ea.CreatedAt.Equal(eb.CreatedAt) {
		return false
	}
	switch x := a.(type) {
	case *Chat:
		y := b.(*Chat)
		return x.UserID == y.UserID && x.Name == y.Name &&
			equalRef(x.ProjectID, y.ProjectID) && equalRef(x.ProjectDescriptionID, y.ProjectDescriptionID)
	case *ChatMessage:
		y := b.(*ChatMessage)
		return x.ChatID == y.ChatID && x.Sender == y.Sender && x.Content == y.Content
	case *Project:
		y := b.(*Project)
		return x.Name == y.Name && x.Description == y.Description
	case *ProjectDescription:
		y := b.(*ProjectDescription)
		return x.Language == y.Language && x.Frameworks == y.Frameworks && x.Metadata == y.Metadata
	}
	return false
}

func equalRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// NewEnvelope returns the envelope of a freshly created local record.
func NewEnvelope(id string, now time.Time) Envelope {
	now = now.UTC().Truncate(time.Millisecond)
	return Envelope{ID: id, CreatedAt: now, UpdatedAt: now}
}
