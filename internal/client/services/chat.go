package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/papersson/code-bot/internal/client/events"
	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/dbx"
	"github.com/papersson/code-bot/internal/models"
)

// ChatService manages chats and their messages in the local store.
//
// Deleted records are tombstoned, never removed, so the deletion
// replicates. List operations hide tombstones.
type ChatService interface {
	CreateChat(ctx context.Context, userID, name string, projectID *string) (*models.Chat, error)
	RenameChat(ctx context.Context, id, name string) (*models.Chat, error)
	AssignProject(ctx context.Context, id string, projectID, descriptionID *string) (*models.Chat, error)
	// DeleteChat tombstones the chat only. Its messages are left as they
	// are and keep syncing on their own.
	DeleteChat(ctx context.Context, id string) error
	// ListChats returns the user's live chats, most recently updated first.
	ListChats(ctx context.Context, userID string) ([]*models.Chat, error)

	AddMessage(ctx context.Context, chatID string, sender models.Sender, content string) (*models.ChatMessage, error)
	// EditMessage replaces the content of a message and tombstones every
	// later message of the chat, which are regenerated from the edit.
	EditMessage(ctx context.Context, id, content string) (*models.ChatMessage, error)
	Messages(ctx context.Context, chatID string) ([]*models.ChatMessage, error)
}

type chatService struct {
	base
}

func NewChatService(db *sql.DB, repos repomanager.RepositoryManager, opts ...Option) ChatService {
	return &chatService{base: newBase(db, repos, opts)}
}

func (s *chatService) CreateChat(ctx context.Context, userID, name string, projectID *string) (*models.Chat, error) {
	c := &models.Chat{
		Envelope:  models.NewEnvelope(s.newID(), s.clock.Now()),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		ProjectID: projectID,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if projectID != nil {
		if _, err := s.liveProject(ctx, s.db, *projectID); err != nil {
			return nil, wrap("create chat", err)
		}
	}
	if err := s.repos.Chats(s.db).Upsert(ctx, c); err != nil {
		return nil, wrap("create chat", err)
	}
	s.changed(ctx, events.ChatCreated, c.ID)
	return c, nil
}

func (s *chatService) RenameChat(ctx context.Context, id, name string) (*models.Chat, error) {
	return s.updateChat(ctx, id, func(c *models.Chat) error {
		c.Name = strings.TrimSpace(name)
		return nil
	})
}

func (s *chatService) AssignProject(ctx context.Context, id string, projectID, descriptionID *string) (*models.Chat, error) {
	return s.updateChat(ctx, id, func(c *models.Chat) error {
		if projectID != nil {
			if _, err := s.liveProject(ctx, s.db, *projectID); err != nil {
				return err
			}
		}
		c.ProjectID = projectID
		c.ProjectDescriptionID = descriptionID
		return nil
	})
}

func (s *chatService) updateChat(ctx context.Context, id string, fn func(c *models.Chat) error) (*models.Chat, error) {
	c, err := s.liveChat(ctx, s.db, id)
	if err != nil {
		return nil, wrap("update chat", err)
	}
	if err := fn(c); err != nil {
		return nil, wrap("update chat", err)
	}
	c.Touch(s.clock.Now())
	if err := s.repos.Chats(s.db).Upsert(ctx, c); err != nil {
		return nil, wrap("update chat", err)
	}
	s.changed(ctx, events.ChatUpdated, c.ID)
	return c, nil
}

func (s *chatService) DeleteChat(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := s.liveChat(ctx, tx, id)
		if err != nil {
			return err
		}
		c.Deleted = true
		c.Touch(s.clock.Now())
		return s.repos.Chats(tx).Upsert(ctx, c)
	})
	if err != nil {
		return wrap("delete chat", err)
	}
	s.changed(ctx, events.ChatDeleted, id)
	return nil
}

func (s *chatService) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	chats, err := s.repos.Chats(s.db).ListByUser(ctx, userID)
	return chats, wrap("list chats", err)
}

func (s *chatService) AddMessage(ctx context.Context, chatID string, sender models.Sender, content string) (*models.ChatMessage, error) {
	m := &models.ChatMessage{
		Envelope: models.NewEnvelope(s.newID(), s.clock.Now()),
		ChatID:   chatID,
		Sender:   sender,
		Content:  content,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := s.liveChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		if err := s.repos.Messages(tx).Upsert(ctx, m); err != nil {
			return err
		}
		// bump the chat so it sorts first
		c.Touch(m.UpdatedAt)
		return s.repos.Chats(tx).Upsert(ctx, c)
	})
	if err != nil {
		return nil, wrap("add message", err)
	}
	s.changed(ctx, events.MessagesChanged, m.ID)
	return m, nil
}

func (s *chatService) EditMessage(ctx context.Context, id, content string) (*models.ChatMessage, error) {
	var (
		edited *models.ChatMessage
		ids    []string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Messages(tx)
		m, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if m.Deleted {
			return fmt.Errorf("message %s: %w", id, common.ErrorNotFound)
		}
		now := s.clock.Now()

		msgs, err := repo.ListByChat(ctx, m.ChatID)
		if err != nil {
			return err
		}
		after := false
		for _, other := range msgs {
			if other.ID == m.ID {
				after = true
				continue
			}
			if !after {
				continue
			}
			other.Deleted = true
			other.Touch(now)
			if err := repo.Upsert(ctx, other); err != nil {
				return err
			}
			ids = append(ids, other.ID)
		}

		m.Content = content
		m.Touch(now)
		if err := repo.Upsert(ctx, m); err != nil {
			return err
		}
		edited = m
		ids = append(ids, m.ID)
		return nil
	})
	if err != nil {
		return nil, wrap("edit message", err)
	}
	s.changed(ctx, events.MessagesChanged, ids...)
	return edited, nil
}

func (s *chatService) Messages(ctx context.Context, chatID string) ([]*models.ChatMessage, error) {
	msgs, err := s.repos.Messages(s.db).ListByChat(ctx, chatID)
	return msgs, wrap("list messages", err)
}

func (s *chatService) liveChat(ctx context.Context, db dbx.DBTX, id string) (*models.Chat, error) {
	c, err := s.repos.Chats(db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Deleted {
		return nil, fmt.Errorf("chat %s: %w", id, common.ErrorNotFound)
	}
	return c, nil
}

func (b *base) liveProject(ctx context.Context, db dbx.DBTX, id string) (*models.Project, error) {
	p, err := b.repos.Projects(db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, fmt.Errorf("project %s: %w", id, common.ErrorNotFound)
	}
	return p, nil
}
