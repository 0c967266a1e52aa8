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

// DescriptionInput holds the editable fields of a project description.
type DescriptionInput struct {
	Language   string
	Frameworks string
	Metadata   string
}

type ProjectService interface {
	CreateProject(ctx context.Context, name, description string) (*models.Project, error)
	RenameProject(ctx context.Context, id, name string) (*models.Project, error)
	// DeleteProject tombstones the project and detaches its chats.
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]*models.Project, error)

	CreateDescription(ctx context.Context, in DescriptionInput) (*models.ProjectDescription, error)
	UpdateDescription(ctx context.Context, id string, in DescriptionInput) (*models.ProjectDescription, error)
	DeleteDescription(ctx context.Context, id string) error
	ListDescriptions(ctx context.Context) ([]*models.ProjectDescription, error)
}

type projectService struct {
	base
}

func NewProjectService(db *sql.DB, repos repomanager.RepositoryManager, opts ...Option) ProjectService {
	return &projectService{base: newBase(db, repos, opts)}
}

func (s *projectService) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	p := &models.Project{
		Envelope:    models.NewEnvelope(s.newID(), s.clock.Now()),
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	if err := s.repos.Projects(s.db).Upsert(ctx, p); err != nil {
		return nil, wrap("create project", err)
	}
	s.changed(ctx, events.ProjectsChanged, p.ID)
	return p, nil
}

func (s *projectService) RenameProject(ctx context.Context, id, name string) (*models.Project, error) {
	p, err := s.liveProject(ctx, s.db, id)
	if err != nil {
		return nil, wrap("rename project", err)
	}
	p.Name = strings.TrimSpace(name)
	p.Touch(s.clock.Now())
	if err := s.repos.Projects(s.db).Upsert(ctx, p); err != nil {
		return nil, wrap("rename project", err)
	}
	s.changed(ctx, events.ProjectsChanged, p.ID)
	return p, nil
}

func (s *projectService) DeleteProject(ctx context.Context, id string) error {
	var detached []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.liveProject(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()

		chats, err := s.repos.Chats(tx).ListByProject(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range chats {
			c.ProjectID = nil
			c.Touch(now)
			if err := s.repos.Chats(tx).Upsert(ctx, c); err != nil {
				return err
			}
			detached = append(detached, c.ID)
		}

		p.Deleted = true
		p.Touch(now)
		return s.repos.Projects(tx).Upsert(ctx, p)
	})
	if err != nil {
		return wrap("delete project", err)
	}
	s.changed(ctx, events.ProjectsChanged, id)
	if len(detached) > 0 && s.bus != nil {
		s.bus.Publish(ctx, events.Event{Topic: events.ChatUpdated, IDs: detached})
	}
	return nil
}

func (s *projectService) ListProjects(ctx context.Context) ([]*models.Project, error) {
	ps, err := s.repos.Projects(s.db).List(ctx)
	return ps, wrap("list projects", err)
}

func (s *projectService) CreateDescription(ctx context.Context, in DescriptionInput) (*models.ProjectDescription, error) {
	d := &models.ProjectDescription{Envelope: models.NewEnvelope(s.newID(), s.clock.Now())}
	in.apply(d)
	if err := s.repos.Descriptions(s.db).Upsert(ctx, d); err != nil {
		return nil, wrap("create description", err)
	}
	s.changed(ctx, events.ProjectsChanged, d.ID)
	return d, nil
}

func (s *projectService) UpdateDescription(ctx context.Context, id string, in DescriptionInput) (*models.ProjectDescription, error) {
	d, err := s.liveDescription(ctx, id)
	if err != nil {
		return nil, wrap("update description", err)
	}
	in.apply(d)
	d.Touch(s.clock.Now())
	if err := s.repos.Descriptions(s.db).Upsert(ctx, d); err != nil {
		return nil, wrap("update description", err)
	}
	s.changed(ctx, events.ProjectsChanged, d.ID)
	return d, nil
}

func (s *projectService) DeleteDescription(ctx context.Context, id string) error {
	d, err := s.liveDescription(ctx, id)
	if err != nil {
		return wrap("delete description", err)
	}
	d.Deleted = true
	d.Touch(s.clock.Now())
	if err := s.repos.Descriptions(s.db).Upsert(ctx, d); err != nil {
		return wrap("delete description", err)
	}
	s.changed(ctx, events.ProjectsChanged, d.ID)
	return nil
}

func (s *projectService) ListDescriptions(ctx context.Context) ([]*models.ProjectDescription, error) {
	ds, err := s.repos.Descriptions(s.db).List(ctx)
	return ds, wrap("list descriptions", err)
}

func (s *projectService) liveDescription(ctx context.Context, id string) (*models.ProjectDescription, error) {
	d, err := s.repos.Descriptions(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Deleted {
		return nil, fmt.Errorf("description %s: %w", id, common.ErrorNotFound)
	}
	return d, nil
}

func (in DescriptionInput) apply(d *models.ProjectDescription) {
	d.Language = strings.TrimSpace(in.Language)
	d.Frameworks = strings.TrimSpace(in.Frameworks)
	d.Metadata = in.Metadata
}
