package service

import (
	"context"
	"fmt"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/repository"
	"github.com/simplesagar/dub/pkg/logger"
	"github.com/simplesagar/dub/pkg/validator"
)

// TagService manages a workspace's tags.
type TagService struct {
	tags       repository.TagRepository
	workspaces repository.WorkspaceRepository
	log        *logger.Logger
}

// NewTagService creates a new tag service
func NewTagService(tags repository.TagRepository, workspaces repository.WorkspaceRepository, log *logger.Logger) *TagService {
	return &TagService{tags: tags, workspaces: workspaces, log: log}
}

// CreateTag creates a tag in workspaceID. A name already used in the
// workspace wraps domain.ErrDuplicateTag.
func (s *TagService) CreateTag(ctx context.Context, workspaceID string, in *validator.CreateTagInput) (*domain.Tag, error) {
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	tag := domain.NewTag(in.Name, in.Color, workspaceID)
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.log.WithContext(ctx).Info("tag created", "tag_id", tag.ID, "workspace_id", workspaceID)
	return tag, nil
}

// ListTags returns the workspace's tags ordered by name.
func (s *TagService) ListTags(ctx context.Context, workspaceID string) ([]*domain.Tag, error) {
	tags, err := s.tags.List(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}
