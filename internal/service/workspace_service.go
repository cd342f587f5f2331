package service

import (
	"context"
	"fmt"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/repository"
	"github.com/simplesagar/dub/pkg/logger"
	"github.com/simplesagar/dub/pkg/validator"
)

// WorkspaceService creates and loads workspaces.
type WorkspaceService struct {
	workspaces repository.WorkspaceRepository
	log        *logger.Logger
}

// NewWorkspaceService creates a new workspace service
func NewWorkspaceService(workspaces repository.WorkspaceRepository, log *logger.Logger) *WorkspaceService {
	return &WorkspaceService{workspaces: workspaces, log: log}
}

// CreateWorkspace creates a free-plan workspace. A taken slug wraps
// domain.ErrDuplicateKey.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, in *validator.CreateWorkspaceInput) (*domain.Workspace, error) {
	ws := domain.NewWorkspace(in.Name, in.Slug)
	if err := s.workspaces.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	s.log.WithContext(ctx).Info("workspace created", "workspace_id", ws.ID, "slug", ws.Slug)
	return ws, nil
}

// GetWorkspace loads a workspace by ID.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	ws, err := s.workspaces.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	return ws, nil
}
