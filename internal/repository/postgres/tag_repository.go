package postgres

import (
	"context"
	"fmt"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metrics"
	"github.com/simplesagar/dub/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type tagRepository struct {
	db *pgxpool.Pool
}

// NewTagRepository creates a new PostgreSQL tag repository
func NewTagRepository(db *pgxpool.Pool) repository.TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	defer observe("tag_create")()

	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tags (id, name, color, workspace_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, tag.ID, tag.Name, tag.Color, tag.WorkspaceID, tag.CreatedAt, tag.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%q: %w", tag.Name, domain.ErrDuplicateTag)
		}
		metrics.DatabaseErrorsTotal.WithLabelValues("tag_create").Inc()
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (r *tagRepository) List(ctx context.Context, workspaceID string) ([]*domain.Tag, error) {
	defer observe("tag_list")()

	query := `
		SELECT id, name, color, workspace_id, created_at, updated_at
		FROM tags
		WHERE workspace_id = $1
		ORDER BY name
	`
	return r.query(ctx, query, workspaceID)
}

// FindByIDsOrNames resolves tag references within one workspace.
func (r *tagRepository) FindByIDsOrNames(ctx context.Context, workspaceID string, ids, names []string) ([]*domain.Tag, error) {
	defer observe("tag_find")()

	if len(ids) == 0 && len(names) == 0 {
		return []*domain.Tag{}, nil
	}
	if ids == nil {
		ids = []string{}
	}
	if names == nil {
		names = []string{}
	}

	query := `
		SELECT id, name, color, workspace_id, created_at, updated_at
		FROM tags
		WHERE workspace_id = $1 AND (id = ANY($2) OR name = ANY($3))
		ORDER BY name
	`
	return r.query(ctx, query, workspaceID, ids, names)
}

func (r *tagRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Tag, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		metrics.DatabaseErrorsTotal.WithLabelValues("tag_query").Inc()
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}

	tags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Tag, error) {
		t := &domain.Tag{}
		err := row.Scan(&t.ID, &t.Name, &t.Color, &t.WorkspaceID, &t.CreatedAt, &t.UpdatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tags: %w", err)
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}
