package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type workspaceRepository struct {
	db *pgxpool.Pool
}

// NewWorkspaceRepository creates a new PostgreSQL workspace repository
func NewWorkspaceRepository(db *pgxpool.Pool) repository.WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) Create(ctx context.Context, ws *domain.Workspace) error {
	defer observe("workspace_create")()

	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}

	query := `
		INSERT INTO workspaces (
			id, name, slug, logo, plan, billing_cycle_start, invite_code,
			usage, usage_limit, links_usage, links_limit, domains_limit,
			tags_limit, users_limit, ai_usage, ai_limit, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`
	_, err := r.db.Exec(ctx, query,
		ws.ID, ws.Name, ws.Slug, ws.Logo, ws.Plan, ws.BillingCycleStart, ws.InviteCode,
		ws.Usage, ws.UsageLimit, ws.LinksUsage, ws.LinksLimit, ws.DomainsLimit,
		ws.TagsLimit, ws.UsersLimit, ws.AIUsage, ws.AILimit, ws.CreatedAt, ws.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("slug %q: %w", ws.Slug, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (r *workspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	defer observe("workspace_get")()

	query := `
		SELECT id, name, slug, logo, plan, billing_cycle_start, invite_code,
		       usage, usage_limit, links_usage, links_limit, domains_limit,
		       tags_limit, users_limit, ai_usage, ai_limit, created_at, updated_at
		FROM workspaces
		WHERE id = $1
	`

	ws := &domain.Workspace{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ws.ID, &ws.Name, &ws.Slug, &ws.Logo, &ws.Plan, &ws.BillingCycleStart, &ws.InviteCode,
		&ws.Usage, &ws.UsageLimit, &ws.LinksUsage, &ws.LinksLimit, &ws.DomainsLimit,
		&ws.TagsLimit, &ws.UsersLimit, &ws.AIUsage, &ws.AILimit, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}
