package postgres

import (
	"context"
	"fmt"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// clickRepository is the PostgreSQL implementation for analytics
type clickRepository struct {
	db *pgxpool.Pool
}

// NewClickRepository creates a new PostgreSQL click repository
func NewClickRepository(db *pgxpool.Pool) repository.ClickRepository {
	return &clickRepository{db: db}
}

// Create inserts a new click event into the database
func (r *clickRepository) Create(ctx context.Context, click *domain.ClickEvent) error {
	defer observe("click_create")()

	query := `
		INSERT INTO link_clicks (
			link_id, clicked_at, target, country,
			device, browser, referer, user_agent
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8
		) RETURNING id
	`

	err := r.db.QueryRow(
		ctx,
		query,
		click.LinkID,
		click.ClickedAt,
		click.Target,
		string(click.Country),
		click.Device,
		click.Browser,
		click.Referer,
		click.UserAgent,
	).Scan(&click.ID)

	if err != nil {
		return fmt.Errorf("failed to create click event: %w", err)
	}

	return nil
}
