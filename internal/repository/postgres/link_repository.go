package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metrics"
	"github.com/simplesagar/dub/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// linkColumns is the select list shared by every link query, in scanLink
// order.
const linkColumns = `
	l.id, l.domain, l.key, l.url, l.archived, l.public_stats,
	l.expires_at, l.expired_url, l.password, l.proxy, l.title,
	l.description, l.image, l.rewrite, l.ios, l.android, l.geo,
	l.utm_source, l.utm_medium, l.utm_campaign, l.utm_term, l.utm_content,
	l.comments, l.clicks, l.last_clicked, l.user_id, l.workspace_id,
	l.created_at, l.updated_at`

// linkRepository is the PostgreSQL implementation of repository.LinkRepository
type linkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates a new PostgreSQL link repository
func NewLinkRepository(db *pgxpool.Pool) repository.LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts the link and its tag rows in one transaction.
func (r *linkRepository) Create(ctx context.Context, link *domain.Link) error {
	defer observe("link_create")()

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	geo, err := encodeGeo(link.Geo)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO links (
			id, domain, key, url, archived, public_stats, expires_at,
			expired_url, password, proxy, title, description, image,
			rewrite, ios, android, geo, utm_source, utm_medium,
			utm_campaign, utm_term, utm_content, comments, clicks,
			last_clicked, user_id, workspace_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
		)
	`

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			link.ID, link.Domain, link.Key, link.URL, link.Archived, link.PublicStats, link.ExpiresAt,
			link.ExpiredURL, link.Password, link.Proxy, link.Title, link.Description, link.Image,
			link.Rewrite, link.IOS, link.Android, geo, link.UTMSource, link.UTMMedium,
			link.UTMCampaign, link.UTMTerm, link.UTMContent, link.Comments, link.Clicks,
			link.LastClicked, link.UserID, link.WorkspaceID, link.CreatedAt, link.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return insertLinkTags(ctx, tx, link.ID, link.TagIDs())
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s/%s: %w", link.Domain, link.Key, domain.ErrDuplicateKey)
		}
		metrics.DatabaseErrorsTotal.WithLabelValues("link_create").Inc()
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetByID loads a link and its tags.
func (r *linkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	defer observe("link_get")()

	query := `SELECT ` + linkColumns + ` FROM links l WHERE l.id = $1`
	return r.getOne(ctx, query, id)
}

// GetByDomainKey loads a link by its short-link coordinates.
func (r *linkRepository) GetByDomainKey(ctx context.Context, domainName, key string) (*domain.Link, error) {
	defer observe("link_get")()

	query := `SELECT ` + linkColumns + ` FROM links l WHERE l.domain = $1 AND l.key = $2`
	return r.getOne(ctx, query, domainName, key)
}

func (r *linkRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	link, err := scanLink(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		metrics.DatabaseErrorsTotal.WithLabelValues("link_get").Inc()
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	if err := r.attachTags(ctx, []*domain.Link{link}); err != nil {
		return nil, err
	}
	return link, nil
}

// Update writes every mutable column and replaces the tag set.
func (r *linkRepository) Update(ctx context.Context, link *domain.Link) error {
	defer observe("link_update")()

	geo, err := encodeGeo(link.Geo)
	if err != nil {
		return err
	}

	query := `
		UPDATE links SET
			domain = $2, key = $3, url = $4, archived = $5, public_stats = $6,
			expires_at = $7, expired_url = $8, password = $9, proxy = $10,
			title = $11, description = $12, image = $13, rewrite = $14,
			ios = $15, android = $16, geo = $17, utm_source = $18,
			utm_medium = $19, utm_campaign = $20, utm_term = $21,
			utm_content = $22, comments = $23, updated_at = $24
		WHERE id = $1
	`

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			link.ID, link.Domain, link.Key, link.URL, link.Archived, link.PublicStats,
			link.ExpiresAt, link.ExpiredURL, link.Password, link.Proxy,
			link.Title, link.Description, link.Image, link.Rewrite,
			link.IOS, link.Android, geo, link.UTMSource,
			link.UTMMedium, link.UTMCampaign, link.UTMTerm,
			link.UTMContent, link.Comments, link.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrLinkNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM link_tags WHERE link_id = $1`, link.ID); err != nil {
			return err
		}
		return insertLinkTags(ctx, tx, link.ID, link.TagIDs())
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrLinkNotFound):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("%s/%s: %w", link.Domain, link.Key, domain.ErrDuplicateKey)
	default:
		metrics.DatabaseErrorsTotal.WithLabelValues("link_update").Inc()
		return fmt.Errorf("failed to update link: %w", err)
	}
}

// List returns one page of links for the filter.
func (r *linkRepository) List(ctx context.Context, filter domain.LinkFilter) ([]*domain.Link, error) {
	defer observe("link_list")()

	where, args := buildLinkWhere(filter)
	args = append(args, domain.PageSize, filter.Offset())
	query := fmt.Sprintf(
		`SELECT %s FROM links l WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		linkColumns, where, orderBy(filter.Sort), len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		metrics.DatabaseErrorsTotal.WithLabelValues("link_list").Inc()
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []*domain.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	if err := r.attachTags(ctx, links); err != nil {
		return nil, err
	}
	return links, nil
}

// Count counts matching links, optionally grouped by domain or tag.
func (r *linkRepository) Count(ctx context.Context, filter domain.LinkFilter, groupBy domain.LinkGroupBy) ([]domain.LinkCount, error) {
	defer observe("link_count")()

	where, args := buildLinkWhere(filter)

	var query string
	switch groupBy {
	case domain.GroupByDomain:
		query = `SELECT l.domain, COUNT(*) FROM links l WHERE ` + where +
			` GROUP BY l.domain ORDER BY COUNT(*) DESC`
	case domain.GroupByTagID:
		query = `SELECT lt.tag_id, COUNT(*) FROM links l JOIN link_tags lt ON lt.link_id = l.id WHERE ` + where +
			` GROUP BY lt.tag_id ORDER BY COUNT(*) DESC`
	default:
		query = `SELECT '', COUNT(*) FROM links l WHERE ` + where
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		metrics.DatabaseErrorsTotal.WithLabelValues("link_count").Inc()
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	defer rows.Close()

	counts := []domain.LinkCount{}
	for rows.Next() {
		var c domain.LinkCount
		if err := rows.Scan(&c.Group, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan link count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link counts: %w", err)
	}
	return counts, nil
}

// ExistsDomainKey checks if a (domain, key) pair is taken
func (r *linkRepository) ExistsDomainKey(ctx context.Context, domainName, key string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE domain = $1 AND key = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, domainName, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return exists, nil
}

// IncrementClicks atomically bumps the click counter and lastClicked.
func (r *linkRepository) IncrementClicks(ctx context.Context, linkID string, at time.Time) error {
	defer observe("link_increment_clicks")()

	query := `UPDATE links SET clicks = clicks + 1, last_clicked = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, linkID, at)
	if err != nil {
		metrics.DatabaseErrorsTotal.WithLabelValues("link_increment_clicks").Inc()
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

// attachTags loads the tags of every link with a single query.
func (r *linkRepository) attachTags(ctx context.Context, links []*domain.Link) error {
	if len(links) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Link, len(links))
	ids := make([]string, 0, len(links))
	for _, l := range links {
		l.Tags = []domain.Tag{}
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}

	query := `
		SELECT lt.link_id, t.id, t.name, t.color, t.workspace_id, t.created_at, t.updated_at
		FROM link_tags lt
		JOIN tags t ON t.id = lt.tag_id
		WHERE lt.link_id = ANY($1)
		ORDER BY t.name COLLATE "C", t.id
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load link tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var linkID string
		var t domain.Tag
		if err := rows.Scan(&linkID, &t.ID, &t.Name, &t.Color, &t.WorkspaceID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan link tag: %w", err)
		}
		if l, ok := byID[linkID]; ok {
			l.Tags = append(l.Tags, t)
		}
	}
	return rows.Err()
}

// insertLinkTags queues one insert per tag in a single batch.
func insertLinkTags(ctx context.Context, tx pgx.Tx, linkID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, tagID := range tagIDs {
		batch.Queue(`INSERT INTO link_tags (link_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, linkID, tagID)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func scanLink(row pgx.Row) (*domain.Link, error) {
	link := &domain.Link{}
	var geo []byte
	err := row.Scan(
		&link.ID, &link.Domain, &link.Key, &link.URL, &link.Archived, &link.PublicStats,
		&link.ExpiresAt, &link.ExpiredURL, &link.Password, &link.Proxy, &link.Title,
		&link.Description, &link.Image, &link.Rewrite, &link.IOS, &link.Android, &geo,
		&link.UTMSource, &link.UTMMedium, &link.UTMCampaign, &link.UTMTerm, &link.UTMContent,
		&link.Comments, &link.Clicks, &link.LastClicked, &link.UserID, &link.WorkspaceID,
		&link.CreatedAt, &link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if geo != nil {
		if err := json.Unmarshal(geo, &link.Geo); err != nil {
			return nil, fmt.Errorf("failed to decode geo: %w", err)
		}
	}
	link.Tags = []domain.Tag{}
	return link, nil
}

// encodeGeo maps a nil map to SQL NULL.
func encodeGeo(geo map[domain.CountryCode]string) ([]byte, error) {
	if geo == nil {
		return nil, nil
	}
	raw, err := json.Marshal(geo)
	if err != nil {
		return nil, fmt.Errorf("failed to encode geo: %w", err)
	}
	return raw, nil
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.DatabaseQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
