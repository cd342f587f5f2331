package repository

import (
	"context"
	"time"

	"github.com/simplesagar/dub/internal/domain"
)

// LinkRepository defines data access for links.
//
// Implementations return errors wrapping domain.ErrLinkNotFound and
// domain.ErrDuplicateKey so callers can branch with errors.Is.
type LinkRepository interface {
	// Create inserts the link and its tag associations, filling in ID.
	Create(ctx context.Context, link *domain.Link) error

	// GetByID loads a link with its tags.
	GetByID(ctx context.Context, id string) (*domain.Link, error)

	// GetByDomainKey loads a link by its short-link coordinates.
	GetByDomainKey(ctx context.Context, domain, key string) (*domain.Link, error)

	// Update writes every mutable column and replaces the tag set.
	Update(ctx context.Context, link *domain.Link) error

	// List returns one page of links matching filter, newest first by the
	// filter's sort column.
	List(ctx context.Context, filter domain.LinkFilter) ([]*domain.Link, error)

	// Count counts links matching filter, optionally grouped.
	Count(ctx context.Context, filter domain.LinkFilter, groupBy domain.LinkGroupBy) ([]domain.LinkCount, error)

	// ExistsDomainKey reports whether (domain, key) is taken.
	ExistsDomainKey(ctx context.Context, domain, key string) (bool, error)

	// IncrementClicks bumps the counter and lastClicked in one statement
	// so concurrent redirects never lose a click.
	IncrementClicks(ctx context.Context, linkID string, at time.Time) error
}

// TagRepository defines data access for tags.
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error

	// List returns the workspace's tags ordered by name.
	List(ctx context.Context, workspaceID string) ([]*domain.Tag, error)

	// FindByIDsOrNames returns the workspace's tags whose ID is in ids or
	// whose name is in names. Missing references are simply absent from
	// the result.
	FindByIDsOrNames(ctx context.Context, workspaceID string, ids, names []string) ([]*domain.Tag, error)
}

// WorkspaceRepository defines data access for workspaces.
type WorkspaceRepository interface {
	// Create inserts the workspace, filling in ID. A taken slug wraps
	// domain.ErrDuplicateKey.
	Create(ctx context.Context, ws *domain.Workspace) error

	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
}

// ClickRepository defines the interface for analytics data access
type ClickRepository interface {
	// Create inserts a new click event
	Create(ctx context.Context, click *domain.ClickEvent) error
}
