package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metrics"
	"github.com/simplesagar/dub/internal/repository"
	"github.com/simplesagar/dub/pkg/logger"
	"github.com/simplesagar/dub/pkg/validator"
)

// LinkConfig holds the link defaults the service applies.
type LinkConfig struct {
	DefaultDomain string
	KeyLength     int
}

// LinkService handles business logic for links.
// Input arrives already validated; the service resolves references
// against storage (workspace, tags, key uniqueness) and fills defaults.
type LinkService struct {
	links      repository.LinkRepository
	tags       repository.TagRepository
	workspaces repository.WorkspaceRepository
	clicks     repository.ClickRepository
	cache      Cache
	keys       KeyGenerator
	meta       MetatagFetcher
	log        *logger.Logger
	cfg        LinkConfig
}

// NewLinkService creates a new link service. A nil keys falls back to
// RandomKeys; a nil meta disables metatag filling.
func NewLinkService(
	links repository.LinkRepository,
	tags repository.TagRepository,
	workspaces repository.WorkspaceRepository,
	clicks repository.ClickRepository,
	cache Cache,
	keys KeyGenerator,
	meta MetatagFetcher,
	log *logger.Logger,
	cfg LinkConfig,
) *LinkService {
	if keys == nil {
		keys = RandomKeys{Length: cfg.KeyLength}
	}
	if cfg.DefaultDomain == "" {
		cfg.DefaultDomain = "dub.sh"
	}
	return &LinkService{
		links:      links,
		tags:       tags,
		workspaces: workspaces,
		clicks:     clicks,
		cache:      cache,
		keys:       keys,
		meta:       meta,
		log:        log,
		cfg:        cfg,
	}
}

// CreateLink creates one link in workspaceID.
//
// Unknown tags and an unparseable expiresAt come back as validator.Errors;
// a taken key wraps domain.ErrDuplicateKey.
func (s *LinkService) CreateLink(ctx context.Context, workspaceID, userID string, in *validator.CreateLinkInput) (*domain.Link, error) {
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	link, err := s.prepare(ctx, workspaceID, userID, in, nil)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// BulkCreateLinks creates a batch of links in order.
// Reference errors from all elements are collected with "[i]" prefixes
// before anything is written. Keys must also be unique within the batch.
// A write failure returns a *domain.BatchError naming the links already
// stored.
func (s *LinkService) BulkCreateLinks(ctx context.Context, workspaceID, userID string, inputs []*validator.CreateLinkInput) ([]*domain.Link, error) {
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	var (
		verrs    validator.Errors
		prepared = make([]*domain.Link, 0, len(inputs))
		reserved = make(map[string]bool, len(inputs))
	)
	for i, in := range inputs {
		link, err := s.prepare(ctx, workspaceID, userID, in, reserved)
		if err != nil {
			if fieldErrs, ok := validator.AsErrors(err); ok {
				verrs = append(verrs, fieldErrs.WithPrefix(fmt.Sprintf("[%d]", i))...)
				continue
			}
			return nil, fmt.Errorf("link [%d]: %w", i, err)
		}
		prepared = append(prepared, link)
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	for i, link := range prepared {
		if err := s.persist(ctx, link); err != nil {
			return nil, &domain.BatchError{Index: i, Created: prepared[:i:i], Err: err}
		}
	}
	return prepared, nil
}

// prepare turns validated input into a link ready to insert. reserved
// tracks keys already claimed by earlier elements of the same batch.
func (s *LinkService) prepare(ctx context.Context, workspaceID, userID string, in *validator.CreateLinkInput, reserved map[string]bool) (*domain.Link, error) {
	var verrs validator.Errors

	tags, tagErrs, err := s.resolveTags(ctx, workspaceID, in.TagIDs, in.TagNames)
	if err != nil {
		return nil, err
	}
	verrs = append(verrs, tagErrs...)

	expiresAt, fe := parseExpiresAt(in.ExpiresAt)
	if fe != nil {
		verrs = append(verrs, fe)
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	domainName := in.Domain
	if domainName == "" {
		domainName = s.cfg.DefaultDomain
	}

	key, err := s.claimKey(ctx, domainName, in.Key, in.Prefix, reserved)
	if err != nil {
		return nil, err
	}

	link := domain.NewLink(domainName, key, in.URL, workspaceID)
	if userID != "" {
		link.UserID = &userID
	}
	link.Archived = in.Archived
	link.PublicStats = in.PublicStats
	link.Proxy = in.Proxy
	link.Rewrite = in.Rewrite
	link.ExpiresAt = expiresAt
	link.ExpiredURL = in.ExpiredURL
	link.Password = in.Password
	link.Title = in.Title
	link.Description = in.Description
	link.Image = in.Image
	link.IOS = in.IOS
	link.Android = in.Android
	link.Geo = in.Geo
	link.Comments = in.Comments
	link.UTMSource = in.UTMSource
	link.UTMMedium = in.UTMMedium
	link.UTMCampaign = in.UTMCampaign
	link.UTMTerm = in.UTMTerm
	link.UTMContent = in.UTMContent
	link.Tags = tags

	s.fillMetatags(ctx, link)
	return link, nil
}

func (s *LinkService) persist(ctx context.Context, link *domain.Link) error {
	if err := s.links.Create(ctx, link); err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	if err := s.cache.SetLink(ctx, link); err != nil {
		s.log.WithContext(ctx).Warn("failed to cache link", "error", err, "link_id", link.ID)
	}

	metrics.RecordLinkCreated()
	s.log.WithContext(ctx).Info("link created", "link_id", link.ID, "domain", link.Domain, "key", link.Key)
	return nil
}

// claimKey returns key when given and free, otherwise generates one.
func (s *LinkService) claimKey(ctx context.Context, domainName, key, prefix string, reserved map[string]bool) (string, error) {
	if key != "" {
		if reserved[domainName+"/"+key] {
			return "", fmt.Errorf("key %q on %s: %w", key, domainName, domain.ErrDuplicateKey)
		}
		exists, err := s.links.ExistsDomainKey(ctx, domainName, key)
		if err != nil {
			return "", fmt.Errorf("failed to check key: %w", err)
		}
		if exists {
			return "", fmt.Errorf("key %q on %s: %w", key, domainName, domain.ErrDuplicateKey)
		}
		s.reserve(reserved, domainName, key)
		return key, nil
	}

	for i := 0; i < maxKeyAttempts; i++ {
		candidate := s.keys.Generate(prefix)
		if reserved[domainName+"/"+candidate] {
			continue
		}

		exists, err := s.links.ExistsDomainKey(ctx, domainName, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check key: %w", err)
		}
		if !exists {
			s.reserve(reserved, domainName, candidate)
			return candidate, nil
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", maxKeyAttempts, domain.ErrKeyExhausted)
}

func (s *LinkService) reserve(reserved map[string]bool, domainName, key string) {
	if reserved != nil {
		reserved[domainName+"/"+key] = true
	}
}

// resolveTags loads the referenced tags without duplicates, ordered by
// name as the repository returns them when a link is read back. Each
// reference that does not exist in the
// workspace becomes an unknown_reference error on tagIds or tagNames.
func (s *LinkService) resolveTags(ctx context.Context, workspaceID string, ids, names []string) ([]domain.Tag, validator.Errors, error) {
	if len(ids) == 0 && len(names) == 0 {
		return []domain.Tag{}, nil, nil
	}

	found, err := s.tags.FindByIDsOrNames(ctx, workspaceID, ids, names)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve tags: %w", err)
	}

	byID := make(map[string]*domain.Tag, len(found))
	byName := make(map[string]*domain.Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
		byName[t.Name] = t
	}

	var (
		verrs validator.Errors
		tags  = make([]domain.Tag, 0, len(ids)+len(names))
		seen  = make(map[string]bool, len(found))
	)
	add := func(t *domain.Tag) {
		if !seen[t.ID] {
			seen[t.ID] = true
			tags = append(tags, *t)
		}
	}

	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			verrs = append(verrs, validator.UnknownReference("tagIds", id))
			continue
		}
		add(t)
	}
	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			verrs = append(verrs, validator.UnknownReference("tagNames", name))
			continue
		}
		add(t)
	}

	slices.SortFunc(tags, func(a, b domain.Tag) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	return tags, verrs, nil
}

// fillMetatags fills the missing card fields of a proxied link from its
// destination. Fetch failures leave the fields as they are.
func (s *LinkService) fillMetatags(ctx context.Context, link *domain.Link) {
	if s.meta == nil || !link.Proxy {
		return
	}
	if link.Title != nil && link.Description != nil && link.Image != nil {
		return
	}

	tags, err := s.meta.Fetch(ctx, link.URL)
	metrics.RecordMetatagFetch(err == nil)
	if err != nil {
		s.log.WithContext(ctx).Warn("failed to fetch metatags", "error", err, "url", link.URL)
		return
	}

	if link.Title == nil {
		link.Title = tags.Title
	}
	if link.Description == nil {
		link.Description = tags.Description
	}
	if link.Image == nil {
		link.Image = tags.Image
	}
}

// UpdateLink applies a partial update to the link with id. Only fields
// present in the patch change. Moving a link to a taken (domain, key)
// wraps domain.ErrDuplicateKey.
func (s *LinkService) UpdateLink(ctx context.Context, workspaceID, id string, in *validator.UpdateLinkInput) (*domain.Link, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	if link.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("link %s: %w", id, domain.ErrLinkNotFound)
	}

	if in.IsEmpty() {
		return link, nil
	}

	oldDomain, oldKey := link.Domain, link.Key
	var verrs validator.Errors

	if in.TagIDs.Set || in.TagNames.Set {
		tags, tagErrs, err := s.resolveTags(ctx, workspaceID, in.TagIDs.Value, in.TagNames.Value)
		if err != nil {
			return nil, err
		}
		verrs = append(verrs, tagErrs...)
		link.Tags = tags
	}

	if in.ExpiresAt.Set {
		expiresAt, fe := parseExpiresAt(in.ExpiresAt.Value)
		if fe != nil {
			verrs = append(verrs, fe)
		}
		link.ExpiresAt = expiresAt
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	if in.URL.Set {
		link.URL = in.URL.Value
	}
	if in.Domain.Set {
		link.Domain = in.Domain.Value
		if link.Domain == "" {
			link.Domain = s.cfg.DefaultDomain
		}
	}
	if in.Key.Set {
		link.Key = in.Key.Value
	}

	if link.Domain != oldDomain || link.Key != oldKey {
		exists, err := s.links.ExistsDomainKey(ctx, link.Domain, link.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to check key: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("key %q on %s: %w", link.Key, link.Domain, domain.ErrDuplicateKey)
		}
	}

	applyBool(&link.Archived, in.Archived)
	applyBool(&link.PublicStats, in.PublicStats)
	applyBool(&link.Proxy, in.Proxy)
	applyBool(&link.Rewrite, in.Rewrite)

	applyString(&link.ExpiredURL, in.ExpiredURL)
	applyString(&link.Password, in.Password)
	applyString(&link.Title, in.Title)
	applyString(&link.Description, in.Description)
	applyString(&link.Image, in.Image)
	applyString(&link.IOS, in.IOS)
	applyString(&link.Android, in.Android)
	applyString(&link.Comments, in.Comments)
	applyString(&link.UTMSource, in.UTMSource)
	applyString(&link.UTMMedium, in.UTMMedium)
	applyString(&link.UTMCampaign, in.UTMCampaign)
	applyString(&link.UTMTerm, in.UTMTerm)
	applyString(&link.UTMContent, in.UTMContent)
	if in.Geo.Set {
		link.Geo = in.Geo.Value
	}

	s.fillMetatags(ctx, link)
	link.UpdatedAt = time.Now().UTC()

	if err := s.links.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	s.invalidate(ctx, oldDomain, oldKey)
	if link.Domain != oldDomain || link.Key != oldKey {
		s.invalidate(ctx, link.Domain, link.Key)
	}

	metrics.RecordLinkUpdated()
	s.log.WithContext(ctx).Info("link updated", "link_id", link.ID)
	return link, nil
}

func (s *LinkService) invalidate(ctx context.Context, domainName, key string) {
	if err := s.cache.DeleteLink(ctx, domainName, key); err != nil {
		s.log.WithContext(ctx).Warn("failed to invalidate cached link", "error", err, "domain", domainName, "key", key)
	}
}

func applyBool(dst *bool, v validator.Optional[bool]) {
	if v.Set {
		*dst = v.Value
	}
}

func applyString(dst **string, v validator.Optional[*string]) {
	if v.Set {
		*dst = v.Value
	}
}

// ListLinks returns one page of the workspace's links.
func (s *LinkService) ListLinks(ctx context.Context, filter domain.LinkFilter) ([]*domain.Link, error) {
	links, err := s.links.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// CountLinks counts the workspace's links, grouped when groupBy is set.
func (s *LinkService) CountLinks(ctx context.Context, filter domain.LinkFilter, groupBy domain.LinkGroupBy) ([]domain.LinkCount, error) {
	counts, err := s.links.Count(ctx, filter, groupBy)
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	return counts, nil
}

// GetLinkByDomainKey looks up a link of workspaceID by its short-link
// coordinates. Links of other workspaces are reported as not found.
func (s *LinkService) GetLinkByDomainKey(ctx context.Context, workspaceID, domainName, key string) (*domain.Link, error) {
	link, err := s.links.GetByDomainKey(ctx, domainName, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	if link.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("link %s/%s: %w", domainName, key, domain.ErrLinkNotFound)
	}
	return link, nil
}

// ResolveLink finds the link behind a short URL for redirecting.
// Implements the cache-aside pattern; archived links are not found.
func (s *LinkService) ResolveLink(ctx context.Context, domainName, key string) (*domain.Link, error) {
	cached, err := s.cache.GetLink(ctx, domainName, key)
	if err != nil {
		s.log.WithContext(ctx).Warn("cache lookup failed", "error", err, "domain", domainName, "key", key)
	}
	if err == nil && cached != nil {
		return visible(cached)
	}

	link, err := s.links.GetByDomainKey(ctx, domainName, key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve link: %w", err)
	}

	if err := s.cache.SetLink(ctx, link); err != nil {
		s.log.WithContext(ctx).Warn("failed to cache link", "error", err, "link_id", link.ID)
	}
	return visible(link)
}

func visible(link *domain.Link) (*domain.Link, error) {
	if link.Archived {
		return nil, fmt.Errorf("link %s is archived: %w", link.ID, domain.ErrLinkNotFound)
	}
	return link, nil
}

// RecordClick bumps the link's counter and stores the click event.
// The event insert is best effort; the counter is not.
func (s *LinkService) RecordClick(ctx context.Context, link *domain.Link, click *domain.ClickEvent) error {
	if err := s.links.IncrementClicks(ctx, link.ID, click.ClickedAt); err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	if err := s.clicks.Create(ctx, click); err != nil {
		s.log.WithContext(ctx).Warn("failed to record click event", "error", err, "link_id", link.ID)
	}

	metrics.RecordClickRecorded()
	return nil
}
