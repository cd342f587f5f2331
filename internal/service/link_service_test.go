package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metatags"
	"github.com/simplesagar/dub/pkg/logger"
	"github.com/simplesagar/dub/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockLinkRepository is a mock implementation of LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	if args.Error(0) == nil && link.ID == "" {
		link.ID = "link_" + link.Key
	}
	return args.Error(0)
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) GetByDomainKey(ctx context.Context, domainName, key string) (*domain.Link, error) {
	args := m.Called(ctx, domainName, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) Update(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) List(ctx context.Context, filter domain.LinkFilter) ([]*domain.Link, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) Count(ctx context.Context, filter domain.LinkFilter, groupBy domain.LinkGroupBy) ([]domain.LinkCount, error) {
	args := m.Called(ctx, filter, groupBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LinkCount), args.Error(1)
}

func (m *MockLinkRepository) ExistsDomainKey(ctx context.Context, domainName, key string) (bool, error) {
	args := m.Called(ctx, domainName, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, linkID string, at time.Time) error {
	args := m.Called(ctx, linkID, at)
	return args.Error(0)
}

// MockTagRepository is a mock implementation of TagRepository
type MockTagRepository struct {
	mock.Mock
}

func (m *MockTagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	args := m.Called(ctx, tag)
	if args.Error(0) == nil && tag.ID == "" {
		tag.ID = "tag_" + tag.Name
	}
	return args.Error(0)
}

func (m *MockTagRepository) List(ctx context.Context, workspaceID string) ([]*domain.Tag, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tag), args.Error(1)
}

func (m *MockTagRepository) FindByIDsOrNames(ctx context.Context, workspaceID string, ids, names []string) ([]*domain.Tag, error) {
	args := m.Called(ctx, workspaceID, ids, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tag), args.Error(1)
}

// MockWorkspaceRepository is a mock implementation of WorkspaceRepository
type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) Create(ctx context.Context, ws *domain.Workspace) error {
	args := m.Called(ctx, ws)
	if args.Error(0) == nil && ws.ID == "" {
		ws.ID = "ws_" + ws.Slug
	}
	return args.Error(0)
}

func (m *MockWorkspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

// MockClickRepository is a mock implementation of ClickRepository
type MockClickRepository struct {
	mock.Mock
}

func (m *MockClickRepository) Create(ctx context.Context, click *domain.ClickEvent) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

// MockCache is a mock implementation of Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetLink(ctx context.Context, domainName, key string) (*domain.Link, error) {
	args := m.Called(ctx, domainName, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockCache) SetLink(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockCache) DeleteLink(ctx context.Context, domainName, key string) error {
	args := m.Called(ctx, domainName, key)
	return args.Error(0)
}

// MockMetatagFetcher is a mock implementation of MetatagFetcher
type MockMetatagFetcher struct {
	mock.Mock
}

func (m *MockMetatagFetcher) Fetch(ctx context.Context, url string) (*metatags.Metatags, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metatags.Metatags), args.Error(1)
}

// sequenceKeys hands out keys in order, repeating the last one.
type sequenceKeys struct {
	keys []string
	next int
}

func (k *sequenceKeys) Generate(prefix string) string {
	key := k.keys[min(k.next, len(k.keys)-1)]
	k.next++
	return prefix + key
}

type fixture struct {
	links      *MockLinkRepository
	tags       *MockTagRepository
	workspaces *MockWorkspaceRepository
	clicks     *MockClickRepository
	cache      *MockCache
	meta       *MockMetatagFetcher
	keys       *sequenceKeys
	service    *LinkService
}

func newFixture(keys ...string) *fixture {
	if len(keys) == 0 {
		keys = []string{"abc1234"}
	}
	f := &fixture{
		links:      new(MockLinkRepository),
		tags:       new(MockTagRepository),
		workspaces: new(MockWorkspaceRepository),
		clicks:     new(MockClickRepository),
		cache:      new(MockCache),
		meta:       new(MockMetatagFetcher),
		keys:       &sequenceKeys{keys: keys},
	}
	f.service = NewLinkService(f.links, f.tags, f.workspaces, f.clicks, f.cache, f.keys, f.meta,
		logger.Discard(), LinkConfig{DefaultDomain: "dub.sh", KeyLength: 7})
	return f
}

func (f *fixture) workspaceExists(ctx context.Context, id string) {
	ws := domain.NewWorkspace("Acme", "acme")
	ws.ID = id
	f.workspaces.On("GetByID", ctx, id).Return(ws, nil)
}

func newInput(url string) *validator.CreateLinkInput {
	return &validator.CreateLinkInput{URL: url, TagIDs: []string{}, TagNames: []string{}}
}

func strPtr(s string) *string { return &s }

// ==================== TESTS ====================

func TestCreateLink_Defaults(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "abc1234").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	// Act
	link, err := f.service.CreateLink(ctx, "ws_1", "", newInput("https://example.com"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "dub.sh", link.Domain)
	assert.Equal(t, "abc1234", link.Key)
	assert.Equal(t, "https://example.com", link.URL)
	assert.Equal(t, "ws_1", link.WorkspaceID)
	assert.NotNil(t, link.Tags)
	assert.Empty(t, link.Tags)
	assert.Nil(t, link.UserID)
	assert.Nil(t, link.ExpiresAt)
	assert.Nil(t, link.Geo)
	f.links.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.tags.AssertNotCalled(t, "FindByIDsOrNames", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.meta.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestCreateLink_CustomKeyAndPrefixIgnoredForGivenKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "acme.link", "launch").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	in := newInput("https://example.com")
	in.Domain = "acme.link"
	in.Key = "launch"
	in.Prefix = "x/"

	link, err := f.service.CreateLink(ctx, "ws_1", "user_1", in)

	require.NoError(t, err)
	assert.Equal(t, "launch", link.Key)
	require.NotNil(t, link.UserID)
	assert.Equal(t, "user_1", *link.UserID)
	assert.Equal(t, 0, f.keys.next)
}

func TestCreateLink_GeneratedKeyUsesPrefix(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "blog/abc1234").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	in := newInput("https://example.com")
	in.Prefix = "blog/"

	link, err := f.service.CreateLink(ctx, "ws_1", "", in)

	require.NoError(t, err)
	assert.Equal(t, "blog/abc1234", link.Key)
}

func TestCreateLink_WorkspaceNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaces.On("GetByID", ctx, "ws_missing").Return(nil, domain.ErrWorkspaceNotFound)

	link, err := f.service.CreateLink(ctx, "ws_missing", "", newInput("https://example.com"))

	assert.Nil(t, link)
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	f.links.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateLink_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "taken").Return(true, nil)

	in := newInput("https://example.com")
	in.Key = "taken"

	link, err := f.service.CreateLink(ctx, "ws_1", "", in)

	assert.Nil(t, link)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	f.links.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateLink_RetriesOnKeyCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture("first", "second")
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "first").Return(true, nil)
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "second").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	link, err := f.service.CreateLink(ctx, "ws_1", "", newInput("https://example.com"))

	require.NoError(t, err)
	assert.Equal(t, "second", link.Key)
	f.links.AssertNumberOfCalls(t, "ExistsDomainKey", 2)
}

func TestCreateLink_KeyExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture("same")
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "same").Return(true, nil)

	_, err := f.service.CreateLink(ctx, "ws_1", "", newInput("https://example.com"))

	assert.ErrorIs(t, err, domain.ErrKeyExhausted)
	f.links.AssertNumberOfCalls(t, "ExistsDomainKey", maxKeyAttempts)
}

func TestCreateLink_UnknownTags(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")

	in := newInput("https://example.com")
	in.TagIDs = []string{"t1", "t2"}
	in.TagNames = []string{"news"}

	f.tags.On("FindByIDsOrNames", ctx, "ws_1", in.TagIDs, in.TagNames).
		Return([]*domain.Tag{{ID: "t1", Name: "promo"}}, nil)

	// Act
	link, err := f.service.CreateLink(ctx, "ws_1", "", in)

	// Assert
	assert.Nil(t, link)
	verrs, ok := validator.AsErrors(err)
	require.True(t, ok)
	require.Len(t, verrs, 2)
	assert.Equal(t, "tagIds", verrs[0].Field)
	assert.Equal(t, "t2", verrs[0].Value)
	assert.Equal(t, validator.CodeUnknownReference, verrs[0].Code)
	assert.Equal(t, "tagNames", verrs[1].Field)
	assert.Equal(t, "news", verrs[1].Value)
	f.links.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateLink_OrdersTagsByName(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "abc1234").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	in := newInput("https://example.com")
	in.TagIDs = []string{"t2"}
	in.TagNames = []string{"gamma", "alpha", "beta"}

	// "beta" is t2 again; tags come back in the same order a read returns
	f.tags.On("FindByIDsOrNames", ctx, "ws_1", in.TagIDs, in.TagNames).Return([]*domain.Tag{
		{ID: "t3", Name: "gamma"},
		{ID: "t1", Name: "alpha"},
		{ID: "t2", Name: "beta"},
	}, nil)

	link, err := f.service.CreateLink(ctx, "ws_1", "", in)

	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, link.TagIDs())
}

func TestCreateLink_InvalidExpiresAt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")

	in := newInput("https://example.com")
	in.ExpiresAt = strPtr("next tuesday")

	_, err := f.service.CreateLink(ctx, "ws_1", "", in)

	verrs, ok := validator.AsErrors(err)
	require.True(t, ok)
	require.NotNil(t, verrs.Field("expiresAt"))
	assert.Equal(t, validator.CodeInvalidType, verrs.Field("expiresAt").Code)
}

func TestCreateLink_ProxyFillsMissingMetatags(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "abc1234").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.meta.On("Fetch", ctx, "https://example.com").Return(&metatags.Metatags{
		Title:       strPtr("Theirs"),
		Description: strPtr("Scraped description"),
	}, nil)

	in := newInput("https://example.com")
	in.Proxy = true
	in.Title = strPtr("Mine")

	// Act
	link, err := f.service.CreateLink(ctx, "ws_1", "", in)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Mine", *link.Title)
	assert.Equal(t, "Scraped description", *link.Description)
	assert.Nil(t, link.Image)
	f.meta.AssertExpectations(t)
}

func TestCreateLink_ProxyWithAllMetatagsSkipsFetch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "abc1234").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	in := newInput("https://example.com")
	in.Proxy = true
	in.Title = strPtr("t")
	in.Description = strPtr("d")
	in.Image = strPtr("https://example.com/i.png")

	_, err := f.service.CreateLink(ctx, "ws_1", "", in)

	require.NoError(t, err)
	f.meta.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestCreateLink_MetatagAndCacheFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "abc1234").Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(errors.New("redis down"))
	f.meta.On("Fetch", ctx, "https://example.com").Return(nil, errors.New("timeout"))

	in := newInput("https://example.com")
	in.Proxy = true

	link, err := f.service.CreateLink(ctx, "ws_1", "", in)

	require.NoError(t, err)
	assert.Nil(t, link.Title)
	assert.NotEmpty(t, link.ID)
}

func TestBulkCreateLinks_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture("k1", "k2")
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", mock.Anything).Return(false, nil)
	f.links.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	links, err := f.service.BulkCreateLinks(ctx, "ws_1", "", []*validator.CreateLinkInput{
		newInput("https://a.com"),
		newInput("https://b.com"),
	})

	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://a.com", links[0].URL)
	assert.Equal(t, "k1", links[0].Key)
	assert.Equal(t, "k2", links[1].Key)
	f.links.AssertNumberOfCalls(t, "Create", 2)
}

func TestBulkCreateLinks_AggregatesReferenceErrors(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture("k1", "k2", "k3")
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", mock.Anything).Return(false, nil)

	bad := newInput("https://b.com")
	bad.TagNames = []string{"ghost"}
	f.tags.On("FindByIDsOrNames", ctx, "ws_1", []string{}, []string{"ghost"}).Return([]*domain.Tag{}, nil)

	late := newInput("https://c.com")
	late.ExpiresAt = strPtr("soon")

	// Act
	links, err := f.service.BulkCreateLinks(ctx, "ws_1", "", []*validator.CreateLinkInput{
		newInput("https://a.com"), bad, late,
	})

	// Assert
	assert.Nil(t, links)
	verrs, ok := validator.AsErrors(err)
	require.True(t, ok)
	require.Len(t, verrs, 2)
	assert.Equal(t, "[1].tagNames", verrs[0].Field)
	assert.Equal(t, "[2].expiresAt", verrs[1].Field)
	f.links.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBulkCreateLinks_DuplicateKeyWithinBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "same").Return(false, nil)

	first := newInput("https://a.com")
	first.Key = "same"
	second := newInput("https://b.com")
	second.Key = "same"

	_, err := f.service.BulkCreateLinks(ctx, "ws_1", "", []*validator.CreateLinkInput{first, second})

	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "[1]")
	f.links.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBulkCreateLinks_ReportsLinksWrittenBeforeFailure(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture("k1", "k2", "k3")
	f.workspaceExists(ctx, "ws_1")
	f.links.On("ExistsDomainKey", ctx, "dub.sh", mock.Anything).Return(false, nil)
	f.links.On("Create", ctx, mock.MatchedBy(func(l *domain.Link) bool { return l.Key == "k1" })).Return(nil)
	// another writer took k2 between the existence check and the insert
	f.links.On("Create", ctx, mock.MatchedBy(func(l *domain.Link) bool { return l.Key == "k2" })).
		Return(domain.ErrDuplicateKey)
	f.cache.On("SetLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	// Act
	links, err := f.service.BulkCreateLinks(ctx, "ws_1", "", []*validator.CreateLinkInput{
		newInput("https://a.com"),
		newInput("https://b.com"),
		newInput("https://c.com"),
	})

	// Assert
	assert.Nil(t, links)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	var batchErr *domain.BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.Index)
	require.Len(t, batchErr.Created, 1)
	assert.Equal(t, "k1", batchErr.Created[0].Key)
	assert.Equal(t, "link_k1", batchErr.Created[0].ID)
	assert.Contains(t, err.Error(), "link [1]")
	f.links.AssertNumberOfCalls(t, "Create", 2)
}

func existingLink() *domain.Link {
	link := domain.NewLink("dub.sh", "old", "https://old.com", "ws_1")
	link.ID = "link_1"
	link.Title = strPtr("Old title")
	return link
}

func TestUpdateLink_AppliesOnlySetFields(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	link := existingLink()
	created := link.UpdatedAt
	f.links.On("GetByID", ctx, "link_1").Return(link, nil)
	f.links.On("Update", ctx, link).Return(nil)
	f.cache.On("DeleteLink", ctx, "dub.sh", "old").Return(nil)

	patch := &validator.UpdateLinkInput{
		URL:      validator.Some("https://new.com"),
		Archived: validator.Some(true),
		Title:    validator.Some[*string](nil),
		Geo:      validator.Some(map[domain.CountryCode]string{"FR": "https://fr.example.com"}),
	}

	// Act
	updated, err := f.service.UpdateLink(ctx, "ws_1", "link_1", patch)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://new.com", updated.URL)
	assert.True(t, updated.Archived)
	assert.Nil(t, updated.Title)
	assert.Equal(t, "https://fr.example.com", updated.Geo["FR"])
	assert.Equal(t, "old", updated.Key)
	assert.False(t, updated.UpdatedAt.Before(created))
	f.links.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.links.AssertNotCalled(t, "ExistsDomainKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateLink_KeyChangeInvalidatesBothCacheEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	link := existingLink()
	f.links.On("GetByID", ctx, "link_1").Return(link, nil)
	f.links.On("ExistsDomainKey", ctx, "dub.sh", "new").Return(false, nil)
	f.links.On("Update", ctx, link).Return(nil)
	f.cache.On("DeleteLink", ctx, "dub.sh", "old").Return(nil)
	f.cache.On("DeleteLink", ctx, "dub.sh", "new").Return(nil)

	updated, err := f.service.UpdateLink(ctx, "ws_1", "link_1", &validator.UpdateLinkInput{Key: validator.Some("new")})

	require.NoError(t, err)
	assert.Equal(t, "new", updated.Key)
	f.cache.AssertExpectations(t)
}

func TestUpdateLink_KeyTaken(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.links.On("GetByID", ctx, "link_1").Return(existingLink(), nil)
	f.links.On("ExistsDomainKey", ctx, "acme.link", "old").Return(true, nil)

	_, err := f.service.UpdateLink(ctx, "ws_1", "link_1", &validator.UpdateLinkInput{Domain: validator.Some("acme.link")})

	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	f.links.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateLink_ReplacesTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	link := existingLink()
	link.Tags = []domain.Tag{{ID: "t_old", Name: "old"}}
	f.links.On("GetByID", ctx, "link_1").Return(link, nil)
	f.tags.On("FindByIDsOrNames", ctx, "ws_1", []string{"t_new"}, mock.Anything).
		Return([]*domain.Tag{{ID: "t_new", Name: "new"}}, nil)
	f.links.On("Update", ctx, link).Return(nil)
	f.cache.On("DeleteLink", ctx, "dub.sh", "old").Return(nil)

	updated, err := f.service.UpdateLink(ctx, "ws_1", "link_1", &validator.UpdateLinkInput{TagIDs: validator.Some([]string{"t_new"})})

	require.NoError(t, err)
	assert.Equal(t, []string{"t_new"}, updated.TagIDs())
}

func TestUpdateLink_OtherWorkspaceIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.links.On("GetByID", ctx, "link_1").Return(existingLink(), nil)

	_, err := f.service.UpdateLink(ctx, "ws_other", "link_1", &validator.UpdateLinkInput{Archived: validator.Some(true)})

	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestUpdateLink_EmptyPatchIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	link := existingLink()
	f.links.On("GetByID", ctx, "link_1").Return(link, nil)

	updated, err := f.service.UpdateLink(ctx, "ws_1", "link_1", &validator.UpdateLinkInput{})

	require.NoError(t, err)
	assert.Same(t, link, updated)
	f.links.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestResolveLink_CacheHit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	cached := existingLink()
	f.cache.On("GetLink", ctx, "dub.sh", "old").Return(cached, nil)

	// Act
	link, err := f.service.ResolveLink(ctx, "dub.sh", "old")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, cached, link)
	// Database should NOT be called (cache hit)
	f.links.AssertNotCalled(t, "GetByDomainKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveLink_CacheMiss_DatabaseHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	stored := existingLink()
	f.cache.On("GetLink", ctx, "dub.sh", "old").Return(nil, nil)
	f.links.On("GetByDomainKey", ctx, "dub.sh", "old").Return(stored, nil)
	f.cache.On("SetLink", ctx, stored).Return(nil)

	link, err := f.service.ResolveLink(ctx, "dub.sh", "old")

	require.NoError(t, err)
	assert.Equal(t, stored, link)
	f.cache.AssertExpectations(t)
	f.links.AssertExpectations(t)
}

func TestResolveLink_ArchivedIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	archived := existingLink()
	archived.Archived = true
	f.cache.On("GetLink", ctx, "dub.sh", "old").Return(archived, nil)

	link, err := f.service.ResolveLink(ctx, "dub.sh", "old")

	assert.Nil(t, link)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestResolveLink_Missing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.cache.On("GetLink", ctx, "dub.sh", "nope").Return(nil, nil)
	f.links.On("GetByDomainKey", ctx, "dub.sh", "nope").Return(nil, domain.ErrLinkNotFound)

	_, err := f.service.ResolveLink(ctx, "dub.sh", "nope")

	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	f.cache.AssertNotCalled(t, "SetLink", mock.Anything, mock.Anything)
}

func TestGetLinkByDomainKey_ScopedToWorkspace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.links.On("GetByDomainKey", ctx, "dub.sh", "old").Return(existingLink(), nil)

	found, err := f.service.GetLinkByDomainKey(ctx, "ws_1", "dub.sh", "old")
	require.NoError(t, err)
	assert.Equal(t, "link_1", found.ID)

	_, err = f.service.GetLinkByDomainKey(ctx, "ws_2", "dub.sh", "old")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestListAndCountLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	filter := domain.LinkFilter{WorkspaceID: "ws_1", Sort: domain.SortClicks, Page: 2}
	f.links.On("List", ctx, filter).Return([]*domain.Link{existingLink()}, nil)
	f.links.On("Count", ctx, filter, domain.GroupByDomain).Return([]domain.LinkCount{{Group: "dub.sh", Count: 3}}, nil)

	links, err := f.service.ListLinks(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	counts, err := f.service.CountLinks(ctx, filter, domain.GroupByDomain)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[0].Count)
}

func TestRecordClick_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture()
	link := existingLink()
	click := domain.NewClickEvent(link.ID, domain.TargetDefault, "Mozilla/5.0", "https://google.com")
	f.links.On("IncrementClicks", ctx, "link_1", click.ClickedAt).Return(nil)
	f.clicks.On("Create", ctx, click).Return(nil)

	// Act
	err := f.service.RecordClick(ctx, link, click)

	// Assert
	require.NoError(t, err)
	f.links.AssertExpectations(t)
	f.clicks.AssertExpectations(t)
}

func TestRecordClick_EventFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	link := existingLink()
	click := domain.NewClickEvent(link.ID, domain.TargetGeo, "", "")
	f.links.On("IncrementClicks", ctx, "link_1", click.ClickedAt).Return(nil)
	f.clicks.On("Create", ctx, click).Return(errors.New("insert failed"))

	assert.NoError(t, f.service.RecordClick(ctx, link, click))
}

func TestRecordClick_CounterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	link := existingLink()
	click := domain.NewClickEvent(link.ID, domain.TargetDefault, "", "")
	f.links.On("IncrementClicks", ctx, "link_1", click.ClickedAt).Return(errors.New("db down"))

	err := f.service.RecordClick(ctx, link, click)

	assert.Error(t, err)
	f.clicks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ==================== TABLE-DRIVEN TESTS ====================

func TestParseExpiresAt(t *testing.T) {
	tests := []struct {
		name    string
		input   *string
		want    *time.Time
		wantErr bool
	}{
		{name: "Absent", input: nil},
		{name: "Blank", input: strPtr("  ")},
		{
			name:  "RFC 3339 with offset",
			input: strPtr("2030-01-02T03:04:05+02:00"),
			want:  ptrTime(time.Date(2030, 1, 2, 1, 4, 5, 0, time.UTC)),
		},
		{
			name:  "Date only",
			input: strPtr("2030-06-15"),
			want:  ptrTime(time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)),
		},
		{name: "Garbage", input: strPtr("tomorrow"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fe := parseExpiresAt(tt.input)
			if tt.wantErr {
				require.NotNil(t, fe)
				assert.Equal(t, "expiresAt", fe.Field)
				return
			}
			require.Nil(t, fe)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got))
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestRandomKeys_Generate(t *testing.T) {
	g := RandomKeys{Length: 7}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key := g.Generate("go/")
		require.True(t, strings.HasPrefix(key, "go/"))
		body := strings.TrimPrefix(key, "go/")
		assert.Len(t, body, 7)
		for _, c := range body {
			assert.Contains(t, keyCharset, string(c))
		}
		seen[key] = true
	}
	assert.Greater(t, len(seen), 45)
}
