package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/pkg/logger"
	"github.com/simplesagar/dub/pkg/validator"
)

// maxBodyBytes caps API request bodies. A full bulk batch fits easily.
const maxBodyBytes = 1 << 20

// LinkService interface defines the service methods needed by the handler
// Using an interface instead of concrete type allows for easy mocking in tests
type LinkService interface {
	CreateLink(ctx context.Context, workspaceID, userID string, in *validator.CreateLinkInput) (*domain.Link, error)
	BulkCreateLinks(ctx context.Context, workspaceID, userID string, in []*validator.CreateLinkInput) ([]*domain.Link, error)
	UpdateLink(ctx context.Context, workspaceID, id string, in *validator.UpdateLinkInput) (*domain.Link, error)
	ListLinks(ctx context.Context, filter domain.LinkFilter) ([]*domain.Link, error)
	CountLinks(ctx context.Context, filter domain.LinkFilter, groupBy domain.LinkGroupBy) ([]domain.LinkCount, error)
	GetLinkByDomainKey(ctx context.Context, workspaceID, domainName, key string) (*domain.Link, error)
	ResolveLink(ctx context.Context, domainName, key string) (*domain.Link, error)
	RecordClick(ctx context.Context, link *domain.Link, click *domain.ClickEvent) error
}

// TagService interface defines the tag operations used by the handler
type TagService interface {
	CreateTag(ctx context.Context, workspaceID string, in *validator.CreateTagInput) (*domain.Tag, error)
	ListTags(ctx context.Context, workspaceID string) ([]*domain.Tag, error)
}

// WorkspaceService interface defines the workspace operations used by the handler
type WorkspaceService interface {
	CreateWorkspace(ctx context.Context, in *validator.CreateWorkspaceInput) (*domain.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error)
}

// CountryResolver finds the country a request comes from.
type CountryResolver interface {
	Country(r *http.Request) domain.CountryCode
}

// Config holds the handler's presentation settings.
type Config struct {
	// QREndpoint is the absolute URL of the QR endpoint that qrCode
	// fields point at.
	QREndpoint string
	// DefaultDomain serves redirects for hosts that are not link domains
	// (localhost, bare IPs).
	DefaultDomain string
	// ClickTimeout bounds background click recording.
	ClickTimeout time.Duration
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	links      LinkService
	tags       TagService
	workspaces WorkspaceService
	geo        CountryResolver
	logger     *logger.Logger
	cfg        Config

	now func() time.Time
	// async runs background work; tests replace it to run inline.
	async func(func())
}

// NewHandler creates a new HTTP handler
func NewHandler(links LinkService, tags TagService, workspaces WorkspaceService, geo CountryResolver, log *logger.Logger, cfg Config) *Handler {
	if cfg.ClickTimeout <= 0 {
		cfg.ClickTimeout = 5 * time.Second
	}
	return &Handler{
		links:      links,
		tags:       tags,
		workspaces: workspaces,
		geo:        geo,
		logger:     log,
		cfg:        cfg,
		now:        time.Now,
		async:      func(f func()) { go f() },
	}
}

// readBody reads the request body, answering 400/413 itself on failure.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "Request body too large")
			return nil, false
		}
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}

// workspaceID resolves ?workspaceId= (or ?projectId=), answering 422
// itself when neither is present.
func (h *Handler) workspaceID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	id, err := validator.ValidateWorkspaceRef(r.URL.Query())
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), operation, err)
		return "", false
	}
	return id, true
}

// userID is the acting user as forwarded by the auth proxy in front of
// the API, if any.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

// CreateLink handles POST /api/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	const op = "createLink"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	in, err := validator.ValidateCreate(body)
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	link, err := h.links.CreateLink(r.Context(), wsID, userID(r), in)
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusCreated, newLinkResponse(link, h.cfg.QREndpoint), "Link created successfully")
}

// BulkCreateLinks handles POST /api/links/bulk
func (h *Handler) BulkCreateLinks(w http.ResponseWriter, r *http.Request) {
	const op = "bulkCreateLinks"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	inputs, err := validator.ValidateBulkCreate(body)
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	links, err := h.links.BulkCreateLinks(r.Context(), wsID, userID(r), inputs)
	if err != nil {
		var batchErr *domain.BatchError
		if errors.As(err, &batchErr) && len(batchErr.Created) > 0 {
			respondBatchError(w, h.logger.WithContext(r.Context()), op, batchErr, h.cfg.QREndpoint)
			return
		}
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusCreated, newLinkResponses(links, h.cfg.QREndpoint), "Links created successfully")
}

// UpdateLink handles PATCH and PUT /api/links/{id}
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	const op = "updateLink"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	in, err := validator.ValidateUpdate(body)
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	link, err := h.links.UpdateLink(r.Context(), wsID, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusOK, newLinkResponse(link, h.cfg.QREndpoint), "Link updated successfully")
}

// ListLinks handles GET /api/links
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	const op = "listLinks"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}

	q, err := validator.ValidateLinksQuery(r.URL.Query())
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	links, err := h.links.ListLinks(r.Context(), q.Filter(wsID))
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusOK, newLinkResponses(links, h.cfg.QREndpoint), "")
}

// CountLinks handles GET /api/links/count
func (h *Handler) CountLinks(w http.ResponseWriter, r *http.Request) {
	const op = "countLinks"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}

	q, err := validator.ValidateLinksCountQuery(r.URL.Query())
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	counts, err := h.links.CountLinks(r.Context(), q.Filter(wsID), q.GroupBy)
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusOK, countResponse(q.GroupBy, counts), "")
}

// LinkInfo handles GET /api/links/info?domain=&key=
func (h *Handler) LinkInfo(w http.ResponseWriter, r *http.Request) {
	const op = "linkInfo"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}

	dk, err := validator.ValidateDomainKey(r.URL.Query())
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	link, err := h.links.GetLinkByDomainKey(r.Context(), wsID, dk.Domain, dk.Key)
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusOK, newLinkResponse(link, h.cfg.QREndpoint), "")
}

// CreateTag handles POST /api/tags
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	const op = "createTag"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	in, err := validator.ValidateCreateTag(body)
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	tag, err := h.tags.CreateTag(r.Context(), wsID, in)
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusCreated, tag, "Tag created successfully")
}

// ListTags handles GET /api/tags
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	const op = "listTags"

	wsID, ok := h.workspaceID(w, r, op)
	if !ok {
		return
	}

	tags, err := h.tags.ListTags(r.Context(), wsID)
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}

	respondSuccess(w, http.StatusOK, tags, "")
}

// CreateWorkspace handles POST /api/workspaces
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	const op = "createWorkspace"

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	in, err := validator.ValidateCreateWorkspace(body)
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}

	ws, err := h.workspaces.CreateWorkspace(r.Context(), in)
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), op, err)
		return
	}

	respondSuccess(w, http.StatusCreated, ws, "Workspace created successfully")
}

// GetWorkspace handles GET /api/workspaces/{id}
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaces.GetWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger.WithContext(r.Context()), "getWorkspace", err)
		return
	}

	respondSuccess(w, http.StatusOK, ws, "")
}

// HealthCheck handles GET /health/live
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   h.now().Format(time.RFC3339),
	})
}
