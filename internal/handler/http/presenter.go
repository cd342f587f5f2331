package http

import (
	"time"

	"github.com/simplesagar/dub/internal/domain"
)

// LinkResponse is the public representation of a link. Nullable fields
// are always present, as null when unset.
type LinkResponse struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
	Key    string `json:"key"`
	URL    string `json:"url"`

	Archived   bool       `json:"archived"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	ExpiredURL *string    `json:"expiredUrl"`
	Password   *string    `json:"password"`

	Proxy       bool    `json:"proxy"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`

	Rewrite bool                          `json:"rewrite"`
	IOS     *string                       `json:"ios"`
	Android *string                       `json:"android"`
	Geo     map[domain.CountryCode]string `json:"geo"`

	PublicStats bool `json:"publicStats"`

	// TagID is the first tag, kept for clients of the single-tag API.
	TagID    *string      `json:"tagId"`
	Tags     []domain.Tag `json:"tags"`
	Comments *string      `json:"comments"`

	ShortLink string `json:"shortLink"`
	QRCode    string `json:"qrCode"`

	UTMSource   *string `json:"utm_source"`
	UTMMedium   *string `json:"utm_medium"`
	UTMCampaign *string `json:"utm_campaign"`
	UTMTerm     *string `json:"utm_term"`
	UTMContent  *string `json:"utm_content"`

	UserID      *string `json:"userId"`
	WorkspaceID string  `json:"workspaceId"`
	// ProjectID mirrors WorkspaceID for older clients.
	ProjectID string `json:"projectId"`

	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"lastClicked"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func newLinkResponse(link *domain.Link, qrEndpoint string) LinkResponse {
	tags := link.Tags
	if tags == nil {
		tags = []domain.Tag{}
	}

	var tagID *string
	if len(tags) > 0 {
		id := tags[0].ID
		tagID = &id
	}

	return LinkResponse{
		ID:          link.ID,
		Domain:      link.Domain,
		Key:         link.Key,
		URL:         link.URL,
		Archived:    link.Archived,
		ExpiresAt:   link.ExpiresAt,
		ExpiredURL:  link.ExpiredURL,
		Password:    link.Password,
		Proxy:       link.Proxy,
		Title:       link.Title,
		Description: link.Description,
		Image:       link.Image,
		Rewrite:     link.Rewrite,
		IOS:         link.IOS,
		Android:     link.Android,
		Geo:         link.Geo,
		PublicStats: link.PublicStats,
		TagID:       tagID,
		Tags:        tags,
		Comments:    link.Comments,
		ShortLink:   link.ShortLink(),
		QRCode:      link.QRCode(qrEndpoint),
		UTMSource:   link.UTMSource,
		UTMMedium:   link.UTMMedium,
		UTMCampaign: link.UTMCampaign,
		UTMTerm:     link.UTMTerm,
		UTMContent:  link.UTMContent,
		UserID:      link.UserID,
		WorkspaceID: link.WorkspaceID,
		ProjectID:   link.WorkspaceID,
		Clicks:      link.Clicks,
		LastClicked: link.LastClicked,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

func newLinkResponses(links []*domain.Link, qrEndpoint string) []LinkResponse {
	out := make([]LinkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, newLinkResponse(link, qrEndpoint))
	}
	return out
}

// countResponse renders grouped counts as [{"domain": "dub.sh", "_count": 3}].
func countResponse(groupBy domain.LinkGroupBy, counts []domain.LinkCount) any {
	if groupBy == domain.GroupByNone {
		var total int64
		for _, c := range counts {
			total += c.Count
		}
		return total
	}

	out := make([]map[string]any, 0, len(counts))
	for _, c := range counts {
		out = append(out, map[string]any{
			string(groupBy): c.Group,
			"_count":        c.Count,
		})
	}
	return out
}
