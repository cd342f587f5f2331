package domain

import (
	"crypto/subtle"
	"net/url"
	"time"
)

// Link maps a (domain, key) pair to a destination URL.
// Nullable columns are pointers; a nil Geo map is stored as NULL.
type Link struct {
	ID          string     `json:"id"`
	Domain      string     `json:"domain"`
	Key         string     `json:"key"`
	URL         string     `json:"url"`
	Archived    bool       `json:"archived"`
	PublicStats bool       `json:"publicStats"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	ExpiredURL  *string    `json:"expiredUrl"`
	Password    *string    `json:"password"`

	// Proxy gates whether Title, Description and Image are used for the
	// social card instead of the destination's own metadata.
	Proxy       bool    `json:"proxy"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`

	Rewrite bool                   `json:"rewrite"`
	IOS     *string                `json:"ios"`
	Android *string                `json:"android"`
	Geo     map[CountryCode]string `json:"geo"`

	UTMSource   *string `json:"utm_source"`
	UTMMedium   *string `json:"utm_medium"`
	UTMCampaign *string `json:"utm_campaign"`
	UTMTerm     *string `json:"utm_term"`
	UTMContent  *string `json:"utm_content"`

	Tags     []Tag   `json:"tags"`
	Comments *string `json:"comments"`

	// Clicks and LastClicked are only written by click recording.
	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"lastClicked"`

	UserID      *string   `json:"userId"`
	WorkspaceID string    `json:"workspaceId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewLink creates a link with every optional field at its default.
func NewLink(domain, key, destination, workspaceID string) *Link {
	now := time.Now().UTC()
	return &Link{
		Domain:      domain,
		Key:         key,
		URL:         destination,
		WorkspaceID: workspaceID,
		Tags:        []Tag{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ShortLink returns the public short URL, https://{domain}/{key}.
func (l *Link) ShortLink() string {
	return ShortLink(l.Domain, l.Key)
}

// ShortLink builds https://{domain}/{key} without a Link value.
func ShortLink(domain, key string) string {
	u := url.URL{Scheme: "https", Host: domain, Path: "/" + key}
	return u.String()
}

// QRCode returns the QR endpoint URL parameterized by the short link.
func (l *Link) QRCode(endpoint string) string {
	return endpoint + "?url=" + url.QueryEscape(l.ShortLink())
}

// TagIDs returns the IDs of the resolved tags in order.
func (l *Link) TagIDs() []string {
	ids := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// IsExpired reports whether the link has passed its expiry at now.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// Redirect targets, also used as metric labels.
const (
	TargetDefault = "default"
	TargetExpired = "expired"
	TargetIOS     = "ios"
	TargetAndroid = "android"
	TargetGeo     = "geo"
)

// Visitor describes the client following a short link.
type Visitor struct {
	OS      string // "ios", "android" or empty
	Country CountryCode
}

// Destination picks where a visitor should be sent.
// Order: expiry, device targeting, geo targeting, default URL.
// An expired link with no expiredUrl returns ErrLinkExpired.
func (l *Link) Destination(now time.Time, v Visitor) (string, string, error) {
	if l.IsExpired(now) {
		if l.ExpiredURL != nil && *l.ExpiredURL != "" {
			return *l.ExpiredURL, TargetExpired, nil
		}
		return "", TargetExpired, ErrLinkExpired
	}

	switch {
	case v.OS == "ios" && l.IOS != nil && *l.IOS != "":
		return *l.IOS, TargetIOS, nil
	case v.OS == "android" && l.Android != nil && *l.Android != "":
		return *l.Android, TargetAndroid, nil
	}

	if v.Country != "" && l.Geo != nil {
		if target, ok := l.Geo[v.Country]; ok && target != "" {
			return target, TargetGeo, nil
		}
	}

	return l.URL, TargetDefault, nil
}

// CheckPassword reports whether the supplied password unlocks the link.
// Links without a password are always unlocked. The comparison takes
// the same time wherever the first mismatch is.
func (l *Link) CheckPassword(supplied string) bool {
	if l.Password == nil || *l.Password == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(*l.Password)) == 1
}

// LinkSort is the ordering column for link listings. Listings are always
// descending.
type LinkSort string

const (
	SortCreatedAt   LinkSort = "createdAt"
	SortClicks      LinkSort = "clicks"
	SortLastClicked LinkSort = "lastClicked"
)

// LinkGroupBy is the grouping column for link counts.
type LinkGroupBy string

const (
	GroupByNone   LinkGroupBy = ""
	GroupByDomain LinkGroupBy = "domain"
	GroupByTagID  LinkGroupBy = "tagId"
)

// PageSize is the fixed number of links per listing page.
const PageSize = 100

// LinkFilter selects links for listing and counting.
type LinkFilter struct {
	WorkspaceID  string
	Domain       string
	TagIDs       []string
	TagNames     []string
	Search       string
	UserID       string
	ShowArchived bool
	WithTags     bool
	Sort         LinkSort
	Page         int
}

// Offset returns the row offset for the filter's page (1-based, 0 treated
// as the first page).
func (f LinkFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * PageSize
}

// LinkCount is one row of a grouped link count.
type LinkCount struct {
	Group string
	Count int64
}
