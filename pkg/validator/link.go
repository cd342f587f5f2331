package validator

import (
	"github.com/simplesagar/dub/internal/domain"
)

// CreateLinkInput is a validated create request. Every optional field has
// its default: booleans false, nullable fields nil, tag lists empty.
// Domain and Key may be empty; the service fills the default domain and
// generates a key.
type CreateLinkInput struct {
	URL    string
	Domain string
	Key    string
	Prefix string

	Archived    bool
	PublicStats bool
	Proxy       bool
	Rewrite     bool

	// TagIDs is the merged tagId + tagIds list.
	TagIDs   []string
	TagNames []string

	ExpiresAt   *string
	ExpiredURL  *string
	Password    *string
	Title       *string
	Description *string
	Image       *string
	IOS         *string
	Android     *string
	Geo         map[domain.CountryCode]string
	Comments    *string

	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	UTMTerm     *string
	UTMContent  *string
}

// UpdateLinkInput is a validated partial update. Only fields with Set
// true change.
type UpdateLinkInput struct {
	URL    Optional[string]
	Domain Optional[string]
	Key    Optional[string]

	Archived    Optional[bool]
	PublicStats Optional[bool]
	Proxy       Optional[bool]
	Rewrite     Optional[bool]

	TagIDs   Optional[[]string]
	TagNames Optional[[]string]

	ExpiresAt   Optional[*string]
	ExpiredURL  Optional[*string]
	Password    Optional[*string]
	Title       Optional[*string]
	Description Optional[*string]
	Image       Optional[*string]
	IOS         Optional[*string]
	Android     Optional[*string]
	Geo         Optional[map[domain.CountryCode]string]
	Comments    Optional[*string]

	UTMSource   Optional[*string]
	UTMMedium   Optional[*string]
	UTMCampaign Optional[*string]
	UTMTerm     Optional[*string]
	UTMContent  Optional[*string]
}

// IsEmpty reports whether the patch changes nothing.
func (in *UpdateLinkInput) IsEmpty() bool {
	set := []bool{
		in.URL.Set, in.Domain.Set, in.Key.Set,
		in.Archived.Set, in.PublicStats.Set, in.Proxy.Set, in.Rewrite.Set,
		in.TagIDs.Set, in.TagNames.Set,
		in.ExpiresAt.Set, in.ExpiredURL.Set, in.Password.Set,
		in.Title.Set, in.Description.Set, in.Image.Set,
		in.IOS.Set, in.Android.Set, in.Geo.Set, in.Comments.Set,
		in.UTMSource.Set, in.UTMMedium.Set, in.UTMCampaign.Set, in.UTMTerm.Set, in.UTMContent.Set,
	}
	for _, s := range set {
		if s {
			return false
		}
	}
	return true
}

// linkFields is what both create and update read from a body before
// applying their own required/default policy.
type linkFields struct {
	url    Optional[*string]
	domain Optional[string]
	key    Optional[string]
	prefix Optional[string]

	archived, publicStats, proxy, rewrite Optional[bool]

	tagIDs   Optional[[]string]
	tagNames Optional[[]string]

	expiresAt, expiredURL, password            Optional[*string]
	title, description, image                  Optional[*string]
	ios, android                               Optional[*string]
	geo                                        Optional[map[domain.CountryCode]string]
	comments                                   Optional[*string]
	utmSource, utmMedium, utmCampaign, utmTerm Optional[*string]
	utmContent                                 Optional[*string]
}

func readLinkFields(r *bodyReader) linkFields {
	var f linkFields

	f.url = r.nullableString("url")
	if f.url.Set && f.url.Value != nil {
		normalized, err := NormalizeURL(*f.url.Value)
		if err != nil {
			r.add(invalidURL("url", *f.url.Value, err))
		} else {
			f.url = Some(&normalized)
		}
	}

	f.domain = r.domainName("domain")
	f.key = r.text("key")
	f.prefix = r.text("prefix")

	f.archived = r.boolean("archived")
	f.publicStats = r.boolean("publicStats")
	f.proxy = r.boolean("proxy")
	f.rewrite = r.boolean("rewrite")

	tagID := r.stringList("tagId")
	tagIDs := r.stringList("tagIds")
	if tagID.Set || tagIDs.Set {
		f.tagIDs = Some(mergeTagRefs(tagID.Value, tagIDs.Value))
	}
	f.tagNames = r.stringList("tagNames")

	f.expiresAt = r.nullableString("expiresAt")
	f.expiredURL = r.nullableURL("expiredUrl")
	f.password = r.nullableString("password")
	f.title = r.nullableString("title")
	f.description = r.nullableString("description")
	f.image = r.nullableString("image")
	f.ios = r.nullableURL("ios")
	f.android = r.nullableURL("android")
	f.geo = r.geo("geo")
	f.comments = r.nullableString("comments")

	f.utmSource = r.nullableString("utm_source")
	f.utmMedium = r.nullableString("utm_medium")
	f.utmCampaign = r.nullableString("utm_campaign")
	f.utmTerm = r.nullableString("utm_term")
	f.utmContent = r.nullableString("utm_content")

	return f
}

// ValidateCreate validates a create-link JSON body. url is required.
func ValidateCreate(raw []byte) (*CreateLinkInput, error) {
	r, fe := newBodyReader(raw)
	if fe != nil {
		return nil, Errors{fe}
	}

	f := readLinkFields(r)
	if r.errs.Field("url") == nil && (!f.url.Set || f.url.Value == nil) {
		r.add(missingField("url"))
	}
	if err := r.errs.orNil(); err != nil {
		return nil, err
	}

	in := &CreateLinkInput{
		URL:    *f.url.Value,
		Domain: f.domain.Value,
		Key:    f.key.Value,
		Prefix: f.prefix.Value,

		Archived:    f.archived.Value,
		PublicStats: f.publicStats.Value,
		Proxy:       f.proxy.Value,
		Rewrite:     f.rewrite.Value,

		TagIDs:   nonNil(f.tagIDs.Value),
		TagNames: nonNil(f.tagNames.Value),

		ExpiresAt:   f.expiresAt.Value,
		ExpiredURL:  f.expiredURL.Value,
		Password:    f.password.Value,
		Title:       f.title.Value,
		Description: f.description.Value,
		Image:       f.image.Value,
		IOS:         f.ios.Value,
		Android:     f.android.Value,
		Geo:         f.geo.Value,
		Comments:    f.comments.Value,

		UTMSource:   f.utmSource.Value,
		UTMMedium:   f.utmMedium.Value,
		UTMCampaign: f.utmCampaign.Value,
		UTMTerm:     f.utmTerm.Value,
		UTMContent:  f.utmContent.Value,
	}
	return in, nil
}

// ValidateUpdate validates a partial update body. Every field is optional
// and an empty or null body is a valid no-op patch. url may not be null.
func ValidateUpdate(raw []byte) (*UpdateLinkInput, error) {
	r, fe := newBodyReader(raw)
	if fe != nil {
		return nil, Errors{fe}
	}

	f := readLinkFields(r)
	if f.url.Set && f.url.Value == nil && r.errs.Field("url") == nil {
		r.add(invalidType("url", "a URL"))
	}
	if err := r.errs.orNil(); err != nil {
		return nil, err
	}

	in := &UpdateLinkInput{
		Domain: f.domain,
		Key:    f.key,

		Archived:    f.archived,
		PublicStats: f.publicStats,
		Proxy:       f.proxy,
		Rewrite:     f.rewrite,

		TagIDs:   f.tagIDs,
		TagNames: f.tagNames,

		ExpiresAt:   f.expiresAt,
		ExpiredURL:  f.expiredURL,
		Password:    f.password,
		Title:       f.title,
		Description: f.description,
		Image:       f.image,
		IOS:         f.ios,
		Android:     f.android,
		Geo:         f.geo,
		Comments:    f.comments,

		UTMSource:   f.utmSource,
		UTMMedium:   f.utmMedium,
		UTMCampaign: f.utmCampaign,
		UTMTerm:     f.utmTerm,
		UTMContent:  f.utmContent,
	}
	if f.url.Set {
		in.URL = Some(*f.url.Value)
	}
	if in.Key.Set && in.Key.Value == "" {
		in.Key = Optional[string]{}
	}
	return in, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
