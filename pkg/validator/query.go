package validator

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/simplesagar/dub/internal/domain"
)

// MaxPage is the largest accepted page; larger pages would overflow the
// row offset.
const MaxPage = math.MaxInt32 / domain.PageSize

var (
	sortValues    = []string{string(domain.SortCreatedAt), string(domain.SortClicks), string(domain.SortLastClicked)}
	groupByValues = []string{string(domain.GroupByDomain), string(domain.GroupByTagID)}
	boolValues    = []string{"true", "false"}
)

// LinksQuery is a validated link listing query.
type LinksQuery struct {
	Domain       string
	TagIDs       []string
	TagNames     []string
	Search       string
	UserID       string
	ShowArchived bool
	WithTags     bool
	Sort         domain.LinkSort
	// Page is 0 when absent; callers treat 0 and 1 as the first page.
	Page int
}

// Filter turns the query into a repository filter for workspaceID.
func (q *LinksQuery) Filter(workspaceID string) domain.LinkFilter {
	return domain.LinkFilter{
		WorkspaceID:  workspaceID,
		Domain:       q.Domain,
		TagIDs:       q.TagIDs,
		TagNames:     q.TagNames,
		Search:       q.Search,
		UserID:       q.UserID,
		ShowArchived: q.ShowArchived,
		WithTags:     q.WithTags,
		Sort:         q.Sort,
		Page:         q.Page,
	}
}

// LinksCountQuery is a LinksQuery with an optional grouping.
type LinksCountQuery struct {
	LinksQuery
	GroupBy domain.LinkGroupBy
}

// DomainKey identifies a single link by its short-link coordinates.
type DomainKey struct {
	Domain string
	Key    string
}

// queryReader mirrors bodyReader for URL query parameters, where every
// value arrives as a string.
type queryReader struct {
	values url.Values
	errs   Errors
}

func (r *queryReader) text(name string) string {
	return strings.TrimSpace(r.values.Get(name))
}

func (r *queryReader) list(name string) []string {
	return SplitList(r.values[name]...)
}

func (r *queryReader) flag(name string) bool {
	v := r.text(name)
	switch {
	case v == "":
		return false
	case strings.EqualFold(v, "true"):
		return true
	case strings.EqualFold(v, "false"):
		return false
	}
	r.errs = append(r.errs, invalidEnum(name, v, boolValues))
	return false
}

func (r *queryReader) domainName(name string) string {
	v := r.text(name)
	if v == "" {
		return ""
	}
	d := strings.ToLower(v)
	if ValidateDomain(d) != nil {
		r.errs = append(r.errs, invalidDomain(name, v))
		return ""
	}
	return d
}

func (r *queryReader) page() int {
	v := r.text("page")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > MaxPage {
		r.errs = append(r.errs, &FieldError{
			Field:   "page",
			Code:    CodeInvalidType,
			Message: fmt.Sprintf("page must be an integer between 0 and %d", MaxPage),
			Value:   v,
		})
		return 0
	}
	return n
}

func (r *queryReader) enum(name string, allowed []string) string {
	v := r.text(name)
	if v == "" {
		return ""
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	r.errs = append(r.errs, invalidEnum(name, v, allowed))
	return ""
}

func readLinksQuery(r *queryReader) LinksQuery {
	q := LinksQuery{
		Domain:       r.domainName("domain"),
		TagIDs:       mergeTagRefs(r.list("tagId"), r.list("tagIds")),
		TagNames:     r.list("tagNames"),
		Search:       r.text("search"),
		UserID:       r.text("userId"),
		ShowArchived: r.flag("showArchived"),
		WithTags:     r.flag("withTags"),
		Sort:         domain.LinkSort(r.enum("sort", sortValues)),
		Page:         r.page(),
	}
	if q.Sort == "" {
		q.Sort = domain.SortCreatedAt
	}
	return q
}

// ValidateLinksQuery validates the query string of a link listing.
func ValidateLinksQuery(values url.Values) (*LinksQuery, error) {
	r := &queryReader{values: values}
	q := readLinksQuery(r)
	if err := r.errs.orNil(); err != nil {
		return nil, err
	}
	return &q, nil
}

// ValidateLinksCountQuery validates a link count query, which also accepts
// groupBy=domain|tagId.
func ValidateLinksCountQuery(values url.Values) (*LinksCountQuery, error) {
	r := &queryReader{values: values}
	q := LinksCountQuery{
		LinksQuery: readLinksQuery(r),
		GroupBy:    domain.LinkGroupBy(r.enum("groupBy", groupByValues)),
	}
	if err := r.errs.orNil(); err != nil {
		return nil, err
	}
	return &q, nil
}

// ValidateDomainKey requires a syntactically valid domain and a non-empty
// key.
func ValidateDomainKey(values url.Values) (*DomainKey, error) {
	r := &queryReader{values: values}

	rawDomain := r.text("domain")
	if rawDomain == "" {
		r.errs = append(r.errs, missingField("domain"))
	}
	d := r.domainName("domain")

	key := r.text("key")
	if key == "" {
		r.errs = append(r.errs, missingField("key"))
	}

	if err := r.errs.orNil(); err != nil {
		return nil, err
	}
	return &DomainKey{Domain: d, Key: key}, nil
}

// ValidateWorkspaceRef reads the owning workspace from workspaceId, or
// from the deprecated projectId alias. workspaceId wins when both are
// given.
func ValidateWorkspaceRef(values url.Values) (string, error) {
	r := &queryReader{values: values}
	if id := r.text("workspaceId"); id != "" {
		return id, nil
	}
	if id := r.text("projectId"); id != "" {
		return id, nil
	}
	return "", Errors{missingField("workspaceId")}
}
