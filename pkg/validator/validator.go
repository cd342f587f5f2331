// Package validator turns untrusted client input for links, tags and link
// queries into normalized, typed values, or into a list of field-scoped
// diagnostics. Every function here is pure and safe for concurrent use.
package validator

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// schemePattern detects an explicit "scheme://" prefix.
	schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

	// domainPattern: labels of letters, digits and hyphens, at least one dot,
	// no label starting or ending with a hyphen.
	domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

	rules = validator.New(validator.WithRequiredStructEnabled())
)

const maxDomainLength = 253

// NormalizeURL trims raw, adds https:// when no scheme is given, parses it
// as an absolute URL and returns the canonical serialization. It is
// idempotent: NormalizeURL(NormalizeURL(s)) == NormalizeURL(s).
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyURL
	}

	if !schemePattern.MatchString(s) {
		s = "https://" + s
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return "", ErrInvalidURL
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidScheme
	}

	if parsed.Hostname() == "" {
		return "", ErrInvalidHost
	}
	parsed.Host = strings.ToLower(parsed.Host)

	normalized := parsed.String()

	// Strict syntax check on the canonical form.
	if err := rules.Var(normalized, "required,url"); err != nil {
		return "", ErrInvalidURL
	}

	return normalized, nil
}

// ValidateDomain checks a bare domain name such as "dub.sh" against the
// domain pattern. It never parses the value as a URL.
func ValidateDomain(domain string) error {
	if len(domain) == 0 || len(domain) > maxDomainLength {
		return ErrInvalidDomain
	}
	if !domainPattern.MatchString(domain) {
		return ErrInvalidDomain
	}
	return nil
}

// SplitList flattens string values that may each hold a comma-separated
// list. Segments are trimmed, empty ones dropped and duplicates removed,
// keeping the first occurrence.
func SplitList(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// mergeTagRefs applies the single tag merge rule used on every path: the
// deprecated tagId comes first, then tagIds, union without duplicates.
func mergeTagRefs(tagID, tagIDs []string) []string {
	all := make([]string, 0, len(tagID)+len(tagIDs))
	all = append(all, tagID...)
	all = append(all, tagIDs...)
	return SplitList(all...)
}
