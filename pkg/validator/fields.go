package validator

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/simplesagar/dub/internal/domain"
)

// Optional is a value that may be absent from the input. For nullable
// fields T is a pointer or map, so three states are distinguishable:
// absent (Set false), explicit null (Set true, nil Value) and a value.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// bodyReader reads loosely-typed fields out of one JSON object and
// collects diagnostics instead of stopping at the first problem.
type bodyReader struct {
	fields map[string]json.RawMessage
	errs   Errors
}

// newBodyReader decodes raw as a JSON object. An empty body or a literal
// null is an empty object.
func newBodyReader(raw []byte) (*bodyReader, *FieldError) {
	r := &bodyReader{fields: map[string]json.RawMessage{}}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || isNull(trimmed) {
		return r, nil
	}
	if trimmed[0] != '{' {
		return nil, invalidType("", "a JSON object")
	}
	if err := json.Unmarshal(trimmed, &r.fields); err != nil {
		return nil, invalidType("", "a JSON object")
	}
	return r, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (r *bodyReader) add(fe *FieldError) {
	r.errs = append(r.errs, fe)
}

// nullableString reads a "string or null" field.
func (r *bodyReader) nullableString(field string) Optional[*string] {
	raw, ok := r.fields[field]
	if !ok {
		return Optional[*string]{}
	}
	if isNull(raw) {
		return Some[*string](nil)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.add(invalidType(field, "a string or null"))
		return Optional[*string]{}
	}
	return Some(&s)
}

// text reads an optional string where null means absent. The result is
// trimmed.
func (r *bodyReader) text(field string) Optional[string] {
	v := r.nullableString(field)
	if !v.Set || v.Value == nil {
		return Optional[string]{}
	}
	return Some(strings.TrimSpace(*v.Value))
}

// boolean reads an optional boolean. null is rejected.
func (r *bodyReader) boolean(field string) Optional[bool] {
	raw, ok := r.fields[field]
	if !ok {
		return Optional[bool]{}
	}
	var b bool
	if isNull(raw) || json.Unmarshal(raw, &b) != nil {
		r.add(invalidType(field, "a boolean"))
		return Optional[bool]{}
	}
	return Some(b)
}

// nullableURL reads a "URL or null" field and normalizes the URL.
func (r *bodyReader) nullableURL(field string) Optional[*string] {
	v := r.nullableString(field)
	if !v.Set || v.Value == nil {
		return v
	}
	normalized, err := NormalizeURL(*v.Value)
	if err != nil {
		r.add(invalidURL(field, *v.Value, err))
		return Optional[*string]{}
	}
	return Some(&normalized)
}

// domainName reads an optional domain and checks it against the domain
// pattern. Domains are case-insensitive and stored lower case.
func (r *bodyReader) domainName(field string) Optional[string] {
	v := r.text(field)
	if !v.Set || v.Value == "" {
		return Optional[string]{}
	}
	d := strings.ToLower(v.Value)
	if err := ValidateDomain(d); err != nil {
		r.add(invalidDomain(field, v.Value))
		return Optional[string]{}
	}
	return Some(d)
}

// stringList reads a field that may be a single string, an array of
// strings or null. Every string is comma-split. null yields an empty list.
func (r *bodyReader) stringList(field string) Optional[[]string] {
	raw, ok := r.fields[field]
	if !ok {
		return Optional[[]string]{}
	}
	if isNull(raw) {
		return Some([]string{})
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return Some(SplitList(single))
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return Some(SplitList(many...))
	}

	r.add(invalidType(field, "a string or an array of strings"))
	return Optional[[]string]{}
}

// geo reads the country → URL map. Every key must be a known country code
// and every value must normalize as a URL. Entries are checked in sorted
// key order so diagnostics are deterministic.
func (r *bodyReader) geo(field string) Optional[map[domain.CountryCode]string] {
	raw, ok := r.fields[field]
	if !ok {
		return Optional[map[domain.CountryCode]string]{}
	}
	if isNull(raw) {
		return Some[map[domain.CountryCode]string](nil)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		r.add(invalidType(field, "an object mapping country codes to URLs, or null"))
		return Optional[map[domain.CountryCode]string]{}
	}

	countries := make([]string, 0, len(entries))
	for c := range entries {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	out := make(map[domain.CountryCode]string, len(entries))
	failed := false
	for _, country := range countries {
		if !domain.IsCountryCode(country) {
			r.add(invalidGeoEntry(country, "unknown country code"))
			failed = true
			continue
		}
		var target string
		if err := json.Unmarshal(entries[country], &target); err != nil {
			r.add(invalidGeoEntry(country, "destination must be a string"))
			failed = true
			continue
		}
		normalized, err := NormalizeURL(target)
		if err != nil {
			r.add(invalidGeoEntry(country, err.Error()))
			failed = true
			continue
		}
		out[domain.CountryCode(country)] = normalized
	}

	if failed {
		return Optional[map[domain.CountryCode]string]{}
	}
	return Some(out)
}
