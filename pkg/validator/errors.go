package validator

import (
	"errors"
	"fmt"
	"strings"
)

// URL normalization failures. These are the causes behind a CodeInvalidURL
// field error.
var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrInvalidURL    = errors.New("invalid URL format")
	ErrInvalidScheme = errors.New("URL must use http or https scheme")
	ErrInvalidHost   = errors.New("URL must have a valid host")
	ErrInvalidDomain = errors.New("invalid domain name")
)

// Code identifies the kind of a field error.
type Code string

const (
	CodeInvalidURL           Code = "invalid_url"
	CodeInvalidDomain        Code = "invalid_domain"
	CodeInvalidGeoEntry      Code = "invalid_geo_entry"
	CodeMissingRequiredField Code = "missing_required_field"
	CodeEmptyBatch           Code = "empty_batch"
	CodeBatchTooLarge        Code = "batch_too_large"
	CodeInvalidEnumValue     Code = "invalid_enum_value"
	CodeInvalidType          Code = "invalid_type"
	CodeUnknownReference     Code = "unknown_reference"
)

// FieldError is one diagnostic scoped to a field path such as "url",
// "geo.FR" or "[3].ios". An empty Field means the whole body.
type FieldError struct {
	Field   string   `json:"field"`
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Value   string   `json:"value,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is the ordered list of diagnostics for one validation call.
// A non-empty Errors is returned as the error value of every Validate*
// function; callers recover it with errors.As.
type Errors []*FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether any diagnostic carries code.
func (e Errors) Has(code Code) bool {
	for _, fe := range e {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// Field returns the first diagnostic for field, or nil.
func (e Errors) Field(field string) *FieldError {
	for _, fe := range e {
		if fe.Field == field {
			return fe
		}
	}
	return nil
}

// orNil turns an empty list into a nil error so callers can return it
// directly.
func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// WithPrefix rewrites every field path under prefix, e.g. "[2]" + "url"
// becomes "[2].url".
func (e Errors) WithPrefix(prefix string) Errors {
	out := make(Errors, 0, len(e))
	for _, fe := range e {
		cp := *fe
		if cp.Field == "" {
			cp.Field = prefix
		} else {
			cp.Field = prefix + "." + cp.Field
		}
		out = append(out, &cp)
	}
	return out
}

// AsErrors extracts the diagnostics from err, if it carries any.
func AsErrors(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

func missingField(field string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func invalidURL(field, raw string, cause error) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeInvalidURL,
		Message: cause.Error(),
		Value:   raw,
	}
}

func invalidDomain(field, raw string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeInvalidDomain,
		Message: fmt.Sprintf("%s is not a valid domain name", field),
		Value:   raw,
	}
}

func invalidGeoEntry(country, reason string) *FieldError {
	return &FieldError{
		Field:   "geo." + country,
		Code:    CodeInvalidGeoEntry,
		Message: fmt.Sprintf("invalid geo entry for %q: %s", country, reason),
		Value:   country,
	}
}

func invalidEnum(field, value string, allowed []string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeInvalidEnumValue,
		Message: fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")),
		Value:   value,
		Allowed: allowed,
	}
}

func invalidType(field, expected string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeInvalidType,
		Message: fmt.Sprintf("%s must be %s", field, expected),
	}
}

// UnknownReference reports an ID or name that does not resolve to an
// existing record. Used by the service layer after validation.
func UnknownReference(field, value string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeUnknownReference,
		Message: fmt.Sprintf("%s references unknown value %q", field, value),
		Value:   value,
	}
}
