package validator

import (
	"strings"
	"unicode/utf8"

	"github.com/simplesagar/dub/internal/domain"
)

// MaxTagNameLength bounds tag names, in characters.
const MaxTagNameLength = 50

// CreateTagInput is a validated create-tag request. An empty Color means
// the caller picks one.
type CreateTagInput struct {
	Name  string
	Color string
}

// ValidateCreateTag validates a create-tag JSON body.
func ValidateCreateTag(raw []byte) (*CreateTagInput, error) {
	r, fe := newBodyReader(raw)
	if fe != nil {
		return nil, Errors{fe}
	}

	name := r.text("name")
	switch {
	case r.errs.Field("name") != nil:
	case !name.Set || name.Value == "":
		r.add(missingField("name"))
	case utf8.RuneCountInString(name.Value) > MaxTagNameLength:
		r.add(&FieldError{
			Field:   "name",
			Code:    CodeInvalidType,
			Message: "name must be at most 50 characters",
			Value:   name.Value,
		})
	}

	color := r.text("color")
	if color.Set && color.Value != "" {
		color.Value = strings.ToLower(color.Value)
		if err := rules.Var(color.Value, "oneof="+strings.Join(domain.TagColors, " ")); err != nil {
			r.add(invalidEnum("color", color.Value, domain.TagColors))
		}
	}

	if err := r.errs.orNil(); err != nil {
		return nil, err
	}
	return &CreateTagInput{Name: name.Value, Color: color.Value}, nil
}
