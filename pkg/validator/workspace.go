package validator

import "regexp"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CreateWorkspaceInput is a validated create-workspace request.
type CreateWorkspaceInput struct {
	Name string
	Slug string
}

// ValidateCreateWorkspace requires a name and a lower-case slug of
// letters, digits and single hyphens.
func ValidateCreateWorkspace(raw []byte) (*CreateWorkspaceInput, error) {
	r, fe := newBodyReader(raw)
	if fe != nil {
		return nil, Errors{fe}
	}

	name := r.text("name")
	if r.errs.Field("name") == nil && name.Value == "" {
		r.add(missingField("name"))
	}

	slug := r.text("slug")
	switch {
	case r.errs.Field("slug") != nil:
	case slug.Value == "":
		r.add(missingField("slug"))
	case len(slug.Value) > 48 || !slugPattern.MatchString(slug.Value):
		r.add(&FieldError{
			Field:   "slug",
			Code:    CodeInvalidType,
			Message: "slug must be lower-case letters, digits and hyphens, at most 48 characters",
			Value:   slug.Value,
		})
	}

	if err := r.errs.orNil(); err != nil {
		return nil, err
	}
	return &CreateWorkspaceInput{Name: name.Value, Slug: slug.Value}, nil
}
