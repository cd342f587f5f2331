package domain

import (
	"errors"
	"fmt"
)

// Domain errors. Repositories and services wrap these with %w so handlers
// can map them to status codes with errors.Is.
var (
	ErrLinkNotFound      = errors.New("link not found")
	ErrDuplicateKey      = errors.New("key already exists on this domain")
	ErrTagNotFound       = errors.New("tag not found")
	ErrDuplicateTag      = errors.New("tag already exists")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrLinkExpired       = errors.New("link has expired")
	ErrKeyExhausted      = errors.New("failed to generate a unique key")
)

// BatchError is returned when a batch write stops part way. Created
// holds the links stored before the element at Index failed; they are
// not rolled back.
type BatchError struct {
	Index   int
	Created []*Link
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("link [%d]: %v (%d created before the failure)", e.Index, e.Err, len(e.Created))
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
