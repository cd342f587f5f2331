package service

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metatags"
	"github.com/simplesagar/dub/pkg/validator"
)

// Cache interface for link caching on the redirect path
type Cache interface {
	GetLink(ctx context.Context, domainName, key string) (*domain.Link, error)
	SetLink(ctx context.Context, link *domain.Link) error
	DeleteLink(ctx context.Context, domainName, key string) error
}

// KeyGenerator produces candidate short-link keys. Generate is only
// called when the client did not supply a key.
type KeyGenerator interface {
	Generate(prefix string) string
}

// MetatagFetcher scrapes a destination's preview metadata.
type MetatagFetcher interface {
	Fetch(ctx context.Context, url string) (*metatags.Metatags, error)
}

// maxKeyAttempts bounds key generation retries on collision.
const maxKeyAttempts = 10

const keyCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomKeys generates keys of Length characters from crypto/rand.
type RandomKeys struct {
	Length int
}

// Generate returns prefix followed by Length random characters.
func (g RandomKeys) Generate(prefix string) string {
	length := g.Length
	if length <= 0 {
		length = 7
	}

	buf := make([]byte, length)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = keyCharset[int(b)%len(keyCharset)]
	}
	return prefix + string(buf)
}

// parseExpiresAt accepts an RFC 3339 timestamp or a YYYY-MM-DD date
// (midnight UTC). A nil or empty value clears the expiry.
func parseExpiresAt(raw *string) (*time.Time, *validator.FieldError) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &validator.FieldError{
		Field:   "expiresAt",
		Code:    validator.CodeInvalidType,
		Message: "expiresAt must be an RFC 3339 timestamp or a YYYY-MM-DD date",
		Value:   s,
	}
}
