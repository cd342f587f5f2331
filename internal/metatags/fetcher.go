// Package metatags scrapes a page's title, description and preview image
// for link cards.
package metatags

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxBody caps how much of a page is read. Head tags live near the top.
const maxBody = 1 << 20

// Metatags is the scraped preview. Fields are nil when the page has none.
type Metatags struct {
	Title       *string
	Description *string
	Image       *string
}

// Fetcher downloads pages and extracts their metatags.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: "dub-metatags/1.0 (+https://dub.co)",
	}
}

// Fetch downloads pageURL and returns its metatags.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Metatags, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	base := resp.Request.URL
	return Parse(io.LimitReader(resp.Body, maxBody), base)
}

// Parse reads an HTML document and extracts its metatags. Open Graph and
// Twitter tags win over <title> and <meta name="description">. A relative
// image is resolved against base.
func Parse(r io.Reader, base *url.URL) (*Metatags, error) {
	var (
		title, docTitle string
		desc, docDesc   string
		image           string
		inTitle         bool
	)

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return nil, fmt.Errorf("failed to parse html: %w", z.Err())
			}
			return build(first(title, docTitle), first(desc, docDesc), resolve(base, image)), nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = tt == html.StartTagToken
			case "meta":
				key, content := metaAttrs(tok)
				switch key {
				case "og:title", "twitter:title":
					title = first(title, content)
				case "og:description", "twitter:description":
					desc = first(desc, content)
				case "og:image", "og:image:url", "twitter:image", "twitter:image:src":
					image = first(image, content)
				case "description":
					docDesc = first(docDesc, content)
				}
			case "body":
				// head is over
				return build(first(title, docTitle), first(desc, docDesc), resolve(base, image)), nil
			}

		case html.TextToken:
			if inTitle {
				docTitle = first(docTitle, strings.TrimSpace(string(z.Text())))
			}

		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}
		}
	}
}

func metaAttrs(tok html.Token) (key, content string) {
	for _, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(a.Val))
			}
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return key, content
}

func first(current, candidate string) string {
	if current != "" {
		return current
	}
	return candidate
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func build(title, desc, image string) *Metatags {
	m := &Metatags{}
	if title != "" {
		m.Title = &title
	}
	if desc != "" {
		m.Description = &desc
	}
	if image != "" {
		m.Image = &image
	}
	return m
}
