package http

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metrics"
	"github.com/simplesagar/dub/internal/visitor"
	"github.com/simplesagar/dub/pkg/validator"
)

var (
	// cloakPage keeps the short link in the address bar while showing
	// the destination.
	cloakPage = template.Must(template.New("cloak").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="robots" content="noindex">
<style>html,body,iframe{margin:0;padding:0;border:0;width:100%;height:100%;overflow:hidden}</style>
</head>
<body><iframe src="{{.URL}}" title="{{.Title}}"></iframe></body>
</html>`))

	// cardPage is served to social crawlers for proxied links.
	cardPage = template.Must(template.New("card").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta property="og:title" content="{{.Title}}">
<meta name="twitter:title" content="{{.Title}}">
{{- with .Description}}
<meta name="description" content="{{.}}">
<meta property="og:description" content="{{.}}">
<meta name="twitter:description" content="{{.}}">
{{- end}}
{{- with .Image}}
<meta property="og:image" content="{{.}}">
<meta name="twitter:image" content="{{.}}">
<meta name="twitter:card" content="summary_large_image">
{{- end}}
<meta property="og:url" content="{{.ShortLink}}">
</head>
<body><a href="{{.URL}}">{{.URL}}</a></body>
</html>`))

	passwordPage = template.Must(template.New("password").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Password required</title>
<meta name="robots" content="noindex">
</head>
<body>
<h1>This link is password protected</h1>
{{- if .Wrong}}
<p>Incorrect password.</p>
{{- end}}
<form method="get" action="/{{.Key}}">
<input type="password" name="password" autofocus>
<button type="submit">Continue</button>
</form>
</body>
</html>`))
)

type pageData struct {
	Title       string
	Description string
	Image       string
	URL         string
	ShortLink   string
	Key         string
	Wrong       bool
}

// Redirect handles GET /{key...} on a link domain.
//
// Order: password gate, then the destination picked by the link's
// expiry, device and geo targeting. Crawlers get the social card for
// proxied links and rewritten links are shown in a frame.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		respondError(w, http.StatusMethodNotAllowed, CodeBadRequest, "Method not allowed")
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/")
	if key == "" {
		respondError(w, http.StatusNotFound, CodeNotFound, "Link not found")
		return
	}
	domainName := h.linkDomain(r)
	log := h.logger.WithContext(r.Context())

	link, err := h.links.ResolveLink(r.Context(), domainName, key)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			log.Debug("link not found", "domain", domainName, "key", key)
			respondError(w, http.StatusNotFound, CodeNotFound, "Link not found")
			return
		}
		respondServiceError(w, log, "redirect", err)
		return
	}

	supplied, hasPassword := r.URL.Query()["password"]
	if !link.CheckPassword(first(supplied)) {
		w.Header().Set("X-Robots-Tag", "noindex")
		h.render(w, http.StatusUnauthorized, passwordPage, pageData{Key: link.Key, Wrong: hasPassword})
		return
	}

	info := visitor.Parse(r.UserAgent())
	country := h.geo.Country(r)

	dest, target, err := link.Destination(h.now(), info.Visitor(country))
	metrics.RecordRedirect(target)
	if err != nil {
		respondServiceError(w, log, "redirect", err)
		return
	}

	// HEAD requests from link checkers and prefetchers are not clicks
	if !info.Bot && r.Method == http.MethodGet {
		click := domain.NewClickEvent(link.ID, target, r.UserAgent(), r.Referer()).
			WithVisitor(country, info.Device, info.Browser)
		h.recordClick(r.Context(), link, click)
	}

	w.Header().Set("X-Robots-Tag", "googlebot: noindex")

	switch {
	case info.Bot && link.Proxy:
		h.render(w, http.StatusOK, cardPage, pageData{
			Title:       deref(link.Title),
			Description: deref(link.Description),
			Image:       deref(link.Image),
			URL:         dest,
			ShortLink:   link.ShortLink(),
		})
	case link.Rewrite:
		h.render(w, http.StatusOK, cloakPage, pageData{Title: deref(link.Title), URL: dest})
	default:
		http.Redirect(w, r, dest, http.StatusFound)
	}
}

// linkDomain is the request host without port. Hosts that cannot carry
// links, such as localhost during development, map to the default domain.
func (h *Handler) linkDomain(r *http.Request) string {
	host := r.Host
	if hostOnly, _, err := net.SplitHostPort(host); err == nil {
		host = hostOnly
	}
	host = strings.ToLower(host)
	if net.ParseIP(host) != nil || validator.ValidateDomain(host) != nil {
		return h.cfg.DefaultDomain
	}
	return host
}

// recordClick stores the click in the background so the redirect is not
// delayed. The request context is detached since it ends with the
// response.
func (h *Handler) recordClick(ctx context.Context, link *domain.Link, click *domain.ClickEvent) {
	ctx = context.WithoutCancel(ctx)
	h.async(func() {
		ctx, cancel := context.WithTimeout(ctx, h.cfg.ClickTimeout)
		defer cancel()

		if err := h.links.RecordClick(ctx, link, click); err != nil {
			h.logger.WithContext(ctx).Error("failed to record click", "error", err, "link_id", link.ID)
		}
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "template", tmpl.Name(), "error", err)
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
