// Package geo resolves the visitor's country for geo-targeted redirects.
package geo

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/pkg/logger"

	"github.com/oschwald/geoip2-golang"
)

// countryHeaders are set by common edge proxies, checked in order.
var countryHeaders = []string{"CF-IPCountry", "X-Vercel-IP-Country", "X-Country-Code"}

// Resolver finds a request's country from edge headers, falling back to
// a MaxMind database when one is loaded.
type Resolver struct {
	reader *geoip2.Reader
	logger *logger.Logger
}

// NewResolver opens the MaxMind database at dbPath. An empty path gives a
// header-only resolver.
func NewResolver(dbPath string, log *logger.Logger) (*Resolver, error) {
	r := &Resolver{logger: log}
	if dbPath == "" {
		return r, nil
	}

	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	r.reader = reader
	log.Info("GeoIP database loaded", "path", dbPath, "epoch", reader.Metadata().BuildEpoch)
	return r, nil
}

// Close releases the database, if any.
func (r *Resolver) Close() error {
	if r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// Country returns the visitor's country, or "" when unknown.
func (r *Resolver) Country(req *http.Request) domain.CountryCode {
	for _, h := range countryHeaders {
		if c, ok := domain.ParseCountryCode(req.Header.Get(h)); ok {
			return c
		}
	}

	if r.reader == nil {
		return ""
	}

	ip := net.ParseIP(ClientIP(req))
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() {
		return ""
	}

	record, err := r.reader.Country(ip)
	if err != nil {
		r.logger.Warn("GeoIP lookup failed", "ip", ip.String(), "error", err)
		return ""
	}
	c, _ := domain.ParseCountryCode(record.Country.IsoCode)
	return c
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the
// connection's remote address.
func ClientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
