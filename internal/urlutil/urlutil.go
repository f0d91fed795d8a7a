// Package urlutil builds absolute URLs for API responses.
package urlutil

import (
	"net/http"
	"net/url"
	"strings"
)

// Origin returns scheme://host for r. A fronting proxy's X-Forwarded-Proto
// wins when it names http or https. Returns "" when r carries no host.
func Origin(r *http.Request) string {
	if r == nil {
		return ""
	}
	host := strings.TrimSpace(r.Host)
	if host == "" {
		return ""
	}
	return scheme(r) + "://" + host
}

// Resource joins path segments onto origin, escaping each segment. With an
// empty origin the result is a root-relative path.
func Resource(origin string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(strings.TrimSpace(origin), "/"))
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func scheme(r *http.Request) string {
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	switch proto = strings.ToLower(strings.TrimSpace(proto)); proto {
	case "http", "https":
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
