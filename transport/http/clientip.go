package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/archfirm/gatehouse/service"
)

// ClientIdentifier keys the login limiter. It trusts the first X-Forwarded-For
// entry, so the service must sit behind a proxy that overwrites that header.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return service.UnknownClient
}
