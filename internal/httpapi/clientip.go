package httpapi

import (
	"net"
	"net/http"
	"strings"
)

// clientIP extracts the remote IP without a port. The limiter keys on
// it, so a malformed RemoteAddr falls back to the raw string rather
// than collapsing every caller into one bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
