// Package httputil holds small HTTP helpers shared by handlers and
// middleware.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the originating client address, trusting proxy headers
// in the usual order. X-Forwarded-For may carry a chain; the first entry is
// the client.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
