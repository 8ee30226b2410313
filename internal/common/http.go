package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the host part of RemoteAddr. Forwarding headers are ignored here;
// deployments behind a trusted proxy rewrite RemoteAddr with middleware.RealIP first.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
