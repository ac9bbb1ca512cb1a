package httputil

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders are checked in order of trust before falling back to RemoteAddr.
var proxyHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// ClientIP extracts the originating client IP from a request. X-Forwarded-For
// chains yield their first entry. RemoteAddr is returned as-is when it cannot
// be split into host and port.
func ClientIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if idx := strings.IndexByte(value, ','); idx >= 0 {
			value = value[:idx]
		}
		if ip := strings.TrimSpace(value); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
