package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded-for single address",
			forwarded:  "203.0.113.5",
			remoteAddr: "10.0.0.1:5000",
			want:       "203.0.113.5",
		},
		{
			name:       "forwarded-for chain takes first hop",
			forwarded:  "198.51.100.7, 203.0.113.9, 192.0.2.1",
			remoteAddr: "10.0.0.1:5000",
			want:       "198.51.100.7",
		},
		{
			name:       "forwarded-for with surrounding spaces",
			forwarded:  "  203.0.113.10  ,  198.51.100.2",
			remoteAddr: "10.0.0.1:5000",
			want:       "203.0.113.10",
		},
		{
			name:       "forwarded-for wins over real-ip",
			forwarded:  "198.51.100.77",
			realIP:     "203.0.113.200",
			remoteAddr: "10.0.0.1:5000",
			want:       "198.51.100.77",
		},
		{
			name:       "real-ip when no forwarded-for",
			realIP:     "2001:db8::2",
			remoteAddr: "10.0.0.1:5000",
			want:       "2001:db8::2",
		},
		{
			name:       "remote addr ipv4",
			remoteAddr: "192.0.2.55:54321",
			want:       "192.0.2.55",
		},
		{
			name:       "remote addr bracketed ipv6",
			remoteAddr: "[2001:db8::5]:8443",
			want:       "2001:db8::5",
		},
		{
			name:       "malformed remote addr returned raw",
			remoteAddr: "not_an_ip_port",
			want:       "not_an_ip_port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/v1/send", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
