package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"first forwarded entry", "1.2.3.4, 10.0.0.1", "10.0.0.2:5555", "1.2.3.4"},
		{"single forwarded entry", " 5.6.7.8 ", "10.0.0.2:5555", "5.6.7.8"},
		{"empty forwarded entry falls back to peer", " , 10.0.0.1", "10.0.0.2:5555", "10.0.0.2"},
		{"peer address", "", "192.0.2.10:1234", "192.0.2.10"},
		{"ipv6 peer", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"peer without port", "", "192.0.2.11", "192.0.2.11"},
		{"nothing known", "", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/admin/login", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIdentifier(r))
		})
	}
}
