package http_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
)

func TestExtractClientIP_UntrustedProxyIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "203.0.113.7:55123"
	r.Header.Set("X-Forwarded-For", "10.0.0.1")

	ip := pkghttp.ExtractClientIP(r, &pkghttp.IPConfig{})
	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIP_TrustedProxyHonorsForwardedFor(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "10.1.2.3:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.1.2.3")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	ip := pkghttp.ExtractClientIP(r, cfg)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_TrustedProxyFallsBackToRealIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "10.1.2.3:443"
	r.Header.Set("X-Real-IP", "198.51.100.10")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	ip := pkghttp.ExtractClientIP(r, cfg)
	assert.Equal(t, "198.51.100.10", ip)
}

func TestExtractClientIP_NoPortInRemoteAddr(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "192.0.2.44"

	ip := pkghttp.ExtractClientIP(r, nil)
	assert.Equal(t, "192.0.2.44", ip)
}
