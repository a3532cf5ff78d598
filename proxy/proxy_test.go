package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardURITrimsOneTrailingSlash(t *testing.T) {
	got := forwardURI("http://10.0.0.1:80/", "/ping", "")
	assert.Equal(t, "http://10.0.0.1:80/ping", got)
}

func TestForwardURIMergesNonOverlappingQueryKeys(t *testing.T) {
	got := forwardURI("http://10.0.0.1:80?a=1", "/x", "a=2&b=3")
	assert.Equal(t, "http://10.0.0.1:80/x?a=1&b=3", got)
}

func TestForwardURIUsesRequestQueryWhenForwardQueryEmpty(t *testing.T) {
	got := forwardURI("http://10.0.0.1:80", "/x", "a=1")
	assert.Equal(t, "http://10.0.0.1:80/x?a=1", got)
}

func TestForwardURINoQueryAtAll(t *testing.T) {
	got := forwardURI("http://10.0.0.1:80", "/x", "")
	assert.Equal(t, "http://10.0.0.1:80/x", got)
}

func TestGetUpgradeTypeRequiresBothConnectionTokenAndHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "upgrade, keep-alive")
	h.Set("Upgrade", "websocket")

	typ, ok := getUpgradeType(h)
	require.True(t, ok)
	assert.Equal(t, "websocket", typ)
}

func TestGetUpgradeTypeFalseWithoutUpgradeHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "upgrade")

	_, ok := getUpgradeType(h)
	assert.False(t, ok)
}

func TestRemoveConnectionHeadersStripsListedTokens(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "X-Custom, keep-alive")
	h.Set("X-Custom", "value")
	h.Set("Keep-Alive", "timeout=5")

	removeConnectionHeaders(h)

	assert.Empty(t, h.Get("X-Custom"))
	assert.Empty(t, h.Get("Keep-Alive"))
}

func TestRemoveHopHeadersStripsAllNine(t *testing.T) {
	h := http.Header{}
	for _, name := range hopHeaders {
		h.Set(name, "x")
	}

	removeHopHeaders(h)

	for _, name := range hopHeaders {
		assert.Empty(t, h.Get(name))
	}
}

func TestCreateProxiedRequestAppendsToExistingForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/svc/ping?x=1", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	out, err := createProxiedRequest("5.6.7.8", "http://10.0.0.1:80", r, "")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4, 5.6.7.8", out.Header.Get("X-Forwarded-For"))
}

func TestCreateProxiedRequestSetsForwardedForWhenVacant(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/svc/ping", nil)

	out, err := createProxiedRequest("5.6.7.8", "http://10.0.0.1:80", r, "")
	require.NoError(t, err)
	assert.Equal(t, "5.6.7.8", out.Header.Get("X-Forwarded-For"))
}

func TestCreateProxiedRequestRestoresUpgradeHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/svc/ws", nil)
	r.Header.Set("Connection", "upgrade, keep-alive")
	r.Header.Set("Upgrade", "websocket")

	out, err := createProxiedRequest("1.2.3.4", "http://10.0.0.1:80", r, "websocket")
	require.NoError(t, err)
	assert.Equal(t, "websocket", out.Header.Get("Upgrade"))
	assert.Equal(t, "UPGRADE", out.Header.Get("Connection"))
	assert.Empty(t, out.Header.Get("Keep-Alive"))
}

func TestCreateProxiedRequestPreservesTETrailers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/svc/x", nil)
	r.Header.Set("TE", "trailers, gzip")

	out, err := createProxiedRequest("1.2.3.4", "http://10.0.0.1:80", r, "")
	require.NoError(t, err)
	assert.Equal(t, "trailers", out.Header.Get("TE"))
}
