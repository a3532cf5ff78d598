package proxy

import (
	"net/http"
	"strings"
)

// hopHeaders are the nine headers consumed by the immediate peer and
// never forwarded (RFC 7230 §6.1, plus the proxy-specific ones).
var hopHeaders = []string{
	"Connection",
	"TE",
	"Trailer",
	"Keep-Alive",
	"Proxy-Connection",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// removeConnectionHeaders deletes every header named as a comma-separated
// token inside the Connection header itself (RFC 7230 §6.1) — headers the
// Connection header names as hop-by-hop for this particular request, on
// top of the fixed hopHeaders list.
func removeConnectionHeaders(h http.Header) {
	connection := h.Get("Connection")
	if connection == "" {
		return
	}

	for _, name := range strings.Split(connection, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			h.Del(name)
		}
	}
}

// containsToken reports whether header (a comma-separated list) contains
// token, compared case-insensitively after trimming.
func containsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// getUpgradeType returns the requested upgrade protocol, and whether an
// upgrade was requested at all: Connection must list the "upgrade" token
// AND an Upgrade header must be present (§4.4).
func getUpgradeType(h http.Header) (string, bool) {
	if !containsToken(h.Get("Connection"), "upgrade") {
		return "", false
	}

	upgrade := h.Get("Upgrade")
	if upgrade == "" {
		return "", false
	}

	return upgrade, true
}

// hasTETrailers reports whether the TE header lists "trailers".
func hasTETrailers(h http.Header) bool {
	return containsToken(h.Get("TE"), "trailers")
}

// createProxiedResponse strips hop-by-hop and Connection-listed headers
// from a non-upgrade upstream response before relaying it to the client.
func createProxiedResponse(h http.Header) {
	removeConnectionHeaders(h)
	removeHopHeaders(h)
}
