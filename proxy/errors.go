// Package proxy implements the reverse-proxy request/response rewriting
// the gateway applies between a client and a resolved upstream: URI
// rewrite, hop-by-hop header hygiene, and protocol-upgrade bridging.
package proxy

import "errors"

var (
	// ErrForwardHeader is returned when a malformed header is encountered
	// during proxy rewrite (§7).
	ErrForwardHeader = errors.New("proxy: malformed forward header")

	// ErrInvalidURI is returned when the forward URL is unparseable.
	ErrInvalidURI = errors.New("proxy: invalid forward uri")

	// ErrUpgrade is returned when the upstream's upgrade response
	// mismatches the client's requested protocol, or the client
	// connection cannot be hijacked for bridging.
	ErrUpgrade = errors.New("proxy: upgrade error")
)
