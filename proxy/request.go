package proxy

import (
	"fmt"
	"net/http"
	"net/url"
)

// createProxiedRequest builds the outbound request to forwardURL from the
// incoming request, applying the same header transformations as the
// source's create_proxied_request: rewrite Host, strip hop-by-hop and
// Connection-listed headers, restore TE: trailers and Upgrade/Connection
// when applicable, and append to X-Forwarded-For.
//
// Unlike the source, the occupied X-Forwarded-For branch here reinserts
// the computed value (§9's resolved open question — the source computes
// it but never writes it back).
func createProxiedRequest(clientIP, forwardURL string, r *http.Request, upgradeType string) (*http.Request, error) {
	teTrailers := hasTETrailers(r.Header)

	rewritten := forwardURI(forwardURL, r.URL.Path, r.URL.RawQuery)

	u, err := url.Parse(rewritten)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	out := r.Clone(r.Context())
	out.URL = u
	out.RequestURI = ""
	out.Host = u.Host
	out.Header = r.Header.Clone()

	removeConnectionHeaders(out.Header)
	removeHopHeaders(out.Header)

	if teTrailers {
		out.Header.Set("TE", "trailers")
	}

	if upgradeType != "" {
		out.Header.Set("Upgrade", upgradeType)
		out.Header.Set("Connection", "UPGRADE")
	}

	if existing := out.Header.Get("X-Forwarded-For"); existing != "" {
		out.Header.Set("X-Forwarded-For", existing+", "+clientIP)
	} else {
		out.Header.Set("X-Forwarded-For", clientIP)
	}

	return out, nil
}
