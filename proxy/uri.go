package proxy

import (
	"strings"
)

// forwardURI rewrites forwardURL against the incoming request's path and
// query, translated directly from the source's forward_uri:
//   - split forwardURL on "?" into a base and its own query string
//   - trim exactly one trailing "/" from the base
//   - concatenate base + requestPath
//   - merge queries: start from the forward URL's own query, then append
//     every "k=v" from the request's query whose key isn't already
//     present in the forward query, trimming a trailing "&".
func forwardURI(forwardURL, requestPath, requestQuery string) string {
	base, forwardQuery := splitOnce(forwardURL, '?')
	base = strings.TrimSuffix(base, "/")

	var b strings.Builder
	b.Grow(len(base) + len(requestPath) + 1 + len(forwardQuery) + len(requestQuery))

	b.WriteString(base)
	b.WriteString(requestPath)

	if forwardQuery != "" || requestQuery != "" {
		b.WriteByte('?')
		b.WriteString(forwardQuery)

		if forwardQuery == "" {
			b.WriteString(requestQuery)
		} else {
			forwardKeys := keySet(forwardQuery)

			merged := b.String()
			for _, kv := range strings.Split(requestQuery, "&") {
				if kv == "" {
					continue
				}
				k, v := splitOnce(kv, '=')
				if _, exists := forwardKeys[k]; exists {
					continue
				}
				merged += "&" + k + "=" + v
			}
			merged = strings.TrimSuffix(merged, "&")

			return merged
		}
	}

	return b.String()
}

func splitOnce(s string, sep byte) (string, string) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

func keySet(query string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, kv := range strings.Split(query, "&") {
		if kv == "" {
			continue
		}
		k, _ := splitOnce(kv, '=')
		keys[k] = struct{}{}
	}
	return keys
}
