// Package urlutil canonicalises product URLs for cache keying and scores
// how alike two URLs are when no exact cache key exists.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// retailerKey describes a retailer whose product pages encode a catalog
// identifier positionally. Matching URLs normalise to "<retailer>:<id>" so
// every tracking-parameter variant of a product page shares one cache key.
type retailerKey struct {
	name      string
	hostMatch string
}

var retailerKeys = []retailerKey{
	{name: "amazon", hostMatch: "amazon"},
}

// productIDPattern matches the ASIN-style identifier: a 10-character
// uppercase alphanumeric token following a known product path segment.
var productIDPattern = regexp.MustCompile(`/(?:dp|gp/product|gp/aw/d|product)/([A-Z0-9]{10})(?:[/?#]|$)`)

// syntheticKeyPattern recognises an already-normalised "<retailer>:<id>" key
// so Normalize stays idempotent.
var syntheticKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9]*:[A-Z0-9]{10}$`)

// Normalize returns the canonical form of a raw URL. It never fails: on
// parse failure the lowercased raw input is returned as a degraded fallback.
//
// A URL on a known retailer with an extractable product ID normalises to
// "<retailer>:<id>", ignoring all query parameters. Everything else
// normalises to lowercase(host + path) with query string and fragment
// dropped.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if syntheticKeyPattern.MatchString(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(raw)
	}
	host := strings.ToLower(u.Hostname())
	for _, rk := range retailerKeys {
		if !strings.Contains(host, rk.hostMatch) {
			continue
		}
		if id := ProductID(raw); id != "" {
			return rk.name + ":" + id
		}
	}
	return host + strings.ToLower(u.EscapedPath())
}

// ProductID extracts a retailer catalog identifier from a raw URL, or ""
// when none is encoded. The pattern is positional, so it works for any host
// that uses the /dp/<id> style path layout.
func ProductID(raw string) string {
	m := productIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}

// Hash returns a fixed-length hex digest of a normalized URL, used for
// compact indexing in the cache store.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
