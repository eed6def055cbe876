package extract

import (
	"net/url"
	"strconv"
	"strings"
)

// resizeEndpoint is the third-party image resizing service front.
const resizeEndpoint = "https://images.weserv.nl/"

// passthroughMarkers identify images that are already sized placeholders or
// already routed through the resizer; these pass through unmodified.
var passthroughMarkers = []string{
	"placehold",
	"images.weserv.nl",
}

// ResizeURL rewrites a raw image URL into a request against the resizing
// endpoint with the target dimensions. On resize failure the service
// redirects back to the original image. The rewrite is idempotent: already
// proxied or placeholder URLs are returned as-is.
func ResizeURL(raw string, width, height int) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || width <= 0 || height <= 0 {
		return raw
	}
	lower := strings.ToLower(raw)
	for _, marker := range passthroughMarkers {
		if strings.Contains(lower, marker) {
			return raw
		}
	}
	v := url.Values{}
	v.Set("url", raw)
	v.Set("w", strconv.Itoa(width))
	v.Set("h", strconv.Itoa(height))
	v.Set("fit", "cover")
	v.Set("default", raw)
	return resizeEndpoint + "?" + v.Encode()
}
