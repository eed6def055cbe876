package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const maxCollectedImages = 10

var unicodeEscapePattern = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

// cleanImageCandidate post-processes an extracted image URL: escaped unicode
// sequences are unescaped, protocol-relative URLs are upgraded to absolute,
// relative paths resolve against the page URL, and logo/icon-like results
// are rejected.
func cleanImageCandidate(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = unescapeUnicode(raw)

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(raw, "/") && base != nil && base.Host != "":
		raw = base.Scheme + "://" + base.Host + raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return ""
	}
	if isLogoLike(raw) {
		return ""
	}
	return raw
}

func unescapeUnicode(s string) string {
	return unicodeEscapePattern.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
}

func isLogoLike(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "logo") || strings.Contains(lower, "icon")
}

// CollectImages gathers candidate product images from the page: Open Graph
// and Twitter card images first, then every <img> src in document order.
// Results are cleaned, deduplicated, filtered of logo/icon-like URLs, and
// capped at 10.
func CollectImages(c *content) []string {
	seen := make(map[string]struct{})
	images := make([]string, 0, maxCollectedImages)

	add := func(raw string) bool {
		cleaned := cleanImageCandidate(raw, c.base)
		if cleaned == "" {
			return false
		}
		if _, dup := seen[cleaned]; dup {
			return false
		}
		seen[cleaned] = struct{}{}
		images = append(images, cleaned)
		return len(images) >= maxCollectedImages
	}

	if og := c.meta("og:image", "og:image:secure_url"); og != "" {
		if add(og) {
			return images
		}
	}
	if tw := c.meta("twitter:image", "twitter:image:src"); tw != "" {
		if add(tw) {
			return images
		}
	}

	root, err := html.Parse(strings.NewReader(c.raw))
	if err != nil {
		return images
	}
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "img") {
			for _, attr := range n.Attr {
				if strings.EqualFold(attr.Key, "src") {
					if add(attr.Val) {
						return true
					}
					break
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if walk(child) {
				return true
			}
		}
		return false
	}
	walk(root)
	return images
}
