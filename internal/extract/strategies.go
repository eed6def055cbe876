package extract

import (
	"regexp"
	"strings"
)

// strategy is one independently testable extraction attempt for a field.
// Chains run in declaration order and the first non-empty result wins.
type strategy struct {
	name  string
	apply func(c *content) string
}

func firstMatch(c *content, chain []strategy) string {
	for _, s := range chain {
		if v := strings.TrimSpace(s.apply(c)); v != "" {
			return v
		}
	}
	return ""
}

// pattern builds a strategy that applies a regular expression to the raw
// HTML and returns the first capture group. Patterns reflect specific page
// template variants, so several usually stack per field.
func pattern(name, expr string) strategy {
	re := regexp.MustCompile(expr)
	return strategy{
		name: name,
		apply: func(c *content) string {
			m := re.FindStringSubmatch(c.raw)
			if m == nil || len(m) < 2 {
				return ""
			}
			return m[1]
		},
	}
}

// metaTag builds a strategy reading the first matching meta tag content.
func metaTag(name string, keys ...string) strategy {
	return strategy{
		name: name,
		apply: func(c *content) string {
			return c.meta(keys...)
		},
	}
}

// selectorText builds a strategy returning the trimmed text of the first
// element matching a CSS selector.
func selectorText(name, selector string) strategy {
	return strategy{
		name: name,
		apply: func(c *content) string {
			doc := c.document()
			if doc == nil {
				return ""
			}
			return strings.TrimSpace(doc.Find(selector).First().Text())
		},
	}
}

// selectorAttr builds a strategy returning an attribute of the first element
// matching a CSS selector.
func selectorAttr(name, selector, attr string) strategy {
	return strategy{
		name: name,
		apply: func(c *content) string {
			doc := c.document()
			if doc == nil {
				return ""
			}
			v, _ := doc.Find(selector).First().Attr(attr)
			return v
		},
	}
}

// structured builds a strategy pulling one field out of the page's JSON-LD
// product data.
func structured(name string, field func(p *ldProduct) string) strategy {
	return strategy{
		name: name,
		apply: func(c *content) string {
			p := productJSONLD(c)
			if p == nil {
				return ""
			}
			return field(p)
		},
	}
}
