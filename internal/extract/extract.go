// Package extract recovers title, description, image, and price from fetched
// product pages. Each retailer is modelled as an ordered list of independent
// extraction strategies per field; strategies are evaluated in order and the
// first non-empty, plausibly-typed result wins. Unknown hosts use the generic
// path only. A missing field is simply left absent; extraction failure is
// never an overall error.
package extract

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shuff57/wiSHlist-sub000/pkg/types"
)

// Extractor dispatches fetched HTML to retailer-specific pattern chains with
// a generic fallback.
type Extractor struct {
	retailers []*retailer
	logger    *slog.Logger
}

// New constructs an extractor with the built-in retailer chains.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		retailers: builtinRetailers(),
		logger:    logger,
	}
}

// Extract runs the generic pass and layers retailer-specific enhancement on
// top, preferring retailer-specific fields when present.
func (e *Extractor) Extract(pageURL string, body []byte) types.Metadata {
	c := newContent(pageURL, body)
	meta := genericMetadata(c)

	if r := e.retailerFor(c.host()); r != nil {
		specific := types.Metadata{
			Title:       firstMatch(c, r.title),
			Description: firstMatch(c, r.description),
			Image:       cleanImageCandidate(firstMatch(c, r.image), c.base),
			Price:       NormalizePrice(firstMatch(c, r.price)),
		}
		e.logger.Debug("retailer extraction",
			"retailer", r.name,
			"title", specific.Title != "",
			"image", specific.Image != "",
			"price", specific.Price != "",
		)
		meta = meta.Merge(specific)
	}
	return meta
}

func (e *Extractor) retailerFor(host string) *retailer {
	for _, r := range e.retailers {
		if r.matches(host) {
			return r
		}
	}
	return nil
}

// content carries the raw HTML plus a lazily parsed document so regex
// strategies never pay the DOM parse cost.
type content struct {
	raw    string
	base   *url.URL
	doc    *goquery.Document
	parsed bool
}

func newContent(pageURL string, body []byte) *content {
	c := &content{raw: string(body)}
	if u, err := url.Parse(pageURL); err == nil {
		c.base = u
	}
	return c
}

func (c *content) host() string {
	if c.base == nil {
		return ""
	}
	return strings.ToLower(c.base.Hostname())
}

func (c *content) document() *goquery.Document {
	if !c.parsed {
		c.parsed = true
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(c.raw)))
		if err == nil {
			c.doc = doc
		}
	}
	return c.doc
}

// meta returns the content attribute of the first matching meta tag,
// checking both property= and name= forms.
func (c *content) meta(keys ...string) string {
	doc := c.document()
	if doc == nil {
		return ""
	}
	for _, key := range keys {
		sel := doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`).First()
		if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
