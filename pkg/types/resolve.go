package types

import (
	"net/http"
	"net/url"
	"time"
)

// Metadata holds the fields extracted from a product page. Any field the
// extractor cannot find is simply left empty; extraction failure of a single
// field is never an overall error.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Price       string `json:"price"`
}

// Empty reports whether no field was extracted at all.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Description == "" && m.Image == "" && m.Price == ""
}

// Merge overlays non-empty fields of over onto m and returns the result.
// Used to layer retailer-specific extraction on top of the generic pass.
func (m Metadata) Merge(over Metadata) Metadata {
	if over.Title != "" {
		m.Title = over.Title
	}
	if over.Description != "" {
		m.Description = over.Description
	}
	if over.Image != "" {
		m.Image = over.Image
	}
	if over.Price != "" {
		m.Price = over.Price
	}
	return m
}

// Page represents a fetched product page.
type Page struct {
	URL             *url.URL
	FinalURL        *url.URL
	Body            []byte
	ContentType     string
	StatusCode      int
	Headers         http.Header
	FetchedAt       time.Time
	Rendered        bool
	ResponseLatency time.Duration
}
