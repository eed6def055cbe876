package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ldProduct is the flattened view of a schema.org Product node.
type ldProduct struct {
	Name        string
	Description string
	Image       string
	Price       string
}

// productJSONLD scans every application/ld+json script on the page and
// returns the first Product node found, looking inside arrays and @graph
// containers. Malformed blocks are skipped silently; structured data on real
// retail pages is frequently broken.
func productJSONLD(c *content) *ldProduct {
	doc := c.document()
	if doc == nil {
		return nil
	}
	var product *ldProduct
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		if p := findProductNode(raw); p != nil {
			product = p
			return false
		}
		return true
	})
	return product
}

func findProductNode(raw any) *ldProduct {
	switch node := raw.(type) {
	case []any:
		for _, item := range node {
			if p := findProductNode(item); p != nil {
				return p
			}
		}
	case map[string]any:
		if isProductType(node["@type"]) {
			return flattenProduct(node)
		}
		if graph, ok := node["@graph"]; ok {
			return findProductNode(graph)
		}
	}
	return nil
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func flattenProduct(node map[string]any) *ldProduct {
	p := &ldProduct{
		Name:        stringValue(node["name"]),
		Description: stringValue(node["description"]),
		Image:       imageValue(node["image"]),
		Price:       offerPrice(node["offers"]),
	}
	return p
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// imageValue accepts the three shapes schema.org allows: a bare URL string,
// an array of URLs, or an ImageObject with a url key.
func imageValue(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []any:
		for _, item := range img {
			if s := imageValue(item); s != "" {
				return s
			}
		}
	case map[string]any:
		return stringValue(img["url"])
	}
	return ""
}

func offerPrice(v any) string {
	switch offers := v.(type) {
	case map[string]any:
		if price := priceValue(offers["price"]); price != "" {
			return price
		}
		return priceValue(offers["lowPrice"])
	case []any:
		for _, item := range offers {
			if price := offerPrice(item); price != "" {
				return price
			}
		}
	}
	return ""
}

func priceValue(v any) string {
	switch price := v.(type) {
	case string:
		return strings.TrimSpace(price)
	case float64:
		return trimFloat(price)
	}
	return ""
}
