package extract

import (
	"strings"

	"github.com/shuff57/wiSHlist-sub000/pkg/types"
)

// Generic fallback chains, applied to every page regardless of retailer:
// structured data first, then Open Graph / Twitter card meta tags, then
// plain document markup, then loose regex passes.
var (
	genericTitleChain = []strategy{
		structured("jsonld-name", func(p *ldProduct) string { return p.Name }),
		metaTag("og-title", "og:title", "twitter:title"),
		selectorText("title-tag", "title"),
		selectorText("first-h1", "h1"),
	}

	genericDescriptionChain = []strategy{
		structured("jsonld-description", func(p *ldProduct) string { return p.Description }),
		metaTag("og-description", "og:description", "twitter:description", "description"),
	}

	genericImageChain = []strategy{
		structured("jsonld-image", func(p *ldProduct) string { return p.Image }),
		strategy{name: "collected-images", apply: func(c *content) string {
			imgs := CollectImages(c)
			if len(imgs) == 0 {
				return ""
			}
			return imgs[0]
		}},
	}

	genericPriceChain = []strategy{
		structured("jsonld-price", func(p *ldProduct) string { return p.Price }),
		metaTag("product-price-meta", "product:price:amount", "og:price:amount"),
		selectorAttr("itemprop-price", `[itemprop="price"]`, "content"),
		strategy{name: "currency-token", apply: func(c *content) string {
			m := genericPricePattern.FindStringSubmatch(c.raw)
			if m == nil {
				return ""
			}
			return m[1]
		}},
	}
)

func genericMetadata(c *content) types.Metadata {
	return types.Metadata{
		Title:       decodeEntities(firstMatch(c, genericTitleChain)),
		Description: decodeEntities(firstMatch(c, genericDescriptionChain)),
		Image:       cleanImageCandidate(firstMatch(c, genericImageChain), c.base),
		Price:       NormalizePrice(firstMatch(c, genericPriceChain)),
	}
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
)

func decodeEntities(s string) string {
	return strings.TrimSpace(entityReplacer.Replace(s))
}
