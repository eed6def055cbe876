package extract

import "strings"

// retailer holds ordered extraction chains for one retailer's page
// templates. Hostname matching is by substring, so regional storefronts
// (amazon.co.uk, amazon.de) share a chain. Adding a retailer is additive:
// append to builtinRetailers without touching the dispatch path.
type retailer struct {
	name        string
	hosts       []string
	title       []strategy
	description []strategy
	image       []strategy
	price       []strategy
}

func (r *retailer) matches(host string) bool {
	for _, h := range r.hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

func builtinRetailers() []*retailer {
	return []*retailer{
		{
			name:  "amazon",
			hosts: []string{"amazon"},
			title: []strategy{
				pattern("product-title-span", `<span[^>]+id="productTitle"[^>]*>\s*([^<]+?)\s*</span>`),
				metaTag("og-title", "og:title"),
			},
			description: []strategy{
				pattern("feature-bullet", `(?s)<div[^>]+id="feature-bullets"[^>]*>.*?<span class="a-list-item">\s*([^<]+?)\s*</span>`),
				metaTag("meta-description", "description"),
			},
			image: []strategy{
				pattern("landing-image-dynamic", `"hiRes":"(https:[^"]+)"`),
				pattern("landing-image-old-hires", `<img[^>]+id="landingImage"[^>]+data-old-hires="([^"]+)"`),
				pattern("landing-image-src", `<img[^>]+id="landingImage"[^>]+src="([^"]+)"`),
				metaTag("og-image", "og:image"),
			},
			price: []strategy{
				pattern("priceblock-ourprice", `<span[^>]+id="priceblock_ourprice"[^>]*>\s*([^<]+?)\s*</span>`),
				pattern("priceblock-dealprice", `<span[^>]+id="priceblock_dealprice"[^>]*>\s*([^<]+?)\s*</span>`),
				pattern("a-offscreen", `<span class="a-offscreen">\s*(\$[\d,.]+)\s*</span>`),
				pattern("twister-price-data", `"priceAmount":\s*([\d.]+)`),
			},
		},
		{
			name:  "walmart",
			hosts: []string{"walmart"},
			title: []strategy{
				pattern("item-title-json", `"name":"([^"]{3,200}?)","brand"`),
				selectorText("main-title", `h1[itemprop="name"]`),
			},
			image: []strategy{
				pattern("hero-image-json", `"imageSrc":"(https:[^"]+)"`),
				selectorAttr("hero-image", `img[data-testid="hero-image"]`, "src"),
			},
			price: []strategy{
				pattern("current-price-json", `"currentPrice":\{"price":([\d.]+)`),
				selectorAttr("itemprop-price", `[itemprop="price"]`, "content"),
			},
		},
		{
			name:  "target",
			hosts: []string{"target.com"},
			title: []strategy{
				selectorText("pdp-title", `h1[data-test="product-title"]`),
			},
			price: []strategy{
				pattern("offer-price-json", `"current_retail":([\d.]+)`),
				selectorText("pdp-price", `span[data-test="product-price"]`),
			},
		},
		{
			name:  "etsy",
			hosts: []string{"etsy.com"},
			title: []strategy{
				selectorText("listing-title", `h1[data-buy-box-listing-title]`),
			},
			image: []strategy{
				selectorAttr("carousel-image", `img[data-carousel-first-image]`, "src"),
				pattern("listing-image-json", `"image_url_fullxfull":"([^"]+)"`),
			},
			price: []strategy{
				pattern("buy-box-price", `(?s)<p[^>]+class="[^"]*wt-text-title-larger[^"]*"[^>]*>.*?(\$[\d,.]+)`),
			},
		},
		{
			name:  "bestbuy",
			hosts: []string{"bestbuy"},
			title: []strategy{
				selectorText("sku-title", `.sku-title h1`),
			},
			price: []strategy{
				pattern("customer-price-json", `"customerPrice":([\d.]+)`),
				pattern("priceview-price", `(?s)<div[^>]+class="[^"]*priceView-customer-price[^"]*"[^>]*>\s*<span[^>]*>\s*(\$[\d,.]+)`),
			},
		},
	}
}
