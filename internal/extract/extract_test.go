package extract

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestExtractor() *Extractor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const amazonPage = `<html><head>
<meta property="og:title" content="Fallback Title"/>
<meta property="og:image" content="https://m.media.example/og.jpg"/>
</head><body>
<span id="productTitle"> Deluxe Pencil Case, 24 Slots </span>
<script>var data = {"hiRes":"https://m.media.example/71abcDEF.jpg","thumb":"x"};</script>
<span class="a-offscreen">$24.99</span>
</body></html>`

func TestExtractAmazonChains(t *testing.T) {
	e := newTestExtractor()
	meta := e.Extract("https://www.amazon.com/dp/B000ABCDEF", []byte(amazonPage))

	if meta.Title != "Deluxe Pencil Case, 24 Slots" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Image != "https://m.media.example/71abcDEF.jpg" {
		t.Errorf("image = %q, want the hiRes variant over og:image", meta.Image)
	}
	if meta.Price != "$24.99" {
		t.Errorf("price = %q", meta.Price)
	}
}

func TestExtractPriceFallbackChain(t *testing.T) {
	// Page lacking every retailer-specific price marker but carrying a
	// generic currency token: the lower-priority generic pattern wins.
	page := `<html><body><span id="productTitle">Thing</span>
	<p>Now only $12.99 while stocks last</p></body></html>`

	e := newTestExtractor()
	meta := e.Extract("https://www.amazon.com/dp/B000ABCDEF", []byte(page))
	if meta.Price != "$12.99" {
		t.Fatalf("price = %q, want $12.99 via generic fallback", meta.Price)
	}
}

func TestExtractGenericOpenGraph(t *testing.T) {
	page := `<html><head>
	<meta property="og:title" content="Classroom Globe"/>
	<meta property="og:description" content="A 12&quot; globe for classrooms"/>
	<meta property="og:image" content="//cdn.example/globe.jpg"/>
	<meta property="product:price:amount" content="34.5"/>
	</head><body></body></html>`

	e := newTestExtractor()
	meta := e.Extract("https://unknown-shop.example/products/globe", []byte(page))

	if meta.Title != "Classroom Globe" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Description != `A 12" globe for classrooms` {
		t.Errorf("description = %q", meta.Description)
	}
	if meta.Image != "https://cdn.example/globe.jpg" {
		t.Errorf("image = %q, want protocol-relative upgrade", meta.Image)
	}
	if meta.Price != "$34.50" {
		t.Errorf("price = %q, want two decimal places", meta.Price)
	}
}

func TestExtractJSONLDProduct(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@context":"https://schema.org","@graph":[
	  {"@type":"WebSite","name":"shop"},
	  {"@type":"Product","name":"Reading Rug","description":"Soft rug",
	   "image":["https://cdn.example/rug.jpg"],
	   "offers":{"@type":"Offer","price":"89.00","priceCurrency":"USD"}}
	]}</script></head><body></body></html>`

	e := newTestExtractor()
	meta := e.Extract("https://unknown-shop.example/rug", []byte(page))

	if meta.Title != "Reading Rug" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Image != "https://cdn.example/rug.jpg" {
		t.Errorf("image = %q", meta.Image)
	}
	if meta.Price != "$89.00" {
		t.Errorf("price = %q", meta.Price)
	}
}

func TestExtractAllFieldsMissingIsNotAnError(t *testing.T) {
	e := newTestExtractor()
	meta := e.Extract("https://unknown-shop.example/x", []byte("<html><body><p>nothing here</p></body></html>"))
	if !meta.Empty() {
		t.Fatalf("metadata = %+v, want empty", meta)
	}
}

func TestNormalizePrice(t *testing.T) {
	cases := map[string]string{
		"$12.99":       "$12.99",
		"12.99":        "$12.99",
		"USD 1,234.56": "$1234.56",
		"34.5":         "$34.50",
		"  $7  ":       "$7.00",
		"free":         "",
		"":             "",
		"$0":           "",
		"1.2.3":        "",
	}
	for input, want := range cases {
		if got := NormalizePrice(input); got != want {
			t.Errorf("NormalizePrice(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCollectImages(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><head><meta property="og:image" content="https://cdn.example/main.jpg"/></head><body>`)
	b.WriteString(`<img src="https://cdn.example/site-logo.png">`)
	b.WriteString(`<img src="https://cdn.example/favicon-icon.png">`)
	b.WriteString(`<img src="https://cdn.example/main.jpg">`) // duplicate of og:image
	for i := 0; i < 15; i++ {
		b.WriteString(`<img src="https://cdn.example/photo-` + string(rune('a'+i)) + `.jpg">`)
	}
	b.WriteString(`</body></html>`)

	c := newContent("https://shop.example/item", []byte(b.String()))
	images := CollectImages(c)

	if len(images) != 10 {
		t.Fatalf("collected %d images, want cap of 10", len(images))
	}
	if images[0] != "https://cdn.example/main.jpg" {
		t.Fatalf("first image = %q, want the og:image", images[0])
	}
	for _, img := range images {
		if isLogoLike(img) {
			t.Fatalf("logo-like image %q not filtered", img)
		}
	}
	seen := map[string]bool{}
	for _, img := range images {
		if seen[img] {
			t.Fatalf("duplicate image %q", img)
		}
		seen[img] = true
	}
}

func TestCleanImageCandidate(t *testing.T) {
	cases := []struct {
		raw, base, want string
	}{
		{`https://cdn.example/a.jpg`, "https://shop.example/p", "https://cdn.example/a.jpg"},
		{"//cdn.example/b.jpg", "https://shop.example/p", "https://cdn.example/b.jpg"},
		{"/images/c.jpg", "https://shop.example/p", "https://shop.example/images/c.jpg"},
		{"https://cdn.example/logo.png", "https://shop.example/p", ""},
		{"data:image/png;base64,xyz", "https://shop.example/p", ""},
	}
	for _, tc := range cases {
		c := newContent(tc.base, nil)
		if got := cleanImageCandidate(tc.raw, c.base); got != tc.want {
			t.Errorf("cleanImageCandidate(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestResizeURL(t *testing.T) {
	got := ResizeURL("https://cdn.example/a.jpg", 300, 200)
	for _, fragment := range []string{"images.weserv.nl", "w=300", "h=200", "fit=cover", "url=https%3A%2F%2Fcdn.example%2Fa.jpg"} {
		if !strings.Contains(got, fragment) {
			t.Errorf("resize url %q missing %q", got, fragment)
		}
	}
}

func TestResizeURLPassthrough(t *testing.T) {
	cases := []string{
		"https://placehold.co/300x200",
		"https://images.weserv.nl/?url=x&w=1&h=1",
		"",
	}
	for _, raw := range cases {
		if got := ResizeURL(raw, 300, 200); got != raw {
			t.Errorf("ResizeURL(%q) = %q, want passthrough", raw, got)
		}
	}
}
