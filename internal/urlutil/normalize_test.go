package urlutil

import "testing"

func TestNormalizeRetailerCanonicalization(t *testing.T) {
	cases := map[string]string{
		"https://amazon.example/dp/B000ABCDEF?ref=xyz":                  "amazon:B000ABCDEF",
		"https://www.amazon.com/Some-Product-Name/dp/B01N5IB20Q?th=1":   "amazon:B01N5IB20Q",
		"https://www.amazon.co.uk/gp/product/B07PGL2ZSL/ref=ppx_yo_dt":  "amazon:B07PGL2ZSL",
		"https://www.amazon.com/gp/aw/d/B08XYZABCD":                     "amazon:B08XYZABCD",
		"https://www.amazon.com/stores/page/whatever":                   "www.amazon.com/stores/page/whatever",
		"https://shop.example/item/42?utm_source=mail&utm_medium=email": "shop.example/item/42",
		"HTTPS://Shop.Example/Item/42#reviews":                          "shop.example/item/42",
	}
	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://amazon.example/dp/B000ABCDEF?ref=xyz",
		"https://shop.example/item/42",
		"https://www.amazon.com/stores/page/whatever",
		"not a url at all",
		"",
		"https://retailer.example/dp/B000ABCDEF?color=red",
	}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestNormalizeDegradedFallback(t *testing.T) {
	// Unparseable input must never panic; it normalises to its lowercase form.
	if got := Normalize("HTTP://%ZZ-not-valid"); got != "http://%zz-not-valid" {
		t.Fatalf("degraded fallback = %q", got)
	}
}

func TestNormalizeDropsQueryNotPath(t *testing.T) {
	a := Normalize("https://shop.example/item/42?color=red")
	b := Normalize("https://shop.example/item/42?color=blue")
	c := Normalize("https://shop.example/item/43?color=red")
	if a != b {
		t.Errorf("tracking parameters should not differentiate keys: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("path differences must differentiate keys: %q", a)
	}
}

func TestProductID(t *testing.T) {
	cases := map[string]string{
		"https://amazon.example/dp/B000ABCDEF?ref=xyz":        "B000ABCDEF",
		"https://retailer.example/gadget/dp/B000ABCDEF":       "B000ABCDEF",
		"https://www.amazon.com/gp/product/B07PGL2ZSL/ref=sr": "B07PGL2ZSL",
		"https://shop.example/item/42":                        "",
		"https://amazon.example/dp/tooShort":                  "",
		"https://amazon.example/dp/B000ABCDEFGH":              "",
	}
	for input, want := range cases {
		if got := ProductID(input); got != want {
			t.Errorf("ProductID(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestHashFixedLength(t *testing.T) {
	a := Hash("amazon:B000ABCDEF")
	b := Hash("shop.example/item/42")
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("hash lengths %d and %d, want 64", len(a), len(b))
	}
	if a == b {
		t.Fatal("distinct keys should not collide")
	}
	if a != Hash("amazon:B000ABCDEF") {
		t.Fatal("hash must be deterministic")
	}
}
