package urlutil

import (
	"math"
	"testing"
)

func TestSimilaritySelf(t *testing.T) {
	urls := []string{
		"https://amazon.example/dp/B000ABCDEF?ref=xyz",
		"https://shop.example/item/42",
		"not a url",
	}
	for _, u := range urls {
		if got := Similarity(u, u); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %g, want 1.0", u, u, got)
		}
	}
}

func TestSimilarityIdenticalNormalizedForms(t *testing.T) {
	got := Similarity(
		"https://shop.example/item/42?color=red",
		"https://shop.example/item/42?color=blue",
	)
	if got != 1.0 {
		t.Fatalf("similarity = %g, want 1.0 for identical normalized forms", got)
	}
}

func TestSimilarityProductIDMatch(t *testing.T) {
	// Different paths, same positional product ID. Not a known retailer, so
	// the normalized forms differ and only the ID equality rule applies.
	got := Similarity(
		"https://retailer.example/dp/B000ABCDEF",
		"https://retailer.example/fancy-gadget/dp/B000ABCDEF",
	)
	if got != 0.95 {
		t.Fatalf("similarity = %g, want 0.95 for matching product IDs", got)
	}
}

func TestSimilarityJaccardCharacters(t *testing.T) {
	// Normalized forms "a.co/x" and "a.co/y": chars {a . c o / x} vs
	// {a . c o / y} intersect in 5 of 7 distinct characters.
	got := Similarity("https://a.co/x", "https://a.co/y")
	want := 5.0 / 7.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("similarity = %g, want %g", got, want)
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	if got := jaccardChars("abc", "xyz"); got != 0 {
		t.Fatalf("jaccard = %g, want 0 for disjoint character sets", got)
	}
}
