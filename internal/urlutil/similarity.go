package urlutil

// Similarity scores how alike two URLs are, in [0,1]. Rules are evaluated in
// order and the first applicable wins:
//
//  1. identical normalized forms score 1.0
//  2. equal product IDs score 0.95 (very likely the same item without being
//     a byte-identical URL)
//  3. otherwise the Jaccard similarity over the character sets of the two
//     normalized strings
//
// The character-set Jaccard is deliberately cheap and order-insensitive. It
// can over-match URLs that share an alphabet without sharing structure; that
// is a known precision limitation of the scheme, not something callers
// should try to compensate for.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	ida, idb := ProductID(a), ProductID(b)
	if ida != "" && ida == idb {
		return 0.95
	}
	return jaccardChars(na, nb)
}

func jaccardChars(a, b string) float64 {
	setA := make(map[rune]struct{}, len(a))
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{}, len(b))
	for _, r := range b {
		setB[r] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
