package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// genericPricePattern finds a currency-marked amount anywhere in the page,
// used as the lowest-priority price strategy.
var genericPricePattern = regexp.MustCompile(`\$\s?(\d{1,5}(?:,\d{3})*(?:\.\d{1,2})?)`)

// NormalizePrice strips non-numeric characters from a raw price string,
// requires a valid positive decimal, and formats it to two decimal places
// with a currency symbol. Anything that does not parse yields "".
func NormalizePrice(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return ""
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return ""
	}
	return fmt.Sprintf("$%.2f", value)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
