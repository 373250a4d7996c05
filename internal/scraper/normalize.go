package scraper

import (
	"strconv"
	"strings"
	"unicode"
)

// ParsePrice parses a raw price string into value and currency symbol.
// The first leading non-digit character is captured as the currency; all
// characters other than digits, '.' and ',' are stripped and ',' dropped
// before decimal parsing. A failed parse yields a nil price but preserves
// the currency if one was found.
func ParsePrice(raw string) (*float64, *string) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, nil
	}

	var currency *string
	if first := []rune(cleaned)[0]; !unicode.IsDigit(first) {
		sym := string(first)
		currency = &sym
	}

	var digits strings.Builder
	for _, ch := range cleaned {
		if unicode.IsDigit(ch) || ch == '.' || ch == ',' {
			digits.WriteRune(ch)
		}
	}
	numeric := strings.ReplaceAll(digits.String(), ",", "")

	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return nil, currency
	}
	return &value, currency
}

// ParseCount parses an integer counter such as "1,234 sold". All non-digit
// characters are stripped. A trailing "k" unit multiplies the numeric prefix
// by 1000 and truncates, so "2.3k" becomes 2300.
func ParseCount(raw string) *int {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return nil
	}

	// Unit suffix form: take the token carrying the "k" and scale it.
	if idx := strings.Index(cleaned, "k"); idx > 0 {
		prefix := strings.ReplaceAll(cleaned[:idx], ",", "")
		if f, err := strconv.ParseFloat(prefix, 64); err == nil {
			n := int(f * 1000)
			return &n
		}
	}

	var digits strings.Builder
	for _, ch := range cleaned {
		if unicode.IsDigit(ch) {
			digits.WriteRune(ch)
		}
	}
	if digits.Len() == 0 {
		return nil
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return nil
	}
	return &n
}

// ParseRating parses the first whitespace-separated token of raw as a float
// in [0, 5]. Anything else yields nil.
func ParseRating(raw string) *float64 {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || value < 0 || value > 5 {
		return nil
	}
	return &value
}

// ResolveURL resolves an href against the platform origin. Protocol-relative
// links get https, root-relative links get the origin prepended, absolute
// links pass through unchanged.
func ResolveURL(href, origin string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(origin, "/") + href
	default:
		return href
	}
}
