package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw      string
		value    *float64
		currency *string
	}{
		{"$19.99", floatPtr(19.99), strPtr("$")},
		{"US $1,234.50", floatPtr(1234.5), strPtr("U")},
		{"€45,99", floatPtr(4599), strPtr("€")},
		{"19.99", floatPtr(19.99), nil},
		{"free", nil, strPtr("f")},
		{"", nil, nil},
		{"   ", nil, nil},
	}

	for _, tt := range tests {
		value, currency := ParsePrice(tt.raw)
		if tt.value == nil {
			assert.Nil(t, value, "raw %q", tt.raw)
		} else {
			require.NotNil(t, value, "raw %q", tt.raw)
			assert.Equal(t, *tt.value, *value, "raw %q", tt.raw)
		}
		if tt.currency == nil {
			assert.Nil(t, currency, "raw %q", tt.raw)
		} else {
			require.NotNil(t, currency, "raw %q", tt.raw)
			assert.Equal(t, *tt.currency, *currency, "raw %q", tt.raw)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw      string
		expected *int
	}{
		{"1,234 sold", intPtr(1234)},
		{"1234", intPtr(1234)},
		{"2.3k", intPtr(2300)},
		{"1.5K upvotes", intPtr(1500)},
		{"87 comments", intPtr(87)},
		{"0", intPtr(0)},
		{"", nil},
		{"sold out", nil},
	}

	for _, tt := range tests {
		got := ParseCount(tt.raw)
		if tt.expected == nil {
			assert.Nil(t, got, "raw %q", tt.raw)
		} else {
			require.NotNil(t, got, "raw %q", tt.raw)
			assert.Equal(t, *tt.expected, *got, "raw %q", tt.raw)
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw      string
		expected *float64
	}{
		{"4.7 out of 5 stars", floatPtr(4.7)},
		{"4.7", floatPtr(4.7)},
		{"0", floatPtr(0)},
		{"5.0", floatPtr(5.0)},
		{"9.9", nil},
		{"-1", nil},
		{"stars", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := ParseRating(tt.raw)
		if tt.expected == nil {
			assert.Nil(t, got, "raw %q", tt.raw)
		} else {
			require.NotNil(t, got, "raw %q", tt.raw)
			assert.Equal(t, *tt.expected, *got, "raw %q", tt.raw)
		}
	}
}

func TestResolveURL(t *testing.T) {
	origin := "https://www.amazon.com"

	assert.Equal(t, "https://cdn.example.com/x.jpg", ResolveURL("//cdn.example.com/x.jpg", origin))
	assert.Equal(t, "https://www.amazon.com/dp/B0X", ResolveURL("/dp/B0X", origin))
	assert.Equal(t, "https://other.com/page", ResolveURL("https://other.com/page", origin))
	assert.Equal(t, "", ResolveURL("  ", origin))
	assert.Equal(t, "https://www.amazon.com/dp/B0X", ResolveURL("/dp/B0X", origin+"/"))
}
