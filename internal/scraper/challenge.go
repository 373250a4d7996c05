package scraper

import "strings"

// challengeMarkers are the substrings that identify an anti-bot interstitial.
var challengeMarkers = []string{
	"captcha",
	"robot check",
}

// DetectChallenge scans fetched HTML for bot-challenge markers. The match is
// a case-insensitive substring check; the returned marker is the first one
// found.
func DetectChallenge(html string) (string, bool) {
	lowered := strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(lowered, marker) {
			return marker, true
		}
	}
	return "", false
}
