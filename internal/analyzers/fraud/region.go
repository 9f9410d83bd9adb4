package fraud

import (
	"strings"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// DeclaredRegionFromEvents derives the respondent's self-reported
// region from the most recent locale reading in a session's events
// (the same "scan for the latest reading" approach
// FingerprintFromEvents uses for device dimensions), taking the
// region subtag of a BCP 47 locale tag such as "en-US" -> "US". Empty
// when no event carried a locale, which leaves the geo mismatch check
// skipped rather than guessed at.
func DeclaredRegionFromEvents(events []domain.Event) string {
	var locale string
	for _, e := range events {
		if e.Payload.Locale != "" {
			locale = e.Payload.Locale
		}
	}
	return regionSubtag(locale)
}

// regionSubtag extracts the region subtag from a BCP 47 locale tag.
// Locale tags observed in the wild are either "language-REGION" or
// "language_REGION"; anything without a second subtag has no region
// to extract.
func regionSubtag(locale string) string {
	locale = strings.ReplaceAll(locale, "_", "-")
	parts := strings.Split(locale, "-")
	if len(parts) < 2 {
		return ""
	}
	region := parts[len(parts)-1]
	if len(region) != 2 {
		return ""
	}
	return strings.ToUpper(region)
}
