// Package fraud implements the cross-session FraudAnalyzer of spec
// §4.4: IP reuse, device fingerprint reuse, duplicate-text similarity,
// geolocation, and response velocity, combined into a weighted
// overall fraud score.
package fraud

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// DeriveFingerprint computes the deterministic device fingerprint of
// §4.4 from the user_agent + screen + viewport + locale tuple
// observed on a session. The same tuple always yields the same
// fingerprint so cross-session comparisons are index-local.
func DeriveFingerprint(userAgent string, screenW, screenH, viewportW, viewportH int, locale string) string {
	raw := fmt.Sprintf("%s|%dx%d|%dx%d|%s", userAgent, screenW, screenH, viewportW, viewportH, locale)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// FingerprintFromEvents scans a session's events for the most recent
// screen/viewport/locale reading and derives the fingerprint, falling
// back to zero dimensions when no device_info-bearing event exists.
func FingerprintFromEvents(userAgent string, events []domain.Event, locale string) string {
	var screenW, screenH, viewportW, viewportH int
	for _, e := range events {
		if e.HasScreenInfo() {
			screenW, screenH = e.Payload.ScreenWidth, e.Payload.ScreenHeight
		}
		if e.HasViewportInfo() {
			viewportW, viewportH = e.Payload.ViewportWidth, e.Payload.ViewportHeight
		}
		if e.Payload.Locale != "" {
			locale = e.Payload.Locale
		}
	}
	return DeriveFingerprint(userAgent, screenW, screenH, viewportW, viewportH, locale)
}
