package fraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

func TestDeriveFingerprint_SameInputsAreDeterministic(t *testing.T) {
	a := DeriveFingerprint("ua-1", 1920, 1080, 1920, 1080, "en-US")
	b := DeriveFingerprint("ua-1", 1920, 1080, 1920, 1080, "en-US")
	assert.Equal(t, a, b)
}

func TestDeriveFingerprint_DifferentInputsDiffer(t *testing.T) {
	a := DeriveFingerprint("ua-1", 1920, 1080, 1920, 1080, "en-US")
	b := DeriveFingerprint("ua-2", 1920, 1080, 1920, 1080, "en-US")
	assert.NotEqual(t, a, b)
}

func TestFingerprintFromEvents_UsesLatestScreenAndViewportReadings(t *testing.T) {
	events := []domain.Event{
		{
			EventType: domain.EventDeviceInfo,
			Timestamp: time.Now(),
			Payload:   domain.Payload{ScreenWidth: 1366, ScreenHeight: 768},
		},
		{
			EventType: domain.EventDeviceInfo,
			Timestamp: time.Now(),
			Payload:   domain.Payload{ViewportWidth: 1280, ViewportHeight: 720, Locale: "fr-FR"},
		},
	}

	got := FingerprintFromEvents("ua-1", events, "en-US")
	want := DeriveFingerprint("ua-1", 1366, 768, 1280, 720, "fr-FR")
	assert.Equal(t, want, got)
}

func TestFingerprintFromEvents_FallsBackToZeroDimensionsWithoutDeviceInfo(t *testing.T) {
	got := FingerprintFromEvents("ua-1", nil, "en-US")
	want := DeriveFingerprint("ua-1", 0, 0, 0, 0, "en-US")
	assert.Equal(t, want, got)
}
