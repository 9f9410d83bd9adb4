package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

func TestRegionSubtag_ExtractsRegionFromLocaleTag(t *testing.T) {
	assert.Equal(t, "US", regionSubtag("en-US"))
	assert.Equal(t, "FR", regionSubtag("fr_FR"))
}

func TestRegionSubtag_NoRegionSubtagReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", regionSubtag("en"))
	assert.Equal(t, "", regionSubtag(""))
}

func TestDeclaredRegionFromEvents_UsesLatestLocaleReading(t *testing.T) {
	events := []domain.Event{
		{EventType: domain.EventDeviceInfo, Payload: domain.Payload{Locale: "en-US"}},
		{EventType: domain.EventDeviceInfo, Payload: domain.Payload{Locale: "ja-JP"}},
	}
	assert.Equal(t, "JP", DeclaredRegionFromEvents(events))
}

func TestDeclaredRegionFromEvents_NoLocaleReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", DeclaredRegionFromEvents(nil))
}
