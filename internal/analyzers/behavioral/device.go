package behavioral

import (
	"math"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

type resolution struct{ w, h int }

// Device implements §4.2.4. Never returns Neutral: with no screen
// data at all, every check is simply false and the score is 0.
func Device(events []domain.Event, cfg config.BehavioralConfig) domain.Outcome {
	screens := map[resolution]bool{}
	viewports := map[resolution]bool{}
	for _, e := range events {
		if e.HasScreenInfo() {
			screens[resolution{e.Payload.ScreenWidth, e.Payload.ScreenHeight}] = true
		}
		if e.HasViewportInfo() {
			viewports[resolution{e.Payload.ViewportWidth, e.Payload.ViewportHeight}] = true
		}
	}

	var contribution float64
	if len(screens) > 1 {
		contribution++
	}
	for r := range screens {
		if isBotResolution(r, cfg.BotResolutions) {
			contribution += 0.5
		}
	}
	if len(viewports) > 1 {
		contribution++
	}

	return domain.ValueOutcome(math.Min(contribution/3.0, 1.0))
}

func isBotResolution(r resolution, known [][2]int) bool {
	for _, k := range known {
		if r.w == k[0] && r.h == k[1] {
			return true
		}
	}
	return false
}

// Network implements §4.2.5: always neutral until request metadata
// (IP reputation, ASN, TLS fingerprint) is available at this layer.
// NetworkSignals is accepted but ignored, a deliberate extension point
// per the §9 decision: a future request-metadata source slots in here
// without changing the composite formula.
type NetworkSignals struct{}

func Network(_ NetworkSignals) domain.Outcome {
	return domain.NeutralOutcome()
}
