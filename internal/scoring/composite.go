// Package scoring implements the CompositeScorer (spec §4.7) and the
// per-session scoring Engine that coalesces concurrent runs (spec §5).
package scoring

import (
	"strings"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// Composite is the blended score, decision, and risk level produced
// by CompositeScorer for one session.
type Composite struct {
	Score     float64 // behavioral when text and fraud are both unavailable
	IsBot     bool
	RiskLevel domain.RiskLevel
}

// Score implements the four weighting cases of §4.7, selecting the
// case by which of text/fraud are available, then applies the
// composite bot threshold and risk-band/low-trust-inversion rules.
func Score(behavioral float64, text, fraud domain.Outcome, cfg config.CompositeConfig) Composite {
	w := cfg.Weights
	var composite float64

	switch {
	case text.IsAvailable() && fraud.IsAvailable():
		composite = w.FullBehavioral*behavioral + w.FullText*text.Val() + w.FullFraud*fraud.Val()
	case !text.IsAvailable() && fraud.IsAvailable():
		composite = w.NoTextBehavioral*behavioral + w.NoTextFraud*fraud.Val()
	case text.IsAvailable() && !fraud.IsAvailable():
		composite = w.NoFraudBehavioral*behavioral + w.NoFraudText*text.Val()
	default:
		composite = behavioral
	}

	botThreshold := cfg.BotThreshold
	if botThreshold <= 0 {
		botThreshold = 0.70
	}
	isBot := composite >= botThreshold

	risk := riskLevel(composite, cfg.RiskBands)
	if !isBot {
		cutoff := cfg.HumanLowTrustCutoff
		if cutoff <= 0 {
			cutoff = 0.50
		}
		if composite < cutoff && risk != domain.RiskHigh && risk != domain.RiskCritical {
			risk = domain.RiskHigh
		}
	}

	return Composite{Score: composite, IsBot: isBot, RiskLevel: risk}
}

// riskLevel maps a score to a risk band. Bands are assumed ordered
// descending by GE (the config default and Validate() both enforce
// this); the first matching band wins.
func riskLevel(score float64, bands []config.RiskBand) domain.RiskLevel {
	for _, b := range bands {
		if score >= b.GE {
			return domain.RiskLevel(strings.ToLower(b.Level))
		}
	}
	return domain.RiskLow
}
