// Package behavioral implements the five pure-function behavioral
// analyzers of spec §4.2: Keystroke, Mouse, Timing, Device, Network,
// plus the weighted composite of §4.2.6.
package behavioral

import (
	"math"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// Keystroke implements §4.2.1. Requires at least cfg.MinKeystrokeEvents
// keystroke events; below that, returns Neutral.
func Keystroke(events []domain.Event, cfg config.BehavioralConfig) domain.Outcome {
	var ts []float64
	for _, e := range events {
		if e.EventType == domain.EventKeystroke {
			ts = append(ts, float64(e.Timestamp.UnixNano())/1e6)
		}
	}
	if len(ts) < cfg.MinKeystrokeEvents {
		return domain.NeutralOutcome()
	}

	deltas := make([]float64, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		d := ts[i] - ts[i-1]
		if d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) < 4 {
		return domain.NeutralOutcome()
	}

	mean, sd := meanStddev(deltas)

	roundCount := 0
	for _, d := range deltas {
		if math.Mod(d, 10) == 0 {
			roundCount++
		}
	}
	roundShare := float64(roundCount) / float64(len(deltas))

	checks := 0
	if sd < cfg.KeystrokeRegularMS {
		checks++
	}
	if mean < cfg.KeystrokeFastMS {
		checks++
	}
	if mean > cfg.KeystrokeSlowMS {
		checks++
	}
	if roundShare > cfg.KeystrokeRoundShare {
		checks++
	}

	return domain.ValueOutcome(math.Min(float64(checks)/4.0, 1.0))
}

func meanStddev(xs []float64) (mean, stddev float64) {
	n := float64(len(xs))
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / n)
	return mean, stddev
}
