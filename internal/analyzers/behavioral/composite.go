package behavioral

import (
	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// Scores holds the five per-method Outcomes plus the weighted
// behavioral_confidence and bot decision (§4.2.6).
type Scores struct {
	Keystroke domain.Outcome
	Mouse     domain.Outcome
	Timing    domain.Outcome
	Device    domain.Outcome
	Network   domain.Outcome

	Confidence float64
	IsBot      bool
}

// MethodScores flattens Scores into the map persisted on
// DetectionResult.MethodScores.
func (s Scores) MethodScores() map[string]float64 {
	return map[string]float64{
		"keystroke": s.Keystroke.Val(),
		"mouse":     s.Mouse.Val(),
		"timing":    s.Timing.Val(),
		"device":    s.Device.Val(),
		"network":   s.Network.Val(),
	}
}

// Analyze runs all five behavioral analyzers and folds them into the
// weighted behavioral_confidence (§4.2.6). Bot-ness here uses the
// strict > threshold (distinct from the composite's >= threshold,
// per the §9 decision to keep both cutoffs independently configurable).
func Analyze(events []domain.Event, cfg config.BehavioralConfig) Scores {
	s := Scores{
		Keystroke: Keystroke(events, cfg),
		Mouse:     Mouse(events, cfg),
		Timing:    Timing(events, cfg),
		Device:    Device(events, cfg),
		Network:   Network(NetworkSignals{}),
	}
	w := cfg.Weights
	s.Confidence = w.Keystroke*s.Keystroke.Val() + w.Mouse*s.Mouse.Val() +
		w.Timing*s.Timing.Val() + w.Device*s.Device.Val() + w.Network*s.Network.Val()
	s.IsBot = s.Confidence > cfg.BehavioralBotThreshold
	return s
}
