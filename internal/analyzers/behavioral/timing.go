package behavioral

import (
	"sort"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// Timing implements the session-wide analyzer of §4.2.3 (distinct
// from the per-response TimingAnalyzer of §4.6). Requires at least
// cfg.MinTimingEvents events; below that, returns Neutral.
func Timing(events []domain.Event, cfg config.BehavioralConfig) domain.Outcome {
	if len(events) < cfg.MinTimingEvents {
		return domain.NeutralOutcome()
	}

	first, last := events[0].Timestamp, events[0].Timestamp
	ts := make([]float64, 0, len(events))
	for _, e := range events {
		if e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
		ts = append(ts, float64(e.Timestamp.UnixNano())/1e9)
	}
	durationS := last.Sub(first).Seconds()

	checks := 0
	if durationS < cfg.SessionMinDurationS {
		checks++
	}
	if durationS > 0 && float64(len(events))/durationS > cfg.SessionMaxRateEvS {
		checks++
	}

	sort.Float64s(ts)
	intervals := make([]float64, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		intervals = append(intervals, ts[i]-ts[i-1])
	}
	if len(intervals) > 0 {
		_, sd := meanStddev(intervals)
		if sd < cfg.SessionIntervalStddevS {
			checks++
		}
	}

	return domain.ValueOutcome(float64(checks) / 3.0)
}
