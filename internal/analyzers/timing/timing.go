// Package timing implements the per-response TimingAnalyzer of spec
// §4.6: speeder/flatliner classification and z-score anomaly
// detection against prior same-question responses, distinct from the
// session-wide behavioral timing analyzer.
package timing

import (
	"math"

	"github.com/ignite/survey-integrity-scorer/internal/config"
)

const (
	speederFloorMS   = 500
	speederCeilMS    = 2000
	flatlinerFloorMS = 5 * 60 * 1000
	flatlinerCeilMS  = 10 * 60 * 1000
)

// Result is one response's timing classification.
type Result struct {
	IsSpeeder   bool
	IsFlatliner bool
	AnomalyZ    *float64
}

// Analyze classifies one response_time_ms against the prior
// same-question response times in the survey. priorMS is the set of
// response_time_ms values from earlier responses to the same
// question; order doesn't matter.
func Analyze(responseMS int64, priorMS []int64, cfg config.TimingConfig) Result {
	speederThreshold := float64(cfg.SpeederMS)
	if speederThreshold <= 0 {
		speederThreshold = 2000
	}
	flatlinerThreshold := float64(cfg.FlatlinerMS)
	if flatlinerThreshold <= 0 {
		flatlinerThreshold = 300000
	}

	if cfg.AdaptiveEnabled && len(priorMS) >= 3 {
		mean, stddev := meanStddevInt(priorMS)
		k := cfg.AdaptiveK
		if k <= 0 {
			k = 1.0
		}
		speederThreshold = clamp(mean-k*stddev, speederFloorMS, speederCeilMS)
		flatlinerThreshold = clamp(mean+k*stddev, flatlinerFloorMS, flatlinerCeilMS)
	}

	res := Result{
		IsSpeeder:   float64(responseMS) < speederThreshold,
		IsFlatliner: float64(responseMS) > flatlinerThreshold,
	}

	if len(priorMS) >= 3 {
		mean, stddev := meanStddevInt(priorMS)
		if stddev > 0 {
			z := (float64(responseMS) - mean) / stddev
			res.AnomalyZ = &z
		} else {
			z := 0.0
			res.AnomalyZ = &z
		}
	}

	return res
}

// IsAnomaly reports whether a computed AnomalyZ crosses the
// configured threshold (default 2.5, §4.6).
func IsAnomaly(z *float64, cfg config.TimingConfig) bool {
	if z == nil {
		return false
	}
	threshold := cfg.AnomalyZ
	if threshold <= 0 {
		threshold = 2.5
	}
	return math.Abs(*z) > threshold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func meanStddevInt(xs []int64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	mean = sum / float64(len(xs))
	var sumSq float64
	for _, x := range xs {
		d := float64(x) - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / float64(len(xs)))
	return mean, stddev
}
