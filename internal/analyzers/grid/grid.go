// Package grid implements the GridAnalyzer of spec §4.5: per
// grid-question straight-lining, pattern, variance, and satisficing
// detection over a respondent's matrix-question rows.
package grid

import (
	"math"
	"sort"
	"strconv"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// Pattern is one of the three response-shape templates checked for
// patterned (non-random) grid answers.
type Pattern string

const (
	PatternNone             Pattern = ""
	PatternDiagonal         Pattern = "diagonal"
	PatternReverseDiagonal  Pattern = "reverse_diagonal"
	PatternZigzag           Pattern = "zigzag"
)

// Result is the per-question-group analysis of §4.5.
type Result struct {
	QuestionID        string
	StraightLined     bool
	StraightLineShare float64
	Confidence        float64
	Pattern           Pattern
	VarianceScore     float64
	SatisficingScore  float64
}

const confidenceCap = 0.95

// Analyze scores one grid-question group. Returns the zero Result
// with Confidence 0 when fewer than cfg.MinRows rows are present (§4.5
// "requires >= 2 rows").
func Analyze(rows []domain.GridResponseRow, cfg config.GridConfig) Result {
	questionID := ""
	if len(rows) > 0 {
		questionID = rows[0].QuestionID
	}
	res := Result{QuestionID: questionID}
	minRows := cfg.MinRows
	if minRows <= 0 {
		minRows = 2
	}
	if len(rows) < minRows {
		return res
	}

	ordered := make([]domain.GridResponseRow, len(rows))
	copy(ordered, rows)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].RowID < ordered[j].RowID })

	res.StraightLineShare, res.StraightLined, res.Confidence = straightLine(ordered, cfg)

	patternMinRows := cfg.PatternMinRows
	if patternMinRows <= 0 {
		patternMinRows = 3
	}
	if len(ordered) >= patternMinRows {
		res.Pattern = matchPattern(ordered)
	}

	res.VarianceScore = varianceScore(ordered)
	res.SatisficingScore = satisficingScore(res.VarianceScore, ordered)

	return res
}

// straightLine reports the modal-value share, whether it crosses the
// flag threshold, and a confidence that scales with both the share
// and the row count, capped at 0.95.
func straightLine(rows []domain.GridResponseRow, cfg config.GridConfig) (share float64, flagged bool, confidence float64) {
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.Value]++
	}
	var modal int
	for _, c := range counts {
		if c > modal {
			modal = c
		}
	}
	share = float64(modal) / float64(len(rows))

	threshold := cfg.StraightlineShare
	if threshold <= 0 {
		threshold = 0.80
	}
	flagged = share >= threshold

	rowFactor := math.Min(float64(len(rows))/10.0, 1.0)
	confidence = math.Min(share*rowFactor, confidenceCap)
	if !flagged {
		confidence = math.Min(confidence, threshold-0.01)
	}
	return share, flagged, confidence
}

// matchPattern tests the three shape templates in the listed order,
// returning the first match (§4.5 tie-break rule).
func matchPattern(rows []domain.GridResponseRow) Pattern {
	values := make([]float64, len(rows))
	ok := true
	for i, r := range rows {
		v, err := strconv.ParseFloat(r.Value, 64)
		if err != nil {
			ok = false
			break
		}
		values[i] = v
	}
	if !ok {
		return PatternNone
	}

	if isMonotonic(values, 1) {
		return PatternDiagonal
	}
	if isMonotonic(values, -1) {
		return PatternReverseDiagonal
	}
	if isZigzag(values) {
		return PatternZigzag
	}
	return PatternNone
}

// isMonotonic reports whether values strictly increase (dir=1) or
// strictly decrease (dir=-1) index-over-index.
func isMonotonic(values []float64, dir float64) bool {
	for i := 1; i < len(values); i++ {
		if (values[i]-values[i-1])*dir <= 0 {
			return false
		}
	}
	return true
}

// isZigzag reports whether values alternate up/down every step.
func isZigzag(values []float64) bool {
	if len(values) < 3 {
		return false
	}
	up := values[1] > values[0]
	for i := 2; i < len(values); i++ {
		stepUp := values[i] > values[i-1]
		if stepUp == up {
			return false
		}
		up = stepUp
	}
	return true
}

// varianceScore normalizes the stddev of numeric values into [0,1],
// or falls back to category entropy when values aren't numeric.
func varianceScore(rows []domain.GridResponseRow) float64 {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		v, err := strconv.ParseFloat(r.Value, 64)
		if err != nil {
			return categoryEntropy(rows)
		}
		values = append(values, v)
	}
	mean, stddev := meanStddev(values)
	if mean == 0 {
		return 0
	}
	normalized := stddev / mean
	return math.Min(normalized, 1.0)
}

func categoryEntropy(rows []domain.GridResponseRow) float64 {
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.Value]++
	}
	n := float64(len(rows))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy == 0 {
		return 0
	}
	return 1.0 - entropy/maxEntropy
}

// satisficingScore blends low variance with fast per-row timing
// (when timing data is present) into a single [0,1] score.
func satisficingScore(variance float64, rows []domain.GridResponseRow) float64 {
	lowVariance := 1.0 - variance

	var totalTime int64
	var timed int
	for _, r := range rows {
		if r.ResponseTimeMS > 0 {
			totalTime += r.ResponseTimeMS
			timed++
		}
	}
	if timed == 0 {
		return lowVariance
	}
	avgMS := float64(totalTime) / float64(timed)
	const fastRowMS = 1000.0 // rows answered faster than this look satisficed
	fastFactor := math.Max(0, math.Min(1, 1.0-avgMS/(2*fastRowMS)))

	return 0.6*lowVariance + 0.4*fastFactor
}

func meanStddev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / float64(len(xs)))
	return mean, stddev
}
