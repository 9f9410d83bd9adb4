// Package aggregation implements the AggregationService of spec
// §4.8: rolled-up summaries at Survey, Platform, Respondent, and
// Session levels, backed entirely by Store's index-only Aggregator
// methods — no per-session fan-out.
package aggregation

import (
	"context"
	"math"
	"time"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

// Service answers hierarchical rollup queries.
type Service struct {
	store store.Aggregator
}

// New builds an AggregationService over any Aggregator (the full
// Store, or a narrower read-replica implementation).
func New(s store.Aggregator) *Service {
	return &Service{store: s}
}

// DateRange echoes the requested window back in a summary.
type DateRange struct {
	From time.Time
	To   time.Time
}

// BotDetectionSummary is the bot-detection rollup shape shared by
// every hierarchy level (§4.8).
type BotDetectionSummary struct {
	TotalDetections int
	BotCount        int
	HumanCount      int
	BotRate         float64
	AvgConfidence   float64
}

// EventsSummary is the event-volume rollup shape.
type EventsSummary struct {
	Total        int
	AvgPerSession float64
}

// TextQualitySummary is the text-quality rollup shape.
type TextQualitySummary struct {
	TotalResponses     int
	AvgQualityScore    float64
	FlaggedCount       int
	FlaggedPercentage  float64
}

// Summary is the full §4.8 contract shape, reused for Survey,
// Platform, Respondent, and Session level queries.
type Summary struct {
	TotalSessions        int
	TotalRespondents     int
	TotalPlatforms       int
	PlatformDistribution map[string]int

	BotDetection     BotDetectionSummary
	RiskDistribution map[domain.RiskLevel]int
	Events           EventsSummary
	TextQuality      TextQualitySummary

	DateRange DateRange
}

// Summarize computes the full rollup for one hierarchy slice. Empty
// slices return zeroed aggregates, never errors (§4.8 invariant).
func (s *Service) Summarize(ctx context.Context, filter store.HierarchyFilter) (Summary, error) {
	sessionStats, err := s.store.SessionStats(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	detectionStats, err := s.store.DetectionStats(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	eventStats, err := s.store.EventStats(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	textStats, err := s.store.TextQualityStats(ctx, filter)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		TotalSessions:        sessionStats.TotalSessions,
		TotalRespondents:     sessionStats.TotalRespondents,
		TotalPlatforms:       sessionStats.TotalPlatforms,
		PlatformDistribution: sessionStats.PlatformDistribution,
		RiskDistribution:     detectionStats.RiskDistribution,
		DateRange:            DateRange{From: filter.DateFrom, To: filter.DateTo},
	}

	summary.BotDetection = BotDetectionSummary{
		TotalDetections: detectionStats.TotalDetections,
		BotCount:        detectionStats.BotCount,
		HumanCount:      detectionStats.HumanCount,
		BotRate:         round1(ratio(detectionStats.BotCount, detectionStats.TotalDetections) * 100),
		AvgConfidence:   round1(average(detectionStats.SumConfidence, detectionStats.TotalDetections)),
	}

	summary.Events = EventsSummary{
		Total:         eventStats.Total,
		AvgPerSession: round1(average(float64(eventStats.Total), eventStats.SessionsCounted)),
	}

	summary.TextQuality = TextQualitySummary{
		TotalResponses:    textStats.TotalResponses,
		AvgQualityScore:   round1(average(textStats.SumQuality, textStats.QualityCount)),
		FlaggedCount:      textStats.FlaggedCount,
		FlaggedPercentage: round1(ratio(textStats.FlaggedCount, textStats.TotalResponses) * 100),
	}

	return summary, nil
}

// FraudSummary is the fraud rollup shape at any hierarchy level.
type FraudSummary struct {
	TotalSessions     int
	DuplicateCount    int
	DuplicatePercentage float64
	AvgFraudScore     float64
	FlagCounts        map[domain.FraudFlagReason]int
}

// SummarizeFraud computes the fraud rollup for one hierarchy slice.
func (s *Service) SummarizeFraud(ctx context.Context, filter store.HierarchyFilter) (FraudSummary, error) {
	stats, err := s.store.FraudStats(ctx, filter)
	if err != nil {
		return FraudSummary{}, err
	}
	return FraudSummary{
		TotalSessions:       stats.TotalSessions,
		DuplicateCount:      stats.DuplicateCount,
		DuplicatePercentage: round1(ratio(stats.DuplicateCount, stats.TotalSessions) * 100),
		AvgFraudScore:       round1(average(stats.SumFraudScore, stats.TotalSessions)),
		FlagCounts:          stats.FlagCounts,
	}, nil
}

// GridSummary is the grid-analysis rollup shape at any hierarchy level.
type GridSummary struct {
	TotalGroups         int
	StraightLinedCount  int
	StraightLinedPercentage float64
	PatternCount        int
	AvgVariance         float64
}

// SummarizeGrid computes the grid rollup for one hierarchy slice.
func (s *Service) SummarizeGrid(ctx context.Context, filter store.HierarchyFilter) (GridSummary, error) {
	stats, err := s.store.GridStats(ctx, filter)
	if err != nil {
		return GridSummary{}, err
	}
	return GridSummary{
		TotalGroups:             stats.TotalGroups,
		StraightLinedCount:      stats.StraightLinedCount,
		StraightLinedPercentage: round1(ratio(stats.StraightLinedCount, stats.TotalGroups) * 100),
		PatternCount:            stats.PatternCount,
		AvgVariance:             round1(average(stats.SumVariance, stats.TotalGroups)),
	}, nil
}

// TimingSummary is the per-response timing rollup shape at any
// hierarchy level.
type TimingSummary struct {
	TotalResponses    int
	SpeederCount      int
	SpeederPercentage float64
	FlatlinerCount    int
	FlatlinerPercentage float64
	AnomalyCount      int
}

// SummarizeTiming computes the timing rollup for one hierarchy slice.
func (s *Service) SummarizeTiming(ctx context.Context, filter store.HierarchyFilter) (TimingSummary, error) {
	stats, err := s.store.TimingStats(ctx, filter)
	if err != nil {
		return TimingSummary{}, err
	}
	return TimingSummary{
		TotalResponses:      stats.TotalResponses,
		SpeederCount:        stats.SpeederCount,
		SpeederPercentage:   round1(ratio(stats.SpeederCount, stats.TotalResponses) * 100),
		FlatlinerCount:      stats.FlatlinerCount,
		FlatlinerPercentage: round1(ratio(stats.FlatlinerCount, stats.TotalResponses) * 100),
		AnomalyCount:        stats.AnomalyCount,
	}, nil
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func average(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
