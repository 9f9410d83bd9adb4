package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/survey-integrity-scorer/internal/clock"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/idgen"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

func TestSummarize_EmptySliceReturnsZeroedSummary(t *testing.T) {
	s := store.NewMemory(clock.Fixed{}, idgen.NewSequential("sess"))
	svc := New(s)

	summary, err := svc.Summarize(context.Background(), store.HierarchyFilter{SurveyID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalSessions)
	assert.Equal(t, 0.0, summary.BotDetection.BotRate)
}

func TestSummarize_ComputesBotRateAndRiskDistribution(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := store.NewMemory(clk, idgen.NewSequential("sess"))
	svc := New(s)

	sess1, err := s.CreateSession(ctx, "survey-1", "platform-1", "respondent-1", "ua", "1.1.1.1")
	require.NoError(t, err)
	sess2, err := s.CreateSession(ctx, "survey-1", "platform-1", "respondent-2", "ua", "2.2.2.2")
	require.NoError(t, err)

	require.NoError(t, s.WriteDetectionResult(ctx, &domain.DetectionResult{
		SessionID: sess1.ID, CreatedAt: clk.Now(), IsBot: true, ConfidenceScore: 0.9, RiskLevel: domain.RiskCritical,
	}))
	require.NoError(t, s.WriteDetectionResult(ctx, &domain.DetectionResult{
		SessionID: sess2.ID, CreatedAt: clk.Now(), IsBot: false, ConfidenceScore: 0.3, RiskLevel: domain.RiskLow,
	}))

	summary, err := svc.Summarize(ctx, store.HierarchyFilter{SurveyID: "survey-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalSessions)
	assert.Equal(t, 1, summary.BotDetection.BotCount)
	assert.Equal(t, 1, summary.BotDetection.HumanCount)
	assert.Equal(t, 50.0, summary.BotDetection.BotRate)
	assert.Equal(t, 1, summary.RiskDistribution[domain.RiskCritical])
	assert.Equal(t, 1, summary.RiskDistribution[domain.RiskLow])
}

func TestSummarizeFraud_ComputesDuplicatePercentage(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := store.NewMemory(clk, idgen.NewSequential("sess"))
	svc := New(s)

	sess, err := s.CreateSession(ctx, "survey-1", "platform-1", "respondent-1", "ua", "1.1.1.1")
	require.NoError(t, err)
	require.NoError(t, s.WriteFraudIndicator(ctx, &domain.FraudIndicator{
		SessionID: sess.ID, SurveyID: "survey-1", OverallFraudScore: 0.8, IsDuplicate: true,
		FlagReasons: map[string]domain.FraudFlagReason{"ip": domain.FraudFlagIPReuse},
	}))

	summary, err := svc.SummarizeFraud(ctx, store.HierarchyFilter{SurveyID: "survey-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalSessions)
	assert.Equal(t, 1, summary.DuplicateCount)
	assert.Equal(t, 100.0, summary.DuplicatePercentage)
	assert.Equal(t, 0.8, summary.AvgFraudScore)
	assert.Equal(t, 1, summary.FlagCounts[domain.FraudFlagIPReuse])
}

func TestSummarizeTiming_ComputesPercentages(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := store.NewMemory(clk, idgen.NewSequential("sess"))
	svc := New(s)

	sess, err := s.CreateSession(ctx, "survey-1", "platform-1", "respondent-1", "ua", "1.1.1.1")
	require.NoError(t, err)
	require.NoError(t, s.WriteTimingAnalysis(ctx, &domain.TimingAnalysis{
		SessionID: sess.ID, QuestionID: "q1", IsSpeeder: true,
	}))
	require.NoError(t, s.WriteTimingAnalysis(ctx, &domain.TimingAnalysis{
		SessionID: sess.ID, QuestionID: "q2", IsFlatliner: true,
	}))

	summary, err := svc.SummarizeTiming(ctx, store.HierarchyFilter{SurveyID: "survey-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalResponses)
	assert.Equal(t, 1, summary.SpeederCount)
	assert.Equal(t, 50.0, summary.SpeederPercentage)
	assert.Equal(t, 1, summary.FlatlinerCount)
	assert.Equal(t, 50.0, summary.FlatlinerPercentage)
}

func TestRatioAndAverage_ZeroTotalsDoNotDivideByZero(t *testing.T) {
	assert.Equal(t, 0.0, ratio(5, 0))
	assert.Equal(t, 0.0, average(5, 0))
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 33.3, round1(33.333333))
	assert.Equal(t, 66.7, round1(66.666666))
}
