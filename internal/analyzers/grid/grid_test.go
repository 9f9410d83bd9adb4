package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

func rowsOf(values ...string) []domain.GridResponseRow {
	rows := make([]domain.GridResponseRow, len(values))
	for i, v := range values {
		rows[i] = domain.GridResponseRow{QuestionID: "q1", RowID: string(rune('a' + i)), Value: v}
	}
	return rows
}

func TestAnalyze_TooFewRowsReturnsZeroResult(t *testing.T) {
	cfg := config.Default().Grid
	res := Analyze(rowsOf("3"), cfg)
	assert.False(t, res.StraightLined)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestAnalyze_StraightLining(t *testing.T) {
	cfg := config.Default().Grid
	res := Analyze(rowsOf("3", "3", "3", "3", "3"), cfg)
	assert.True(t, res.StraightLined)
	assert.Equal(t, 1.0, res.StraightLineShare)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestAnalyze_NotStraightLiningBelowThreshold(t *testing.T) {
	cfg := config.Default().Grid
	res := Analyze(rowsOf("1", "2", "3", "4", "5"), cfg)
	assert.False(t, res.StraightLined)
}

func TestMatchPattern_Diagonal(t *testing.T) {
	assert.Equal(t, PatternDiagonal, matchPattern(rowsOf("1", "2", "3", "4")))
}

func TestMatchPattern_ReverseDiagonal(t *testing.T) {
	assert.Equal(t, PatternReverseDiagonal, matchPattern(rowsOf("5", "4", "3", "2")))
}

func TestMatchPattern_Zigzag(t *testing.T) {
	assert.Equal(t, PatternZigzag, matchPattern(rowsOf("1", "5", "1", "5")))
}

func TestMatchPattern_NonNumericIsNone(t *testing.T) {
	assert.Equal(t, PatternNone, matchPattern(rowsOf("agree", "disagree", "neutral")))
}

func TestMatchPattern_NoneWhenRandom(t *testing.T) {
	assert.Equal(t, PatternNone, matchPattern(rowsOf("3", "1", "4", "5", "2")))
}

func TestVarianceScore_NumericAndCategoryFallback(t *testing.T) {
	numeric := varianceScore(rowsOf("1", "2", "3", "4", "5"))
	assert.Greater(t, numeric, 0.0)

	allSame := varianceScore(rowsOf("1", "1", "1"))
	assert.Equal(t, 0.0, allSame)

	categorical := varianceScore(rowsOf("red", "blue", "red", "green"))
	assert.GreaterOrEqual(t, categorical, 0.0)
	assert.LessOrEqual(t, categorical, 1.0)
}

func TestSatisficingScore_FastUniformRowsScoreHigh(t *testing.T) {
	rows := []domain.GridResponseRow{
		{QuestionID: "q1", RowID: "a", Value: "3", ResponseTimeMS: 200},
		{QuestionID: "q1", RowID: "b", Value: "3", ResponseTimeMS: 200},
		{QuestionID: "q1", RowID: "c", Value: "3", ResponseTimeMS: 200},
	}
	variance := varianceScore(rows)
	score := satisficingScore(variance, rows)
	assert.Greater(t, score, 0.8)
}

func TestSatisficingScore_NoTimingFallsBackToVarianceOnly(t *testing.T) {
	rows := rowsOf("3", "3", "3")
	variance := varianceScore(rows)
	score := satisficingScore(variance, rows)
	assert.Equal(t, 1.0-variance, score)
}

func TestAnalyze_RowsSortedByRowIDBeforePatternMatch(t *testing.T) {
	cfg := config.Default().Grid
	shuffled := []domain.GridResponseRow{
		{QuestionID: "q1", RowID: "c", Value: "3"},
		{QuestionID: "q1", RowID: "a", Value: "1"},
		{QuestionID: "q1", RowID: "b", Value: "2"},
	}
	res := Analyze(shuffled, cfg)
	assert.Equal(t, PatternDiagonal, res.Pattern)
}
