package domain

import "time"

// QuestionType is the closed enum of survey question kinds (§3).
type QuestionType string

const (
	QuestionOpenEnded QuestionType = "open_ended"
	QuestionGrid      QuestionType = "grid"
	QuestionSingle    QuestionType = "single"
	QuestionMulti     QuestionType = "multi"
	QuestionOther     QuestionType = "other"
)

// SurveyQuestion is captured question text (§3).
type SurveyQuestion struct {
	ID           string
	SessionID    string
	QuestionText string
	QuestionType QuestionType
	ElementID    string
	CreatedAt    time.Time
}

// FlagReason is one of the closed set of reasons a SurveyResponse may
// be flagged by the TextQualityAnalyzer (§3, §4.3).
type FlagReason string

const (
	FlagGibberish  FlagReason = "gibberish"
	FlagCopyPaste  FlagReason = "copy_paste"
	FlagIrrelevant FlagReason = "irrelevant"
	FlagGeneric    FlagReason = "generic"
	FlagLowQuality FlagReason = "low_quality"
)

// SurveyResponse is one answer, enriched by the TextQualityAnalyzer
// once classified (§3).
type SurveyResponse struct {
	ID              string
	SessionID       string
	QuestionID      string
	ResponseText    string
	ResponseTimeMS  int64

	// Filled by TextQualityAnalyzer; zero-valued/nil until analyzed.
	QualityScore *float64 // 0..100, nil if unanalyzed/unavailable
	IsFlagged    bool
	FlagReasons  []FlagReason
	Unavailable  bool // true if the classifier failed after retries
}

// GridResponseRow is one row of a grid/matrix question (§3).
type GridResponseRow struct {
	SessionID      string
	QuestionID     string
	RowID          string
	Value          string
	ResponseTimeMS int64
}

// TimingAnalysis is a per-response timing classification (§3, §4.6).
type TimingAnalysis struct {
	SessionID      string
	QuestionID     string
	ResponseTimeMS int64
	IsSpeeder      bool
	IsFlatliner    bool
	AnomalyZ       *float64 // nil when fewer than 3 prior observations exist
}
