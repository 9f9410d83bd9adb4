// Package text implements the TextQualityAnalyzer (spec §4.3) and its
// TextClassifier collaborator contract (spec §6.2).
package text

import "context"

// ClassifyRequest is the TextClassifier request shape (§6.2).
type ClassifyRequest struct {
	QuestionText string
	ResponseText string
	MinLength    int
}

// Probability is a probability/evidence pair returned by the classifier.
type Probability struct {
	Probability float64
	Evidence    string
}

// Relevance is the off-topic probability/evidence pair.
type Relevance struct {
	OffTopicProbability float64
	Evidence            string
}

// Quality is the 0-100 quality score/rationale pair.
type Quality struct {
	Score     float64
	Rationale string
}

// ClassifyResult is the strict JSON object the classifier returns (§6.2).
type ClassifyResult struct {
	Gibberish  Probability
	CopyPaste  Probability
	Relevance  Relevance
	Generic    Probability
	Quality    Quality
}

// TextClassifier is the collaborator contract of §6.2: given a
// question/response pair, return the four probabilities and the
// quality score in one call.
type TextClassifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error)
}
