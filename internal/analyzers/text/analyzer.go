package text

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ignite/survey-integrity-scorer/internal/analyzers/text/textcache"
	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

const flagThreshold = 0.70

// Analyzer runs the TextQualityAnalyzer of spec §4.3: per-response
// classification via a TextClassifier collaborator, priority-ordered
// flagging, and a session-level text-quality risk score.
type Analyzer struct {
	classifier TextClassifier
	cache      *textcache.Cache
	group      singleflight.Group
	cfg        config.ClassifierConfig
}

// NewAnalyzer wires a TextClassifier behind a content-addressed cache
// and a singleflight.Group that dedupes concurrent identical calls
// (spec §5).
func NewAnalyzer(classifier TextClassifier, cache *textcache.Cache, cfg config.ClassifierConfig) *Analyzer {
	return &Analyzer{classifier: classifier, cache: cache, cfg: cfg}
}

// AnalyzeResponse classifies one response and fills in its quality
// fields in place. It returns the per-response confidence (mean of
// the four probabilities) and whether the response was analyzable.
func (a *Analyzer) AnalyzeResponse(ctx context.Context, question string, resp *domain.SurveyResponse) (confidence float64, analyzed bool) {
	minLen := a.cfg.MinResponseLength
	if minLen <= 0 {
		minLen = 10
	}
	if len(strings.TrimSpace(resp.ResponseText)) < minLen {
		resp.Unavailable = true
		return 0, false
	}

	result, err := a.classify(ctx, question, resp.ResponseText, minLen)
	if err != nil {
		resp.Unavailable = true
		return 0, false
	}

	reasons := classify(*result)
	resp.FlagReasons = reasons
	resp.IsFlagged = len(reasons) > 0
	score := result.Quality.Score
	resp.QualityScore = &score
	resp.Unavailable = false

	confidence = (result.Gibberish.Probability + result.Relevance.OffTopicProbability +
		result.CopyPaste.Probability + result.Generic.Probability) / 4.0
	return confidence, true
}

// classify assigns flag reasons in the §4.3 priority order, suppressing
// redundant lower-priority checks once a higher-priority flag fires.
func classify(r ClassifyResult) []domain.FlagReason {
	var reasons []domain.FlagReason

	switch {
	case r.Gibberish.Probability > flagThreshold:
		// skip irrelevant, generic and low_quality checks; copy_paste still applies.
		reasons = append(reasons, domain.FlagGibberish)
		if r.CopyPaste.Probability >= flagThreshold {
			reasons = append(reasons, domain.FlagCopyPaste)
		}
	case r.Relevance.OffTopicProbability >= flagThreshold:
		// skip generic only.
		reasons = append(reasons, domain.FlagIrrelevant)
		if r.CopyPaste.Probability >= flagThreshold {
			reasons = append(reasons, domain.FlagCopyPaste)
		}
		if r.Quality.Score < 30 {
			reasons = append(reasons, domain.FlagLowQuality)
		}
	default:
		if r.CopyPaste.Probability >= flagThreshold {
			reasons = append(reasons, domain.FlagCopyPaste)
		}
		if r.Generic.Probability > flagThreshold {
			reasons = append(reasons, domain.FlagGeneric)
		}
		if r.Quality.Score < 30 {
			reasons = append(reasons, domain.FlagLowQuality)
		}
	}

	return reasons
}

// SessionRisk computes the §4.3 session text-quality risk from the
// set of responses already run through AnalyzeResponse. Returns
// UnavailableOutcome if no response was analyzable.
func SessionRisk(responses []*domain.SurveyResponse) domain.Outcome {
	var sum float64
	var n int
	for _, r := range responses {
		if r.Unavailable || r.QualityScore == nil {
			continue
		}
		sum += *r.QualityScore
		n++
	}
	if n == 0 {
		return domain.UnavailableOutcome()
	}
	mean := sum / float64(n)
	return domain.ValueOutcome(1.0 - mean/100.0)
}

func (a *Analyzer) classify(ctx context.Context, question, response string, minLen int) (*ClassifyResult, error) {
	key := contentHash(question, response)

	if cached, ok := a.cache.Get(key); ok {
		result := cached.(*ClassifyResult)
		return result, nil
	}

	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		result, err := a.classifier.Classify(ctx, ClassifyRequest{
			QuestionText: question,
			ResponseText: response,
			MinLength:    minLen,
		})
		if err != nil {
			return nil, err
		}
		a.cache.Set(key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClassifyResult), nil
}

// contentHash hashes the normalized (question, response) pair for the
// content-addressed cache key (§4.3, §5).
func contentHash(question, response string) string {
	norm := normalize(question) + "\x00" + normalize(response)
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
