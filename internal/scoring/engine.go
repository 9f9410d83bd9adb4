package scoring

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ignite/survey-integrity-scorer/internal/analyzers/behavioral"
	"github.com/ignite/survey-integrity-scorer/internal/analyzers/fraud"
	"github.com/ignite/survey-integrity-scorer/internal/analyzers/text"
	"github.com/ignite/survey-integrity-scorer/internal/clock"
	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/pkg/distlock"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

// lockTTL bounds how long a cross-process scoring lock is held before
// it expires on its own, so a crashed holder never wedges a session.
const lockTTL = 30 * time.Second

// Engine orchestrates one full scoring run for a session: behavioral
// analysis, text-quality analysis, fraud analysis, and the composite
// decision, persisted as a DetectionResult. Concurrent calls for the
// same session_id are coalesced via singleflight (spec §5: "the
// second caller receives the in-flight result, not a duplicate run").
type Engine struct {
	store store.Store
	clock clock.Clock
	text  *text.Analyzer
	fraud *fraud.Analyzer
	cfg   config.Config

	group singleflight.Group

	// newLock, when set, builds a cross-process lock for a session_id
	// so two server instances don't run the pipeline for the same
	// session at once. singleflight.Group only coalesces within one
	// process; WithDistLock extends that guarantee across the fleet.
	newLock func(sessionID string) distlock.DistLock
}

// NewEngine wires the full analyzer stack behind one scoring entry point.
func NewEngine(s store.Store, clk clock.Clock, textAnalyzer *text.Analyzer, fraudAnalyzer *fraud.Analyzer, cfg config.Config) *Engine {
	return &Engine{store: s, clock: clk, text: textAnalyzer, fraud: fraudAnalyzer, cfg: cfg}
}

// WithDistLock enables cross-process scoring coalescing. newLock
// builds a DistLock scoped to the given session_id; pass nil (the
// default) to run with process-local singleflight coalescing only.
func (e *Engine) WithDistLock(newLock func(sessionID string) distlock.DistLock) *Engine {
	e.newLock = newLock
	return e
}

// Score runs (or joins an in-flight run of) the full scoring pipeline
// for sessionID and persists the resulting DetectionResult. On
// context cancellation no partial result is written (§5).
func (e *Engine) Score(ctx context.Context, sessionID string) (*domain.DetectionResult, error) {
	v, err, _ := e.group.Do(sessionID, func() (interface{}, error) {
		if e.newLock == nil {
			return e.score(ctx, sessionID)
		}
		lock := e.newLock(sessionID)
		acquired, lockErr := lock.Acquire(ctx)
		if lockErr == nil && acquired {
			defer lock.Release(ctx)
		}
		// A lock we failed to acquire means another instance is
		// already scoring this session; we still run locally rather
		// than fail the caller, since WriteDetectionResult upserts on
		// (session_id, created_at): a duplicate run adds its own result
		// row and the latest one is what reads return, so it is wasted
		// work, not a correctness problem.
		return e.score(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.DetectionResult), nil
}

func (e *Engine) score(ctx context.Context, sessionID string) (*domain.DetectionResult, error) {
	start := e.clock.Now()

	sess, err := e.store.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events, err := e.store.ReadEvents(ctx, sessionID, store.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("scoring: read events: %w", err)
	}
	responses, err := e.store.ReadResponses(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("scoring: read responses: %w", err)
	}
	questions, err := e.store.ReadQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("scoring: read questions: %w", err)
	}
	questionText := map[string]string{}
	for _, q := range questions {
		questionText[q.ID] = q.QuestionText
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	behavioralScores := behavioral.Analyze(events, e.cfg.Behavioral)

	textOutcome := e.analyzeText(ctx, responses, questionText)

	fraudOutcome := domain.UnavailableOutcome()
	var fraudScorePtr *float64
	responseTexts := make([]string, 0, len(responses))
	for _, r := range responses {
		responseTexts = append(responseTexts, r.ResponseText)
	}
	declaredRegion := fraud.DeclaredRegionFromEvents(events)
	fraudIndicator := e.fraud.Analyze(ctx, sess, responseTexts, declaredRegion, start)
	if err := e.store.WriteFraudIndicator(ctx, &fraudIndicator); err == nil {
		fraudOutcome = domain.ValueOutcome(fraudIndicator.OverallFraudScore)
		score := fraudIndicator.OverallFraudScore
		fraudScorePtr = &score
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	composite := Score(behavioralScores.Confidence, textOutcome, fraudOutcome, e.cfg.Composite)

	var textScorePtr *float64
	if textOutcome.IsAvailable() {
		v := textOutcome.Val()
		textScorePtr = &v
	}

	isBot := composite.IsBot
	confidence := composite.Score
	var compositeScorePtr *float64
	if textOutcome.IsAvailable() || fraudOutcome.IsAvailable() {
		v := composite.Score
		compositeScorePtr = &v
	} else {
		// Case D: behavioral-only; keep confidence/is_bot on the
		// behavioral-only rule (strict >), distinct from the
		// composite's >= rule (§9 decision).
		isBot = behavioralScores.IsBot
		confidence = behavioralScores.Confidence
	}

	result := &domain.DetectionResult{
		SessionID:        sessionID,
		CreatedAt:        start,
		IsBot:            isBot,
		ConfidenceScore:  confidence,
		RiskLevel:        composite.RiskLevel,
		MethodScores:     behavioralScores.MethodScores(),
		ProcessingTimeMS: e.clock.Now().Sub(start).Milliseconds(),
		EventCount:       len(events),
		CompositeScore:   compositeScorePtr,
		TextQualityScore: textScorePtr,
		FraudScore:       fraudScorePtr,
		Summary:          summarize(isBot, composite.RiskLevel),
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := e.store.WriteDetectionResult(ctx, result); err != nil {
		return nil, fmt.Errorf("scoring: write detection result: %w", err)
	}
	return result, nil
}

func (e *Engine) analyzeText(ctx context.Context, responses []domain.SurveyResponse, questionText map[string]string) domain.Outcome {
	if e.text == nil || len(responses) == 0 {
		return domain.UnavailableOutcome()
	}
	ptrs := make([]*domain.SurveyResponse, len(responses))
	for i := range responses {
		ptrs[i] = &responses[i]
		e.text.AnalyzeResponse(ctx, questionText[responses[i].QuestionID], ptrs[i])
	}
	risk := text.SessionRisk(ptrs)
	for i := range responses {
		_ = e.store.UpdateResponseQuality(ctx, ptrs[i])
	}
	return risk
}

func summarize(isBot bool, risk domain.RiskLevel) string {
	label := "human"
	if isBot {
		label = "bot"
	}
	return fmt.Sprintf("classified %s, risk=%s", label, risk)
}
