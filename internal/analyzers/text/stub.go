package text

import (
	"context"
	"hash/fnv"
)

// Stub is a deterministic TextClassifier for tests: results are
// seeded from the content hash of the request so the same input
// always produces the same output, with no network dependency
// (spec §8 scenario 6 exercises the outage path via Fail).
type Stub struct {
	// Fail, when set, makes every Classify call return this error
	// (used to simulate a classifier outage, §8 scenario 6).
	Fail error
}

func (s *Stub) Classify(_ context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.QuestionText + "\x00" + req.ResponseText))
	seed := float64(h.Sum32()%1000) / 1000.0

	return &ClassifyResult{
		Gibberish: Probability{Probability: seed * 0.3},
		CopyPaste: Probability{Probability: seed * 0.2},
		Relevance: Relevance{OffTopicProbability: seed * 0.25},
		Generic:   Probability{Probability: seed * 0.2},
		Quality:   Quality{Score: 40 + seed*60},
	}, nil
}
