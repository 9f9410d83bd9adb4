package text

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a TextClassifier with a token-bucket limiter so a
// burst of ingest traffic cannot flood the upstream classifier. Wait
// blocks until a token is available or ctx is done, so the request's
// own deadline is the only bound on how long a caller waits; callers
// are never turned away with a "busy" error while tokens are pending.
type RateLimited struct {
	next    TextClassifier
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter admitting ratePerSecond
// requests/second with the given burst capacity.
func NewRateLimited(next TextClassifier, ratePerSecond float64, burst int) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (r *RateLimited) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Classify(ctx, req)
}
