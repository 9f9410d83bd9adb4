package text

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimited_AllowsBurstThenDelegates(t *testing.T) {
	stub := &Stub{}
	rl := NewRateLimited(stub, 1000, 5)

	result, err := rl.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestRateLimited_WaitRespectsContextCancellation(t *testing.T) {
	stub := &Stub{}
	// A limiter with zero burst and a very slow refill rate forces Wait
	// to block on the context deadline rather than ever admitting the call.
	rl := NewRateLimited(stub, 0.001, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := rl.Classify(ctx, ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	assert.Error(t, err)
}

func TestRateLimited_PropagatesUnderlyingClassifierError(t *testing.T) {
	stub := &Stub{Fail: assert.AnError}
	rl := NewRateLimited(stub, 1000, 5)

	_, err := rl.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	assert.ErrorIs(t, err, assert.AnError)
}
