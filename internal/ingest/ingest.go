// Package ingest implements the Ingest boundary (spec §4.2): validate
// and append behavioral events to a session's event log.
package ingest

import (
	"context"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/pkg/keyedmutex"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

// Service validates and appends event batches. Two concurrent batches
// for the same session are serialized with an in-process keyed mutex
// so the cap check and the append happen atomically from the caller's
// point of view, even though the Store also enforces the cap inside
// its own transaction.
type Service struct {
	store    store.Store
	locks    *keyedmutex.Map
	eventCap int
}

// New builds an Ingest service. eventCap is the per-session
// event_count ceiling (spec §4.2, default 10000 per §6.4).
func New(s store.Store, eventCap int) *Service {
	return &Service{store: s, locks: keyedmutex.New(), eventCap: eventCap}
}

// AppendEvents validates every event in the batch, then appends the
// whole batch to sessionID's event log. A single invalid event fails
// the entire batch (spec §4.2: validation is per-request, not
// per-event partial acceptance) so the caller can fix and resubmit.
func (s *Service) AppendEvents(ctx context.Context, sessionID string, events []domain.Event) (accepted, total int, err error) {
	if sessionID == "" {
		return 0, 0, domain.NewError(domain.KindValidationFailed, "session_id is required", nil)
	}
	for i := range events {
		events[i].SessionID = sessionID
		if err := events[i].Validate(); err != nil {
			return 0, 0, err
		}
	}

	err = s.locks.With(sessionID, func() error {
		var innerErr error
		accepted, total, innerErr = s.store.AppendEvents(ctx, sessionID, events, s.eventCap)
		return innerErr
	})
	return accepted, total, err
}
