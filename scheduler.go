package auth

import (
	"context"
	"sync"
	"time"
)

// ResetExpiryScheduler emits an activity event when a password-reset window
// elapses without the code being redeemed. Timers are in-process only: a
// restart drops them, and the persisted expiry stays the actual gate. A
// successful consumption or a reissued reset cancels the pending timer, so
// the expired event never follows a completed reset.
type ResetExpiryScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	sink   ActivitySink
	logger Logger
}

// NewResetExpiryScheduler creates a scheduler recording into the given sink
func NewResetExpiryScheduler(sink ActivitySink, logger Logger) *ResetExpiryScheduler {
	if logger == nil {
		logger = defLogger{}
	}
	return &ResetExpiryScheduler{
		timers: make(map[string]*time.Timer),
		sink:   normalizeActivitySink(sink),
		logger: logger,
	}
}

// Schedule arms a one-shot timer for the account. An existing timer for the
// same account is replaced, which keeps reissued resets from double firing.
func (s *ResetExpiryScheduler) Schedule(accountID, email string, in time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[accountID]; ok {
		prev.Stop()
	}

	s.timers[accountID] = time.AfterFunc(in, func() {
		s.fire(accountID, email)
	})
}

// Cancel stops the pending timer for the account, reporting whether one was
// armed
func (s *ResetExpiryScheduler) Cancel(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[accountID]
	if !ok {
		return false
	}

	timer.Stop()
	delete(s.timers, accountID)
	return true
}

// Stop cancels every pending timer. Used on shutdown.
func (s *ResetExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *ResetExpiryScheduler) fire(accountID, email string) {
	s.mu.Lock()
	delete(s.timers, accountID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	event := ActivityEvent{
		EventType:  ActivityEventPasswordResetExpired,
		UserID:     accountID,
		Email:      email,
		OccurredAt: time.Now(),
	}

	if err := s.sink.Record(ctx, event); err != nil {
		s.logger.Warn("reset expiry event was not recorded: %s", err)
	}
}
