package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/secplus-trainer/backend/internal/domain/session"
)

// SubmitFunc finalizes the session with the given id.
type SubmitFunc func(ctx context.Context, sessionID string) error

type TimerOptions struct {
	Tick time.Duration    // defaults to one second
	Now  func() time.Time // defaults to time.Now
}

// ExamTimer counts down a timed session and submits it once the deadline
// passes. It fires at most once.
type ExamTimer struct {
	sessionID string
	deadline  time.Time
	submit    SubmitFunc
	logger    *zap.Logger
	tick      time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewExamTimer(sessionID string, deadline time.Time, submit SubmitFunc, logger *zap.Logger, opts TimerOptions) *ExamTimer {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamTimer{
		sessionID: sessionID,
		deadline:  deadline,
		submit:    submit,
		logger:    logger.With(zap.String("session_id", sessionID)),
		tick:      opts.Tick,
		now:       opts.Now,
	}
}

// Start runs the countdown in the background until the deadline passes,
// Stop is called or ctx is cancelled. Calling Start twice has no effect.
func (t *ExamTimer) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.run(ctx)
}

func (t *ExamTimer) run(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		if t.Remaining() <= 0 {
			t.expire(ctx)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *ExamTimer) expire(ctx context.Context) {
	// once started, the submit outlives Stop
	err := t.submit(context.WithoutCancel(ctx), t.sessionID)
	switch {
	case err == nil:
		t.logger.Info("time limit reached, session submitted")
	case errors.Is(err, session.ErrAlreadyCompleted):
		t.logger.Debug("time limit reached after session was submitted")
	default:
		t.logger.Error("failed to submit expired session", zap.Error(err))
	}
}

// Stop cancels the countdown and waits for the timer goroutine to exit.
// It must not be called from the submit callback.
func (t *ExamTimer) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Remaining is the time left before the deadline, never negative.
func (t *ExamTimer) Remaining() time.Duration {
	d := t.deadline.Sub(t.now())
	if d < 0 {
		return 0
	}
	return d
}

// Done is closed when the timer goroutine exits. It is nil before Start.
func (t *ExamTimer) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *ExamTimer) Deadline() time.Time {
	return t.deadline
}
