package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/secplus-trainer/backend/internal/domain/bookmark"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/session"
	"github.com/secplus-trainer/backend/internal/domain/testmode"
	"github.com/secplus-trainer/backend/internal/selector"
)

// DefaultQuestionCount applies when a config leaves the count unset.
const DefaultQuestionCount = 10

// ── Selection ───────────────────────────────────────────────────────────────

// normalize fills in defaults and rejects configs no selection can honor.
func (s *StudyService) normalize(cfg session.Config) (session.Config, error) {
	if cfg.Mode == "" {
		cfg.Mode = s.store.Settings().DefaultTestMode
	}
	if !cfg.Mode.Valid() {
		return cfg, fmt.Errorf("%w: unknown test mode %q", ErrInvalidConfig, cfg.Mode)
	}
	if cfg.Priority == "" {
		cfg.Priority = selector.PriorityMix
	}
	if !cfg.Priority.Valid() {
		return cfg, fmt.Errorf("%w: unknown question priority %q", ErrInvalidConfig, cfg.Priority)
	}
	if cfg.QuestionCount < 0 {
		return cfg, fmt.Errorf("%w: question count must not be negative", ErrInvalidConfig)
	}
	if cfg.TimeLimit < 0 {
		return cfg, fmt.Errorf("%w: time limit must not be negative", ErrInvalidConfig)
	}
	if cfg.Mode == testmode.DomainFocus && len(cfg.DomainNumbers) == 0 && len(cfg.QuestionIDs) == 0 {
		return cfg, fmt.Errorf("%w: domain focus needs at least one domain", ErrInvalidConfig)
	}
	if cfg.QuestionCount == 0 {
		switch {
		case len(cfg.QuestionIDs) > 0:
			cfg.QuestionCount = len(cfg.QuestionIDs)
		case cfg.Mode == testmode.ExamSimulation:
			cfg.QuestionCount = selector.ExamQuestionCount
		default:
			cfg.QuestionCount = DefaultQuestionCount
		}
	}
	return cfg, nil
}

// SelectQuestions resolves cfg to the question set a new session would get.
func (s *StudyService) SelectQuestions(cfg session.Config) ([]question.Question, error) {
	cfg, err := s.normalize(cfg)
	if err != nil {
		return nil, err
	}
	qs := s.selectQuestions(cfg)
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}
	return qs, nil
}

func (s *StudyService) selectQuestions(cfg session.Config) []question.Question {
	var qs []question.Question
	switch {
	case len(cfg.QuestionIDs) > 0:
		qs = s.catalog.ByIDs(uniqueIDs(cfg.QuestionIDs))
		if cfg.ShuffleQuestions {
			qs = s.selector.Shuffle(qs)
		}
		if len(qs) > cfg.QuestionCount {
			qs = qs[:cfg.QuestionCount]
		}
	case cfg.Mode == testmode.ExamSimulation && len(cfg.DomainNumbers) == 0:
		qs = s.selector.SelectByDomainWeights(s.catalog, s.blueprint(), cfg.QuestionCount)
	default:
		attempts := s.store.Attempts()
		incorrect := progress.IncorrectIDs(attempts)
		qs = s.selector.SelectForTest(selector.Request{
			Pool:      s.pool(cfg, incorrect),
			Count:     cfg.QuestionCount,
			Priority:  cfg.Priority,
			Incorrect: incorrect,
			Seen:      s.store.Seen(),
		})
	}

	if cfg.ShuffleOptions {
		qs = s.selector.ShuffleOptions(qs)
	}
	return qs
}

func (s *StudyService) pool(cfg session.Config, incorrect map[int]bool) []question.Question {
	pool := s.catalog.ByDomains(cfg.DomainNumbers)
	if cfg.Mode != testmode.Review {
		return pool
	}
	bookmarked := bookmark.IDs(s.store.Bookmarks())
	out := pool[:0:0]
	for _, q := range pool {
		if incorrect[q.ID] || bookmarked[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// blueprint derives exam weights from the catalog, falling back to the
// published default when the catalog carries none.
func (s *StudyService) blueprint() []selector.DomainWeight {
	if w := selector.BlueprintFromDomains(s.catalog.Domains()); len(w) > 0 {
		return w
	}
	return selector.DefaultExamBlueprint
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ── Lifecycle ───────────────────────────────────────────────────────────────

// StartSession selects questions for cfg, stores a new active session and
// starts its countdown when the config is timed.
func (s *StudyService) StartSession(ctx context.Context, cfg session.Config) (*session.Session, error) {
	cfg, err := s.normalize(cfg)
	if err != nil {
		return nil, err
	}
	qs := s.selectQuestions(cfg)
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}

	sess := session.Start(cfg, qs, s.now())
	if err := s.saved(s.store.StartSession(ctx, sess)); err != nil {
		return nil, err
	}
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("mode", string(sess.Mode)),
		zap.Int("questions", len(sess.Questions)),
		zap.Int("time_limit_min", cfg.TimeLimit),
	)
	s.startTimer(sess)
	return sess, nil
}

// Feedback is returned when the session reveals answers as they are given.
type Feedback struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

type AnswerResult struct {
	Session  *session.Session `json:"session"`
	Feedback *Feedback        `json:"feedback,omitempty"`
}

// AnswerQuestion records an answer on an active session and marks the
// question seen. Sessions that reveal answers immediately log the answer as
// an attempt and lock it, so a changed answer returns
// session.ErrAlreadyAnswered.
func (s *StudyService) AnswerQuestion(ctx context.Context, sessionID string, questionID int, answer string, timeSpent float64) (AnswerResult, error) {
	answer = strings.TrimSpace(answer)

	var q question.Question
	sess, err := s.store.UpdateSession(ctx, sessionID, func(sess *session.Session) error {
		if err := sess.RecordAnswer(questionID, answer, timeSpent); err != nil {
			return err
		}
		q, _ = sess.Question(questionID)
		return nil
	})
	if err := s.saved(err); err != nil {
		return AnswerResult{}, err
	}

	res := AnswerResult{Session: sess}
	if answer != "" && sess.Config.RecordsImmediately() {
		a := progress.NewAttempt(q, answer, sess.QuestionTimes[questionID], sess.Mode, sess.ID, s.now())
		if _, err := s.store.AddSessionAttempt(ctx, a); s.saved(err) != nil {
			return AnswerResult{}, err
		}
		res.Feedback = &Feedback{
			IsCorrect:     a.IsCorrect,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}

	if err := s.MarkSeen(ctx, questionID); err != nil {
		s.logger.Warn("failed to mark question seen", zap.Int("question_id", questionID), zap.Error(err))
	}
	return res, nil
}

// SubmitSession finalizes the session and returns its result view.
// Submitting twice returns session.ErrAlreadyCompleted.
func (s *StudyService) SubmitSession(ctx context.Context, sessionID string) (session.DisplaySession, error) {
	s.stopTimer(sessionID)
	done, err := s.finalize(ctx, sessionID, s.now())
	if err != nil {
		return session.DisplaySession{}, err
	}
	return session.Reconstruct(done, s.store.Attempts()), nil
}

func (s *StudyService) finalize(ctx context.Context, sessionID string, at time.Time) (*session.Session, error) {
	done, added, err := s.store.FinalizeSession(ctx, sessionID, at)
	if err := s.saved(err); err != nil {
		return nil, err
	}
	s.logger.Info("session submitted",
		zap.String("session_id", sessionID),
		zap.Float64("score", *done.Score),
		zap.Bool("passed", *done.Passed),
		zap.Int("attempts_recorded", len(added)),
	)
	return done, nil
}

// DeleteSession removes the session with its attempts and returns how many
// attempts went with it.
func (s *StudyService) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	s.stopTimer(sessionID)
	removed, err := s.store.DeleteSession(ctx, sessionID)
	if err := s.saved(err); err != nil {
		return 0, err
	}
	return removed, nil
}

// ── Session reads ───────────────────────────────────────────────────────────

func (s *StudyService) Sessions() []*session.Session {
	return s.store.Sessions()
}

// Session returns the session by id with its per-question results. An
// active session, such as one abandoned before submission, is scored from
// the answers given so far; Completed tells the two apart.
func (s *StudyService) Session(sessionID string) (session.DisplaySession, error) {
	sess, err := s.store.Session(sessionID)
	if err != nil {
		return session.DisplaySession{}, err
	}
	return session.Reconstruct(sess, s.store.Attempts()), nil
}

// TestHistory lists completed sessions newest first with their results.
func (s *StudyService) TestHistory() []session.DisplaySession {
	attempts := s.store.Attempts()
	var out []session.DisplaySession
	for _, sess := range s.store.Sessions() {
		if sess.Completed {
			out = append(out, session.Reconstruct(sess, attempts))
		}
	}
	return out
}

// ── Timers ──────────────────────────────────────────────────────────────────

// TimeRemaining reports the countdown of an active timed session.
func (s *StudyService) TimeRemaining(sessionID string) (time.Duration, bool) {
	s.mu.Lock()
	t, ok := s.timers[sessionID]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	return t.Remaining(), true
}

// ResumeTimers starts countdowns for every stored active timed session.
// Sessions whose deadline passed while nothing was running are submitted
// straight away.
func (s *StudyService) ResumeTimers() {
	for _, sess := range s.store.Sessions() {
		s.startTimer(sess)
	}
}

func (s *StudyService) startTimer(sess *session.Session) {
	deadline, ok := sess.Deadline()
	if !ok || sess.Completed {
		return
	}

	s.mu.Lock()
	if _, running := s.timers[sess.ID]; running {
		s.mu.Unlock()
		return
	}
	t := NewExamTimer(sess.ID, deadline, func(ctx context.Context, id string) error {
		at := s.now()
		if at.After(deadline) {
			at = deadline
		}
		_, err := s.finalize(ctx, id, at)
		return err
	}, s.logger, TimerOptions{Tick: s.tick, Now: s.now})
	s.timers[sess.ID] = t
	s.mu.Unlock()

	t.Start(s.ctx)
	go func() {
		<-t.Done()
		s.forgetTimer(sess.ID, t)
	}()
}

func (s *StudyService) forgetTimer(id string, t *ExamTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[id] == t {
		delete(s.timers, id)
	}
}

func (s *StudyService) stopTimer(id string) {
	s.mu.Lock()
	t, ok := s.timers[id]
	delete(s.timers, id)
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

func (s *StudyService) stopAllTimers() {
	s.mu.Lock()
	timers := s.timers
	s.timers = make(map[string]*ExamTimer)
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}
