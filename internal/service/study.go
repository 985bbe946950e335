// internal/service/study.go
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/secplus-trainer/backend/internal/catalog"
	"github.com/secplus-trainer/backend/internal/domain/bookmark"
	"github.com/secplus-trainer/backend/internal/domain/note"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/testmode"
	"github.com/secplus-trainer/backend/internal/selector"
	"github.com/secplus-trainer/backend/internal/store"
)

var (
	ErrNoQuestions     = errors.New("no questions match the selection")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidConfig   = errors.New("invalid test configuration")
)

// SeenFilter restricts a custom pick by whether questions were shown before.
type SeenFilter string

const (
	SeenAll    SeenFilter = "all"
	SeenOnly   SeenFilter = "seen"
	UnseenOnly SeenFilter = "unseen"
)

// StudyService is the application facade: every read and write the UI
// performs goes through it. It owns the exam timers of running sessions.
type StudyService struct {
	catalog  *catalog.Catalog
	store    *store.Store
	selector *selector.Selector
	logger   *zap.Logger
	now      func() time.Time
	tick     time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[string]*ExamTimer
}

type Options struct {
	Now       func() time.Time // defaults to time.Now
	TimerTick time.Duration    // defaults to one second
}

// NewStudyService creates a StudyService. Call Close to stop its timers.
func NewStudyService(cat *catalog.Catalog, st *store.Store, sel *selector.Selector, logger *zap.Logger, opts Options) *StudyService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TimerTick <= 0 {
		opts.TimerTick = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StudyService{
		catalog:  cat,
		store:    st,
		selector: sel,
		logger:   logger,
		now:      opts.Now,
		tick:     opts.TimerTick,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[string]*ExamTimer),
	}
}

// Close stops every running exam timer.
func (s *StudyService) Close() {
	s.cancel()
	s.stopAllTimers()
}

// saved drops write failures: the store has already logged them and kept
// the change in memory, so the caller proceeds as if it was saved.
func (s *StudyService) saved(err error) error {
	if errors.Is(err, store.ErrWriteFailure) {
		return nil
	}
	return err
}

func (s *StudyService) question(id int) (question.Question, error) {
	q, ok := s.catalog.ByID(id)
	if !ok {
		return question.Question{}, fmt.Errorf("question %d: %w", id, ErrUnknownQuestion)
	}
	return q, nil
}

// ── Catalog ─────────────────────────────────────────────────────────────────

func (s *StudyService) Question(id int) (question.Question, error) {
	return s.question(id)
}

func (s *StudyService) Questions(domain int) []question.Question {
	if domain > 0 {
		return s.catalog.ByDomain(domain)
	}
	return s.catalog.All()
}

func (s *StudyService) Domains() []question.Domain {
	return s.catalog.Domains()
}

// ── Progress ────────────────────────────────────────────────────────────────

func (s *StudyService) Progress() progress.UserProgress {
	return s.store.Progress()
}

// DomainReport pairs a catalog domain with the user's progress in it.
type DomainReport struct {
	Domain   question.Domain         `json:"domain"`
	Progress progress.DomainProgress `json:"progress"`
}

// DomainReports lists every catalog domain in order. Domains without
// attempts report zero progress against the catalog count.
func (s *StudyService) DomainReports() []DomainReport {
	p := s.store.Progress()
	domains := s.catalog.Domains()
	out := make([]DomainReport, 0, len(domains))
	for _, d := range domains {
		dp, ok := p.DomainProgress[d.Number]
		if !ok {
			dp = progress.DomainProgress{
				DomainNumber:   d.Number,
				TotalQuestions: s.catalog.CountByDomain(d.Number),
			}
		}
		out = append(out, DomainReport{Domain: d, Progress: dp})
	}
	return out
}

// RecordAttempt logs a standalone answer outside any session.
func (s *StudyService) RecordAttempt(ctx context.Context, questionID int, answer string, timeSpent float64, mode testmode.Mode) (progress.Attempt, error) {
	q, err := s.question(questionID)
	if err != nil {
		return progress.Attempt{}, err
	}
	if mode == "" {
		mode = testmode.Study
	}
	a := progress.NewAttempt(q, answer, timeSpent, mode, "", s.now())
	if err := s.saved(s.store.AddAttempts(ctx, a)); err != nil {
		return progress.Attempt{}, err
	}
	return a, nil
}

func (s *StudyService) RecomputeProgress(ctx context.Context) (progress.UserProgress, error) {
	if err := s.saved(s.store.RecomputeProgress(ctx)); err != nil {
		return progress.UserProgress{}, err
	}
	return s.store.Progress(), nil
}

// QuestionReport is the per-question statistics view.
type QuestionReport struct {
	progress.QuestionStats
	Mastery    int  `json:"mastery"`
	Seen       bool `json:"seen"`
	Bookmarked bool `json:"bookmarked"`
}

func (s *StudyService) QuestionStats(questionID int) (QuestionReport, error) {
	if _, err := s.question(questionID); err != nil {
		return QuestionReport{}, err
	}
	stats := progress.StatsFor(s.store.Attempts(), questionID)
	return QuestionReport{
		QuestionStats: stats,
		Mastery:       stats.Mastery(),
		Seen:          s.store.Seen()[questionID],
		Bookmarked:    s.store.IsBookmarked(questionID),
	}, nil
}

// ── Derived question lists ──────────────────────────────────────────────────

// resolve maps ids to catalog questions in ascending id order, skipping
// ids the catalog does not know.
func (s *StudyService) resolve(ids map[int]bool) []question.Question {
	sorted := make([]int, 0, len(ids))
	for id, ok := range ids {
		if ok {
			sorted = append(sorted, id)
		}
	}
	slices.Sort(sorted)
	return s.catalog.ByIDs(sorted)
}

// IncorrectQuestions returns questions whose most recent attempt was wrong.
func (s *StudyService) IncorrectQuestions() []question.Question {
	return s.resolve(progress.IncorrectIDs(s.store.Attempts()))
}

// CorrectQuestions returns questions whose most recent attempt was right.
func (s *StudyService) CorrectQuestions() []question.Question {
	return s.resolve(progress.CorrectIDs(s.store.Attempts()))
}

func (s *StudyService) AnsweredQuestions() []question.Question {
	attempts := s.store.Attempts()
	ids := progress.IncorrectIDs(attempts)
	for id := range progress.CorrectIDs(attempts) {
		ids[id] = true
	}
	return s.resolve(ids)
}

// SeenQuestions returns the seen log in first-seen order.
func (s *StudyService) SeenQuestions() []int {
	return s.store.SeenList()
}

// UnseenQuestions returns catalog questions never shown, optionally limited
// to one domain.
func (s *StudyService) UnseenQuestions(domain int) []question.Question {
	seen := s.store.Seen()
	return s.catalog.Filter(func(q question.Question) bool {
		return !seen[q.ID] && (domain <= 0 || q.Domain.Number == domain)
	})
}

func (s *StudyService) MarkSeen(ctx context.Context, ids ...int) error {
	known := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.catalog.ByID(id); ok {
			known = append(known, id)
		}
	}
	if len(known) == 0 {
		return nil
	}
	return s.saved(s.store.MarkSeen(ctx, known...))
}

// CustomQuestions draws a random sample of count questions filtered by
// seen status.
func (s *StudyService) CustomQuestions(count int, filter SeenFilter) ([]question.Question, error) {
	seen := s.store.Seen()
	var pool []question.Question
	switch filter {
	case SeenAll, "":
		pool = s.catalog.All()
	case SeenOnly:
		pool = s.catalog.Filter(func(q question.Question) bool { return seen[q.ID] })
	case UnseenOnly:
		pool = s.catalog.Filter(func(q question.Question) bool { return !seen[q.ID] })
	default:
		return nil, fmt.Errorf("%w: unknown seen filter %q", ErrInvalidConfig, filter)
	}
	return s.selector.SelectForTest(selector.Request{
		Pool:     pool,
		Count:    count,
		Priority: selector.PriorityRandom,
	}), nil
}

// ── Bookmarks and notes ─────────────────────────────────────────────────────

// BookmarkedQuestion is a bookmark resolved against the catalog.
type BookmarkedQuestion struct {
	bookmark.Bookmark
	Question question.Question `json:"question"`
}

func (s *StudyService) AddBookmark(ctx context.Context, questionID int, noteText string) (bookmark.Bookmark, error) {
	if _, err := s.question(questionID); err != nil {
		return bookmark.Bookmark{}, err
	}
	b, err := s.store.AddBookmark(ctx, questionID, strings.TrimSpace(noteText))
	return b, s.saved(err)
}

func (s *StudyService) RemoveBookmark(ctx context.Context, questionID int) error {
	return s.saved(s.store.RemoveBookmark(ctx, questionID))
}

// Bookmarks lists bookmarks whose question still exists in the catalog.
func (s *StudyService) Bookmarks() []BookmarkedQuestion {
	list := s.store.Bookmarks()
	out := make([]BookmarkedQuestion, 0, len(list))
	for _, b := range list {
		q, ok := s.catalog.ByID(b.QuestionID)
		if !ok {
			continue
		}
		out = append(out, BookmarkedQuestion{Bookmark: b, Question: q})
	}
	return out
}

func (s *StudyService) IsBookmarked(questionID int) bool {
	return s.store.IsBookmarked(questionID)
}

func (s *StudyService) SetNote(ctx context.Context, questionID int, content string) (note.Note, error) {
	if _, err := s.question(questionID); err != nil {
		return note.Note{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return note.Note{}, note.ErrEmptyContent
	}
	n, err := s.store.SetNote(ctx, questionID, content)
	return n, s.saved(err)
}

func (s *StudyService) RemoveNote(ctx context.Context, questionID int) error {
	return s.saved(s.store.RemoveNote(ctx, questionID))
}

func (s *StudyService) Note(questionID int) (note.Note, error) {
	return s.store.Note(questionID)
}

func (s *StudyService) Notes() []note.Note {
	return s.store.Notes()
}

// ── Settings and data management ────────────────────────────────────────────

func (s *StudyService) Settings() store.Settings {
	return s.store.Settings()
}

func (s *StudyService) UpdateSettings(ctx context.Context, patch store.SettingsPatch) (store.Settings, error) {
	if patch.DefaultTestMode != nil && !patch.DefaultTestMode.Valid() {
		return store.Settings{}, fmt.Errorf("%w: unknown test mode %q", ErrInvalidConfig, *patch.DefaultTestMode)
	}
	if patch.QuestionsPerSession != nil && *patch.QuestionsPerSession <= 0 {
		return store.Settings{}, fmt.Errorf("%w: questions per session must be positive", ErrInvalidConfig)
	}
	settings, err := s.store.UpdateSettings(ctx, patch)
	return settings, s.saved(err)
}

func (s *StudyService) Export() ([]byte, error) {
	return s.store.Export()
}

// Import replaces all data with the given document. Running timers are
// stopped first and restarted for the imported sessions.
func (s *StudyService) Import(ctx context.Context, raw []byte) error {
	if err := s.saved(s.store.Import(ctx, raw)); err != nil {
		return err
	}
	s.stopAllTimers()
	s.ResumeTimers()
	return nil
}

// Clear deletes every stored record.
func (s *StudyService) Clear(ctx context.Context) error {
	s.stopAllTimers()
	return s.saved(s.store.Clear(ctx))
}
