package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/secplus-trainer/backend/internal/domain/bookmark"
	"github.com/secplus-trainer/backend/internal/domain/note"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/session"
	"github.com/secplus-trainer/backend/internal/domain/testmode"
)

// ── Raw document shapes ─────────────────────────────────────────────

type rawDomainProgress struct {
	DomainNumber           int       `json:"domainNumber"`
	TotalQuestions         int       `json:"totalQuestions"`
	AttemptedQuestions     int       `json:"attemptedQuestions"`
	CorrectAnswers         int       `json:"correctAnswers"`
	Accuracy               float64   `json:"accuracy"`
	AverageTimePerQuestion float64   `json:"averageTimePerQuestion"`
	LastAttempted          looseTime `json:"lastAttempted"`
}

type rawProgress struct {
	TotalQuestionsAttempted int                          `json:"totalQuestionsAttempted"`
	TotalCorrectAnswers     int                          `json:"totalCorrectAnswers"`
	OverallAccuracy         float64                      `json:"overallAccuracy"`
	TotalTimeSpent          float64                      `json:"totalTimeSpent"`
	DomainProgress          map[string]rawDomainProgress `json:"domainProgress"`
	WeakAreas               []int                        `json:"weakAreas"`
	StrongAreas             []int                        `json:"strongAreas"`
	LastStudySession        looseTime                    `json:"lastStudySession"`
	StudyStreak             int                          `json:"studyStreak"`
}

type rawAttempt struct {
	QuestionID     int           `json:"questionId"`
	SelectedAnswer string        `json:"selectedAnswer"`
	CorrectAnswer  string        `json:"correctAnswer"`
	IsCorrect      bool          `json:"isCorrect"`
	TimeSpent      float64       `json:"timeSpent"`
	Timestamp      looseTime     `json:"timestamp"`
	TestMode       testmode.Mode `json:"testMode"`
	SessionID      string        `json:"sessionId"`
}

type rawBookmark struct {
	QuestionID int       `json:"questionId"`
	Note       string    `json:"note"`
	Timestamp  looseTime `json:"timestamp"`
}

type rawNote struct {
	QuestionID   int       `json:"questionId"`
	Content      string    `json:"content"`
	Timestamp    looseTime `json:"timestamp"`
	LastModified looseTime `json:"lastModified"`
}

// rawConfig carries the legacy inline question list some documents keep
// in the session config instead of on the session.
type rawConfig struct {
	session.Config
	Questions []question.Question `json:"questions"`
}

type rawSession struct {
	ID                string              `json:"id"`
	Mode              testmode.Mode       `json:"mode"`
	Config            rawConfig           `json:"config"`
	Questions         []question.Question `json:"questions"`
	Answers           session.Answers     `json:"answers"`
	QuestionTimes     map[string]float64  `json:"questionTimes"`
	StartTime         looseTime           `json:"startTime"`
	EndTime           looseTime           `json:"endTime"`
	Completed         bool                `json:"completed"`
	Score             *float64            `json:"score"`
	Passed            *bool               `json:"passed"`
	TotalTimeSpent    float64             `json:"totalTimeSpent"`
	QuestionsAnswered int                 `json:"questionsAnswered"`
	CorrectAnswers    int                 `json:"correctAnswers"`
}

// ── Migration ───────────────────────────────────────────────────────

// Migrate decodes a stored document of any known schema version onto the
// defaults. Fields and list entries that cannot be read are dropped and
// reported in the returned error, which wraps ErrCorrupt; the returned Data
// is always usable. When the document has no readable progress and agg is
// non-nil, progress is recomputed from the attempt log.
func Migrate(raw []byte, agg *progress.Aggregator) (Data, error) {
	d := Default()

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return d, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if top == nil {
		return d, fmt.Errorf("%w: document is not an object", ErrCorrupt)
	}

	var problems []error
	report := func(field string, err error) {
		problems = append(problems, fmt.Errorf("%s: %w", field, err))
	}

	version := 1
	if v, ok := present(top, "schemaVersion"); ok {
		if err := json.Unmarshal(v, &version); err != nil {
			report("schemaVersion", err)
		}
	}

	for _, r := range decodeList[rawBookmark](top, "bookmarkedQuestions", report) {
		d.BookmarkedQuestions = bookmark.Upsert(d.BookmarkedQuestions, bookmark.New(r.QuestionID, r.Note, r.Timestamp.Time))
	}

	for _, r := range decodeList[rawNote](top, "questionNotes", report) {
		n := note.Note{
			QuestionID:   r.QuestionID,
			Content:      r.Content,
			Timestamp:    r.Timestamp.Time,
			LastModified: r.LastModified.Time,
		}
		if !r.LastModified.Valid {
			n.LastModified = n.Timestamp
		}
		d.QuestionNotes, _ = note.Remove(d.QuestionNotes, r.QuestionID)
		d.QuestionNotes = append(d.QuestionNotes, n)
	}

	for _, r := range decodeList[rawSession](top, "testSessions", report) {
		s, err := r.toSession()
		if err != nil {
			report("testSessions", err)
			continue
		}
		d.TestSessions = append(d.TestSessions, s)
	}

	// after sessions: an attempt with an unreadable timestamp is kept, dated
	// by its session, so the log still matches the stored progress
	loadedAt := time.Now().UTC()
	for _, r := range decodeList[rawAttempt](top, "questionAttempts", report) {
		at := r.Timestamp.Time
		if !r.Timestamp.Valid {
			at = attemptFallbackTime(d.TestSessions, r.SessionID, loadedAt)
			report("questionAttempts", fmt.Errorf("question %d: unreadable timestamp, using %s", r.QuestionID, at.Format(time.RFC3339)))
		}
		a := progress.Attempt{
			QuestionID:     r.QuestionID,
			SelectedAnswer: r.SelectedAnswer,
			CorrectAnswer:  r.CorrectAnswer,
			IsCorrect:      r.IsCorrect,
			TimeSpent:      math.Max(r.TimeSpent, 0),
			Timestamp:      at,
			TestMode:       r.TestMode,
			SessionID:      r.SessionID,
		}
		d.QuestionAttempts = append(d.QuestionAttempts, a)
	}

	if v, ok := present(top, "settings"); ok {
		settings := DefaultSettings()
		if err := json.Unmarshal(v, &settings); err != nil {
			report("settings", err)
		} else {
			d.Settings = settings
		}
	}

	if v, ok := present(top, "seenQuestions"); ok {
		seen, err := decodeIDs(v)
		if err != nil {
			report("seenQuestions", err)
		}
		d.SeenQuestions = seen
	}

	progressRead := false
	if v, ok := present(top, "userProgress"); ok {
		var rp rawProgress
		if err := json.Unmarshal(v, &rp); err != nil {
			report("userProgress", err)
		} else {
			d.UserProgress = rp.toProgress(report)
			progressRead = true
		}
	}
	if version < 2 && d.UserProgress.TotalQuestionsAttempted == 0 {
		// version 1 stamped lastStudySession with the load time on a fresh
		// document, which read as a study day that never happened
		d.UserProgress.LastStudySession = nil
		d.UserProgress.StudyStreak = 0
	}
	if !progressRead && agg != nil && len(d.QuestionAttempts) > 0 {
		d.UserProgress = agg.Recompute(d.QuestionAttempts)
	}
	d.UserProgress.Normalize()

	if len(problems) > 0 {
		return d, fmt.Errorf("%w: %w", ErrCorrupt, errors.Join(problems...))
	}
	return d, nil
}

// attemptFallbackTime is the end (or start) of the attempt's session, else
// the load time.
func attemptFallbackTime(sessions []*session.Session, sessionID string, loadedAt time.Time) time.Time {
	if sessionID != "" {
		for _, s := range sessions {
			if s.ID != sessionID {
				continue
			}
			if s.EndTime != nil {
				return *s.EndTime
			}
			if !s.StartTime.IsZero() {
				return s.StartTime
			}
		}
	}
	return loadedAt
}

// present returns the field when it exists and is not null.
func present(top map[string]json.RawMessage, field string) (json.RawMessage, bool) {
	v, ok := top[field]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

// decodeList decodes a JSON array element by element, skipping and
// reporting entries that do not fit T.
func decodeList[T any](top map[string]json.RawMessage, field string, report func(string, error)) []T {
	v, ok := present(top, field)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		report(field, err)
		return nil
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var t T
		if err := json.Unmarshal(item, &t); err != nil {
			report(fmt.Sprintf("%s[%d]", field, i), err)
			continue
		}
		out = append(out, t)
	}
	return out
}

// decodeIDs reads a list of question ids given as numbers or numeric
// strings, dropping duplicates and keeping first-seen order.
func decodeIDs(v json.RawMessage) ([]int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return []int{}, err
	}
	seen := make(map[int]bool, len(items))
	out := make([]int, 0, len(items))
	var bad int
	for _, item := range items {
		id, ok := decodeID(item)
		if !ok {
			bad++
			continue
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if bad > 0 {
		return out, fmt.Errorf("%d unreadable ids", bad)
	}
	return out, nil
}

func decodeID(item json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(item, &f); err == nil {
		if f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return session.ParseQuestionKey(s)
	}
	return 0, false
}

func (rp rawProgress) toProgress(report func(string, error)) progress.UserProgress {
	p := progress.New()
	p.TotalQuestionsAttempted = rp.TotalQuestionsAttempted
	p.TotalCorrectAnswers = rp.TotalCorrectAnswers
	p.OverallAccuracy = rp.OverallAccuracy
	p.TotalTimeSpent = rp.TotalTimeSpent
	p.StudyStreak = rp.StudyStreak
	p.LastStudySession = rp.LastStudySession.ptr()
	if rp.WeakAreas != nil {
		p.WeakAreas = rp.WeakAreas
	}
	if rp.StrongAreas != nil {
		p.StrongAreas = rp.StrongAreas
	}
	for k, dp := range rp.DomainProgress {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			report("userProgress.domainProgress", fmt.Errorf("domain key %q: %w", k, err))
			continue
		}
		if dp.DomainNumber == 0 {
			dp.DomainNumber = n
		}
		p.DomainProgress[n] = progress.DomainProgress{
			DomainNumber:           dp.DomainNumber,
			TotalQuestions:         dp.TotalQuestions,
			AttemptedQuestions:     dp.AttemptedQuestions,
			CorrectAnswers:         dp.CorrectAnswers,
			Accuracy:               dp.Accuracy,
			AverageTimePerQuestion: dp.AverageTimePerQuestion,
			LastAttempted:          dp.LastAttempted.Time,
		}
	}
	return p
}

func (r rawSession) toSession() (*session.Session, error) {
	if r.ID == "" {
		return nil, errors.New("session without id")
	}

	s := &session.Session{
		ID:                r.ID,
		Mode:              r.Mode,
		Config:            r.Config.Config,
		Questions:         r.Questions,
		Answers:           r.Answers,
		QuestionTimes:     make(map[int]float64, len(r.QuestionTimes)),
		StartTime:         r.StartTime.Time,
		EndTime:           r.EndTime.ptr(),
		Completed:         r.Completed,
		Score:             r.Score,
		Passed:            r.Passed,
		TotalTimeSpent:    math.Max(r.TotalTimeSpent, 0),
		QuestionsAnswered: r.QuestionsAnswered,
		CorrectAnswers:    r.CorrectAnswers,
	}
	if s.Mode == "" {
		s.Mode = s.Config.Mode
	}
	if len(s.Questions) == 0 {
		s.Questions = r.Config.Questions
	}
	if s.Questions == nil {
		s.Questions = []question.Question{}
	}
	if s.Answers == nil {
		s.Answers = session.Answers{}
	}
	if !r.StartTime.Valid && r.EndTime.Valid {
		s.StartTime = r.EndTime.Time
	}
	for k, v := range r.QuestionTimes {
		if id, ok := session.ParseQuestionKey(k); ok && v > 0 {
			s.QuestionTimes[id] += v
		}
	}
	return s, nil
}
