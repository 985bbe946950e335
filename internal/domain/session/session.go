// Package session holds the test session aggregate and its lifecycle:
// active until finalized once, then read-only.
package session

import (
	"errors"
	"time"

	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/testmode"
	"github.com/secplus-trainer/backend/internal/id"
	"github.com/secplus-trainer/backend/internal/selector"
)

var (
	ErrAlreadyCompleted     = errors.New("session already completed")
	ErrQuestionNotInSession = errors.New("question is not part of this session")
	ErrAlreadyAnswered      = errors.New("question already answered with feedback shown")
)

// PassingScore is the minimum percentage for a passed session.
const PassingScore = 75.0

// Config is the snapshot of selection parameters a session was started with.
type Config struct {
	Mode             testmode.Mode     `json:"mode"`
	DomainNumbers    []int             `json:"domainNumbers,omitempty"`
	QuestionCount    int               `json:"questionCount"`
	TimeLimit        int               `json:"timeLimit,omitempty"` // minutes, 0 = untimed
	ShowExplanations bool              `json:"showExplanations"`
	ShuffleQuestions bool              `json:"shuffleQuestions"`
	ShuffleOptions   bool              `json:"shuffleOptions"`
	Priority         selector.Priority `json:"questionPriority,omitempty"`
	QuestionIDs      []int             `json:"questionIds,omitempty"`
}

// Timed reports whether the session runs against a countdown.
func (c Config) Timed() bool {
	return c.TimeLimit > 0
}

// RecordsImmediately reports whether answers become attempts as soon as
// they are given rather than at submission.
func (c Config) RecordsImmediately() bool {
	return c.Mode == testmode.Study || c.ShowExplanations
}

type Session struct {
	ID                string              `json:"id"`
	Mode              testmode.Mode       `json:"mode"`
	Config            Config              `json:"config"`
	Questions         []question.Question `json:"questions"`
	Answers           Answers             `json:"answers"`
	QuestionTimes     map[int]float64     `json:"questionTimes,omitempty"`
	StartTime         time.Time           `json:"startTime"`
	EndTime           *time.Time          `json:"endTime,omitempty"`
	Completed         bool                `json:"completed"`
	Score             *float64            `json:"score,omitempty"`
	Passed            *bool               `json:"passed,omitempty"`
	TotalTimeSpent    float64             `json:"totalTimeSpent"`
	QuestionsAnswered int                 `json:"questionsAnswered"`
	CorrectAnswers    int                 `json:"correctAnswers"`
}

// Start creates an active session over a frozen copy of qs.
func Start(cfg Config, qs []question.Question, now time.Time) *Session {
	frozen := make([]question.Question, len(qs))
	copy(frozen, qs)
	return &Session{
		ID:            id.NewSessionID(),
		Mode:          cfg.Mode,
		Config:        cfg,
		Questions:     frozen,
		Answers:       Answers{},
		QuestionTimes: map[int]float64{},
		StartTime:     now,
	}
}

func (s *Session) Question(questionID int) (question.Question, bool) {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return question.Question{}, false
}

// RecordAnswer upserts the answer for a question and adds timeSpent to its
// accumulated time. An empty answer clears a previous one. Sessions that
// record immediately lock an answer once given: changing or clearing it
// returns ErrAlreadyAnswered, repeating it only adds time.
func (s *Session) RecordAnswer(questionID int, answer string, timeSpent float64) error {
	if s.Completed {
		return ErrAlreadyCompleted
	}
	if _, ok := s.Question(questionID); !ok {
		return ErrQuestionNotInSession
	}
	if prev := s.Answers[questionID]; s.Config.RecordsImmediately() && prev != "" && prev != answer {
		return ErrAlreadyAnswered
	}
	if s.Answers == nil {
		s.Answers = Answers{}
	}
	if answer == "" {
		delete(s.Answers, questionID)
	} else {
		s.Answers[questionID] = answer
	}
	if timeSpent > 0 {
		if s.QuestionTimes == nil {
			s.QuestionTimes = map[int]float64{}
		}
		s.QuestionTimes[questionID] += timeSpent
	}
	s.QuestionsAnswered = s.Answers.Answered()
	return nil
}

// Finalize scores the session and marks it completed. It runs once; later
// calls return ErrAlreadyCompleted and change nothing.
func (s *Session) Finalize(now time.Time) error {
	if s.Completed {
		return ErrAlreadyCompleted
	}

	correct := 0
	for _, q := range s.Questions {
		if q.IsCorrect(s.Answers[q.ID]) {
			correct++
		}
	}
	score := 0.0
	if len(s.Questions) > 0 {
		score = float64(correct) / float64(len(s.Questions)) * 100
	}
	passed := score >= PassingScore

	var total float64
	for _, t := range s.QuestionTimes {
		total += t
	}

	end := now
	s.CorrectAnswers = correct
	s.Score = &score
	s.Passed = &passed
	s.TotalTimeSpent = total
	s.QuestionsAnswered = s.Answers.Answered()
	s.EndTime = &end
	s.Completed = true
	return nil
}

// Deadline is when a timed session runs out. ok is false for untimed ones.
func (s *Session) Deadline() (deadline time.Time, ok bool) {
	if !s.Config.Timed() {
		return time.Time{}, false
	}
	return s.StartTime.Add(time.Duration(s.Config.TimeLimit) * time.Minute), true
}

// Clone returns a deep copy that shares no maps or slices with s.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = make([]question.Question, len(s.Questions))
	for i, q := range s.Questions {
		c.Questions[i] = q.WithOptions(q.Options)
	}
	c.Answers = s.Answers.clone()
	c.QuestionTimes = make(map[int]float64, len(s.QuestionTimes))
	for k, v := range s.QuestionTimes {
		c.QuestionTimes[k] = v
	}
	c.Config.DomainNumbers = append([]int(nil), s.Config.DomainNumbers...)
	c.Config.QuestionIDs = append([]int(nil), s.Config.QuestionIDs...)
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.Score != nil {
		v := *s.Score
		c.Score = &v
	}
	if s.Passed != nil {
		v := *s.Passed
		c.Passed = &v
	}
	return &c
}
