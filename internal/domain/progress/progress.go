package progress

import (
	"time"

	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/testmode"
)

// Attempt is one recorded answer to one question. Attempts are append-only.
type Attempt struct {
	QuestionID     int           `json:"questionId"`
	SelectedAnswer string        `json:"selectedAnswer"`
	CorrectAnswer  string        `json:"correctAnswer"`
	IsCorrect      bool          `json:"isCorrect"`
	TimeSpent      float64       `json:"timeSpent"` // seconds
	Timestamp      time.Time     `json:"timestamp"`
	TestMode       testmode.Mode `json:"testMode"`
	SessionID      string        `json:"sessionId,omitempty"`
}

// NewAttempt captures the question's correct answer at attempt time so the
// record stays stable if the catalog changes later.
func NewAttempt(q question.Question, selected string, timeSpent float64, mode testmode.Mode, sessionID string, at time.Time) Attempt {
	if timeSpent < 0 {
		timeSpent = 0
	}
	return Attempt{
		QuestionID:     q.ID,
		SelectedAnswer: selected,
		CorrectAnswer:  q.CorrectAnswer,
		IsCorrect:      q.IsCorrect(selected),
		TimeSpent:      timeSpent,
		Timestamp:      at,
		TestMode:       mode,
		SessionID:      sessionID,
	}
}

type DomainProgress struct {
	DomainNumber           int       `json:"domainNumber"`
	TotalQuestions         int       `json:"totalQuestions"`
	AttemptedQuestions     int       `json:"attemptedQuestions"`
	CorrectAnswers         int       `json:"correctAnswers"`
	Accuracy               float64   `json:"accuracy"`
	AverageTimePerQuestion float64   `json:"averageTimePerQuestion"`
	LastAttempted          time.Time `json:"lastAttempted"`
}

// UserProgress is derived entirely from the attempt log and the catalog.
type UserProgress struct {
	TotalQuestionsAttempted int                    `json:"totalQuestionsAttempted"`
	TotalCorrectAnswers     int                    `json:"totalCorrectAnswers"`
	OverallAccuracy         float64                `json:"overallAccuracy"`
	TotalTimeSpent          float64                `json:"totalTimeSpent"`
	DomainProgress          map[int]DomainProgress `json:"domainProgress"`
	WeakAreas               []int                  `json:"weakAreas"`
	StrongAreas             []int                  `json:"strongAreas"`
	LastStudySession        *time.Time             `json:"lastStudySession"` // nil until the first attempt
	StudyStreak             int                    `json:"studyStreak"`
}

func New() UserProgress {
	return UserProgress{
		DomainProgress: make(map[int]DomainProgress),
		WeakAreas:      []int{},
		StrongAreas:    []int{},
	}
}

// Normalize replaces nil collections with empty ones.
func (p *UserProgress) Normalize() {
	if p.DomainProgress == nil {
		p.DomainProgress = make(map[int]DomainProgress)
	}
	if p.WeakAreas == nil {
		p.WeakAreas = []int{}
	}
	if p.StrongAreas == nil {
		p.StrongAreas = []int{}
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Clone returns a deep copy.
func (p UserProgress) Clone() UserProgress {
	c := p
	c.DomainProgress = make(map[int]DomainProgress, len(p.DomainProgress))
	for k, v := range p.DomainProgress {
		c.DomainProgress[k] = v
	}
	c.WeakAreas = append([]int{}, p.WeakAreas...)
	c.StrongAreas = append([]int{}, p.StrongAreas...)
	if p.LastStudySession != nil {
		t := *p.LastStudySession
		c.LastStudySession = &t
	}
	return c
}
