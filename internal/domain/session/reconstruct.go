package session

import "github.com/secplus-trainer/backend/internal/domain/progress"

// DisplaySession is a read-only view of a session with any missing results
// filled in from its answers and the attempt log.
type DisplaySession struct {
	*Session
	Results []QuestionResult `json:"results"`
}

// QuestionResult is one row of a session's per-question breakdown.
// IsCorrect is nil when the question was left unanswered.
type QuestionResult struct {
	QuestionID     int     `json:"questionId"`
	SelectedAnswer string  `json:"selectedAnswer"`
	CorrectAnswer  string  `json:"correctAnswer"`
	IsCorrect      *bool   `json:"isCorrect"`
	TimeSpent      float64 `json:"timeSpent"`
}

// Reconstruct derives display state for s, active or completed. Answers
// are backfilled from attempts carrying the session's id for questions the
// session contains; correctAnswers, score, passed and
// totalTimeSpent are derived when stored as missing or zero. s itself is
// never modified.
func Reconstruct(s *Session, attempts []progress.Attempt) DisplaySession {
	view := s.Clone()

	var own []progress.Attempt
	for _, a := range attempts {
		if a.SessionID == "" || a.SessionID != s.ID {
			continue
		}
		if _, ok := view.Question(a.QuestionID); ok {
			own = append(own, a)
		}
	}

	for _, a := range own {
		if view.Answers[a.QuestionID] == "" && a.SelectedAnswer != "" {
			view.Answers[a.QuestionID] = a.SelectedAnswer
		}
	}
	view.QuestionsAnswered = view.Answers.Answered()

	if view.CorrectAnswers <= 0 {
		correct := 0
		for _, q := range view.Questions {
			if q.IsCorrect(view.Answers[q.ID]) {
				correct++
			}
		}
		view.CorrectAnswers = correct
	}

	if view.Score == nil || *view.Score <= 0 {
		score := 0.0
		if n := len(view.Questions); n > 0 {
			score = float64(view.CorrectAnswers) / float64(n) * 100
		}
		passed := score >= PassingScore
		view.Score = &score
		view.Passed = &passed
	}

	if view.TotalTimeSpent <= 0 {
		var total float64
		for _, a := range own {
			total += a.TimeSpent
		}
		view.TotalTimeSpent = total
	}

	return DisplaySession{Session: view, Results: results(view, own)}
}

func results(s *Session, own []progress.Attempt) []QuestionResult {
	timeByQuestion := make(map[int]float64, len(own))
	for _, a := range own {
		timeByQuestion[a.QuestionID] += a.TimeSpent
	}

	out := make([]QuestionResult, 0, len(s.Questions))
	for _, q := range s.Questions {
		r := QuestionResult{
			QuestionID:     q.ID,
			SelectedAnswer: s.Answers[q.ID],
			CorrectAnswer:  q.CorrectAnswer,
			TimeSpent:      timeByQuestion[q.ID],
		}
		if r.TimeSpent == 0 {
			r.TimeSpent = s.QuestionTimes[q.ID]
		}
		if r.SelectedAnswer != "" {
			ok := q.IsCorrect(r.SelectedAnswer)
			r.IsCorrect = &ok
		}
		out = append(out, r)
	}
	return out
}
