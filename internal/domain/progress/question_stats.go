package progress

import "time"

// QuestionStats tracks performance statistics for a single question.
type QuestionStats struct {
	QuestionID     int        `json:"questionId"`
	TimesAttempted int        `json:"timesAttempted"`
	TimesCorrect   int        `json:"timesCorrect"`
	Accuracy       float64    `json:"accuracy"`
	AverageTime    float64    `json:"averageTime"`
	LastAttempted  *time.Time `json:"lastAttempted"`
	LatestCorrect  bool       `json:"latestCorrect"`
}

// StatsFor aggregates every attempt at questionID.
func StatsFor(attempts []Attempt, questionID int) QuestionStats {
	qs := QuestionStats{QuestionID: questionID}

	var total float64
	var latest Attempt
	for _, a := range attempts {
		if a.QuestionID != questionID {
			continue
		}
		qs.TimesAttempted++
		total += a.TimeSpent
		if a.IsCorrect {
			qs.TimesCorrect++
		}
		if qs.LastAttempted == nil || !a.Timestamp.Before(latest.Timestamp) {
			latest = a
			ts := a.Timestamp
			qs.LastAttempted = &ts
		}
	}
	if qs.TimesAttempted == 0 {
		return qs
	}

	qs.Accuracy = percent(qs.TimesCorrect, qs.TimesAttempted)
	qs.AverageTime = total / float64(qs.TimesAttempted)
	qs.LatestCorrect = latest.IsCorrect
	return qs
}

// Mastery blends the latest outcome with the historical accuracy:
// latest * 0.6 + historical * 0.4, on a 0-100 scale.
func (qs QuestionStats) Mastery() int {
	if qs.TimesAttempted == 0 {
		return 0
	}
	latest := 0
	if qs.LatestCorrect {
		latest = 100
	}
	if qs.TimesAttempted == 1 {
		return latest
	}

	// Historical average (excluding latest)
	prevCorrect := qs.TimesCorrect
	if qs.LatestCorrect {
		prevCorrect--
	}
	historical := percent(prevCorrect, qs.TimesAttempted-1)

	mastery := int(float64(latest)*0.6 + historical*0.4)
	if mastery > 100 {
		mastery = 100
	}
	if mastery < 0 {
		mastery = 0
	}
	return mastery
}

// LatestOutcomes maps each attempted question to whether its most recent
// attempt was correct. Ties on timestamp go to the later log entry.
func LatestOutcomes(attempts []Attempt) map[int]bool {
	type last struct {
		at      time.Time
		correct bool
	}
	latest := make(map[int]last)
	for _, a := range attempts {
		if prev, ok := latest[a.QuestionID]; ok && a.Timestamp.Before(prev.at) {
			continue
		}
		latest[a.QuestionID] = last{at: a.Timestamp, correct: a.IsCorrect}
	}

	out := make(map[int]bool, len(latest))
	for id, l := range latest {
		out[id] = l.correct
	}
	return out
}

// IncorrectIDs returns the questions whose most recent attempt was wrong.
func IncorrectIDs(attempts []Attempt) map[int]bool {
	out := make(map[int]bool)
	for id, correct := range LatestOutcomes(attempts) {
		if !correct {
			out[id] = true
		}
	}
	return out
}

// CorrectIDs returns the questions whose most recent attempt was right.
func CorrectIDs(attempts []Attempt) map[int]bool {
	out := make(map[int]bool)
	for id, correct := range LatestOutcomes(attempts) {
		if correct {
			out[id] = true
		}
	}
	return out
}
