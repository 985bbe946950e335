package progress

import (
	"math"
	"sort"
	"time"

	"github.com/secplus-trainer/backend/internal/domain/question"
)

const (
	// MinAttemptsForRanking is the number of attempts a domain needs before
	// it can be classified as weak or strong.
	MinAttemptsForRanking = 5
	areaFraction          = 0.4
)

// DomainIndex resolves questions to domains. *catalog.Catalog satisfies it.
type DomainIndex interface {
	DomainOf(questionID int) (question.Domain, bool)
	CountByDomain(number int) int
}

// Aggregator maintains UserProgress from attempts. Calendar-day streak math
// is done in loc.
type Aggregator struct {
	index DomainIndex
	loc   *time.Location
}

func NewAggregator(index DomainIndex, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{index: index, loc: loc}
}

// Record folds one attempt into p. Folding every attempt of a log in order
// yields the same totals, accuracies and domain figures as Recompute.
func (a *Aggregator) Record(p *UserProgress, at Attempt) {
	p.Normalize()

	p.TotalQuestionsAttempted++
	if at.IsCorrect {
		p.TotalCorrectAnswers++
	}
	p.OverallAccuracy = percent(p.TotalCorrectAnswers, p.TotalQuestionsAttempted)
	p.TotalTimeSpent += at.TimeSpent

	p.StudyStreak, p.LastStudySession = AdvanceStreak(p.LastStudySession, p.StudyStreak, at.Timestamp, a.loc)

	if d, ok := a.index.DomainOf(at.QuestionID); ok {
		dp, exists := p.DomainProgress[d.Number]
		if !exists {
			dp = DomainProgress{DomainNumber: d.Number}
		}
		dp.TotalQuestions = a.index.CountByDomain(d.Number)
		dp.AttemptedQuestions++
		if at.IsCorrect {
			dp.CorrectAnswers++
		}
		dp.Accuracy = percent(dp.CorrectAnswers, dp.AttemptedQuestions)
		n := float64(dp.AttemptedQuestions)
		dp.AverageTimePerQuestion = (dp.AverageTimePerQuestion*(n-1) + at.TimeSpent) / n
		if at.Timestamp.After(dp.LastAttempted) {
			dp.LastAttempted = at.Timestamp
		}
		p.DomainProgress[d.Number] = dp
	}

	ClassifyAreas(p)
}

// Recompute rebuilds progress from scratch. The study streak cannot be
// derived from history and is reset to 0; LastStudySession becomes the
// newest attempt timestamp.
func (a *Aggregator) Recompute(attempts []Attempt) UserProgress {
	p := New()

	type domainAcc struct {
		attempted, correct int
		time               float64
		last               time.Time
	}
	acc := make(map[int]*domainAcc)

	var newest time.Time
	for _, at := range attempts {
		p.TotalQuestionsAttempted++
		p.TotalTimeSpent += at.TimeSpent
		if at.IsCorrect {
			p.TotalCorrectAnswers++
		}
		if at.Timestamp.After(newest) {
			newest = at.Timestamp
		}

		d, ok := a.index.DomainOf(at.QuestionID)
		if !ok {
			continue
		}
		da := acc[d.Number]
		if da == nil {
			da = &domainAcc{}
			acc[d.Number] = da
		}
		da.attempted++
		da.time += at.TimeSpent
		if at.IsCorrect {
			da.correct++
		}
		if at.Timestamp.After(da.last) {
			da.last = at.Timestamp
		}
	}

	p.OverallAccuracy = percent(p.TotalCorrectAnswers, p.TotalQuestionsAttempted)
	for number, da := range acc {
		p.DomainProgress[number] = DomainProgress{
			DomainNumber:           number,
			TotalQuestions:         a.index.CountByDomain(number),
			AttemptedQuestions:     da.attempted,
			CorrectAnswers:         da.correct,
			Accuracy:               percent(da.correct, da.attempted),
			AverageTimePerQuestion: da.time / float64(da.attempted),
			LastAttempted:          da.last,
		}
	}
	if !newest.IsZero() {
		p.LastStudySession = &newest
	}
	p.StudyStreak = 0

	ClassifyAreas(&p)
	return p
}

// AdvanceStreak applies the calendar-day streak rule for an activity at
// time at. Same day: unchanged. Next day: +1. Larger gap or no prior
// activity: 1. Activity dated before the last session changes nothing.
func AdvanceStreak(last *time.Time, streak int, at time.Time, loc *time.Location) (int, *time.Time) {
	if last == nil || last.IsZero() {
		ts := at
		return 1, &ts
	}

	switch days := DaysBetween(*last, at, loc); {
	case days == 0, days < 0:
		return streak, last
	case days == 1:
		ts := at
		return streak + 1, &ts
	default:
		ts := at
		return 1, &ts
	}
}

// DaysBetween counts calendar days from a to b as seen in loc.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// ClassifyAreas recomputes weak and strong areas. Only domains with at
// least MinAttemptsForRanking attempts are ranked; both lists hold
// ceil(40%) of them, so with few eligible domains they can overlap.
func ClassifyAreas(p *UserProgress) {
	numbers := make([]int, 0, len(p.DomainProgress))
	for n, dp := range p.DomainProgress {
		if dp.AttemptedQuestions >= MinAttemptsForRanking {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	sort.SliceStable(numbers, func(i, j int) bool {
		return p.DomainProgress[numbers[i]].Accuracy < p.DomainProgress[numbers[j]].Accuracy
	})

	k := int(math.Ceil(float64(len(numbers)) * areaFraction))
	p.WeakAreas = append([]int{}, numbers[:k]...)
	p.StrongAreas = append([]int{}, numbers[len(numbers)-k:]...)
}
