package progress_test

import (
	"math/rand/v2"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/testmode"
)

// fakeIndex maps question ids to domain numbers.
type fakeIndex map[int]int

func (f fakeIndex) DomainOf(id int) (question.Domain, bool) {
	n, ok := f[id]
	if !ok {
		return question.Domain{}, false
	}
	return question.Domain{Number: n}, true
}

func (f fakeIndex) CountByDomain(number int) int {
	c := 0
	for _, n := range f {
		if n == number {
			c++
		}
	}
	return c
}

var day0 = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func attempt(qid int, correct bool, spent float64, at time.Time) progress.Attempt {
	a := progress.Attempt{
		QuestionID:    qid,
		CorrectAnswer: "A",
		TimeSpent:     spent,
		Timestamp:     at,
		TestMode:      testmode.Study,
	}
	if correct {
		a.SelectedAnswer = "A"
		a.IsCorrect = true
	} else {
		a.SelectedAnswer = "B"
	}
	return a
}

func fold(agg *progress.Aggregator, attempts []progress.Attempt) progress.UserProgress {
	p := progress.New()
	for _, a := range attempts {
		agg.Record(&p, a)
	}
	return p
}

func TestRecord_WorkedExample(t *testing.T) {
	agg := progress.NewAggregator(fakeIndex{1: 1, 2: 1, 3: 2}, time.UTC)
	p := fold(agg, []progress.Attempt{
		attempt(1, true, 10, day0),
		attempt(2, false, 20, day0.Add(time.Minute)),
		attempt(3, true, 30, day0.Add(2*time.Minute)),
	})

	assert.Equal(t, 3, p.TotalQuestionsAttempted)
	assert.Equal(t, 2, p.TotalCorrectAnswers)
	assert.InDelta(t, 66.67, p.OverallAccuracy, 0.01)
	assert.InDelta(t, 60.0, p.TotalTimeSpent, 1e-9)
	assert.InDelta(t, 50.0, p.DomainProgress[1].Accuracy, 1e-9)
	assert.InDelta(t, 100.0, p.DomainProgress[2].Accuracy, 1e-9)
	assert.InDelta(t, 15.0, p.DomainProgress[1].AverageTimePerQuestion, 1e-9)
	assert.Equal(t, 2, p.DomainProgress[1].TotalQuestions)
	assert.Equal(t, 1, p.StudyStreak)
}

func TestNew_ZeroAccuracy(t *testing.T) {
	p := progress.New()
	assert.Equal(t, 0.0, p.OverallAccuracy)

	agg := progress.NewAggregator(fakeIndex{}, time.UTC)
	r := agg.Recompute(nil)
	assert.Equal(t, 0.0, r.OverallAccuracy)
	assert.Nil(t, r.LastStudySession)
	assert.NotNil(t, r.WeakAreas)
}

func TestRecompute_MatchesIncrementalFold(t *testing.T) {
	index := fakeIndex{}
	for q := 1; q <= 40; q++ {
		index[q] = q%5 + 1
	}
	agg := progress.NewAggregator(index, time.UTC)

	rng := rand.New(rand.NewPCG(11, 12))
	var attempts []progress.Attempt
	at := day0
	for i := 0; i < 300; i++ {
		at = at.Add(time.Duration(rng.IntN(7200)) * time.Second)
		// question 99 is not in the catalog and only counts toward totals
		qid := rng.IntN(41) + 1
		if qid == 41 {
			qid = 99
		}
		attempts = append(attempts, attempt(qid, rng.IntN(3) > 0, float64(rng.IntN(90)), at))
	}

	inc := fold(agg, attempts)
	full := agg.Recompute(attempts)

	assert.Equal(t, full.TotalQuestionsAttempted, inc.TotalQuestionsAttempted)
	assert.Equal(t, full.TotalCorrectAnswers, inc.TotalCorrectAnswers)
	assert.InDelta(t, full.OverallAccuracy, inc.OverallAccuracy, 1e-9)
	assert.InDelta(t, full.TotalTimeSpent, inc.TotalTimeSpent, 1e-6)
	require.Equal(t, len(full.DomainProgress), len(inc.DomainProgress))
	for n, want := range full.DomainProgress {
		got := inc.DomainProgress[n]
		assert.Equal(t, want.AttemptedQuestions, got.AttemptedQuestions, "domain %d", n)
		assert.Equal(t, want.CorrectAnswers, got.CorrectAnswers, "domain %d", n)
		assert.InDelta(t, want.Accuracy, got.Accuracy, 1e-9, "domain %d", n)
		assert.InDelta(t, want.AverageTimePerQuestion, got.AverageTimePerQuestion, 1e-6, "domain %d", n)
		assert.True(t, want.LastAttempted.Equal(got.LastAttempted), "domain %d", n)
	}
	assert.Equal(t, full.WeakAreas, inc.WeakAreas)
	assert.Equal(t, full.StrongAreas, inc.StrongAreas)
	assert.Equal(t, 0, full.StudyStreak)
}

func TestAdvanceStreak(t *testing.T) {
	tests := []struct {
		name       string
		next       time.Time
		wantStreak int
	}{
		{"same day", day0.Add(5 * time.Hour), 3},
		{"next day", day0.AddDate(0, 0, 1), 4},
		{"next day just after midnight", time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC), 4},
		{"three days later", day0.AddDate(0, 0, 3), 1},
		{"earlier than last", day0.AddDate(0, 0, -2), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := day0
			got, gotLast := progress.AdvanceStreak(&last, 3, tt.next, time.UTC)
			assert.Equal(t, tt.wantStreak, got)
			require.NotNil(t, gotLast)
		})
	}
}

func TestAdvanceStreak_FirstEver(t *testing.T) {
	got, last := progress.AdvanceStreak(nil, 0, day0, time.UTC)

	assert.Equal(t, 1, got)
	require.NotNil(t, last)
	assert.True(t, last.Equal(day0))
}

func TestAdvanceStreak_UsesCalendarDayInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 23:30 and 00:30 New York time on consecutive days, 1 hour apart
	last := time.Date(2024, 3, 12, 23, 30, 0, 0, ny)
	next := last.Add(time.Hour)

	got, _ := progress.AdvanceStreak(&last, 2, next, ny)
	assert.Equal(t, 3, got)
}

func TestRecord_StreakAcrossDays(t *testing.T) {
	agg := progress.NewAggregator(fakeIndex{1: 1}, time.UTC)
	p := progress.New()

	agg.Record(&p, attempt(1, true, 5, day0))
	agg.Record(&p, attempt(1, true, 5, day0.Add(time.Hour)))
	assert.Equal(t, 1, p.StudyStreak)

	agg.Record(&p, attempt(1, true, 5, day0.AddDate(0, 0, 1)))
	assert.Equal(t, 2, p.StudyStreak)

	agg.Record(&p, attempt(1, true, 5, day0.AddDate(0, 0, 4)))
	assert.Equal(t, 1, p.StudyStreak)
	require.NotNil(t, p.LastStudySession)
	assert.True(t, p.LastStudySession.Equal(day0.AddDate(0, 0, 4)))
}

func domainWith(n, attempted, correct int) progress.DomainProgress {
	return progress.DomainProgress{
		DomainNumber:       n,
		AttemptedQuestions: attempted,
		CorrectAnswers:     correct,
		Accuracy:           float64(correct) / float64(attempted) * 100,
	}
}

func TestClassifyAreas(t *testing.T) {
	p := progress.New()
	p.DomainProgress[1] = domainWith(1, 10, 2)  // 20%
	p.DomainProgress[2] = domainWith(2, 10, 10) // 100%
	p.DomainProgress[3] = domainWith(3, 5, 3)   // 60%
	p.DomainProgress[4] = domainWith(4, 4, 0)   // not eligible

	progress.ClassifyAreas(&p)

	// ceil(3 * 0.4) = 2, so the middle domain is both weak and strong
	assert.Equal(t, []int{1, 3}, p.WeakAreas)
	assert.Equal(t, []int{3, 2}, p.StrongAreas)
}

func TestClassifyAreas_SingleEligibleDomainIsBoth(t *testing.T) {
	p := progress.New()
	p.DomainProgress[2] = domainWith(2, 6, 3)

	progress.ClassifyAreas(&p)

	assert.Equal(t, []int{2}, p.WeakAreas)
	assert.Equal(t, []int{2}, p.StrongAreas)
}

func TestClassifyAreas_NoneEligible(t *testing.T) {
	p := progress.New()
	p.DomainProgress[1] = domainWith(1, 4, 1)

	progress.ClassifyAreas(&p)

	assert.Empty(t, p.WeakAreas)
	assert.Empty(t, p.StrongAreas)
}

func TestNewAttempt(t *testing.T) {
	q := question.Question{
		ID:            7,
		Options:       []question.Option{{Letter: "A"}, {Letter: "C"}},
		CorrectAnswer: "C",
	}

	a := progress.NewAttempt(q, "C", -4, testmode.Practice, "s1", day0)
	assert.True(t, a.IsCorrect)
	assert.Equal(t, "C", a.CorrectAnswer)
	assert.Equal(t, 0.0, a.TimeSpent)

	empty := progress.NewAttempt(q, "", 3, testmode.Practice, "s1", day0)
	assert.False(t, empty.IsCorrect)
}
