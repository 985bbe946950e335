package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secplus-trainer/backend/internal/domain/progress"
)

func TestStatsFor(t *testing.T) {
	attempts := []progress.Attempt{
		attempt(1, false, 10, day0),
		attempt(2, true, 99, day0),
		attempt(1, true, 30, day0.Add(time.Hour)),
	}

	qs := progress.StatsFor(attempts, 1)
	assert.Equal(t, 2, qs.TimesAttempted)
	assert.Equal(t, 1, qs.TimesCorrect)
	assert.InDelta(t, 50.0, qs.Accuracy, 1e-9)
	assert.InDelta(t, 20.0, qs.AverageTime, 1e-9)
	require.NotNil(t, qs.LastAttempted)
	assert.True(t, qs.LastAttempted.Equal(day0.Add(time.Hour)))
	assert.True(t, qs.LatestCorrect)
}

func TestStatsFor_NoAttempts(t *testing.T) {
	qs := progress.StatsFor(nil, 3)

	assert.Equal(t, 0, qs.TimesAttempted)
	assert.Nil(t, qs.LastAttempted)
	assert.Equal(t, 0, qs.Mastery())
}

func TestMastery(t *testing.T) {
	tests := []struct {
		name  string
		stats progress.QuestionStats
		want  int
	}{
		{"single correct", progress.QuestionStats{TimesAttempted: 1, TimesCorrect: 1, LatestCorrect: true}, 100},
		{"single wrong", progress.QuestionStats{TimesAttempted: 1}, 0},
		// latest correct, 1 of 3 previous correct: 60 + 33.3*0.4
		{"recovering", progress.QuestionStats{TimesAttempted: 4, TimesCorrect: 2, LatestCorrect: true}, 73},
		// latest wrong, all previous correct: 0 + 100*0.4
		{"slipping", progress.QuestionStats{TimesAttempted: 3, TimesCorrect: 2}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stats.Mastery())
		})
	}
}

func TestIncorrectAndCorrectIDs_UseMostRecentAttempt(t *testing.T) {
	attempts := []progress.Attempt{
		attempt(1, false, 1, day0),
		attempt(1, true, 1, day0.Add(time.Hour)), // fixed later
		attempt(2, true, 1, day0),
		attempt(2, false, 1, day0.Add(time.Hour)), // regressed
		attempt(3, false, 1, day0),
		// logged later but timestamped earlier: does not override
		attempt(3, true, 1, day0.Add(-time.Hour)),
	}

	assert.Equal(t, map[int]bool{2: true, 3: true}, progress.IncorrectIDs(attempts))
	assert.Equal(t, map[int]bool{1: true}, progress.CorrectIDs(attempts))
}
