package repair_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secplus-trainer/backend/internal/catalog"
	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/repair"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var qs []question.Question
	for id := 1; id <= 8; id++ {
		qs = append(qs, question.Question{
			ID:            id,
			Domain:        question.Domain{Number: (id-1)/4 + 1},
			Options:       []question.Option{{Letter: "A", Text: "a"}, {Letter: "B", Text: "b"}, {Letter: "C", Text: "c"}},
			CorrectAnswer: "B",
		})
	}
	c, err := catalog.New(qs)
	require.NoError(t, err)
	return c
}

const q5 = `{"id": 5, "domain": {"number": 2, "name": "D2", "weight": 22}, "questionText": "q", "options": [{"letter": "A", "text": "a"}, {"letter": "B", "text": "b"}], "correctAnswer": "A", "explanation": "", "questionType": "multiple-choice"}`

const corrupted = `{
  "testSessions": [
    {"id": "session_a", "mode": "practice", "config": {"mode": "practice"}, "questions": [` + q5 + `],
     "answers": {"5": "B"}, "startTime": "2024-05-01T09:00:00Z", "endTime": "2024-05-01T09:10:00Z",
     "completed": true, "totalTimeSpent": 40, "questionsAnswered": 1, "correctAnswers": 0},
    {"id": "session_a", "mode": "practice", "config": {"mode": "practice"}, "questions": [` + q5 + `],
     "answers": {}, "startTime": "2024-05-01T09:00:00Z", "completed": false}
  ],
  "bookmarkedQuestions": [{"questionId": 2, "timestamp": "2024-05-01T08:00:00Z"}],
  "userProgress": {"totalQuestionsAttempted": 412, "studyStreak": 9}
}`

func TestRepair_RoundTrip(t *testing.T) {
	r := repair.New(testCatalog(t), time.UTC)

	d, rep, err := r.Repair([]byte(corrupted))
	require.NoError(t, err)

	require.Len(t, d.TestSessions, 1)
	assert.Equal(t, 1, rep.DuplicatesRemoved)
	assert.True(t, d.TestSessions[0].Completed, "first occurrence wins")

	require.Len(t, d.QuestionAttempts, 1)
	a := d.QuestionAttempts[0]
	assert.Equal(t, 5, a.QuestionID)
	assert.Equal(t, "B", a.SelectedAnswer)
	// judged against the catalog, whose answer for 5 is B
	assert.True(t, a.IsCorrect)
	assert.Equal(t, "B", a.CorrectAnswer)
	assert.InDelta(t, 40.0, a.TimeSpent, 1e-9)
	assert.True(t, a.Timestamp.Equal(time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC)))
	assert.Equal(t, "session_a", a.SessionID)

	assert.Equal(t, 1, d.UserProgress.TotalQuestionsAttempted)
	assert.Equal(t, 0, d.UserProgress.StudyStreak)
	assert.InDelta(t, 100.0, d.UserProgress.DomainProgress[2].Accuracy, 1e-9)

	require.Len(t, d.BookmarkedQuestions, 1, "non-derived data is kept")
}

func TestRepair_DefaultTimeAndStartTimeFallback(t *testing.T) {
	r := repair.New(testCatalog(t), time.UTC)

	raw := `{"testSessions": [{"id": "s", "mode": "study", "questions": [` + q5 + `],
		"answers": {"5": "A"}, "startTime": "2024-05-01T09:00:00Z", "completed": true}]}`
	d, _, err := r.Repair([]byte(raw))
	require.NoError(t, err)

	require.Len(t, d.QuestionAttempts, 1)
	assert.InDelta(t, repair.DefaultAttemptSeconds, d.QuestionAttempts[0].TimeSpent, 1e-9)
	assert.True(t, d.QuestionAttempts[0].Timestamp.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))
	assert.False(t, d.QuestionAttempts[0].IsCorrect)
}

func TestRepair_DiscardsUnreferencedAnswers(t *testing.T) {
	r := repair.New(testCatalog(t), time.UTC)

	// question 3 is in the catalog but in no session's question list
	raw := `{"testSessions": [{"id": "s", "mode": "practice", "questions": [` + q5 + `],
		"answers": {"5": "B", "3": "B"}, "startTime": "2024-05-01T09:00:00Z", "completed": true}]}`
	d, rep, err := r.Repair([]byte(raw))
	require.NoError(t, err)

	assert.Len(t, d.QuestionAttempts, 1)
	assert.Equal(t, 1, rep.AttemptsDiscarded)
}

func TestRepair_SkipsIncompleteSessions(t *testing.T) {
	r := repair.New(testCatalog(t), time.UTC)

	raw := `{"testSessions": [{"id": "s", "mode": "practice", "questions": [` + q5 + `],
		"answers": {"5": "B"}, "startTime": "2024-05-01T09:00:00Z", "completed": false}]}`
	d, _, err := r.Repair([]byte(raw))
	require.NoError(t, err)

	assert.Empty(t, d.QuestionAttempts)
	assert.Equal(t, 0, d.UserProgress.TotalQuestionsAttempted)
	assert.Nil(t, d.UserProgress.LastStudySession)
}

func TestRepair_RejectsNonObject(t *testing.T) {
	r := repair.New(testCatalog(t), time.UTC)

	_, _, err := r.Repair([]byte(`not json`))
	assert.ErrorIs(t, err, repair.ErrInput)
}

func TestRepairFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "corrupted_data.json")
	out := filepath.Join(dir, "repaired_data.json")
	require.NoError(t, os.WriteFile(in, []byte(corrupted), 0o644))

	r := repair.New(testCatalog(t), time.UTC)
	rep, err := r.RepairFile(in, out)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.AttemptsSynthesized)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc["questionAttempts"], 1)

	_, err = r.RepairFile(filepath.Join(dir, "missing.json"), out)
	assert.ErrorIs(t, err, repair.ErrInput)
}
