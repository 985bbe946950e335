package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/secplus-trainer/backend/internal/api"
	"github.com/secplus-trainer/backend/internal/catalog"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/selector"
	"github.com/secplus-trainer/backend/internal/service"
	"github.com/secplus-trainer/backend/internal/shuffle"
	"github.com/secplus-trainer/backend/internal/store"
)

const uiOrigin = "http://localhost:5173"

func newServer(t *testing.T) http.Handler {
	t.Helper()
	var qs []question.Question
	for id := 1; id <= 10; id++ {
		qs = append(qs, question.Question{
			ID:            id,
			Domain:        question.Domain{Number: (id-1)/5 + 1, Name: "Domain", Weight: 50},
			QuestionText:  "Which one?",
			Options:       []question.Option{{Letter: "A", Text: "a"}, {Letter: "B", Text: "b"}},
			CorrectAnswer: "B",
			Explanation:   "because",
		})
	}
	cat, err := catalog.New(qs)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	now := func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	st := store.Open(context.Background(), store.NewMemory(), progress.NewAggregator(cat, time.UTC), log, store.Options{Now: now})
	svc := service.NewStudyService(cat, st, selector.New(shuffle.NewSeeded(3)), log, service.Options{Now: now})
	t.Cleanup(svc.Close)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandler(svc, log))
	return api.Logging(log)(api.CORS([]string{uiOrigin})(mux))
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestQuestions(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/questions?domain=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[api.QuestionListResponse](t, rec)
	assert.Equal(t, 5, list.Total)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/questions?domain=x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/questions/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/questions/99", nil).Code)

	rec = do(t, h, http.MethodGet, "/questions/4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[question.Question](t, rec).ID)

	rec = do(t, h, http.MethodGet, "/domains", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]question.Domain](t, rec), 2)
}

func TestSessionFlow(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/sessions", map[string]any{
		"mode":        "practice",
		"questionIds": []int{1, 2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		ID        string              `json:"id"`
		Questions []question.Question `json:"questions"`
	}](t, rec)
	require.Len(t, created.Questions, 2)

	rec = do(t, h, http.MethodPost, "/sessions/"+created.ID+"/answers", api.SubmitAnswerRequest{QuestionID: 1, Answer: "B", TimeSpent: 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/sessions/"+created.ID+"/answers", api.SubmitAnswerRequest{QuestionID: 7, Answer: "B"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "question outside the session")

	rec = do(t, h, http.MethodPost, "/sessions/"+created.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[struct {
		Score     float64 `json:"score"`
		Completed bool    `json:"completed"`
		Results   []struct {
			QuestionID int   `json:"questionId"`
			IsCorrect  *bool `json:"isCorrect"`
		} `json:"results"`
	}](t, rec)
	assert.True(t, result.Completed)
	assert.InDelta(t, 50.0, result.Score, 1e-9)
	require.Len(t, result.Results, 2)

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/sessions/"+created.ID+"/submit", nil).Code)

	rec = do(t, h, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[progress.UserProgress](t, rec).TotalQuestionsAttempted)

	rec = do(t, h, http.MethodDelete, "/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.DeleteSessionResponse](t, rec).AttemptsRemoved)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/sessions/"+created.ID, nil).Code)
}

func TestStudySession_AnswerLockedAfterFeedback(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/sessions", map[string]any{"mode": "study", "questionIds": []int{1}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[struct {
		ID string `json:"id"`
	}](t, rec).ID

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/answers", api.SubmitAnswerRequest{QuestionID: 1, Answer: "A"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/answers", api.SubmitAnswerRequest{QuestionID: 1, Answer: "B"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[struct {
		Completed bool     `json:"completed"`
		Score     *float64 `json:"score"`
		Results   []struct {
			SelectedAnswer string `json:"selectedAnswer"`
		} `json:"results"`
	}](t, rec)
	assert.False(t, view.Completed)
	require.NotNil(t, view.Score)
	assert.InDelta(t, 0.0, *view.Score, 1e-9)
	require.Len(t, view.Results, 1)
	assert.Equal(t, "A", view.Results[0].SelectedAnswer)
}

func TestCreateSession_Errors(t *testing.T) {
	h := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions", `{"mode": "marathon"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions", `{not json`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		do(t, h, http.MethodPost, "/sessions", `{"mode": "domain-focus", "domainNumbers": [9]}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/sessions/session_nope/submit", nil).Code)
}

func TestPreviewDoesNotStore(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/sessions/preview", `{"mode": "quick-quiz", "questionCount": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[api.PreviewResponse](t, rec).Total)

	rec = do(t, h, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))
}

func TestTimer(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/sessions", `{"mode": "practice", "timeLimit": 15}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[struct {
		ID string `json:"id"`
	}](t, rec).ID

	rec = do(t, h, http.MethodGet, "/sessions/"+id+"/timer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	timer := decode[api.TimerResponse](t, rec)
	assert.True(t, timer.Running)
	assert.Equal(t, 15*60, timer.RemainingSeconds)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/sessions/session_nope/timer", nil).Code)
}

func TestBookmarksAndNotes(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPut, "/bookmarks/3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/bookmarks/300", nil).Code)

	rec = do(t, h, http.MethodGet, "/bookmarks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]service.BookmarkedQuestion](t, rec), 1)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/bookmarks/3", nil).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/notes/3", api.NoteRequest{Content: "  "}).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/notes/3", api.NoteRequest{Content: "AES is symmetric"}).Code)

	rec = do(t, h, http.MethodGet, "/notes/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AES is symmetric")

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/notes/3", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/notes/3", nil).Code)
}

func TestSeenLists(t *testing.T) {
	h := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/questions/seen", api.MarkSeenRequest{}).Code)

	rec := do(t, h, http.MethodPost, "/questions/seen", api.MarkSeenRequest{QuestionIDs: []int{2, 6}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2, 6}, decode[api.SeenResponse](t, rec).QuestionIDs)

	rec = do(t, h, http.MethodGet, "/questions/unseen?domain=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[api.QuestionListResponse](t, rec).Total)

	rec = do(t, h, http.MethodGet, "/questions/custom?count=5&status=seen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[api.QuestionListResponse](t, rec).Total)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/questions/custom?status=maybe", nil).Code)

	rec = do(t, h, http.MethodGet, "/questions/incorrect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[api.QuestionListResponse](t, rec).Total)
}

func TestRecordAttempt(t *testing.T) {
	h := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/attempts", api.RecordAttemptRequest{QuestionID: 1}).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, h, http.MethodPost, "/attempts", api.RecordAttemptRequest{QuestionID: 77, SelectedAnswer: "A"}).Code)

	rec := do(t, h, http.MethodPost, "/attempts", api.RecordAttemptRequest{QuestionID: 1, SelectedAnswer: "A", TimeSpent: 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, decode[progress.Attempt](t, rec).IsCorrect)

	rec = do(t, h, http.MethodGet, "/questions/1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[service.QuestionReport](t, rec).TimesAttempted)
}

func TestSettingsExportImport(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPatch, "/settings", `{"darkMode": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[store.Settings](t, rec)
	assert.True(t, settings.DarkMode)
	assert.Equal(t, 20, settings.QuestionsPerSession)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/settings", `{"defaultTestMode": "nap"}`).Code)

	rec = do(t, h, http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	exported := rec.Body.String()

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/data", nil).Code)
	rec = do(t, h, http.MethodGet, "/settings", nil)
	assert.False(t, decode[store.Settings](t, rec).DarkMode)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/import", `[1, 2]`).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/import", exported).Code)
	rec = do(t, h, http.MethodGet, "/settings", nil)
	assert.True(t, decode[store.Settings](t, rec).DarkMode)
}

func TestCORSPreflight(t *testing.T) {
	h := newServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", uiOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uiOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}
