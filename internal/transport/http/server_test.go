package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"braincraft/internal/app"
	"braincraft/internal/auth"
	"braincraft/internal/domain"
	"braincraft/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	resp, err := api.server.Client().Get(api.server.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	var health healthResponse
	resp = api.do(http.MethodGet, "/health", "", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Database.Connected)
	assert.NotNil(t, health.Database.Timestamp)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestMetricsExposeRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodGet, "/healthz", "", nil, nil)

	resp, err := api.server.Client().Get(api.server.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `route="GET /healthz"`)
}

func TestRegisterLoginAndProfile(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "secret123",
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var bad map[string]string
	resp = api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bob", "email": "bob@example.com", "password": "123",
	}, &bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "password must be at least 6", bad["error"])

	resp = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 7*24*3600, cookie.MaxAge)

	// The cookie alone authenticates.
	req, _ := http.NewRequest(http.MethodGet, api.server.URL+"/me", nil)
	req.AddCookie(cookie)
	me, err := api.server.Client().Do(req)
	require.NoError(t, err)
	me.Body.Close()
	assert.Equal(t, http.StatusOK, me.StatusCode)

	var profile domain.Profile
	resp = api.do(http.MethodPut, "/me", cookie.Value, map[string]string{"username": "alicia"}, &profile)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alicia", profile.Username)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/me", "/quizzes", "/leaderboard", "/dashboard", "/discover", "/analytics"} {
		resp := api.do(http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
	resp := api.do(http.MethodGet, "/me", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestQuizAuthoring(t *testing.T) {
	api := newTestAPI(t)
	author := api.signup("author")
	other := api.signup("other")

	resp := api.do(http.MethodPost, "/quizzes", author, map[string]interface{}{"description": "no title"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	quiz, questions := api.publishedQuiz(author, 2)
	base := "/quizzes/" + itoa(quiz.ID)

	var errBody map[string]string
	resp = api.do(http.MethodPost, base+"/questions", author, map[string]interface{}{
		"question_text": "Lonely?",
		"answers":       []map[string]interface{}{{"answer_text": "yes", "is_correct": true}},
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ErrTooFewAnswers.Error(), errBody["error"])

	resp = api.do(http.MethodPost, base+"/questions", author, map[string]interface{}{
		"question_text": "Nobody right?",
		"answers":       []map[string]interface{}{{"answer_text": "a"}, {"answer_text": "b"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Other users see the quiz without correctness flags and cannot edit it.
	resp = api.do(http.MethodGet, base, other, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, getRaw(t, api, base, other), `"is_correct":true`)

	resp = api.do(http.MethodPut, base, other, map[string]interface{}{"title": "mine now"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = api.do(http.MethodDelete, base+"/questions/"+itoa(questions[0].ID), other, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Deleting the first question re-sequences the rest.
	resp = api.do(http.MethodDelete, base+"/questions/"+itoa(questions[0].ID), author, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var remaining []domain.QuestionWithAnswers
	resp = api.do(http.MethodGet, base+"/questions", author, nil, &remaining)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, remaining, 1)
	assert.Equal(t, 1, remaining[0].QuestionOrder)

	var updated domain.Quiz
	resp = api.do(http.MethodPut, base, author, map[string]interface{}{"is_published": false}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, updated.IsPublished)
	assert.Equal(t, "Capitals", updated.Title)

	resp = api.do(http.MethodGet, base, other, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var mine []domain.Quiz
	api.do(http.MethodGet, "/quizzes", author, nil, &mine)
	assert.Len(t, mine, 1)

	resp = api.do(http.MethodDelete, base, author, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = api.do(http.MethodGet, base, author, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAttemptFlow(t *testing.T) {
	api := newTestAPI(t)
	author := api.signup("author")
	player := api.signup("player")
	quiz, questions := api.publishedQuiz(author, 2)
	base := "/quizzes/" + itoa(quiz.ID) + "/attempt"

	raw := doRaw(t, api, http.MethodPost, base, player)
	assert.NotContains(t, raw, "is_correct")
	assert.NotContains(t, raw, "explanation")

	var started app.StartedAttempt
	resp := api.do(http.MethodPost, base, player, nil, &started)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, started.Questions, 2)
	assert.Len(t, started.Questions[0].Answers, 2)

	submission := map[string]interface{}{
		"attempt_id": started.AttemptID,
		"time_taken": 42,
		"answers": []map[string]int64{
			{"question_id": questions[0].ID, "answer_id": questions[0].Answers[0].ID},
			{"question_id": questions[1].ID, "answer_id": questions[1].Answers[1].ID},
			{"question_id": 999999, "answer_id": 1},
		},
	}
	var result app.AttemptResult
	resp = api.do(http.MethodPut, base, player, submission, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.MaxScore)
	assert.Equal(t, 50, result.Percentage)
	require.Len(t, result.Questions, 2)
	require.NotNil(t, result.Questions[0].UserAnswer)

	resp = api.do(http.MethodPut, base, player, submission, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var history []domain.AttemptSummary
	resp = api.do(http.MethodGet, base, player, nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completed []domain.AttemptSummary
	for _, a := range history {
		if a.Completed() {
			completed = append(completed, a)
		}
	}
	require.Len(t, completed, 1)
	assert.Equal(t, 1, completed[0].Score)
	assert.Equal(t, 2, completed[0].MaxScore)
	assert.Equal(t, "Capitals", completed[0].QuizTitle)

	var boards domain.Leaderboards
	resp = api.do(http.MethodGet, "/leaderboard", player, nil, &boards)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, boards.Quizzes, 1)
	require.Len(t, boards.Quizzes[0].Attempts, 1)
	assert.Equal(t, "player", boards.Quizzes[0].Attempts[0].Username)
	require.NotNil(t, boards.UserRank)
	assert.Equal(t, int64(1), *boards.UserRank)

	var board domain.QuizLeaderboard
	resp = api.do(http.MethodGet, "/quizzes/"+itoa(quiz.ID)+"/leaderboard", author, nil, &board)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, board.Attempts, 1)

	var report domain.Analytics
	resp = api.do(http.MethodGet, "/analytics?range=week", player, nil, &report)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, report.Summary.Attempts)
	resp = api.do(http.MethodGet, "/analytics?range=decade", player, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(http.MethodGet, "/dashboard", player, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = api.do(http.MethodGet, "/discover", player, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmitRejectsMalformedBodies(t *testing.T) {
	api := newTestAPI(t)
	author := api.signup("author")
	quiz, _ := api.publishedQuiz(author, 1)
	base := "/quizzes/" + itoa(quiz.ID) + "/attempt"

	for _, body := range []string{
		`{"answers": []}`,
		`{"attempt_id": 1}`,
		`{"attempt_id": 1, "answers": {"question_id": 1}}`,
		`{"attempt_id": 1, "answers": null}`,
		`not json`,
	} {
		resp := api.do(http.MethodPut, base, author, body, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp := api.do(http.MethodPut, base, author, `{"attempt_id": 12345, "answers": []}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartUnpublishedQuiz(t *testing.T) {
	api := newTestAPI(t)
	author := api.signup("author")
	var quiz domain.Quiz
	api.do(http.MethodPost, "/quizzes", author, map[string]interface{}{"title": "Draft"}, &quiz)

	resp := api.do(http.MethodPost, "/quizzes/"+itoa(quiz.ID)+"/attempt", author, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = api.do(http.MethodPost, "/quizzes/abc/attempt", author, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFailHidesInternalErrors(t *testing.T) {
	s := &Server{log: logging.NewWithOutput(io.Discard, "info", "json", "test")}
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrQuizNotFound, http.StatusNotFound},
		{domain.Invalid("bad"), http.StatusBadRequest},
		{domain.ErrAttemptCompleted, http.StatusConflict},
		{fmt.Errorf("wrap: %w", domain.ErrEmailTaken), http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		s.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
		if tc.want == http.StatusInternalServerError {
			assert.Contains(t, rec.Body.String(), "internal server error")
			assert.NotContains(t, rec.Body.String(), "connection refused")
		}
	}
}

func getRaw(t *testing.T, api *testAPI, path, token string) string {
	return doRaw(t, api, http.MethodGet, path, token)
}

func doRaw(t *testing.T, api *testAPI, method, path, token string) string {
	t.Helper()
	req, err := http.NewRequest(method, api.server.URL+path, strings.NewReader(""))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
