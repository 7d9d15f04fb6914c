package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/auth"
	"braincraft/internal/domain"
	"braincraft/internal/infra/memory"
	"braincraft/internal/logging"
	"braincraft/internal/metrics"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t       *testing.T
	server  *httptest.Server
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logging.NewWithOutput(io.Discard, "debug", "json", "braincraft-test")

	store := memory.NewStore()
	keys := memory.NewAnswerKeyCache(store, time.Minute)
	leaderboards := app.NewLeaderboardService(store, store, memory.NewBoardRegistry())
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	svc := Services{
		Users:        app.NewUserService(store, store, auth.NewBcryptHasher(bcrypt.MinCost), tokens),
		Quizzes:      app.NewQuizService(store, keys, log),
		Attempts:     app.NewAttemptService(store, keys, leaderboards, log),
		Leaderboards: leaderboards,
		Analytics:    app.NewAnalyticsService(store, store, store),
		Catalog:      app.NewCatalogService(store),
	}
	m := metrics.New()
	srv := NewServer(svc, auth.NewSessionProvider(tokens), store, m, log, Options{})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{t: t, server: ts, metrics: m}
}

// do sends body as JSON with an optional bearer token and decodes the
// response into out when out is non-nil.
func (a *testAPI) do(method, path, token string, body interface{}, out interface{}) *http.Response {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(a.t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp
}

// signup registers and logs in a user, returning the session token.
func (a *testAPI) signup(name string) string {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "secret123",
	}, nil)
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	resp = a.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": name + "@example.com", "password": "secret123",
	}, &login)
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(a.t, login.Token)
	return login.Token
}

// publishedQuiz creates a published quiz with one single-point question per
// entry; the first answer of each question is the correct one.
func (a *testAPI) publishedQuiz(token string, questions int) (domain.Quiz, []domain.QuestionWithAnswers) {
	a.t.Helper()
	var quiz domain.Quiz
	resp := a.do(http.MethodPost, "/quizzes", token, map[string]interface{}{
		"title": "Capitals", "category": "geography", "is_published": true,
	}, &quiz)
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)

	out := make([]domain.QuestionWithAnswers, 0, questions)
	for i := 0; i < questions; i++ {
		var q domain.QuestionWithAnswers
		resp := a.do(http.MethodPost, "/quizzes/"+itoa(quiz.ID)+"/questions", token, map[string]interface{}{
			"question_text": "Capital?",
			"answers": []map[string]interface{}{
				{"answer_text": "Paris", "is_correct": true},
				{"answer_text": "Lyon"},
			},
		}, &q)
		require.Equal(a.t, http.StatusCreated, resp.StatusCode)
		out = append(out, q)
	}
	return quiz, out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
