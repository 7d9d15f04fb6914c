// Package http exposes the quiz service over HTTP and WebSocket.
package http

import (
	"context"
	"net/http"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultCookieTTL = 7 * 24 * time.Hour

// Authenticator resolves the caller of a request to a user id.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// Pinger reports the database clock, or an error when it is unreachable.
type Pinger interface {
	Ping(ctx context.Context) (time.Time, error)
}

// Services groups the use cases served over HTTP.
type Services struct {
	Users        *app.UserService
	Quizzes      *app.QuizService
	Attempts     *app.AttemptService
	Leaderboards *app.LeaderboardService
	Analytics    *app.AnalyticsService
	Catalog      *app.CatalogService
}

type Options struct {
	SecureCookie bool
	CookieTTL    time.Duration
}

type Server struct {
	svc      Services
	sessions Authenticator
	db       Pinger
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	opts     Options
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewServer(svc Services, sessions Authenticator, db Pinger, m *metrics.Metrics, log logrus.FieldLogger, opts Options) *Server {
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = defaultCookieTTL
	}
	return &Server{
		svc:      svc,
		sessions: sessions,
		db:       db,
		metrics:  m,
		log:      log,
		opts:     opts,
		validate: newValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler wrapped in the shared middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}

	route("GET /healthz", s.healthz)
	route("GET /health", s.health)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	route("POST /auth/register", s.register)
	route("POST /auth/login", s.login)
	route("POST /auth/logout", s.logout)
	route("GET /me", s.authed(s.profile))
	route("PUT /me", s.authed(s.updateProfile))

	route("POST /quizzes", s.authed(s.createQuiz))
	route("GET /quizzes", s.authed(s.listQuizzes))
	route("GET /quizzes/{id}", s.authed(s.getQuiz))
	route("PUT /quizzes/{id}", s.authed(s.updateQuiz))
	route("DELETE /quizzes/{id}", s.authed(s.deleteQuiz))
	route("GET /quizzes/{id}/questions", s.authed(s.listQuestions))
	route("POST /quizzes/{id}/questions", s.authed(s.addQuestion))
	route("PUT /quizzes/{id}/questions/{questionId}", s.authed(s.updateQuestion))
	route("DELETE /quizzes/{id}/questions/{questionId}", s.authed(s.deleteQuestion))

	route("POST /quizzes/{id}/attempt", s.authed(s.startAttempt))
	route("PUT /quizzes/{id}/attempt", s.authed(s.submitAttempt))
	route("GET /quizzes/{id}/attempt", s.authed(s.attemptHistory))

	route("GET /leaderboard", s.authed(s.leaderboards))
	route("GET /quizzes/{id}/leaderboard", s.authed(s.quizLeaderboard))
	route("GET /ws/quizzes/{id}/leaderboard", s.authed(s.serveLiveLeaderboard))

	route("GET /analytics", s.authed(s.analytics))
	route("GET /dashboard", s.authed(s.dashboard))
	route("GET /discover", s.authed(s.discover))

	return s.withRequestID(s.withRecover(s.withAccessLog(mux)))
}
