package http

import (
	"net/http"
	"time"

	"braincraft/internal/domain"
)

const wsWriteWait = 10 * time.Second

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// serveLiveLeaderboard streams the quiz's leaderboard: the current board on
// connect, then a fresh one after every completed attempt.
func (s *Server) serveLiveLeaderboard(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Resolve the quiz before upgrading so unknown quizzes get a plain 404.
	if _, err := s.svc.Leaderboards.QuizLeaderboard(r.Context(), quizID); err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		requestLogger(r, s.log).WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := s.svc.Leaderboards.Subscribe(r.Context(), quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	if s.metrics != nil {
		s.metrics.LiveSubscribers.Inc()
		defer s.metrics.LiveSubscribers.Dec()
	}

	closed := make(chan struct{})
	writerDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for {
			select {
			case board, ok := <-updates:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(outboundMessage[domain.QuizLeaderboard]{Type: "leaderboard", Payload: board}); err != nil {
					requestLogger(r, s.log).WithError(err).Debug("ws write failed")
					_ = conn.Close()
					return
				}
			case <-closed:
				return
			}
		}
	}()

	// The feed is one way; reading only detects the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closed)
	<-writerDone
}
