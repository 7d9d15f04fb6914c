package http

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

type databaseHealth struct {
	Connected bool       `json:"connected"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Database  databaseHealth `json:"database"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// health reports the database as disconnected without failing the probe.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC()}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	dbTime, err := s.db.Ping(ctx)
	if err != nil {
		requestLogger(r, s.log).WithError(err).Warn("database ping failed")
		resp.Database = databaseHealth{Error: err.Error()}
	} else {
		resp.Database = databaseHealth{Connected: true, Timestamp: &dbTime}
	}
	writeJSON(w, http.StatusOK, resp)
}
