package http

import "net/http"

func (s *Server) leaderboards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.svc.Leaderboards.Leaderboards(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) quizLeaderboard(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	board, err := s.svc.Leaderboards.QuizLeaderboard(r.Context(), quizID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Analytics.Analytics(r.Context(), userIDFrom(r.Context()), r.URL.Query().Get("range"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.Analytics.Dashboard(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) discover(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Catalog.Discover(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
