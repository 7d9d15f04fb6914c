package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"braincraft/internal/app"
	"braincraft/internal/domain"
)

type submitAttemptRequest struct {
	AttemptID *int64          `json:"attempt_id"`
	Answers   json.RawMessage `json:"answers"`
	TimeTaken *int            `json:"time_taken"`
}

type submittedAnswer struct {
	QuestionID int64 `json:"question_id"`
	AnswerID   int64 `json:"answer_id"`
}

var errSubmissionShape = domain.Invalid("attempt ID and answers array are required")

// parseSubmission enforces the submit body shape: attempt_id present and
// answers a JSON array.
func parseSubmission(body io.Reader) (app.Submission, error) {
	var req submitAttemptRequest
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&req); err != nil {
		return app.Submission{}, errSubmissionShape
	}
	if req.AttemptID == nil || len(req.Answers) == 0 || req.Answers[0] != '[' {
		return app.Submission{}, errSubmissionShape
	}
	var answers []submittedAnswer
	if err := json.Unmarshal(req.Answers, &answers); err != nil {
		return app.Submission{}, domain.Invalid("answers must be a list of {question_id, answer_id}")
	}
	if req.TimeTaken != nil && *req.TimeTaken < 0 {
		return app.Submission{}, domain.Invalid("time_taken must not be negative")
	}

	sub := app.Submission{
		AttemptID: *req.AttemptID,
		Answers:   make([]domain.AnswerSubmission, 0, len(answers)),
		TimeTaken: req.TimeTaken,
	}
	for _, a := range answers {
		sub.Answers = append(sub.Answers, domain.AnswerSubmission{QuestionID: a.QuestionID, AnswerID: a.AnswerID})
	}
	return sub, nil
}

func (s *Server) startAttempt(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	started, err := s.svc.Attempts.Start(r.Context(), quizID, userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.AttemptsStarted.Inc()
	}
	writeJSON(w, http.StatusCreated, started)
}

func (s *Server) submitAttempt(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := parseSubmission(r.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.svc.Attempts.Submit(r.Context(), quizID, userIDFrom(r.Context()), sub)
	s.countGraded(err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) countGraded(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "graded"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConflict):
		outcome = "resubmitted"
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "failed"
	}
	s.metrics.AttemptsGraded.WithLabelValues(outcome).Inc()
}

func (s *Server) attemptHistory(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	attempts, err := s.svc.Attempts.History(r.Context(), quizID, userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}
