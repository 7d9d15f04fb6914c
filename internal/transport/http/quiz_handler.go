package http

import (
	"net/http"

	"braincraft/internal/app"
	"braincraft/internal/domain"
)

type createQuizRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
	Category    *string `json:"category" validate:"omitempty,max=50"`
	Difficulty  *string `json:"difficulty" validate:"omitempty,max=20"`
	TimeLimit   *int    `json:"time_limit" validate:"omitempty,min=0"`
	IsPublished bool    `json:"is_published"`
}

type updateQuizRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"is_published"`
}

type answerRequest struct {
	AnswerText  string  `json:"answer_text"`
	IsCorrect   bool    `json:"is_correct"`
	Explanation *string `json:"explanation"`
}

type questionRequest struct {
	QuestionText string          `json:"question_text"`
	QuestionType string          `json:"question_type"`
	Points       int             `json:"points"`
	ImageURL     *string         `json:"image_url"`
	Answers      []answerRequest `json:"answers"`
}

func (q questionRequest) toInput() domain.QuestionInput {
	in := domain.QuestionInput{
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Points:       q.Points,
		ImageURL:     q.ImageURL,
		Answers:      make([]domain.AnswerInput, 0, len(q.Answers)),
	}
	for _, a := range q.Answers {
		in.Answers = append(in.Answers, domain.AnswerInput{
			AnswerText:  a.AnswerText,
			IsCorrect:   a.IsCorrect,
			Explanation: a.Explanation,
		})
	}
	return in
}

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	quiz, err := s.svc.Quizzes.Create(r.Context(), userIDFrom(r.Context()), app.NewQuiz{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		TimeLimit:   req.TimeLimit,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (s *Server) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.svc.Quizzes.ListMine(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (s *Server) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	detail, err := s.svc.Quizzes.Get(r.Context(), quizID, userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) updateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req updateQuizRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	quiz, err := s.svc.Quizzes.Update(r.Context(), quizID, userIDFrom(r.Context()), domain.QuizUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Quizzes.Delete(r.Context(), quizID, userIDFrom(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "quiz deleted"})
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	questions, err := s.svc.Quizzes.Questions(r.Context(), quizID, userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (s *Server) addQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req questionRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	question, err := s.svc.Quizzes.AddQuestion(r.Context(), quizID, userIDFrom(r.Context()), req.toInput())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (s *Server) updateQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	questionID, err := pathID(r, "questionId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req questionRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	question, err := s.svc.Quizzes.UpdateQuestion(r.Context(), quizID, questionID, userIDFrom(r.Context()), req.toInput())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (s *Server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	questionID, err := pathID(r, "questionId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Quizzes.DeleteQuestion(r.Context(), quizID, questionID, userIDFrom(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "question deleted"})
}
