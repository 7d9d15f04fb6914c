package app_test

import (
	"context"
	"io"
	"testing"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/domain"
	"braincraft/internal/infra/memory"
	"github.com/sirupsen/logrus"
)

type fixture struct {
	store   *memory.Store
	keys    *memory.AnswerKeyCache
	boards  *memory.BoardRegistry
	quizzes *app.QuizService
	runs    *app.AttemptService
	boardsS *app.LeaderboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	keys := memory.NewAnswerKeyCache(store, time.Minute)
	boards := memory.NewBoardRegistry()
	leaderboards := app.NewLeaderboardService(store, store, boards)
	return &fixture{
		store:   store,
		keys:    keys,
		boards:  boards,
		quizzes: app.NewQuizService(store, keys, log),
		runs: app.NewAttemptService(store, keys, leaderboards, log).
			WithShuffle(func(int, func(int, int)) {}),
		boardsS: leaderboards,
	}
}

func (f *fixture) user(t *testing.T, id string) {
	t.Helper()
	_, err := f.store.CreateUser(context.Background(), domain.User{ID: id, Username: id, Email: id + "@example.com"}, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
}

// publishedQuiz creates a published quiz owned by author with one question
// per points value; the first answer of every question is correct.
func (f *fixture) publishedQuiz(t *testing.T, author string, points ...int) (domain.Quiz, []domain.QuestionWithAnswers) {
	t.Helper()
	ctx := context.Background()
	quiz, err := f.quizzes.Create(ctx, author, app.NewQuiz{Title: "General knowledge", IsPublished: true})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	questions := make([]domain.QuestionWithAnswers, 0, len(points))
	for _, p := range points {
		q, err := f.quizzes.AddQuestion(ctx, quiz.ID, author, domain.QuestionInput{
			QuestionText: "question",
			Points:       p,
			Answers: []domain.AnswerInput{
				{AnswerText: "right", IsCorrect: true},
				{AnswerText: "wrong"},
			},
		})
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		questions = append(questions, q)
	}
	return quiz, questions
}

func right(q domain.QuestionWithAnswers) domain.AnswerSubmission {
	return domain.AnswerSubmission{QuestionID: q.ID, AnswerID: q.Answers[0].ID}
}

func wrong(q domain.QuestionWithAnswers) domain.AnswerSubmission {
	return domain.AnswerSubmission{QuestionID: q.ID, AnswerID: q.Answers[1].ID}
}

func intp(v int) *int { return &v }
