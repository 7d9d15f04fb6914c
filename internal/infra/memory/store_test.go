package memory

import (
	"context"
	"testing"
	"time"

	"braincraft/internal/domain"
)

func TestDeleteQuestionResequences(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	quiz, _ := store.CreateQuiz(ctx, domain.Quiz{Title: "Order", CreatorID: "u1"})

	var ids []int64
	for _, text := range []string{"first", "second", "third"} {
		q, err := store.AddQuestion(ctx, quiz.ID, twoAnswers(text))
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		ids = append(ids, q.ID)
	}

	if err := store.DeleteQuestion(ctx, quiz.ID, ids[0]); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	questions, _ := store.ListQuestions(ctx, quiz.ID)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if q.QuestionOrder != i+1 {
			t.Fatalf("expected order %d, got %d", i+1, q.QuestionOrder)
		}
	}
	if questions[0].QuestionText != "second" || questions[1].QuestionText != "third" {
		t.Fatalf("relative order not preserved: %+v", questions)
	}

	next, _ := store.AddQuestion(ctx, quiz.ID, twoAnswers("fourth"))
	if next.QuestionOrder != 3 {
		t.Fatalf("expected appended question at 3, got %d", next.QuestionOrder)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if _, err := store.CreateUser(ctx, domain.User{ID: "u1", Username: "alice", Email: "a@example.com"}, "h"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, domain.User{ID: "u2", Username: "bob", Email: "a@example.com"}, "h"); err != domain.ErrEmailTaken {
		t.Fatalf("expected email taken, got %v", err)
	}
	if _, err := store.CreateUser(ctx, domain.User{ID: "u3", Username: "alice", Email: "c@example.com"}, "h"); err != domain.ErrUsernameTaken {
		t.Fatalf("expected username taken, got %v", err)
	}
	username := "alice"
	if _, err := store.UpdateProfile(ctx, "u1", domain.ProfileUpdate{Username: &username}); err != nil {
		t.Fatalf("keeping own username must succeed: %v", err)
	}
}

func TestCompleteAttemptUpdatesStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewStoreWithClock(func() time.Time { return now })
	quiz, _ := store.CreateQuiz(ctx, domain.Quiz{Title: "Stats", CreatorID: "author", IsPublished: true})
	q, _ := store.AddQuestion(ctx, quiz.ID, domain.QuestionInput{
		QuestionText: "pick", Points: 3,
		Answers: []domain.AnswerInput{{AnswerText: "a", IsCorrect: true}, {AnswerText: "b"}},
	})

	for round, score := range []int{3, 0} {
		sheet, err := store.StartAttempt(ctx, quiz.ID, "player")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if sheet.Attempt.MaxScore != 3 {
			t.Fatalf("expected max score 3, got %d", sheet.Attempt.MaxScore)
		}
		now = now.Add(time.Minute)
		_, err = store.CompleteAttempt(ctx, domain.AttemptCompletion{
			AttemptID: sheet.Attempt.ID, QuizID: quiz.ID, UserID: "player", Score: score,
			Answers: []domain.GradedAnswer{{QuestionID: q.ID, AnswerID: q.Answers[round].ID, IsCorrect: score > 0, Awarded: score}},
		})
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	stats, _ := store.UserStats(ctx, "player")
	if stats.QuizzesTaken != 2 || stats.TotalPoints != 3 || stats.AverageScore != 1.5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	history, _ := store.ListAttempts(ctx, quiz.ID, "player")
	if len(history) != 2 || history[0].Score != 0 || history[1].Score != 3 {
		t.Fatalf("expected newest attempt first, got %+v", history)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	sheet, err := store.StartAttempt(ctx, 1, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.DeleteQuiz(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetQuiz(ctx, 1); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz gone, got %v", err)
	}
	if _, err := store.ReviewAttempt(ctx, sheet.Attempt.ID, nil); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected attempt gone, got %v", err)
	}
	if len(store.questions) != 0 || len(store.answers) != 0 {
		t.Fatalf("expected questions and answers removed")
	}
}

func TestUserRankWithoutStats(t *testing.T) {
	rank, err := NewStore().UserRank(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != nil {
		t.Fatalf("expected nil rank, got %d", *rank)
	}
}

func twoAnswers(text string) domain.QuestionInput {
	return domain.QuestionInput{
		QuestionText: text,
		QuestionType: domain.QuestionMultipleChoice,
		Answers:      []domain.AnswerInput{{AnswerText: "yes", IsCorrect: true}, {AnswerText: "no"}},
	}
}
