package app_test

import (
	"context"
	"testing"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/domain"
)

func TestQuizLeaderboardKeepsBestAttemptPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "author")
	f.user(t, "alice")
	f.user(t, "bob")
	quiz, qs := f.publishedQuiz(t, "author", 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)

	play := func(user string, correct int, secs int) {
		started, err := f.runs.Start(ctx, quiz.ID, user)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		answers := make([]domain.AnswerSubmission, 0, len(qs))
		for i, q := range qs {
			if i < correct {
				answers = append(answers, right(q))
			} else {
				answers = append(answers, wrong(q))
			}
		}
		if _, err := f.runs.Submit(ctx, quiz.ID, user, app.Submission{
			AttemptID: started.AttemptID, Answers: answers, TimeTaken: intp(secs),
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	play("alice", 7, 30)
	play("alice", 9, 60)
	play("bob", 9, 45)

	board, err := f.boardsS.QuizLeaderboard(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Attempts) != 2 {
		t.Fatalf("expected one row per user, got %+v", board.Attempts)
	}
	if board.Attempts[0].UserID != "bob" || board.Attempts[1].UserID != "alice" {
		t.Fatalf("expected faster bob ahead on equal percentage, got %+v", board.Attempts)
	}
	if board.Attempts[1].Percentage != 90 {
		t.Fatalf("expected alice's best 90%%, got %v", board.Attempts[1].Percentage)
	}

	all, err := f.boardsS.Leaderboards(ctx, "alice")
	if err != nil {
		t.Fatalf("leaderboards: %v", err)
	}
	if len(all.Quizzes) != 1 || len(all.Quizzes[0].Attempts) != 2 {
		t.Fatalf("unexpected per-quiz boards %+v", all.Quizzes)
	}
	if all.UserRank == nil || *all.UserRank != 1 {
		t.Fatalf("expected alice ranked first with 16 points, got %v", all.UserRank)
	}
	if *all.Global[0].TotalPoints != 16 || all.Global[0].UserID != "alice" {
		t.Fatalf("unexpected global leader %+v", all.Global[0])
	}
}

func TestLeaderboardsRankNilWithoutStats(t *testing.T) {
	f := newFixture(t)
	boards, err := f.boardsS.Leaderboards(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("leaderboards: %v", err)
	}
	if boards.UserRank != nil {
		t.Fatalf("expected nil rank, got %d", *boards.UserRank)
	}
	if boards.Global == nil || boards.Quizzes == nil {
		t.Fatalf("expected empty lists, not nil")
	}
}

func TestLiveBoardReceivesSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "author")
	f.user(t, "player")
	quiz, qs := f.publishedQuiz(t, "author", 1)

	ch, cancel, err := f.boardsS.Subscribe(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	initial := <-ch
	if initial.QuizID != quiz.ID || len(initial.Attempts) != 0 {
		t.Fatalf("unexpected initial board %+v", initial)
	}

	started, _ := f.runs.Start(ctx, quiz.ID, "player")
	if _, err := f.runs.Submit(ctx, quiz.ID, "player", app.Submission{
		AttemptID: started.AttemptID, Answers: []domain.AnswerSubmission{right(qs[0])},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case update := <-ch:
		if len(update.Attempts) != 1 || update.Attempts[0].Score != 1 {
			t.Fatalf("expected updated board, got %+v", update.Attempts)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for board update")
	}

	cancel()
	if _, ok := f.boards.Get(quiz.ID); ok {
		t.Fatalf("expected idle board removed after cancel")
	}
}
