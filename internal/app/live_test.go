package app_test

import (
	"testing"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/domain"
)

func TestLiveBoardDropsStaleUpdates(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	board := app.NewLiveBoardWithClock(3, func() time.Time { return fixed })

	ch, cancel := board.Subscribe()
	defer cancel()

	// Never read: the publisher must not block once the buffer is full.
	for i := 0; i < 20; i++ {
		board.Publish(domain.QuizLeaderboard{QuizID: 3, QuizTitle: "round", Attempts: make([]domain.RankedAttempt, i)})
	}

	var last domain.QuizLeaderboard
	for i := 0; i < 8; i++ {
		last = <-ch
	}
	if len(last.Attempts) != 19 {
		t.Fatalf("expected newest update kept, got %d attempts", len(last.Attempts))
	}
	if !last.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected board stamped by clock, got %v", last.UpdatedAt)
	}

	latest, ok := board.Latest()
	if !ok || len(latest.Attempts) != 19 {
		t.Fatalf("expected latest snapshot stored")
	}
}

func TestLiveBoardReplaysLatestOnSubscribe(t *testing.T) {
	board := app.NewLiveBoard(4)
	board.Publish(domain.QuizLeaderboard{QuizID: 4})

	ch, cancel := board.Subscribe()
	select {
	case got := <-ch:
		if got.QuizID != 4 {
			t.Fatalf("unexpected snapshot %+v", got)
		}
	default:
		t.Fatalf("expected latest snapshot delivered on subscribe")
	}
	if board.IsIdle() {
		t.Fatalf("expected subscriber registered")
	}
	cancel()
	cancel()
	if !board.IsIdle() {
		t.Fatalf("expected board idle after cancel")
	}
}
