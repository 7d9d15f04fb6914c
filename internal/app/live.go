package app

import (
	"sync"
	"time"

	"braincraft/internal/domain"
)

// BoardRegistry abstracts where live boards are tracked (in-memory, Redis, etc).
type BoardRegistry interface {
	Get(quizID int64) (*LiveBoard, bool)
	// Subscribe attaches a subscriber to the quiz board, creating it if needed,
	// atomically with respect to DeleteIfIdle.
	Subscribe(quizID int64) (*LiveBoard, <-chan domain.QuizLeaderboard, func())
	DeleteIfIdle(quizID int64)
}

// LiveBoard fans out the latest leaderboard of one quiz to its subscribers.
type LiveBoard struct {
	quizID      int64
	now         func() time.Time
	mu          sync.RWMutex
	latest      *domain.QuizLeaderboard
	subscribers map[chan domain.QuizLeaderboard]struct{}
}

// NewLiveBoard is exported for infrastructure layers that track boards.
func NewLiveBoard(quizID int64) *LiveBoard {
	return NewLiveBoardWithClock(quizID, time.Now)
}

// NewLiveBoardWithClock allows deterministic timestamps in tests.
func NewLiveBoardWithClock(quizID int64, now func() time.Time) *LiveBoard {
	return &LiveBoard{
		quizID:      quizID,
		now:         now,
		subscribers: make(map[chan domain.QuizLeaderboard]struct{}),
	}
}

// QuizID returns the quiz the board belongs to.
func (b *LiveBoard) QuizID() int64 {
	return b.quizID
}

// Publish stores the board as the latest snapshot and broadcasts it.
func (b *LiveBoard) Publish(board domain.QuizLeaderboard) {
	b.mu.Lock()
	defer b.mu.Unlock()

	board.UpdatedAt = b.now()
	b.latest = &board
	b.broadcastLocked(board)
}

// Latest returns the last published snapshot, if any.
func (b *LiveBoard) Latest() (domain.QuizLeaderboard, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return domain.QuizLeaderboard{}, false
	}
	return *b.latest, true
}

// Subscribe returns a channel of leaderboard updates. The latest snapshot,
// when present, is delivered first. The caller must invoke cancel.
func (b *LiveBoard) Subscribe() (<-chan domain.QuizLeaderboard, func()) {
	ch := make(chan domain.QuizLeaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	if b.latest != nil {
		ch <- *b.latest
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// IsIdle reports whether nobody is subscribed.
func (b *LiveBoard) IsIdle() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers) == 0
}

func (b *LiveBoard) broadcastLocked(board domain.QuizLeaderboard) {
	for ch := range b.subscribers {
		select {
		case ch <- board:
		default:
			// Slow subscriber: drop its oldest pending update.
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
}
