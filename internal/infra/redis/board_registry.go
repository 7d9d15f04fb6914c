package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/domain"
	"github.com/redis/go-redis/v9"
)

// BoardRegistry keeps live boards in process and marks each active quiz in Redis
// so other instances can see which leaderboards have watchers.
type BoardRegistry struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.RWMutex
	boards map[int64]*app.LiveBoard
}

func NewBoardRegistry(client *redis.Client, ttl time.Duration) *BoardRegistry {
	return &BoardRegistry{
		client: client,
		ttl:    ttl,
		boards: make(map[int64]*app.LiveBoard),
	}
}

func (r *BoardRegistry) Subscribe(quizID int64) (*app.LiveBoard, <-chan domain.QuizLeaderboard, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	board := r.getOrCreateLocked(quizID)
	ch, cancel := board.Subscribe()
	return board, ch, cancel
}

func (r *BoardRegistry) getOrCreateLocked(quizID int64) *app.LiveBoard {
	if board, ok := r.boards[quizID]; ok {
		return board
	}
	board := app.NewLiveBoard(quizID)
	r.boards[quizID] = board
	// liveness marker, best effort
	_ = r.client.Set(context.Background(), liveKey(quizID), "1", r.ttl).Err()
	return board
}

func (r *BoardRegistry) Get(quizID int64) (*app.LiveBoard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	board, ok := r.boards[quizID]
	return board, ok
}

func (r *BoardRegistry) DeleteIfIdle(quizID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	board, ok := r.boards[quizID]
	if !ok || !board.IsIdle() {
		return
	}
	delete(r.boards, quizID)
	_ = r.client.Del(context.Background(), liveKey(quizID)).Err()
}

func liveKey(quizID int64) string {
	return "quiz:live:" + strconv.FormatInt(quizID, 10)
}
