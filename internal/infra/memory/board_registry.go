package memory

import (
	"sync"

	"braincraft/internal/app"
	"braincraft/internal/domain"
)

// BoardRegistry is an in-memory implementation of app.BoardRegistry.
type BoardRegistry struct {
	mu     sync.RWMutex
	boards map[int64]*app.LiveBoard
}

func NewBoardRegistry() *BoardRegistry {
	return &BoardRegistry{
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
	if !ok {
		return
	}
	if board.IsIdle() {
		delete(r.boards, quizID)
	}
}
