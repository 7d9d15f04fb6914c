package app

import (
	"context"

	"braincraft/internal/domain"
)

const globalLeaderboardSize = 50

// LeaderboardService builds the leaderboards and drives the live boards.
type LeaderboardService struct {
	reader   LeaderboardReader
	quizzes  QuizRepository
	registry BoardRegistry
}

func NewLeaderboardService(reader LeaderboardReader, quizzes QuizRepository, registry BoardRegistry) *LeaderboardService {
	return &LeaderboardService{reader: reader, quizzes: quizzes, registry: registry}
}

// Leaderboards returns the global board, one board per published quiz and
// the caller's global rank.
func (s *LeaderboardService) Leaderboards(ctx context.Context, userID string) (domain.Leaderboards, error) {
	global, err := s.reader.GlobalLeaderboard(ctx, globalLeaderboardSize)
	if err != nil {
		return domain.Leaderboards{}, err
	}
	ranked, err := s.reader.RankedAttempts(ctx, 0)
	if err != nil {
		return domain.Leaderboards{}, err
	}
	rank, err := s.reader.UserRank(ctx, userID)
	if err != nil {
		return domain.Leaderboards{}, err
	}
	if global == nil {
		global = []domain.GlobalLeaderboardEntry{}
	}
	return domain.Leaderboards{
		Global:   global,
		Quizzes:  groupBestAttempts(ranked),
		UserRank: rank,
	}, nil
}

// QuizLeaderboard returns the board of one published quiz.
func (s *LeaderboardService) QuizLeaderboard(ctx context.Context, quizID int64) (domain.QuizLeaderboard, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizLeaderboard{}, err
	}
	if !quiz.IsPublished {
		return domain.QuizLeaderboard{}, domain.ErrQuizUnavailable
	}
	ranked, err := s.reader.RankedAttempts(ctx, quizID)
	if err != nil {
		return domain.QuizLeaderboard{}, err
	}
	boards := groupBestAttempts(ranked)
	if len(boards) == 0 {
		return domain.QuizLeaderboard{
			QuizID:     quiz.ID,
			QuizTitle:  quiz.Title,
			Category:   quiz.Category,
			Difficulty: quiz.Difficulty,
			Attempts:   []domain.RankedAttempt{},
		}, nil
	}
	return boards[0], nil
}

// PublishQuiz refreshes the live board of a quiz when anyone is watching it.
func (s *LeaderboardService) PublishQuiz(ctx context.Context, quizID int64) error {
	board, ok := s.registry.Get(quizID)
	if !ok {
		return nil
	}
	snapshot, err := s.QuizLeaderboard(ctx, quizID)
	if err != nil {
		return err
	}
	board.Publish(snapshot)
	return nil
}

// Subscribe attaches to the live board of a quiz. The current board is
// delivered first. The caller must invoke cancel.
func (s *LeaderboardService) Subscribe(ctx context.Context, quizID int64) (<-chan domain.QuizLeaderboard, func(), error) {
	snapshot, err := s.QuizLeaderboard(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	board, ch, unsubscribe := s.registry.Subscribe(quizID)
	board.Publish(snapshot)

	cancel := func() {
		unsubscribe()
		s.registry.DeleteIfIdle(quizID)
	}
	return ch, cancel, nil
}

// groupBestAttempts keeps the first row per user and quiz. Rows arrive
// ordered by quiz, percentage desc and time taken asc, so the first row is
// the user's best attempt.
func groupBestAttempts(ranked []domain.RankedAttempt) []domain.QuizLeaderboard {
	boards := []domain.QuizLeaderboard{}
	index := make(map[int64]int)
	seen := make(map[int64]map[string]struct{})
	for _, row := range ranked {
		i, ok := index[row.QuizID]
		if !ok {
			i = len(boards)
			index[row.QuizID] = i
			seen[row.QuizID] = make(map[string]struct{})
			boards = append(boards, domain.QuizLeaderboard{
				QuizID:     row.QuizID,
				QuizTitle:  row.QuizTitle,
				Category:   row.Category,
				Difficulty: row.Difficulty,
				Attempts:   []domain.RankedAttempt{},
			})
		}
		if _, dup := seen[row.QuizID][row.UserID]; dup {
			continue
		}
		seen[row.QuizID][row.UserID] = struct{}{}
		boards[i].Attempts = append(boards[i].Attempts, row)
	}
	return boards
}
