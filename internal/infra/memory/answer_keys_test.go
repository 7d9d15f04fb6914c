package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/domain"
)

func TestAnswerKeyCacheCaches(t *testing.T) {
	loader := &countingLoader{AnswerKeyLoader: seededStore(t)}
	cache := NewAnswerKeyCache(loader, time.Minute)

	key, err := cache.GetAnswerKey(context.Background(), 1)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if len(key.Questions) != 1 {
		t.Fatalf("expected 1 question in key, got %d", len(key.Questions))
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := cache.GetAnswerKey(context.Background(), 1); err != nil {
		t.Fatalf("get key 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestAnswerKeyCacheExpiresAndInvalidates(t *testing.T) {
	loader := &countingLoader{AnswerKeyLoader: seededStore(t)}
	cache := NewAnswerKeyCache(loader, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.GetAnswerKey(context.Background(), 1)
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetAnswerKey(context.Background(), 1)
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}

	if err := cache.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.GetAnswerKey(context.Background(), 1)
	if loader.count() != 3 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.count())
	}
}

func TestAnswerKeyCacheInvalidateDuringLoad(t *testing.T) {
	loader := newGatedLoader()
	cache := NewAnswerKeyCache(loader, time.Minute)
	ctx := context.Background()

	stale := make(chan domain.AnswerKey, 1)
	go func() {
		key, _ := cache.GetAnswerKey(ctx, 1)
		stale <- key
	}()
	<-loader.entered

	// the quiz is edited while the first load is still reading the old rows
	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	fresh := make(chan domain.AnswerKey, 1)
	go func() {
		key, _ := cache.GetAnswerKey(ctx, 1)
		fresh <- key
	}()
	select {
	case key := <-fresh:
		if len(key.Questions) != 2 {
			t.Fatalf("expected fresh key after invalidate, got %d questions", len(key.Questions))
		}
	case <-time.After(2 * time.Second):
		close(loader.release)
		t.Fatal("get after invalidate joined the in-flight load")
	}

	close(loader.release)
	if key := <-stale; len(key.Questions) != 1 {
		t.Fatalf("expected the first caller to see the old key, got %d questions", len(key.Questions))
	}

	key, err := cache.GetAnswerKey(ctx, 1)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if len(key.Questions) != 2 {
		t.Fatalf("stale load overwrote the cache, got %d questions", len(key.Questions))
	}
	if loader.count() != 2 {
		t.Fatalf("expected 2 loads, got %d", loader.count())
	}
}

func TestAnswerKeyCacheMissingQuiz(t *testing.T) {
	cache := NewAnswerKeyCache(NewStore(), time.Minute)
	if _, err := cache.GetAnswerKey(context.Background(), 42); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	app.AnswerKeyLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.AnswerKeyLoader.LoadAnswerKey(ctx, quizID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// gatedLoader blocks its first load until release is closed and serves a
// one-question key from it; later loads return a two-question key at once.
type gatedLoader struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLoader) LoadAnswerKey(_ context.Context, quizID int64) (domain.AnswerKey, error) {
	l.mu.Lock()
	l.calls++
	n := l.calls
	l.mu.Unlock()

	key := domain.AnswerKey{QuizID: quizID, Questions: map[int64]domain.KeyEntry{
		1: {Points: 1, CorrectID: []int64{10}, OptionID: []int64{10, 11}},
	}}
	if n == 1 {
		close(l.entered)
		<-l.release
		return key, nil
	}
	key.Questions[2] = domain.KeyEntry{Points: 2, CorrectID: []int64{20}, OptionID: []int64{20, 21}}
	return key, nil
}

func (l *gatedLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// seededStore holds quiz 1 with one question "2 + 2" whose second answer is correct.
func seededStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store := NewStore()
	if _, err := store.CreateUser(ctx, domain.User{ID: "u1", Username: "alice", Email: "alice@example.com"}, "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	quiz, err := store.CreateQuiz(ctx, domain.Quiz{Title: "Maths", CreatorID: "u1", IsPublished: true})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	_, err = store.AddQuestion(ctx, quiz.ID, domain.QuestionInput{
		QuestionText: "What is 2 + 2?",
		QuestionType: domain.QuestionMultipleChoice,
		Points:       1,
		Answers: []domain.AnswerInput{
			{AnswerText: "3"},
			{AnswerText: "4", IsCorrect: true},
		},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	return store
}
