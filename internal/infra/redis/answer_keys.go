package redis

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyCache caches answer keys in Redis and falls back to a loader on a miss.
// Correct answers: HSET quiz:{quizID}:answers {questionID} {answerID,answerID}
// Points:          HSET quiz:{quizID}:points  {questionID} {points}
// Options:         HSET quiz:{quizID}:options {questionID} {answerID,answerID}
// Version:         INCR quiz:{quizID}:version on every invalidation
type AnswerKeyCache struct {
	client *redis.Client
	loader app.AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader app.AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error) {
	if key, ok := c.cached(ctx, quizID); ok {
		return key, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Another caller may have filled the cache meanwhile.
		if key, ok := c.cached(ctx, quizID); ok {
			return key, nil
		}

		version, verr := c.version(ctx, quizID)
		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return domain.AnswerKey{}, err
		}
		if verr == nil {
			c.store(ctx, key, version)
		}
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

// Invalidate drops the cached key and bumps the version so a load that was
// already running when the quiz changed cannot write its result back.
func (c *AnswerKeyCache) Invalidate(ctx context.Context, quizID int64) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, versionKey(quizID))
	pipe.Del(ctx, answersKey(quizID), pointsKey(quizID), optionsKey(quizID))
	_, err := pipe.Exec(ctx)
	c.sf.Forget(strconv.FormatInt(quizID, 10))
	return err
}

func (c *AnswerKeyCache) version(ctx context.Context, quizID int64) (string, error) {
	v, err := c.client.Get(ctx, versionKey(quizID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (c *AnswerKeyCache) cached(ctx context.Context, quizID int64) (domain.AnswerKey, bool) {
	pipe := c.client.Pipeline()
	answers := pipe.HGetAll(ctx, answersKey(quizID))
	points := pipe.HGetAll(ctx, pointsKey(quizID))
	options := pipe.HGetAll(ctx, optionsKey(quizID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.AnswerKey{}, false
	}
	if len(points.Val()) == 0 {
		return domain.AnswerKey{}, false
	}
	return decodeAnswerKey(quizID, answers.Val(), points.Val(), options.Val()), true
}

// store is best effort; a failed write only costs another load. Nothing is
// written when the version moved since the load began.
func (c *AnswerKeyCache) store(ctx context.Context, key domain.AnswerKey, version string) {
	if len(key.Questions) == 0 {
		return
	}
	answers, points, options := answersKey(key.QuizID), pointsKey(key.QuizID), optionsKey(key.QuizID)
	vkey := versionKey(key.QuizID)
	ttl := c.ttlWithJitter()

	_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for questionID, entry := range key.Questions {
				field := strconv.FormatInt(questionID, 10)
				pipe.HSet(ctx, answers, field, joinIDs(entry.CorrectID))
				pipe.HSet(ctx, points, field, entry.Points)
				pipe.HSet(ctx, options, field, joinIDs(entry.OptionID))
			}
			if ttl > 0 {
				pipe.Expire(ctx, answers, ttl)
				pipe.Expire(ctx, points, ttl)
				pipe.Expire(ctx, options, ttl)
			}
			return nil
		})
		return err
	}, vkey)
}

func decodeAnswerKey(quizID int64, answers, points, options map[string]string) domain.AnswerKey {
	key := domain.AnswerKey{QuizID: quizID, Questions: make(map[int64]domain.KeyEntry, len(points))}
	for field, raw := range points {
		questionID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		entry := domain.KeyEntry{Points: 1}
		if p, err := strconv.Atoi(raw); err == nil && p > 0 {
			entry.Points = p
		}
		entry.CorrectID = splitIDs(answers[field])
		entry.OptionID = splitIDs(options[field])
		key.Questions[questionID] = entry
	}
	return key
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func answersKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":answers"
}

func pointsKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":points"
}

func optionsKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":options"
}

func versionKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":version"
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
