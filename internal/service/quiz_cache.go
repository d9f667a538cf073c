package service

import (
	"context"
	"encoding/json"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const quizCacheTTL = 5 * time.Minute

// QuizCache 已发布测验按分享链接缓存
type QuizCache interface {
	Get(ctx context.Context, link string) (*model.Quiz, bool)
	Set(ctx context.Context, quiz *model.Quiz)
	Invalidate(ctx context.Context, link string)
}

// NewQuizCache 未启用 redis 时返回空实现
func NewQuizCache(rdb *redis.Client) QuizCache {
	if rdb == nil {
		return noopQuizCache{}
	}
	return &redisQuizCache{rdb: rdb, ttl: quizCacheTTL}
}

type redisQuizCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func quizCacheKey(link string) string {
	return "quiz:link:" + link
}

func (c *redisQuizCache) Get(ctx context.Context, link string) (*model.Quiz, bool) {
	data, err := c.rdb.Get(ctx, quizCacheKey(link)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Quiz cache read failed", zap.String("link", link), zap.Error(err))
		}
		return nil, false
	}

	var quiz model.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, false
	}
	return &quiz, true
}

func (c *redisQuizCache) Set(ctx context.Context, quiz *model.Quiz) {
	data, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, quizCacheKey(quiz.Link), data, c.ttl).Err(); err != nil {
		logger.Log.Warn("Quiz cache write failed", zap.String("link", quiz.Link), zap.Error(err))
	}
}

func (c *redisQuizCache) Invalidate(ctx context.Context, link string) {
	if err := c.rdb.Del(ctx, quizCacheKey(link)).Err(); err != nil {
		logger.Log.Warn("Quiz cache invalidate failed", zap.String("link", link), zap.Error(err))
	}
}

type noopQuizCache struct{}

func (noopQuizCache) Get(context.Context, string) (*model.Quiz, bool) { return nil, false }
func (noopQuizCache) Set(context.Context, *model.Quiz) {}
func (noopQuizCache) Invalidate(context.Context, string) {}
