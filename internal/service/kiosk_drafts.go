package service

import (
	"context"
	"encoding/json"
	"quizdesk_backend/internal/model"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DraftStore 锁定模式下未提交的作答草稿
type DraftStore interface {
	Save(ctx context.Context, sessionID string, answers []model.Answer) error
	// Load 没有草稿时返回 nil
	Load(ctx context.Context, sessionID string) ([]model.Answer, error)
	Delete(ctx context.Context, sessionID string) error
}

func NewDraftStore(rdb *redis.Client, ttl time.Duration) DraftStore {
	if rdb == nil {
		return NewMemoryDraftStore()
	}
	return &redisDraftStore{rdb: rdb, ttl: ttl}
}

type redisDraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func draftKey(sessionID string) string {
	return "kiosk:draft:" + sessionID
}

func (s *redisDraftStore) Save(ctx context.Context, sessionID string, answers []model.Answer) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, draftKey(sessionID), data, s.ttl).Err()
}

func (s *redisDraftStore) Load(ctx context.Context, sessionID string) ([]model.Answer, error) {
	data, err := s.rdb.Get(ctx, draftKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var answers []model.Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *redisDraftStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, draftKey(sessionID)).Err()
}

// MemoryDraftStore 单实例部署或测试使用，不做过期处理
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string][]model.Answer
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string][]model.Answer)}
}

func (s *MemoryDraftStore) Save(ctx context.Context, sessionID string, answers []model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[sessionID] = append([]model.Answer(nil), answers...)
	return nil
}

func (s *MemoryDraftStore) Load(ctx context.Context, sessionID string) ([]model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers, ok := s.drafts[sessionID]
	if !ok {
		return nil, nil
	}
	return append([]model.Answer(nil), answers...), nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
	return nil
}
