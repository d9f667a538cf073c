// Package inmem 提供基于内存的仓储实现，用于测试和 database.driver=memory 的本地调试。
package inmem

import (
	"sort"
	"sync"
	"time"

	"quizdesk_backend/internal/model"
)

// DB 所有内存表共用一把锁
type DB struct {
	mu     sync.RWMutex
	nextID uint

	users       map[uint]*model.User
	quizzes     map[uint]*model.Quiz
	responses   map[uint]*model.Response
	lessons     map[uint]*model.Lesson
	attachments map[uint]*model.LessonAttachment
	analytics   map[uint]*model.LessonAnalytics // key: lessonID
	views       map[uint]*model.LessonView
	sessions    map[string]*model.KioskSession
}

func NewDB() *DB {
	return &DB{
		users:       make(map[uint]*model.User),
		quizzes:     make(map[uint]*model.Quiz),
		responses:   make(map[uint]*model.Response),
		lessons:     make(map[uint]*model.Lesson),
		attachments: make(map[uint]*model.LessonAttachment),
		analytics:   make(map[uint]*model.LessonAnalytics),
		views:       make(map[uint]*model.LessonView),
		sessions:    make(map[string]*model.KioskSession),
	}
}

// stamp 分配自增 ID 并填充时间戳，调用方需持有写锁
func (db *DB) stamp(base *model.BaseModel) {
	now := time.Now()
	if base.ID == 0 {
		db.nextID++
		base.ID = db.nextID
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func idSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// newestFirst 与 gorm 仓储的 ORDER BY created_at DESC, id DESC 一致
func newestFirst[T any](items []T, base func(T) model.BaseModel) {
	sort.Slice(items, func(i, j int) bool {
		a, b := base(items[i]), base(items[j])
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
