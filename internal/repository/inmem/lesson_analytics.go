package inmem

import (
	"sort"
	"time"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"

	"gorm.io/gorm"
)

type lessonAnalyticsRepository struct {
	db *DB
}

var _ repository.LessonAnalyticsRepo = (*lessonAnalyticsRepository)(nil)

func NewLessonAnalyticsRepository(db *DB) repository.LessonAnalyticsRepo {
	return &lessonAnalyticsRepository{db: db}
}

func (r *lessonAnalyticsRepository) Track(lessonID uint, fn repository.TrackFunc) (*model.LessonAnalytics, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.analytics[lessonID]
	var analytics model.LessonAnalytics
	if ok {
		analytics = *stored
	} else {
		analytics = model.LessonAnalytics{LessonID: lessonID}
	}

	views := make([]model.LessonView, 0)
	for _, v := range r.db.views {
		if v.LessonID == lessonID {
			views = append(views, *v)
		}
	}

	view, err := fn(&analytics, views)
	if err != nil {
		return nil, err
	}

	if view != nil {
		r.db.stamp(&view.BaseModel)
		copied := *view
		r.db.views[copied.ID] = &copied
	}
	r.db.stamp(&analytics.BaseModel)
	saved := analytics
	r.db.analytics[lessonID] = &saved
	return &analytics, nil
}

func (r *lessonAnalyticsRepository) FindByLesson(lessonID uint) (*model.LessonAnalytics, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if a, ok := r.db.analytics[lessonID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *lessonAnalyticsRepository) FindViews(lessonID uint) ([]model.LessonView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	views := make([]model.LessonView, 0)
	for _, v := range r.db.views {
		if v.LessonID == lessonID {
			views = append(views, *v)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ViewedAt.After(views[j].ViewedAt) })
	return views, nil
}

func (r *lessonAnalyticsRepository) FindByLessons(lessonIDs []uint) ([]model.LessonAnalytics, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	list := make([]model.LessonAnalytics, 0, len(lessonIDs))
	for id := range idSet(lessonIDs) {
		if a, ok := r.db.analytics[id]; ok {
			list = append(list, *a)
		}
	}
	return list, nil
}

func (r *lessonAnalyticsRepository) CountViewsSince(lessonIDs []uint, since time.Time) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := idSet(lessonIDs)
	var count int64
	for _, v := range r.db.views {
		if ids[v.LessonID] && !v.ViewedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
