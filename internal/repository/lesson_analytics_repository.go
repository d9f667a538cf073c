package repository

import (
	"errors"
	"quizdesk_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonAnalyticsRepository struct {
	DB *gorm.DB
}

func NewLessonAnalyticsRepository(db *gorm.DB) *LessonAnalyticsRepository {
	return &LessonAnalyticsRepository{DB: db}
}

func (r *LessonAnalyticsRepository) Track(lessonID uint, fn TrackFunc) (*model.LessonAnalytics, error) {
	var analytics model.LessonAnalytics

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		// 并发浏览时先占住统计行，不存在则插入（忽略并发插入冲突）
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.LessonAnalytics{LessonID: lessonID}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("lesson_id = ?", lessonID).First(&analytics).Error; err != nil {
			return err
		}

		var views []model.LessonView
		if err := tx.Where("lesson_id = ?", lessonID).Find(&views).Error; err != nil {
			return err
		}

		view, err := fn(&analytics, views)
		if err != nil {
			return err
		}
		if view != nil {
			if err := tx.Save(view).Error; err != nil {
				return err
			}
		}
		return tx.Save(&analytics).Error
	})
	if err != nil {
		return nil, err
	}
	return &analytics, nil
}

func (r *LessonAnalyticsRepository) FindByLesson(lessonID uint) (*model.LessonAnalytics, error) {
	var analytics model.LessonAnalytics
	if err := r.DB.Where("lesson_id = ?", lessonID).First(&analytics).Error; err != nil {
		return nil, err
	}
	return &analytics, nil
}

func (r *LessonAnalyticsRepository) FindViews(lessonID uint) ([]model.LessonView, error) {
	var views []model.LessonView
	err := r.DB.Where("lesson_id = ?", lessonID).Order("viewed_at DESC").Find(&views).Error
	return views, err
}

func (r *LessonAnalyticsRepository) FindByLessons(lessonIDs []uint) ([]model.LessonAnalytics, error) {
	var list []model.LessonAnalytics
	if len(lessonIDs) == 0 {
		return list, nil
	}
	err := r.DB.Where("lesson_id IN ?", lessonIDs).Find(&list).Error
	return list, err
}

func (r *LessonAnalyticsRepository) CountViewsSince(lessonIDs []uint, since time.Time) (int64, error) {
	var count int64
	if len(lessonIDs) == 0 {
		return 0, nil
	}
	err := r.DB.Model(&model.LessonView{}).
		Where("lesson_id IN ? AND viewed_at >= ?", lessonIDs, since).
		Count(&count).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return count, err
}
