package repository

import (
	"quizdesk_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type KioskSessionRepository struct {
	DB *gorm.DB
}

func NewKioskSessionRepository(db *gorm.DB) *KioskSessionRepository {
	return &KioskSessionRepository{DB: db}
}

func (r *KioskSessionRepository) Create(session *model.KioskSession) error {
	return r.DB.Create(session).Error
}

func (r *KioskSessionRepository) Update(session *model.KioskSession) error {
	return r.DB.Save(session).Error
}

func (r *KioskSessionRepository) FindByID(id string) (*model.KioskSession, error) {
	var session model.KioskSession
	if err := r.DB.Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *KioskSessionRepository) FindActive(quizID, studentID uint) (*model.KioskSession, error) {
	var session model.KioskSession
	err := r.DB.Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, model.KioskActive).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *KioskSessionRepository) FindActiveStartedBefore(before time.Time) ([]model.KioskSession, error) {
	var sessions []model.KioskSession
	err := r.DB.Where("status = ? AND started_at < ?", model.KioskActive, before).Find(&sessions).Error
	return sessions, err
}
