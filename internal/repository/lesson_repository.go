package repository

import (
	"quizdesk_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Omit("Attachments").Save(lesson).Error
}

func (r *LessonRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&model.LessonAttachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Lesson{}, id).Error
	})
}

func (r *LessonRepository) FindByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.First(&lesson, id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *LessonRepository) FindByIDs(ids []uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	if len(ids) == 0 {
		return lessons, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) FindByAuthor(authorID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("author_id = ?", authorID).Order("created_at DESC, id DESC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) FindPublished() ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("status = ?", model.StatusPublished).Order("created_at DESC, id DESC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) FindAttachments(lessonID uint) ([]model.LessonAttachment, error) {
	var attachments []model.LessonAttachment
	err := r.DB.Where("lesson_id = ?", lessonID).Order("id ASC").Find(&attachments).Error
	return attachments, err
}

func (r *LessonRepository) FindAttachment(lessonID, attachmentID uint) (*model.LessonAttachment, error) {
	var attachment model.LessonAttachment
	err := r.DB.Where("id = ? AND lesson_id = ?", attachmentID, lessonID).First(&attachment).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *LessonRepository) CreateAttachment(attachment *model.LessonAttachment) error {
	return r.DB.Create(attachment).Error
}

func (r *LessonRepository) DeleteAttachment(id uint) error {
	return r.DB.Delete(&model.LessonAttachment{}, id).Error
}
