package repository

import (
	"quizdesk_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) Update(quiz *model.Quiz) error {
	return r.DB.Save(quiz).Error
}

func (r *QuizRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Quiz{}, id).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) FindByLink(link string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.Where("link = ?", link).First(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) FindByIDs(ids []uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	if len(ids) == 0 {
		return quizzes, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) FindByAuthor(authorID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("author_id = ?", authorID).Order("created_at DESC, id DESC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) FindPublished() ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("status = ?", model.StatusPublished).Order("created_at DESC, id DESC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) LinkExists(link string) (bool, error) {
	var count int64
	// 软删除的测验也占用链接
	err := r.DB.Unscoped().Model(&model.Quiz{}).Where("link = ?", link).Count(&count).Error
	return count > 0, err
}
