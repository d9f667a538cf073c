package repository

import (
	"quizdesk_backend/internal/model"

	"gorm.io/gorm"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

func (r *ResponseRepository) Create(response *model.Response) error {
	return r.DB.Create(response).Error
}

func (r *ResponseRepository) Update(response *model.Response) error {
	return r.DB.Save(response).Error
}

func (r *ResponseRepository) FindByID(id uint) (*model.Response, error) {
	var response model.Response
	if err := r.DB.First(&response, id).Error; err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *ResponseRepository) FindByQuizAndStudent(quizID, studentID uint) (*model.Response, error) {
	var response model.Response
	err := r.DB.Where("quiz_id = ? AND student_id = ?", quizID, studentID).First(&response).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *ResponseRepository) FindByQuiz(quizID uint) ([]model.Response, error) {
	var responses []model.Response
	err := r.DB.Where("quiz_id = ?", quizID).Order("submitted_at DESC").Find(&responses).Error
	return responses, err
}

func (r *ResponseRepository) FindByStudent(studentID uint) ([]model.Response, error) {
	var responses []model.Response
	err := r.DB.Where("student_id = ?", studentID).Order("submitted_at DESC").Find(&responses).Error
	return responses, err
}

func (r *ResponseRepository) DeleteOrphaned() (int64, error) {
	live := r.DB.Model(&model.Quiz{}).Select("id")
	result := r.DB.Where("quiz_id NOT IN (?)", live).Delete(&model.Response{})
	return result.RowsAffected, result.Error
}
