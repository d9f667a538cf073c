package model

import (
	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	Checkbox       QuestionType = "checkbox"
	ShortAnswer    QuestionType = "short-answer"
	Paragraph      QuestionType = "paragraph"
)

// IsChoice 选择题（单选、多选）才有选项和标准答案
func (t QuestionType) IsChoice() bool {
	return t == MultipleChoice || t == Checkbox
}

type PublishStatus string

const (
	StatusDraft     PublishStatus = "draft"
	StatusPublished PublishStatus = "published"
)

func (s PublishStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Question 以 JSON 形式存储在 quizzes.questions 列中
// swagger:model Question
type Question struct {
	Type           QuestionType `json:"type" validate:"required,oneof=multiple-choice checkbox short-answer paragraph"`
	Question       string       `json:"question" validate:"required"`
	Options        []string     `json:"options,omitempty"`
	CorrectAnswers []int        `json:"correctAnswers,omitempty"`
	Required       bool         `json:"required"`
	Points         int          `json:"points,omitempty" validate:"gte=0"`
}

// Weight 题目分值，未设置时为 1 分
func (q Question) Weight() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title         string                        `gorm:"size:255;not null" json:"title"`
	Description   string                        `gorm:"type:text" json:"description"`
	Questions     datatypes.JSONSlice[Question] `gorm:"type:json" json:"questions"`
	Status        PublishStatus                 `gorm:"size:20;default:'draft';index" json:"status"`
	AuthorID      uint                          `gorm:"index;not null" json:"authorId"`
	Link          string                        `gorm:"size:32;uniqueIndex;not null" json:"link"`
	TimeLimit     int                           `gorm:"default:0" json:"timeLimit"` // Minutes
	KioskRequired bool                          `gorm:"default:false" json:"kioskRequired"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// PublicCopy 返回去掉标准答案的副本，用于学生作答页
func (q Quiz) PublicCopy() Quiz {
	questions := make(datatypes.JSONSlice[Question], len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswers = nil
		questions[i] = question
	}
	q.Questions = questions
	return q
}
