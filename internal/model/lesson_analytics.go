package model

import (
	"time"
)

// LessonAnalytics 每节课一条汇总记录
type LessonAnalytics struct {
	BaseModel
	LessonID         uint       `gorm:"uniqueIndex;not null" json:"lessonId"`
	TotalViews       int        `gorm:"default:0" json:"totalViews"`
	UniqueViews      int        `gorm:"default:0" json:"uniqueViews"`
	AverageTimeSpent float64    `gorm:"default:0" json:"averageTimeSpent"` // Seconds
	CompletionRate   float64    `gorm:"default:0" json:"completionRate"`   // Percent
	LastViewed       *time.Time `json:"lastViewed"`
}

func (LessonAnalytics) TableName() string {
	return "lesson_analytics"
}

// LessonView 学生对课程的浏览记录，每个学生每节课一条
type LessonView struct {
	BaseModel
	LessonID  uint      `gorm:"not null;uniqueIndex:idx_view_lesson_student" json:"lessonId"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_view_lesson_student" json:"studentId"`
	ViewedAt  time.Time `gorm:"index" json:"viewedAt"`
	TimeSpent int       `gorm:"default:0" json:"timeSpent"` // Seconds
	Completed bool      `gorm:"default:false" json:"completed"`
}

func (LessonView) TableName() string {
	return "lesson_views"
}
