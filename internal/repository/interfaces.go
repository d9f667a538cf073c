package repository

import (
	"quizdesk_backend/internal/model"
	"time"
)

// 所有查询在记录不存在时返回 gorm.ErrRecordNotFound，
// 违反唯一约束时返回 gorm.ErrDuplicatedKey（gorm 开启 TranslateError）。

type UserRepo interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByIDs(ids []uint) ([]model.User, error)
	UpdateLastLogin(userID uint, at time.Time) error
	UpdateLastSeen(userID uint) error
}

type QuizRepo interface {
	Create(quiz *model.Quiz) error
	Update(quiz *model.Quiz) error
	Delete(id uint) error
	FindByID(id uint) (*model.Quiz, error)
	FindByLink(link string) (*model.Quiz, error)
	FindByIDs(ids []uint) ([]model.Quiz, error)
	// FindByAuthor 按创建时间倒序
	FindByAuthor(authorID uint) ([]model.Quiz, error)
	// FindPublished 按创建时间倒序
	FindPublished() ([]model.Quiz, error)
	LinkExists(link string) (bool, error)
}

type ResponseRepo interface {
	Create(response *model.Response) error
	Update(response *model.Response) error
	FindByID(id uint) (*model.Response, error)
	FindByQuizAndStudent(quizID, studentID uint) (*model.Response, error)
	FindByQuiz(quizID uint) ([]model.Response, error)
	FindByStudent(studentID uint) ([]model.Response, error)
	// DeleteOrphaned 删除所属测验已不存在的答卷
	DeleteOrphaned() (int64, error)
}

type LessonRepo interface {
	Create(lesson *model.Lesson) error
	Update(lesson *model.Lesson) error
	Delete(id uint) error
	FindByID(id uint) (*model.Lesson, error)
	FindByIDs(ids []uint) ([]model.Lesson, error)
	FindByAuthor(authorID uint) ([]model.Lesson, error)
	FindPublished() ([]model.Lesson, error)
	FindAttachments(lessonID uint) ([]model.LessonAttachment, error)
	FindAttachment(lessonID, attachmentID uint) (*model.LessonAttachment, error)
	CreateAttachment(attachment *model.LessonAttachment) error
	DeleteAttachment(id uint) error
}

// TrackFunc 在锁内修改课程统计，返回需要保存的浏览记录
type TrackFunc func(analytics *model.LessonAnalytics, views []model.LessonView) (*model.LessonView, error)

type LessonAnalyticsRepo interface {
	// Track 在事务中读取（不存在则创建）统计记录和浏览记录，并保存 fn 的修改
	Track(lessonID uint, fn TrackFunc) (*model.LessonAnalytics, error)
	FindByLesson(lessonID uint) (*model.LessonAnalytics, error)
	FindViews(lessonID uint) ([]model.LessonView, error)
	FindByLessons(lessonIDs []uint) ([]model.LessonAnalytics, error)
	CountViewsSince(lessonIDs []uint, since time.Time) (int64, error)
}

type KioskSessionRepo interface {
	Create(session *model.KioskSession) error
	Update(session *model.KioskSession) error
	FindByID(id string) (*model.KioskSession, error)
	FindActive(quizID, studentID uint) (*model.KioskSession, error)
	FindActiveStartedBefore(before time.Time) ([]model.KioskSession, error)
}
