package model

import (
	"time"
)

type KioskStatus string

const (
	KioskActive    KioskStatus = "active"
	KioskExited    KioskStatus = "exited"
	KioskSubmitted KioskStatus = "submitted"
)

// KioskSession 锁定模式下的一次答题会话
type KioskSession struct {
	UUIDBase
	QuizID     uint        `gorm:"index;not null" json:"quizId"`
	StudentID  uint        `gorm:"index;not null" json:"studentId"`
	Status     KioskStatus `gorm:"size:20;default:'active';index" json:"status"`
	BlurCount  int         `gorm:"default:0" json:"blurCount"`
	StartedAt  time.Time   `json:"startedAt"`
	EndedAt    *time.Time  `json:"endedAt,omitempty"`
	ResponseID *uint       `json:"responseId,omitempty"`
}

func (KioskSession) TableName() string {
	return "kiosk_sessions"
}
