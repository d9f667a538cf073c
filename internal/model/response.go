package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Answer 单题作答：单选为选项下标，多选为下标数组，简答为文本
type Answer json.RawMessage

func (a Answer) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("null"), nil
	}
	return a, nil
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	*a = append((*a)[0:0], data...)
	return nil
}

func (a Answer) IsEmpty() bool {
	s := strings.TrimSpace(string(a))
	return s == "" || s == "null" || s == `""` || s == "[]"
}

// Index 单选答案；兼容 "2" 这类字符串形式
func (a Answer) Index() (int, bool) {
	var i int
	if err := json.Unmarshal(a, &i); err == nil {
		return i, true
	}
	var f float64
	if err := json.Unmarshal(a, &f); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(a, &s); err == nil {
		var n int
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (a Answer) Indices() ([]int, bool) {
	var list []int
	if err := json.Unmarshal(a, &list); err == nil {
		return list, true
	}
	if i, ok := a.Index(); ok {
		return []int{i}, true
	}
	return nil, false
}

func (a Answer) Text() (string, bool) {
	var s string
	if err := json.Unmarshal(a, &s); err == nil {
		return s, true
	}
	return "", false
}

func IndexAnswer(i int) Answer {
	b, _ := json.Marshal(i)
	return Answer(b)
}

func IndicesAnswer(list ...int) Answer {
	if list == nil {
		list = []int{}
	}
	b, _ := json.Marshal(list)
	return Answer(b)
}

func TextAnswer(s string) Answer {
	b, _ := json.Marshal(s)
	return Answer(b)
}

// swagger:model Response
type Response struct {
	BaseModel
	QuizID         uint                        `gorm:"not null;uniqueIndex:idx_response_quiz_student" json:"quizId"`
	StudentID      uint                        `gorm:"not null;uniqueIndex:idx_response_quiz_student;index" json:"studentId"`
	Answers        datatypes.JSONSlice[Answer] `gorm:"type:json" json:"answers"`
	Score          int                         `gorm:"default:0" json:"score"`
	MaxScore       int                         `gorm:"default:0" json:"maxScore"`
	ManualScore    *int                        `json:"manualScore"`
	Feedback       string                      `gorm:"type:text" json:"feedback"`
	IsPublished    bool                        `gorm:"default:false" json:"isPublished"`
	GradedBy       *uint                       `json:"gradedBy,omitempty"`
	GradedAt       *time.Time                  `json:"gradedAt,omitempty"`
	SubmittedAt    time.Time                   `json:"submittedAt"`
	KioskSessionID *string                     `gorm:"type:varchar(36)" json:"kioskSessionId,omitempty"`
	AutoSubmitted  bool                        `gorm:"default:false" json:"autoSubmitted"`
}

func (Response) TableName() string {
	return "responses"
}

// FinalScore 教师人工评分优先，否则为自动评分
func (r *Response) FinalScore() int {
	if r.ManualScore != nil {
		return *r.ManualScore
	}
	return r.Score
}
