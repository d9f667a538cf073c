package model

// swagger:model Lesson
type Lesson struct {
	BaseModel
	Title          string             `gorm:"size:255;not null" json:"title"`
	Description    string             `gorm:"type:text" json:"description"`
	Content        string             `gorm:"type:longtext;not null" json:"content"`
	AuthorID       uint               `gorm:"index;not null" json:"authorId"`
	Status         PublishStatus      `gorm:"size:20;default:'draft';index" json:"status"`
	AIGenerated    bool               `gorm:"default:false" json:"aiGenerated"`
	OriginalPrompt string             `gorm:"type:text" json:"originalPrompt,omitempty"`
	Attachments    []LessonAttachment `gorm:"foreignKey:LessonID" json:"attachments,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonAttachment 课程附件（讲义、图片、视频）
type LessonAttachment struct {
	BaseModel
	LessonID     uint    `gorm:"index;not null" json:"lessonId"`
	Filename     string  `gorm:"size:255;not null" json:"filename"`
	ObjectKey    string  `gorm:"size:255;not null" json:"-"`
	URL          string  `gorm:"size:512" json:"url"`
	ContentType  string  `gorm:"size:100" json:"contentType"`
	Size         int64   `json:"size"`
	Duration     float64 `json:"duration,omitempty"` // Seconds
	ThumbnailURL string  `gorm:"size:512" json:"thumbnailUrl,omitempty"`
}

func (LessonAttachment) TableName() string {
	return "lesson_attachments"
}
