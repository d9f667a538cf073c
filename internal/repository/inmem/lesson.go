package inmem

import (
	"sort"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"

	"gorm.io/gorm"
)

type lessonRepository struct {
	db *DB
}

var _ repository.LessonRepo = (*lessonRepository)(nil)

func NewLessonRepository(db *DB) repository.LessonRepo {
	return &lessonRepository{db: db}
}

func (r *lessonRepository) Create(lesson *model.Lesson) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&lesson.BaseModel)
	if lesson.Status == "" {
		lesson.Status = model.StatusDraft
	}
	copied := *lesson
	copied.Attachments = nil
	r.db.lessons[copied.ID] = &copied
	return nil
}

func (r *lessonRepository) Update(lesson *model.Lesson) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.lessons[lesson.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.db.stamp(&lesson.BaseModel)
	copied := *lesson
	copied.Attachments = nil
	r.db.lessons[copied.ID] = &copied
	return nil
}

func (r *lessonRepository) Delete(id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.lessons, id)
	for aid, a := range r.db.attachments {
		if a.LessonID == id {
			delete(r.db.attachments, aid)
		}
	}
	return nil
}

func (r *lessonRepository) FindByID(id uint) (*model.Lesson, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if l, ok := r.db.lessons[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *lessonRepository) FindByIDs(ids []uint) ([]model.Lesson, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	lessons := make([]model.Lesson, 0, len(ids))
	for id := range idSet(ids) {
		if l, ok := r.db.lessons[id]; ok {
			lessons = append(lessons, *l)
		}
	}
	return lessons, nil
}

func (r *lessonRepository) filter(keep func(*model.Lesson) bool) []model.Lesson {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	lessons := make([]model.Lesson, 0)
	for _, l := range r.db.lessons {
		if keep(l) {
			lessons = append(lessons, *l)
		}
	}
	newestFirst(lessons, func(l model.Lesson) model.BaseModel { return l.BaseModel })
	return lessons
}

func (r *lessonRepository) FindByAuthor(authorID uint) ([]model.Lesson, error) {
	return r.filter(func(l *model.Lesson) bool { return l.AuthorID == authorID }), nil
}

func (r *lessonRepository) FindPublished() ([]model.Lesson, error) {
	return r.filter(func(l *model.Lesson) bool { return l.Status == model.StatusPublished }), nil
}

func (r *lessonRepository) FindAttachments(lessonID uint) ([]model.LessonAttachment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	list := make([]model.LessonAttachment, 0)
	for _, a := range r.db.attachments {
		if a.LessonID == lessonID {
			list = append(list, *a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *lessonRepository) FindAttachment(lessonID, attachmentID uint) (*model.LessonAttachment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if a, ok := r.db.attachments[attachmentID]; ok && a.LessonID == lessonID {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *lessonRepository) CreateAttachment(attachment *model.LessonAttachment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&attachment.BaseModel)
	copied := *attachment
	r.db.attachments[copied.ID] = &copied
	return nil
}

func (r *lessonRepository) DeleteAttachment(id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.attachments, id)
	return nil
}
