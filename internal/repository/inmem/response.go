package inmem

import (
	"sort"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"

	"gorm.io/gorm"
)

type responseRepository struct {
	db *DB
}

var _ repository.ResponseRepo = (*responseRepository)(nil)

func NewResponseRepository(db *DB) repository.ResponseRepo {
	return &responseRepository{db: db}
}

func (r *responseRepository) Create(response *model.Response) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.responses {
		if existing.QuizID == response.QuizID && existing.StudentID == response.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.db.stamp(&response.BaseModel)
	copied := *response
	r.db.responses[copied.ID] = &copied
	return nil
}

func (r *responseRepository) Update(response *model.Response) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.responses[response.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.db.stamp(&response.BaseModel)
	copied := *response
	r.db.responses[copied.ID] = &copied
	return nil
}

func (r *responseRepository) FindByID(id uint) (*model.Response, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if resp, ok := r.db.responses[id]; ok {
		copied := *resp
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *responseRepository) FindByQuizAndStudent(quizID, studentID uint) (*model.Response, error) {
	list := r.filter(func(resp *model.Response) bool {
		return resp.QuizID == quizID && resp.StudentID == studentID
	})
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (r *responseRepository) filter(keep func(*model.Response) bool) []model.Response {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	list := make([]model.Response, 0)
	for _, resp := range r.db.responses {
		if keep(resp) {
			list = append(list, *resp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].SubmittedAt.After(list[j].SubmittedAt)
	})
	return list
}

func (r *responseRepository) FindByQuiz(quizID uint) ([]model.Response, error) {
	return r.filter(func(resp *model.Response) bool { return resp.QuizID == quizID }), nil
}

func (r *responseRepository) FindByStudent(studentID uint) ([]model.Response, error) {
	return r.filter(func(resp *model.Response) bool { return resp.StudentID == studentID }), nil
}

func (r *responseRepository) DeleteOrphaned() (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var deleted int64
	for id, resp := range r.db.responses {
		if _, ok := r.db.quizzes[resp.QuizID]; !ok {
			delete(r.db.responses, id)
			deleted++
		}
	}
	return deleted, nil
}
