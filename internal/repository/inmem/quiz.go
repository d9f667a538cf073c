package inmem

import (
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"

	"gorm.io/gorm"
)

type quizRepository struct {
	db *DB
}

var _ repository.QuizRepo = (*quizRepository)(nil)

func NewQuizRepository(db *DB) repository.QuizRepo {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(quiz *model.Quiz) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, q := range r.db.quizzes {
		if q.Link == quiz.Link {
			return gorm.ErrDuplicatedKey
		}
	}
	r.db.stamp(&quiz.BaseModel)
	if quiz.Status == "" {
		quiz.Status = model.StatusDraft
	}
	q := *quiz
	r.db.quizzes[q.ID] = &q
	return nil
}

func (r *quizRepository) Update(quiz *model.Quiz) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.quizzes[quiz.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.db.stamp(&quiz.BaseModel)
	q := *quiz
	r.db.quizzes[q.ID] = &q
	return nil
}

func (r *quizRepository) Delete(id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.quizzes, id)
	return nil
}

func (r *quizRepository) FindByID(id uint) (*model.Quiz, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if q, ok := r.db.quizzes[id]; ok {
		copied := *q
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *quizRepository) FindByLink(link string) (*model.Quiz, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, q := range r.db.quizzes {
		if q.Link == link {
			copied := *q
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *quizRepository) FindByIDs(ids []uint) ([]model.Quiz, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	quizzes := make([]model.Quiz, 0, len(ids))
	for id := range idSet(ids) {
		if q, ok := r.db.quizzes[id]; ok {
			quizzes = append(quizzes, *q)
		}
	}
	return quizzes, nil
}

func (r *quizRepository) filter(keep func(*model.Quiz) bool) []model.Quiz {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	quizzes := make([]model.Quiz, 0)
	for _, q := range r.db.quizzes {
		if keep(q) {
			quizzes = append(quizzes, *q)
		}
	}
	newestFirst(quizzes, func(q model.Quiz) model.BaseModel { return q.BaseModel })
	return quizzes
}

func (r *quizRepository) FindByAuthor(authorID uint) ([]model.Quiz, error) {
	return r.filter(func(q *model.Quiz) bool { return q.AuthorID == authorID }), nil
}

func (r *quizRepository) FindPublished() ([]model.Quiz, error) {
	return r.filter(func(q *model.Quiz) bool { return q.Status == model.StatusPublished }), nil
}

func (r *quizRepository) LinkExists(link string) (bool, error) {
	_, err := r.FindByLink(link)
	return err == nil, nil
}
