package inmem

import (
	"time"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"

	"gorm.io/gorm"
)

type kioskSessionRepository struct {
	db *DB
}

var _ repository.KioskSessionRepo = (*kioskSessionRepository)(nil)

func NewKioskSessionRepository(db *DB) repository.KioskSessionRepo {
	return &kioskSessionRepository{db: db}
}

func (r *kioskSessionRepository) Create(session *model.KioskSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if session.ID == "" {
		session.ID = model.GenerateUUID()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	copied := *session
	r.db.sessions[copied.ID] = &copied
	return nil
}

func (r *kioskSessionRepository) Update(session *model.KioskSession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.sessions[session.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	session.UpdatedAt = time.Now()
	copied := *session
	r.db.sessions[copied.ID] = &copied
	return nil
}

func (r *kioskSessionRepository) FindByID(id string) (*model.KioskSession, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s, ok := r.db.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *kioskSessionRepository) FindActive(quizID, studentID uint) (*model.KioskSession, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var found *model.KioskSession
	for _, s := range r.db.sessions {
		if s.QuizID == quizID && s.StudentID == studentID && s.Status == model.KioskActive {
			if found == nil || s.StartedAt.After(found.StartedAt) {
				found = s
			}
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *found
	return &copied, nil
}

func (r *kioskSessionRepository) FindActiveStartedBefore(before time.Time) ([]model.KioskSession, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	list := make([]model.KioskSession, 0)
	for _, s := range r.db.sessions {
		if s.Status == model.KioskActive && s.StartedAt.Before(before) {
			list = append(list, *s)
		}
	}
	return list, nil
}
