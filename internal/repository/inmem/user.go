package inmem

import (
	"time"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"

	"gorm.io/gorm"
)

type userRepository struct {
	db *DB
}

var _ repository.UserRepo = (*userRepository)(nil)

func NewUserRepository(db *DB) repository.UserRepo {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.db.stamp(&user.BaseModel)
	if user.Role == "" {
		user.Role = model.Student
	}
	u := *user
	r.db.users[u.ID] = &u
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if u, ok := r.db.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepository) FindByIDs(ids []uint) ([]model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	users := make([]model.User, 0, len(ids))
	for id := range idSet(ids) {
		if u, ok := r.db.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *userRepository) UpdateLastLogin(userID uint, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[userID]; ok {
		u.LastLogin = at
	}
	return nil
}

func (r *userRepository) UpdateLastSeen(userID uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[userID]; ok {
		u.LastSeen = time.Now()
	}
	return nil
}
