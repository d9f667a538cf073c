package service

import (
	"errors"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/util"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo repository.UserRepo
	Cfg      *config.Config
}

func NewAuthService(userRepo repository.UserRepo, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

type RegisterRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Role     model.UserRole `json:"role" binding:"omitempty,oneof=student teacher"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(req RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.UserRepo.FindByEmail(email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.Student
	}

	now := time.Now()
	user := &model.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Password:  string(hashedPassword),
		Role:      role,
		LastLogin: now,
		LastSeen:  now,
	}
	if err := s.UserRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Disabled {
		return nil, util.ErrPermissionDenied
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.UserRepo.UpdateLastLogin(user.ID, now); err == nil {
		user.LastLogin = now
	}

	return &LoginResult{Token: token, User: user}, nil
}

// GetUser 按 ID 查询用户，用于 /auth/user-role
func (s *AuthService) GetUser(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// EnsureUser 已存在则原样返回（幂等），否则按请求创建
func (s *AuthService) EnsureUser(req RegisterRequest) (*model.User, bool, error) {
	existing, err := s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user, err := s.Register(req)
	if errors.Is(err, util.ErrEmailRegistered) {
		existing, err = s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
		return existing, false, err
	}
	return user, err == nil, err
}
