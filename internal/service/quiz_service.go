package service

import (
	"context"
	"errors"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/util"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxLinkAttempts = 5

type QuizService struct {
	QuizRepo     repository.QuizRepo
	ResponseRepo repository.ResponseRepo
	UserRepo     repository.UserRepo
	Cache        QuizCache
}

func NewQuizService(quizRepo repository.QuizRepo, responseRepo repository.ResponseRepo, userRepo repository.UserRepo, cache QuizCache) *QuizService {
	if cache == nil {
		cache = noopQuizCache{}
	}
	return &QuizService{
		QuizRepo:     quizRepo,
		ResponseRepo: responseRepo,
		UserRepo:     userRepo,
		Cache:        cache,
	}
}

type CreateQuizRequest struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Questions     []model.Question    `json:"questions"`
	Status        model.PublishStatus `json:"status"`
	TimeLimit     int                 `json:"timeLimit"`
	KioskRequired bool                `json:"kioskRequired"`
}

// UpdateQuizRequest 未提供的字段保持不变
type UpdateQuizRequest struct {
	Title         *string              `json:"title"`
	Description   *string              `json:"description"`
	Questions     *[]model.Question    `json:"questions"`
	Status        *model.PublishStatus `json:"status"`
	TimeLimit     *int                 `json:"timeLimit"`
	KioskRequired *bool                `json:"kioskRequired"`
}

// QuizResponseView 教师查看的答卷，附学生信息
type QuizResponseView struct {
	model.Response
	Student    *model.UserSummary `json:"student"`
	FinalScore int                `json:"finalScore"`
}

func (s *QuizService) newLink() (string, error) {
	for i := 0; i < maxLinkAttempts; i++ {
		link, err := gonanoid.Generate(util.QuizLinkAlphabet, util.QuizLinkLength)
		if err != nil {
			return "", err
		}
		exists, err := s.QuizRepo.LinkExists(link)
		if err != nil {
			return "", err
		}
		if !exists {
			return link, nil
		}
	}
	return "", errors.New("could not allocate a unique quiz link")
}

func (s *QuizService) Create(authorID uint, req CreateQuizRequest) (*model.Quiz, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || req.Questions == nil {
		return nil, util.ErrInvalidQuestions
	}
	if err := ValidateQuestions(req.Questions); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !status.Valid() {
		return nil, util.ErrInvalidStatus
	}
	if req.TimeLimit < 0 {
		return nil, &ValidationError{Msg: "timeLimit must not be negative"}
	}

	quiz := &model.Quiz{
		Title:         title,
		Description:   req.Description,
		Questions:     datatypes.JSONSlice[model.Question](req.Questions),
		Status:        status,
		AuthorID:      authorID,
		TimeLimit:     req.TimeLimit,
		KioskRequired: req.KioskRequired,
	}

	for attempt := 0; ; attempt++ {
		link, err := s.newLink()
		if err != nil {
			return nil, err
		}
		quiz.Link = link

		err = s.QuizRepo.Create(quiz)
		if err == nil {
			return quiz, nil
		}
		// 并发生成了相同链接时重试
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt+1 >= maxLinkAttempts {
			return nil, err
		}
	}
}

func (s *QuizService) ListByAuthor(authorID uint) ([]model.Quiz, error) {
	return s.QuizRepo.FindByAuthor(authorID)
}

// GetOwned 测验不存在或不属于该教师时统一返回 ErrQuizNotFound
func (s *QuizService) GetOwned(authorID, quizID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.AuthorID != authorID {
		return nil, util.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) Update(ctx context.Context, authorID, quizID uint, req UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.GetOwned(authorID, quizID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, util.ErrInvalidQuestions
		}
		quiz.Title = title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Questions != nil {
		if err := ValidateQuestions(*req.Questions); err != nil {
			return nil, err
		}
		quiz.Questions = datatypes.JSONSlice[model.Question](*req.Questions)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, util.ErrInvalidStatus
		}
		quiz.Status = *req.Status
	}
	if req.TimeLimit != nil {
		if *req.TimeLimit < 0 {
			return nil, &ValidationError{Msg: "timeLimit must not be negative"}
		}
		quiz.TimeLimit = *req.TimeLimit
	}
	if req.KioskRequired != nil {
		quiz.KioskRequired = *req.KioskRequired
	}

	if err := s.QuizRepo.Update(quiz); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, quiz.Link)
	return quiz, nil
}

func (s *QuizService) SetStatus(ctx context.Context, authorID, quizID uint, status model.PublishStatus) (*model.Quiz, error) {
	if !status.Valid() {
		return nil, util.ErrInvalidStatus
	}
	return s.Update(ctx, authorID, quizID, UpdateQuizRequest{Status: &status})
}

// Delete 答卷保留，由定时清理任务删除
func (s *QuizService) Delete(ctx context.Context, authorID, quizID uint) error {
	quiz, err := s.GetOwned(authorID, quizID)
	if err != nil {
		return err
	}
	if err := s.QuizRepo.Delete(quiz.ID); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, quiz.Link)
	return nil
}

func (s *QuizService) findByLink(ctx context.Context, link string) (*model.Quiz, error) {
	if quiz, ok := s.Cache.Get(ctx, link); ok {
		return quiz, nil
	}

	quiz, err := s.QuizRepo.FindByLink(link)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotPublished
		}
		return nil, err
	}
	if quiz.Status == model.StatusPublished {
		s.Cache.Set(ctx, quiz)
	}
	return quiz, nil
}

// GetPublished 返回完整测验（含标准答案），供判分使用
func (s *QuizService) GetPublished(ctx context.Context, link string) (*model.Quiz, error) {
	quiz, err := s.findByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.StatusPublished {
		return nil, util.ErrQuizNotPublished
	}
	return quiz, nil
}

// GetByLink 公开访问：作者可以预览草稿并看到答案，其他人只能看到去掉答案的已发布测验
func (s *QuizService) GetByLink(ctx context.Context, link string, viewerID uint) (*model.Quiz, error) {
	quiz, err := s.findByLink(ctx, link)
	if err != nil {
		return nil, err
	}

	if viewerID != 0 && quiz.AuthorID == viewerID {
		return quiz, nil
	}
	if quiz.Status != model.StatusPublished {
		return nil, util.ErrQuizNotPublished
	}

	public := quiz.PublicCopy()
	return &public, nil
}

func (s *QuizService) Responses(authorID, quizID uint) ([]QuizResponseView, error) {
	quiz, err := s.GetOwned(authorID, quizID)
	if err != nil {
		return nil, err
	}

	responses, err := s.ResponseRepo.FindByQuiz(quiz.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.StudentID)
	}
	students, err := s.UserRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.User, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}

	views := make([]QuizResponseView, 0, len(responses))
	for i := range responses {
		view := QuizResponseView{
			Response:   responses[i],
			FinalScore: responses[i].FinalScore(),
		}
		if student, ok := byID[responses[i].StudentID]; ok {
			summary := student.Summary()
			view.Student = &summary
		}
		views = append(views, view)
	}
	return views, nil
}
