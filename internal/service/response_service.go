package service

import (
	"context"
	"errors"
	"net/mail"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/util"
	"quizdesk_backend/pkg/logger"
	"quizdesk_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SubmitManual    = "manual"
	SubmitKiosk     = "kiosk"
	SubmitKioskAuto = "kiosk_auto"
)

type ResponseService struct {
	ResponseRepo repository.ResponseRepo
	QuizRepo     repository.QuizRepo
	UserRepo     repository.UserRepo
	Quizzes      *QuizService
	Mailer       Mailer
	AppURL       string
}

func NewResponseService(responseRepo repository.ResponseRepo, quizRepo repository.QuizRepo, userRepo repository.UserRepo, quizzes *QuizService, mailer Mailer, appURL string) *ResponseService {
	return &ResponseService{
		ResponseRepo: responseRepo,
		QuizRepo:     quizRepo,
		UserRepo:     userRepo,
		Quizzes:      quizzes,
		Mailer:       mailer,
		AppURL:       appURL,
	}
}

type SubmitRequest struct {
	QuizID  string         `json:"quizId"` // 分享链接
	Answers []model.Answer `json:"answers"`
}

type SubmitResult struct {
	Message  string `json:"message"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
}

type GradeRequest struct {
	ManualScore *int    `json:"manualScore"`
	Feedback    *string `json:"feedback"`
	IsPublished *bool   `json:"isPublished"`
}

type StudentQuizView struct {
	model.Quiz
	Attempted  bool `json:"attempted"`
	FinalScore *int `json:"finalScore"`
}

type StudentGradeView struct {
	ResponseID      uint             `json:"responseId"`
	QuizID          uint             `json:"quizId"`
	QuizTitle       string           `json:"quizTitle"`
	Score           int              `json:"score"`
	MaxScore        int              `json:"maxScore"`
	ManualScore     *int             `json:"manualScore"`
	FinalScore      int              `json:"finalScore"`
	Feedback        string           `json:"feedback"`
	SubmittedAt     time.Time        `json:"submittedAt"`
	GradedAt        *time.Time       `json:"gradedAt,omitempty"`
	Questions       []model.Question `json:"questions"`
	ReadableAnswers []string         `json:"readableAnswers"`
}

// submitOptions 锁定模式提交时附带的信息
type submitOptions struct {
	mode           string
	kioskSessionID *string
}

func (s *ResponseService) Submit(ctx context.Context, studentID uint, req SubmitRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.QuizID) == "" || req.Answers == nil {
		return nil, &ValidationError{Msg: "Quiz ID and answers are required"}
	}

	quiz, err := s.Quizzes.GetPublished(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	response, err := s.submit(quiz, studentID, req.Answers, submitOptions{mode: SubmitManual})
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		Message:  "Quiz submitted successfully",
		Score:    response.Score,
		MaxScore: response.MaxScore,
	}, nil
}

func (s *ResponseService) submit(quiz *model.Quiz, studentID uint, answers []model.Answer, opts submitOptions) (*model.Response, error) {
	if _, err := s.ResponseRepo.FindByQuizAndStudent(quiz.ID, studentID); err == nil {
		return nil, util.ErrAlreadyAttempted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if answers == nil {
		answers = []model.Answer{}
	}
	score, maxScore := AutoGrade(quiz.Questions, answers)

	response := &model.Response{
		QuizID:         quiz.ID,
		StudentID:      studentID,
		Answers:        datatypes.JSONSlice[model.Answer](answers),
		Score:          score,
		MaxScore:       maxScore,
		SubmittedAt:    time.Now(),
		KioskSessionID: opts.kioskSessionID,
		AutoSubmitted:  opts.mode == SubmitKioskAuto,
	}

	// 并发提交由唯一索引兜底
	if err := s.ResponseRepo.Create(response); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyAttempted
		}
		return nil, err
	}

	monitoring.QuizSubmissions.WithLabelValues(opts.mode).Inc()
	logger.Log.Info("Quiz submitted",
		zap.Uint("quizId", quiz.ID),
		zap.Uint("studentId", studentID),
		zap.String("mode", opts.mode),
		zap.Int("score", score),
		zap.Int("maxScore", maxScore),
	)
	return response, nil
}

func (s *ResponseService) Grade(ctx context.Context, teacherID, responseID uint, req GradeRequest) (*model.Response, error) {
	response, err := s.ResponseRepo.FindByID(responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrResponseNotFound
		}
		return nil, err
	}

	quiz, err := s.QuizRepo.FindByID(response.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotPublished
		}
		return nil, err
	}
	if quiz.AuthorID != teacherID {
		return nil, util.ErrPermissionDenied
	}

	if req.ManualScore != nil && *req.ManualScore < 0 {
		return nil, &ValidationError{Msg: "manualScore must not be negative"}
	}

	wasPublished := response.IsPublished
	response.ManualScore = req.ManualScore
	if req.Feedback != nil {
		response.Feedback = *req.Feedback
	}
	if req.IsPublished != nil {
		response.IsPublished = *req.IsPublished
	}
	now := time.Now()
	response.GradedBy = &teacherID
	response.GradedAt = &now

	if err := s.ResponseRepo.Update(response); err != nil {
		return nil, err
	}

	if response.IsPublished && !wasPublished {
		s.notifyGradePublished(quiz, *response)
	}
	return response, nil
}

func (s *ResponseService) notifyGradePublished(quiz *model.Quiz, response model.Response) {
	if s.Mailer == nil {
		return
	}
	student, err := s.UserRepo.FindByID(response.StudentID)
	if err != nil {
		logger.Log.Warn("Grade notification skipped", zap.Uint("studentId", response.StudentID), zap.Error(err))
		return
	}

	msg := gradePublishedEmail(
		mail.Address{Name: student.Name, Address: student.Email},
		quiz.Title, response.FinalScore(), response.MaxScore, response.Feedback, s.AppURL,
	)

	// 通知失败不影响评分结果
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Mailer.Send(ctx, msg); err != nil {
			logger.Log.Error("Grade notification failed", zap.Uint("responseId", response.ID), zap.Error(err))
		}
	}()
}

// StudentQuizzes 所有已发布测验及该学生的作答情况
func (s *ResponseService) StudentQuizzes(studentID uint) ([]StudentQuizView, error) {
	quizzes, err := s.QuizRepo.FindPublished()
	if err != nil {
		return nil, err
	}
	responses, err := s.ResponseRepo.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}

	byQuiz := make(map[uint]*model.Response, len(responses))
	for i := range responses {
		byQuiz[responses[i].QuizID] = &responses[i]
	}

	views := make([]StudentQuizView, 0, len(quizzes))
	for _, quiz := range quizzes {
		view := StudentQuizView{Quiz: quiz.PublicCopy()}
		if r, ok := byQuiz[quiz.ID]; ok {
			view.Attempted = true
			final := r.FinalScore()
			view.FinalScore = &final
		}
		views = append(views, view)
	}
	return views, nil
}

// StudentGrades 已发布且测验仍存在的成绩
func (s *ResponseService) StudentGrades(studentID uint) ([]StudentGradeView, error) {
	responses, err := s.ResponseRepo.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(responses))
	for _, r := range responses {
		if r.IsPublished {
			ids = append(ids, r.QuizID)
		}
	}
	if len(ids) == 0 {
		return []StudentGradeView{}, nil
	}

	quizzes, err := s.QuizRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Quiz, len(quizzes))
	for i := range quizzes {
		byID[quizzes[i].ID] = &quizzes[i]
	}

	grades := make([]StudentGradeView, 0, len(ids))
	for _, r := range responses {
		if !r.IsPublished {
			continue
		}
		quiz, ok := byID[r.QuizID]
		if !ok {
			continue
		}
		grades = append(grades, StudentGradeView{
			ResponseID:      r.ID,
			QuizID:          quiz.ID,
			QuizTitle:       quiz.Title,
			Score:           r.Score,
			MaxScore:        r.MaxScore,
			ManualScore:     r.ManualScore,
			FinalScore:      r.FinalScore(),
			Feedback:        r.Feedback,
			SubmittedAt:     r.SubmittedAt,
			GradedAt:        r.GradedAt,
			Questions:       quiz.PublicCopy().Questions,
			ReadableAnswers: ReadableAnswers(quiz.Questions, r.Answers),
		})
	}
	return grades, nil
}

// CleanupOrphaned 删除所属测验已被删除的答卷
func (s *ResponseService) CleanupOrphaned() (int64, error) {
	deleted, err := s.ResponseRepo.DeleteOrphaned()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Log.Info("Orphaned responses removed", zap.Int64("count", deleted))
	}
	return deleted, nil
}
