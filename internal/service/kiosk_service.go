package service

import (
	"context"
	"errors"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/util"
	"quizdesk_backend/pkg/logger"
	"quizdesk_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 强制提交原因
const (
	ReasonBlur    = "blur"
	ReasonExpired = "expired"
)

type KioskService struct {
	SessionRepo repository.KioskSessionRepo
	Quizzes     *QuizService
	Responses   *ResponseService
	Drafts      DraftStore
	Notifier    KioskNotifier
	Now         func() time.Time

	mu     sync.RWMutex
	policy KioskPolicy
	cfg    config.KioskConfig

	locks sync.Map // sessionID -> *sync.Mutex
}

func NewKioskService(sessionRepo repository.KioskSessionRepo, quizzes *QuizService, responses *ResponseService, drafts DraftStore, notifier KioskNotifier, cfg config.KioskConfig) *KioskService {
	return &KioskService{
		SessionRepo: sessionRepo,
		Quizzes:     quizzes,
		Responses:   responses,
		Drafts:      drafts,
		Notifier:    notifier,
		Now:         time.Now,
		policy:      NewKioskPolicy(cfg),
		cfg:         cfg,
	}
}

type KioskStartResult struct {
	Session *model.KioskSession `json:"session"`
	Quiz    *model.Quiz         `json:"quiz"`
	Policy  KioskPolicy         `json:"policy"`
	Resumed bool                `json:"resumed"`
	Draft   []model.Answer      `json:"draft,omitempty"`
}

type BlurResult struct {
	Session   *model.KioskSession `json:"session"`
	Submitted bool                `json:"submitted"`
	Score     *int                `json:"score,omitempty"`
	MaxScore  *int                `json:"maxScore,omitempty"`
}

// ViolationReport 客户端上报的被拦截操作
type ViolationReport struct {
	Type string `json:"type" binding:"required,oneof=key navigation"`
	KeyEvent
	URL string `json:"url"`
}

func (s *KioskService) Policy() KioskPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Reload 配置热更新
func (s *KioskService) Reload(cfg config.KioskConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.policy = NewKioskPolicy(cfg)
}

func (s *KioskService) config() config.KioskConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *KioskService) lock(sessionID string) func() {
	m, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Start 开始锁定答题；同一测验已有进行中的会话时直接恢复
func (s *KioskService) Start(ctx context.Context, studentID uint, link string) (*KioskStartResult, error) {
	if strings.TrimSpace(link) == "" {
		return nil, &ValidationError{Msg: "Quiz ID is required"}
	}

	quiz, err := s.Quizzes.GetPublished(ctx, link)
	if err != nil {
		return nil, err
	}

	if _, err := s.Responses.ResponseRepo.FindByQuizAndStudent(quiz.ID, studentID); err == nil {
		return nil, util.ErrAlreadyAttempted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	public := quiz.PublicCopy()
	result := &KioskStartResult{Quiz: &public, Policy: s.Policy()}

	active, err := s.SessionRepo.FindActive(quiz.ID, studentID)
	switch {
	case err == nil:
		result.Session = active
		result.Resumed = true
		if result.Draft, err = s.Drafts.Load(ctx, active.ID); err != nil {
			logger.Log.Warn("Kiosk draft load failed", zap.String("sessionId", active.ID), zap.Error(err))
		}
		return result, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	session := &model.KioskSession{
		UUIDBase:  model.UUIDBase{ID: model.GenerateUUID()},
		QuizID:    quiz.ID,
		StudentID: studentID,
		Status:    model.KioskActive,
		StartedAt: s.Now(),
	}
	if err := s.SessionRepo.Create(session); err != nil {
		return nil, err
	}

	monitoring.KioskEvents.WithLabelValues("start").Inc()
	logger.Log.Info("Kiosk session started",
		zap.String("sessionId", session.ID), zap.Uint("quizId", quiz.ID), zap.Uint("studentId", studentID))

	s.Notifier.PushToUsers([]uint{studentID}, WSMessage{Type: MsgKioskState, Data: session})
	result.Session = session
	return result, nil
}

// activeSession 会话不存在或不属于该学生时返回 ErrSessionNotFound
func (s *KioskService) activeSession(studentID uint, sessionID string) (*model.KioskSession, error) {
	session, err := s.SessionRepo.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, util.ErrSessionNotFound
	}
	if session.Status != model.KioskActive {
		return session, util.ErrSessionNotActive
	}
	return session, nil
}

func (s *KioskService) SaveDraft(ctx context.Context, studentID uint, sessionID string, answers []model.Answer) error {
	unlock := s.lock(sessionID)
	defer unlock()

	if _, err := s.activeSession(studentID, sessionID); err != nil {
		return err
	}
	if answers == nil {
		answers = []model.Answer{}
	}
	return s.Drafts.Save(ctx, sessionID, answers)
}

// Blur 窗口失焦：累计次数，策略开启时强制提交草稿
func (s *KioskService) Blur(ctx context.Context, studentID uint, sessionID string) (*BlurResult, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.activeSession(studentID, sessionID)
	if errors.Is(err, util.ErrSessionNotActive) {
		// 客户端重复上报，返回当前状态
		return &BlurResult{Session: session, Submitted: session.Status == model.KioskSubmitted}, nil
	} else if err != nil {
		return nil, err
	}

	session.BlurCount++
	monitoring.KioskEvents.WithLabelValues("blur").Inc()
	logger.Log.Info("Kiosk window blurred",
		zap.String("sessionId", session.ID), zap.Int("blurCount", session.BlurCount))

	if !s.Policy().AutoSubmitOnBlur {
		if err := s.SessionRepo.Update(session); err != nil {
			return nil, err
		}
		s.Notifier.PushToUsers([]uint{studentID}, WSMessage{Type: MsgKioskState, Data: session})
		return &BlurResult{Session: session}, nil
	}

	response, err := s.forceSubmit(ctx, session, ReasonBlur)
	if err != nil {
		return nil, err
	}

	result := &BlurResult{Session: session, Submitted: true}
	if response != nil {
		result.Score = &response.Score
		result.MaxScore = &response.MaxScore
	}
	return result, nil
}

// HandleBlurEvent WebSocket 上报的失焦事件
func (s *KioskService) HandleBlurEvent(studentID uint, sessionID string) {
	if _, err := s.Blur(context.Background(), studentID, sessionID); err != nil {
		logger.Log.Warn("Kiosk blur event rejected",
			zap.Uint("studentId", studentID), zap.String("sessionId", sessionID), zap.Error(err))
	}
}

// forceSubmit 提交草稿并结束会话，调用方需持有会话锁
func (s *KioskService) forceSubmit(ctx context.Context, session *model.KioskSession, reason string) (*model.Response, error) {
	quiz, err := s.Quizzes.QuizRepo.FindByID(session.QuizID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var response *model.Response
	if quiz != nil {
		draft, err := s.Drafts.Load(ctx, session.ID)
		if err != nil {
			logger.Log.Warn("Kiosk draft load failed", zap.String("sessionId", session.ID), zap.Error(err))
		}

		sessionID := session.ID
		response, err = s.Responses.submit(quiz, session.StudentID, draft, submitOptions{
			mode:           SubmitKioskAuto,
			kioskSessionID: &sessionID,
		})
		if err != nil && !errors.Is(err, util.ErrAlreadyAttempted) {
			return nil, err
		}
	}

	if err := s.finish(ctx, session, model.KioskSubmitted, response); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"sessionId": session.ID,
		"quizId":    session.QuizID,
		"reason":    reason,
	}
	if response != nil {
		data["score"] = response.Score
		data["maxScore"] = response.MaxScore
	}
	s.Notifier.PushToUsers([]uint{session.StudentID}, WSMessage{Type: MsgForceSubmitted, Data: data})

	logger.Log.Info("Kiosk session force-submitted",
		zap.String("sessionId", session.ID), zap.String("reason", reason), zap.Bool("recorded", response != nil))
	return response, nil
}

func (s *KioskService) finish(ctx context.Context, session *model.KioskSession, status model.KioskStatus, response *model.Response) error {
	now := s.Now()
	session.Status = status
	session.EndedAt = &now
	if response != nil {
		session.ResponseID = &response.ID
	}
	if err := s.SessionRepo.Update(session); err != nil {
		return err
	}
	if status == model.KioskSubmitted {
		if err := s.Drafts.Delete(ctx, session.ID); err != nil {
			logger.Log.Warn("Kiosk draft delete failed", zap.String("sessionId", session.ID), zap.Error(err))
		}
	}
	s.locks.Delete(session.ID)
	return nil
}

// Submit 学生在锁定模式下正常交卷
func (s *KioskService) Submit(ctx context.Context, studentID uint, sessionID string, answers []model.Answer) (*SubmitResult, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.activeSession(studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		return nil, &ValidationError{Msg: "Quiz ID and answers are required"}
	}

	quiz, err := s.Quizzes.QuizRepo.FindByID(session.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotPublished
		}
		return nil, err
	}

	id := session.ID
	response, err := s.Responses.submit(quiz, studentID, answers, submitOptions{mode: SubmitKiosk, kioskSessionID: &id})
	if err != nil {
		return nil, err
	}
	if err := s.finish(ctx, session, model.KioskSubmitted, response); err != nil {
		return nil, err
	}
	s.Notifier.PushToUsers([]uint{studentID}, WSMessage{Type: MsgKioskState, Data: session})

	return &SubmitResult{
		Message:  "Quiz submitted successfully",
		Score:    response.Score,
		MaxScore: response.MaxScore,
	}, nil
}

// Exit 退出锁定模式，草稿保留
func (s *KioskService) Exit(ctx context.Context, studentID uint, sessionID string) (*model.KioskSession, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.activeSession(studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.finish(ctx, session, model.KioskExited, nil); err != nil {
		return nil, err
	}
	monitoring.KioskEvents.WithLabelValues("exit").Inc()
	s.Notifier.PushToUsers([]uint{studentID}, WSMessage{Type: MsgKioskState, Data: session})
	return session, nil
}

// ReportViolation 按策略判定客户端上报的按键或跳转是否应被拦截
func (s *KioskService) ReportViolation(studentID uint, sessionID string, report ViolationReport) (bool, error) {
	session, err := s.activeSession(studentID, sessionID)
	if err != nil {
		return false, err
	}

	policy := s.Policy()
	var blocked bool
	switch report.Type {
	case "key":
		blocked = policy.BlocksKey(report.KeyEvent)
	case "navigation":
		blocked = !policy.AllowsNavigation(report.URL)
	default:
		return false, &ValidationError{Msg: "type must be key or navigation"}
	}

	if blocked {
		monitoring.KioskEvents.WithLabelValues(report.Type).Inc()
		logger.Log.Info("Kiosk violation",
			zap.String("sessionId", session.ID),
			zap.Uint("studentId", studentID),
			zap.String("type", report.Type),
			zap.String("key", report.Key),
			zap.String("url", report.URL),
		)
	}
	return blocked, nil
}

func (s *KioskService) deadline(session model.KioskSession, quiz *model.Quiz, cfg config.KioskConfig) time.Time {
	grace := time.Duration(cfg.GraceMinutes) * time.Minute
	if quiz != nil && quiz.TimeLimit > 0 {
		return session.StartedAt.Add(time.Duration(quiz.TimeLimit)*time.Minute + grace)
	}
	return session.StartedAt.Add(time.Duration(cfg.DraftTTLHours) * time.Hour)
}

// ExpireStale 超过时限（或草稿有效期）仍未结束的会话自动交卷
func (s *KioskService) ExpireStale(ctx context.Context) (int, error) {
	cfg := s.config()
	now := s.Now()

	candidates, err := s.SessionRepo.FindActiveStartedBefore(now.Add(-time.Duration(cfg.GraceMinutes) * time.Minute))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range candidates {
		quiz, err := s.Quizzes.QuizRepo.FindByID(candidate.QuizID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return expired, err
		}
		if now.Before(s.deadline(candidate, quiz, cfg)) {
			continue
		}

		if s.expireOne(ctx, candidate.StudentID, candidate.ID) {
			expired++
		}
	}
	if expired > 0 {
		logger.Log.Info("Stale kiosk sessions expired", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *KioskService) expireOne(ctx context.Context, studentID uint, sessionID string) bool {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.activeSession(studentID, sessionID)
	if err != nil {
		return false
	}
	if _, err := s.forceSubmit(ctx, session, ReasonExpired); err != nil {
		logger.Log.Error("Kiosk session expiry failed", zap.String("sessionId", sessionID), zap.Error(err))
		return false
	}
	return true
}
