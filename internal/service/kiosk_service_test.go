package service

import (
	"context"
	"testing"
	"time"

	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository/inmem"
	"quizdesk_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kioskFixture struct {
	*fixture
	kiosk    *KioskService
	drafts   *MemoryDraftStore
	notifier *recordingNotifier
	now      time.Time
}

func newKioskFixture(t *testing.T, autoSubmit bool) *kioskFixture {
	t.Helper()
	f := newFixture(t)
	kf := &kioskFixture{
		fixture:  f,
		drafts:   NewMemoryDraftStore(),
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	kf.kiosk = NewKioskService(inmem.NewKioskSessionRepository(f.db), f.quizzes, f.responses, kf.drafts, kf.notifier, config.KioskConfig{
		AppOrigin:        "https://quiz.example.com",
		AutoSubmitOnBlur: autoSubmit,
		DraftTTLHours:    24,
		GraceMinutes:     5,
	})
	kf.kiosk.Now = func() time.Time { return kf.now }
	return kf
}

func TestKioskStartAndResume(t *testing.T) {
	kf := newKioskFixture(t, true)
	ctx := context.Background()
	quiz := kf.publishedQuiz(t)

	_, err := kf.kiosk.Start(ctx, kf.student.ID, "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = kf.kiosk.Start(ctx, kf.student.ID, "missing")
	assert.ErrorIs(t, err, util.ErrQuizNotPublished)

	started, err := kf.kiosk.Start(ctx, kf.student.ID, quiz.Link)
	require.NoError(t, err)
	assert.False(t, started.Resumed)
	assert.Equal(t, model.KioskActive, started.Session.Status)
	assert.True(t, started.Policy.AutoSubmitOnBlur)
	for _, q := range started.Quiz.Questions {
		assert.Nil(t, q.CorrectAnswers)
	}
	assert.Equal(t, []string{MsgKioskState}, kf.notifier.types())

	draft := []model.Answer{model.IndexAnswer(1)}
	require.NoError(t, kf.kiosk.SaveDraft(ctx, kf.student.ID, started.Session.ID, draft))

	other := kf.createUser(t, "Eve", "eve@example.com", model.Student)
	assert.ErrorIs(t, kf.kiosk.SaveDraft(ctx, other.ID, started.Session.ID, draft), util.ErrSessionNotFound)

	resumed, err := kf.kiosk.Start(ctx, kf.student.ID, quiz.Link)
	require.NoError(t, err)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, started.Session.ID, resumed.Session.ID)
	assert.Equal(t, draft, resumed.Draft)

	kf.submit(t, quiz, other.ID, model.IndexAnswer(1))
	_, err = kf.kiosk.Start(ctx, other.ID, quiz.Link)
	assert.ErrorIs(t, err, util.ErrAlreadyAttempted)
}

func TestKioskBlurAutoSubmits(t *testing.T) {
	kf := newKioskFixture(t, true)
	ctx := context.Background()
	quiz := kf.publishedQuiz(t)

	started, err := kf.kiosk.Start(ctx, kf.student.ID, quiz.Link)
	require.NoError(t, err)
	sessionID := started.Session.ID
	require.NoError(t, kf.kiosk.SaveDraft(ctx, kf.student.ID, sessionID, []model.Answer{model.IndexAnswer(1), model.IndicesAnswer(0)}))

	res, err := kf.kiosk.Blur(ctx, kf.student.ID, sessionID)
	require.NoError(t, err)
	assert.True(t, res.Submitted)
	require.NotNil(t, res.Score)
	assert.Equal(t, 1, *res.Score)
	assert.Equal(t, 2, *res.MaxScore)
	assert.Equal(t, model.KioskSubmitted, res.Session.Status)
	assert.Equal(t, 1, res.Session.BlurCount)
	require.NotNil(t, res.Session.ResponseID)

	response, err := kf.respRepo.FindByQuizAndStudent(quiz.ID, kf.student.ID)
	require.NoError(t, err)
	assert.True(t, response.AutoSubmitted)
	require.NotNil(t, response.KioskSessionID)
	assert.Equal(t, sessionID, *response.KioskSessionID)

	types := kf.notifier.types()
	assert.Equal(t, MsgForceSubmitted, types[len(types)-1])

	draft, err := kf.drafts.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, draft)

	// 重复上报返回当前状态
	again, err := kf.kiosk.Blur(ctx, kf.student.ID, sessionID)
	require.NoError(t, err)
	assert.True(t, again.Submitted)
	assert.Equal(t, 1, again.Session.BlurCount)

	_, err = kf.kiosk.Submit(ctx, kf.student.ID, sessionID, []model.Answer{})
	assert.ErrorIs(t, err, util.ErrSessionNotActive)
}

func TestKioskBlurWithoutAutoSubmit(t *testing.T) {
	kf := newKioskFixture(t, false)
	ctx := context.Background()
	quiz := kf.publishedQuiz(t)

	started, err := kf.kiosk.Start(ctx, kf.student.ID, quiz.Link)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		res, err := kf.kiosk.Blur(ctx, kf.student.ID, started.Session.ID)
		require.NoError(t, err)
		assert.False(t, res.Submitted)
		assert.Equal(t, i, res.Session.BlurCount)
	}

	result, err := kf.kiosk.Submit(ctx, kf.student.ID, started.Session.ID, []model.Answer{model.IndexAnswer(1), model.IndicesAnswer(2, 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, "Quiz submitted successfully", result.Message)

	response, err := kf.respRepo.FindByQuizAndStudent(quiz.ID, kf.student.ID)
	require.NoError(t, err)
	assert.False(t, response.AutoSubmitted)
}

func TestKioskExitKeepsDraft(t *testing.T) {
	kf := newKioskFixture(t, true)
	ctx := context.Background()
	quiz := kf.publishedQuiz(t)

	started, err := kf.kiosk.Start(ctx, kf.student.ID, quiz.Link)
	require.NoError(t, err)
	draft := []model.Answer{model.TextAnswer("partial")}
	require.NoError(t, kf.kiosk.SaveDraft(ctx, kf.student.ID, started.Session.ID, draft))

	session, err := kf.kiosk.Exit(ctx, kf.student.ID, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KioskExited, session.Status)
	assert.NotNil(t, session.EndedAt)

	kept, err := kf.drafts.Load(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, draft, kept)

	_, err = kf.respRepo.FindByQuizAndStudent(quiz.ID, kf.student.ID)
	assert.Error(t, err)

	// 退出后可以重新开始新的会话
	restarted, err := kf.kiosk.Start(ctx, kf.student.ID, quiz.Link)
	require.NoError(t, err)
	assert.False(t, restarted.Resumed)
	assert.NotEqual(t, started.Session.ID, restarted.Session.ID)
}

func TestKioskExpireStale(t *testing.T) {
	kf := newKioskFixture(t, false)
	ctx := context.Background()

	untimed := kf.publishedQuiz(t)
	timed, err := kf.quizzes.Create(kf.teacher.ID, CreateQuizRequest{
		Title:     "Timed",
		Questions: sampleQuestions(),
		Status:    model.StatusPublished,
		TimeLimit: 10,
	})
	require.NoError(t, err)

	a, err := kf.kiosk.Start(ctx, kf.student.ID, untimed.Link)
	require.NoError(t, err)
	b, err := kf.kiosk.Start(ctx, kf.student.ID, timed.Link)
	require.NoError(t, err)
	require.NoError(t, kf.kiosk.SaveDraft(ctx, kf.student.ID, b.Session.ID, []model.Answer{model.IndexAnswer(1)}))

	kf.now = kf.now.Add(12 * time.Minute)
	n, err := kf.kiosk.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "time limit plus grace not reached")

	kf.now = kf.now.Add(4 * time.Minute)
	n, err = kf.kiosk.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	response, err := kf.respRepo.FindByQuizAndStudent(timed.ID, kf.student.ID)
	require.NoError(t, err)
	assert.True(t, response.AutoSubmitted)
	assert.Equal(t, 1, response.Score)

	kf.now = kf.now.Add(24 * time.Hour)
	n, err = kf.kiosk.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = kf.kiosk.Exit(ctx, kf.student.ID, a.Session.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotActive)
}

func TestKioskReportViolation(t *testing.T) {
	kf := newKioskFixture(t, false)
	ctx := context.Background()
	quiz := kf.publishedQuiz(t)

	started, err := kf.kiosk.Start(ctx, kf.student.ID, quiz.Link)
	require.NoError(t, err)
	id := started.Session.ID

	blocked, err := kf.kiosk.ReportViolation(kf.student.ID, id, ViolationReport{Type: "key", KeyEvent: KeyEvent{Key: "F5"}})
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = kf.kiosk.ReportViolation(kf.student.ID, id, ViolationReport{Type: "navigation", URL: "https://quiz.example.com/next"})
	require.NoError(t, err)
	assert.False(t, blocked)

	blocked, err = kf.kiosk.ReportViolation(kf.student.ID, id, ViolationReport{Type: "navigation", URL: "https://search.example.org"})
	require.NoError(t, err)
	assert.True(t, blocked)

	_, err = kf.kiosk.ReportViolation(kf.student.ID, id, ViolationReport{Type: "clipboard"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = kf.kiosk.ReportViolation(kf.student.ID, "nope", ViolationReport{Type: "key"})
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
