package service

import (
	"context"
	"sync"
	"testing"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/repository/inmem"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	db        *inmem.DB
	users     repository.UserRepo
	quizRepo  repository.QuizRepo
	respRepo  repository.ResponseRepo
	quizzes   *QuizService
	responses *ResponseService
	mailer    *ConsoleMailer
	teacher   *model.User
	student   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := inmem.NewDB()
	f := &fixture{
		db:       db,
		users:    inmem.NewUserRepository(db),
		quizRepo: inmem.NewQuizRepository(db),
		respRepo: inmem.NewResponseRepository(db),
		mailer:   &ConsoleMailer{},
	}
	f.quizzes = NewQuizService(f.quizRepo, f.respRepo, f.users, nil)
	f.responses = NewResponseService(f.respRepo, f.quizRepo, f.users, f.quizzes, f.mailer, "http://localhost:3000")
	f.teacher = f.createUser(t, "Ada Teacher", "ada@example.com", model.Teacher)
	f.student = f.createUser(t, "Sam Student", "sam@example.com", model.Student)
	return f
}

func (f *fixture) createUser(t *testing.T, name, email string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, Password: "x", Role: role}
	require.NoError(t, f.users.Create(user))
	return user
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{Type: model.MultipleChoice, Question: "2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswers: []int{1}, Required: true},
		{Type: model.Checkbox, Question: "Primes?", Options: []string{"2", "4", "5", "9"}, CorrectAnswers: []int{0, 2}},
		{Type: model.ShortAnswer, Question: "Name a mammal"},
	}
}

func (f *fixture) publishedQuiz(t *testing.T) *model.Quiz {
	t.Helper()
	quiz, err := f.quizzes.Create(f.teacher.ID, CreateQuizRequest{
		Title:     "Basics",
		Questions: sampleQuestions(),
		Status:    model.StatusPublished,
	})
	require.NoError(t, err)
	return quiz
}

func (f *fixture) submit(t *testing.T, quiz *model.Quiz, studentID uint, answers ...model.Answer) *SubmitResult {
	t.Helper()
	res, err := f.responses.Submit(context.Background(), studentID, SubmitRequest{QuizID: quiz.Link, Answers: answers})
	require.NoError(t, err)
	return res
}

// recordingNotifier 记录推送的消息
type recordingNotifier struct {
	mu       sync.Mutex
	messages []WSMessage
}

func (n *recordingNotifier) PushToUsers(userIDs []uint, msg WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}
