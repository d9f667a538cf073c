package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: "debug"},
		Database:  config.DatabaseConfig{Driver: "memory"},
		JWT:       config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: "local", LocalPath: t.TempDir(), MaxUploadMB: 1},
		Kiosk:     config.KioskConfig{AutoSubmitOnBlur: true, DraftTTLHours: 1, GraceMinutes: 5},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	router *gin.Engine
}

func (c client) do(method, path, token string, body interface{}) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (c client) signup(name, email string, role model.UserRole) string {
	code, _ := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": string(role),
	})
	require.Equal(c.t, http.StatusCreated, code)

	code, env := c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(c.t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &login))
	return login.Token
}

func newTestApp(t *testing.T) (*App, client) {
	a := newApp(testConfig(t), nil, nil)
	t.Cleanup(a.Shutdown)
	return a, client{t: t, router: a.Router}
}

func TestHealthInMemoryMode(t *testing.T) {
	_, c := newTestApp(t)

	code, env := c.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "memory")

	code, _ = c.do(http.MethodGet, "/api/debug/env", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestQuizLifecycle(t *testing.T) {
	_, c := newTestApp(t)
	teacher := c.signup("Ada Teacher", "ada@example.com", model.Teacher)
	student := c.signup("Sam Student", "sam@example.com", model.Student)

	quizBody := map[string]interface{}{
		"title": "Go basics",
		"questions": []map[string]interface{}{
			{"type": "multiple-choice", "question": "2+2?", "options": []string{"3", "4"}, "correctAnswers": []int{1}, "required": true},
			{"type": "short-answer", "question": "Name a goroutine primitive"},
		},
	}

	code, _ := c.do(http.MethodPost, "/api/quizzes", student, quizBody)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := c.do(http.MethodPost, "/api/quizzes", teacher, quizBody)
	require.Equal(t, http.StatusCreated, code)
	var quiz model.Quiz
	require.NoError(t, json.Unmarshal(env.Data, &quiz))
	require.NotEmpty(t, quiz.Link)

	// 草稿对学生不可见，作者可预览
	code, _ = c.do(http.MethodGet, "/api/quizzes/"+quiz.Link, student, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodGet, "/api/quizzes/"+quiz.Link, teacher, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodPatch, "/api/quizzes/"+itoa(quiz.ID)+"/publish", teacher, map[string]string{"status": "published"})
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodGet, "/api/quizzes/"+quiz.Link, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "correctAnswers")

	submit := map[string]interface{}{
		"quizId":  quiz.Link,
		"answers": []interface{}{1, "channel"},
	}
	code, env = c.do(http.MethodPost, "/api/responses", student, submit)
	require.Equal(t, http.StatusOK, code)
	var result struct {
		Score    int `json:"score"`
		MaxScore int `json:"maxScore"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 1, result.MaxScore)

	code, _ = c.do(http.MethodPost, "/api/responses", student, submit)
	assert.Equal(t, http.StatusConflict, code)

	code, env = c.do(http.MethodGet, "/api/quizzes/"+itoa(quiz.ID)+"/responses", teacher, nil)
	require.Equal(t, http.StatusOK, code)
	var responses []struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &responses))
	require.Len(t, responses, 1)

	code, _ = c.do(http.MethodPut, "/api/responses/"+itoa(responses[0].ID)+"/grade", teacher, map[string]interface{}{
		"manualScore": 2, "feedback": "good", "isPublished": true,
	})
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodGet, "/api/student/grades", student, nil)
	require.Equal(t, http.StatusOK, code)
	var grades []struct {
		FinalScore int    `json:"finalScore"`
		Feedback   string `json:"feedback"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grades))
	require.Len(t, grades, 1)
	assert.Equal(t, 2, grades[0].FinalScore)
	assert.Equal(t, "good", grades[0].Feedback)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, c := newTestApp(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/quizzes"},
		{http.MethodPost, "/api/responses"},
		{http.MethodGet, "/api/student/grades"},
		{http.MethodPost, "/api/kiosk/sessions"},
		{http.MethodPost, "/api/admin/cleanup-orphaned-responses"},
	} {
		code, _ := c.do(route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, route.path)
	}

	code, _ := c.do(http.MethodGet, "/api/kiosk/policy", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/student/lessons", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestConfigReloadUpdatesRateLimit(t *testing.T) {
	a, c := newTestApp(t)

	cfg := testConfig(t)
	cfg.RateLimit.MaxRequests = 1
	a.applyConfig(cfg)

	code, _ := c.do(http.MethodGet, "/api/kiosk/policy", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/kiosk/policy", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
