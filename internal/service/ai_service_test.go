package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	output string
	err    error
	prompt string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.output, g.err
}

const generatedQuiz = "Here you go:\n```json\n" + `{
  "title": "Solar System",
  "description": "Planets",
  "questions": [
    {"type": "multiple-choice", "question": "Largest planet?", "options": ["Mars", "Jupiter", "Venus", "Earth"], "correctAnswers": [1], "required": true},
    {"type": "paragraph", "question": "Describe Saturn's rings"}
  ]
}` + "\n```"

func TestGenerateQuiz(t *testing.T) {
	ctx := context.Background()

	gen := &fakeGenerator{output: generatedQuiz}
	quiz, err := NewAIServiceWithGenerator(gen).GenerateQuiz(ctx, "planets for kids")
	require.NoError(t, err)
	assert.Equal(t, "Solar System", quiz.Title)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, []int{1}, quiz.Questions[0].CorrectAnswers)
	assert.Contains(t, gen.prompt, "planets for kids")

	tests := []struct {
		name   string
		output string
		err    error
	}{
		{name: "model error", err: errors.New("quota exceeded")},
		{name: "no json", output: "Sorry, I cannot help with that."},
		{name: "broken json", output: `{"title": "x", "questions": [`},
		{name: "no questions", output: `{"title": "x", "questions": []}`},
		{name: "missing title", output: `{"questions": [{"type": "paragraph", "question": "q"}]}`},
		{name: "too few options", output: `{"title": "x", "questions": [{"type": "checkbox", "question": "q", "options": ["a"]}]}`},
		{name: "unknown type", output: `{"title": "x", "questions": [{"type": "essay", "question": "q"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAIServiceWithGenerator(&fakeGenerator{output: tt.output, err: tt.err}).GenerateQuiz(ctx, "anything")
			assert.ErrorIs(t, err, util.ErrAIGeneration)
		})
	}

	_, err = NewAIServiceWithGenerator(gen).GenerateQuiz(ctx, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGenerateLesson(t *testing.T) {
	ctx := context.Background()

	lesson, err := NewAIServiceWithGenerator(&fakeGenerator{output: "# Volcanoes\n\nMagma rises."}).GenerateLesson(ctx, "volcanoes")
	require.NoError(t, err)
	assert.Equal(t, "AI Generated Lesson: volcanoes", lesson.Title)
	assert.Equal(t, "Lesson generated from prompt: volcanoes", lesson.Description)
	assert.Contains(t, lesson.Content, "Magma")

	_, err = NewAIServiceWithGenerator(&fakeGenerator{err: errors.New("down")}).GenerateLesson(ctx, "volcanoes")
	assert.ErrorIs(t, err, util.ErrAILesson)
}

func TestAIServiceProviderSelection(t *testing.T) {
	svc := NewAIService(configAI("gemini", ""))
	_, err := svc.GenerateQuiz(context.Background(), "x")
	assert.ErrorIs(t, err, util.ErrAIGeneration, "gemini without an api key fails cleanly")

	svc.Reload(configAI("unknown", "key"))
	_, err = svc.GenerateLesson(context.Background(), "x")
	assert.ErrorIs(t, err, util.ErrAILesson)
}

func configAI(provider, key string) config.AIConfig {
	return config.AIConfig{Provider: provider, APIKey: key, Model: "test-model"}
}

func TestChatCompletionsGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "tides")

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "Tides follow the moon."}}},
		})
	}))
	defer srv.Close()

	cfg := configAI("openai", "secret")
	cfg.BaseURL = srv.URL + "/v1/"
	lesson, err := NewAIService(cfg).GenerateLesson(context.Background(), "tides")
	require.NoError(t, err)
	assert.Equal(t, "Tides follow the moon.", lesson.Content)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer failing.Close()

	cfg.BaseURL = failing.URL
	_, err = NewAIService(cfg).GenerateQuiz(context.Background(), "tides")
	assert.ErrorIs(t, err, util.ErrAIGeneration)
}
