package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/util"
	"quizdesk_backend/pkg/logger"
	"quizdesk_backend/pkg/monitoring"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const aiRequestTimeout = 60 * time.Second

const quizPromptTemplate = `You are writing a quiz for students. Requirements from the teacher: %s

Respond with a single JSON object of this shape:
{
  "title": "Quiz title",
  "description": "One or two sentences about the quiz",
  "questions": [
    {
      "type": "multiple-choice | checkbox | short-answer | paragraph",
      "question": "Question text",
      "options": ["A", "B", "C", "D"],
      "correctAnswers": [0],
      "required": true
    }
  ]
}

Rules:
- multiple-choice: four options and exactly one correct index.
- checkbox: four options and one or more correct indices.
- short-answer and paragraph: omit options and correctAnswers.
- Indices are zero-based and must point at an existing option.
- Mix question types when the requirements allow it.

Output the JSON only.`

const lessonPromptTemplate = `Write a complete lesson for students on: "%s"

Structure it with headings:
1. Title
2. Introduction
3. Main sections with explanations
4. Key concepts and definitions
5. Worked examples
6. Summary
7. Activities or discussion questions

Use Markdown.`

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// TextGenerator 大模型文本生成
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type AIService struct {
	mu        sync.Mutex
	config    config.AIConfig
	generator TextGenerator
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{config: cfg}
}

// NewAIServiceWithGenerator 使用指定生成器（测试用）
func NewAIServiceWithGenerator(g TextGenerator) *AIService {
	return &AIService{generator: g}
}

// Reload 配置热更新后下次调用重新创建客户端
func (s *AIService) Reload(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	s.generator = nil
}

func (s *AIService) generatorFor(ctx context.Context) (TextGenerator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generator != nil {
		return s.generator, nil
	}

	var g TextGenerator
	var err error
	switch s.config.Provider {
	case "openai":
		g = newChatCompletionsGenerator(s.config)
	case "gemini", "":
		g, err = newGeminiGenerator(ctx, s.config)
	default:
		err = errors.Errorf("unknown ai provider %q", s.config.Provider)
	}
	if err != nil {
		return nil, err
	}

	s.generator = g
	return g, nil
}

func (s *AIService) generate(ctx context.Context, prompt string) (string, error) {
	g, err := s.generatorFor(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, aiRequestTimeout)
	defer cancel()
	return g.Generate(ctx, prompt)
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GeneratedQuiz 模型生成的测验草稿，教师确认后再保存
type GeneratedQuiz struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	Questions   []model.Question `json:"questions" validate:"required,min=1,dive"`
}

type GeneratedLesson struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

func (s *AIService) GenerateQuiz(ctx context.Context, prompt string) (*GeneratedQuiz, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &ValidationError{Msg: "Prompt is required"}
	}

	text, err := s.generate(ctx, fmt.Sprintf(quizPromptTemplate, prompt))
	if err == nil {
		var quiz *GeneratedQuiz
		if quiz, err = parseGeneratedQuiz(text); err == nil {
			monitoring.AIGenerations.WithLabelValues("quiz", "ok").Inc()
			return quiz, nil
		}
	}

	monitoring.AIGenerations.WithLabelValues("quiz", "error").Inc()
	logger.Log.Error("AI quiz generation failed", zap.String("prompt", prompt), zap.Error(err))
	return nil, util.ErrAIGeneration
}

// parseGeneratedQuiz 截取最外层 JSON 对象并校验题目结构
func parseGeneratedQuiz(text string) (*GeneratedQuiz, error) {
	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return nil, errors.New("no JSON object in model output")
	}

	var quiz GeneratedQuiz
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return nil, errors.Wrap(err, "decode generated quiz")
	}
	if err := questionValidate.Struct(quiz); err != nil {
		return nil, errors.Wrap(errors.New(describeValidation(err)), "invalid generated quiz")
	}
	return &quiz, nil
}

func (s *AIService) GenerateLesson(ctx context.Context, prompt string) (*GeneratedLesson, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &ValidationError{Msg: "Prompt is required"}
	}

	content, err := s.generate(ctx, fmt.Sprintf(lessonPromptTemplate, prompt))
	if err == nil && strings.TrimSpace(content) == "" {
		err = errors.New("empty lesson content")
	}
	if err != nil {
		monitoring.AIGenerations.WithLabelValues("lesson", "error").Inc()
		logger.Log.Error("AI lesson generation failed", zap.String("prompt", prompt), zap.Error(err))
		return nil, util.ErrAILesson
	}

	monitoring.AIGenerations.WithLabelValues("lesson", "ok").Inc()
	return &GeneratedLesson{
		Title:       "AI Generated Lesson: " + prompt,
		Description: "Lesson generated from prompt: " + prompt,
		Content:     content,
	}, nil
}

// geminiGenerator Google Gemini
type geminiGenerator struct {
	client *genai.Client
	model  string
}

func newGeminiGenerator(ctx context.Context, cfg config.AIConfig) (*geminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai.api_key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	return &geminiGenerator{client: client, model: cfg.Model}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}
	return result.Text(), nil
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// chatCompletionsGenerator 兼容 OpenAI chat/completions 接口的服务
type chatCompletionsGenerator struct {
	config config.AIConfig
	client *http.Client
}

func newChatCompletionsGenerator(cfg config.AIConfig) *chatCompletionsGenerator {
	return &chatCompletionsGenerator{
		config: cfg,
		client: &http.Client{Timeout: aiRequestTimeout},
	}
}

func (g *chatCompletionsGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: "You are an experienced teacher who writes clear course material."},
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(g.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.Wrap(err, "decode chat completion")
	}
	if result.Error != nil {
		return "", errors.New(result.Error.Message)
	}
	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}
	return "", errors.New("AI returned no choices")
}
