package service

import (
	"testing"

	"quizdesk_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestAutoGrade(t *testing.T) {
	questions := sampleQuestions()

	tests := []struct {
		name      string
		answers   []model.Answer
		wantScore int
	}{
		{name: "all correct", answers: []model.Answer{model.IndexAnswer(1), model.IndicesAnswer(2, 0), model.TextAnswer("cat")}, wantScore: 2},
		{name: "string index", answers: []model.Answer{model.Answer(`"1"`), model.IndicesAnswer(0)}, wantScore: 1},
		{name: "checkbox subset", answers: []model.Answer{model.IndexAnswer(0), model.IndicesAnswer(0)}, wantScore: 0},
		{name: "checkbox superset", answers: []model.Answer{model.IndexAnswer(2), model.IndicesAnswer(0, 1, 2)}, wantScore: 0},
		{name: "missing answers", answers: nil, wantScore: 0},
		{name: "null answers", answers: []model.Answer{model.Answer("null"), model.Answer("[]")}, wantScore: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, maxScore := AutoGrade(questions, tt.answers)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, 2, maxScore)
		})
	}
}

func TestAutoGradeWeights(t *testing.T) {
	questions := []model.Question{
		{Type: model.MultipleChoice, Question: "a", Options: []string{"x", "y"}, CorrectAnswers: []int{0}, Points: 3},
		{Type: model.Checkbox, Question: "b", Options: []string{"x", "y"}},
		{Type: model.Paragraph, Question: "c"},
	}

	score, maxScore := AutoGrade(questions, []model.Answer{model.IndexAnswer(0), model.IndicesAnswer(1), model.TextAnswer("essay")})
	assert.Equal(t, 3, score)
	assert.Equal(t, 3, maxScore, "questions without correct answers are not auto-graded")
}

func TestReadableAnswers(t *testing.T) {
	questions := []model.Question{
		{Type: model.MultipleChoice, Question: "a", Options: []string{"Red", ""}},
		{Type: model.Checkbox, Question: "b", Options: []string{"One", "Two", "Three"}},
		{Type: model.ShortAnswer, Question: "c"},
		{Type: model.Paragraph, Question: "d"},
	}

	answers := []model.Answer{
		model.IndexAnswer(1),
		model.IndicesAnswer(0, 2),
		model.TextAnswer(""),
		model.TextAnswer("Long answer"),
		model.IndexAnswer(0),
	}

	assert.Equal(t, []string{
		"Option 2",
		"One, Three",
		"No answer",
		"Long answer",
		"Question not found",
	}, ReadableAnswers(questions, answers))
}
