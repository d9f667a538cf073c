package service

import (
	"testing"

	"quizdesk_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestValidateQuestions(t *testing.T) {
	tests := []struct {
		name     string
		question model.Question
		wantErr  string
	}{
		{name: "valid choice", question: model.Question{Type: model.MultipleChoice, Question: "q", Options: []string{"a", "b"}, CorrectAnswers: []int{1}}},
		{name: "valid text", question: model.Question{Type: model.Paragraph, Question: "q"}},
		{name: "unknown type", question: model.Question{Type: "essay", Question: "q"}, wantErr: "Type must be one of"},
		{name: "missing text", question: model.Question{Type: model.ShortAnswer}, wantErr: "Question is required"},
		{name: "one option", question: model.Question{Type: model.Checkbox, Question: "q", Options: []string{"a"}}, wantErr: "at least 2 options"},
		{name: "answer out of range", question: model.Question{Type: model.MultipleChoice, Question: "q", Options: []string{"a", "b"}, CorrectAnswers: []int{2}}, wantErr: "existing options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestions([]model.Question{tt.question})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.ErrorAs(t, err, &verr) {
				assert.Contains(t, verr.Msg, tt.wantErr)
				assert.Contains(t, verr.Msg, "question 1")
			}
		})
	}
}
