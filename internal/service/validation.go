package service

import (
	"fmt"
	"quizdesk_backend/internal/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError 请求内容不合法，控制器映射为 400
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

var questionValidate = newQuestionValidator()

func newQuestionValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(questionStructLevel, model.Question{})
	return v
}

// questionStructLevel 选择题至少两个选项，标准答案下标必须落在选项范围内
func questionStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.Question)
	if !q.Type.IsChoice() {
		return
	}
	if len(q.Options) < 2 {
		sl.ReportError(q.Options, "Options", "options", "minoptions", "2")
	}
	for _, idx := range q.CorrectAnswers {
		if idx < 0 || idx >= len(q.Options) {
			sl.ReportError(q.CorrectAnswers, "CorrectAnswers", "correctAnswers", "answerrange", "")
			break
		}
	}
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "minoptions":
			parts = append(parts, "choice questions must have at least 2 options")
		case "answerrange":
			parts = append(parts, "correct answers must reference existing options")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateQuestions 逐题校验，返回第一处错误
func ValidateQuestions(questions []model.Question) error {
	for i, q := range questions {
		if err := questionValidate.Struct(q); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("question %d: %s", i+1, describeValidation(err))}
		}
	}
	return nil
}
