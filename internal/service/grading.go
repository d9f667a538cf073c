package service

import (
	"fmt"
	"quizdesk_backend/internal/model"
	"sort"
	"strings"
)

// AutoGrade 只对选择题自动判分：单选比较第一个标准答案，多选比较集合
func AutoGrade(questions []model.Question, answers []model.Answer) (score, maxScore int) {
	for i, q := range questions {
		if !q.Type.IsChoice() || len(q.CorrectAnswers) == 0 {
			continue
		}
		maxScore += q.Weight()

		if i >= len(answers) || answers[i].IsEmpty() {
			continue
		}
		if isCorrect(q, answers[i]) {
			score += q.Weight()
		}
	}
	return score, maxScore
}

func isCorrect(q model.Question, a model.Answer) bool {
	switch q.Type {
	case model.MultipleChoice:
		given, ok := a.Index()
		return ok && given == q.CorrectAnswers[0]
	case model.Checkbox:
		given, ok := a.Indices()
		if !ok {
			return false
		}
		return sameIndices(given, q.CorrectAnswers)
	}
	return false
}

func sameIndices(a, b []int) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	x := append([]int(nil), a...)
	y := append([]int(nil), b...)
	sort.Ints(x)
	sort.Ints(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// ReadableAnswers 把作答转换成学生可读的文本
func ReadableAnswers(questions []model.Question, answers []model.Answer) []string {
	out := make([]string, len(answers))
	for i, a := range answers {
		if i >= len(questions) {
			out[i] = "Question not found"
			continue
		}
		out[i] = readableAnswer(questions[i], a)
	}
	return out
}

func readableAnswer(q model.Question, a model.Answer) string {
	switch q.Type {
	case model.MultipleChoice:
		if idx, ok := a.Index(); ok {
			return optionText(q, idx)
		}
	case model.Checkbox:
		if list, ok := a.Indices(); ok {
			texts := make([]string, len(list))
			for i, idx := range list {
				texts[i] = optionText(q, idx)
			}
			return strings.Join(texts, ", ")
		}
	case model.ShortAnswer, model.Paragraph:
		if text, ok := a.Text(); ok && text != "" {
			return text
		}
		if a.IsEmpty() {
			return "No answer"
		}
	}

	if a.IsEmpty() {
		return "No answer"
	}
	if text, ok := a.Text(); ok {
		return text
	}
	return string(a)
}

func optionText(q model.Question, idx int) string {
	if idx >= 0 && idx < len(q.Options) && q.Options[idx] != "" {
		return q.Options[idx]
	}
	return fmt.Sprintf("Option %d", idx+1)
}
