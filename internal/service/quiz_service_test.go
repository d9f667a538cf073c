package service

import (
	"context"
	"testing"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizCreate(t *testing.T) {
	f := newFixture(t)

	quiz, err := f.quizzes.Create(f.teacher.ID, CreateQuizRequest{Title: "  Draft quiz ", Questions: sampleQuestions()})
	require.NoError(t, err)
	assert.Equal(t, "Draft quiz", quiz.Title)
	assert.Equal(t, model.StatusDraft, quiz.Status)
	assert.Len(t, quiz.Link, util.QuizLinkLength)
	assert.Equal(t, f.teacher.ID, quiz.AuthorID)

	other, err := f.quizzes.Create(f.teacher.ID, CreateQuizRequest{Title: "Empty", Questions: []model.Question{}})
	require.NoError(t, err)
	assert.NotEqual(t, quiz.Link, other.Link)

	t.Run("missing title", func(t *testing.T) {
		_, err := f.quizzes.Create(f.teacher.ID, CreateQuizRequest{Questions: sampleQuestions()})
		assert.ErrorIs(t, err, util.ErrInvalidQuestions)
	})
	t.Run("questions not provided", func(t *testing.T) {
		_, err := f.quizzes.Create(f.teacher.ID, CreateQuizRequest{Title: "x"})
		assert.ErrorIs(t, err, util.ErrInvalidQuestions)
	})
	t.Run("invalid status", func(t *testing.T) {
		_, err := f.quizzes.Create(f.teacher.ID, CreateQuizRequest{Title: "x", Questions: []model.Question{}, Status: "archived"})
		assert.ErrorIs(t, err, util.ErrInvalidStatus)
	})

	list, err := f.quizzes.ListByAuthor(f.teacher.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].ID, "newest first")
}

func TestQuizOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)
	intruder := f.createUser(t, "Other", "other@example.com", model.Teacher)

	title := "Hijacked"
	_, err := f.quizzes.Update(ctx, intruder.ID, quiz.ID, UpdateQuizRequest{Title: &title})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	assert.ErrorIs(t, f.quizzes.Delete(ctx, intruder.ID, quiz.ID), util.ErrQuizNotFound)

	_, err = f.quizzes.Responses(intruder.ID, quiz.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	_, err = f.quizzes.SetStatus(ctx, f.teacher.ID, quiz.ID, "hidden")
	assert.ErrorIs(t, err, util.ErrInvalidStatus)
}

func TestQuizGetByLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	public, err := f.quizzes.GetByLink(ctx, quiz.Link, f.student.ID)
	require.NoError(t, err)
	for _, q := range public.Questions {
		assert.Nil(t, q.CorrectAnswers)
	}

	own, err := f.quizzes.GetByLink(ctx, quiz.Link, f.teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, own.Questions[0].CorrectAnswers)

	_, err = f.quizzes.SetStatus(ctx, f.teacher.ID, quiz.ID, model.StatusDraft)
	require.NoError(t, err)

	_, err = f.quizzes.GetByLink(ctx, quiz.Link, 0)
	assert.ErrorIs(t, err, util.ErrQuizNotPublished)

	_, err = f.quizzes.GetByLink(ctx, quiz.Link, f.teacher.ID)
	assert.NoError(t, err, "authors can preview drafts")

	_, err = f.quizzes.GetByLink(ctx, "missing", 0)
	assert.ErrorIs(t, err, util.ErrQuizNotPublished)
}

func TestQuizUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	limit := 15
	questions := sampleQuestions()[:1]
	updated, err := f.quizzes.Update(ctx, f.teacher.ID, quiz.ID, UpdateQuizRequest{TimeLimit: &limit, Questions: &questions})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.TimeLimit)
	assert.Len(t, updated.Questions, 1)
	assert.Equal(t, "Basics", updated.Title)

	bad := []model.Question{{Type: model.Checkbox, Question: "q", Options: []string{"only"}}}
	_, err = f.quizzes.Update(ctx, f.teacher.ID, quiz.ID, UpdateQuizRequest{Questions: &bad})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestQuizResponses(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(t)
	f.submit(t, quiz, f.student.ID, model.IndexAnswer(1), model.IndicesAnswer(0, 2))

	views, err := f.quizzes.Responses(f.teacher.ID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Student)
	assert.Equal(t, "Sam Student", views[0].Student.Name)
	assert.Equal(t, "sam@example.com", views[0].Student.Email)
	assert.Equal(t, 2, views[0].FinalScore)
}
