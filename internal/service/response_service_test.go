package service

import (
	"context"
	"testing"
	"time"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }
func boolPtr(v bool) *bool { return &v }
func strPtr(v string) *string { return &v }

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	res := f.submit(t, quiz, f.student.ID, model.IndexAnswer(1), model.IndicesAnswer(2, 0), model.TextAnswer("whale"))
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 2, res.MaxScore)
	assert.Equal(t, "Quiz submitted successfully", res.Message)

	_, err := f.responses.Submit(ctx, f.student.ID, SubmitRequest{QuizID: quiz.Link, Answers: []model.Answer{}})
	assert.ErrorIs(t, err, util.ErrAlreadyAttempted)

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.responses.Submit(ctx, f.student.ID, SubmitRequest{QuizID: quiz.Link})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("draft quiz", func(t *testing.T) {
		draft, err := f.quizzes.Create(f.teacher.ID, CreateQuizRequest{Title: "Draft", Questions: sampleQuestions()})
		require.NoError(t, err)
		_, err = f.responses.Submit(ctx, f.student.ID, SubmitRequest{QuizID: draft.Link, Answers: []model.Answer{}})
		assert.ErrorIs(t, err, util.ErrQuizNotPublished)
	})
}

func TestGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)
	f.submit(t, quiz, f.student.ID, model.IndexAnswer(1))

	views, err := f.quizzes.Responses(f.teacher.ID, quiz.ID)
	require.NoError(t, err)
	responseID := views[0].ID

	intruder := f.createUser(t, "Other", "other@example.com", model.Teacher)
	_, err = f.responses.Grade(ctx, intruder.ID, responseID, GradeRequest{ManualScore: intPtr(5)})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.responses.Grade(ctx, f.teacher.ID, 9999, GradeRequest{})
	assert.ErrorIs(t, err, util.ErrResponseNotFound)

	graded, err := f.responses.Grade(ctx, f.teacher.ID, responseID, GradeRequest{ManualScore: intPtr(0), Feedback: strPtr("Try again")})
	require.NoError(t, err)
	require.NotNil(t, graded.ManualScore)
	assert.Equal(t, 0, graded.FinalScore(), "a manual score of zero overrides the auto score")
	assert.Equal(t, f.teacher.ID, *graded.GradedBy)
	assert.NotNil(t, graded.GradedAt)
	assert.Empty(t, f.mailer.Messages())

	_, err = f.responses.Grade(ctx, f.teacher.ID, responseID, GradeRequest{ManualScore: intPtr(-1)})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.responses.Grade(ctx, f.teacher.ID, responseID, GradeRequest{ManualScore: intPtr(2), IsPublished: boolPtr(true)})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(f.mailer.Messages()) == 1 }, time.Second, 10*time.Millisecond)
	msg := f.mailer.Messages()[0]
	assert.Equal(t, "sam@example.com", msg.To.Address)
	assert.Contains(t, msg.Subject, "Basics")
	assert.Contains(t, msg.TextContent, "Score: 2 / 2")
	assert.Contains(t, msg.TextContent, "Try again")
}

func TestStudentViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempted := f.publishedQuiz(t)
	untouched := f.publishedQuiz(t)
	f.submit(t, attempted, f.student.ID, model.IndexAnswer(0), model.IndicesAnswer(0, 2), model.TextAnswer(""))

	quizzes, err := f.responses.StudentQuizzes(f.student.ID)
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	byID := map[uint]StudentQuizView{}
	for _, q := range quizzes {
		byID[q.ID] = q
		for _, question := range q.Questions {
			assert.Nil(t, question.CorrectAnswers)
		}
	}
	assert.True(t, byID[attempted.ID].Attempted)
	assert.Equal(t, 1, *byID[attempted.ID].FinalScore)
	assert.False(t, byID[untouched.ID].Attempted)
	assert.Nil(t, byID[untouched.ID].FinalScore)

	grades, err := f.responses.StudentGrades(f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, grades, "unpublished grades are hidden")

	views, err := f.quizzes.Responses(f.teacher.ID, attempted.ID)
	require.NoError(t, err)
	_, err = f.responses.Grade(ctx, f.teacher.ID, views[0].ID, GradeRequest{IsPublished: boolPtr(true), Feedback: strPtr("ok")})
	require.NoError(t, err)

	grades, err = f.responses.StudentGrades(f.student.ID)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "Basics", grades[0].QuizTitle)
	assert.Equal(t, []string{"3", "2, 5", "No answer"}, grades[0].ReadableAnswers)
	assert.Equal(t, 1, grades[0].FinalScore)

	require.NoError(t, f.quizzes.Delete(ctx, f.teacher.ID, attempted.ID))
	grades, err = f.responses.StudentGrades(f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, grades, "grades of deleted quizzes are hidden")

	deleted, err := f.responses.CleanupOrphaned()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
