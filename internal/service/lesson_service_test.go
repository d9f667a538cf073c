package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository/inmem"
	"quizdesk_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLessonService(t *testing.T) (*LessonService, *fixture, string) {
	t.Helper()
	f := newFixture(t)
	root := t.TempDir()
	storage := &StorageService{Provider: &LocalStorageProvider{Root: root}}
	return NewLessonService(inmem.NewLessonRepository(f.db), f.users, storage), f, root
}

func TestLessonCRUD(t *testing.T) {
	svc, f, _ := newLessonService(t)
	ctx := context.Background()

	_, err := svc.Create(f.teacher.ID, CreateLessonRequest{Title: "No content"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	lesson, err := svc.Create(f.teacher.ID, CreateLessonRequest{
		Title:          "Photosynthesis",
		Content:        "Plants turn light into sugar.",
		AIGenerated:    true,
		OriginalPrompt: "photosynthesis for grade 6",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, lesson.Status)
	assert.True(t, lesson.AIGenerated)

	_, err = svc.GetPublished(lesson.ID)
	assert.ErrorIs(t, err, util.ErrLessonNotPublished)

	intruder := f.createUser(t, "Other", "other@example.com", model.Teacher)
	_, err = svc.Update(intruder.ID, lesson.ID, UpdateLessonRequest{Title: strPtr("Mine now")})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	bad := model.PublishStatus("archived")
	_, err = svc.Update(f.teacher.ID, lesson.ID, UpdateLessonRequest{Status: &bad})
	assert.ErrorIs(t, err, util.ErrInvalidStatus)

	published := model.StatusPublished
	_, err = svc.Update(f.teacher.ID, lesson.ID, UpdateLessonRequest{Status: &published})
	require.NoError(t, err)

	list, err := svc.ListPublished()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ada Teacher", list[0].AuthorName)

	assert.ErrorIs(t, svc.Delete(ctx, intruder.ID, lesson.ID), util.ErrLessonNotFound)
	require.NoError(t, svc.Delete(ctx, f.teacher.ID, lesson.ID))

	own, err := svc.ListByAuthor(f.teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, own)
}

func TestLessonAttachments(t *testing.T) {
	svc, f, root := newLessonService(t)
	ctx := context.Background()

	lesson, err := svc.Create(f.teacher.ID, CreateLessonRequest{Title: "Reading", Content: "text"})
	require.NoError(t, err)

	body := []byte(strings.Repeat("worksheet line\n", 20))
	attachment, err := svc.AddAttachment(ctx, f.teacher.ID, lesson.ID, "worksheet.txt", bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Equal(t, util.MimeText, attachment.ContentType)
	assert.True(t, strings.HasPrefix(attachment.URL, "/uploads/lessons/"))

	stored := filepath.Join(root, filepath.FromSlash(attachment.ObjectKey))
	content, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, body, content)

	_, err = svc.AddAttachment(ctx, f.teacher.ID, lesson.ID, "tool.exe", bytes.NewReader([]byte("MZ\x90\x00\x03\x00\x00\x00")), 8)
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	published := model.StatusPublished
	_, err = svc.Update(f.teacher.ID, lesson.ID, UpdateLessonRequest{Status: &published})
	require.NoError(t, err)
	got, err := svc.GetPublished(lesson.ID)
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)

	assert.ErrorIs(t, svc.DeleteAttachment(ctx, f.teacher.ID, lesson.ID, 9999), util.ErrAttachmentNotFound)
	require.NoError(t, svc.DeleteAttachment(ctx, f.teacher.ID, lesson.ID, attachment.ID))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
}
