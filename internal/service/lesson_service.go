package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/util"
	"quizdesk_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LessonService struct {
	LessonRepo repository.LessonRepo
	UserRepo   repository.UserRepo
	Storage    *StorageService
}

func NewLessonService(lessonRepo repository.LessonRepo, userRepo repository.UserRepo, storage *StorageService) *LessonService {
	return &LessonService{
		LessonRepo: lessonRepo,
		UserRepo:   userRepo,
		Storage:    storage,
	}
}

type CreateLessonRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Content        string `json:"content"`
	AIGenerated    bool   `json:"aiGenerated"`
	OriginalPrompt string `json:"originalPrompt"`
}

type UpdateLessonRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Content     *string              `json:"content"`
	Status      *model.PublishStatus `json:"status"`
}

// PublishedLessonView 学生端课程列表，附作者姓名
type PublishedLessonView struct {
	model.Lesson
	AuthorName string `json:"authorName"`
}

func (s *LessonService) Create(authorID uint, req CreateLessonRequest) (*model.Lesson, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" {
		return nil, &ValidationError{Msg: "Title and content are required"}
	}

	lesson := &model.Lesson{
		Title:          title,
		Description:    req.Description,
		Content:        req.Content,
		AuthorID:       authorID,
		Status:         model.StatusDraft,
		AIGenerated:    req.AIGenerated,
		OriginalPrompt: req.OriginalPrompt,
	}
	if err := s.LessonRepo.Create(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) ListByAuthor(authorID uint) ([]model.Lesson, error) {
	return s.LessonRepo.FindByAuthor(authorID)
}

func (s *LessonService) GetOwned(authorID, lessonID uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	if lesson.AuthorID != authorID {
		return nil, util.ErrLessonNotFound
	}
	return lesson, nil
}

func (s *LessonService) Update(authorID, lessonID uint, req UpdateLessonRequest) (*model.Lesson, error) {
	lesson, err := s.GetOwned(authorID, lessonID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, &ValidationError{Msg: "Title and content are required"}
		}
		lesson.Title = title
	}
	if req.Description != nil {
		lesson.Description = *req.Description
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, &ValidationError{Msg: "Title and content are required"}
		}
		lesson.Content = *req.Content
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, util.ErrInvalidStatus
		}
		lesson.Status = *req.Status
	}

	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) Delete(ctx context.Context, authorID, lessonID uint) error {
	lesson, err := s.GetOwned(authorID, lessonID)
	if err != nil {
		return err
	}

	attachments, err := s.LessonRepo.FindAttachments(lesson.ID)
	if err != nil {
		return err
	}
	if err := s.LessonRepo.Delete(lesson.ID); err != nil {
		return err
	}

	for _, a := range attachments {
		s.removeObjects(ctx, a)
	}
	return nil
}

// ListPublished 已发布课程，附作者姓名
func (s *LessonService) ListPublished() ([]PublishedLessonView, error) {
	lessons, err := s.LessonRepo.FindPublished()
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.AuthorID)
	}
	authors, err := s.UserRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(authors))
	for _, a := range authors {
		names[a.ID] = a.Name
	}

	views := make([]PublishedLessonView, 0, len(lessons))
	for _, l := range lessons {
		views = append(views, PublishedLessonView{Lesson: l, AuthorName: names[l.AuthorID]})
	}
	return views, nil
}

// GetPublished 学生查看单节课程（含附件）
func (s *LessonService) GetPublished(lessonID uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotPublished
		}
		return nil, err
	}
	if lesson.Status != model.StatusPublished {
		return nil, util.ErrLessonNotPublished
	}

	attachments, err := s.LessonRepo.FindAttachments(lesson.ID)
	if err != nil {
		return nil, err
	}
	lesson.Attachments = attachments
	return lesson, nil
}

// AddAttachment 上传课程附件；视频额外生成缩略图并读取时长
func (s *LessonService) AddAttachment(ctx context.Context, authorID, lessonID uint, filename string, src io.ReadSeeker, size int64) (*model.LessonAttachment, error) {
	lesson, err := s.GetOwned(authorID, lessonID)
	if err != nil {
		return nil, err
	}

	contentType, err := util.ValidateMimeType(src, util.AllowedAttachmentTypes)
	if err != nil {
		// 部分视频容器格式无法嗅探，按扩展名放行
		if !errors.Is(err, util.ErrInvalidFileType) || !util.HasVideoExtension(filename) {
			return nil, err
		}
		contentType = "video/" + strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key, err := s.Storage.AttachmentKey(lesson.ID, filename)
	if err != nil {
		return nil, err
	}

	attachment := &model.LessonAttachment{
		LessonID:    lesson.ID,
		Filename:    filepath.Base(filename),
		ObjectKey:   key,
		ContentType: contentType,
		Size:        size,
	}

	if util.IsVideo(contentType) {
		err = s.uploadVideo(ctx, attachment, src)
	} else {
		attachment.URL, err = s.Storage.Upload(ctx, key, src, size, contentType)
	}
	if err != nil {
		return nil, err
	}

	if err := s.LessonRepo.CreateAttachment(attachment); err != nil {
		s.removeObjects(ctx, *attachment)
		return nil, err
	}
	return attachment, nil
}

// uploadVideo 视频先落地到临时文件，供 ffmpeg 处理
func (s *LessonService) uploadVideo(ctx context.Context, attachment *model.LessonAttachment, src io.Reader) error {
	tempFile, err := os.CreateTemp("", "lesson-video-*"+filepath.Ext(attachment.ObjectKey))
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())

	if _, err := io.Copy(tempFile, src); err != nil {
		tempFile.Close()
		return err
	}
	tempFile.Close()

	attachment.URL, err = s.Storage.UploadFile(ctx, attachment.ObjectKey, tempFile.Name(), attachment.ContentType)
	if err != nil {
		return err
	}

	if info, err := util.GetVideoInfo(tempFile.Name()); err == nil {
		attachment.Duration = info.Duration
		attachment.Size = info.Size
	} else {
		logger.Log.Warn("Video probe failed", zap.String("key", attachment.ObjectKey), zap.Error(err))
	}

	thumbPath := tempFile.Name() + ".jpg"
	defer os.Remove(thumbPath)
	if err := util.GenerateThumbnail(tempFile.Name(), thumbPath, "3"); err != nil {
		logger.Log.Warn("Thumbnail generation failed", zap.String("key", attachment.ObjectKey), zap.Error(err))
		return nil
	}

	thumbKey := thumbnailKey(attachment.ObjectKey)
	if url, err := s.Storage.UploadFile(ctx, thumbKey, thumbPath, "image/jpeg"); err == nil {
		attachment.ThumbnailURL = url
	} else {
		logger.Log.Warn("Thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
	}
	return nil
}

func thumbnailKey(objectKey string) string {
	return strings.TrimSuffix(objectKey, filepath.Ext(objectKey)) + "_thumb.jpg"
}

func (s *LessonService) removeObjects(ctx context.Context, a model.LessonAttachment) {
	if err := s.Storage.Delete(ctx, a.ObjectKey); err != nil {
		logger.Log.Warn("Attachment object delete failed", zap.String("key", a.ObjectKey), zap.Error(err))
	}
	if a.ThumbnailURL != "" {
		s.Storage.Delete(ctx, thumbnailKey(a.ObjectKey))
	}
}

func (s *LessonService) DeleteAttachment(ctx context.Context, authorID, lessonID, attachmentID uint) error {
	lesson, err := s.GetOwned(authorID, lessonID)
	if err != nil {
		return err
	}

	attachment, err := s.LessonRepo.FindAttachment(lesson.ID, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttachmentNotFound
		}
		return err
	}

	if err := s.LessonRepo.DeleteAttachment(attachment.ID); err != nil {
		return fmt.Errorf("delete attachment %d: %w", attachment.ID, err)
	}
	s.removeObjects(ctx, *attachment)
	return nil
}
