package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrQuizNotFound     = errors.New("Quiz not found or unauthorized")
	ErrQuizNotPublished = errors.New("Quiz not found")
	ErrInvalidStatus    = errors.New("Invalid status")
	ErrInvalidQuestions = errors.New("Title and questions are required")
	ErrAlreadyAttempted = errors.New("You have already attempted this quiz.")
	ErrResponseNotFound = errors.New("Response not found")

	ErrLessonNotFound     = errors.New("Lesson not found or unauthorized")
	ErrLessonNotPublished = errors.New("Lesson not found or not published")
	ErrAttachmentNotFound = errors.New("Attachment not found")
	ErrInvalidFileType    = errors.New("invalid file type")

	ErrAIGeneration = errors.New("Failed to generate quiz. Please try again with a different prompt.")
	ErrAILesson     = errors.New("Failed to generate lesson")

	ErrSessionNotFound  = errors.New("Kiosk session not found")
	ErrSessionNotActive = errors.New("Kiosk session is not active")
)
