package controller

import (
	"errors"
	"net/http"
	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// statusFor 业务错误到 HTTP 状态码的映射
func statusFor(err error) (int, bool) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, util.ErrInvalidStatus),
		errors.Is(err, util.ErrInvalidQuestions),
		errors.Is(err, util.ErrInvalidFileType):
		return http.StatusBadRequest, true
	case errors.Is(err, util.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, util.ErrPermissionDenied):
		return http.StatusForbidden, true
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrQuizNotPublished),
		errors.Is(err, util.ErrResponseNotFound),
		errors.Is(err, util.ErrLessonNotFound),
		errors.Is(err, util.ErrLessonNotPublished),
		errors.Is(err, util.ErrAttachmentNotFound),
		errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, util.ErrAlreadyAttempted),
		errors.Is(err, util.ErrEmailRegistered),
		errors.Is(err, util.ErrSessionNotActive):
		return http.StatusConflict, true
	case errors.Is(err, util.ErrAIGeneration),
		errors.Is(err, util.ErrAILesson):
		return http.StatusInternalServerError, true
	}
	return 0, false
}

// respondError 已知错误按映射返回，其余记录日志并返回 500
func respondError(ctx *gin.Context, err error) {
	code, ok := statusFor(err)
	if !ok {
		util.LogInternalError(ctx, err)
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.NotFound(ctx)
		return
	}
	util.Error(ctx, code, err.Error())
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// currentUser 路由已挂载 AuthMiddleware，缺失时按未认证处理
func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
