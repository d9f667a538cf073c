package controller

import (
	"fmt"
	"net/http"
	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService  *service.LessonService
	MaxUploadBytes int64
}

func NewLessonController(lessonService *service.LessonService, maxUploadMB int64) *LessonController {
	if maxUploadMB <= 0 {
		maxUploadMB = 200
	}
	return &LessonController{LessonService: lessonService, MaxUploadBytes: maxUploadMB << 20}
}

// Create godoc
// @Summary 创建课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateLessonRequest true "课程内容"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Failure 400 {object} util.Response "标题或内容缺失"
// @Router /api/lessons [post]
func (c *LessonController) Create(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req service.CreateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Create(user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// List godoc
// @Summary 我的课程
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/lessons [get]
func (c *LessonController) List(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	lessons, err := c.LessonService.ListByAuthor(user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// Update godoc
// @Summary 更新课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param request body service.UpdateLessonRequest true "要修改的字段"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 400 {object} util.Response "状态无效"
// @Failure 404 {object} util.Response "课程不存在或无权限"
// @Router /api/lessons/{id} [put]
func (c *LessonController) Update(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.UpdateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Update(user.UserID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// Delete godoc
// @Summary 删除课程
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "课程不存在或无权限"
// @Router /api/lessons/{id} [delete]
func (c *LessonController) Delete(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	if err := c.LessonService.Delete(ctx.Request.Context(), user.UserID, id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Lesson deleted successfully"})
}

// ListPublished godoc
// @Summary 已发布课程
// @Tags 学生
// @Produce json
// @Success 200 {object} util.Response{data=[]service.PublishedLessonView}
// @Router /api/student/lessons [get]
func (c *LessonController) ListPublished(ctx *gin.Context) {
	lessons, err := c.LessonService.ListPublished()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// GetPublished godoc
// @Summary 课程详情
// @Description 含附件
// @Tags 学生
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 404 {object} util.Response "课程不存在或未发布"
// @Router /api/student/lessons/{id} [get]
func (c *LessonController) GetPublished(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	lesson, err := c.LessonService.GetPublished(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// UploadAttachment godoc
// @Summary 上传课程附件
// @Description 支持 PDF、图片、视频、纯文本；视频会生成缩略图
// @Tags 课程
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param file formData file true "附件"
// @Success 201 {object} util.Response{data=model.LessonAttachment}
// @Failure 400 {object} util.Response "文件缺失或类型不支持"
// @Failure 404 {object} util.Response "课程不存在或无权限"
// @Router /api/lessons/{id}/attachments [post]
func (c *LessonController) UploadAttachment(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	// 预留 1MB 给 multipart 表单头
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.MaxUploadBytes+(1<<20))
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	if fileHeader.Size > c.MaxUploadBytes {
		util.BadRequest(ctx, fmt.Sprintf("File exceeds %d MB", c.MaxUploadBytes>>20))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	attachment, err := c.LessonService.AddAttachment(ctx.Request.Context(), user.UserID, id, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, attachment)
}

// DeleteAttachment godoc
// @Summary 删除课程附件
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param attachmentId path int true "附件ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "附件不存在"
// @Router /api/lessons/{id}/attachments/{attachmentId} [delete]
func (c *LessonController) DeleteAttachment(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	attachmentID, ok := paramID(ctx, "attachmentId")
	if !ok {
		return
	}

	if err := c.LessonService.DeleteAttachment(ctx.Request.Context(), user.UserID, id, attachmentID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Attachment deleted successfully"})
}
