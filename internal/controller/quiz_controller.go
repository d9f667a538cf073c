package controller

import (
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// PublishRequest 修改发布状态
// swagger:model PublishRequest
type PublishRequest struct {
	Status model.PublishStatus `json:"status"`
}

// Create godoc
// @Summary 创建测验
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateQuizRequest true "测验内容"
// @Success 201 {object} util.Response{data=model.Quiz} "创建成功"
// @Failure 400 {object} util.Response "标题或题目缺失、题目不合法"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Create(user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// List godoc
// @Summary 我的测验
// @Description 当前教师创建的测验，按创建时间倒序
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Quiz}
// @Router /api/quizzes [get]
func (c *QuizController) List(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	quizzes, err := c.QuizService.ListByAuthor(user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// GetByLink godoc
// @Summary 通过分享链接获取测验
// @Description 只返回已发布的测验；非作者看不到标准答案
// @Tags 测验
// @Produce json
// @Param id path string true "分享链接"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetByLink(ctx *gin.Context) {
	var viewerID uint
	if user := util.GetUserFromContext(ctx); user != nil {
		viewerID = user.UserID
	}

	quiz, err := c.QuizService.GetByLink(ctx.Request.Context(), ctx.Param("id"), viewerID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Update godoc
// @Summary 更新测验
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param request body service.UpdateQuizRequest true "要修改的字段"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "测验不存在或无权限"
// @Router /api/quizzes/{id} [put]
func (c *QuizController) Update(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.UpdateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Update(ctx.Request.Context(), user.UserID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Publish godoc
// @Summary 发布或撤回测验
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param request body PublishRequest true "draft 或 published"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response "状态无效"
// @Failure 404 {object} util.Response "测验不存在或无权限"
// @Router /api/quizzes/{id}/publish [patch]
func (c *QuizController) Publish(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.SetStatus(ctx.Request.Context(), user.UserID, id, req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Delete godoc
// @Summary 删除测验
// @Description 答卷保留，由维护任务清理
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "测验不存在或无权限"
// @Router /api/quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	if err := c.QuizService.Delete(ctx.Request.Context(), user.UserID, id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Quiz deleted successfully"})
}

// Responses godoc
// @Summary 测验答卷列表
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]service.QuizResponseView}
// @Failure 404 {object} util.Response "测验不存在或无权限"
// @Router /api/quizzes/{id}/responses [get]
func (c *QuizController) Responses(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	responses, err := c.QuizService.Responses(user.UserID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, responses)
}
