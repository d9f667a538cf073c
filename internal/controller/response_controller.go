package controller

import (
	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ResponseController 学生作答、教师评分、学生成绩
type ResponseController struct {
	ResponseService *service.ResponseService
}

func NewResponseController(responseService *service.ResponseService) *ResponseController {
	return &ResponseController{ResponseService: responseService}
}

// Submit godoc
// @Summary 提交答卷
// @Description 每个学生每个测验只能提交一次，选择题自动判分
// @Tags 答卷
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SubmitRequest true "分享链接与答案"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response "参数缺失"
// @Failure 404 {object} util.Response "测验不存在或未发布"
// @Failure 409 {object} util.Response "已作答"
// @Router /api/responses [post]
func (c *ResponseController) Submit(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ResponseService.Submit(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Grade godoc
// @Summary 评分
// @Description 人工评分、评语、是否公布；首次公布时邮件通知学生
// @Tags 答卷
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "答卷ID"
// @Param request body service.GradeRequest true "评分内容"
// @Success 200 {object} util.Response{data=model.Response}
// @Failure 403 {object} util.Response "不是测验作者"
// @Failure 404 {object} util.Response "答卷或测验不存在"
// @Router /api/responses/{id}/grade [put]
func (c *ResponseController) Grade(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	response, err := c.ResponseService.Grade(ctx.Request.Context(), user.UserID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, response)
}

// StudentQuizzes godoc
// @Summary 学生可作答的测验
// @Tags 学生
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.StudentQuizView}
// @Router /api/student/quizzes [get]
func (c *ResponseController) StudentQuizzes(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	quizzes, err := c.ResponseService.StudentQuizzes(user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// StudentGrades godoc
// @Summary 学生已公布的成绩
// @Tags 学生
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.StudentGradeView}
// @Router /api/student/grades [get]
func (c *ResponseController) StudentGrades(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	grades, err := c.ResponseService.StudentGrades(user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, grades)
}

// CleanupOrphaned godoc
// @Summary 清理孤立答卷
// @Description 删除所属测验已不存在的答卷
// @Tags 维护
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/cleanup-orphaned-responses [post]
func (c *ResponseController) CleanupOrphaned(ctx *gin.Context) {
	deleted, err := c.ResponseService.CleanupOrphaned()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"message":      "Orphaned responses cleaned up",
		"deletedCount": deleted,
	})
}
