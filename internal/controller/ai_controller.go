package controller

import (
	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AIController struct {
	AIService *service.AIService
}

func NewAIController(aiService *service.AIService) *AIController {
	return &AIController{AIService: aiService}
}

// GenerateQuiz godoc
// @Summary AI 生成测验
// @Description 返回草稿，不会保存
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.GenerateRequest true "生成要求"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "缺少 prompt"
// @Failure 500 {object} util.Response "生成失败"
// @Router /api/quizzes/ai-generate [post]
func (c *AIController) GenerateQuiz(ctx *gin.Context) {
	var req service.GenerateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.AIService.GenerateQuiz(ctx.Request.Context(), req.Prompt)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"quiz": quiz})
}

// GenerateLesson godoc
// @Summary AI 生成课程
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.GenerateRequest true "课程主题"
// @Success 200 {object} util.Response{data=service.GeneratedLesson}
// @Failure 400 {object} util.Response "缺少 prompt"
// @Failure 500 {object} util.Response "生成失败"
// @Router /api/lessons/ai-generate [post]
func (c *AIController) GenerateLesson(ctx *gin.Context) {
	var req service.GenerateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.AIService.GenerateLesson(ctx.Request.Context(), req.Prompt)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}
