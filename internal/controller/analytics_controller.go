package controller

import (
	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.LessonAnalyticsService
}

func NewAnalyticsController(analyticsService *service.LessonAnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// @Summary 记录课程浏览
// @Description 学生浏览已发布课程时上报停留时长与是否学完
// @Tags 分析
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param request body service.TrackRequest false "停留时长（秒）与完成状态"
// @Success 200 {object} util.Response{data=model.LessonAnalytics}
// @Failure 404 {object} util.Response "课程不存在或未发布"
// @Router /api/lessons/{id}/analytics/track [post]
func (c *AnalyticsController) Track(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.TrackRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	analytics, err := c.AnalyticsService.Track(user.UserID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, analytics)
}

// @Summary 单个课程的浏览统计
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.LessonAnalyticsReport}
// @Failure 404 {object} util.Response "课程不存在或无权限"
// @Router /api/lessons/{id}/analytics [get]
func (c *AnalyticsController) LessonReport(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	report, err := c.AnalyticsService.LessonReport(user.UserID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 课程统计概览
// @Description 当前教师所有课程的汇总与最受欢迎的 5 个课程
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.AnalyticsOverview}
// @Router /api/lessons/analytics/overview [get]
func (c *AnalyticsController) Overview(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	overview, err := c.AnalyticsService.Overview(user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}
