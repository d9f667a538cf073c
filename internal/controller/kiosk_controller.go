package controller

import (
	"net/http"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// KioskController 锁定答题模式
type KioskController struct {
	KioskService *service.KioskService
	Hub          *service.KioskHub
}

func NewKioskController(kioskService *service.KioskService, hub *service.KioskHub) *KioskController {
	return &KioskController{KioskService: kioskService, Hub: hub}
}

// StartSessionRequest 开始锁定答题
// swagger:model StartSessionRequest
type StartSessionRequest struct {
	QuizID string `json:"quizId"` // 分享链接
}

// AnswersRequest 草稿或最终答案
// swagger:model AnswersRequest
type AnswersRequest struct {
	Answers []model.Answer `json:"answers"`
}

// Policy godoc
// @Summary 锁定模式策略
// @Description 桌面客户端据此拦截按键和跳转
// @Tags 锁定模式
// @Produce json
// @Success 200 {object} util.Response{data=service.KioskPolicy}
// @Router /api/kiosk/policy [get]
func (c *KioskController) Policy(ctx *gin.Context) {
	util.Success(ctx, c.KioskService.Policy())
}

// Start godoc
// @Summary 开始锁定答题
// @Description 已有进行中的会话时恢复该会话并返回草稿
// @Tags 锁定模式
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StartSessionRequest true "测验分享链接"
// @Success 201 {object} util.Response{data=service.KioskStartResult} "新会话"
// @Success 200 {object} util.Response{data=service.KioskStartResult} "恢复会话"
// @Failure 404 {object} util.Response "测验不存在或未发布"
// @Failure 409 {object} util.Response "已作答"
// @Router /api/kiosk/sessions [post]
func (c *KioskController) Start(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.KioskService.Start(ctx.Request.Context(), user.UserID, req.QuizID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if result.Resumed {
		util.Success(ctx, result)
		return
	}
	util.Created(ctx, result)
}

// SaveAnswers godoc
// @Summary 保存草稿答案
// @Tags 锁定模式
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param request body AnswersRequest true "当前答案"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "会话不存在"
// @Failure 409 {object} util.Response "会话已结束"
// @Router /api/kiosk/sessions/{id}/answers [put]
func (c *KioskController) SaveAnswers(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req AnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.KioskService.SaveDraft(ctx.Request.Context(), user.UserID, ctx.Param("id"), req.Answers); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"saved": len(req.Answers)})
}

// Blur godoc
// @Summary 上报窗口失焦
// @Description 策略开启自动提交时立即交卷
// @Tags 锁定模式
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response{data=service.BlurResult}
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/kiosk/sessions/{id}/blur [post]
func (c *KioskController) Blur(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	result, err := c.KioskService.Blur(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Submit godoc
// @Summary 锁定模式交卷
// @Tags 锁定模式
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param request body AnswersRequest true "最终答案"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 404 {object} util.Response "会话不存在"
// @Failure 409 {object} util.Response "会话已结束或已作答"
// @Router /api/kiosk/sessions/{id}/submit [post]
func (c *KioskController) Submit(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req AnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.KioskService.Submit(ctx.Request.Context(), user.UserID, ctx.Param("id"), req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Exit godoc
// @Summary 退出锁定模式
// @Description 草稿保留，可重新开始
// @Tags 锁定模式
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response{data=model.KioskSession}
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/kiosk/sessions/{id}/exit [post]
func (c *KioskController) Exit(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	session, err := c.KioskService.Exit(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// ReportViolation godoc
// @Summary 上报被拦截的操作
// @Tags 锁定模式
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param request body service.ViolationReport true "按键或跳转"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "类型无效"
// @Router /api/kiosk/sessions/{id}/violations [post]
func (c *KioskController) ReportViolation(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var report service.ViolationReport
	if err := ctx.ShouldBindJSON(&report); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	blocked, err := c.KioskService.ReportViolation(user.UserID, ctx.Param("id"), report)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"blocked": blocked})
}

// ServeWs godoc
// @Summary 锁定模式 WebSocket
// @Description 推送 KIOSK_STATE、FORCE_SUBMITTED；客户端可发送 WINDOW_BLURRED
// @Tags 锁定模式
// @Security BearerAuth
// @Param token query string false "JWT（浏览器无法设置请求头时使用）"
// @Success 101
// @Router /api/kiosk/ws [get]
func (c *KioskController) ServeWs(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	if !ctx.IsWebsocket() {
		util.Error(ctx, http.StatusBadRequest, "WebSocket upgrade required")
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, user.UserID)
}
