package controller

import (
	"context"
	"net/http"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// HealthController DB 为 nil 表示内存存储模式
type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
	Cfg   *config.Config
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Cfg: cfg}
}

// @Summary 健康检查
// @Description 检查数据库与 Redis 连接
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "依赖不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	components := gin.H{"database": "memory"}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			util.InternalServerError(ctx)
			return
		}
		if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		components["database"] = "up"
	}

	if c.Redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
		components["redis"] = "up"
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}

// @Summary 配置检查
// @Description 仅 debug 模式注册，列出缺失的配置项
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/debug/env [get]
func (c *HealthController) DebugEnv(ctx *gin.Context) {
	missing := c.Cfg.Missing()
	util.Success(ctx, gin.H{
		"mode":    c.Cfg.Server.Mode,
		"ok":      len(missing) == 0,
		"missing": missing,
	})
}
