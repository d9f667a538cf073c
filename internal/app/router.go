package app

import (
	"quizdesk_backend/docs"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/middleware"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/user-role", c.auth.UserRole)
		authGroup.POST("/auth/create-user", c.auth.CreateUser)

		// 学生接口
		a.registerStudentRoutes(authGroup, c)

		// 教师接口
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)

		// 分享链接：作者登录时可预览草稿
		public.GET("/quizzes/:id", middleware.TryAuthMiddleware(cfg), c.quiz.GetByLink)
		public.GET("/student/lessons", c.lesson.ListPublished)
		public.GET("/kiosk/policy", c.kiosk.Policy)

		if cfg.Server.Mode == "debug" {
			public.GET("/debug/env", c.health.DebugEnv)
		}
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/student/lessons/:id", c.lesson.GetPublished)

	student := group.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/responses", c.response.Submit)
		student.GET("/student/quizzes", c.response.StudentQuizzes)
		student.GET("/student/grades", c.response.StudentGrades)
		student.POST("/lessons/:id/analytics/track", c.analytics.Track)

		kiosk := student.Group("/kiosk")
		{
			kiosk.GET("/ws", c.kiosk.ServeWs)
			kiosk.POST("/sessions", c.kiosk.Start)
			kiosk.PUT("/sessions/:id/answers", c.kiosk.SaveAnswers)
			kiosk.POST("/sessions/:id/blur", c.kiosk.Blur)
			kiosk.POST("/sessions/:id/submit", c.kiosk.Submit)
			kiosk.POST("/sessions/:id/exit", c.kiosk.Exit)
			kiosk.POST("/sessions/:id/violations", c.kiosk.ReportViolation)
		}
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		quizzes := teacher.Group("/quizzes")
		{
			quizzes.POST("", c.quiz.Create)
			quizzes.GET("", c.quiz.List)
			quizzes.POST("/ai-generate", c.ai.GenerateQuiz)
			quizzes.PUT("/:id", c.quiz.Update)
			quizzes.DELETE("/:id", c.quiz.Delete)
			quizzes.PATCH("/:id/publish", c.quiz.Publish)
			quizzes.GET("/:id/responses", c.quiz.Responses)
		}

		teacher.PUT("/responses/:id/grade", c.response.Grade)

		lessons := teacher.Group("/lessons")
		{
			lessons.POST("", c.lesson.Create)
			lessons.GET("", c.lesson.List)
			lessons.POST("/ai-generate", c.ai.GenerateLesson)
			lessons.GET("/analytics/overview", c.analytics.Overview)
			lessons.PUT("/:id", c.lesson.Update)
			lessons.DELETE("/:id", c.lesson.Delete)
			lessons.GET("/:id/analytics", c.analytics.LessonReport)
			lessons.POST("/:id/attachments", c.lesson.UploadAttachment)
			lessons.DELETE("/:id/attachments/:attachmentId", c.lesson.DeleteAttachment)
		}

		teacher.POST("/admin/cleanup-orphaned-responses", c.response.CleanupOrphaned)
	}
}
