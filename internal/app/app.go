package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/controller"
	"quizdesk_backend/internal/repository"
	"quizdesk_backend/internal/repository/inmem"
	"quizdesk_backend/internal/service"
	"quizdesk_backend/pkg/configwatcher"
	"quizdesk_backend/pkg/database"
	"quizdesk_backend/pkg/logger"
	"quizdesk_backend/pkg/monitoring"
	"quizdesk_backend/pkg/security"
	"quizdesk_backend/pkg/tracing"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	orphanCleanupInterval = time.Hour
	kioskExpiryInterval   = time.Minute
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
	cfgMu           sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	user      repository.UserRepo
	quiz      repository.QuizRepo
	response  repository.ResponseRepo
	lesson    repository.LessonRepo
	analytics repository.LessonAnalyticsRepo
	kiosk     repository.KioskSessionRepo
}

type services struct {
	auth      *service.AuthService
	storage   *service.StorageService
	quiz      *service.QuizService
	response  *service.ResponseService
	lesson    *service.LessonService
	analytics *service.LessonAnalyticsService
	ai        *service.AIService
	kiosk     *service.KioskService
	kioskHub  *service.KioskHub
}

type controllers struct {
	auth      *controller.AuthController
	quiz      *controller.QuizController
	response  *controller.ResponseController
	lesson    *controller.LessonController
	analytics *controller.AnalyticsController
	ai        *controller.AIController
	kiosk     *controller.KioskController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig 配置文件变更后依次执行回调
func (a *App) applyConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.cfgMu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

// initRepositories db 为 nil 时使用内存存储
func (a *App) initRepositories(db *gorm.DB) *repositories {
	if db == nil {
		mem := inmem.NewDB()
		return &repositories{
			user:      inmem.NewUserRepository(mem),
			quiz:      inmem.NewQuizRepository(mem),
			response:  inmem.NewResponseRepository(mem),
			lesson:    inmem.NewLessonRepository(mem),
			analytics: inmem.NewLessonAnalyticsRepository(mem),
			kiosk:     inmem.NewKioskSessionRepository(mem),
		}
	}
	return &repositories{
		user:      repository.NewUserRepository(db),
		quiz:      repository.NewQuizRepository(db),
		response:  repository.NewResponseRepository(db),
		lesson:    repository.NewLessonRepository(db),
		analytics: repository.NewLessonAnalyticsRepository(db),
		kiosk:     repository.NewKioskSessionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.quiz = service.NewQuizService(repos.quiz, repos.response, repos.user, service.NewQuizCache(rdb))
	s.response = service.NewResponseService(repos.response, repos.quiz, repos.user, s.quiz, service.NewMailer(cfg.Mail), cfg.Mail.AppURL)
	s.lesson = service.NewLessonService(repos.lesson, repos.user, s.storage)
	s.analytics = service.NewLessonAnalyticsService(repos.lesson, repos.analytics, repos.user)
	s.ai = service.NewAIService(cfg.AI)

	s.kioskHub = service.NewKioskHub(rdb, cfg.CORS.AllowedOrigins)
	drafts := service.NewDraftStore(rdb, time.Duration(cfg.Kiosk.DraftTTLHours)*time.Hour)
	s.kiosk = service.NewKioskService(repos.kiosk, s.quiz, s.response, drafts, s.kioskHub, cfg.Kiosk)
	s.kioskHub.SetBlurHandler(s.kiosk.HandleBlurEvent)
	go s.kioskHub.Run()

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		quiz:      controller.NewQuizController(s.quiz),
		response:  controller.NewResponseController(s.response),
		lesson:    controller.NewLessonController(s.lesson, cfg.Storage.MaxUploadMB),
		analytics: controller.NewAnalyticsController(s.analytics),
		ai:        controller.NewAIController(s.ai),
		kiosk:     controller.NewKioskController(s.kiosk, s.kioskHub),
		health:    controller.NewHealthController(db, rdb, cfg),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	limiter := security.NewIPRateLimiter(a.ctx, cfg.RateLimit.MaxRequests, rateWindow(cfg))
	router.Use(limiter.Middleware())
	a.RegisterConfigCallback(func(cfg *config.Config) {
		limiter.Update(cfg.RateLimit.MaxRequests, rateWindow(cfg))
	})

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func rateWindow(cfg *config.Config) time.Duration {
	return time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
}

// runEvery 按固定间隔执行任务，直到 ctx 结束
func (a *App) runEvery(name string, interval time.Duration, task func(ctx context.Context) error) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				if err := task(a.ctx); err != nil {
					logger.Log.Error("background task failed", zap.String("task", name), zap.Error(err))
				}
			}
		}
	}()
}

func (a *App) startBackgroundTasks(s *services) {
	a.runEvery("cleanup-orphaned-responses", orphanCleanupInterval, func(ctx context.Context) error {
		deleted, err := s.response.CleanupOrphaned()
		if err == nil && deleted > 0 {
			logger.Log.Info("Orphaned responses removed", zap.Int64("count", deleted))
		}
		return err
	})

	a.runEvery("expire-kiosk-sessions", kioskExpiryInterval, func(ctx context.Context) error {
		_, err := s.kiosk.ExpireStale(ctx)
		return err
	})
}

// registerReloaders 热更新：AI 客户端、锁定模式策略
func (a *App) registerReloaders(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.ai.Reload(cfg.AI)
		s.kiosk.Reload(cfg.Kiosk)
		logger.Log.Info("AI and kiosk settings reloaded",
			zap.String("aiProvider", cfg.AI.Provider),
			zap.Bool("autoSubmitOnBlur", cfg.Kiosk.AutoSubmitOnBlur))
	})
}

// WatchConfig 监听配置目录，变更时执行已注册的回调
func (a *App) WatchConfig(configDir string) {
	go func() {
		if err := configwatcher.WatchConfig(a.ctx, configDir, a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
	}()
}

// newApp 组装依赖，不做任何外部连接；db、rdb 可以为 nil
func newApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		ctx:    ctx,
		cancel: cancel,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, cfg, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	// 本地存储(含远端不可用时的回退)由本服务提供下载
	if _, ok := services.storage.Provider.(*service.LocalStorageProvider); ok {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.registerReloaders(services)
	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	var db *gorm.DB
	if cfg.Database.Driver == "memory" {
		logger.Log.Warn("Using in-memory storage, data is lost on restart")
	} else {
		var err error
		db, err = database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}

		// release 模式默认不迁移，需显式 -migrate
		if cfg.ForceMigrate || cfg.Server.Mode != "release" {
			if err := database.Migrate(db); err != nil {
				logger.Log.Fatal("Database migration failed", zap.Error(err))
			}
		}
	}

	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := newApp(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.startBackgroundTasks(app.services)
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	logger.Log.Info("Server exiting")
}

// Shutdown 停止后台任务并关闭 WebSocket 连接
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil && a.services.kioskHub != nil {
		a.services.kioskHub.Stop()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
}

// requestLogger 用 zap 记录访问日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Log.Warn("request", fields...)
			return
		}
		logger.Log.Debug("request", fields...)
	}
}
