package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reflection_sync_backend/internal/config"
	"reflection_sync_backend/internal/controller"
	"reflection_sync_backend/internal/repository"
	"reflection_sync_backend/internal/service"
	"reflection_sync_backend/pkg/database"
	"reflection_sync_backend/pkg/logger"
	"reflection_sync_backend/pkg/monitoring"
	"reflection_sync_backend/pkg/security"
	"reflection_sync_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	snapshot  *repository.SnapshotRepository
	syncQueue *repository.SyncQueueRepository
	classroom *repository.ClassroomRepository
}

type services struct {
	sync      *service.SyncService
	classroom *service.ClassroomService
	ai        *service.AIService
}

type controllers struct {
	classroom  *controller.ClassroomController
	goal       *controller.GoalController
	user       *controller.UserController
	reflection *controller.ReflectionController
	ai         *controller.AIController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		snapshot:  repository.NewSnapshotRepository(db),
		syncQueue: repository.NewSyncQueueRepository(db),
		classroom: repository.NewClassroomRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	remote, err := service.NewRemoteStore(&cfg.Remote)
	if err != nil {
		return nil, err
	}

	return &services{
		sync:      service.NewSyncService(remote, repos.snapshot, repos.syncQueue, cfg.Sync.Interval()),
		classroom: service.NewClassroomService(repos.classroom),
		ai:        service.NewAIService(cfg.AI, rdb),
	}, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		classroom:  controller.NewClassroomController(s.sync, s.classroom),
		goal:       controller.NewGoalController(s.sync),
		user:       controller.NewUserController(s.sync),
		reflection: controller.NewReflectionController(s.sync),
		ai:         controller.NewAIController(s.ai),
		health:     controller.NewHealthController(),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// OnConfigReload 配置热更新：同步周期和AI配置不重启生效
func (a *App) OnConfigReload(cfg *config.Config) {
	a.services.sync.UpdateInterval(cfg.Sync.Interval())
	a.services.ai.UpdateConfig(cfg.AI)
	logger.Log.Info("Configuration reloaded")
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis 只给 AI 指导语缓存用，连不上降级为无缓存
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, AI guidance cache disabled", zap.Error(err))
			rdb = nil
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	svcs, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
		log.Fatalf("Failed to initialize services: %v", err)
	}
	app.services = svcs
	ctrls := app.initControllers(svcs)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("reflection-sync", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, ctrls)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 停掉所有班级的同步定时器
	a.services.sync.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
