package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	authHandler "github.com/zahidhasann88/workspace-backend/internal/handler/http/auth"
	roomHandler "github.com/zahidhasann88/workspace-backend/internal/handler/http/room"
	userHandler "github.com/zahidhasann88/workspace-backend/internal/handler/http/user"
	workspaceHandler "github.com/zahidhasann88/workspace-backend/internal/handler/http/workspace"
	wsHandler "github.com/zahidhasann88/workspace-backend/internal/handler/ws"
	"github.com/zahidhasann88/workspace-backend/internal/media"
	"github.com/zahidhasann88/workspace-backend/internal/middleware"
	"github.com/zahidhasann88/workspace-backend/internal/repository/postgres"
	redisRepo "github.com/zahidhasann88/workspace-backend/internal/repository/redis"
	authService "github.com/zahidhasann88/workspace-backend/internal/service/auth"
	roomService "github.com/zahidhasann88/workspace-backend/internal/service/room"
	"github.com/zahidhasann88/workspace-backend/internal/service/rtc"
	userService "github.com/zahidhasann88/workspace-backend/internal/service/user"
	workspaceService "github.com/zahidhasann88/workspace-backend/internal/service/workspace"
	"github.com/zahidhasann88/workspace-backend/pkg/config"
	"github.com/zahidhasann88/workspace-backend/pkg/constants"
	"github.com/zahidhasann88/workspace-backend/pkg/database"
	"github.com/zahidhasann88/workspace-backend/pkg/jwt"
	"github.com/zahidhasann88/workspace-backend/pkg/logger"
	"github.com/zahidhasann88/workspace-backend/pkg/metrics"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logger
	if err := logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 3. Setup JWT Manager
	jwtManager := jwt.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// 4. Connect to PostgreSQL
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	log.Println("✅ Connected to PostgreSQL")

	// 5. Connect to Redis
	redisDB, err := database.NewRedisDB(&database.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisDB.Close()

	log.Println("✅ Connected to Redis")

	// 6. Initialize Repositories
	userRepo := postgres.NewUserRepository(db.Pool)
	workspaceRepo := postgres.NewWorkspaceRepository(db.Pool)
	roomRepo := postgres.NewRoomRepository(db.Pool)
	sessionRepo := redisRepo.NewSessionRepository(redisDB.Client)

	// 7. Initialize Services
	authSvc := authService.NewService(userRepo, sessionRepo, jwtManager)
	userSvc := userService.NewService(userRepo)
	workspaceSvc := workspaceService.NewService(workspaceRepo, userRepo)
	roomSvc := roomService.NewService(roomRepo, workspaceRepo)

	// 8. Initialize Metrics
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 9. Initialize Media Coordination
	engine := media.NewInprocEngine(cfg.Media.Workers)
	registry := rtc.NewRegistry()
	sessions := rtc.NewSessionManager(engine)
	rtcSvc := rtc.NewService(registry, sessions, roomRepo, appMetrics)
	defer sessions.CloseAll()

	go rtcSvc.StartReconciler(ctx, constants.ParticipantResyncInterval)

	// 10. Initialize Handlers
	authHdlr := authHandler.NewHandler(authSvc)
	userHdlr := userHandler.NewHandler(userSvc)
	workspaceHdlr := workspaceHandler.NewHandler(workspaceSvc)
	roomHdlr := roomHandler.NewHandler(roomSvc)
	signalingHub := wsHandler.NewSignalingHub(rtcSvc, roomSvc, appMetrics)

	// 11. Setup Gin Router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	// Health check
	router.GET("/health", middleware.HealthCheck(cfg.Server.ServiceName))

	// Metrics endpoint (for Prometheus scraping)
	router.GET("/metrics", middleware.MetricsHandler())

	// Revocation checker
	revocationChecker := middleware.NewRedisRevocationChecker(redisDB.Client)

	// Rate limiting on the auth endpoints; REST endpoints get a request
	// timeout, the signaling endpoint does not (it holds connections open).
	authLimiter := middleware.NewRateLimiter(redisDB.Client, 30, time.Minute)
	httpTimeout := middleware.Timeout(30 * time.Second)

	v1 := router.Group("/v1")
	{
		// Auth routes (public, no authentication required)
		auth := v1.Group("/auth")
		auth.Use(authLimiter.Middleware(), httpTimeout)
		{
			auth.POST("/register", authHdlr.Register)
			auth.POST("/login", authHdlr.Login)
			auth.POST("/refresh", authHdlr.RefreshToken)

			authenticated := auth.Group("")
			authenticated.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
			{
				authenticated.POST("/logout", authHdlr.Logout)
			}
		}

		// User routes (all require authentication)
		users := v1.Group("/users")
		users.Use(middleware.AuthMiddleware(jwtManager, revocationChecker), httpTimeout)
		{
			users.GET("", userHdlr.Search)
			users.GET("/me", userHdlr.GetMe)
			users.PATCH("/me", userHdlr.UpdateMe)
			users.DELETE("/me", userHdlr.DeleteMe)
			users.GET("/:user_id", userHdlr.GetUser)
		}

		// Workspace routes (all require authentication)
		workspaces := v1.Group("/workspaces")
		workspaces.Use(middleware.AuthMiddleware(jwtManager, revocationChecker), httpTimeout)
		{
			workspaces.POST("", workspaceHdlr.Create)
			workspaces.GET("", workspaceHdlr.List)
			workspaces.GET("/:workspace_id", workspaceHdlr.Get)
			workspaces.PATCH("/:workspace_id", workspaceHdlr.Update)
			workspaces.DELETE("/:workspace_id", workspaceHdlr.Delete)
			workspaces.POST("/:workspace_id/members", workspaceHdlr.AddMember)
			workspaces.DELETE("/:workspace_id/members/:user_id", workspaceHdlr.RemoveMember)

			workspaces.POST("/:workspace_id/rooms", roomHdlr.Create)
			workspaces.GET("/:workspace_id/rooms", roomHdlr.List)
		}

		// Room routes (all require authentication)
		rooms := v1.Group("/rooms")
		rooms.Use(middleware.AuthMiddleware(jwtManager, revocationChecker), httpTimeout)
		{
			rooms.GET("/:room_id", roomHdlr.Get)
			rooms.PATCH("/:room_id", roomHdlr.Update)
			rooms.DELETE("/:room_id", roomHdlr.Delete)
			rooms.POST("/:room_id/tags", roomHdlr.AddTag)
			rooms.DELETE("/:room_id/tags/:tag", roomHdlr.RemoveTag)
		}

		// WebSocket endpoint for real-time signaling
		rtcGroup := v1.Group("/rtc")
		rtcGroup.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
		{
			rtcGroup.GET("/ws", signalingHub.ServeWS)
		}
	}

	// 12. Start server in goroutine
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// No read/write timeouts on the server itself: the signaling endpoint
	// holds connections open and enforces its own deadlines per message.
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Workspace Service starting on port %d\n", cfg.Server.Port)
		log.Println("📡 Signaling: /v1/rtc/ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 13. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
