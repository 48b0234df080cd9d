// Package main runs the site API: webinars, streaming setup, form submissions and the
// WebSocket status feed, with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Israel70964/YadnusConsultant2/config"
	"github.com/Israel70964/YadnusConsultant2/internal/auth"
	"github.com/Israel70964/YadnusConsultant2/internal/emaillogs"
	"github.com/Israel70964/YadnusConsultant2/internal/metrics"
	"github.com/Israel70964/YadnusConsultant2/internal/middleware"
	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/internal/notify"
	"github.com/Israel70964/YadnusConsultant2/internal/platform/youtube"
	"github.com/Israel70964/YadnusConsultant2/internal/platform/zoom"
	"github.com/Israel70964/YadnusConsultant2/internal/realtime"
	"github.com/Israel70964/YadnusConsultant2/internal/streaming"
	"github.com/Israel70964/YadnusConsultant2/internal/streams"
	"github.com/Israel70964/YadnusConsultant2/internal/submissions"
	"github.com/Israel70964/YadnusConsultant2/internal/webinars"
	"github.com/Israel70964/YadnusConsultant2/pkg/database"
	"github.com/Israel70964/YadnusConsultant2/pkg/queue"
	"github.com/Israel70964/YadnusConsultant2/pkg/redis"
	"github.com/Israel70964/YadnusConsultant2/pkg/response"
	"github.com/Israel70964/YadnusConsultant2/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// A nil interface keeps project inquiries with files disabled when no bucket is configured.
	var files submissions.Attachments
	presignExpiry := time.Duration(cfg.AWS.PresignExpireMinutes) * time.Minute
	if cfg.AWS.Enabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
			Endpoint:             cfg.AWS.Endpoint,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		files = s3Client
		presignExpiry = s3Client.PresignExpire()
	} else {
		logger.Warn("AWS_S3_ATTACHMENTS_BUCKET not set, project inquiry attachments disabled")
	}

	reg := metrics.New()
	jobQueue := queue.NewQueue(rdb.Client, logger)
	bus := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, bus, bus)
	defer hub.Close()

	userRepo := auth.NewRepository(pool)
	webinarRepo := webinars.NewRepository(pool)
	submissionRepo := submissions.NewRepository(pool)
	emailLogRepo := emaillogs.NewRepository(pool)
	sessionRepo := streams.NewRepository(pool)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	notifier := notify.New(emailLogRepo, jobQueue, notify.Config{AdminEmail: cfg.Email.AdminEmail}, logger)
	if cfg.Email.AdminEmail == "" {
		logger.Warn("ADMIN_EMAIL not set, admin notifications are skipped")
	}

	ytClient := youtube.New(youtube.Config{
		ClientID:     cfg.YouTube.ClientID,
		ClientSecret: cfg.YouTube.ClientSecret,
		RedirectURI:  cfg.YouTube.RedirectURI,
	}, logger)
	zoomClient := zoom.New(zoom.Config{
		ClientID:     cfg.Zoom.ClientID,
		ClientSecret: cfg.Zoom.ClientSecret,
		AccountID:    cfg.Zoom.AccountID,
		CacheToken:   cfg.Zoom.CacheToken,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}, logger)
	if !cfg.Zoom.Configured() {
		logger.Warn("Zoom credentials incomplete, setup-zoom will fail")
	}
	streamSvc := streaming.NewService(ytClient, zoomClient, logger, reg.Platform)

	authHandler := auth.NewHandler(userRepo, jwtService, logger)
	webinarHandler := webinars.NewHandler(webinarRepo, logger)
	streamingHandler := streaming.NewHandler(streamSvc, webinarRepo, sessionRepo, hub, logger)
	sessionsHandler := streams.NewHandler(sessionRepo, logger)
	submissionHandler := submissions.NewHandler(submissionRepo, webinarRepo, files, notifier, presignExpiry, logger)
	submissionHandler.SetLimits(int64(cfg.Uploads.MaxFileSizeMB)<<20, cfg.Uploads.MaxFiles)
	emailLogsHandler := emaillogs.NewHandler(emailLogRepo, jobQueue, logger)

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, "/health", "/metrics"))
	router.Use(reg.HTTP.Middleware())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Check(ctx); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(reg.Handler()))
	router.GET("/ws/webinars/:id", realtime.ServeWs(hub, webinarRepo, logger))

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)

		api.GET("/webinars", webinarHandler.List)
		api.GET("/webinars/upcoming", webinarHandler.Upcoming)
		api.GET("/webinars/past", webinarHandler.Past)
		api.GET("/webinars/:id", webinarHandler.GetByID)
		api.GET("/webinars/:id/audience-count", webinarHandler.AudienceCount(hub))

		api.POST("/contact", submissionHandler.Contact)
		api.POST("/webinar-signup", submissionHandler.WebinarSignup)
		api.POST("/project-inquiry", submissionHandler.ProjectInquiry)
	}

	admin := api.Group("", middleware.JWT(jwtService), middleware.RequireRole(string(models.RoleAdmin)))
	{
		admin.GET("/auth/user", authHandler.CurrentUser(middleware.ContextUserID))
		admin.GET("/admin/users", authHandler.List)

		admin.POST("/webinars", webinarHandler.Create)
		admin.PUT("/webinars/:id", webinarHandler.Update)
		admin.DELETE("/webinars/:id", webinarHandler.Delete)
		admin.GET("/admin/webinars/:id", webinarHandler.AdminGetByID)
		admin.GET("/admin/webinars/:id/sessions", sessionsHandler.List)
		admin.GET("/admin/webinars/:id/email-logs", emailLogsHandler.ListByWebinar)

		admin.POST("/webinars/:id/setup-youtube", streamingHandler.SetupYouTube)
		admin.POST("/webinars/:id/setup-zoom", streamingHandler.SetupZoom)
		admin.POST("/webinars/:id/start-stream", streamingHandler.Start)
		admin.POST("/webinars/:id/end-stream", streamingHandler.End)

		admin.GET("/admin/submissions", submissionHandler.List)
		admin.DELETE("/admin/submissions/:id", submissionHandler.Delete)
		admin.GET("/admin/submissions/:id/attachments", submissionHandler.AttachmentLinks)

		admin.GET("/admin/email-logs", emailLogsHandler.List)
		admin.POST("/admin/email-logs/:id/resend", emailLogsHandler.Resend)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
