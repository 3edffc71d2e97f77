package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	_ "civreg/docs"
	"civreg/internal/analytics"
	"civreg/internal/caching"
	"civreg/internal/common"
	"civreg/internal/config"
	"civreg/internal/handlers"
	"civreg/internal/jobs/background"
	"civreg/internal/middleware"
	"civreg/internal/repositories"
	"civreg/internal/services"
	"civreg/pkg/database"
	"civreg/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogFormat, "civreg")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JWT.Generated {
		zapLogger.Warn("JWT secrets not configured, using generated secrets; tokens will not survive a restart")
	}

	// Database connection
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	// Revocation store: redis when configured, otherwise in-process.
	var (
		revocations caching.RevocationStore
		sweeper     background.Sweeper
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = caching.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		revocations = caching.NewRedisRevocationStore(redisClient)
	} else {
		memory := caching.NewMemoryRevocationStore()
		revocations = memory
		sweeper = memory
		zapLogger.Info("REDIS_ADDR not set, revoked tokens are kept in memory")
	}
	defer func() { _ = revocations.Close() }()

	// Mailer
	var mailer services.Mailer
	if cfg.SMTP.Host != "" {
		mailer, err = services.NewSMTPMailer(services.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return err
		}
	} else {
		mailer = services.NewLogMailer(zapLogger)
		zapLogger.Info("SMTP_HOST not set, notifications are only logged")
	}

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	birthRepo := repositories.NewBirthDeclarationRepo(pool)
	deathRepo := repositories.NewDeathDeclarationRepo(pool)
	auditLogRepo := repositories.NewAuditLogsRepo(pool)

	// Services
	auditSvc := services.NewAuditLogsService(auditLogRepo, zapLogger)
	notifier := services.NewNotificationService(mailer, zapLogger)
	tokenSvc := services.NewTokenService(userRepo, revocations, services.TokenConfig{
		AccessSecret:    cfg.JWT.AccessSecret,
		RefreshSecret:   cfg.JWT.RefreshSecret,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		RevocationTTL:   cfg.JWT.RevocationTTL,
	})
	authSvc := services.NewAuthService(userRepo, tokenSvc, notifier, cfg.ResetURLBase, zapLogger)
	userSvc := services.NewUserService(userRepo, auditSvc, zapLogger)
	validationSvc := services.NewValidationService(userRepo, birthRepo, notifier, auditSvc, zapLogger)
	declarationSvc := services.NewDeclarationService(userRepo, birthRepo, deathRepo, notifier, auditSvc, zapLogger)
	statsSvc := analytics.NewStatisticsService(userRepo, birthRepo, deathRepo, zapLogger)

	if _, err := userSvc.BootstrapSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
		zapLogger.Error("failed to bootstrap superadmin", zap.Error(err))
	}

	// Optional statistics archive
	var archive services.ArchiveService
	if cfg.MinIO.Endpoint != "" {
		client, err := services.NewMinioClient(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.UseSSL)
		if err != nil {
			return err
		}
		archive = services.NewArchiveService(client, cfg.MinIO.Bucket)
		if err := archive.EnsureBucket(ctx); err != nil {
			zapLogger.Warn("statistics archive unavailable", zap.Error(err))
			archive = nil
		}
	}

	// Background jobs
	deps := background.Dependencies{
		ResetTokens: userRepo,
		Statistics:  statsSvc,
		Logger:      zapLogger,
	}
	if sweeper != nil {
		deps.Revocations = sweeper
	}
	if archive != nil {
		deps.Archive = archive
	}
	scheduler, err := background.NewJobScheduler(deps)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			zapLogger.Warn("failed to stop scheduler", zap.Error(err))
		}
	}()

	e := newServer(cfg, zapLogger)

	// Health endpoints (no auth required)
	checks := map[string]handlers.Checker{
		"database": pool.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if archive != nil {
		checks["storage"] = archive.Ping
	}
	health := handlers.NewHealthHandlers(version, checks, scheduler.JobNames)
	e.GET("/health", health.LivenessCheck)
	e.GET("/health/ready", health.ReadinessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	routes := &handlers.Routes{
		Auth:         handlers.NewAuthHandlers(authSvc),
		Users:        handlers.NewUserHandlers(userSvc),
		Declarations: handlers.NewDeclarationHandlers(declarationSvc, validationSvc),
		Stats:        handlers.NewStatsHandlers(statsSvc),
		AuditLogs:    handlers.NewAuditLogsHandlers(auditSvc),
		Authenticate: middleware.JWTMiddleware(tokenSvc, userRepo),
		RBAC:         middleware.NewRBACMiddleware(services.NewRBACService()),
	}
	routes.Register(e.Group("/api"))

	return serve(ctx, e, cfg.Port, pool, zapLogger)
}

func newServer(cfg *config.Config, zapLogger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = common.NewHTTPErrorHandler(zapLogger)

	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zapLogger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.VersionHeader(version))
	return e
}

func serve(ctx context.Context, e *echo.Echo, port string, pool *pgxpool.Pool, zapLogger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("server starting", zap.String("version", version), zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down", zap.Int32("open_connections", pool.Stat().TotalConns()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
