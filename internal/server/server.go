// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "podium/docs" // swagger docs
	"podium/internal/auth"
	"podium/internal/bootstrap"
	"podium/internal/cache"
	"podium/internal/config"
	"podium/internal/database"
	"podium/internal/mail"
	"podium/internal/media"
	"podium/internal/middleware"
	"podium/internal/models"
	"podium/internal/notifications"
	"podium/internal/relationship"
	"podium/internal/repository"
	"podium/internal/service"
	"podium/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	limiter        *middleware.RateLimiter
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens      *auth.TokenService
	guard       *auth.SessionGuard
	revocations auth.RevocationStore

	userRepo    repository.UserRepository
	podcastRepo repository.PodcastRepository
	commentRepo repository.CommentRepository
	files       storage.FileStore

	notifier *notifications.Notifier
	hub      *notifications.Hub

	authService         *service.AuthService
	accountService      *service.AccountService
	profileService      *service.ProfileService
	podcastService      *service.PodcastService
	commentService      *service.CommentService
	relationshipService *service.RelationshipService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// redisClient is nil when Redis is unreachable; cache, revocation and notifications degrade to no-ops
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedPreset: cfg.DevSeedPreset})
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret,
		auth.WithSessionTTL(cfg.SessionTokenTTL),
		auth.WithResetTTL(cfg.ResetTokenTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	files, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}

	mailer, err := mail.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}

	revocations := auth.NewRedisRevocationStore(redisClient)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("podium-api"),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
		tokens:         tokens,
		guard:          auth.NewSessionGuard(tokens, revocations),
		revocations:    revocations,
		userRepo:       repository.NewUserRepository(db, cache.New(redisClient)),
		podcastRepo:    repository.NewPodcastRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		files:          files,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}

	thumbs := media.NewThumbnailer(cfg.ProfileImageSize, cfg.ProfileImageFormat)

	server.authService = service.NewAuthService(server.userRepo, tokens, auth.NewCredentialStore(), revocations, mailer)
	server.accountService = service.NewAccountService(server.userRepo, server.podcastRepo, files)
	server.profileService = service.NewProfileService(server.userRepo, server.podcastRepo, files, thumbs)
	server.podcastService = service.NewPodcastService(server.podcastRepo, files, cfg.PodcastMaxUploadMB)
	server.commentService = service.NewCommentService(server.commentRepo, server.podcastRepo, server.notifier)
	server.relationshipService = service.NewRelationshipService(
		relationship.NewFollowToggle(repository.NewFollowStore(db)),
		relationship.NewLikeToggle(repository.NewLikeStore(db)),
		server.podcastRepo,
		server.notifier,
	)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Audio and profile pictures are embedded by the web client from another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Access-Token, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Podium Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public account routes
	api.Post("/register", s.limiter.Limit(5, 10*time.Minute, "register"), s.Register)
	api.Post("/login", s.limiter.Limit(10, 5*time.Minute, "login"), s.Login)
	api.Post("/forgot-password", s.limiter.Limit(3, 15*time.Minute, "forgot_password"), s.ForgotPassword)
	api.Get("/reset-password/:token", s.CheckResetToken)
	api.Post("/reset-password/:token", s.limiter.Limit(5, 15*time.Minute, "reset_password"), s.ResetPassword)
	api.Get("/profile-picture/:username", s.GetProfilePicture)

	// WebSocket notifications; browsers cannot set headers on the upgrade request
	api.Get("/ws", s.websocketToken(), s.RequireSession(), s.WebsocketHandler())

	// Every route registered below requires a verified session.
	protected := api.Group("", s.RequireSession())

	protected.Post("/logout", s.Logout)
	protected.Get("/dashboard", s.GetDashboard)

	protected.Get("/account", s.GetAccount)
	protected.Post("/account", s.UpdateAccount)
	protected.Post("/change-password", s.ChangePassword)
	protected.Post("/deactivate-account", s.DeactivateAccount)
	protected.Post("/delete-account", s.DeleteAccount)

	protected.Post("/update-profile-picture", s.UpdateProfilePicture)
	protected.Get("/user/:username", s.GetUserProfile)

	protected.Post("/upload-podcast", s.UploadPodcast)
	protected.Get("/listen/:id", s.GetPodcast)
	protected.Get("/podcast-file/:id", s.StreamPodcastFile)
	protected.Post("/edit-podcast/:id", s.EditPodcast)
	protected.Post("/delete-podcast/:id", s.DeletePodcast)

	protected.Post("/comment/:podcastId", s.CreateComment)
	protected.Get("/comments/:podcastId", s.GetComments)
	protected.Post("/delete-comment/:commentId", s.DeleteComment)

	// Generic /:action routes must be last
	protected.Post("/:action/user", s.ToggleFollow)
	protected.Post("/:action/podcast", s.ToggleLike)
}

// RequireSession returns the session guard middleware. Requests whose token
// does not verify to an active user never reach the handler.
func (s *Server) RequireSession() fiber.Handler {
	return s.guard.Middleware(func(ctx context.Context, userID string) (*models.User, error) {
		user, err := s.userRepo.GetByID(ctx, userID)
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, nil
		}
		return user, err
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it sessions cannot be revoked and
	// notifications are not delivered, but the API still serves.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"storage":  s.files.Backend(),
		},
		"time": time.Now(),
	})
}

// NewApp returns a Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Podium API",
		// multipart audio uploads plus form overhead
		BodyLimit:    int(s.podcastService.MaxUploadBytes()) + 1<<20,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return models.RespondWithError(c, fe.Code, fe)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the subscriber goroutine
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
