// Package server contains the HTTP handlers and routing for the blog.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "blogsite/docs" // swagger docs
	"blogsite/internal/auth"
	"blogsite/internal/config"
	"blogsite/internal/media"
	"blogsite/internal/middleware"
	"blogsite/internal/models"
	"blogsite/internal/observability"
	"blogsite/internal/repository"
	"blogsite/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
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
	logger         *slog.Logger
	audit          *observability.AuditLogger
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *auth.SessionManager
	media          *media.Store
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	postService    *service.PostService
	userService    *service.UserService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap runtime establishes DB and Redis; tests pass their own.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger *slog.Logger) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	audit := observability.NewAuditLogger(logger)
	store := media.NewStore(cfg.MediaRoot)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	avatarMaxPx := cfg.AvatarMaxPx
	if avatarMaxPx <= 0 {
		avatarMaxPx = media.DefaultAvatarMaxPx
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		logger:         logger,
		audit:          audit,
		promMiddleware: middleware.InitMetrics("blogsite"),
		sessions:       auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL(), redisClient),
		media:          store,
		userRepo:       userRepo,
		postRepo:       postRepo,
	}
	s.postService = service.NewPostService(postRepo, userRepo, store, audit, cfg.PostsPerPage)
	s.userService = service.NewUserService(userRepo, store, audit, avatarMaxPx)

	return s, nil
}

// App returns the configured Fiber application, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "blogsite",
		BodyLimit:    s.config.MaxUploadBytes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Session loading runs before the context middleware so user_id reaches the logs.
	app.Use(s.SessionLoader())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger(s.logger))

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000,http://127.0.0.1:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.rateLimitBypassed()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes registers every page route on app. Routing is not strict, so
// each path is also served with a trailing slash.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/docs/*", swagger.HandlerDefault)

	// Blog
	app.Get("/", s.Home)
	app.Get("/about", s.LoginRequired(), s.About)
	app.Get("/search", s.LoginRequired(), s.SearchPosts)
	app.Get("/posts", s.LoginRequired(), s.ListPosts)
	app.Get("/user/:username", s.LoginRequired(), s.ListUserPosts)

	posts := app.Group("/post", s.LoginRequired())
	// /new is registered before /:id so it is never taken for a post id.
	posts.Get("/new", s.NewPostForm)
	posts.Post("/new", s.CreatePost)
	posts.Get("/:id/update", s.UpdatePostForm)
	posts.Post("/:id/update", s.UpdatePost)
	posts.Get("/:id/delete", s.DeletePostConfirm)
	posts.Post("/:id/delete", s.DeletePost)
	posts.Delete("/:id/delete", s.DeletePost)
	posts.Get("/:id", s.GetPost)

	// Accounts
	app.Get("/register", s.RegisterForm)
	app.Post("/register", s.rateLimit(5, 10*time.Minute, "register"), s.Register)
	app.Get("/login", s.LoginForm)
	app.Post("/login", s.rateLimit(10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)
	app.Post("/logout", s.Logout)
	app.Get("/profile", s.LoginRequired(), s.ProfileForm)
	app.Post("/profile", s.LoginRequired(), s.UpdateProfile)

	app.Get("/media/*", s.LoginRequired(), s.ServeMedia)

	admin := app.Group("/admin", s.LoginRequired(), s.SuperuserRequired())
	admin.Get("/metrics", monitor.New(monitor.Config{
		Title: "blogsite metrics",
	}))
}

// rateLimitBypassed reports whether throttling is off for local and test runs.
func (s *Server) rateLimitBypassed() bool {
	switch s.config.Env {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

func (s *Server) rateLimit(limit int, window time.Duration, name string) fiber.Handler {
	if s.rateLimitBypassed() {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(s.redis, limit, window, name)
}

// ErrorHandler renders errors that escape a handler.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return models.RespondWithError(c, appErr.Status(), appErr)
	}

	s.logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
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

	// A missing Redis degrades readiness but does not fail it.
	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	s.logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			s.logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			s.logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			s.logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
