// Package server contains the HTTP handlers and routing for pages and the JSON API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "photoshare/docs" // swagger docs
	"photoshare/internal/config"
	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/repository"
	"photoshare/internal/service"
	"photoshare/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
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
	blobs          storage.BlobStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	jobs           *service.JobRunner

	authService      *service.AuthService
	resetService     *service.PasswordResetService
	photoService     *service.PhotoService
	commentService   *service.CommentService
	categoryService  *service.CategoryService
	userService      *service.UserService
	reconcileService *service.Reconciler
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; blobs and mailer are required.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs storage.BlobStore, mailer service.Mailer) (*Server, error) {
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if mailer == nil {
		mailer = service.LogMailer{}
	}
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db, redisClient)
	resetRepo := repository.NewPasswordResetRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		blobs:          blobs,
		promMiddleware: middleware.InitMetrics("photoshare"),
	}

	maxUpload := cfg.UploadMaxBytes()
	server.categoryService = service.NewCategoryService(categoryRepo)
	server.authService = service.NewAuthService(userRepo, redisClient, cfg.JWTSecret, cfg.TokenTTL())
	server.resetService = service.NewPasswordResetService(userRepo, resetRepo, mailer, cfg.BaseURL, cfg.ResetTokenTTL())
	server.photoService = service.NewPhotoService(photoRepo, server.categoryService, blobs, maxUpload)
	server.commentService = service.NewCommentService(commentRepo)
	server.userService = service.NewUserService(userRepo, photoRepo, commentRepo, blobs, maxUpload)
	server.reconcileService = service.NewReconciler(repository.NewMaintenanceRepository(db), photoRepo, server.categoryService, blobs)
	server.jobs = service.NewJobRunner(server.resetService, server.reconcileService, cfg.ResetSweepInterval, cfg.ReconcileInterval)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep their headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))

	app.Use(middleware.FlashMiddleware())
	app.Use(middleware.AttachIdentity(s.authService))
}

// SetupRoutes registers every route twice: as a page route and under /api.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	s.registerRoutes(app)
	s.registerRoutes(api)
}

func (s *Server) registerRoutes(r fiber.Router) {
	r.Get("/", s.Gallery)
	r.Get("/gallery", s.Gallery)
	r.Get("/categories", s.ListCategories)
	r.Get("/category/:category", s.CategoryPhotos)

	auth := r.Group("/auth")
	auth.Get("/register", s.RegisterPage)
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Get("/login", s.LoginPage)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/logout", s.Logout)
	auth.Post("/logout", s.Logout)
	auth.Get("/forgot-password", s.ForgotPasswordPage)
	// sends mail: a failing limiter blocks rather than passes
	auth.Post("/forgot-password", middleware.RateLimitWithPolicy(s.redis, 3, 15*time.Minute, middleware.FailClosed, "forgot_password"), s.ForgotPassword)
	auth.Get("/reset-password", s.ResetPasswordPage)
	auth.Post("/reset-password", s.ResetPassword)

	// Public media
	r.Get("/images/:filename", s.ServeImage)
	r.Get("/profile/profile-photo/:filename", s.ServeImage)
	r.Get("/photos/:id/image", s.PhotoImage)
	r.Get("/photos/:id", s.GetPhoto)

	// Per-route guards: a prefix-less group would register a catch-all Use.
	authed := middleware.RequireAuth()
	admin := middleware.RequireAdmin()

	r.Get("/profile", authed, s.MyProfile)
	r.Post("/profile/update-bio", authed, s.UpdateBio)
	r.Post("/profile/profile-photo", authed, s.UpdateProfilePhoto)
	r.Get("/profile/upload-photo", authed, s.UploadPage)
	r.Post("/profile/upload-photo", authed, middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload_photo"), s.UploadPhoto)
	r.Get("/profile/edit-photo/:id", authed, s.EditPhotoPage)
	r.Patch("/profile/photo/:id", authed, s.EditPhoto)
	r.Post("/profile/photo/:id", authed, s.EditPhoto)

	r.Get("/user/:id", authed, s.UserProfile)

	r.Post("/photos/:id/like", authed, s.ToggleLike)
	r.Post("/photos/:id/comments", authed, middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	r.Post("/photos/:id/delete", authed, s.DeletePhoto)
	r.Delete("/photos/:id", authed, s.DeletePhoto)

	r.Post("/comments/:id/delete", authed, s.DeleteComment)
	r.Delete("/comments/:id", authed, s.DeleteComment)

	r.Get("/admin/dashboard", admin, s.AdminDashboard)
	r.Get("/admin/users", admin, s.AdminListUsers)
	r.Delete("/admin/user/:id", admin, s.AdminDeleteUser)
	r.Post("/admin/user/:id/delete", admin, s.AdminDeleteUser)
	r.Patch("/admin/user/:id/role", admin, s.AdminSetRole)
	r.Post("/admin/user/:id/role", admin, s.AdminSetRole)
	r.Delete("/admin/photo/:id", admin, s.DeletePhoto)
	r.Post("/admin/photo/:id/delete", admin, s.DeletePhoto)
	r.Delete("/admin/comment/:id", admin, s.DeleteComment)
	r.Post("/admin/comment/:id/delete", admin, s.DeleteComment)
	r.Post("/admin/categories", admin, s.AdminCreateCategory)
	r.Delete("/admin/categories/:id", admin, s.AdminDeleteCategory)
	r.Post("/admin/categories/:id/delete", admin, s.AdminDeleteCategory)
	r.Post("/admin/reconcile", admin, s.AdminReconcile)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database, Redis and blob store health.
// Redis is optional: a missing client is reported but does not fail readiness.
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

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	blobStatus := "healthy"
	if err := s.blobs.Ping(ctx); err != nil {
		blobStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" || blobStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"blobs":    blobStatus,
		},
		"time": time.Now(),
	})
}

// errorHandler turns errors that escape a handler into the JSON error envelope.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			code = models.CodeValidation
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, models.StatusCode(err), err)
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "photoshare",
		ErrorHandler: s.errorHandler,
		// room for multipart framing around the largest accepted image
		BodyLimit: int(s.config.UploadMaxBytes()) + 1024*1024,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start starts the background jobs and the HTTP listener.
func (s *Server) Start(ctx context.Context) error {
	app := s.App()
	s.jobs.Start(ctx)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.jobs.Stop()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.blobs.Close(ctx); err != nil {
		middleware.Logger.Error("error closing blob store", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
