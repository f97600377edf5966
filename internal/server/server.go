// Package server wires the HTTP application: middleware, routes, HTML views
// and the handlers behind them.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"snapfeed/internal/cache"
	"snapfeed/internal/config"
	"snapfeed/internal/database"
	"snapfeed/internal/middleware"
	"snapfeed/internal/repository"
	"snapfeed/internal/service"
	"snapfeed/internal/session"
	"snapfeed/internal/upload"
	"snapfeed/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"gorm.io/gorm"
)

//go:embed views
var viewsFS embed.FS

const serviceName = "snapfeed"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	log            *slog.Logger
	db             *gorm.DB
	cache          *cache.Store
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Manager
	uploads        *upload.Store
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	userService    *service.UserService
	postService    *service.PostService
}

// NewServer connects to Postgres and Redis and builds the application.
// Neither being unreachable is fatal.
func NewServer(cfg *config.Config, log *slog.Logger) (*Server, error) {
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	store := cache.Connect(cfg.RedisURL, log)
	return NewServerWithDeps(cfg, log, db, store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, log *slog.Logger, db *gorm.DB, store *cache.Store) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		store = cache.New(nil)
	}

	uploads, err := upload.NewStore(upload.FromConfig(cfg))
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		log:            log,
		db:             db,
		cache:          store,
		promMiddleware: middleware.InitMetrics(serviceName),
		uploads:        uploads,
		sessions: session.NewManager(session.Options{
			Secret: cfg.JWTSecret,
			TTL:    cfg.SessionTTL,
			Store:  store,
			Logger: log,
		}),
		userRepo: repository.NewUserRepository(db, store),
		postRepo: repository.NewPostRepository(db),
	}
	s.userService = service.NewUserService(s.userRepo, uploads, validation.New(), log)
	s.postService = service.NewPostService(s.postRepo, uploads, log)

	app, err := s.newApp()
	if err != nil {
		return nil, err
	}
	s.app = app
	return s, nil
}

func (s *Server) newApp() (*fiber.App, error) {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(views), ".html")

	app := fiber.New(fiber.Config{
		AppName:      "Snapfeed",
		Views:        engine,
		ViewsLayout:  "layouts/main",
		BodyLimit:    int(s.uploads.Config().MaxFileSize)*s.uploads.MaxFiles() + 1024*1024,
		ErrorHandler: s.errorHandler,
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		s.log.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(msg)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.MetricsMiddleware(s.promMiddleware))

	// Uploaded images are served from the same origin as the pages.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger(s.log))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return !s.config.RateLimitEnabled
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests, please try again later.")
		},
	}))

	app.Use(middleware.Authenticate(middleware.AuthConfig{
		Sessions:     s.sessions,
		Users:        s.userRepo,
		CookieSecure: s.config.CookieSecure,
		Logger:       s.log,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	s.promMiddleware.RegisterAt(app, "/metrics")

	app.Static(s.uploads.Config().URLPrefix, s.uploads.Config().Destination, fiber.Static{
		MaxAge: 3600,
	})

	app.Get("/", s.ShowIndex)
	app.Get("/about", s.ShowAbout)
	app.Get("/login", s.ShowLogin)
	app.Post("/login", s.rateLimit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	app.Post("/register", s.rateLimit("register", 5, 10*time.Minute, middleware.FailClosed), s.Register)
	app.Get("/logout", s.Logout)

	auth := middleware.RequireLogin("/login")
	app.Get("/profile", auth, s.Profile)
	app.Get("/profile/upload", auth, s.ShowProfileUpload)
	app.Post("/upload", auth, s.UploadProfilePicture)
	app.Post("/post", auth, s.CreatePost)
	app.Get("/like/:id", auth, s.LikePost)
	app.Get("/edit/:id", auth, s.EditPost)
	app.Post("/update/:id", auth, s.UpdatePost)
	app.Get("/delete/:id", auth, s.DeletePost)
}

// rateLimit limits a route per user or IP. The limiter needs Redis; without a
// Redis connection at startup it is off, and policy decides what happens when
// Redis fails later.
func (s *Server) rateLimit(name string, limit int, window time.Duration, policy middleware.FailPolicy) fiber.Handler {
	return middleware.RateLimit(middleware.RateLimitConfig{
		Client:  s.cache.Client(),
		Enabled: s.config.RateLimitEnabled && s.cache.Enabled(),
		Name:    name,
		Limit:   limit,
		Window:  window,
		Policy:  policy,
		Logger:  s.log,
	})
}

// LivenessCheck reports that the process is serving requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// its absence degrades the status without failing the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if !s.cache.Enabled() {
		redisStatus = "unavailable"
	} else if err := s.cache.Ping(ctx); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
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

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and releases the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		s.log.Error("error shutting down HTTP server", slog.String("error", err.Error()))
	}
	if err := database.Close(s.db); err != nil {
		s.log.Error("error closing sql DB", slog.String("error", err.Error()))
	}
	if err := s.cache.Close(); err != nil {
		s.log.Error("error closing redis", slog.String("error", err.Error()))
	}
	s.log.Info("Server shutdown complete")
	return nil
}
