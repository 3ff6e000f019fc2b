package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/soundcraft/server/internal/module/auth"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/chat"
	"github.com/soundcraft/server/internal/module/contact"
	"github.com/soundcraft/server/internal/module/dashboard"
	"github.com/soundcraft/server/internal/module/lesson"
	"github.com/soundcraft/server/internal/module/order"
	"github.com/soundcraft/server/internal/module/payment"
	"github.com/soundcraft/server/internal/module/payment/provider"
	"github.com/soundcraft/server/internal/module/review"
	"github.com/soundcraft/server/internal/module/user"
	"github.com/soundcraft/server/internal/module/wishlist"
	sharedcache "github.com/soundcraft/server/internal/shared/cache"
	"github.com/soundcraft/server/internal/shared/config"
	"github.com/soundcraft/server/internal/shared/database"
	"github.com/soundcraft/server/internal/shared/events"
	"github.com/soundcraft/server/internal/shared/logger"
	"github.com/soundcraft/server/internal/shared/mail"
	"github.com/soundcraft/server/internal/shared/metrics"
	"github.com/soundcraft/server/internal/shared/middleware"
	"github.com/soundcraft/server/internal/shared/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires configuration, infrastructure and modules together.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher

	authService *auth.Service

	authHandler      *auth.Handler
	userHandler      *user.Handler
	catalogHandler   *catalog.Handler
	reviewHandler    *review.Handler
	wishlistHandler  *wishlist.Handler
	lessonHandler    *lesson.Handler
	chatHandler      *chat.Handler
	contactHandler   *contact.Handler
	orderHandler     *order.Handler
	paymentHandler   *payment.Handler
	dashboardHandler *dashboard.Handler
}

// LoadConfig loads the application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("soundcraft"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis backs OTP verification, login throttling, idempotency keys
	// and the catalog cache. Account verification cannot work without
	// it, so it is a hard dependency.
	redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	app.redis = redisClient

	if cfg.Kafka.Enabled {
		app.publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, 256, zapLog)
	} else {
		app.publisher = events.NopPublisher{}
	}

	app.router = app.setupRouter()

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}
	app.registerRoutes()

	return app, nil
}

// migrate creates or updates the schema for every persisted model.
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&auth.RefreshToken{},
		&catalog.Category{},
		&catalog.Product{},
		&review.Review{},
		&wishlist.Item{},
		&lesson.Lesson{},
		&lesson.Enrollment{},
		&chat.Conversation{},
		&chat.Message{},
		&contact.Submission{},
		&order.Order{},
		&order.OrderItem{},
	)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// initModules constructs repositories, services and handlers.
func (a *App) initModules() error {
	var mailer mail.Mailer
	if a.config.Mail.Host != "" {
		mailer = mail.NewSMTPMailer(&a.config.Mail, a.zapLogger)
	} else {
		mailer = mail.NewNoOpMailer(a.zapLogger)
	}

	// Image uploads degrade to an explicit error when storage is not
	// configured; everything else works without it.
	var store *storage.Client
	if a.config.Storage.Bucket != "" {
		s, err := storage.New(&a.config.Storage)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		store = s
	} else {
		a.zapLogger.Warn("object storage not configured, image uploads disabled")
	}

	// User and auth.
	userRepo := user.NewRepository(a.db)
	userService := user.NewService(userRepo, a.zapLogger)
	a.userHandler = user.NewHandler(userService)

	tokenRepo := auth.NewRefreshTokenRepository(a.db)
	a.authService = auth.NewService(userRepo, tokenRepo, a.redis, mailer, &auth.ServiceConfig{
		JWTConfig: &auth.JWTConfig{
			Secret:             a.config.Auth.JWTSecret,
			AccessTokenExpiry:  a.config.Auth.AccessTokenExpiry,
			RefreshTokenExpiry: a.config.Auth.RefreshTokenExpiry,
			Issuer:             "soundcraft",
		},
		OTPExpiry:        a.config.Auth.OTPExpiry,
		LoginMaxAttempts: a.config.Auth.LoginMaxAttempts,
		LoginWindow:      a.config.Auth.LoginWindow,
	}, a.zapLogger)
	a.authHandler = auth.NewHandler(a.authService)

	// Catalog.
	catalogRepo := catalog.NewRepository(a.db)
	catalogService := catalog.NewService(catalogRepo, a.redis, store, a.metrics, a.zapLogger)
	a.catalogHandler = catalog.NewHandler(catalogService)

	// Reviews and wishlist.
	reviewRepo := review.NewRepository(a.db)
	a.reviewHandler = review.NewHandler(review.NewService(reviewRepo, catalogRepo, userRepo))

	wishlistRepo := wishlist.NewRepository(a.db)
	a.wishlistHandler = wishlist.NewHandler(wishlist.NewService(wishlistRepo, catalogRepo))

	// Lessons, chat, contact.
	a.lessonHandler = lesson.NewHandler(lesson.NewRepository(a.db))
	a.chatHandler = chat.NewHandler(chat.NewRepository(a.db))
	a.contactHandler = contact.NewHandler(contact.NewRepository(a.db))

	// Orders.
	orderRepo := order.NewRepository(a.db)
	orderService := order.NewService(orderRepo, catalogRepo, userRepo, a.publisher, mailer, a.metrics, a.zapLogger)
	a.orderHandler = order.NewHandler(orderService)

	// Payments.
	registry := payment.NewRegistry()
	registry.Register(provider.NewEsewa(
		&a.config.Payment.Esewa,
		provider.NewClient("esewa", a.config.Payment.GatewayTimeout, a.metrics),
	))
	registry.Register(provider.NewKhalti(
		&a.config.Payment.Khalti,
		provider.NewClient("khalti", a.config.Payment.GatewayTimeout, a.metrics),
	))

	paymentService := payment.NewService(
		orderService,
		registry,
		&a.config.Server,
		&a.config.Frontend,
		a.metrics,
		a.zapLogger,
	)
	a.paymentHandler = payment.NewHandler(paymentService)

	// Dashboard.
	a.dashboardHandler = dashboard.NewHandler(dashboard.NewRepository(a.db), catalogRepo)

	return nil
}

// registerRoutes mounts all module routes on the router.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")

	// Public routes.
	public := v1.Group("")
	a.catalogHandler.RegisterRoutes(public)
	a.reviewHandler.RegisterRoutes(public)
	a.lessonHandler.RegisterRoutes(public)
	a.contactHandler.RegisterRoutes(public)

	// Gateway redirect callbacks carry no session.
	a.paymentHandler.RegisterCallbackRoutes(public)

	// Auth endpoints get a tighter rate limit: they are the brute-force
	// and enumeration surface.
	authGroup := v1.Group("")
	authGroup.Use(middleware.RateLimit(a.redis, middleware.RateLimitConfig{
		Requests:  20,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:auth",
	}))
	a.authHandler.RegisterRoutes(authGroup)

	// Authenticated routes.
	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(a.authService.JWT()))
	a.userHandler.RegisterRoutes(authed)
	a.reviewHandler.RegisterAuthRoutes(authed)
	a.wishlistHandler.RegisterRoutes(authed)
	a.lessonHandler.RegisterAuthRoutes(authed)
	a.chatHandler.RegisterRoutes(authed)
	a.orderHandler.RegisterRoutes(authed)

	// Payment initiation replays cached responses for duplicate
	// Idempotency-Key submissions instead of creating a second order.
	payments := authed.Group("")
	payments.Use(middleware.Idempotency(a.redis, middleware.IdempotencyConfig{}))
	a.paymentHandler.RegisterRoutes(payments)

	// Admin routes.
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAuth(a.authService.JWT()), middleware.RequireAdmin())
	a.userHandler.RegisterAdminRoutes(admin)
	a.catalogHandler.RegisterAdminRoutes(admin)
	a.lessonHandler.RegisterAdminRoutes(admin)
	a.chatHandler.RegisterAdminRoutes(admin)
	a.contactHandler.RegisterAdminRoutes(admin)
	a.orderHandler.RegisterAdminRoutes(admin)
	a.dashboardHandler.RegisterAdminRoutes(admin)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.zapLogger != nil {
		_ = a.zapLogger.Sync()
	}
	if a.redis != nil {
		_ = sharedcache.Close(a.redis)
	}
	if a.db != nil {
		_ = database.Close(a.db)
	}
}
