package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intercitygo/route-booking-backend/internal/config"
	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/intercitygo/route-booking-backend/internal/handlers"
	"github.com/intercitygo/route-booking-backend/internal/middleware"
	"github.com/intercitygo/route-booking-backend/internal/services"
	"github.com/intercitygo/route-booking-backend/pkg/jwt"
	"github.com/intercitygo/route-booking-backend/pkg/mailer"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting IntercityGo Route Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Repositories built on sqlx need the concrete connection
	sqlxDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	seatRepo := database.NewSeatRepository(sqlxDB.DB)
	orderRepo := database.NewOrderRepository(sqlxDB.DB)
	catalogRepo := database.NewCatalogRepository(sqlxDB.DB)
	discountRepo := database.NewDiscountRepository(sqlxDB.DB)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	verificationService := services.NewVerificationService(userRepo, cfg.Verification.CodeTTL, cfg.Verification.MaxAttempts)
	bookingService := services.NewBookingService(seatRepo, orderRepo, catalogRepo, logger)
	searchService := services.NewSearchService(catalogRepo, logger)
	holdExpiryService := services.NewHoldExpiryService(orderRepo, cfg.Booking.HoldTTL, logger)

	// Initialize mail sender
	var mailSender mailer.Sender
	if cfg.SMTP.Mode == "production" {
		logger.Infof("SMTP sender in production mode via %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
		mailSender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Password: cfg.SMTP.Password,
		})
	} else {
		logger.Info("SMTP sender in development mode (messages logged, not sent)")
		mailSender = mailer.NewDevSender(logger)
	}

	// Start the hold expiry reclaim job
	cronService := services.NewCronService(holdExpiryService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Cron service started, expired hold reclaim enabled")

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(jwtService, verificationService, userRepo, mailSender, cfg, logger)
	searchHandler := handlers.NewSearchHandler(searchService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, seatRepo, discountRepo, logger)
	adminHandler := handlers.NewAdminHandler(bookingService, discountRepo, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/verify", authHandler.Verify)
			auth.POST("/resend", authHandler.ResendCode)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Catalog and search routes (public)
		v1.GET("/cities", searchHandler.ListCities)
		v1.POST("/departures/search", searchHandler.SearchDepartures)
		v1.GET("/departures/:id/seats", bookingHandler.ListSeats)
		v1.GET("/departures/:id/seats/summary", bookingHandler.GetSeatSummary)

		// Booking routes (protected)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService, logger))
		{
			protected.POST("/bookings", bookingHandler.CreateBooking)
			protected.GET("/orders", bookingHandler.ListMyOrders)
			protected.GET("/orders/:id", bookingHandler.GetOrder)
			protected.POST("/orders/:id/cancel", bookingHandler.CancelMyOrder)
			protected.POST("/discounts", bookingHandler.CreateDiscountRequest)
		}

		// Admin review routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService, logger))
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/orders/pending", adminHandler.ListPendingOrders)
			admin.POST("/orders/:id/confirm", adminHandler.ConfirmPayment)
			admin.POST("/orders/:id/cancel", adminHandler.CancelOrder)
			admin.GET("/discounts/pending", adminHandler.ListPendingDiscounts)
			admin.POST("/discounts/:id/decide", adminHandler.DecideDiscount)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
