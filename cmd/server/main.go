package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/api"
	"github.com/cleancare/backend/internal/assignment"
	"github.com/cleancare/backend/internal/config"
	"github.com/cleancare/backend/internal/db"
	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/location"
	"github.com/cleancare/backend/internal/middleware"
	"github.com/cleancare/backend/internal/migrate"
	"github.com/cleancare/backend/internal/notification"
	"github.com/cleancare/backend/internal/observ"
	"github.com/cleancare/backend/internal/repository/postgres"
	"github.com/cleancare/backend/internal/scope"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Root context for the process: cancelled on SIGINT/SIGTERM, which
	// stops the reconciliation loop and the event subscription.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	// Stores. Each one shares the pool; pgxpool is goroutine-safe.
	pool := database.Pool()
	geoRepo := postgres.NewGeoStore(pool)
	assignmentRepo := postgres.NewAssignmentStore(pool)
	staffRepo := postgres.NewStaffStore(pool)
	citizenRepo := postgres.NewCitizenStore(pool)
	complaintRepo := postgres.NewComplaintStore(pool)
	notificationRepo := postgres.NewNotificationStore(pool)

	// Domain services, wired bottom-up: the geography tree first, then
	// assignments and scope resolution on top of it, then the services
	// that consume resolved scope.
	tree := geo.NewTree(geoRepo, geo.NewCache(), logger)
	bus := assignment.NewRedisBus(redisClient, logger)
	store := assignment.NewStore(assignmentRepo, staffRepo, tree, bus, logger)
	resolver := scope.NewResolver(store, tree, logger)
	locationSync := location.NewSync(tree, complaintRepo, logger)
	migrator := migrate.NewThanaMigrator(geoRepo, complaintRepo, tree, logger)
	guard := notification.NewGuard(resolver, staffRepo, complaintRepo, notificationRepo, logger)

	// Reconciliation loop: every assignment change sweeps the affected
	// staff member's unread notifications against their new scope.
	events, err := bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to assignment events: %w", err)
	}
	go guard.Run(ctx, events)

	authHandler := api.NewAuthHandler(staffRepo, citizenRepo, tree, cfg, logger)
	geoHandler := api.NewGeoHandler(geoRepo, tree, migrator, logger)
	complaintHandler := api.NewComplaintHandler(complaintRepo, citizenRepo, staffRepo, tree, locationSync, resolver, logger)
	assignmentHandler := api.NewAssignmentHandler(store, staffRepo, resolver, logger)
	notificationHandler := api.NewNotificationHandler(notificationRepo, complaintRepo, guard, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Health check is public so load balancers can reach it.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public: authentication and the readable geography tree.
	srv.POST("/v1/auth/staff/login", authHandler.StaffLogin)
	srv.POST("/v1/auth/citizen/login", authHandler.CitizenLogin)
	srv.POST("/v1/auth/citizen/register", authHandler.CitizenRegister)
	srv.GET("/v1/city-corporations", geoHandler.ListCityCorporations)
	srv.GET("/v1/city-corporations/:code/zones", geoHandler.ListZones)
	srv.GET("/v1/zones/:id/wards", geoHandler.ListWards)
	srv.GET("/v1/thanas", geoHandler.ListThanas)

	// Citizen surface: own complaints only.
	citizen := srv.Group("/v1/citizen")
	citizen.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.RequireCitizen())
	citizen.POST("/complaints", complaintHandler.Create)
	citizen.GET("/complaints", complaintHandler.ListOwn)

	// Staff surface: everything here reads through the caller's
	// resolved scope predicate.
	admin := srv.Group("/v1/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.RequireStaff())

	admin.GET("/me/scope", assignmentHandler.MyScope)

	admin.GET("/complaints", complaintHandler.ListScoped)
	admin.GET("/complaints/:id", complaintHandler.GetScoped)
	admin.PATCH("/complaints/:id/status", complaintHandler.UpdateStatus)
	admin.PUT("/complaints/:id/location", complaintHandler.Relocate)
	admin.POST("/complaints/backfill", complaintHandler.RunBackfill)

	admin.POST("/staff/:id/zones", assignmentHandler.AssignZone)
	admin.DELETE("/staff/:id/zones/:zoneID", assignmentHandler.UnassignZone)
	admin.GET("/staff/:id/zones", assignmentHandler.ListZones)
	admin.PUT("/staff/:id/ward", assignmentHandler.SetWard)
	admin.PUT("/staff/:id/city", assignmentHandler.SetCity)

	admin.POST("/city-corporations", geoHandler.CreateCityCorporation)
	admin.POST("/zones", geoHandler.CreateZone)
	admin.POST("/wards", geoHandler.CreateWard)
	admin.PUT("/thanas/:id/mapping", geoHandler.MapThana)
	admin.POST("/migrations/thana", geoHandler.RunThanaMigration)

	admin.POST("/notifications", notificationHandler.Create)
	admin.GET("/notifications", notificationHandler.List)
	admin.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	admin.POST("/notifications/:id/read", notificationHandler.MarkRead)
	admin.POST("/notifications/reconcile", notificationHandler.Reconcile)
	admin.GET("/notifications/stream", notificationHandler.Stream)

	logger.Info("starting cleancare backend",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)
	return srv.Run(":" + cfg.Port)
}
