package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/terminalgate/gate-api/api/swagger"
	"github.com/terminalgate/gate-api/internal/handler"
	"github.com/terminalgate/gate-api/internal/middleware"
	"github.com/terminalgate/gate-api/internal/models"
	"github.com/terminalgate/gate-api/internal/repository"
	"github.com/terminalgate/gate-api/internal/service"
	"github.com/terminalgate/gate-api/pkg/cache"
	"github.com/terminalgate/gate-api/pkg/config"
	"github.com/terminalgate/gate-api/pkg/database"
	"github.com/terminalgate/gate-api/pkg/logger"
	corsmiddleware "github.com/terminalgate/gate-api/pkg/middleware/cors"
	reqidmiddleware "github.com/terminalgate/gate-api/pkg/middleware/requestid"
)

// @title Terminal Gate API
// @version 1.0.0
// @description Truck gate slot booking and capacity management
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	specialRepo := repository.NewSpecialScheduleRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	reservationRepo := repository.NewReservationRepository(db, slotRepo)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "gate-api",
	})
	scheduleSvc := service.NewScheduleService(scheduleRepo, specialRepo, cacheRepo, nil, logr)
	availabilitySvc := service.NewAvailabilityService(scheduleRepo, specialRepo, blockRepo, slotRepo, cacheRepo, cfg.Slots.CacheTTL, metricsSvc, logr)
	blockSvc := service.NewBlockService(blockRepo, cacheRepo, nil, logr)
	slotSvc := service.NewSlotService(slotRepo, availabilitySvc, cacheRepo, service.GenerationDefaults{
		StartTime:       cfg.Slots.DefaultStartTime,
		EndTime:         cfg.Slots.DefaultEndTime,
		IntervalMinutes: cfg.Slots.DefaultInterval,
		Capacity:        cfg.Slots.DefaultCapacity,
	}, metricsSvc, nil, logr)

	var bookingValidator service.BookingValidator
	if cfg.Booking.ValidationEnabled {
		if v := service.NewHTTPBookingValidator(cfg.Booking.ValidationURL, cfg.Booking.ValidationTimeout, logr); v != nil {
			bookingValidator = v
		}
	}
	reservationSvc := service.NewReservationService(reservationRepo, slotRepo, blockRepo, slotSvc, bookingValidator, userRepo, cacheRepo, cfg.Reservations.ExpiryGrace, metricsSvc, nil, logr)

	expirySvc := service.NewExpiryService(reservationRepo, cfg.Reservations.ExpiryGrace, metricsSvc, logr)
	if cfg.Reservations.SweepEnabled {
		if err := expirySvc.Start(cfg.Reservations.SweepSpec); err != nil {
			logr.Sugar().Fatalw("failed to start expiry sweep", "error", err)
		}
		defer expirySvc.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	blockHandler := handler.NewBlockHandler(blockSvc)
	slotHandler := handler.NewSlotHandler(availabilitySvc, slotSvc)
	reservationHandler := handler.NewReservationHandler(reservationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	schedules := api.Group("/schedules", middleware.JWT(authSvc), middleware.RequireAdmin())
	{
		schedules.GET("/weekly", scheduleHandler.ListWeekly)
		schedules.POST("/weekly", middleware.Audit(userRepo, models.AuditActionScheduleWrite, "weekly_schedules"), scheduleHandler.CreateWeekly)
		schedules.PUT("/weekly/:id", middleware.Audit(userRepo, models.AuditActionScheduleWrite, "weekly_schedules"), scheduleHandler.UpdateWeekly)
		schedules.DELETE("/weekly/:id", middleware.Audit(userRepo, models.AuditActionScheduleWrite, "weekly_schedules"), scheduleHandler.DeleteWeekly)

		schedules.GET("/special", scheduleHandler.ListSpecial)
		schedules.GET("/special/:id", scheduleHandler.GetSpecial)
		schedules.POST("/special", middleware.Audit(userRepo, models.AuditActionScheduleWrite, "special_schedules"), scheduleHandler.CreateSpecial)
		schedules.PUT("/special/:id", middleware.Audit(userRepo, models.AuditActionScheduleWrite, "special_schedules"), scheduleHandler.UpdateSpecial)
		schedules.DELETE("/special/:id", middleware.Audit(userRepo, models.AuditActionScheduleWrite, "special_schedules"), scheduleHandler.DeleteSpecial)
	}

	blocks := api.Group("/blocks", middleware.JWT(authSvc), middleware.RequireAdmin())
	{
		blocks.GET("/dates", blockHandler.ListDates)
		blocks.POST("/dates", middleware.Audit(userRepo, models.AuditActionBlockWrite, "blocked_dates"), blockHandler.CreateDate)
		blocks.PUT("/dates/:id", middleware.Audit(userRepo, models.AuditActionBlockWrite, "blocked_dates"), blockHandler.UpdateDate)
		blocks.DELETE("/dates/:id", middleware.Audit(userRepo, models.AuditActionBlockWrite, "blocked_dates"), blockHandler.DeleteDate)

		blocks.GET("/slots", blockHandler.ListSlots)
		blocks.POST("/slots", middleware.Audit(userRepo, models.AuditActionBlockWrite, "blocked_slots"), blockHandler.CreateSlot)
		blocks.PUT("/slots/:id", middleware.Audit(userRepo, models.AuditActionBlockWrite, "blocked_slots"), blockHandler.UpdateSlot)
		blocks.DELETE("/slots/:id", middleware.Audit(userRepo, models.AuditActionBlockWrite, "blocked_slots"), blockHandler.DeleteSlot)
	}

	slots := api.Group("/slots")
	{
		slots.GET("/availability/:date", middleware.OptionalJWT(authSvc), slotHandler.Availability)

		admin := slots.Group("", middleware.JWT(authSvc), middleware.RequireAdmin())
		admin.POST("/generate/:date", middleware.Audit(userRepo, models.AuditActionSlotGenerate, "time_slots"), slotHandler.Generate)
		admin.PUT("/:id/capacity", middleware.Audit(userRepo, models.AuditActionCapacityChange, "time_slots"), slotHandler.SetCapacity)
		admin.PUT("/:id/active", middleware.Audit(userRepo, models.AuditActionCapacityChange, "time_slots"), slotHandler.SetActive)
	}

	reservations := api.Group("/reservations", middleware.JWT(authSvc))
	{
		reservations.POST("", reservationHandler.Create)
		reservations.GET("", reservationHandler.List)
		reservations.GET("/:id", reservationHandler.Get)
		reservations.PUT("/:id/cancel", reservationHandler.Cancel)
		reservations.PUT("/:id/complete", middleware.RequireAdmin(), reservationHandler.Complete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
