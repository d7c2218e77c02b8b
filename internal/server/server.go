package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kpiboard/internal/aggregation"
	"kpiboard/internal/auth"
	"kpiboard/internal/clock"
	"kpiboard/internal/config"
	"kpiboard/internal/database"
	"kpiboard/internal/handler"
	"kpiboard/internal/logger"
	"kpiboard/internal/middleware"
	"kpiboard/internal/permission"
	"kpiboard/internal/repository"
	"kpiboard/internal/sharelink"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
	Log    *logger.Logger

	cleaner *sharelink.Cleaner
	limiter *middleware.RateLimiter
}

// Init connects to the database, applies migrations, seeds the admin
// account and builds the server.
func Init(cfg *config.Config, log *logger.Logger) (*Server, error) {
	db, err := database.Connect(cfg.DSN(), log)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(db, log); err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.SeedAdmin(ctx, users, cfg.AdminEmail, cfg.AdminPassword, log); err != nil {
		return nil, err
	}

	return New(cfg, db, log), nil
}

// New wires repositories, services and routes on top of an open database.
func New(cfg *config.Config, db *gorm.DB, log *logger.Logger) *Server {
	// Repositories
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	accessRepo := repository.NewDashboardAccessRepository(db)
	shareTokenRepo := repository.NewShareTokenRepository(db)
	kpiRepo := repository.NewKpiRepository(db)
	entryRepo := repository.NewKpiEntryRepository(db)

	// Services
	resolver := permission.NewResolver(dashboardRepo, accessRepo, kpiRepo)
	engine := aggregation.NewEngine(entryRepo)
	links := sharelink.NewService(shareTokenRepo, resolver, clock.Real(), nil, sharelink.Config{
		DefaultTTLDays: cfg.ShareLinkTTLDays,
		MaxTTLDays:     cfg.ShareLinkMaxTTLDays,
	}, log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)

	// Handlers
	userHandler := handler.NewUserHandler(userRepo, tokens, resolver, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardRepo, accessRepo, userRepo, resolver, log)
	shareLinkHandler := handler.NewShareLinkHandler(links, log)
	kpiHandler := handler.NewKpiHandler(kpiRepo, entryRepo, engine, resolver, log)

	limiter := middleware.NewRateLimiter(cfg.RedeemRatePerSec, cfg.RedeemBurst, log)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	r.POST("/register", limiter.Middleware(), userHandler.Register)
	r.POST("/login", limiter.Middleware(), userHandler.Login)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(tokens), middleware.LoadUser(userRepo))
	{
		authorized.GET("/me", userHandler.Me)
		authorized.PUT("/users/:id/role", userHandler.SetRole)

		// Dashboard routes
		authorized.POST("/dashboards", dashboardHandler.Create)
		authorized.GET("/dashboards", dashboardHandler.GetAll)
		authorized.GET("/dashboards/:id", dashboardHandler.GetByID)
		authorized.PUT("/dashboards/:id", dashboardHandler.Update)
		authorized.DELETE("/dashboards/:id", dashboardHandler.Delete)
		authorized.GET("/shared-dashboards", dashboardHandler.GetShared)

		// Dashboard access routes
		authorized.POST("/dashboards/:id/viewers", dashboardHandler.AddViewer)
		authorized.GET("/dashboards/:id/viewers", dashboardHandler.ListViewers)
		authorized.DELETE("/dashboards/:id/viewers/:user_id", dashboardHandler.RemoveViewer)

		// Share link routes
		authorized.POST("/dashboards/:id/share-links", shareLinkHandler.Generate)
		authorized.GET("/dashboards/:id/share-links", shareLinkHandler.List)
		authorized.DELETE("/share-links/:id", shareLinkHandler.Revoke)
		authorized.POST("/share-links/redeem", limiter.Middleware(), shareLinkHandler.Redeem)

		// KPI routes
		authorized.POST("/kpis", kpiHandler.Create)
		authorized.GET("/kpis", kpiHandler.GetAll)
		authorized.GET("/kpis/:id", kpiHandler.GetByID)
		authorized.PUT("/kpis/:id", kpiHandler.Update)
		authorized.DELETE("/kpis/:id", kpiHandler.Delete)
		authorized.GET("/kpis/:id/status", kpiHandler.Status)
		authorized.GET("/kpis/:id/aggregate", kpiHandler.Aggregate)
		authorized.GET("/kpis/:id/missing-dates", kpiHandler.MissingDates)

		// KPI entry routes
		authorized.POST("/kpis/:id/entries", kpiHandler.CreateEntry)
		authorized.GET("/kpis/:id/entries", kpiHandler.ListEntries)
		authorized.DELETE("/entries/:id", kpiHandler.DeleteEntry)
	}

	return &Server{
		Engine:  r,
		DB:      db,
		Config:  cfg,
		Log:     log,
		cleaner: sharelink.NewCleaner(links, cfg.ShareCleanupSchedule, log),
		limiter: limiter,
	}
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	if err := s.cleaner.Start(); err != nil {
		return err
	}
	defer s.close()

	srv := &http.Server{
		Addr:              ":" + s.Config.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("server running", "port", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		s.Log.Info("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.Log.Info("server exited properly")
	return nil
}

func (s *Server) close() {
	s.cleaner.Stop()
	s.limiter.Stop()
	if err := database.Close(s.DB); err != nil {
		s.Log.Error("close database", "error", err)
	}
}
