package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/config"
	"github.com/iliyamo/park-ticketing/internal/database"
	"github.com/iliyamo/park-ticketing/internal/handler"
	"github.com/iliyamo/park-ticketing/internal/logger"
	"github.com/iliyamo/park-ticketing/internal/middleware"
	"github.com/iliyamo/park-ticketing/internal/queue"
	"github.com/iliyamo/park-ticketing/internal/repository"
	"github.com/iliyamo/park-ticketing/internal/router"
	"github.com/iliyamo/park-ticketing/internal/service"
	"github.com/iliyamo/park-ticketing/internal/upload"
)

func main() {
	cfg := config.Load() // Load environment config
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logrus.WithField("component", "server")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("schema applied")
	}

	// Redis is optional; without it the cache and the limiter pass through.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	// Repositories
	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	store := repository.NewLedgerStore(db, cfg.LockWaitTimeout)

	opts := []service.LedgerOption{service.WithReferenceAttempts(cfg.ReferenceAttempts)}
	if cfg.RabbitEnabled {
		opts = append(opts,
			service.WithNotifier(queue.NewPublisher(cfg.RabbitURL)),
			service.WithNotifyTimeout(cfg.NotifyTimeout))
	}
	ledger := service.NewLedger(store, service.RandomReference{Prefix: cfg.ReferencePrefix}, opts...)

	photos := upload.NewPhotoStore(cfg.UploadDir)
	var invalidator handler.CacheInvalidator
	if ci := middleware.NewCacheInvalidator(cacheCfg, rdb); ci != nil {
		invalidator = ci
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logrus.StandardLogger()))

	limit := middleware.NewTokenBucket(rateCfg, rdb)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, photos), limit)
	router.RegisterPublic(e, handler.NewEventHandler(events), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterCustomer(e,
		handler.NewBookingHandler(ledger, bookings, invalidator),
		handler.NewProfileHandler(users, photos),
		cfg.JWTSecret, limit)
	router.RegisterAdmin(e, handler.NewAdminHandler(users, cfg.BcryptCost), cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan struct{})
	if cfg.RabbitEnabled {
		go func() {
			defer close(consumerDone)
			if err := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogDir).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("booking consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("forced shutdown")
	}
	<-consumerDone
	log.Info("server stopped")
}
