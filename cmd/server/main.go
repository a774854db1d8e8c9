package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/rs/cors"

	"github.com/iliyamo/bartab/internal/config"
	"github.com/iliyamo/bartab/internal/database"
	"github.com/iliyamo/bartab/internal/handler"
	"github.com/iliyamo/bartab/internal/middleware"
	"github.com/iliyamo/bartab/internal/notify"
	"github.com/iliyamo/bartab/internal/queue"
	"github.com/iliyamo/bartab/internal/repository"
	"github.com/iliyamo/bartab/internal/router"
	"github.com/iliyamo/bartab/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is down
	if rdb != nil {
		defer rdb.Close()
	}

	// Tab events fan out to RabbitMQ and Redis pub/sub.
	var notifiers notify.Multi
	if cfg.AMQPURL != "" {
		amqpN := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.TabExchange)
		defer amqpN.Close()
		notifiers = append(notifiers, amqpN)
	}
	if rdb != nil {
		notifiers = append(notifiers, notify.NewRedisNotifier(rdb))
	}
	dispatcher := notify.NewDispatcher(notifiers, cfg.NotifyQueueSize, cfg.NotifyMaxAttempts)

	var ratingPub service.RatingPublisher
	if kw := config.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaRatingsTopic); kw != nil {
		defer kw.Close()
		ratingPub = notify.NewKafkaRatingPublisher(kw)
	}

	tabs := repository.NewTabRepo(db)
	venues := repository.NewVenueRepo(db)
	splits := repository.NewSplitRepo(db)

	tabSvc := service.NewTabService(tabs, venues, splits, dispatcher)
	splitSvc := service.NewSplitService(tabs, splits)
	paySvc := service.NewPaymentService(tabs, repository.NewPaymentRepo(db), service.SimulatedProcessor{}, dispatcher)
	verifySvc := service.NewVerificationService(
		repository.NewVerificationRepo(db),
		service.LogSender{},
		service.NewRedisThrottle(rdb, "bartab:verify:", cfg.ResendCooldown),
		cfg.VerificationTTL, cfg.VerificationAttempts, cfg.IsDevelopment(),
	)
	catalogSvc := service.NewCatalogService(venues)
	ratingSvc := service.NewRatingService(repository.NewRatingRepo(db), venues, tabs, ratingPub)
	appSvc := service.NewApplicationService(repository.NewApplicationRepo(db))

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(glog.INFO)
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Warnf("request_id=%s %s %s status=%d latency=%s err=%v",
					v.RequestID, v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			c.Logger().Infof("request_id=%s %s %s status=%d latency=%s",
				v.RequestID, v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), verifySvc), cfg.JWTSecret, limit)
	router.RegisterPublic(e, handler.NewVenueHandler(catalogSvc), handler.NewRatingHandler(ratingSvc), handler.NewApplicationHandler(appSvc), cache)
	router.RegisterCustomer(e,
		handler.NewTabHandler(tabSvc), handler.NewSplitHandler(splitSvc),
		handler.NewPaymentHandler(paySvc), handler.NewRatingHandler(ratingSvc), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewApplicationHandler(appSvc), cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TabEventLog && cfg.AMQPURL != "" {
		go func() {
			path := filepath.Join("logs", "tab-events.log")
			if err := queue.StartTabEventConsumer(ctx, cfg.AMQPURL, cfg.TabExchange, path); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("tab-events: consumer stopped: %v", err)
			}
		}()
	}

	withCORS := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", echo.HeaderXRequestID},
		ExposedHeaders: []string{echo.HeaderXRequestID, "Retry-After", "X-RateLimit-Remaining"},
	}).Handler(e)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withCORS,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (env=%s)", srv.Addr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	// Requests are done; flush the events they enqueued.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Printf("notify: drain: %v", err)
	}
}
