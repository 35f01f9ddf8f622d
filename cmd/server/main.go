package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/checkout/internal/cache"
	"github.com/Skotchmaster/checkout/internal/config"
	"github.com/Skotchmaster/checkout/internal/es"
	"github.com/Skotchmaster/checkout/internal/handlers"
	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/middleware/loggingmw"
	"github.com/Skotchmaster/checkout/internal/mykafka"
	"github.com/Skotchmaster/checkout/internal/payment"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/internal/service"
	httpserver "github.com/Skotchmaster/checkout/internal/transport/http"
)

const productIndex = "product"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var store cache.Store
	if configuration.REDIS_ADDR != "" {
		redisStore := cache.NewRedis(config.InitRedis(configuration))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(ctx); err != nil {
			cancel()
			log.Fatalf("redis init failed: %v", err)
		}
		cancel()
		store = redisStore
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process cache")
		store = cache.NewMemory()
	}

	var events mykafka.Publisher
	var producer *mykafka.Producer
	if brokers := configuration.KafkaBrokers(); len(brokers) > 0 {
		producer, err = mykafka.NewProducer(brokers)
		if err != nil {
			log.Fatal(err)
		}
		events = producer
	} else {
		logger.Warn("KAFKA_ADDRESS not set, domain events disabled")
	}

	registry := payment.NewRegistry(
		payment.NewStripe(payment.StripeConfig{
			BaseURL:       configuration.STRIPE_BASE_URL,
			SecretKey:     configuration.STRIPE_SECRET_KEY,
			WebhookSecret: configuration.STRIPE_WEBHOOK_SECRET,
		}),
		payment.NewBkash(payment.BkashConfig{
			BaseURL:     configuration.BKASH_BASE_URL,
			AppKey:      configuration.BKASH_APP_KEY,
			AppSecret:   configuration.BKASH_APP_SECRET,
			Username:    configuration.BKASH_USERNAME,
			Password:    configuration.BKASH_PASSWORD,
			CallbackURL: configuration.BKASH_CALLBACK_URL,
		}),
	)

	gormRepo := repo.New(db)

	categorySvc := &service.CategoryService{Repo: gormRepo, Cache: store}
	orderSvc := &service.OrderService{Repo: gormRepo, Events: events}
	paymentSvc := &service.PaymentService{Repo: gormRepo, Providers: registry, Orders: orderSvc, Events: events}
	productSvc := &service.ProductService{Repo: gormRepo, Categories: categorySvc, Events: events}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(es.Config{
			URL:      configuration.ES_URL,
			Username: configuration.ES_USER,
			Password: configuration.ES_PASSWORD,
		})
		if err != nil {
			log.Fatal(err)
		}
		productSvc.Index = &es.Indexer{Client: esClient, Index: productIndex}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: productIndex}
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		JWTSecret:       []byte(configuration.JWT_SECRET),
		OrderHandler:    &handlers.OrderHandler{Svc: orderSvc},
		PaymentHandler:  &handlers.PaymentHandler{Svc: paymentSvc},
		WebhookHandler:  &handlers.WebhookHandler{Svc: paymentSvc},
		ProductHandler:  &handlers.ProductHandler{Svc: productSvc, Categories: categorySvc},
		CategoryHandler: &handlers.CategoryHandler{Svc: categorySvc},
		SearchHandler:   searchHandler,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
