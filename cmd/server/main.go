package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kidzy-server/internal/app"
	"kidzy-server/internal/auth"
	"kidzy-server/internal/config"
	"kidzy-server/internal/handler"
	"kidzy-server/internal/payment"
	"kidzy-server/internal/worker"
	sharedLogger "kidzy-server/shared/logger"
	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "kidzy-server",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("dbDriver", cfg.Database.Driver),
		zap.String("blobDriver", cfg.Blob.Driver),
		zap.Bool("inlineDispatch", cfg.InlineDispatch()),
	)

	// Контекст жизни процесса: отменяется при остановке и гасит консьюмеры
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// --- External Connections ---
	initCtx, initCancel := context.WithTimeout(appCtx, 30*time.Second)
	infra, err := app.OpenInfra(initCtx, cfg, true, logger)
	initCancel()
	if err != nil {
		logger.Fatal("Failed to open infrastructure", zap.Error(err))
	}
	defer infra.Close()

	authClient, err := infra.Firebase.Auth(appCtx)
	if err != nil {
		logger.Fatal("Failed to create Firebase Auth client", zap.Error(err))
	}
	authSvc := auth.NewService(auth.NewFirebaseIdentity(authClient, cfg.Firebase.CheckRevoked, logger), logger)

	updates := handler.NewConnectionManager(cfg.HTTP.CORSAllowedOrigins, logger)

	// --- Generation dispatch ---
	metrics := worker.NewMetrics("", logger)
	var (
		tasks      messaging.TaskPublisher
		notifier   messaging.ClientUpdatePublisher
		dispatcher *messaging.InlineDispatcher
		mqConn     *amqp091.Connection
	)
	if cfg.InlineDispatch() {
		logger.Warn("RABBITMQ_URL not set, generation tasks run inside the API process")
		// Диспетчер создается после сервисов, которым он нужен
		tasks = messaging.TaskPublisherFunc(func(ctx context.Context, p models.GenerationTaskPayload) error {
			return dispatcher.PublishGenerationTask(ctx, p)
		})
		notifier = updates
	} else {
		mqConn, err = messaging.Dial(appCtx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ReconnectDelay, cfg.RabbitMQ.MaxAttempts, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		publisher, err := messaging.NewRabbitMQPublisher(mqConn, cfg.RabbitMQ.TaskQueue, logger)
		if err != nil {
			logger.Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		tasks = publisher
		// События идут через fanout exchange, чтобы их получил экземпляр, держащий соединение клиента
		notifier = publisher
	}

	services, err := app.NewServices(appCtx, cfg, infra, tasks, notifier, logger)
	if err != nil {
		logger.Fatal("Failed to create services", zap.Error(err))
	}

	if cfg.InlineDispatch() {
		dispatcher = messaging.NewInlineDispatcher(
			worker.NewHandler(services.Stories, services.Gallery, metrics, logger),
			cfg.Story.Workers,
			logger,
		)
	} else {
		go func() {
			logger.Info("Starting client update consumer...")
			if err := messaging.ConsumeClientUpdates(appCtx, mqConn, updates, logger); err != nil {
				logger.Error("Client update consumer stopped with error", zap.Error(err))
			}
		}()
	}

	var payments *payment.Service
	if cfg.Payment.RazorpayKeyID != "" && cfg.Payment.RazorpayKeySecret != "" {
		gateway, err := payment.NewRazorpayGateway(cfg.Payment.RazorpayKeyID, cfg.Payment.RazorpayKeySecret, cfg.Payment.WebhookSecret, logger)
		if err != nil {
			logger.Fatal("Failed to create Razorpay gateway", zap.Error(err))
		}
		payments = payment.NewService(gateway, infra.Transactions, services.Stories, services.Gallery, notifier, cfg.Payment.Currency, logger)
	} else {
		logger.Warn("Razorpay keys not set, payment endpoints are disabled")
	}

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(handler.ZapLoggingMiddlewareForGin(logger))
	router.Use(gin.Recovery())
	router.Use(handler.CORS(cfg.HTTP.CORSAllowedOrigins, logger))
	router.Use(handler.MaxBodySize(cfg.HTTP.MaxBodyBytes))

	p := ginprometheus.NewPrometheus("gin")

	if infra.LocalBlobRoot != "" {
		router.Static("/blobs", infra.LocalBlobRoot)
	}
	if cfg.InlineDispatch() {
		router.GET("/metrics/worker", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	}

	apiHandler := handler.NewHandler(handler.Deps{
		Auth:     authSvc,
		Stories:  services.Stories,
		Gallery:  services.Gallery,
		Library:  services.Library,
		Payments: payments,
		Updates:  updates,
		Verify:   authSvc.Verify,
	}, logger)
	apiHandler.RegisterRoutes(router, handler.GenerationRateLimiter(infra.Redis, cfg.RateLimit.GenerationPerMinute, logger))

	// Prometheus подключается после регистрации маршрутов
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	updates.CloseAll()
	appCancel()
	if dispatcher != nil {
		dispatcher.Shutdown(shutdownCtx)
	}

	logger.Info("Server exiting")
}
