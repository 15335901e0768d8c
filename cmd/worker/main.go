package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"kidzy-server/internal/app"
	"kidzy-server/internal/config"
	"kidzy-server/internal/worker"
	sharedLogger "kidzy-server/shared/logger"
	"kidzy-server/shared/messaging"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.InlineDispatch() {
		fmt.Println("RABBITMQ_URL is required for the generation worker")
		os.Exit(1)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "kidzy-worker",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("Starting generation worker...", zap.String("env", cfg.Env), zap.Int("workers", cfg.Story.Workers))

	mqCtx, mqCancel := context.WithCancel(context.Background())
	defer mqCancel()

	initCtx, initCancel := context.WithTimeout(mqCtx, 30*time.Second)
	infra, err := app.OpenInfra(initCtx, cfg, false, logger)
	initCancel()
	if err != nil {
		logger.Fatal("Failed to open infrastructure", zap.Error(err))
	}
	defer infra.Close()

	conn, err := messaging.Dial(mqCtx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ReconnectDelay, cfg.RabbitMQ.MaxAttempts, logger)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	publisher, err := messaging.NewRabbitMQPublisher(conn, cfg.RabbitMQ.TaskQueue, logger)
	if err != nil {
		logger.Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	services, err := app.NewServices(mqCtx, cfg, infra, publisher, publisher, logger)
	if err != nil {
		logger.Fatal("Failed to create services", zap.Error(err))
	}

	metrics := worker.NewMetrics(cfg.Metrics.PushgatewayURL, logger)
	defer metrics.Cleanup()
	taskHandler := worker.NewHandler(services.Stories, services.Gallery, metrics, logger)

	// Каждый консьюмер берет по одной задаче; задачи одной сессии сериализует блокировка генерации
	instance := app.InstanceID()
	var wg sync.WaitGroup
	for i := 0; i < max(cfg.Story.Workers, 1); i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tag := fmt.Sprintf("%s-%d", instance, n)
			if err := messaging.ConsumeTasks(mqCtx, conn, cfg.RabbitMQ.TaskQueue, tag, taskHandler, logger); err != nil {
				logger.Error("Task consumer stopped with error", zap.String("consumer", tag), zap.Error(err))
				// Без консьюмера процесс бесполезен: пусть оркестратор перезапустит его
				mqCancel()
			}
		}(i)
	}
	logger.Info("Generation worker started", zap.String("queue", cfg.RabbitMQ.TaskQueue))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-mqCtx.Done():
	}

	logger.Info("Shutting down generation worker...")
	mqCancel()
	wg.Wait()
	logger.Info("Generation worker shut down gracefully")
}
