//go:build integration

package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kidzy-server/internal/testutil"
	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const testTaskQueue = "kidzy_generation_tasks_test"

// recordingHandler запоминает задачи и возвращает заданную ошибку.
type recordingHandler struct {
	mu    sync.Mutex
	tasks []models.GenerationTaskPayload
	err   error
}

func (h *recordingHandler) Handle(_ context.Context, p models.GenerationTaskPayload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, p)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tasks)
}

type RabbitMQSuite struct {
	suite.Suite
	container *rabbitmq.RabbitMQContainer
	conn      *amqp091.Connection
	publisher *messaging.RabbitMQPublisher
}

func (s *RabbitMQSuite) SetupSuite() {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(3*time.Minute),
		),
	)
	s.Require().NoError(err)
	s.container = container

	url, err := container.AmqpURL(ctx)
	s.Require().NoError(err)

	s.conn, err = messaging.Dial(ctx, url, time.Second, 10, zap.NewNop())
	s.Require().NoError(err)

	s.publisher, err = messaging.NewRabbitMQPublisher(s.conn, testTaskQueue, zap.NewNop())
	s.Require().NoError(err)
}

func (s *RabbitMQSuite) TearDownSuite() {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *RabbitMQSuite) TestTasksAreConsumedOnce() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{}
	done := make(chan error, 1)
	go func() {
		done <- messaging.ConsumeTasks(ctx, s.conn, testTaskQueue, "test-consumer", handler, zap.NewNop())
	}()

	pageID := 3
	s.Require().NoError(s.publisher.PublishGenerationTask(ctx, models.GenerationTaskPayload{
		TaskID: "t-1", Type: models.TaskTypeRegeneratePage, UserID: "u-1", SessionID: "s-1", PageID: &pageID,
	}))
	s.Require().NoError(s.publisher.PublishGenerationTask(ctx, models.GenerationTaskPayload{
		TaskID: "t-2", Type: models.TaskTypeFillPages, UserID: "u-1", SessionID: "s-1",
	}))

	s.Require().Eventually(func() bool { return handler.count() == 2 }, 10*time.Second, 50*time.Millisecond)
	handler.mu.Lock()
	s.Equal("t-1", handler.tasks[0].TaskID)
	s.Require().NotNil(handler.tasks[0].PageID)
	s.Equal(3, *handler.tasks[0].PageID)
	handler.mu.Unlock()

	cancel()
	s.NoError(<-done)
}

func (s *RabbitMQSuite) TestFailedTaskIsNotRequeued() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{err: errors.New("model unavailable")}
	done := make(chan error, 1)
	go func() {
		done <- messaging.ConsumeTasks(ctx, s.conn, testTaskQueue, "failing-consumer", handler, zap.NewNop())
	}()

	s.Require().NoError(s.publisher.PublishGenerationTask(ctx, models.GenerationTaskPayload{
		TaskID: "t-fail", Type: models.TaskTypeGallery, UserID: "u-1", SessionID: "g-1",
	}))

	s.Require().Eventually(func() bool { return handler.count() >= 1 }, 10*time.Second, 50*time.Millisecond)
	// Повторной доставки быть не должно
	time.Sleep(500 * time.Millisecond)
	s.Equal(1, handler.count())

	cancel()
	s.NoError(<-done)
}

func (s *RabbitMQSuite) TestClientUpdatesFanOutToEveryServer() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	received := map[string][]models.ClientUpdate{}
	sink := func(name string) messaging.ClientUpdatePublisher {
		return messaging.ClientUpdateFunc(func(_ context.Context, u models.ClientUpdate) error {
			mu.Lock()
			defer mu.Unlock()
			received[name] = append(received[name], u)
			return nil
		})
	}
	for _, name := range []string{"api-1", "api-2"} {
		go func(n string) {
			_ = messaging.ConsumeClientUpdates(ctx, s.conn, sink(n), zap.NewNop())
		}(name)
	}
	// Ждем привязки эксклюзивных очередей к exchange
	time.Sleep(500 * time.Millisecond)

	s.Require().NoError(s.publisher.PublishClientUpdate(ctx, models.ClientUpdate{
		UserID: "u-1", SessionID: "s-1", Event: "page_generated",
	}))

	s.Require().Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received["api-1"]) == 1 && len(received["api-2"]) == 1
	}, 10*time.Second, 50*time.Millisecond)
	mu.Lock()
	s.Equal("page_generated", received["api-1"][0].Event)
	mu.Unlock()
}

func TestRabbitMQSuite(t *testing.T) {
	testutil.RequireDocker(t)
	suite.Run(t, new(RabbitMQSuite))
}
