package worker

import (
	"fmt"
	"os"
	"time"

	"kidzy-server/shared/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const jobName = "kidzy_generation_worker"

// Metrics - метрики задач генерации в собственном реестре.
// Воркер живет без HTTP-сервера, поэтому метрики отправляются в Pushgateway.
type Metrics struct {
	registry       *prometheus.Registry
	tasksReceived  *prometheus.CounterVec
	tasksSucceeded *prometheus.CounterVec
	tasksFailed    *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	pusher         *push.Pusher
	logger         *zap.Logger
}

// NewMetrics создает метрики. Пустой pushgatewayURL отключает отправку.
func NewMetrics(pushgatewayURL string, logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		tasksReceived: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "kidzy_worker_tasks_received_total",
			Help: "Total number of generation tasks received.",
		}, []string{"type"}),
		tasksSucceeded: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "kidzy_worker_tasks_succeeded_total",
			Help: "Total number of generation tasks successfully processed.",
		}, []string{"type"}),
		tasksFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "kidzy_worker_tasks_failed_total",
			Help: "Total number of generation tasks failed, partitioned by reason.",
		}, []string{"type", "reason"}),
		taskDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kidzy_worker_task_duration_seconds",
			Help:    "Duration of generation task processing.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"type"}),
		logger: logger.Named("WorkerMetrics"),
	}

	if pushgatewayURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())
		m.pusher = push.New(pushgatewayURL, jobName).Gatherer(registry).Grouping("instance", instanceID)
		m.logger.Info("Pushgateway pusher initialized", zap.String("url", pushgatewayURL), zap.String("instance", instanceID))
	}
	return m
}

// Registry - реестр для публикации метрик на /metrics, если воркер работает внутри сервера.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) received(t models.TaskType) {
	m.tasksReceived.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) succeeded(t models.TaskType) {
	m.tasksSucceeded.WithLabelValues(string(t)).Inc()
	m.push()
}

func (m *Metrics) failed(t models.TaskType, reason string) {
	m.tasksFailed.WithLabelValues(string(t), reason).Inc()
	m.push()
}

func (m *Metrics) observe(t models.TaskType, d time.Duration) {
	m.taskDuration.WithLabelValues(string(t)).Observe(d.Seconds())
}

func (m *Metrics) push() {
	if m.pusher == nil {
		return
	}
	if err := m.pusher.Push(); err != nil {
		m.logger.Error("Failed to push metrics to Pushgateway", zap.Error(err))
	}
}

// Cleanup удаляет метрики этого экземпляра из Pushgateway.
func (m *Metrics) Cleanup() {
	if m.pusher == nil {
		return
	}
	if err := m.pusher.Delete(); err != nil {
		m.logger.Error("Failed to delete metrics from Pushgateway", zap.Error(err))
	}
}
