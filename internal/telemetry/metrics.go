package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/engine"
)

// Metrics — Prometheus метрики выполнения задач.
//
// Реализует engine.Listener; подключается через Engine.AddListener.
type Metrics struct {
	registry *prometheus.Registry

	tasksTotal      *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	tasksInProgress prometheus.Gauge
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
}

var _ engine.Listener = (*Metrics)(nil)

// NewMetrics создаёт метрики в собственном registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forge",
			Name:      "tasks_total",
			Help:      "Task invocations by kind and outcome.",
		}, []string{"kind", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "forge",
			Name:      "task_duration_seconds",
			Help:      "Duration of task actions.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
		}, []string{"kind"}),
		tasksInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forge",
			Name:      "tasks_in_progress",
			Help:      "Task actions currently running.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forge",
			Name:      "runs_total",
			Help:      "Runs by trigger and final status.",
		}, []string{"trigger", "status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forge",
			Name:      "run_duration_seconds",
			Help:      "Duration of whole runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}

	m.registry.MustRegister(
		m.tasksTotal,
		m.taskDuration,
		m.tasksInProgress,
		m.runsTotal,
		m.runDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry возвращает registry метрик.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) TaskStarted(t *engine.Task) {
	m.tasksInProgress.Inc()
}

func (m *Metrics) TaskSkipped(t *engine.Task) {
	m.tasksTotal.WithLabelValues(t.Kind().String(), string(domain.TaskStatusSkipped)).Inc()
}

func (m *Metrics) TaskCompleted(t *engine.Task, d time.Duration) {
	m.tasksInProgress.Dec()
	m.tasksTotal.WithLabelValues(t.Kind().String(), string(domain.TaskStatusSucceeded)).Inc()
	m.taskDuration.WithLabelValues(t.Kind().String()).Observe(d.Seconds())
}

func (m *Metrics) TaskFailed(t *engine.Task, err error) {
	m.tasksInProgress.Dec()
	m.tasksTotal.WithLabelValues(t.Kind().String(), string(domain.TaskStatusFailed)).Inc()
}

// ObserveRun учитывает завершённый run.
func (m *Metrics) ObserveRun(run *domain.Run) {
	m.runsTotal.WithLabelValues(string(run.Trigger), string(run.Status)).Inc()
	m.runDuration.Observe(run.Duration().Seconds())
}

// Handler возвращает HTTP mux: /healthz + /metrics.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return mux
}

// Serve обслуживает Handler на addr до отмены ctx.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
