package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/azure-vote/internal/metrics"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor periodically pings the store and remembers the outcome. It only
// reports; requests keep going to the store whatever the last result was.
type Monitor struct {
	pinger    Pinger
	interval  time.Duration
	logger    *slog.Logger
	collector *metrics.Collector
	healthy   atomic.Bool
}

// NewMonitor starts out healthy because the service only boots after a
// successful ping. collector may be nil.
func NewMonitor(pinger Pinger, interval time.Duration, logger *slog.Logger, collector *metrics.Collector) *Monitor {
	m := &Monitor{
		pinger:    pinger,
		interval:  interval,
		logger:    logger,
		collector: collector,
	}
	m.healthy.Store(true)
	return m
}

func (m *Monitor) Healthy() bool {
	return m.healthy.Load()
}

// Run blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Store health check stopped")
			return

		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := m.pinger.Ping(pingCtx)
	healthy := err == nil

	if m.healthy.Swap(healthy) == healthy {
		return
	}

	if healthy {
		m.logger.Info("Store is back up")
	} else {
		m.logger.Warn("Store is down", slog.Any("err", err))
	}

	m.collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventStoreHealthChanged,
		Healthy: healthy,
	})
}

// Handler answers 200 while the last ping succeeded and 503 otherwise.
func (m *Monitor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !m.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}
}
