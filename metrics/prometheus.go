package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name
const Namespace = "respkv"

// Prometheus collects node metrics on its own registry
type Prometheus struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	connections     prometheus.Gauge
	connectionsSeen prometheus.Counter
	errors          *prometheus.CounterVec
	handshake       prometheus.Histogram
	keyEvents       *prometheus.CounterVec
}

// NewPrometheus creates and registers all collectors, together with the Go
// runtime and process collectors
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Number of commands executed by the engine loop",
		}, []string{"cmd"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent executing a command on the engine loop",
			Buckets:   prometheus.ExponentialBuckets(0.000005, 4, 10),
		}, []string{"cmd"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connected_clients",
			Help:      "Number of open client connections",
		}),
		connectionsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connections_total",
			Help:      "Number of accepted client connections",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Number of errors by type",
		}, []string{"type"}),
		handshake: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "replication_handshake_seconds",
			Help:      "Duration of successful handshakes with the master",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		keyEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "key_events_total",
			Help:      "Number of keys written or removed after expiring",
		}, []string{"event"}),
	}

	p.registry.MustRegister(
		p.commands,
		p.commandDuration,
		p.connections,
		p.connectionsSeen,
		p.errors,
		p.handshake,
		p.keyEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// RecordCommandProcessed records an executed command and how long it took
func (p *Prometheus) RecordCommandProcessed(cmd string, duration time.Duration) {
	p.commands.WithLabelValues(cmd).Inc()
	p.commandDuration.WithLabelValues(cmd).Observe(duration.Seconds())
}

// RecordConnection tracks a connection opening or closing
func (p *Prometheus) RecordConnection(open bool) {
	if open {
		p.connections.Inc()
		p.connectionsSeen.Inc()
		return
	}
	p.connections.Dec()
}

// RecordHandshake records a completed replication handshake
func (p *Prometheus) RecordHandshake(duration time.Duration) {
	p.handshake.Observe(duration.Seconds())
}

// RecordKeyEvent counts a storage event ("set" or "expired")
func (p *Prometheus) RecordKeyEvent(event string) {
	p.keyEvents.WithLabelValues(event).Inc()
}

// RecordError counts an error of the given type
func (p *Prometheus) RecordError(errorType string) {
	p.errors.WithLabelValues(errorType).Inc()
}

// Registry returns the registry holding every collector
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler returns an HTTP handler exposing the registry
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Serve exposes /metrics on addr until ctx is done
func (p *Prometheus) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
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
