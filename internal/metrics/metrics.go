package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/key-management/internal/core/events"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "key_management"

// StatsSource reports the ledger's current counts.
type StatsSource interface {
	Counts() (totalKeys, heldKeys, activeUsers int)
}

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	movements    *prometheus.CounterVec
	keysAdded    prometheus.Counter
	keysDeleted  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(stats StatsSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		movements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "key_movements_total",
				Help:      "Committed key issues and returns",
			},
			[]string{"action"},
		),
		keysAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "keys_added_total",
				Help:      "Keys added to the registry",
			},
		),
		keysDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "keys_deleted_total",
				Help:      "Keys deleted from the registry, by whether they were held",
			},
			[]string{"held"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.movements,
		m.keysAdded,
		m.keysDeleted,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if stats != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "keys",
				Help:      "Keys in the registry",
			}, func() float64 {
				total, _, _ := stats.Counts()
				return float64(total)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "keys_held",
				Help:      "Keys currently issued",
			}, func() float64 {
				_, held, _ := stats.Counts()
				return float64(held)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "directory",
				Name:      "active_users",
				Help:      "Users allowed to authenticate or take keys",
			}, func() float64 {
				_, _, active := stats.Counts()
				return float64(active)
			}),
		)
	}

	return m
}

// Subscribe counts ledger events published on bus.
func (m *Metrics) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeKeyIssued, func(ctx context.Context, e events.Event) error {
		m.movements.WithLabelValues("taken").Inc()
		return nil
	})
	bus.Subscribe(events.EventTypeKeyReturned, func(ctx context.Context, e events.Event) error {
		m.movements.WithLabelValues("returned").Inc()
		return nil
	})
	bus.Subscribe(events.EventTypeKeyAdded, func(ctx context.Context, e events.Event) error {
		m.keysAdded.Inc()
		return nil
	})
	bus.Subscribe(events.EventTypeKeyDeleted, func(ctx context.Context, e events.Event) error {
		held := "false"
		if ev, ok := e.(*events.KeyRegistryEvent); ok && ev.Holder != "" {
			held = "true"
		}
		m.keysDeleted.WithLabelValues(held).Inc()
		return nil
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency labelled by the chi
// route pattern, so ids in paths do not explode the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
