// Package metrics объявляет prometheus коллекторы клиента и сервера.
// Коллекторы регистрирует main через ClientCollectors / ServerCollectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for metric labels.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors for the client sync engine.
var (
	SyncPushedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_sync_pushed_total",
		Help: "Cumulative number of local changes applied by the remote store.",
	})
	SyncPulledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_sync_pulled_total",
		Help: "Cumulative number of remote records applied locally.",
	})
	SyncConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studysync_sync_conflicts_total",
		Help: "Cumulative number of resolved conflicts by outcome.",
	}, []string{"reason"})
	SyncParkedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_sync_parked_total",
		Help: "Cumulative number of changes rejected permanently by the remote store.",
	})
	SyncSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_sync_skipped_total",
		Help: "Cumulative number of malformed remote records skipped during pull.",
	})
	SyncRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_sync_retries_total",
		Help: "Cumulative number of changes rescheduled after a transient failure.",
	})
	SyncBackoffsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_sync_backoffs_total",
		Help: "Cumulative number of times the engine entered backoff.",
	})
	SyncState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "studysync_sync_state",
		Help: "Current sync engine state (0 suspended, 1 idle, 2 authenticating, 3 pushing, 4 pulling, 5 backoff).",
	})
	SyncPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "studysync_sync_pending_changes",
		Help: "Number of local changes waiting to be pushed.",
	})
	SyncCycleSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studysync_sync_cycle_seconds",
		Help:    "Duration of sync cycles by status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
)

// ClientCollectors returns client sync engine metric collectors.
func ClientCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		SyncPushedTotal,
		SyncPulledTotal,
		SyncConflictsTotal,
		SyncParkedTotal,
		SyncSkippedTotal,
		SyncRetriesTotal,
		SyncBackoffsTotal,
		SyncState,
		SyncPending,
		SyncCycleSeconds,
	}
}

// Collectors for the reference server.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studysync_http_requests_total",
		Help: "Cumulative number of HTTP requests by method and status code.",
	}, []string{"method", "code"})
	HTTPRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studysync_http_request_seconds",
		Help:    "HTTP request latency by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studysync_mutations_total",
		Help: "Cumulative number of record mutations by outcome (applied, conflict, rejected).",
	}, []string{"outcome"})
	RecordsServedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_records_served_total",
		Help: "Cumulative number of records returned by pull requests.",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studysync_rate_limited_total",
		Help: "Cumulative number of requests rejected by the rate limiter.",
	})
)

// ServerCollectors returns reference server metric collectors.
func ServerCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestSeconds,
		MutationsTotal,
		RecordsServedTotal,
		RateLimitedTotal,
	}
}
