package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notespace_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notespace_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notespace_users_registered_total",
			Help: "Total users registered",
		},
	)

	NotesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notespace_notes_posted_total",
			Help: "Total notes placed",
		},
	)

	NotesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notespace_notes_deleted_total",
			Help: "Total notes deleted",
		},
	)

	CursorUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notespace_cursor_updates_total",
			Help: "Total cursor records written",
		},
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notespace_search_queries_total",
			Help: "Total search queries",
		},
	)

	// Feed metrics
	SnapshotsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notespace_snapshots_broadcast_total",
			Help: "Full stream snapshots fanned out to subscribers",
		},
		[]string{"stream"},
	)

	WebsocketSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notespace_websocket_subscribers",
			Help: "Connected snapshot feed subscribers",
		},
	)

	SlowSubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notespace_slow_subscribers_dropped_total",
			Help: "Subscribers disconnected for falling behind",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notespace_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notespace_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notespace_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	DatabaseLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notespace_database_latency_seconds",
			Help:    "User database query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
