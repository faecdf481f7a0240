package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glaseagle/3DAuth-FireStore/internal/metrics"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

const version = "0.1.0"

type dependency struct {
	name    string
	ping    func(context.Context) error
	latency prometheus.Observer
}

func (h *Handler) dependencies() []dependency {
	var ps []dependency
	if h.users != nil {
		ps = append(ps, dependency{"database", h.users.Ping, metrics.DatabaseLatency})
	} else {
		ps = append(ps, dependency{name: "database"})
	}
	if h.redis != nil {
		ps = append(ps, dependency{"redis", h.redis.Ping, metrics.RedisLatency})
	} else {
		ps = append(ps, dependency{name: "redis"})
	}
	return ps
}

func pingDependency(ctx context.Context, p dependency) models.HealthCheck {
	if p.ping == nil {
		return models.HealthCheck{Status: "fail", Message: "not configured"}
	}
	start := time.Now()
	if err := p.ping(ctx); err != nil {
		return models.HealthCheck{Status: "fail", Message: "connection failed"}
	}
	elapsed := time.Since(start)
	p.latency.Observe(elapsed.Seconds())
	return models.HealthCheck{Status: "pass", Latency: elapsed.String()}
}

// Health reports 200 when every backing store answers, 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := models.HealthResponse{
		Status:    "healthy",
		Version:   version,
		Instance:  os.Getenv("NOTESPACE_INSTANCE"),
		Checks:    make(map[string]models.HealthCheck),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	for _, p := range h.dependencies() {
		c := pingDependency(ctx, p)
		resp.Checks[p.name] = c
		if c.Status != "pass" {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	h.JSON(w, code, resp)
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, models.RootResponse{
		Name:    "Notespace",
		Version: version,
		Streams: []string{models.StreamMessages, models.StreamCursors},
		Feed:    "/ws",
	})
}
