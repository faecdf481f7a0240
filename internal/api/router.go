package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/internal/api/middleware"
	"github.com/glaseagle/3DAuth-FireStore/internal/handlers"
	"github.com/glaseagle/3DAuth-FireStore/internal/hub"
	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

// defaultMaxBody fits a 500-byte note with headroom for the JSON envelope.
const defaultMaxBody = 8 * 1024

// Options tunes the middleware stack.
type Options struct {
	RateLimits  middleware.RateLimiterConfig
	MaxBodySize int64 // defaults to 8KB
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, users store.DataStore, redisStore *store.RedisStore, feed *hub.Hub, opts Options) *chi.Mux {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBody
	}
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(opts.MaxBodySize))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisStore.Client(), logger, opts.RateLimits)
	r.Use(limiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderUser, middleware.HeaderNonce, middleware.HeaderTimestamp, middleware.HeaderSignature},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(users, redisStore)
	auth := middleware.NewAuthMiddleware(users, redisStore)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/api", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/register", h.Register)
	r.Get("/who/{id}", h.Who)
	r.Get("/messages", h.ListMessages)
	r.Get("/messages/{id}", h.GetMessage)
	r.Get("/cursors", h.ListCursors)
	r.Get("/find", h.Search)
	r.With(auth.OptionalAuth).Get("/ws", feed.ServeWS)

	// Authenticated routes (require signature)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/messages", h.PostMessage)
		r.Delete("/messages/{id}", h.DeleteMessage)
		r.Put("/cursors/{id}", h.PutCursor)
		r.Delete("/cursors/{id}", h.DeleteCursor)
	})

	return r
}
