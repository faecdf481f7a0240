package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/internal/metrics"
)

// scope selects what a limit counts against.
type scope int

const (
	byIP scope = iota
	// byUser falls back to the IP when the request is unsigned.
	byUser
)

// RateLimit caps requests whose "METHOD /path" starts with Pattern.
type RateLimit struct {
	Pattern  string
	Requests int
	Window   time.Duration
	scope    scope
}

// routeLimits is ordered; the first matching pattern applies. Cursor writes
// get the most headroom because presence publishes every few hundred ms.
var routeLimits = []RateLimit{
	{"POST /register", 10, time.Hour, byIP},
	{"GET /who/", 100, time.Minute, byIP},
	{"GET /messages", 120, time.Minute, byUser},
	{"POST /messages", 30, time.Minute, byUser},
	{"DELETE /messages/", 60, time.Minute, byUser},
	{"GET /cursors", 300, time.Minute, byUser},
	{"PUT /cursors/", 600, time.Minute, byUser},
	{"DELETE /cursors/", 60, time.Minute, byUser},
	{"GET /find", 30, time.Minute, byIP},
	{"GET /stats", 60, time.Minute, byIP},
	{"GET /ws", 30, time.Minute, byIP},
}

const (
	violationLimit = 10
	blockDuration  = 24 * time.Hour
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist        []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool
}

// RateLimiter counts requests per key in fixed Redis windows.
type RateLimiter struct {
	client    *redis.Client
	limits    []RateLimit
	blocker   *IPBlocker
	logger    zerolog.Logger
	exempt    []*net.IPNet
	autoBlock bool
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		client:    client,
		limits:    routeLimits,
		blocker:   NewIPBlocker(client),
		logger:    logger,
		autoBlock: cfg.AutoBlockEnabled,
	}
	for _, entry := range cfg.Whitelist {
		n, err := parseNet(entry)
		if err != nil {
			logger.Warn().Str("entry", entry).Err(err).Msg("ignoring whitelist entry")
			continue
		}
		rl.exempt = append(rl.exempt, n)
	}
	if len(rl.exempt) > 0 {
		logger.Info().Int("entries", len(rl.exempt)).Msg("rate limit whitelist configured")
	}
	return rl
}

// parseNet accepts a CIDR or a bare IP, which becomes a single-host network.
func parseNet(entry string) (*net.IPNet, error) {
	if strings.Contains(entry, "/") {
		_, n, err := net.ParseCIDR(entry)
		return n, err
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil, &net.ParseError{Type: "IP address", Text: entry}
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

func (rl *RateLimiter) exempted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range rl.exempt {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// limitKey names the counter a request is charged to.
func limitKey(r *http.Request, s scope) string {
	if s == byUser {
		if id := r.Header.Get(HeaderUser); id != "" {
			return "ratelimit:user:" + id
		}
	}
	return "ratelimit:ip:" + RealIP(r)
}

// RealIP returns the client address. chi's RealIP middleware has already
// rewritten RemoteAddr from X-Forwarded-For / X-Real-IP by the time this runs.
func RealIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Allow charges one request to key and reports whether it fits in the
// current window, how many remain, and when the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time) {
	now := time.Now()
	bucket := now.Truncate(window)
	resetAt := bucket.Add(window)
	windowKey := key + ":" + strconv.FormatInt(bucket.Unix(), 10)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.ExpireAt(ctx, windowKey, resetAt.Add(time.Second))
	if _, err := pipe.Exec(ctx); err != nil {
		// Redis trouble should not take the API down with it.
		rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return true, limit, resetAt
	}

	count := int(incr.Val())
	return count <= limit, max(limit-count, 0), resetAt
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)
		if rl.exempted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.blocker.IsBlocked(r.Context(), ip) {
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "blocked_request").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("blocked IP attempted request")
			metrics.BlockedRequests.WithLabelValues("ip_block").Inc()
			jsonError(w, http.StatusForbidden, "temporarily blocked")
			return
		}

		limit := rl.findLimit(r)
		if limit == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := limitKey(r, limit.scope)
		allowed, remaining, resetAt := rl.Allow(r.Context(), key, limit.Requests, limit.Window)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			h.Set("Retry-After", strconv.Itoa(max(int(time.Until(resetAt).Seconds()), 1)))
			rl.recordViolation(r.Context(), ip)
			metrics.RateLimitHits.WithLabelValues(limit.Pattern).Inc()
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "rate_limit_exceeded").
				Str("ip", ip).
				Str("user", r.Header.Get(HeaderUser)).
				Str("endpoint", r.URL.Path).
				Msg("rate limit exceeded")
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) findLimit(r *http.Request) *RateLimit {
	route := r.Method + " " + r.URL.Path
	for i := range rl.limits {
		if strings.HasPrefix(route, rl.limits[i].Pattern) {
			return &rl.limits[i]
		}
	}
	return nil
}

// recordViolation blocks an IP once it trips limits violationLimit times
// within an hour.
func (rl *RateLimiter) recordViolation(ctx context.Context, ip string) {
	if !rl.autoBlock {
		return
	}
	key := "violations:ip:" + ip
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return
	}
	if n := incr.Val(); n >= violationLimit {
		rl.blocker.Block(ctx, ip, blockDuration, "repeated rate limit violations")
		rl.logger.Warn().
			Str("type", "security").
			Str("event", "ip_auto_blocked").
			Str("ip", ip).
			Int64("violations", n).
			Msg("IP auto-blocked")
	}
}

// IPBlocker keeps temporary IP blocks in Redis.
type IPBlocker struct {
	client *redis.Client
}

// NewIPBlocker creates a new IP blocker.
func NewIPBlocker(client *redis.Client) *IPBlocker {
	return &IPBlocker{client: client}
}

func blockKey(ip string) string { return "blocked:ip:" + ip }

// IsBlocked reports whether ip is currently blocked.
func (b *IPBlocker) IsBlocked(ctx context.Context, ip string) bool {
	n, _ := b.client.Exists(ctx, blockKey(ip)).Result()
	return n > 0
}

// Block blocks ip for d, storing reason as the value.
func (b *IPBlocker) Block(ctx context.Context, ip string, d time.Duration, reason string) {
	b.client.Set(ctx, blockKey(ip), reason, d)
}

// Unblock lifts a block early.
func (b *IPBlocker) Unblock(ctx context.Context, ip string) {
	b.client.Del(ctx, blockKey(ip))
}
