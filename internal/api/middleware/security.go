package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// pathFragments never appear in a legitimate path: record ids are
// [A-Za-z0-9_-] and user ids are UUIDs.
var pathFragments = []string{"..", "//"}

// markupFragments are rejected in paths and queries alike. Search text may
// contain dots and slashes, so queries are only checked for markup.
var markupFragments = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
}

// SecurityHeaders adds security headers to all responses. Snapshots are
// live state, so nothing is cacheable.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'")
		h.Set("Cache-Control", "no-store")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodySize limits request body size. Notes and cursors are a few hundred
// bytes.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				jsonError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateRequest rejects non-JSON bodies, websocket upgrades anywhere but
// the feed, and paths or queries carrying blocked fragments.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 && r.Method != http.MethodGet {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				jsonError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
				return
			}
		}

		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") && r.URL.Path != "/ws" {
			jsonError(w, http.StatusBadRequest, "websocket upgrades are only served on /ws")
			return
		}

		path := r.URL.Path
		query, _ := url.QueryUnescape(r.URL.RawQuery)
		if containsAny(path, pathFragments) || containsAny(path, markupFragments) || containsAny(query, markupFragments) {
			jsonError(w, http.StatusBadRequest, "invalid request")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func containsAny(s string, fragments []string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
