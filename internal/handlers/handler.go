package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

// emailRegex is a simplified RFC 5322 address check.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// recordIDRegex limits client-chosen record ids to URL-safe characters.
var recordIDRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,128}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	users store.DataStore
	redis *store.RedisStore
}

// NewHandler creates a new Handler with the given stores.
func NewHandler(users store.DataStore, redis *store.RedisStore) *Handler {
	return &Handler{users: users, redis: redis}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into dst, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

const maxNameRunes = 100

// sanitizeName strips control characters and surrounding space, then caps
// the result at maxNameRunes.
func sanitizeName(name string) string {
	name = strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name))
	if runes := []rune(name); len(runes) > maxNameRunes {
		name = string(runes[:maxNameRunes])
	}
	return name
}

// isValidEmail accepts the empty string; email is optional.
func isValidEmail(email string) bool {
	return email == "" || (len(email) <= 254 && emailRegex.MatchString(email))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// allFinite reports whether every non-nil coordinate is a real number.
func allFinite(vs ...*float64) bool {
	for _, v := range vs {
		if v != nil && !isFinite(*v) {
			return false
		}
	}
	return true
}
