package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRouteLabelUsesPattern(t *testing.T) {
	var label string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			label = routeLabel(req)
		})
	})
	r.Get("/messages/{id}", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/messages/01HX", nil))
	if label != "/messages/{id}" {
		t.Fatalf("label = %q", label)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if label != "unmatched" {
		t.Fatalf("label = %q", label)
	}
}
