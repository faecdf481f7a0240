package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/glaseagle/3DAuth-FireStore/internal/api/middleware"
	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/metrics"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

// PutCursor writes the caller's cursor record. The owner is always the
// authenticated user; a record owned by someone else is not overwritten.
func (h *Handler) PutCursor(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if !recordIDRegex.MatchString(id) {
		h.Error(w, http.StatusBadRequest, "invalid cursor ID format")
		return
	}

	var c models.Cursor
	if !h.decode(w, r, &c) {
		return
	}

	if !allFinite(c.X, c.Y, c.Z, &c.DirX, &c.DirY, &c.DirZ) {
		h.Error(w, http.StatusBadRequest, "coordinates must be finite")
		return
	}

	c.UID = user.ID.String()
	c.DisplayName = sanitizeName(c.DisplayName)
	if c.DisplayName == "" {
		c.DisplayName = user.FriendlyName()
	}
	c.Color = strings.TrimSpace(c.Color)
	if _, ok := geom.ParseColor(c.Color); !ok || len(c.Color) > 64 {
		c.Color = ""
	}
	c.UpdatedAt = 0

	err := h.redis.PutCursor(r.Context(), id, &c)
	switch {
	case errors.Is(err, store.ErrForbidden):
		h.Error(w, http.StatusForbidden, "cursor owned by another user")
	case err != nil:
		h.Error(w, http.StatusInternalServerError, "failed to store cursor")
	default:
		metrics.CursorUpdates.Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteCursor removes the caller's cursor record. Deleting a missing
// record succeeds.
func (h *Handler) DeleteCursor(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if !recordIDRegex.MatchString(id) {
		h.Error(w, http.StatusBadRequest, "invalid cursor ID format")
		return
	}

	_, err := h.redis.DeleteCursor(r.Context(), id, user.ID.String())
	switch {
	case errors.Is(err, store.ErrForbidden):
		h.Error(w, http.StatusForbidden, "cursor owned by another user")
	case err != nil:
		h.Error(w, http.StatusInternalServerError, "failed to delete cursor")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
