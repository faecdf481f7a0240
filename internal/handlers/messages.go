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

const maxNoteLength = 500

// ListMessages returns the full ordered messages snapshot.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	h.snapshot(w, r, models.StreamMessages)
}

// ListCursors returns the cursors snapshot.
func (h *Handler) ListCursors(w http.ResponseWriter, r *http.Request) {
	h.snapshot(w, r, models.StreamCursors)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request, stream string) {
	snap, err := h.redis.Snapshot(r.Context(), stream)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load "+stream)
		return
	}
	h.JSON(w, http.StatusOK, snap)
}

// GetMessage returns one note.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !recordIDRegex.MatchString(id) {
		h.Error(w, http.StatusBadRequest, "invalid message ID format")
		return
	}

	msg, err := h.redis.GetMessage(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "message not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to fetch message")
		return
	}

	h.JSON(w, http.StatusOK, models.MessageResponse{ID: id, Message: *msg})
}

// PostMessage places a note authored by the authenticated user.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req models.PostMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		h.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(text) > maxNoteLength {
		h.Error(w, http.StatusUnprocessableEntity, "text too long (max 500 bytes)")
		return
	}

	if req.Position != nil && !allFinite(req.Position.X, req.Position.Y, req.Position.Z) {
		h.Error(w, http.StatusBadRequest, "position must be finite")
		return
	}
	if !allFinite(req.RotationY) {
		h.Error(w, http.StatusBadRequest, "rotationY must be finite")
		return
	}

	uid := user.ID.String()
	accent := strings.TrimSpace(req.Accent)
	if len(accent) > 64 {
		accent = ""
	}
	accent = geom.ResolveColor(accent, uid)

	name := user.FriendlyName()
	msg := &models.Message{
		Text:        text,
		UID:         uid,
		Author:      name,
		DisplayName: name,
		Accent:      accent,
		Position:    req.Position,
		RotationY:   req.RotationY,
	}

	id, err := h.redis.AddMessage(r.Context(), msg)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}
	metrics.NotesPosted.Inc()

	h.JSON(w, http.StatusCreated, models.PostMessageResponse{
		ID:        id,
		CreatedAt: msg.CreatedAt,
	})
}

// DeleteMessage removes a note. Only its author may delete it.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if !recordIDRegex.MatchString(id) {
		h.Error(w, http.StatusBadRequest, "invalid message ID format")
		return
	}

	err := h.redis.DeleteMessage(r.Context(), id, user.ID.String())
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.Error(w, http.StatusNotFound, "message not found")
	case errors.Is(err, store.ErrForbidden):
		h.Error(w, http.StatusForbidden, "only the author may delete a message")
	case err != nil:
		h.Error(w, http.StatusInternalServerError, "failed to delete message")
	default:
		metrics.NotesDeleted.Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}
