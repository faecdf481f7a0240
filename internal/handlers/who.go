package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// Who handles user profile lookup.
func (h *Handler) Who(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	h.JSON(w, http.StatusOK, models.WhoResponse{
		ID:          user.ID.String(),
		Name:        user.Name,
		Email:       user.Email,
		DisplayName: user.FriendlyName(),
		PublicKey:   user.PublicKey,
		JoinedAt:    user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
