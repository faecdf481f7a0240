package handlers

import (
	"fmt"
	"net/http"

	"github.com/glaseagle/3DAuth-FireStore/internal/crypto"
	"github.com/glaseagle/3DAuth-FireStore/internal/metrics"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// Register handles user registration. Registering a known key again
// returns the existing user and applies a changed name or email.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.PublicKey == "" {
		h.Error(w, http.StatusBadRequest, "public_key is required")
		return
	}

	if _, err := crypto.ValidatePublicKey(req.PublicKey); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid public_key: must be base64-encoded Ed25519 public key (32 bytes)")
		return
	}

	name := sanitizeName(req.Name)
	email := req.Email
	if !isValidEmail(email) {
		h.Error(w, http.StatusBadRequest, "invalid email format")
		return
	}

	existing, err := h.users.GetUserByPublicKey(r.Context(), req.PublicKey)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	if existing != nil {
		if (name != "" && name != existing.Name) || (email != "" && email != existing.Email) {
			if name == "" {
				name = existing.Name
			}
			if email == "" {
				email = existing.Email
			}
			updated, err := h.users.UpdateUserProfile(r.Context(), existing.ID, name, email)
			if err != nil || updated == nil {
				h.Error(w, http.StatusInternalServerError, "failed to update user")
				return
			}
			existing = updated
		}
		h.JSON(w, http.StatusOK, models.RegisterResponse{
			ID:          existing.ID.String(),
			DisplayName: existing.FriendlyName(),
			ProfileURL:  fmt.Sprintf("/who/%s", existing.ID.String()),
		})
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.PublicKey, name, email)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	metrics.UsersRegistered.Inc()

	h.JSON(w, http.StatusCreated, models.RegisterResponse{
		ID:          user.ID.String(),
		DisplayName: user.FriendlyName(),
		ProfileURL:  fmt.Sprintf("/who/%s", user.ID.String()),
	})
}
