package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// Stats returns a summary of the space.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalUsers, err := h.users.CountUsers(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count users")
		return
	}

	totalNotes, err := h.redis.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count notes")
		return
	}

	activeCursors, err := h.redis.CountCursors(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count cursors")
		return
	}

	lastActivityTime, err := h.redis.LastMessageAt(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get last activity")
		return
	}

	lastActivity := "no activity yet"
	if lastActivityTime != nil {
		lastActivity = formatTimeAgo(*lastActivityTime)
	}

	entries, err := h.redis.RecentMessages(ctx, 5)
	if err != nil {
		// Non-fatal, continue with empty previews
		entries = nil
	}

	recent := make([]models.NotePreview, 0, len(entries))
	for _, e := range entries {
		var msg models.Message
		if err := json.Unmarshal(e.Value, &msg); err != nil {
			continue
		}

		// Truncate text if too long
		text := msg.Text
		if runes := []rune(text); len(runes) > 200 {
			text = string(runes[:197]) + "..."
		}

		recent = append(recent, models.NotePreview{
			ID:        e.ID,
			UID:       msg.UID,
			Author:    models.FriendlyName(msg.Author, ""),
			Text:      text,
			CreatedAt: msg.CreatedAt,
		})
	}

	h.JSON(w, http.StatusOK, models.StatsResponse{
		TotalUsers:    totalUsers,
		TotalNotes:    totalNotes,
		ActiveCursors: activeCursors,
		LastActivity:  lastActivity,
		RecentNotes:   recent,
	})
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	default:
		return plural(int(diff.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
