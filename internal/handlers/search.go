package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/glaseagle/3DAuth-FireStore/internal/metrics"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

const (
	maxQueryLen    = 100
	maxQueryTokens = 5
	defaultHits    = 20
	maxHits        = 100
)

var stopWords = map[string]bool{
	"the": true, "and": true, "are": true, "was": true, "were": true,
	"for": true, "that": true, "this": true, "with": true, "from": true,
	"into": true, "like": true,
}

// queryTerms drops stop words and keeps at most maxQueryTokens terms.
func queryTerms(q string) []string {
	var terms []string
	for _, w := range store.Tokenize(q) {
		if stopWords[w] {
			continue
		}
		terms = append(terms, w)
		if len(terms) == maxQueryTokens {
			break
		}
	}
	return terms
}

// intParam parses a query parameter, returning def when absent or malformed.
func intParam(v url.Values, key string, def int64) int64 {
	n, err := strconv.ParseInt(v.Get(key), 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Search finds notes containing every term of ?q=, newest first. ?after=
// restricts hits to notes created after that millisecond timestamp.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := params.Get("q")
	switch {
	case query == "":
		h.Error(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	case len(query) > maxQueryLen:
		h.Error(w, http.StatusBadRequest, "query too long (max 100 chars)")
		return
	}

	limit := int(intParam(params, "limit", defaultHits))
	if limit <= 0 {
		limit = defaultHits
	}
	limit = min(limit, maxHits)
	after := intParam(params, "after", 0)

	metrics.SearchQueries.Inc()

	resp := models.SearchResponse{Query: query, Results: []models.SearchResult{}}
	terms := queryTerms(query)
	if len(terms) == 0 {
		h.JSON(w, http.StatusOK, resp)
		return
	}

	entries, err := h.redis.SearchMessages(r.Context(), terms, limit, after)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "search failed")
		return
	}

	for _, e := range entries {
		var msg models.Message
		if err := json.Unmarshal(e.Value, &msg); err != nil {
			continue
		}
		resp.Results = append(resp.Results, models.SearchResult{
			MessageID: e.ID,
			Author:    models.FriendlyName(msg.Author, ""),
			UID:       msg.UID,
			Text:      msg.Text,
			CreatedAt: msg.CreatedAt,
		})
	}
	resp.Total = len(resp.Results)

	h.JSON(w, http.StatusOK, resp)
}
