package models

// Request and response bodies of the HTTP API.

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	PublicKey string `json:"public_key"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ProfileURL  string `json:"profile_url"`
}

// WhoResponse represents the user profile response.
type WhoResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name"`
	PublicKey   string `json:"public_key"`
	JoinedAt    string `json:"joined_at"`
}

// PostMessageRequest represents the request body for placing a note.
type PostMessageRequest struct {
	Text      string   `json:"text"`
	Position  *Point   `json:"position,omitempty"`
	RotationY *float64 `json:"rotationY,omitempty"`
	Accent    string   `json:"accent,omitempty"`
}

// PostMessageResponse represents the response after placing a note.
type PostMessageResponse struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
}

// MessageResponse is a single note with its id.
type MessageResponse struct {
	ID string `json:"id"`
	Message
}

// SearchResult is one matching note.
type SearchResult struct {
	MessageID string `json:"id"`
	Author    string `json:"author"`
	UID       string `json:"uid,omitempty"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// SearchResponse represents the search response.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// NotePreview represents a preview of a note.
type NotePreview struct {
	ID        string `json:"id"`
	UID       string `json:"uid,omitempty"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalUsers    int64         `json:"total_users"`
	TotalNotes    int64         `json:"total_notes"`
	ActiveCursors int64         `json:"active_cursors"`
	LastActivity  string        `json:"last_activity"`
	RecentNotes   []NotePreview `json:"recent_notes"`
}

// HealthCheck is the outcome of one dependency check.
type HealthCheck struct {
	Status  string `json:"status"` // "pass" or "fail"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string                 `json:"status"` // "healthy" or "degraded"
	Version   string                 `json:"version"`
	Instance  string                 `json:"instance,omitempty"`
	Checks    map[string]HealthCheck `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// RootResponse describes the service.
type RootResponse struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Streams []string `json:"streams"`
	Feed    string   `json:"feed"`
}
