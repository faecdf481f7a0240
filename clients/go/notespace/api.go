package notespace

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// Wire types shared with the server.
type (
	RegisterRequest     = models.RegisterRequest
	RegisterResponse    = models.RegisterResponse
	PostMessageRequest  = models.PostMessageRequest
	PostMessageResponse = models.PostMessageResponse
	MessageResponse     = models.MessageResponse
	SearchResult        = models.SearchResult
	SearchResponse      = models.SearchResponse
	HealthResponse      = models.HealthResponse
	NotePreview         = models.NotePreview
	StatsResponse       = models.StatsResponse
)

// Profile is a user's public profile.
type Profile models.WhoResponse

// User converts a profile to the model type.
func (p *Profile) User() (*models.User, error) {
	u := &models.User{PublicKey: p.PublicKey, Name: p.Name, Email: p.Email}
	if err := u.ID.UnmarshalText([]byte(p.ID)); err != nil {
		return nil, fmt.Errorf("profile id: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, p.JoinedAt); err == nil {
		u.CreatedAt = t
	}
	return u, nil
}

// Register signs in, creating the account on first use. An existing keypair
// is reused; otherwise a new one is generated. Credentials are saved.
func (c *Client) Register(ctx context.Context, name, email string) (*RegisterResponse, error) {
	if c.PrivateKey == nil {
		if err := c.GenerateKeypair(); err != nil {
			return nil, err
		}
	}

	var resp RegisterResponse
	req := RegisterRequest{
		PublicKey: base64.StdEncoding.EncodeToString(c.PublicKey),
		Name:      name,
		Email:     email,
	}
	if err := c.call(ctx, http.MethodPost, "/register", req, false, &resp); err != nil {
		return nil, err
	}

	c.UserID = resp.ID
	if name != "" {
		c.Name = name
	}
	if email != "" {
		c.Email = email
	}
	if err := c.SaveConfig(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignIn returns the current user, registering the saved name and email
// first when no user id is known.
func (c *Client) SignIn(ctx context.Context) (*models.User, error) {
	if !c.SignedIn() {
		if _, err := c.Register(ctx, c.Name, c.Email); err != nil {
			return nil, err
		}
	}
	return c.Me(ctx)
}

// Who gets a user's profile.
func (c *Client) Who(ctx context.Context, userID string) (*Profile, error) {
	return get[Profile](ctx, c, "/who/"+url.PathEscape(userID))
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	if !c.SignedIn() {
		return nil, ErrNotSignedIn
	}
	p, err := c.Who(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	return p.User()
}

// PostMessage places a note.
func (c *Client) PostMessage(ctx context.Context, req PostMessageRequest) (*PostMessageResponse, error) {
	var resp PostMessageResponse
	if err := c.call(ctx, http.MethodPost, "/messages", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Message returns one note.
func (c *Client) Message(ctx context.Context, id string) (*MessageResponse, error) {
	return get[MessageResponse](ctx, c, "/messages/"+url.PathEscape(id))
}

// DeleteMessage removes one of the user's notes.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil, true, nil)
}

// PutCursor writes the cursor record of client session id.
func (c *Client) PutCursor(ctx context.Context, id string, cursor *models.Cursor) error {
	return c.call(ctx, http.MethodPut, "/cursors/"+url.PathEscape(id), cursor, true, nil)
}

// DeleteCursor removes the cursor record of client session id.
func (c *Client) DeleteCursor(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/cursors/"+url.PathEscape(id), nil, true, nil)
}

// Messages returns the current messages snapshot.
func (c *Client) Messages(ctx context.Context) (*models.Snapshot, error) {
	return get[models.Snapshot](ctx, c, "/messages")
}

// Cursors returns the current cursors snapshot.
func (c *Client) Cursors(ctx context.Context) (*models.Snapshot, error) {
	return get[models.Snapshot](ctx, c, "/cursors")
}

// Search finds notes containing every word of query.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	return get[SearchResponse](ctx, c, "/find?"+q.Encode())
}

// Health checks server health. A degraded server answers 503, which is
// returned as an *APIError.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return get[HealthResponse](ctx, c, "/health")
}

// Stats returns space-wide counters.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	return get[StatsResponse](ctx, c, "/stats")
}
