// Package notespace provides a client for the shared note space server.
package notespace

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glaseagle/3DAuth-FireStore/internal/crypto"
)

// DefaultURL is used when no server URL is given.
const DefaultURL = "http://localhost:8080"

// ErrNotSignedIn is returned by signed calls when no credentials are loaded.
var ErrNotSignedIn = errors.New("not signed in")

// Client talks to one server on behalf of at most one user.
type Client struct {
	BaseURL    string
	ConfigDir  string
	UserID     string
	Name       string
	Email      string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	HTTPClient *http.Client
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notespace error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// NewClient returns a client for baseURL with any credentials saved under
// $NOTESPACE_CONFIG (default ~/.notespace) already loaded.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	dir := os.Getenv("NOTESPACE_CONFIG")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".notespace")
	}

	c := &Client{
		BaseURL:    baseURL,
		ConfigDir:  dir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	_ = c.LoadConfig()
	return c
}

// SignedIn reports whether credentials are loaded.
func (c *Client) SignedIn() bool {
	return c.UserID != "" && c.PrivateKey != nil
}

func (c *Client) sign(h http.Header, body []byte) {
	nonce := crypto.NewNonce()
	ts := time.Now().UnixMilli()
	h.Set(crypto.HeaderUser, c.UserID)
	h.Set(crypto.HeaderNonce, nonce)
	h.Set(crypto.HeaderTimestamp, strconv.FormatInt(ts, 10))
	h.Set(crypto.HeaderSignature, crypto.SignRequest(c.PrivateKey, body, nonce, ts))
}

// call sends one request. in is JSON-encoded when non-nil; the response is
// decoded into out when out is non-nil and the body is not empty.
func (c *Client) call(ctx context.Context, method, path string, in any, signed bool, out any) error {
	if signed && !c.SignedIn() {
		return ErrNotSignedIn
	}

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		c.sign(req.Header, body)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func decodeAPIError(status int, data []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) != nil || e.Error == "" {
		e.Error = http.StatusText(status)
	}
	return &APIError{Status: status, Message: e.Error}
}

// get fetches an unsigned JSON resource.
func get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var out T
	if err := c.call(ctx, http.MethodGet, path, nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
