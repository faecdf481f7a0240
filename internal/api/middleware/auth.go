package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/glaseagle/3DAuth-FireStore/internal/crypto"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

// Signed request headers.
const (
	HeaderUser      = crypto.HeaderUser
	HeaderNonce     = crypto.HeaderNonce
	HeaderTimestamp = crypto.HeaderTimestamp
	HeaderSignature = crypto.HeaderSignature
)

const (
	signatureWindow = 30 * time.Second
	// nonceTTL outlives the signature window so a replay cannot slip in
	// after the nonce expires.
	nonceTTL = 3 * time.Minute
)

type contextKey string

const UserContextKey contextKey = "user"

// NonceStore records used nonces.
type NonceStore interface {
	IsNonceUsed(ctx context.Context, userID, nonce string) bool
	MarkNonceUsed(ctx context.Context, userID, nonce string, ttl time.Duration)
}

// authError is a rejected signature check.
type authError struct {
	status int
	msg    string
}

func unauthorized(msg string) *authError {
	return &authError{http.StatusUnauthorized, msg}
}

// signedHeaders are the four headers every signed request carries.
type signedHeaders struct {
	user, nonce, signature string
	ts                     int64
}

// AuthMiddleware verifies signed requests against registered public keys.
type AuthMiddleware struct {
	users  store.DataStore
	nonces NonceStore
	window time.Duration
	now    func() time.Time
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(users store.DataStore, nonces NonceStore) *AuthMiddleware {
	return &AuthMiddleware{
		users:  users,
		nonces: nonces,
		window: signatureWindow,
		now:    time.Now,
	}
}

// RequireAuth rejects requests that are not signed by a registered user
// and puts the user on the context of those that are.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, aerr := m.authenticate(r)
		if aerr != nil {
			jsonError(w, aerr.status, aerr.msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth lets unsigned requests through without a user. A request
// that carries any signed header must verify like RequireAuth.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasSignedHeaders(r) {
			next.ServeHTTP(w, r)
			return
		}
		user, aerr := m.authenticate(r)
		if aerr != nil {
			jsonError(w, aerr.status, aerr.msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func hasSignedHeaders(r *http.Request) bool {
	for _, h := range []string{HeaderUser, HeaderNonce, HeaderTimestamp, HeaderSignature} {
		if r.Header.Get(h) != "" {
			return true
		}
	}
	return false
}

func parseSignedHeaders(r *http.Request) (signedHeaders, *authError) {
	h := signedHeaders{
		user:      r.Header.Get(HeaderUser),
		nonce:     r.Header.Get(HeaderNonce),
		signature: r.Header.Get(HeaderSignature),
	}
	raw := r.Header.Get(HeaderTimestamp)
	if h.user == "" || h.nonce == "" || raw == "" || h.signature == "" {
		return h, unauthorized("missing auth headers")
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return h, unauthorized("invalid timestamp format")
	}
	h.ts = ts
	if len(h.nonce) < crypto.MinNonceLength {
		return h, unauthorized("nonce must be at least 24 characters")
	}
	return h, nil
}

// authenticate runs the checks cheapest first: headers, clock, replay,
// user lookup, then the signature over the body.
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, *authError) {
	h, aerr := parseSignedHeaders(r)
	if aerr != nil {
		return nil, aerr
	}
	if !m.fresh(h.ts) {
		return nil, unauthorized("timestamp expired or too far in future")
	}
	if m.nonces.IsNonceUsed(r.Context(), h.user, h.nonce) {
		return nil, unauthorized("nonce already used")
	}

	id, err := uuid.Parse(h.user)
	if err != nil {
		return nil, unauthorized("invalid user ID format")
	}
	user, err := m.users.GetUserByID(r.Context(), id)
	if err != nil || user == nil {
		return nil, unauthorized("user not found")
	}
	pub, err := crypto.ValidatePublicKey(user.PublicKey)
	if err != nil {
		return nil, unauthorized("invalid user public key")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &authError{http.StatusBadRequest, "failed to read request body"}
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if err := crypto.VerifyRequest(pub, body, h.nonce, h.ts, h.signature); err != nil {
		return nil, unauthorized("invalid signature")
	}

	m.nonces.MarkNonceUsed(r.Context(), h.user, h.nonce, nonceTTL)
	return user, nil
}

// fresh accepts timestamps up to window old and none from the future.
func (m *AuthMiddleware) fresh(ts int64) bool {
	now := m.now().UnixMilli()
	return ts > now-m.window.Milliseconds() && ts <= now
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}

// WithUser returns a context carrying user, as RequireAuth would.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
