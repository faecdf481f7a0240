package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/internal/api/middleware"
	"github.com/glaseagle/3DAuth-FireStore/internal/crypto"
	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/hub"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

type testUser struct {
	id   string
	priv ed25519.PrivateKey
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	users, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(users.Close)

	rs := store.NewRedisStoreFromClient(client)
	feed := hub.New(rs, nil, zerolog.Nop())

	srv := httptest.NewServer(NewRouter(zerolog.Nop(), users, rs, feed, Options{}))
	t.Cleanup(srv.Close)
	return srv
}

func register(t *testing.T, srv *httptest.Server, name string) testUser {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(models.RegisterRequest{
		PublicKey: base64.StdEncoding.EncodeToString(pub),
		Name:      name,
	})
	resp, err := http.Post(srv.URL+"/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	var out models.RegisterResponse
	json.NewDecoder(resp.Body).Decode(&out)
	return testUser{id: out.ID, priv: priv}
}

func signed(t *testing.T, u testUser, method, url string, payload interface{}) *http.Response {
	t.Helper()
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req, _ := http.NewRequest(method, url, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	nonceBytes := make([]byte, 16)
	rand.Read(nonceBytes)
	nonce := hex.EncodeToString(nonceBytes)
	ts := time.Now().UnixMilli()
	hash := sha256.Sum256(body)
	sig := ed25519.Sign(u.priv, crypto.SignaturePayload(hex.EncodeToString(hash[:]), nonce, ts))

	req.Header.Set(middleware.HeaderUser, u.id)
	req.Header.Set(middleware.HeaderNonce, nonce)
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderSignature, base64.StdEncoding.EncodeToString(sig))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func getSnapshot(t *testing.T, url string) models.Snapshot {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestPostAndListMessages(t *testing.T) {
	srv := newTestServer(t)
	ann := register(t, srv, "Ann")

	resp := signed(t, ann, http.MethodPost, srv.URL+"/messages", models.PostMessageRequest{
		Text:     "  hello space  ",
		Position: models.NewPoint(0, 3, -8),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post: status %d", resp.StatusCode)
	}

	snap := getSnapshot(t, srv.URL+"/messages")
	if snap.Stream != models.StreamMessages || len(snap.Entries) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	var msg models.Message
	json.Unmarshal(snap.Entries[0].Value, &msg)
	if msg.Text != "hello space" || msg.Author != "Ann" || msg.UID != ann.id {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Accent != geom.ColorForID(ann.id) {
		t.Errorf("expected default accent, got %q", msg.Accent)
	}
	if !msg.Position.Complete() || *msg.Position.Z != -8 {
		t.Errorf("position not kept: %+v", msg.Position)
	}
}

func TestPostMessageRequiresSignature(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/messages", "application/json", bytes.NewReader([]byte(`{"text":"hi"}`)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPostMessageRejectsBlankText(t *testing.T) {
	srv := newTestServer(t)
	ann := register(t, srv, "Ann")
	resp := signed(t, ann, http.MethodPost, srv.URL+"/messages", models.PostMessageRequest{Text: "   "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteMessageAuthorOnly(t *testing.T) {
	srv := newTestServer(t)
	ann := register(t, srv, "Ann")
	bob := register(t, srv, "Bob")

	resp := signed(t, ann, http.MethodPost, srv.URL+"/messages", models.PostMessageRequest{Text: "mine"})
	var created models.PostMessageResponse
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	resp = signed(t, bob, http.MethodDelete, srv.URL+"/messages/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	resp = signed(t, ann, http.MethodDelete, srv.URL+"/messages/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	if snap := getSnapshot(t, srv.URL+"/messages"); len(snap.Entries) != 0 {
		t.Fatalf("expected no messages, got %d", len(snap.Entries))
	}
}

func TestCursorOwnership(t *testing.T) {
	srv := newTestServer(t)
	ann := register(t, srv, "Ann")
	bob := register(t, srv, "Bob")

	x, y, z := 1.0, 3.0, -2.0
	cursor := models.Cursor{X: &x, Y: &y, Z: &z, DirZ: -1, UID: "spoofed", Color: "not-a-colour"}

	resp := signed(t, ann, http.MethodPut, srv.URL+"/cursors/session-a", cursor)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put: status %d", resp.StatusCode)
	}

	resp = signed(t, bob, http.MethodPut, srv.URL+"/cursors/session-a", cursor)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign overwrite, got %d", resp.StatusCode)
	}

	snap := getSnapshot(t, srv.URL+"/cursors")
	if len(snap.Entries) != 1 {
		t.Fatalf("expected one cursor, got %d", len(snap.Entries))
	}
	var got models.Cursor
	json.Unmarshal(snap.Entries[0].Value, &got)
	if got.UID != ann.id || got.DisplayName != "Ann" || got.Color != "" || got.UpdatedAt == 0 {
		t.Errorf("unexpected stored cursor %+v", got)
	}

	resp = signed(t, bob, http.MethodDelete, srv.URL+"/cursors/session-a", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign delete, got %d", resp.StatusCode)
	}
	resp = signed(t, ann, http.MethodDelete, srv.URL+"/cursors/session-a", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = signed(t, ann, http.MethodDelete, srv.URL+"/cursors/session-a", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for missing cursor, got %d", resp.StatusCode)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	key := base64.StdEncoding.EncodeToString(pub)

	post := func(name string) (int, models.RegisterResponse) {
		body := []byte(fmt.Sprintf(`{"public_key":%q,"name":%q}`, key, name))
		resp, err := http.Post(srv.URL+"/register", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out models.RegisterResponse
		json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, first := post("Ann")
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	status, again := post("Annie")
	if status != http.StatusOK || again.ID != first.ID || again.DisplayName != "Annie" {
		t.Fatalf("unexpected re-register %d %+v", status, again)
	}

	resp, err := http.Get(srv.URL + "/who/" + first.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var who models.WhoResponse
	json.NewDecoder(resp.Body).Decode(&who)
	if who.Name != "Annie" || who.PublicKey != key {
		t.Errorf("unexpected profile %+v", who)
	}
}

func TestReplayedNonceRejected(t *testing.T) {
	srv := newTestServer(t)
	ann := register(t, srv, "Ann")

	body := []byte(`{"text":"once"}`)
	nonce := "abcdefghijklmnopqrstuvwxyz"
	ts := time.Now().UnixMilli()
	hash := sha256.Sum256(body)
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(ann.priv, crypto.SignaturePayload(hex.EncodeToString(hash[:]), nonce, ts)))

	send := func() int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/messages", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUser, ann.id)
		req.Header.Set(middleware.HeaderNonce, nonce)
		req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(middleware.HeaderSignature, sig)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := send(); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if status := send(); status != http.StatusUnauthorized {
		t.Fatalf("expected replay to be rejected, got %d", status)
	}
}

func TestHealthAndStats(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health models.HealthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health.Status != "healthy" {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, health)
	}

	ann := register(t, srv, "Ann")
	signed(t, ann, http.MethodPost, srv.URL+"/messages", models.PostMessageRequest{Text: "first light"}).Body.Close()

	resp, err = http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats models.StatsResponse
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats.TotalUsers != 1 || stats.TotalNotes != 1 || len(stats.RecentNotes) != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.LastActivity != "just now" {
		t.Errorf("expected just now, got %q", stats.LastActivity)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	ann := register(t, srv, "Ann")
	signed(t, ann, http.MethodPost, srv.URL+"/messages", models.PostMessageRequest{Text: "meet at the fountain"}).Body.Close()
	signed(t, ann, http.MethodPost, srv.URL+"/messages", models.PostMessageRequest{Text: "lunch upstairs"}).Body.Close()

	resp, err := http.Get(srv.URL + "/find?q=fountain")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out models.SearchResponse
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Total != 1 || out.Results[0].Text != "meet at the fountain" || out.Results[0].Author != "Ann" {
		t.Fatalf("unexpected search result %+v", out)
	}
}
