package tui

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/clients/go/notespace"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/session"
)

type fakeBackend struct {
	mu        sync.Mutex
	user      *models.User
	signInErr error
	postErr   error
	posts     []notespace.PostMessageRequest
	puts      map[string]*models.Cursor
	deletes   []string
	signOuts  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user: &models.User{ID: uuid.MustParse("0190f5a0-0000-7000-8000-000000000001"), Name: "Ada"},
		puts: map[string]*models.Cursor{},
	}
}

func (b *fakeBackend) PutCursor(_ context.Context, id string, c *models.Cursor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts[id] = c
	return nil
}

func (b *fakeBackend) DeleteCursor(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, id)
	return nil
}

func (b *fakeBackend) SignIn(context.Context) (*models.User, error) {
	if b.signInErr != nil {
		return nil, b.signInErr
	}
	return b.user, nil
}

func (b *fakeBackend) SignOut() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signOuts++
	return nil
}

func (b *fakeBackend) PostMessage(_ context.Context, req notespace.PostMessageRequest) (*notespace.PostMessageResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.postErr != nil {
		return nil, b.postErr
	}
	b.posts = append(b.posts, req)
	return &notespace.PostMessageResponse{ID: "01HNOTE", CreatedAt: 1}, nil
}

type fakeFeed struct {
	snaps  chan *models.Snapshot
	closed bool
}

func (f *fakeFeed) Next() (*models.Snapshot, error) {
	s, ok := <-f.snaps
	if !ok {
		return nil, errors.New("closed")
	}
	return s, nil
}

func (f *fakeFeed) Close() error {
	f.closed = true
	return nil
}

func newTestModel(t *testing.T, backend *fakeBackend) *Model {
	t.Helper()
	return New(Config{
		ClientID: "me",
		Backend:  backend,
		Subscribe: func(context.Context, string) (Feed, error) {
			return &fakeFeed{snaps: make(chan *models.Snapshot)}, nil
		},
		Logger:       zerolog.Nop(),
		NoteDistance: math.NaN(),
	})
}

func snapshot(stream string, kv ...string) *models.Snapshot {
	s := &models.Snapshot{Type: "snapshot", Stream: stream}
	for i := 0; i+1 < len(kv); i += 2 {
		s.Entries = append(s.Entries, models.SnapshotEntry{ID: kv[i], Value: json.RawMessage(kv[i+1])})
	}
	return s
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func connect(t *testing.T, m *Model) *fakeFeed {
	t.Helper()
	feed := &fakeFeed{snaps: make(chan *models.Snapshot)}
	m.Update(feedOpenedMsg{feed: feed})
	return feed
}

func TestSnapshotsPopulateSceneAndTimeline(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	feed := connect(t, m)

	m.Update(snapshotMsg{feed: feed, snap: snapshot(models.StreamMessages,
		"m1", `{"text":"first","author":"Ada","createdAt":1000}`,
		"m2", `{"text":"second","author":"Bob","position":{"x":1,"y":3,"z":-4}}`,
	)})
	if got := m.Scene().Messages.Len(); got != 2 {
		t.Fatalf("billboards = %d", got)
	}
	if ids := m.timeline.IDs(); len(ids) != 2 || ids[0] != "m1" {
		t.Fatalf("timeline = %v", ids)
	}

	m.Update(snapshotMsg{feed: feed, snap: snapshot(models.StreamMessages,
		"m2", `{"text":"second","author":"Bob"}`,
	)})
	if got := m.Scene().Messages.Len(); got != 1 {
		t.Fatalf("billboards after removal = %d", got)
	}
	if m.timeline.Len() != 1 {
		t.Fatalf("timeline after removal = %v", m.timeline.IDs())
	}
	if live := m.Scene().Graph.LiveResources(); live != 3 {
		t.Fatalf("live resources = %d, want 3 for one billboard", live)
	}
}

func TestOwnCursorIsSkipped(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	feed := connect(t, m)

	m.Update(snapshotMsg{feed: feed, snap: snapshot(models.StreamCursors,
		"me", `{"x":0,"y":1,"z":0,"displayName":"Me"}`,
		"other", `{"x":2,"y":1,"z":-3,"displayName":"Bob"}`,
	)})
	if ids := m.Scene().Cursors.IDs(); len(ids) != 1 || ids[0] != "other" {
		t.Fatalf("cursors = %v", ids)
	}
}

func TestStaleFeedSnapshotsIgnored(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	old := connect(t, m)
	connect(t, m)

	m.Update(snapshotMsg{feed: old, snap: snapshot(models.StreamMessages, "m1", `{"text":"x"}`)})
	if m.Scene().Messages.Len() != 0 {
		t.Fatal("snapshot from a replaced feed was applied")
	}
}

func TestFeedErrorSchedulesReconnect(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	feed := connect(t, m)
	if !m.connected {
		t.Fatal("not connected")
	}

	_, cmd := m.Update(feedErrMsg{feed: feed, err: errors.New("boom")})
	if cmd == nil {
		t.Fatal("expected a reconnect command")
	}
	if m.connected || !feed.closed {
		t.Fatalf("connected=%v closed=%v", m.connected, feed.closed)
	}
}

func TestComposeRequiresSignIn(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	m.Update(keyRunes("/"))
	if m.Session().InputOpen() {
		t.Fatal("input opened while signed out")
	}
	if got := m.Session().Status(); got != session.MsgSignInRequired {
		t.Fatalf("status = %q", got)
	}
}

func TestComposeAndSubmitNote(t *testing.T) {
	backend := newFakeBackend()
	m := newTestModel(t, backend)
	m.Update(signedInMsg{user: backend.user})

	m.Update(keyRunes("/"))
	if !m.Session().InputOpen() {
		t.Fatal("input did not open")
	}
	m.Update(keyRunes("hello there"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Session().InputOpen() {
		t.Fatal("input still open after enter")
	}
	if cmd == nil {
		t.Fatal("no post command")
	}
	msg := cmd()
	posted, ok := msg.(postedMsg)
	if !ok || posted.err != nil {
		t.Fatalf("post result = %#v", msg)
	}

	if len(backend.posts) != 1 {
		t.Fatalf("posts = %d", len(backend.posts))
	}
	req := backend.posts[0]
	if req.Text != "hello there" {
		t.Fatalf("text = %q", req.Text)
	}
	if !req.Position.Complete() || *req.Position.Y != 3 || *req.Position.Z != -8 {
		t.Fatalf("position = %+v", req.Position)
	}
	if req.RotationY == nil || *req.RotationY != 0 {
		t.Fatalf("rotation = %v", req.RotationY)
	}
	if req.Accent == "" {
		t.Fatal("missing accent")
	}
}

func TestEscapeCancelsCompose(t *testing.T) {
	backend := newFakeBackend()
	m := newTestModel(t, backend)
	m.Update(signedInMsg{user: backend.user})

	m.Update(keyRunes("/"))
	m.Update(keyRunes("draft"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if m.Session().InputOpen() || cmd != nil {
		t.Fatal("escape should only close the input")
	}
	if _, ok := m.Session().Pending(); ok {
		t.Fatal("pending placement kept after cancel")
	}
}

func TestPostFailureFlashes(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	m.Update(postedMsg{err: errors.New("down")})
	if got := m.Session().Status(); got != session.MsgSaveFailed {
		t.Fatalf("status = %q", got)
	}
}

func TestSignInFailureFlashes(t *testing.T) {
	backend := newFakeBackend()
	backend.signInErr = errors.New("nope")
	m := newTestModel(t, backend)

	_, cmd := m.Update(keyRunes("i"))
	m.Update(cmd())
	if got := m.Session().Status(); got != session.MsgSignInFailed {
		t.Fatalf("status = %q", got)
	}
}

func TestSignInPublishesAndSignOutClears(t *testing.T) {
	backend := newFakeBackend()
	m := newTestModel(t, backend)

	m.Update(signedInMsg{user: backend.user})
	m.presence.Wait()
	backend.mu.Lock()
	put := backend.puts["me"]
	backend.mu.Unlock()
	if put == nil || put.UID != backend.user.ID.String() {
		t.Fatalf("cursor not published on sign-in: %+v", put)
	}

	_, cmd := m.Update(keyRunes("i"))
	if cmd == nil {
		t.Fatal("no sign-out command")
	}
	backend.mu.Lock()
	deletes := len(backend.deletes)
	backend.mu.Unlock()
	if deletes != 0 {
		t.Fatal("cursor deleted inside Update")
	}

	msg := cmd()
	backend.mu.Lock()
	deleted, signOuts := backend.deletes, backend.signOuts
	backend.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "me" {
		t.Fatalf("deletes = %v", deleted)
	}
	if signOuts != 1 {
		t.Fatalf("sign-outs = %d", signOuts)
	}

	m.Update(msg)
	if m.Session().User() != nil {
		t.Fatal("still signed in")
	}
}

func TestSigningOutStopsPresence(t *testing.T) {
	backend := newFakeBackend()
	now := time.Unix(1000, 0)
	m := New(Config{
		ClientID:  "me",
		Backend:   backend,
		Subscribe: func(context.Context, string) (Feed, error) { return nil, errors.New("offline") },
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return now },
	})
	m.Update(signedInMsg{user: backend.user})
	m.presence.Wait()

	_, cmd := m.Update(keyRunes("i"))
	now = now.Add(time.Second)
	m.Update(tickMsg(now))
	if m.presence.Publish(true) {
		t.Fatal("cursor published while signing out")
	}
	if _, again := m.Update(keyRunes("i")); again != nil {
		t.Fatal("second sign-out started while one is running")
	}
	m.Update(cmd())
	if m.Session().User() != nil {
		t.Fatal("still signed in")
	}
}

func TestSignInReopensFeed(t *testing.T) {
	backend := newFakeBackend()
	var opened int
	m := New(Config{
		ClientID: "me",
		Backend:  backend,
		Subscribe: func(context.Context, string) (Feed, error) {
			opened++
			return &fakeFeed{snaps: make(chan *models.Snapshot)}, nil
		},
		Logger:       zerolog.Nop(),
		NoteDistance: math.NaN(),
	})
	old := connect(t, m)

	_, cmd := m.Update(signedInMsg{user: backend.user})
	if !old.closed || m.connected {
		t.Fatalf("unsigned feed kept: closed=%v connected=%v", old.closed, m.connected)
	}
	if cmd == nil {
		t.Fatal("no reconnect command")
	}
	if _, ok := cmd().(feedOpenedMsg); !ok || opened != 1 {
		t.Fatalf("feed not reopened, opened=%d", opened)
	}
}

func TestMovementPublishesThrottled(t *testing.T) {
	backend := newFakeBackend()
	now := time.Unix(1000, 0)
	m := New(Config{
		ClientID:  "me",
		Backend:   backend,
		Subscribe: func(context.Context, string) (Feed, error) { return nil, errors.New("offline") },
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return now },
	})
	m.Update(signedInMsg{user: backend.user})
	m.presence.Wait()

	m.Update(keyRunes("w"))
	m.presence.Wait()
	backend.mu.Lock()
	z := *backend.puts["me"].Z
	backend.mu.Unlock()
	if z != 0 {
		t.Fatalf("move inside throttle window was published: z=%v", z)
	}

	now = now.Add(200 * time.Millisecond)
	m.Update(keyRunes("w"))
	m.presence.Wait()
	backend.mu.Lock()
	z = *backend.puts["me"].Z
	backend.mu.Unlock()
	if z != -2 {
		t.Fatalf("z = %v, want -2", z)
	}
}

func TestViewRendersStatusAndTimeline(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	feed := connect(t, m)
	m.Update(snapshotMsg{feed: feed, snap: snapshot(models.StreamMessages,
		"m1", `{"text":"visible note","author":"Ada","position":{"x":0,"y":3,"z":-6}}`,
	)})

	out := m.View()
	for _, want := range []string{"Notespace", "visible note", "Signed out"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestCloseClearsCursor(t *testing.T) {
	backend := newFakeBackend()
	m := newTestModel(t, backend)
	feed := connect(t, m)
	m.Update(signedInMsg{user: backend.user})

	m.Close(context.Background())
	if !feed.closed {
		t.Fatal("feed not closed")
	}
	if len(backend.deletes) != 1 {
		t.Fatalf("deletes = %v", backend.deletes)
	}
}
