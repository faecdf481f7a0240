// Package tui is the terminal explorer: a top-down view of the space with
// live cursors, a note timeline and a single-line note input.
package tui

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/clients/go/notespace"
	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/presence"
	"github.com/glaseagle/3DAuth-FireStore/internal/reconcile"
	"github.com/glaseagle/3DAuth-FireStore/internal/scene"
	"github.com/glaseagle/3DAuth-FireStore/internal/session"
)

const (
	requestTimeout = 5 * time.Second
	clearTimeout   = 2 * time.Second
	reconnectDelay = 2 * time.Second
	frameInterval  = 200 * time.Millisecond
	timelineHeight = 6
	maxNoteLength  = 500
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A5A5A"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555"))
	inputStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

// Backend is the part of the space client the explorer uses.
type Backend interface {
	presence.Writer
	SignIn(ctx context.Context) (*models.User, error)
	SignOut() error
	PostMessage(ctx context.Context, req notespace.PostMessageRequest) (*notespace.PostMessageResponse, error)
}

// Feed delivers snapshots until it fails or is closed.
type Feed interface {
	Next() (*models.Snapshot, error)
	Close() error
}

// Subscriber opens a snapshot feed for a client session.
type Subscriber func(ctx context.Context, clientID string) (Feed, error)

// Config configures the explorer.
type Config struct {
	ClientID     string
	Backend      Backend
	Subscribe    Subscriber
	Logger       zerolog.Logger
	NoteDistance float64
	AutoSignIn   bool
	Now          func() time.Time
}

type (
	tickMsg       time.Time
	reconnectMsg  struct{}
	feedOpenedMsg struct{ feed Feed }
	snapshotMsg   struct {
		feed Feed
		snap *models.Snapshot
	}
	feedErrMsg struct {
		feed Feed
		err  error
	}
	signedInMsg struct {
		user *models.User
		err  error
	}
	signedOutMsg struct{ err error }
	postedMsg    struct {
		id  string
		err error
	}
)

// Model is the bubbletea model of the explorer. Every field is owned by
// the bubbletea update loop.
type Model struct {
	clientID   string
	backend    Backend
	subscribe  Subscriber
	logger     zerolog.Logger
	autoSignIn bool

	viewer   *Viewer
	scene    *scene.Scene
	timeline *Timeline
	messages *reconcile.Reconciler[models.Message]
	cursors  *reconcile.Reconciler[models.Cursor]
	session  *session.Session
	presence *presence.Publisher

	keys  keyMap
	help  help.Model
	input textinput.Model
	notes viewport.Model

	feed       Feed
	connected  bool
	signingOut bool
	quitting   bool
	width      int
	height     int
}

// New builds the explorer and its scene.
func New(cfg Config) *Model {
	m := &Model{
		clientID:   cfg.ClientID,
		backend:    cfg.Backend,
		subscribe:  cfg.Subscribe,
		logger:     cfg.Logger,
		autoSignIn: cfg.AutoSignIn,
		viewer:     NewViewer(),
		scene:      scene.New(scene.Viewport{Width: 80, Height: 24}),
		timeline:   NewTimeline(time.Local),
		keys:       defaultKeys(),
		help:       help.New(),
		notes:      viewport.New(78, timelineHeight),
		width:      80,
		height:     24,
	}

	m.messages = reconcile.New[models.Message](m.scene.Messages,
		reconcile.WithOrderedView[models.Message](m.timeline))
	m.cursors = reconcile.New[models.Cursor](m.scene.Cursors,
		reconcile.WithSkip(func(id string, _ *models.Cursor) bool { return id == m.clientID }))

	m.presence = presence.New(presence.Config{
		ClientID: cfg.ClientID,
		Source:   m.presenceState,
		Writer:   cfg.Backend,
		Logger:   cfg.Logger,
		Now:      cfg.Now,
	})
	m.session = session.New(session.Config{
		ClientID:     cfg.ClientID,
		Viewer:       m.viewer,
		Presence:     m.presence,
		Logger:       cfg.Logger,
		NoteDistance: cfg.NoteDistance,
		Now:          cfg.Now,
	})

	m.input = textinput.New()
	m.input.CharLimit = maxNoteLength
	m.input.Prompt = "✎ "
	m.input.Placeholder = m.session.Placeholder()

	return m
}

func (m *Model) presenceState() presence.State {
	user := m.session.User()
	if m.signingOut {
		user = nil
	}
	return presence.State{
		User:      user,
		Position:  m.viewer.Position(),
		Direction: m.viewer.Forward(),
	}
}

// Session exposes the session state, mainly for tests.
func (m *Model) Session() *session.Session { return m.session }

// Scene exposes the scene.
func (m *Model) Scene() *scene.Scene { return m.scene }

// Init starts the frame tick, the snapshot feed and, if configured, sign-in.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), m.connect()}
	if m.autoSignIn {
		cmds = append(cmds, m.signIn())
	}
	return tea.Batch(cmds...)
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		m.scene.Frame(m.viewer.Position())
		m.presence.Publish(false)
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case feedOpenedMsg:
		if m.quitting {
			msg.feed.Close()
			return m, nil
		}
		m.feed = msg.feed
		m.connected = true
		m.logger.Info().Str("client", m.clientID).Msg("snapshot feed connected")
		return m, listen(msg.feed)

	case snapshotMsg:
		if msg.feed != m.feed {
			return m, nil
		}
		m.applySnapshot(msg.snap)
		return m, listen(msg.feed)

	case feedErrMsg:
		if m.quitting || msg.feed != m.feed {
			return m, nil
		}
		m.logger.Warn().Err(msg.err).Msg("snapshot feed lost, reconnecting")
		if m.feed != nil {
			m.feed.Close()
		}
		m.feed = nil
		m.connected = false
		return m, tea.Tick(reconnectDelay, func(time.Time) tea.Msg { return reconnectMsg{} })

	case reconnectMsg:
		if m.quitting {
			return m, nil
		}
		return m, m.connect()

	case signedInMsg:
		if msg.err != nil {
			m.session.AuthFailed(true, msg.err)
			return m, nil
		}
		m.session.SignedIn(msg.user)
		m.input.Placeholder = m.session.Placeholder()
		if m.feed == nil {
			return m, nil
		}
		// The server drops the cursor of a closed signed feed.
		m.feed.Close()
		m.feed = nil
		m.connected = false
		return m, m.connect()

	case signedOutMsg:
		m.signingOut = false
		m.session.SignedOut()
		m.input.Blur()
		m.input.Placeholder = m.session.Placeholder()
		if msg.err != nil {
			m.session.AuthFailed(false, msg.err)
		}
		return m, nil

	case postedMsg:
		if msg.err != nil {
			m.session.SubmitFailed(msg.err)
		} else {
			m.logger.Debug().Str("id", msg.id).Msg("note saved")
		}
		return m, nil
	}

	if m.session.InputOpen() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session.InputOpen() {
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m, m.submit()
		case key.Matches(msg, m.keys.Cancel):
			m.closeInput()
			return m, nil
		case msg.Type == tea.KeyCtrlC:
			return m.quit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Compose):
		if !m.session.OpenInput() {
			return m, nil
		}
		m.input.SetValue("")
		m.input.Placeholder = m.session.Placeholder()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Auth):
		if m.signingOut {
			return m, nil
		}
		if m.session.User() == nil {
			return m, m.signIn()
		}
		return m, m.signOut()
	case key.Matches(msg, m.keys.Forward):
		m.viewer.Move(1, 0)
	case key.Matches(msg, m.keys.Back):
		m.viewer.Move(-1, 0)
	case key.Matches(msg, m.keys.Left):
		m.viewer.Move(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.viewer.Move(0, 1)
	case key.Matches(msg, m.keys.TurnLeft):
		m.viewer.Turn(-1)
	case key.Matches(msg, m.keys.TurnRight):
		m.viewer.Turn(1)
	default:
		return m, nil
	}
	m.presence.Publish(false)
	return m, nil
}

func (m *Model) submit() tea.Cmd {
	draft, ok := m.session.Submit(m.input.Value())
	m.closeInput()
	if !ok {
		return nil
	}
	return m.post(draft)
}

func (m *Model) closeInput() {
	m.session.CloseInput()
	m.input.SetValue("")
	m.input.Blur()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

// Close releases the feed and removes the local cursor. Call it after the
// program has exited.
func (m *Model) Close(ctx context.Context) {
	m.quitting = true
	if m.feed != nil {
		m.feed.Close()
		m.feed = nil
	}
	m.presence.Wait()
	if m.session.User() != nil {
		_ = m.presence.Clear(ctx)
	}
}

func (m *Model) applySnapshot(snap *models.Snapshot) {
	if snap == nil {
		return
	}
	switch snap.Stream {
	case models.StreamMessages:
		entries, err := reconcile.Decode[models.Message](snap)
		if err != nil {
			m.logger.Warn().Err(err).Str("stream", snap.Stream).Msg("ignoring malformed records")
		}
		res := m.messages.Apply(entries)
		m.notes.SetContent(m.timeline.Render())
		if res.Changed() {
			m.notes.GotoBottom()
		}
	case models.StreamCursors:
		entries, err := reconcile.Decode[models.Cursor](snap)
		if err != nil {
			m.logger.Warn().Err(err).Str("stream", snap.Stream).Msg("ignoring malformed records")
		}
		m.cursors.Apply(entries)
	default:
		m.logger.Debug().Str("stream", snap.Stream).Msg("ignoring unknown stream")
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.scene.Resize(scene.Viewport{Width: float64(width), Height: float64(height)})
	m.notes.Width = max(10, width-4)
	m.notes.Height = timelineHeight
	m.input.Width = max(10, width-8)
	m.help.Width = width
}

// View renders the explorer.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	radarW := max(20, m.width*3/5-2)
	radarH := max(7, m.height-timelineHeight-12)
	panelW := max(16, m.width-radarW-6)

	var pending *geom.Placement
	if p, ok := m.session.Pending(); ok {
		pending = &p
	}

	facing := statusStyle.Render("Nothing in view")
	if b, ok := Facing(m.scene, m.viewer); ok {
		facing = RenderBillboard(b, panelW-2)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(RenderRadar(m.scene, m.viewer, pending, radarW, radarH)),
		lipgloss.NewStyle().PaddingLeft(1).Width(panelW).Render(facing),
	)

	parts := []string{m.header(), body, boxStyle.Render(m.notes.View())}
	if m.session.InputOpen() {
		parts = append(parts, inputStyle.Render(m.input.View()))
	}
	parts = append(parts,
		statusStyle.Render(m.session.Status()),
		m.help.ShortHelpView(m.keys.help(m.session.InputOpen())),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) header() string {
	conn := offlineStyle.Render("offline")
	if m.connected {
		conn = onlineStyle.Render("live")
	}
	p := m.viewer.Position()
	heading := math.Mod(-m.viewer.Heading*180/math.Pi+360, 360)
	return fmt.Sprintf("%s  %s  notes %d  here %d  pos (%.1f, %.1f)  heading %.0f°",
		titleStyle.Render("Notespace"), conn,
		m.scene.Messages.Len(), m.scene.Cursors.Len(), p.X, p.Z, heading)
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) connect() tea.Cmd {
	subscribe, clientID := m.subscribe, m.clientID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		feed, err := subscribe(ctx, clientID)
		if err != nil {
			return feedErrMsg{err: err}
		}
		return feedOpenedMsg{feed: feed}
	}
}

func listen(feed Feed) tea.Cmd {
	return func() tea.Msg {
		snap, err := feed.Next()
		if err != nil {
			return feedErrMsg{feed: feed, err: err}
		}
		return snapshotMsg{feed: feed, snap: snap}
	}
}

func (m *Model) signIn() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		user, err := backend.SignIn(ctx)
		return signedInMsg{user: user, err: err}
	}
}

// signOut stops presence and removes the cursor record in the background,
// while the credentials can still sign the delete, then drops them. The
// session resets when signedOutMsg arrives.
func (m *Model) signOut() tea.Cmd {
	m.signingOut = true
	m.closeInput()

	pres, backend := m.presence, m.backend
	return func() tea.Msg {
		pres.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
		defer cancel()
		// Clear logs its own failure.
		_ = pres.Clear(ctx)
		return signedOutMsg{err: backend.SignOut()}
	}
}

func (m *Model) post(d session.Draft) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		yaw := d.RotationY
		resp, err := backend.PostMessage(ctx, notespace.PostMessageRequest{
			Text:      d.Text,
			Position:  models.NewPoint(d.Position.X, d.Position.Y, d.Position.Z),
			RotationY: &yaw,
			Accent:    d.Accent,
		})
		if err != nil {
			return postedMsg{err: err}
		}
		return postedMsg{id: resp.ID}
	}
}
