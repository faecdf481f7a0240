// Package session tracks who is signed in, the note being composed and the
// status line, and reacts to sign-in and sign-out.
package session

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// StatusTimeout is how long a flashed status message stays up.
const StatusTimeout = 4 * time.Second

// Status messages.
const (
	MsgSignInRequired = "Sign in to add a note."
	MsgSaveFailed     = "Failed to save message. Try again."
	MsgSignInFailed   = "Sign-in failed. Try again."
	MsgSignOutFailed  = "Sign-out failed. Please retry."
)

// Viewer reports where the local viewer is and where it looks.
type Viewer interface {
	Position() geom.Vec3
	Forward() geom.Vec3
}

// Presence is the part of the presence publisher a session drives.
type Presence interface {
	Publish(force bool) bool
}

// Draft is a note ready to be sent.
type Draft struct {
	Text      string
	Position  geom.Vec3
	RotationY float64
	Accent    string
}

// Config configures a Session.
type Config struct {
	ClientID     string
	Viewer       Viewer
	Presence     Presence
	Logger       zerolog.Logger
	NoteDistance float64 // NaN selects geom.DefaultNoteDistance
	Now          func() time.Time
}

// Session is driven from a single goroutine; it does no locking.
type Session struct {
	clientID string
	viewer   Viewer
	presence Presence
	logger   zerolog.Logger
	distance float64
	now      func() time.Time

	user *models.User

	inputOpen bool
	pending   *geom.Placement

	flash      string
	flashUntil time.Time
}

// New creates a signed-out session.
func New(cfg Config) *Session {
	s := &Session{
		clientID: cfg.ClientID,
		viewer:   cfg.Viewer,
		presence: cfg.Presence,
		logger:   cfg.Logger,
		distance: cfg.NoteDistance,
		now:      cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// User returns the signed-in user, or nil.
func (s *Session) User() *models.User {
	return s.user
}

// SignedIn records a sign-in and publishes presence right away.
func (s *Session) SignedIn(u *models.User) {
	s.user = u
	s.flash = ""
	if s.presence != nil {
		s.presence.Publish(true)
	}
}

// SignedOut records a sign-out and closes the note input. Removing the
// cursor record is left to the caller.
func (s *Session) SignedOut() {
	s.user = nil
	s.flash = ""
	s.CloseInput()
}

// Status is the text of the status line right now.
func (s *Session) Status() string {
	if s.flash != "" && s.now().Before(s.flashUntil) {
		return s.flash
	}
	if s.user != nil {
		return "Signed in as " + s.user.FriendlyName()
	}
	return "Signed out - Sign in to add notes."
}

// Flash shows msg on the status line until StatusTimeout passes. A newer
// flash replaces an older one.
func (s *Session) Flash(msg string) {
	s.flash = msg
	s.flashUntil = s.now().Add(StatusTimeout)
}

// Placeholder is the hint shown in the empty note input.
func (s *Session) Placeholder() string {
	if s.user != nil {
		return "Press Enter to drop a note"
	}
	return "Sign in to add a note"
}

// InputOpen reports whether a note is being composed.
func (s *Session) InputOpen() bool {
	return s.inputOpen
}

// OpenInput starts composing a note and fixes its placement preview. It
// reports whether the input opened.
func (s *Session) OpenInput() bool {
	if s.user == nil {
		s.Flash(MsgSignInRequired)
		return false
	}
	if s.inputOpen {
		return false
	}
	s.inputOpen = true
	p := s.placement()
	s.pending = &p
	return true
}

// CloseInput stops composing and drops the pending placement.
func (s *Session) CloseInput() {
	s.inputOpen = false
	s.pending = nil
}

// Pending returns the placement preview of the note being composed.
func (s *Session) Pending() (geom.Placement, bool) {
	if s.pending == nil {
		return geom.Placement{}, false
	}
	return *s.pending, true
}

// Submit turns text into a draft. It returns false when signed out or when
// the trimmed text is empty. The pending placement is consumed.
func (s *Session) Submit(text string) (Draft, bool) {
	if s.user == nil {
		s.Flash(MsgSignInRequired)
		return Draft{}, false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Draft{}, false
	}

	var p geom.Placement
	if s.pending != nil {
		p = *s.pending
	} else {
		p = s.placement()
	}
	s.pending = nil

	colorKey := s.user.ID.String()
	if colorKey == "" {
		colorKey = s.clientID
	}

	return Draft{
		Text:      trimmed,
		Position:  sanitize(p.Position),
		RotationY: finiteOr(p.Yaw, 0),
		Accent:    geom.ColorForID(colorKey),
	}, true
}

// SubmitFailed reports a failed note write.
func (s *Session) SubmitFailed(err error) {
	s.logger.Error().Err(err).Msg("error saving message")
	s.Flash(MsgSaveFailed)
}

// AuthFailed reports a failed sign-in or sign-out.
func (s *Session) AuthFailed(signIn bool, err error) {
	if signIn {
		s.logger.Error().Err(err).Msg("sign-in failed")
		s.Flash(MsgSignInFailed)
		return
	}
	s.logger.Error().Err(err).Msg("sign-out failed")
	s.Flash(MsgSignOutFailed)
}

func (s *Session) placement() geom.Placement {
	if s.viewer == nil {
		return geom.ComputeNotePlacement(geom.Vec3{}, geom.Forward, s.distance)
	}
	return geom.ComputeNotePlacement(s.viewer.Position(), s.viewer.Forward(), s.distance)
}

func sanitize(p geom.Vec3) geom.Vec3 {
	return geom.Vec3{
		X: finiteOr(p.X, 0),
		Y: finiteOr(p.Y, 3),
		Z: finiteOr(p.Z, 0),
	}
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
