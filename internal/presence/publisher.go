// Package presence publishes the local viewer's cursor to the space.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

const (
	// DefaultThrottle is the minimum gap between unforced publishes.
	DefaultThrottle = 120 * time.Millisecond

	writeTimeout = 5 * time.Second
)

// Writer stores and deletes cursor records.
type Writer interface {
	PutCursor(ctx context.Context, id string, c *models.Cursor) error
	DeleteCursor(ctx context.Context, id string) error
}

// State is what the publisher needs to know about the viewer right now.
type State struct {
	User      *models.User // nil when signed out
	Position  geom.Vec3
	Direction geom.Vec3
}

// Source reports the current viewer state.
type Source func() State

// Config configures a Publisher.
type Config struct {
	ClientID string
	Source   Source
	Writer   Writer
	Logger   zerolog.Logger
	Throttle time.Duration
	Now      func() time.Time
}

// Publisher writes the local cursor at most once per throttle interval,
// unless forced. Writes are fire-and-forget. Publish calls Source on the
// calling goroutine, so it must be called from the goroutine that owns the
// viewer state.
type Publisher struct {
	clientID string
	source   Source
	writer   Writer
	logger   zerolog.Logger
	throttle time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
	wg   sync.WaitGroup
}

// New creates a Publisher.
func New(cfg Config) *Publisher {
	p := &Publisher{
		clientID: cfg.ClientID,
		source:   cfg.Source,
		writer:   cfg.Writer,
		logger:   cfg.Logger,
		throttle: cfg.Throttle,
		now:      cfg.Now,
	}
	if p.throttle <= 0 {
		p.throttle = DefaultThrottle
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// ClientID returns the identifier the cursor is published under.
func (p *Publisher) ClientID() string {
	return p.clientID
}

// Publish writes the current cursor. Unless force is set, it does nothing
// when the previous publish was less than the throttle interval ago. It
// reports whether a write was issued.
func (p *Publisher) Publish(force bool) bool {
	st := p.source()
	if st.User == nil {
		return false
	}

	now := p.now()
	p.mu.Lock()
	if !force && !p.last.IsZero() && now.Sub(p.last) < p.throttle {
		p.mu.Unlock()
		return false
	}
	p.last = now
	p.mu.Unlock()

	cursor := BuildCursor(p.clientID, st, now)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := p.writer.PutCursor(ctx, p.clientID, cursor); err != nil {
			p.logger.Warn().Err(err).Str("client", p.clientID).Msg("presence update failed")
		}
	}()
	return true
}

// Clear deletes the local cursor record and resets the throttle so the
// next sign-in publishes immediately.
func (p *Publisher) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.last = time.Time{}
	p.mu.Unlock()

	if err := p.writer.DeleteCursor(ctx, p.clientID); err != nil {
		p.logger.Error().Err(err).Str("client", p.clientID).Msg("failed to clear cursor")
		return err
	}
	return nil
}

// Wait blocks until every in-flight write has finished.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// BuildCursor turns viewer state into the wire record, rounding position
// to 3 and direction to 4 decimals.
func BuildCursor(clientID string, st State, now time.Time) *models.Cursor {
	dir := st.Direction.Normalize()
	x := geom.Round(st.Position.X, 3)
	y := geom.Round(st.Position.Y, 3)
	z := geom.Round(st.Position.Z, 3)

	uid := ""
	if st.User != nil {
		uid = st.User.ID.String()
	}
	colorKey := uid
	if colorKey == "" {
		colorKey = clientID
	}

	return &models.Cursor{
		X:           &x,
		Y:           &y,
		Z:           &z,
		DirX:        geom.Round(dir.X, 4),
		DirY:        geom.Round(dir.Y, 4),
		DirZ:        geom.Round(dir.Z, 4),
		DisplayName: st.User.FriendlyName(),
		Color:       geom.ColorForID(colorKey),
		UID:         uid,
		UpdatedAt:   now.UnixMilli(),
	}
}
