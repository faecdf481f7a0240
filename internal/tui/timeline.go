package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/glaseagle/3DAuth-FireStore/internal/geom"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// maxTimelineText is how much of a note the timeline shows.
const maxTimelineText = 160

var (
	timeStyle   = lipgloss.NewStyle().Faint(true)
	authorStyle = lipgloss.NewStyle().Bold(true)
)

// Timeline is the ordered list of notes next to the radar. It follows the
// order of the messages stream.
type Timeline struct {
	ids  []string
	recs map[string]*models.Message
	loc  *time.Location
}

// NewTimeline returns an empty timeline that formats times in loc.
func NewTimeline(loc *time.Location) *Timeline {
	if loc == nil {
		loc = time.Local
	}
	return &Timeline{recs: make(map[string]*models.Message), loc: loc}
}

// Place puts id at index, moving it if it was elsewhere.
func (t *Timeline) Place(id string, rec *models.Message, index int) {
	t.recs[id] = rec
	if index < len(t.ids) && t.ids[index] == id {
		return
	}
	t.remove(id)
	if index > len(t.ids) {
		index = len(t.ids)
	}
	t.ids = append(t.ids, "")
	copy(t.ids[index+1:], t.ids[index:])
	t.ids[index] = id
}

// Drop removes id.
func (t *Timeline) Drop(id string) {
	delete(t.recs, id)
	t.remove(id)
}

func (t *Timeline) remove(id string) {
	for i, v := range t.ids {
		if v == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			return
		}
	}
}

// Len returns the number of notes.
func (t *Timeline) Len() int { return len(t.ids) }

// IDs returns note ids in display order.
func (t *Timeline) IDs() []string {
	return append([]string(nil), t.ids...)
}

// Render returns one line per note, oldest first.
func (t *Timeline) Render() string {
	var b strings.Builder
	for i, id := range t.ids {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.line(t.recs[id]))
	}
	return b.String()
}

func (t *Timeline) line(m *models.Message) string {
	author := m.Author
	if author == "" {
		author = "Anonymous"
	}
	accent := lipgloss.Color(geom.ToHex(m.Accent))
	return timeStyle.Render(formatTimestamp(m.CreatedAt, t.loc)) + " " +
		authorStyle.Foreground(accent).Render(author) + " " +
		truncate(m.Text, maxTimelineText)
}

// formatTimestamp renders a unix-ms time as HH:MM, or "Pending..." before
// the server has assigned one.
func formatTimestamp(ms int64, loc *time.Location) string {
	if ms <= 0 {
		return "Pending..."
	}
	return time.UnixMilli(ms).In(loc).Format("15:04")
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
