package geom

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/lucasb-eyer/go-colorful"
)

// FallbackAccent is used when there is no identifier to derive a colour from.
const FallbackAccent = "#4ac6ff"

// HueForID hashes id into a hue in [0, 360). The hash runs over UTF-16 code
// units with 32-bit wraparound so browser clients derive the same hue.
func HueForID(id string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(id)) {
		h = h*31 + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return int(abs % 360)
}

// ColorForID returns the stable accent colour for an identifier.
func ColorForID(id string) string {
	if id == "" {
		return FallbackAccent
	}
	return fmt.Sprintf("hsl(%d, 80%%, 60%%)", HueForID(id))
}

// ResolveColor returns explicit when it is a colour we understand,
// otherwise the colour derived from id.
func ResolveColor(explicit, id string) string {
	if _, ok := ParseColor(explicit); ok {
		return explicit
	}
	return ColorForID(id)
}

// ParseColor understands "#rgb", "#rrggbb" and "hsl(h, s%, l%)".
func ParseColor(s string) (colorful.Color, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return colorful.Color{}, false
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}, false
		}
		return c, true
	}

	var h, sat, l float64
	if _, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "hsl(%f,%f%%,%f%%)", &h, &sat, &l); err != nil {
		return colorful.Color{}, false
	}
	return colorful.Hsl(h, sat/100, l/100).Clamped(), true
}

// ToHex converts a colour string to "#rrggbb", falling back to FallbackAccent.
func ToHex(s string) string {
	c, ok := ParseColor(s)
	if !ok {
		return FallbackAccent
	}
	return c.Hex()
}
