package annotate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a 32-bit ARGB value (0xAARRGGBB).
type Color uint32

const (
	// NoColor marks an uncolored segment. It is never stored in a Span.
	NoColor Color = 0

	// DefaultColor is the pen color that does not annotate (opaque black).
	DefaultColor Color = 0xFF000000
)

// Palette lists the pen colors offered by the editor, default first.
var Palette = []Color{
	DefaultColor,
	0xFFD32F2F, // red
	0xFF1976D2, // blue
	0xFF2E7D32, // green
	0xFFF57C00, // orange
	0xFF8E24AA, // purple
}

// RGB splits the color into its 8-bit channels, alpha excluded.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Alpha returns the 8-bit alpha channel.
func (c Color) Alpha() uint8 {
	return uint8(c >> 24)
}

// Hex returns the CSS form "#rrggbb". Alpha is dropped.
func (c Color) Hex() string {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex()
}

// String returns "#rrggbb" for opaque colors and "#aarrggbb" otherwise.
func (c Color) String() string {
	if c.Alpha() == 0xFF {
		return c.Hex()
	}
	return fmt.Sprintf("#%02x%s", c.Alpha(), strings.TrimPrefix(c.Hex(), "#"))
}

// ParseColor accepts "#rgb", "#rrggbb" (opaque) and "#aarrggbb".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	alpha := uint64(0xFF)
	if len(s) == 9 && strings.HasPrefix(s, "#") {
		a, err := strconv.ParseUint(s[1:3], 16, 8)
		if err != nil {
			return NoColor, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = a
		s = "#" + s[3:]
	}
	parsed, err := colorful.Hex(s)
	if err != nil {
		return NoColor, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := parsed.RGB255()
	return Color(alpha<<24 | uint64(r)<<16 | uint64(g)<<8 | uint64(b)), nil
}

// MarshalJSON encodes the color as a hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a hex string or a raw ARGB number.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint32
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("color must be a hex string or ARGB number: %w", err)
		}
		*c = Color(n)
		return nil
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
