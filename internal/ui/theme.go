package ui

import "strings"

// DefaultTheme is used when no theme, or an unknown one, is configured.
const DefaultTheme = "classic"

// Theme is the palette and glyph set the list and panel renderers draw with.
// A Plain theme never emits escape codes, whatever the terminal supports.
type Theme struct {
	Name  string
	Plain bool

	Title, Muted, Accent, Success, Error, Pending string
	BoxUnchecked, BoxChecked                      string
	CornerTL, CornerTR, CornerBL, CornerBR        string
	H, V                                          string
	SymDone, SymUnchecked                         string
}

var presets = map[string]Theme{
	"classic": {
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Pending: fgYellow,
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymUnchecked: "•",
	},
	"neon": {
		Title: "\033[95m", Muted: fgGray, Accent: "\033[96m",
		Success: fgGreen, Error: fgRed, Pending: "\033[93m",
		BoxUnchecked: "◻", BoxChecked: "◼",
		CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
		H: "─", V: "│",
		SymDone: "✔", SymUnchecked: "•",
	},
	// mono sticks to ASCII so exports and pipes stay readable
	"mono": {
		Plain:        true,
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
		H: "-", V: "|",
		SymDone: "x", SymUnchecked: "-",
	},
}

// Themes lists the accepted -theme values in help order.
var Themes = []string{"classic", "neon", "mono"}

var current Theme

func init() { SetTheme(DefaultTheme) }

// SetTheme switches the active theme. Names are matched case-insensitively
// and an empty name means DefaultTheme. Any other unknown name also selects
// DefaultTheme, but SetTheme reports false so the caller can warn about it.
func SetTheme(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultTheme
	}
	t, ok := presets[key]
	if !ok {
		key, t = DefaultTheme, presets[DefaultTheme]
	}
	t.Name = key
	current = t
	return ok
}

func Current() Theme { return current }
