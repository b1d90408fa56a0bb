package render

import (
	"strings"

	"notifyconsole/internal/template"
)

// Theme is the light/dark preview switch.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps s to a theme, defaulting to light.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeDark)) {
		return ThemeDark
	}
	return ThemeLight
}

// OrDefault returns t, or light when t is unset or unknown.
func (t Theme) OrDefault() Theme {
	if t == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Tone is the background/foreground pair of a callout.
type Tone struct {
	Background string
	Foreground string
	Border     string
}

// Palette holds the styling tokens of a theme.
type Palette struct {
	Background string
	Surface    string
	Text       string
	Muted      string
	Border     string
	Accent     string
	AccentText string
	Card       string
	Tones      map[template.Emphasis]Tone
	Success    string
}

var palettes = map[Theme]Palette{
	ThemeLight: {
		Background: "#f3f4f6",
		Surface:    "#ffffff",
		Text:       "#111827",
		Muted:      "#6b7280",
		Border:     "#e5e7eb",
		Accent:     "#2563eb",
		AccentText: "#ffffff",
		Card:       "#f9fafb",
		Success:    "#15803d",
		Tones: map[template.Emphasis]Tone{
			template.EmphasisInfo:    {Background: "#eff6ff", Foreground: "#1d4ed8", Border: "#bfdbfe"},
			template.EmphasisWarning: {Background: "#fffbeb", Foreground: "#b45309", Border: "#fde68a"},
			template.EmphasisDanger:  {Background: "#fef2f2", Foreground: "#b91c1c", Border: "#fecaca"},
		},
	},
	ThemeDark: {
		Background: "#0f172a",
		Surface:    "#1e293b",
		Text:       "#f1f5f9",
		Muted:      "#94a3b8",
		Border:     "#334155",
		Accent:     "#3b82f6",
		AccentText: "#ffffff",
		Card:       "#0f172a",
		Success:    "#4ade80",
		Tones: map[template.Emphasis]Tone{
			template.EmphasisInfo:    {Background: "#1e3a8a", Foreground: "#bfdbfe", Border: "#1d4ed8"},
			template.EmphasisWarning: {Background: "#78350f", Foreground: "#fde68a", Border: "#b45309"},
			template.EmphasisDanger:  {Background: "#7f1d1d", Foreground: "#fecaca", Border: "#b91c1c"},
		},
	},
}

// PaletteFor returns the tokens of theme.
func PaletteFor(theme Theme) Palette {
	return palettes[theme.OrDefault()]
}

// tone returns the callout colors for emphasis, defaulting to info.
func (p Palette) tone(e template.Emphasis) Tone {
	if t, ok := p.Tones[e]; ok {
		return t
	}
	return p.Tones[template.EmphasisInfo]
}

// valueColor maps a variable tone (severity, status) to a text color.
func (p Palette) valueColor(tone string, muted bool) string {
	if muted {
		return p.Muted
	}
	switch tone {
	case "danger":
		return p.tone(template.EmphasisDanger).Foreground
	case "warning":
		return p.tone(template.EmphasisWarning).Foreground
	case "info":
		return p.tone(template.EmphasisInfo).Foreground
	case "success":
		return p.Success
	default:
		return p.Text
	}
}
