package render

import (
	"image/color"
	"strings"
)

// Palette is a three-stop background gradient.
type Palette struct {
	Start, Middle, End color.NRGBA
}

func palette(start, middle, end string) Palette {
	return Palette{Start: mustHex(start), Middle: mustHex(middle), End: mustHex(end)}
}

// First match wins.
var paletteRules = []struct {
	keywords []string
	palette  Palette
}{
	{[]string{"village", "home", "house"}, palette("#ff9a9e", "#fecfef", "#fecfef")},
	{[]string{"forest", "tree", "nature"}, palette("#a8edea", "#fed6e3", "#d299c2")},
	{[]string{"mountain", "hill", "peak"}, palette("#667eea", "#764ba2", "#f093fb")},
	{[]string{"water", "river", "ocean"}, palette("#4facfe", "#00f2fe", "#43e97b")},
	{[]string{"sunset", "sunrise", "golden"}, palette("#fa709a", "#fee140", "#fa709a")},
	{[]string{"night", "dark", "moon"}, palette("#2c3e50", "#4a6741", "#2c5364")},
}

var fallbackPalettes = []Palette{
	palette("#667eea", "#764ba2", "#f093fb"),
	palette("#f093fb", "#f5576c", "#4facfe"),
	palette("#43e97b", "#38f9d7", "#667eea"),
	palette("#fa709a", "#fee140", "#43e97b"),
}

// PaletteFor picks the background for a scene by keyword, falling back to
// a palette chosen by ordinal.
func PaletteFor(description string, ordinal int) Palette {
	desc := strings.ToLower(description)
	for _, rule := range paletteRules {
		if containsAny(desc, rule.keywords) {
			return rule.palette
		}
	}
	i := ordinal % len(fallbackPalettes)
	if i < 0 {
		i += len(fallbackPalettes)
	}
	return fallbackPalettes[i]
}

func (p Palette) stops() []Stop {
	return []Stop{{0, p.Start}, {0.5, p.Middle}, {1, p.End}}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
