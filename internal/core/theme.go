package core

import "strings"

// Theme is the colour scheme preference. It is stored next to the ledger but
// only the display layer acts on it.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps anything other than "dark" to the light theme.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeDark)) {
		return ThemeDark
	}
	return ThemeLight
}
