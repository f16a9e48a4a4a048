// Package enum defines enumerated types shared across the application.
package enum

import "fmt"

// Theme represents the visual mode applied to the web UI.
// The zero value is ThemeLight, matching the default presentation.
type Theme int

// Theme values.
const (
	ThemeLight Theme = iota
	ThemeDark
)

// ThemeValues lists all valid themes in declaration order.
var ThemeValues = []Theme{ThemeLight, ThemeDark}

var themeNames = map[Theme]string{
	ThemeLight: "light",
	ThemeDark:  "dark",
}

// String returns the lower-case name of the theme.
func (t Theme) String() string {
	if name, ok := themeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("theme(%d)", int(t))
}

// Index returns the position of the theme in ThemeValues.
func (t Theme) Index() int { return int(t) }

// MarshalText implements encoding.TextMarshaler.
func (t Theme) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Theme) UnmarshalText(text []byte) error {
	parsed, err := ParseTheme(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTheme converts a string to a Theme.
// Returns an error for anything other than the exact names "light" and "dark".
func ParseTheme(s string) (Theme, error) {
	for _, t := range ThemeValues {
		if themeNames[t] == s {
			return t, nil
		}
	}
	return ThemeLight, fmt.Errorf("invalid theme %q", s)
}

// DBType represents the backing database engine.
type DBType int

// DBType values.
const (
	DBTypeSQLite DBType = iota
	DBTypePostgres
)

var dbTypeNames = map[DBType]string{
	DBTypeSQLite:   "sqlite",
	DBTypePostgres: "postgres",
}

// String returns the lower-case name of the database type.
func (d DBType) String() string {
	if name, ok := dbTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dbtype(%d)", int(d))
}
