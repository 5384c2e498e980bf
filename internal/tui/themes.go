package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

// Extra theme directories, separated like PATH.
const themeDirEnvVar = "POWERUSAGE_THEME_DIR"

const defaultThemeIcon = "🎨"

// Theme is one palette. Theme files are JSON objects using the json tags
// below; every color is required.
type Theme struct {
	Name string `json:"name"`
	Icon string `json:"icon"`

	Base     lipgloss.Color `json:"base"`
	Surface0 lipgloss.Color `json:"surface0"`
	Surface1 lipgloss.Color `json:"surface1"`
	Text     lipgloss.Color `json:"text"`
	Subtext  lipgloss.Color `json:"subtext"`
	Dim      lipgloss.Color `json:"dim"`
	Accent   lipgloss.Color `json:"accent"`
	Blue     lipgloss.Color `json:"blue"`
	Sapphire lipgloss.Color `json:"sapphire"`
	Green    lipgloss.Color `json:"green"`
	Yellow   lipgloss.Color `json:"yellow"`
	Red      lipgloss.Color `json:"red"`
	Peach    lipgloss.Color `json:"peach"`
	Teal     lipgloss.Color `json:"teal"`
	Lavender lipgloss.Color `json:"lavender"`
}

func (t Theme) colors() map[string]lipgloss.Color {
	return map[string]lipgloss.Color{
		"base": t.Base, "surface0": t.Surface0, "surface1": t.Surface1,
		"text": t.Text, "subtext": t.Subtext, "dim": t.Dim,
		"accent": t.Accent, "blue": t.Blue, "sapphire": t.Sapphire,
		"green": t.Green, "yellow": t.Yellow, "red": t.Red,
		"peach": t.Peach, "teal": t.Teal, "lavender": t.Lavender,
	}
}

func (t Theme) check() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("theme has no name")
	}
	blank := lo.Keys(lo.PickBy(t.colors(), func(_ string, c lipgloss.Color) bool {
		return strings.TrimSpace(string(c)) == ""
	}))
	if len(blank) == 0 {
		return nil
	}
	sort.Strings(blank)
	return fmt.Errorf("theme %q is missing colors: %s", t.Name, strings.Join(blank, ", "))
}

func (t Theme) is(name string) bool {
	return strings.EqualFold(t.Name, strings.TrimSpace(name))
}

func builtinThemes() []Theme {
	return []Theme{
		{
			Name: "Gruvbox", Icon: "🌻",
			Base: "#282828", Surface0: "#3C3836", Surface1: "#504945",
			Text: "#EBDBB2", Subtext: "#D5C4A1", Dim: "#665C54",
			Accent: "#D3869B", Blue: "#83A598", Sapphire: "#83A598",
			Green: "#B8BB26", Yellow: "#FABD2F", Red: "#FB4934",
			Peach: "#FE8019", Teal: "#8EC07C", Lavender: "#D3869B",
		},
		{
			Name: "Catppuccin Mocha", Icon: "🐱",
			Base: "#1E1E2E", Surface0: "#313244", Surface1: "#45475A",
			Text: "#CDD6F4", Subtext: "#A6ADC8", Dim: "#585B70",
			Accent: "#CBA6F7", Blue: "#89B4FA", Sapphire: "#74C7EC",
			Green: "#A6E3A1", Yellow: "#F9E2AF", Red: "#F38BA8",
			Peach: "#FAB387", Teal: "#94E2D5", Lavender: "#B4BEFE",
		},
		{
			Name: "Dracula", Icon: "🧛",
			Base: "#282A36", Surface0: "#44475A", Surface1: "#6272A4",
			Text: "#F8F8F2", Subtext: "#BFBFBF", Dim: "#6272A4",
			Accent: "#BD93F9", Blue: "#8BE9FD", Sapphire: "#8BE9FD",
			Green: "#50FA7B", Yellow: "#F1FA8C", Red: "#FF5555",
			Peach: "#FFB86C", Teal: "#8BE9FD", Lavender: "#BD93F9",
		},
		{
			Name: "Nord", Icon: "❄",
			Base: "#2E3440", Surface0: "#3B4252", Surface1: "#434C5E",
			Text: "#ECEFF4", Subtext: "#D8DEE9", Dim: "#4C566A",
			Accent: "#B48EAD", Blue: "#81A1C1", Sapphire: "#88C0D0",
			Green: "#A3BE8C", Yellow: "#EBCB8B", Red: "#BF616A",
			Peach: "#D08770", Teal: "#8FBCBB", Lavender: "#B48EAD",
		},
	}
}

// themeCatalog is the ordered theme list plus the active entry. Selecting a
// theme repaints the package styles.
type themeCatalog struct {
	mu     sync.RWMutex
	list   []Theme
	active int
}

var catalog = newThemeCatalog(builtinThemes())

func newThemeCatalog(list []Theme) *themeCatalog {
	c := &themeCatalog{list: list}
	applyTheme(list[0])
	return c
}

func (c *themeCatalog) current() Theme {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list[c.active]
}

// selectLocked activates the named theme; c.mu must be held for writing.
func (c *themeCatalog) selectLocked(name string) bool {
	_, idx, ok := lo.FindIndexOf(c.list, func(t Theme) bool { return t.is(name) })
	if !ok {
		return false
	}
	c.active = idx
	applyTheme(c.list[idx])
	return true
}

func (c *themeCatalog) selectByName(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(name)
}

func (c *themeCatalog) next() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = (c.active + 1) % len(c.list)
	applyTheme(c.list[c.active])
	return c.list[c.active]
}

// replace swaps in a new list and keeps the active theme when it still
// exists, falling back to the first entry.
func (c *themeCatalog) replace(list []Theme) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keep := c.list[c.active].Name
	c.list = list
	if !c.selectLocked(keep) {
		c.active = 0
		applyTheme(c.list[0])
	}
}

// withOverrides returns base with every theme in extra either replacing the
// built-in of the same name or appended.
func withOverrides(base, extra []Theme) []Theme {
	out := append([]Theme(nil), base...)
	for _, t := range extra {
		if _, idx, ok := lo.FindIndexOf(out, func(o Theme) bool { return o.is(t.Name) }); ok {
			out[idx] = t
			continue
		}
		out = append(out, t)
	}
	return out
}

func themeDirs(configDir string) []string {
	var dirs []string
	if strings.TrimSpace(configDir) != "" {
		dirs = append(dirs, filepath.Join(configDir, "themes"))
	}
	for _, d := range filepath.SplitList(os.Getenv(themeDirEnvVar)) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, filepath.Clean(d))
		}
	}
	return dirs
}

func readThemeFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var t Theme
	if err := json.Unmarshal(data, &t); err != nil {
		return Theme{}, fmt.Errorf("%s: %w", path, err)
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Icon == "" {
		t.Icon = defaultThemeIcon
	}
	if err := t.check(); err != nil {
		return Theme{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// readThemeDir loads every *.json file in dir in name order. A missing dir
// is not an error; bad files are skipped and reported.
func readThemeDir(dir string) ([]Theme, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool { return strings.ToLower(paths[i]) < strings.ToLower(paths[j]) })

	var (
		themes []Theme
		errs   []error
	)
	for _, p := range paths {
		t, err := readThemeFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		themes = append(themes, t)
	}
	return themes, errors.Join(errs...)
}

// LoadThemes rebuilds the catalog from the built-ins plus theme files in
// <configDir>/themes and POWERUSAGE_THEME_DIR. Invalid files are skipped
// and reported together; valid ones are still loaded.
func LoadThemes(configDir string) error {
	list := builtinThemes()
	var errs []error
	for _, dir := range themeDirs(configDir) {
		extra, err := readThemeDir(dir)
		if err != nil {
			errs = append(errs, err)
		}
		list = withOverrides(list, extra)
	}
	catalog.replace(list)
	return errors.Join(errs...)
}

func SetThemeByName(name string) bool { return catalog.selectByName(name) }

// CycleTheme activates the next theme and returns its name.
func CycleTheme() string { return catalog.next().Name }

func ActiveTheme() Theme { return catalog.current() }

// ThemeName is the active theme's label with its icon.
func ThemeName() string {
	t := ActiveTheme()
	return strings.TrimSpace(t.Icon + " " + t.Name)
}
