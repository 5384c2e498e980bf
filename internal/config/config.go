package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/janekbaraniewski/powerusage/internal/ledger"
	"github.com/spf13/viper"
)

const envPrefix = "POWERUSAGE"

type UIConfig struct {
	WarnThreshold float64 `json:"warn_threshold" mapstructure:"warn_threshold"`
	CritThreshold float64 `json:"crit_threshold" mapstructure:"crit_threshold"`
}

type ArchiveConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

type Config struct {
	DataFile string        `json:"data_file" mapstructure:"data_file"`
	Theme    string        `json:"theme" mapstructure:"theme"`
	UI       UIConfig      `json:"ui" mapstructure:"ui"`
	Archive  ArchiveConfig `json:"archive" mapstructure:"archive"`
}

func DefaultConfig() Config {
	return Config{
		DataFile: filepath.Join(StateDir(), ledger.DefaultFileName),
		Theme:    "Gruvbox",
		UI: UIConfig{
			WarnThreshold: 0.20,
			CritThreshold: 0.10,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    filepath.Join(StateDir(), "cycles.db"),
		},
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "powerusage")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "powerusage")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// StateDir holds the quota data file and the cycle archive.
func StateDir() string {
	if base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); base != "" {
		return filepath.Join(base, "powerusage")
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "powerusage")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "powerusage")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the JSON config at path. Any key can be overridden with a
// POWERUSAGE_ environment variable, e.g. POWERUSAGE_DATA_FILE or
// POWERUSAGE_ARCHIVE_ENABLED.
func LoadFrom(path string) (Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, defaults)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return defaults, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return defaults, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return defaults, fmt.Errorf("decoding config %s: %w", path, err)
	}

	if strings.TrimSpace(cfg.DataFile) == "" {
		cfg.DataFile = defaults.DataFile
	}
	if strings.TrimSpace(cfg.Archive.Path) == "" {
		cfg.Archive.Path = defaults.Archive.Path
	}
	if cfg.UI.WarnThreshold <= 0 {
		cfg.UI.WarnThreshold = defaults.UI.WarnThreshold
	}
	if cfg.UI.CritThreshold <= 0 {
		cfg.UI.CritThreshold = defaults.UI.CritThreshold
	}
	if cfg.Theme == "" {
		cfg.Theme = defaults.Theme
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("data_file", cfg.DataFile)
	v.SetDefault("theme", cfg.Theme)
	v.SetDefault("ui.warn_threshold", cfg.UI.WarnThreshold)
	v.SetDefault("ui.crit_threshold", cfg.UI.CritThreshold)
	v.SetDefault("archive.enabled", cfg.Archive.Enabled)
	v.SetDefault("archive.path", cfg.Archive.Path)
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveThemeTo persists a theme name into the config file at path
// (read-modify-write).
func SaveThemeTo(path string, theme string) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Theme = theme
	return SaveTo(path, cfg)
}
