// Package config provides configuration loading for calpick.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Picker        PickerConfig       `yaml:"picker"`
	Sync          SyncConfig         `yaml:"sync"`
	Sources       []SourceConfig     `yaml:"sources"`
	Filters       FilterConfig       `yaml:"filters"`
	Notifications NotificationConfig `yaml:"notifications"`
	UI            UIConfig           `yaml:"ui"`
}

// PickerConfig configures the date picker itself.
type PickerConfig struct {
	Mode     string       `yaml:"mode"`   // "single" or "range"
	Format   string       `yaml:"format"` // display pattern for the bound inputs
	Inputs   InputsConfig `yaml:"inputs"`
	Month    string       `yaml:"month"`    // initially displayed month, YYYY-MM
	Disabled []string     `yaml:"disabled"` // ISO dates that cannot be selected
	Prices   string       `yaml:"prices"`   // path to a YAML file mapping dates to price labels
	Months   int          `yaml:"months"`   // consecutive months the launcher lists at once
}

// InputsConfig labels the two bound inputs.
type InputsConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// SyncConfig configures availability syncing.
type SyncConfig struct {
	Interval time.Duration `yaml:"interval"`
	Horizon  time.Duration `yaml:"horizon"` // how far ahead busy days are fetched
	Output   string        `yaml:"output"`  // ICS export of the chosen range, empty disables
}

// SourceConfig configures an availability calendar.
type SourceConfig struct {
	Name        string       `yaml:"name"`
	Type        string       `yaml:"type"` // "ics", "caldav", "icloud", "ms365"
	URL         string       `yaml:"url"`
	Username    string       `yaml:"username,omitempty"`
	Password    string       `yaml:"password,omitempty"`
	PasswordCmd string       `yaml:"password_cmd,omitempty"`
	ClientID    string       `yaml:"client_id,omitempty"` // MS365 application ID
	Calendars   []string     `yaml:"calendars,omitempty"` // CalDAV/iCloud: which calendars to read
	Filters     FilterConfig `yaml:"filters,omitempty"`   // Per-source filters (include)
}

// FilterConfig configures which events block days.
type FilterConfig struct {
	Mode  string       `yaml:"mode"` // "or" or "and"
	Rules []FilterRule `yaml:"rules"`
}

// FilterRule defines a single filter rule.
// Use exactly one of: Contains, Exact, Prefix, Suffix, or Regex.
type FilterRule struct {
	Field           string `yaml:"field"`              // "title", "organizer", "source", "description", "location"
	Contains        string `yaml:"contains,omitempty"` // Substring match
	Exact           string `yaml:"exact,omitempty"`    // Exact string match
	Prefix          string `yaml:"prefix,omitempty"`   // Starts with
	Suffix          string `yaml:"suffix,omitempty"`   // Ends with
	Regex           string `yaml:"regex,omitempty"`    // Regular expression
	CaseInsensitive bool   `yaml:"case_insensitive"`
}

// NotificationConfig configures the desktop notification sent on completion.
type NotificationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// UIConfig selects and configures the view.
type UIConfig struct {
	Backend     string   `yaml:"backend"`      // "auto", "gtk", "menu", "tty"
	MenuProgram string   `yaml:"menu_program"` // launcher for the menu backend, auto-detected if empty
	MenuArgs    []string `yaml:"menu_args"`
	Clipboard   bool     `yaml:"clipboard"` // copy the finished selection to the clipboard
}

// DefaultPath returns ~/.config/calpick/config.yaml.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(configDir, "calpick", "config.yaml"), nil
}

// Load reads configuration from the default location. A missing file yields
// the defaults.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFrom(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFrom reads configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration from YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Sync.Output = expandPath(cfg.Sync.Output)
	cfg.Picker.Prices = expandPath(cfg.Picker.Prices)

	return &cfg, nil
}

// applyDefaults sets default values for unspecified config options.
func (c *Config) applyDefaults() {
	if c.Picker.Mode == "" {
		c.Picker.Mode = "range"
	}
	if c.Picker.Format == "" {
		c.Picker.Format = "EEE, dd/MMM/yyyy"
	}
	if c.Picker.Inputs.Start == "" {
		c.Picker.Inputs.Start = "Start"
	}
	if c.Picker.Inputs.End == "" {
		c.Picker.Inputs.End = "End"
	}
	if c.Picker.Months == 0 {
		c.Picker.Months = 1
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 15 * time.Minute
	}
	if c.Sync.Horizon == 0 {
		c.Sync.Horizon = 180 * 24 * time.Hour
	}
	if c.Filters.Mode == "" {
		c.Filters.Mode = "or"
	}
	if c.UI.Backend == "" {
		c.UI.Backend = "auto"
	}
}

func (c *Config) validate() error {
	switch c.Picker.Mode {
	case "single", "range":
	default:
		return fmt.Errorf("picker mode %q: must be single or range", c.Picker.Mode)
	}
	if c.Picker.Months < 1 || c.Picker.Months > 12 {
		return fmt.Errorf("picker months %d: must be between 1 and 12", c.Picker.Months)
	}
	// A non-positive interval would panic the sync ticker.
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval %s: must be positive", c.Sync.Interval)
	}
	if c.Sync.Horizon <= 0 {
		return fmt.Errorf("sync horizon %s: must be positive", c.Sync.Horizon)
	}
	switch c.UI.Backend {
	case "auto", "gtk", "menu", "tty":
	default:
		return fmt.Errorf("ui backend %q: must be auto, gtk, menu or tty", c.UI.Backend)
	}
	for i, src := range c.Sources {
		switch src.Type {
		case "ics", "caldav":
			if src.URL == "" {
				return fmt.Errorf("source %d (%s): url is required", i, src.Name)
			}
		case "icloud", "ms365":
		default:
			return fmt.Errorf("source %d (%s): unknown type %q", i, src.Name, src.Type)
		}
	}
	return nil
}

// GetPassword returns the password for a source, executing password_cmd if needed.
func (s *SourceConfig) GetPassword() (string, error) {
	if s.Password != "" {
		return s.Password, nil
	}
	if s.PasswordCmd == "" {
		return "", nil
	}

	cmd := exec.Command("sh", "-c", s.PasswordCmd)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("execute password_cmd: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// parseDuration extends time.ParseDuration with day ("d") and week ("w")
// suffixes. Empty input is zero.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	default:
		return time.ParseDuration(s)
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return time.Duration(n) * unit, nil
}

// UnmarshalYAML implements custom unmarshaling for duration fields.
func (c *SyncConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Interval string `yaml:"interval"`
		Horizon  string `yaml:"horizon"`
		Output   string `yaml:"output"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	interval, err := parseDuration(raw.Interval)
	if err != nil {
		return fmt.Errorf("parse interval: %w", err)
	}
	horizon, err := parseDuration(raw.Horizon)
	if err != nil {
		return fmt.Errorf("parse horizon: %w", err)
	}

	c.Interval = interval
	c.Horizon = horizon
	c.Output = raw.Output
	return nil
}
