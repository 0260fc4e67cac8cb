// Package config loads pgtail's YAML configuration via viper, applying
// defaults and validating the result before the runtime consumes it.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/willibrandon/pgtail/internal/highlight"
	"github.com/willibrandon/pgtail/internal/notify"
	"github.com/willibrandon/pgtail/internal/record"
)

// Config is the root configuration structure consumed by the tail
// runtime.
type Config struct {
	Default       DefaultConfig       `mapstructure:"default"`
	Highlighting  HighlightingConfig  `mapstructure:"highlighting"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Debug         bool                `mapstructure:"debug"`
	LogFile       string              `mapstructure:"log_file"`
}

// DefaultConfig holds the initial filter/mode state a new session starts
// with.
type DefaultConfig struct {
	Levels []string `mapstructure:"levels"`
	Follow bool     `mapstructure:"follow"`
}

// HighlightingConfig holds duration-highlighter thresholds and the
// per-highlighter enable map.
type HighlightingConfig struct {
	Duration            DurationThresholdsConfig `mapstructure:"duration"`
	EnabledHighlighters map[string]bool          `mapstructure:"enabled_highlighters"`
}

// DurationThresholdsConfig holds the warn/slow/critical millisecond
// thresholds used to color query-duration spans.
type DurationThresholdsConfig struct {
	WarnMS     int `mapstructure:"warn"`
	SlowMS     int `mapstructure:"slow"`
	CriticalMS int `mapstructure:"critical"`
}

// NotificationsConfig mirrors notify.Config in a mapstructure-friendly
// shape; ToNotifyConfig converts it into the rule-engine's native types.
type NotificationsConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Levels      []string `mapstructure:"levels"`
	Patterns    []string `mapstructure:"patterns"`
	ErrorRate   int      `mapstructure:"error_rate"`
	SlowQueryMS int      `mapstructure:"slow_query_ms"`
	QuietHours  string   `mapstructure:"quiet_hours"`
}

// LoadConfig loads configuration from YAML file and environment
// variables. It searches for config.yaml in ~/.config/pgtail/ and the
// current directory.
func LoadConfig() (*Config, error) {
	return LoadConfigFromPath("")
}

// LoadConfigFromPath loads configuration from a specific path. If
// configPath is empty, it searches the default locations.
func LoadConfigFromPath(configPath string) (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("PGTAIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.config/pgtail")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// createDefaultConfig builds a Config purely from viper's registered
// defaults, used when no config file is present on disk.
func createDefaultConfig() (*Config, error) {
	cfg := &Config{
		Default: DefaultConfig{
			Levels: viper.GetStringSlice("default.levels"),
			Follow: viper.GetBool("default.follow"),
		},
		Highlighting: HighlightingConfig{
			Duration: DurationThresholdsConfig{
				WarnMS:     viper.GetInt("highlighting.duration.warn"),
				SlowMS:     viper.GetInt("highlighting.duration.slow"),
				CriticalMS: viper.GetInt("highlighting.duration.critical"),
			},
		},
		Notifications: NotificationsConfig{
			Enabled:     viper.GetBool("notifications.enabled"),
			Levels:      viper.GetStringSlice("notifications.levels"),
			Patterns:    viper.GetStringSlice("notifications.patterns"),
			ErrorRate:   viper.GetInt("notifications.error_rate"),
			SlowQueryMS: viper.GetInt("notifications.slow_query_ms"),
			QuietHours:  viper.GetString("notifications.quiet_hours"),
		},
		Debug:   viper.GetBool("debug"),
		LogFile: viper.GetString("log_file"),
	}
	return cfg, nil
}

// ValidateConfig validates the configuration values.
func ValidateConfig(cfg *Config) error {
	if len(cfg.Default.Levels) > 0 {
		if _, invalid := record.ParseLevels(strings.Join(cfg.Default.Levels, ",")); len(invalid) > 0 {
			return fmt.Errorf("default.levels: unrecognized level name(s): %v", invalid)
		}
	}

	d := cfg.Highlighting.Duration
	if d.WarnMS != 0 || d.SlowMS != 0 || d.CriticalMS != 0 {
		if !(d.WarnMS > 0 && d.WarnMS < d.SlowMS && d.SlowMS < d.CriticalMS) {
			return fmt.Errorf(
				"highlighting.duration thresholds must satisfy 0 < warn (%d) < slow (%d) < critical (%d)",
				d.WarnMS, d.SlowMS, d.CriticalMS)
		}
	}

	if len(cfg.Notifications.Levels) > 0 {
		if _, invalid := record.ParseLevels(strings.Join(cfg.Notifications.Levels, ",")); len(invalid) > 0 {
			return fmt.Errorf("notifications.levels: unrecognized level name(s): %v", invalid)
		}
	}
	if cfg.Notifications.ErrorRate < 0 {
		return fmt.Errorf("notifications.error_rate must be >= 0, got %d", cfg.Notifications.ErrorRate)
	}
	if cfg.Notifications.SlowQueryMS < 0 {
		return fmt.Errorf("notifications.slow_query_ms must be >= 0, got %d", cfg.Notifications.SlowQueryMS)
	}
	if cfg.Notifications.QuietHours != "" {
		if _, err := notify.ParseQuietHours(cfg.Notifications.QuietHours); err != nil {
			return fmt.Errorf("notifications.quiet_hours: %w", err)
		}
	}

	return nil
}

// applyDefaults sets viper's default values prior to reading any config
// file, so createDefaultConfig and the env-var override path both see a
// complete default tree.
func applyDefaults() {
	viper.SetDefault("default.levels", []string{})
	viper.SetDefault("default.follow", true)

	viper.SetDefault("highlighting.duration.warn", 100)
	viper.SetDefault("highlighting.duration.slow", 1000)
	viper.SetDefault("highlighting.duration.critical", 5000)

	viper.SetDefault("notifications.enabled", false)
	viper.SetDefault("notifications.levels", []string{"ERROR", "FATAL", "PANIC"})
	viper.SetDefault("notifications.patterns", []string{})
	viper.SetDefault("notifications.error_rate", 0)
	viper.SetDefault("notifications.slow_query_ms", 0)
	viper.SetDefault("notifications.quiet_hours", "")

	viper.SetDefault("debug", false)
	viper.SetDefault("log_file", "")
}

// ToLevelSet converts the configured default level names into the set
// record.ParseLevels would have produced, or nil (show all) if empty.
func (c *DefaultConfig) ToLevelSet() (map[record.Level]bool, error) {
	if len(c.Levels) == 0 {
		return nil, nil
	}
	set, invalid := record.ParseLevels(strings.Join(c.Levels, ","))
	if len(invalid) > 0 {
		return nil, fmt.Errorf("default.levels: unrecognized level name(s): %v", invalid)
	}
	return set, nil
}

// ToDurationThresholds converts the configured millisecond thresholds into
// highlight.DurationThresholds, falling back to the package defaults when
// unset.
func (c *HighlightingConfig) ToDurationThresholds() highlight.DurationThresholds {
	d := c.Duration
	if d.WarnMS == 0 && d.SlowMS == 0 && d.CriticalMS == 0 {
		return highlight.DurationThresholds{WarnMS: 100, SlowMS: 1000, CriticalMS: 5000}
	}
	return highlight.DurationThresholds{WarnMS: d.WarnMS, SlowMS: d.SlowMS, CriticalMS: d.CriticalMS}
}

// ToNotifyConfig builds a notify.Config from the parsed YAML shape,
// compiling pattern strings and parsing quiet hours.
func (c *NotificationsConfig) ToNotifyConfig() (notify.Config, error) {
	out := notify.Config{Enabled: c.Enabled}

	if len(c.Levels) > 0 {
		set, invalid := record.ParseLevels(strings.Join(c.Levels, ","))
		if len(invalid) > 0 {
			return out, fmt.Errorf("notifications.levels: unrecognized level name(s): %v", invalid)
		}
		out.AddRule(notify.LevelRule(set))
	}

	for _, pat := range c.Patterns {
		rule, err := notify.CompilePatternToken(pat)
		if err != nil {
			return out, fmt.Errorf("notifications.patterns: %w", err)
		}
		out.AddRule(rule)
	}

	if c.ErrorRate > 0 {
		out.AddRule(notify.ErrorRateRule(c.ErrorRate))
	}
	if c.SlowQueryMS > 0 {
		out.AddRule(notify.SlowQueryRule(c.SlowQueryMS))
	}

	if c.QuietHours != "" {
		qh, err := notify.ParseQuietHours(c.QuietHours)
		if err != nil {
			return out, fmt.Errorf("notifications.quiet_hours: %w", err)
		}
		out.QuietHours = &qh
	}

	return out, nil
}

// DefaultLogPath returns ~/.config/pgtail/pgtail.log, used when LogFile
// is unset.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pgtail.log"
	}
	return home + "/.config/pgtail/pgtail.log"
}

// CustomHighlightRule is one user-defined regex highlighter, persisted
// alongside the main YAML config rather than inside it since rules are
// edited far more often than the rest of the settings tree.
type CustomHighlightRule struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	Priority int    `yaml:"priority"`
	Color    string `yaml:"color"`
}

// customHighlightFile is the on-disk shape of highlights.yaml.
type customHighlightFile struct {
	Rules []CustomHighlightRule `yaml:"rules"`
}

// DefaultHighlightRulesPath returns ~/.config/pgtail/highlights.yaml.
func DefaultHighlightRulesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "highlights.yaml"
	}
	return home + "/.config/pgtail/highlights.yaml"
}

// LoadCustomHighlightRules reads a user-maintained highlights.yaml,
// returning (nil, nil) when the file doesn't exist. Unlike the viper-
// loaded config, this file is read with yaml.v3 directly: it is a plain
// list a user is expected to hand-edit, not a merged/env-overridable
// settings tree.
func LoadCustomHighlightRules(path string) ([]CustomHighlightRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file customHighlightFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return file.Rules, nil
}
