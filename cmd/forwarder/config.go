// Package main provides the docklog-forwarder CLI.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/docklog/internal/engine"
	"github.com/good-yellow-bee/docklog/internal/models"
	"github.com/good-yellow-bee/docklog/internal/transform"
)

const appName = "docklog-forwarder"

// Names reserved for the forwarder's own diagnostics on the output stream.
var reservedSourceNames = map[string]bool{
	"general":      true,
	"notification": true,
}

// Config represents the forwarder configuration.
type Config struct {
	General      GeneralConfig      `yaml:"general"`
	Notification NotificationConfig `yaml:"notification"`
	Sources      []SourceConfig     `yaml:"sources"`
}

// GeneralConfig contains global settings.
type GeneralConfig struct {
	TZ            string `yaml:"tz"`             // IANA timezone name (default: UTC)
	UpdateFreq    string `yaml:"updatefreq"`     // poll interval: 5s, 1min, or bare seconds
	StatePath     string `yaml:"state_path"`     // offset store; empty disables persistence
	HealthPath    string `yaml:"health_path"`    // heartbeat file
	MetricsListen string `yaml:"metrics_listen"` // e.g. :9090; empty disables the listener
	WatchConfig   bool   `yaml:"watch_config"`   // reload sources when the config file changes
}

// NotificationConfig contains ntfy push settings.
type NotificationConfig struct {
	Enabled       bool     `yaml:"enabled"`
	NtfyURL       string   `yaml:"ntfy_url"`
	Levels        []string `yaml:"levels"` // default: ERROR, CRITICAL
	TitlePrefix   string   `yaml:"title_prefix"`
	AuthToken     string   `yaml:"auth_token"`
	AllowInsecure bool     `yaml:"allow_insecure"`
	RatePerMin    int      `yaml:"rate_per_minute"`
	QueueSize     int      `yaml:"queue_size"`
}

// SourceConfig defines one log source to tail.
type SourceConfig struct {
	Name                string   `yaml:"name"`
	Input               string   `yaml:"input"` // file path or glob pattern
	Regex               string   `yaml:"regex"` // inclusion filter; empty matches everything
	StripSyslogHostname bool     `yaml:"strip_syslog_hostname"`
	Notify              *bool    `yaml:"notify"`        // default: notification.enabled
	NotifyLevels        []string `yaml:"notify_levels"` // default: notification.levels
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.General.TZ == "" {
		c.General.TZ = "UTC"
	}
	if c.General.UpdateFreq == "" {
		c.General.UpdateFreq = "5s"
	}
	if c.General.HealthPath == "" {
		c.General.HealthPath = "/tmp/" + appName + ".health"
	}
	if c.Notification.TitlePrefix == "" {
		c.Notification.TitlePrefix = appName
	}
	if len(c.Notification.Levels) == 0 {
		c.Notification.Levels = []string{"ERROR", "CRITICAL"}
	}
	if c.Notification.RatePerMin == 0 {
		c.Notification.RatePerMin = 30
	}
	if c.Notification.QueueSize == 0 {
		c.Notification.QueueSize = 64
	}
	for i := range c.Sources {
		if c.Sources[i].Notify == nil {
			enabled := c.Notification.Enabled
			c.Sources[i].Notify = &enabled
		}
		if len(c.Sources[i].NotifyLevels) == 0 {
			c.Sources[i].NotifyLevels = c.Notification.Levels
		}
	}
}

// Validate checks the configuration for errors. Configuration problems are
// fatal at startup: the forwarder must not run half-configured.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.General.TZ); err != nil {
		return fmt.Errorf("general.tz: %w", err)
	}
	if _, err := ParseUpdateFreq(c.General.UpdateFreq); err != nil {
		return fmt.Errorf("general.updatefreq: %w", err)
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if reservedSourceNames[strings.ToLower(src.Name)] {
			return fmt.Errorf("sources[%d].name %q is reserved", i, src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
		if src.Input == "" {
			return fmt.Errorf("sources[%d].input is required", i)
		}
		if _, err := transform.New(src.Regex, src.StripSyslogHostname); err != nil {
			return fmt.Errorf("sources[%d].regex: %w", i, err)
		}
		if _, err := models.NewSeveritySet(src.NotifyLevels); err != nil {
			return fmt.Errorf("sources[%d].notify_levels: %w", i, err)
		}
	}

	if c.Notification.Enabled {
		if c.Notification.NtfyURL == "" {
			return fmt.Errorf("notification.ntfy_url is required when notifications are enabled")
		}
		if _, err := models.NewSeveritySet(c.Notification.Levels); err != nil {
			return fmt.Errorf("notification.levels: %w", err)
		}
	}

	return nil
}

// ParseUpdateFreq parses the poll interval. It accepts Go duration strings
// (5s, 2m), the legacy "Nmin" form, and bare integers meaning seconds. The
// result is clamped to at least one second.
func ParseUpdateFreq(raw string) (time.Duration, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var d time.Duration
	if n, err := strconv.Atoi(value); err == nil {
		d = time.Duration(n) * time.Second
	} else if mins, ok := strings.CutSuffix(value, "min"); ok {
		n, err := strconv.Atoi(mins)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		d = time.Duration(n) * time.Minute
	} else {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		d = parsed
	}

	if d < time.Second {
		d = time.Second
	}
	return d, nil
}

// Interval returns the parsed poll interval.
func (c *Config) Interval() time.Duration {
	d, _ := ParseUpdateFreq(c.General.UpdateFreq)
	return d
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	loc, _ := time.LoadLocation(c.General.TZ)
	return loc
}

// BuildSources compiles the configured sources into engine sources.
func (c *Config) BuildSources() ([]engine.Source, error) {
	sources := make([]engine.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		tr, err := transform.New(src.Regex, src.StripSyslogHostname)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		levels, err := models.NewSeveritySet(src.NotifyLevels)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		notify := src.Notify != nil && *src.Notify && c.Notification.Enabled
		sources = append(sources, engine.Source{
			Name:         src.Name,
			Pattern:      src.Input,
			Transformer:  tr,
			Notify:       notify,
			NotifyLevels: levels,
		})
	}
	return sources, nil
}
