package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/docklog/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
general:
  tz: UTC
  updatefreq: 5s
notification:
  enabled: true
  ntfy_url: https://ntfy.sh/mytopic
  levels: [ERROR, CRITICAL]
sources:
  - name: Syslog
    input: /var/log/syslog*
    strip_syslog_hostname: true
  - name: App
    input: /var/log/app/*.log
    regex: "payment"
    notify: false
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Interval() != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval())
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(cfg.Sources))
	}

	// notify defaults to the global enabled flag.
	if !*cfg.Sources[0].Notify {
		t.Error("Syslog notify should default to notification.enabled")
	}
	if *cfg.Sources[1].Notify {
		t.Error("App notify=false should be respected")
	}
	// notify_levels default from the notification section.
	if len(cfg.Sources[0].NotifyLevels) != 2 {
		t.Errorf("NotifyLevels = %v", cfg.Sources[0].NotifyLevels)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
sources:
  - name: App
    input: /var/log/app.log
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.General.TZ != "UTC" {
		t.Errorf("TZ = %q, want UTC", cfg.General.TZ)
	}
	if cfg.Interval() != 5*time.Second {
		t.Errorf("Interval = %v, want default 5s", cfg.Interval())
	}
	if cfg.General.HealthPath == "" {
		t.Error("HealthPath should have a default")
	}
	if cfg.Notification.TitlePrefix != appName {
		t.Errorf("TitlePrefix = %q", cfg.Notification.TitlePrefix)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no sources", "general:\n  tz: UTC\n"},
		{"missing name", "sources:\n  - input: /var/log/x.log\n"},
		{"missing input", "sources:\n  - name: App\n"},
		{"reserved name", "sources:\n  - name: general\n    input: /x.log\n"},
		{"duplicate name", "sources:\n  - name: A\n    input: /x.log\n  - name: A\n    input: /y.log\n"},
		{"bad regex", "sources:\n  - name: A\n    input: /x.log\n    regex: '(unclosed'\n"},
		{"bad levels", "sources:\n  - name: A\n    input: /x.log\n    notify_levels: [LOUD]\n"},
		{"bad tz", "general:\n  tz: Mars/Olympus\nsources:\n  - name: A\n    input: /x.log\n"},
		{"bad updatefreq", "general:\n  updatefreq: soon\nsources:\n  - name: A\n    input: /x.log\n"},
		{"notify without url", "notification:\n  enabled: true\nsources:\n  - name: A\n    input: /x.log\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseUpdateFreq(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"5s", 5 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"1min", time.Minute, false},
		{"60", 60 * time.Second, false},
		{"0", time.Second, false},     // clamped
		{"500ms", time.Second, false}, // clamped
		{"", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseUpdateFreq(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseUpdateFreq(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseUpdateFreq(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildSources(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	sources, err := cfg.BuildSources()
	if err != nil {
		t.Fatalf("BuildSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}

	syslog := sources[0]
	if syslog.Name != "Syslog" || syslog.Pattern != "/var/log/syslog*" {
		t.Errorf("syslog source = %+v", syslog)
	}
	if !syslog.Notify {
		t.Error("syslog source should alert")
	}
	if !syslog.NotifyLevels.Contains(models.SeverityError) {
		t.Errorf("NotifyLevels = %v", syslog.NotifyLevels)
	}
	if sources[1].Notify {
		t.Error("app source has notify: false")
	}
}
