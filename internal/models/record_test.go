package models

import (
	"strings"
	"testing"
	"time"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"INFO", SeverityInfo, true},
		{"warn", SeverityWarn, true},
		{"WARNING", SeverityWarn, true},
		{" error ", SeverityError, true},
		{"Critical", SeverityCritical, true},
		{"debug", SeverityInfo, false},
		{"", SeverityInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseSeverity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSeverity(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityInfo) {
		t.Error("CRITICAL should be at least INFO")
	}
	if SeverityWarn.AtLeast(SeverityError) {
		t.Error("WARN should not be at least ERROR")
	}
	if !SeverityError.AtLeast(SeverityError) {
		t.Error("ERROR should be at least ERROR")
	}
}

func TestNewSeveritySet(t *testing.T) {
	set, err := NewSeveritySet([]string{"ERROR", "critical"})
	if err != nil {
		t.Fatalf("NewSeveritySet: %v", err)
	}
	if !set.Contains(SeverityError) || !set.Contains(SeverityCritical) {
		t.Errorf("set missing expected levels: %v", set)
	}
	if set.Contains(SeverityInfo) {
		t.Error("set should not contain INFO")
	}

	if _, err := NewSeveritySet([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestRecordString(t *testing.T) {
	r := Record{
		Source:    "Syslog",
		Severity:  SeverityError,
		Text:      "disk full",
		Timestamp: time.Date(2025, 2, 25, 18, 54, 47, 0, time.UTC),
	}

	got := r.String()
	for _, want := range []string{"[ERROR]", "[Syslog]", "disk full", "2025-02-25T18:54:47Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("Record.String() = %q, missing %q", got, want)
		}
	}
}
