// Package models contains the core data structures for docklog.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the classification level assigned to a log line.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// severityRank orders severities from least to most severe.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarn:     1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is as severe as or more severe than other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// ParseSeverity converts a string to a Severity. WARNING is accepted as an
// alias for WARN. Unknown values return SeverityInfo and false.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "WARNING" {
		s = SeverityWarn
	}
	if !s.Valid() {
		return SeverityInfo, false
	}
	return s, true
}

// SeveritySet is a set of severities, used for per-source alert filtering.
type SeveritySet map[Severity]struct{}

// NewSeveritySet builds a set from string values, rejecting unknown levels.
func NewSeveritySet(levels []string) (SeveritySet, error) {
	set := make(SeveritySet, len(levels))
	for _, raw := range levels {
		s, ok := ParseSeverity(raw)
		if !ok {
			return nil, fmt.Errorf("unknown severity level %q", raw)
		}
		set[s] = struct{}{}
	}
	return set, nil
}

// Contains reports whether s is in the set.
func (ss SeveritySet) Contains(s Severity) bool {
	_, ok := ss[s]
	return ok
}

// String returns the set as a sorted comma-joined list.
func (ss SeveritySet) String() string {
	parts := make([]string, 0, len(ss))
	for _, s := range []Severity{SeverityInfo, SeverityWarn, SeverityError, SeverityCritical} {
		if ss.Contains(s) {
			parts = append(parts, string(s))
		}
	}
	return strings.Join(parts, ",")
}

// Record is a single classified log line, produced by the engine and consumed
// immediately by the dispatch sink. Records are never persisted.
type Record struct {
	Source    string    `json:"source"`
	Severity  Severity  `json:"level"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// String formats the record in the output stream format.
func (r Record) String() string {
	return fmt.Sprintf("%s [%s] [%s] %s",
		r.Timestamp.Format(time.RFC3339), r.Severity, r.Source, r.Text)
}
