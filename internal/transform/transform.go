// Package transform applies per-source line rewrites and inclusion filtering.
package transform

import (
	"regexp"
)

// syslogPrefix matches the classic syslog line prefix: month name, day,
// time, then a single hostname token. Capture groups are the timestamp and
// the remainder after the hostname.
var syslogPrefix = regexp.MustCompile(`^([A-Z][a-z]{2} {1,2}\d{1,2} \d{2}:\d{2}:\d{2}) (\S+) (.*)$`)

// Transformer filters and rewrites lines for one source. The zero value
// passes every line through unmodified.
type Transformer struct {
	include       *regexp.Regexp
	stripHostname bool
}

// New creates a Transformer. includeRegex may be empty, meaning every line
// passes the filter.
func New(includeRegex string, stripHostname bool) (*Transformer, error) {
	t := &Transformer{stripHostname: stripHostname}
	if includeRegex != "" {
		re, err := regexp.Compile(includeRegex)
		if err != nil {
			return nil, err
		}
		t.include = re
	}
	return t, nil
}

// Apply runs the inclusion filter and, for lines that pass, the optional
// syslog hostname strip. The filter is evaluated against the original line;
// stripping is a cosmetic rewrite applied afterwards. Returns the transformed
// line and whether the line produced output at all.
func (t *Transformer) Apply(line string) (string, bool) {
	if t.include != nil && !t.include.MatchString(line) {
		return "", false
	}
	if t.stripHostname {
		line = StripSyslogHostname(line)
	}
	return line, true
}

// StripSyslogHostname removes the hostname token from a syslog-prefixed line,
// rejoining timestamp and remainder. Lines that do not match the prefix shape
// are returned unchanged.
func StripSyslogHostname(line string) string {
	m := syslogPrefix.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	return m[1] + " " + m[3]
}
