// Package classify assigns a severity to raw log lines based on keyword cues.
package classify

import (
	"regexp"

	"github.com/good-yellow-bee/docklog/internal/models"
)

// Keyword patterns per severity tier, whole-word and case-insensitive.
// Tiers are checked most severe first so a line carrying both an ERROR and a
// WARN cue classifies as ERROR.
var (
	criticalPattern = regexp.MustCompile(`(?i)\b(critical|crit|fatal|emerg|emergency|panic)\b`)
	errorPattern    = regexp.MustCompile(`(?i)\b(error|err|exception|failed|failure)\b`)
	warnPattern     = regexp.MustCompile(`(?i)\b(warn|warning)\b`)
)

var tiers = []struct {
	severity models.Severity
	pattern  *regexp.Regexp
}{
	{models.SeverityCritical, criticalPattern},
	{models.SeverityError, errorPattern},
	{models.SeverityWarn, warnPattern},
}

// Classify returns the severity of a line. Lines without any recognized
// keyword are INFO. The result is a pure function of the line text.
func Classify(line string) models.Severity {
	for _, tier := range tiers {
		if tier.pattern.MatchString(line) {
			return tier.severity
		}
	}
	return models.SeverityInfo
}
