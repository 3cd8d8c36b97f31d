package logformat

import (
	"regexp"
	"strconv"
	"time"
)

// TimestampParser detects and parses timestamps from log lines
type TimestampParser struct {
	patterns []timestampPattern
}

type timestampPattern struct {
	regex   *regexp.Regexp
	layouts []string
}

const (
	layoutUnix   = "unix"
	layoutUnixMs = "unix_ms"
)

// NewTimestampParser creates a parser covering the common log timestamp
// shapes: RFC 3339, space-separated datetime with or without millis,
// bracketed datetime, syslog, Apache/nginx access logs, unix epochs, and
// bare time-of-day prefixes.
func NewTimestampParser() *TimestampParser {
	return &TimestampParser{
		patterns: []timestampPattern{
			{
				regex:   regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d{3})?(?:Z|[+-]\d{2}:\d{2})?)`),
				layouts: []string{time.RFC3339},
			},
			{
				regex:   regexp.MustCompile(`[\[ ]?(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d{3})?)`),
				layouts: []string{"2006-01-02 15:04:05.000", "2006-01-02 15:04:05"},
			},
			{
				regex:   regexp.MustCompile(`(\d{2}/[A-Z][a-z]{2}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4})`),
				layouts: []string{"02/Jan/2006:15:04:05 -0700"},
			},
			{
				regex:   regexp.MustCompile(`([A-Z][a-z]{2} \d{1,2} \d{2}:\d{2}:\d{2})`),
				layouts: []string{"Jan 2 15:04:05"},
			},
			{
				regex:   regexp.MustCompile(`^(\d{13})(?:\D|$)`),
				layouts: []string{layoutUnixMs},
			},
			{
				regex:   regexp.MustCompile(`^(\d{10})(?:\D|$)`),
				layouts: []string{layoutUnix},
			},
			{
				regex:   regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}(?:\.\d{3})?)`),
				layouts: []string{"15:04:05.000", "15:04:05"},
			},
		},
	}
}

// Parse attempts to extract a timestamp from a log line, returning nil
// when none of the known shapes match
func (p *TimestampParser) Parse(content string) *time.Time {
	for _, pattern := range p.patterns {
		matches := pattern.regex.FindStringSubmatch(content)
		if len(matches) < 2 {
			continue
		}
		if t := parseMatched(matches[1], pattern.layouts); t != nil {
			return t
		}
	}
	return nil
}

func parseMatched(s string, layouts []string) *time.Time {
	for _, layout := range layouts {
		switch layout {
		case layoutUnix, layoutUnixMs:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				continue
			}
			var t time.Time
			if layout == layoutUnix {
				t = time.Unix(n, 0)
			} else {
				t = time.UnixMilli(n)
			}
			return &t
		}

		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		now := time.Now()
		// Layouts without a date component assume today; syslog has no year
		switch layout {
		case "15:04:05", "15:04:05.000":
			t = time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
		case "Jan 2 15:04:05":
			t = time.Date(now.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.Local)
		}
		return &t
	}
	return nil
}

// FormatTime formats a timestamp for display
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04:05")
}
