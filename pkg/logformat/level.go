package logformat

import (
	"strings"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/config"
)

// LevelDetector detects log levels from line content
type LevelDetector struct {
	ordered []levelPatterns
}

type levelPatterns struct {
	level    buffer.Level
	patterns []string
}

// NewLevelDetector creates a detector from config. Patterns are checked
// from most to least severe so a line mentioning both ERROR and INFO is
// classified as an error.
func NewLevelDetector(cfg *config.LogLevelConfig) *LevelDetector {
	return &LevelDetector{
		ordered: []levelPatterns{
			{buffer.LevelFatal, cfg.FatalPatterns},
			{buffer.LevelError, cfg.ErrorPatterns},
			{buffer.LevelWarn, cfg.WarnPatterns},
			{buffer.LevelInfo, cfg.InfoPatterns},
			{buffer.LevelDebug, cfg.DebugPatterns},
			{buffer.LevelTrace, cfg.TracePatterns},
		},
	}
}

// Detect returns the log level for a line
func (d *LevelDetector) Detect(content string) buffer.Level {
	for _, lp := range d.ordered {
		for _, pattern := range lp.patterns {
			if strings.Contains(content, pattern) {
				return lp.level
			}
		}
	}
	return buffer.LevelUnknown
}
