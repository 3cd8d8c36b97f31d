package logformat

import (
	"testing"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/config"
)

func TestDetectLevel(t *testing.T) {
	d := NewLevelDetector(&config.DefaultConfig().LogLevels)

	tests := []struct {
		line string
		want buffer.Level
	}{
		{"2024-01-15 [TRC] entering handler", buffer.LevelTrace},
		{"2024-01-15 [DBG] cache miss", buffer.LevelDebug},
		{"2024-01-15 [INF] request served", buffer.LevelInfo},
		{"2024-01-15 [WRN] retry scheduled", buffer.LevelWarn},
		{"2024-01-15 [ERR] connection refused", buffer.LevelError},
		{"2024-01-15 [FTL] out of memory", buffer.LevelFatal},
		{"plain text with no level marker", buffer.LevelUnknown},
		// Severity wins when multiple markers appear
		{"INFO about an ERROR we saw", buffer.LevelError},
	}

	for _, tt := range tests {
		if got := d.Detect(tt.line); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
