package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Engine    EngineConfig   `toml:"engine"`
	Theme     ThemeConfig    `toml:"theme"`
	LogLevels LogLevelConfig `toml:"log_levels"`
	Display   DisplayConfig  `toml:"display"`
	Debug     DebugConfig    `toml:"debug"`
}

// EngineConfig tunes the ingestion engine: window bounds, polling cadence,
// and the chunk sizes used by the tail and history loaders
type EngineConfig struct {
	MaxLines          int  `toml:"max_lines"`           // window cap when auto-trim is on
	AutoTrim          bool `toml:"auto_trim"`           // evict oldest lines past max_lines
	PollIntervalMs    int  `toml:"poll_interval_ms"`    // growth poll cadence
	TailLines         int  `toml:"tail_lines"`          // lines loaded on open
	HistoryChunkLines int  `toml:"history_chunk_lines"` // lines per scroll-up load
	HistoryFactor     int  `toml:"history_factor"`      // window may grow to max_lines * factor while paging history
	ScanChunkKB       int  `toml:"scan_chunk_kb"`       // backward-scan read granularity
	MaxLineLength     int  `toml:"max_line_length"`     // longer lines are truncated
}

// ThemeConfig defines color schemes
type ThemeConfig struct {
	LineNumbers   string         `toml:"line_numbers"`
	Bookmark      string         `toml:"bookmark"`
	StatusBar     string         `toml:"status_bar"`
	StatusBarText string         `toml:"status_bar_text"`
	SearchMatch   string         `toml:"search_match"`
	Levels        LogLevelColors `toml:"levels"`
}

// LogLevelColors defines colors for each log level
type LogLevelColors struct {
	Trace string `toml:"trace"`
	Debug string `toml:"debug"`
	Info  string `toml:"info"`
	Warn  string `toml:"warn"`
	Error string `toml:"error"`
	Fatal string `toml:"fatal"`
}

// LogLevelConfig defines log level detection patterns
type LogLevelConfig struct {
	TracePatterns []string `toml:"trace_patterns"`
	DebugPatterns []string `toml:"debug_patterns"`
	InfoPatterns  []string `toml:"info_patterns"`
	WarnPatterns  []string `toml:"warn_patterns"`
	ErrorPatterns []string `toml:"error_patterns"`
	FatalPatterns []string `toml:"fatal_patterns"`
}

// DisplayConfig holds display options
type DisplayConfig struct {
	ShowLineNumbers bool `toml:"show_line_numbers"`
	TabWidth        int  `toml:"tab_width"`
}

// DebugConfig controls the debug log file. A TUI cannot log to the
// terminal, so diagnostics go to a file when a path is set.
type DebugConfig struct {
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxLines:          10000,
			AutoTrim:          true,
			PollIntervalMs:    50,
			TailLines:         1000,
			HistoryChunkLines: 500,
			HistoryFactor:     4,
			ScanChunkKB:       1024,
			MaxLineLength:     64 * 1024,
		},
		Theme: ThemeConfig{
			LineNumbers:   "240", // Dark gray
			Bookmark:      "39",  // Blue
			StatusBar:     "236",
			StatusBarText: "252",
			SearchMatch:   "226", // Yellow
			Levels: LogLevelColors{
				Trace: "240",
				Debug: "244",
				Info:  "250",
				Warn:  "214",
				Error: "167",
				Fatal: "196",
			},
		},
		LogLevels: LogLevelConfig{
			TracePatterns: []string{"[TRC]", "[TRACE]", "TRACE", "TRC"},
			DebugPatterns: []string{"[DBG]", "[DEBUG]", "DEBUG", "DBG"},
			InfoPatterns:  []string{"[INF]", "[INFO]", "INFO", "INF"},
			WarnPatterns:  []string{"[WRN]", "[WARN]", "[WARNING]", "WARN", "WRN", "WARNING"},
			ErrorPatterns: []string{"[ERR]", "[ERROR]", "ERROR", "ERR"},
			FatalPatterns: []string{"[FTL]", "[FATAL]", "FATAL", "FTL", "[CRIT]", "CRITICAL"},
		},
		Display: DisplayConfig{
			ShowLineNumbers: true,
			TabWidth:        4,
		},
		Debug: DebugConfig{
			LogLevel: "info",
		},
	}
}

// Load loads config from file, falling back to defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := getConfigPath()
	if configPath == "" {
		return nil
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "logline", "config.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "logline", "config.toml")
}

// GetConfigPath exports the config path for user reference
func GetConfigPath() string {
	return getConfigPath()
}
