package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/zibo-chen/logline/internal/config"
	"github.com/zibo-chen/logline/internal/session"
	"github.com/zibo-chen/logline/internal/ui"
)

func main() {
	encodingFlag := flag.String("e", "", "Force encoding (utf-8, utf-16le, utf-16be, latin-1)")
	tailFlag := flag.Int("n", 0, "Lines to load from the end of the file (default from config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: logline [-e encoding] [-n lines] <file>\n")
		fmt.Fprintf(os.Stderr, "  -e\tForce encoding instead of detecting it\n")
		fmt.Fprintf(os.Stderr, "  -n\tLines to load from the end of the file\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *tailFlag > 0 {
		cfg.Engine.TailLines = *tailFlag
	}

	log := newLogger(cfg)

	sess, err := session.Open(flag.Arg(0), cfg, *encodingFlag, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	model := ui.NewModel(sess, cfg)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the debug logger. The terminal belongs to the TUI, so
// diagnostics go to a file when configured and are discarded otherwise.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	if cfg.Debug.LogFile == "" {
		return log
	}

	f, err := os.OpenFile(cfg.Debug.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return log
	}
	log.SetOutput(f)

	if level, err := logrus.ParseLevel(cfg.Debug.LogLevel); err == nil {
		log.SetLevel(level)
	}
	return log
}
