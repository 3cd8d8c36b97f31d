package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/config"
)

// Renderer applies styling to entries
type Renderer interface {
	Render(e *buffer.Entry) string
}

// LevelRenderer colors entries by their detected log level
type LevelRenderer struct {
	styles map[buffer.Level]lipgloss.Style
}

// NewLevelRenderer creates a renderer from the theme config
func NewLevelRenderer(cfg *config.Config) *LevelRenderer {
	colors := cfg.Theme.Levels
	return &LevelRenderer{
		styles: map[buffer.Level]lipgloss.Style{
			buffer.LevelUnknown: lipgloss.NewStyle(),
			buffer.LevelTrace:   lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Trace)),
			buffer.LevelDebug:   lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Debug)),
			buffer.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Info)),
			buffer.LevelWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Warn)),
			buffer.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Error)),
			buffer.LevelFatal:   lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Fatal)),
		},
	}
}

// Render applies level styling to an entry
func (r *LevelRenderer) Render(e *buffer.Entry) string {
	return r.styles[e.Level].Render(e.Content)
}

// PlainRenderer renders without styling
type PlainRenderer struct{}

// NewPlainRenderer creates a plain renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// Render returns the entry content as-is
func (r *PlainRenderer) Render(e *buffer.Entry) string {
	return e.Content
}
