package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/render"
)

// EntryProvider is what the viewport scrolls over: the window itself, or a
// filtered view of it. Read-only.
type EntryProvider interface {
	Len() int
	At(i int) *buffer.Entry
}

// Viewport manages the visible portion of the window. It knows nothing
// about files, workers, or filters; it only displays entries from a
// provider.
type Viewport struct {
	provider EntryProvider
	renderer render.Renderer

	width  int
	height int

	scrollOffset int

	lineNumberStyle lipgloss.Style
	bookmarkStyle   lipgloss.Style

	showLineNumbers bool
}

// NewViewport creates a viewport with the given dimensions
func NewViewport(width, height int) *Viewport {
	return &Viewport{
		width:           width,
		height:          height,
		showLineNumbers: true,
		lineNumberStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		bookmarkStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		renderer:        render.NewPlainRenderer(),
	}
}

// SetProvider sets the entry provider
func (v *Viewport) SetProvider(p EntryProvider) {
	v.provider = p
	v.clampScroll()
}

// SetRenderer sets the entry renderer
func (v *Viewport) SetRenderer(r render.Renderer) {
	v.renderer = r
}

// SetStyles updates line number and bookmark colors
func (v *Viewport) SetStyles(lineNumbers, bookmark string) {
	v.lineNumberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(lineNumbers))
	v.bookmarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(bookmark)).Bold(true)
}

// SetShowLineNumbers toggles the line number gutter
func (v *Viewport) SetShowLineNumbers(show bool) {
	v.showLineNumbers = show
}

// SetSize updates viewport dimensions
func (v *Viewport) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.clampScroll()
}

// Height returns the viewport height in lines
func (v *Viewport) Height() int {
	return v.height
}

// ScrollDown scrolls down by n lines
func (v *Viewport) ScrollDown(n int) {
	v.scrollOffset += n
	v.clampScroll()
}

// ScrollUp scrolls up by n lines
func (v *Viewport) ScrollUp(n int) {
	v.scrollOffset -= n
	v.clampScroll()
}

// PageDown scrolls down by one page
func (v *Viewport) PageDown() {
	v.ScrollDown(v.height - 1)
}

// PageUp scrolls up by one page
func (v *Viewport) PageUp() {
	v.ScrollUp(v.height - 1)
}

// GotoTop scrolls to the first buffered entry
func (v *Viewport) GotoTop() {
	v.scrollOffset = 0
}

// GotoBottom scrolls so the last entry is visible
func (v *Viewport) GotoBottom() {
	if v.provider == nil {
		return
	}
	v.scrollOffset = v.provider.Len() - v.height
	v.clampScroll()
}

// GotoIndex scrolls to a provider-local index
func (v *Viewport) GotoIndex(i int) {
	v.scrollOffset = i
	v.clampScroll()
}

// TopIndex returns the provider-local index of the top visible entry
func (v *Viewport) TopIndex() int {
	return v.scrollOffset
}

// AtTop reports whether the first buffered entry is visible
func (v *Viewport) AtTop() bool {
	return v.scrollOffset == 0
}

// AtBottom reports whether the last buffered entry is visible
func (v *Viewport) AtBottom() bool {
	if v.provider == nil {
		return true
	}
	return v.scrollOffset >= v.provider.Len()-v.height
}

// ScrollAfterPrepend keeps the visible lines stable after n older entries
// were inserted above the current position
func (v *Viewport) ScrollAfterPrepend(n int) {
	v.scrollOffset += n
	v.clampScroll()
}

func (v *Viewport) clampScroll() {
	if v.provider == nil {
		v.scrollOffset = 0
		return
	}

	maxScroll := v.provider.Len() - v.height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if v.scrollOffset > maxScroll {
		v.scrollOffset = maxScroll
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

// Render returns the viewport content as a string
func (v *Viewport) Render() string {
	if v.provider == nil {
		return ""
	}

	var builder strings.Builder
	gutterWidth := v.gutterWidth()

	count := 0
	for i := v.scrollOffset; i < v.scrollOffset+v.height; i++ {
		e := v.provider.At(i)
		if e == nil {
			break
		}
		if count > 0 {
			builder.WriteString("\n")
		}
		count++

		if v.showLineNumbers {
			marker := " "
			if e.Bookmarked {
				marker = "●"
			}
			num := fmt.Sprintf("%s%*d ", marker, gutterWidth, e.LineNumber)
			if e.Bookmarked {
				builder.WriteString(v.bookmarkStyle.Render(num))
			} else {
				builder.WriteString(v.lineNumberStyle.Render(num))
			}
		}

		builder.WriteString(v.renderer.Render(e))
	}

	// Pad with tildes below the last entry
	for i := count; i < v.height; i++ {
		if i > 0 || count > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("~")
	}

	return builder.String()
}

// PercentScrolled returns how far through the buffered window the view is
func (v *Viewport) PercentScrolled() float64 {
	if v.provider == nil || v.provider.Len() == 0 {
		return 0
	}
	total := v.provider.Len()
	if total <= v.height {
		return 100
	}
	return float64(v.scrollOffset) / float64(total-v.height) * 100
}

func (v *Viewport) gutterWidth() int {
	last := v.provider.At(v.provider.Len() - 1)
	if last == nil {
		return 1
	}
	return len(fmt.Sprintf("%d", last.LineNumber))
}
