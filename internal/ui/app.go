package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/config"
	"github.com/zibo-chen/logline/internal/filter"
	"github.com/zibo-chen/logline/internal/render"
	"github.com/zibo-chen/logline/internal/session"
	"github.com/zibo-chen/logline/internal/view"
	"github.com/zibo-chen/logline/pkg/logformat"
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeGoto
)

// refreshInterval is how often the UI drains worker events
const refreshInterval = 100 * time.Millisecond

// noticeTTL is how long a transient error notice stays on the status bar
const noticeTTL = 5 * time.Second

type tickMsg time.Time

type notice struct {
	text    string
	expires time.Time
}

// Model is the main application model. It owns the session (and through it
// the window); all updates happen on the bubbletea loop, which is the
// single consumer goroutine the engine requires.
type Model struct {
	cfg      *config.Config
	sess     *session.Session
	viewport *view.Viewport
	filtered *filter.View

	searchInput textinput.Model
	mode        Mode

	width  int
	height int

	follow  bool
	syntax  bool
	notices []notice

	levelRenderer  render.Renderer
	syntaxRenderer render.Renderer
}

// NewModel creates the application model over an open session
func NewModel(sess *session.Session, cfg *config.Config) *Model {
	viewport := view.NewViewport(80, 24)
	viewport.SetStyles(cfg.Theme.LineNumbers, cfg.Theme.Bookmark)
	viewport.SetShowLineNumbers(cfg.Display.ShowLineNumbers)

	filtered := filter.NewView(sess.Window())
	viewport.SetProvider(filtered)

	levelRenderer := render.NewLevelRenderer(cfg)
	viewport.SetRenderer(levelRenderer)
	viewport.GotoBottom()

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.CharLimit = 256

	return &Model{
		cfg:            cfg,
		sess:           sess,
		viewport:       viewport,
		filtered:       filtered,
		searchInput:    ti,
		mode:           ModeNormal,
		follow:         true,
		levelRenderer:  levelRenderer,
		syntaxRenderer: render.NewSyntaxRenderer(sess.Path()),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Reserve 2 lines for status bar and help
		m.viewport.SetSize(msg.Width, msg.Height-2)
		return m, nil
	}

	return m, nil
}

// refresh drains worker events and applies them to the view
func (m *Model) refresh() {
	res := m.sess.Drain()

	if res.Changed() {
		m.filtered.MarkDirty()
	}
	if res.Reset {
		m.notices = append(m.notices, notice{
			text:    "file rotated, reloaded from start",
			expires: time.Now().Add(noticeTTL),
		})
		m.viewport.GotoTop()
	}
	if res.Prepended > 0 && !m.filtered.Active() {
		// Keep the visible lines stable while history lands above them
		m.viewport.ScrollAfterPrepend(res.Prepended)
	}
	for _, e := range res.Errors {
		m.notices = append(m.notices, notice{text: e, expires: time.Now().Add(noticeTTL)})
	}
	if m.follow {
		m.viewport.GotoBottom()
	}

	m.pruneNotices()
}

func (m *Model) pruneNotices() {
	now := time.Now()
	kept := m.notices[:0]
	for _, n := range m.notices {
		if n.expires.After(now) {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == ModeSearch || m.mode == ModeGoto {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.follow = false
		m.viewport.ScrollDown(1)
	case "k", "up":
		m.follow = false
		m.scrollUp(1)

	case "f", "pgdown", " ", "ctrl+d":
		m.follow = false
		m.viewport.PageDown()
	case "b", "pgup", "ctrl+u":
		m.follow = false
		m.pageUp()

	case "g", "home":
		m.follow = false
		m.viewport.GotoTop()
		m.maybeLoadHistory()
	case "G", "end":
		m.viewport.GotoBottom()
		m.follow = true

	case "F":
		m.follow = !m.follow

	case "m":
		m.toggleBookmark()

	case "e":
		m.follow = false
		m.filtered.SetLevelAndAbove(buffer.LevelError)
	case "E":
		m.filtered.ClearFilters()

	case "s":
		m.syntax = !m.syntax
		if m.syntax {
			m.viewport.SetRenderer(m.syntaxRenderer)
		} else {
			m.viewport.SetRenderer(m.levelRenderer)
		}

	case "c":
		m.sess.Window().Clear()
		m.filtered.MarkDirty()

	case "r":
		if err := m.sess.Reload(); err != nil {
			m.notices = append(m.notices, notice{text: err.Error(), expires: time.Now().Add(noticeTTL)})
			return m, nil
		}
		m.filtered.SetWindow(m.sess.Window())
		m.viewport.GotoBottom()
		m.follow = true

	case "/":
		m.mode = ModeSearch
		m.searchInput.SetValue("")
		m.searchInput.Placeholder = "Filter..."
		m.searchInput.Focus()
		return m, textinput.Blink

	case ":":
		m.mode = ModeGoto
		m.searchInput.SetValue("")
		m.searchInput.Placeholder = "Line number..."
		m.searchInput.Focus()
		return m, textinput.Blink
	}

	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := m.searchInput.Value()
		if m.mode == ModeSearch {
			m.follow = false
			m.filtered.SetTextFilter(value)
			m.viewport.GotoTop()
		} else {
			var lineNum int
			fmt.Sscanf(value, "%d", &lineNum)
			if lineNum > 0 {
				m.follow = false
				m.gotoLine(lineNum)
			}
		}
		m.mode = ModeNormal
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.mode = ModeNormal
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// scrollUp scrolls up and requests older lines when the top of the buffered
// window comes into view
func (m *Model) scrollUp(n int) {
	m.viewport.ScrollUp(n)
	m.maybeLoadHistory()
}

func (m *Model) pageUp() {
	m.viewport.PageUp()
	m.maybeLoadHistory()
}

func (m *Model) maybeLoadHistory() {
	if m.viewport.AtTop() && !m.filtered.Active() {
		m.sess.RequestHistory()
	}
}

func (m *Model) gotoLine(lineNum int) {
	// Drop any active filter first so the index is computed against the
	// same provider the viewport will show
	if m.filtered.Active() {
		m.filtered.ClearFilters()
	}
	m.viewport.GotoIndex(lineNum - m.sess.Window().FirstLineNumber())
}

// toggleBookmark flips the bookmark on the top visible entry
func (m *Model) toggleBookmark() {
	idx := m.filtered.BufferIndex(m.viewport.TopIndex())
	if idx < 0 {
		return
	}
	m.sess.Window().ToggleBookmarks([]int{idx})
}

// View implements tea.Model
func (m *Model) View() string {
	var builder strings.Builder

	builder.WriteString(m.viewport.Render())
	builder.WriteString("\n")

	statusStyle := lipgloss.NewStyle().
		Background(lipgloss.Color(m.cfg.Theme.StatusBar)).
		Foreground(lipgloss.Color(m.cfg.Theme.StatusBarText)).
		Width(m.width)

	var status string
	switch m.mode {
	case ModeSearch:
		status = "/" + m.searchInput.View()
	case ModeGoto:
		status = ":" + m.searchInput.View()
	default:
		status = m.statusLine()
	}

	builder.WriteString(statusStyle.Render(status))
	builder.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	help := "j/k:scroll  f/b:page  g/G:top/bottom  F:follow  m:mark  e/E:errors  /:filter  ::goto  r:reload  q:quit"
	builder.WriteString(helpStyle.Render(help))

	return builder.String()
}

func (m *Model) statusLine() string {
	window := m.sess.Window()

	lineInfo := fmt.Sprintf("L%d-%d", window.FirstLineNumber(), window.LastLineNumber())
	memInfo := fmt.Sprintf("%dKB", window.MemoryUsage()/1024)

	timeInfo := ""
	if top := m.filtered.At(m.viewport.TopIndex()); top != nil && top.Timestamp != nil {
		timeInfo = " @" + logformat.FormatTime(top.Timestamp)
	}

	followInfo := ""
	if m.follow {
		followInfo = " [follow]"
	}
	filterInfo := ""
	if m.filtered.Active() {
		filterInfo = fmt.Sprintf(" [filtered %d/%d]", m.filtered.Len(), window.Len())
	}
	historyInfo := ""
	switch m.sess.Lazy().Phase() {
	case buffer.PhaseLoading:
		historyInfo = " [loading history]"
	case buffer.PhaseFullyLoaded:
		historyInfo = " [full history]"
	}

	noticeInfo := ""
	if len(m.notices) > 0 {
		noticeInfo = "  ! " + m.notices[len(m.notices)-1].text
	}

	return fmt.Sprintf(" %s  %s  %s  %s  %.0f%%%s%s%s%s%s",
		m.sess.Path(), m.sess.EncodingName(), lineInfo, memInfo,
		m.viewport.PercentScrolled(), timeInfo, followInfo, filterInfo, historyInfo, noticeInfo)
}

// Close cleans up resources
func (m *Model) Close() error {
	return m.sess.Close()
}
