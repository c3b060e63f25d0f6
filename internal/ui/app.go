package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/otel"
	"github.com/abelbrown/newsbell/internal/ui/sources"
)

// refreshInterval is how often the reader re-reads the cache.
const refreshInterval = 30 * time.Second

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the store. It receives articles via messages.
type App struct {
	loadArticles func() tea.Cmd
	acknowledge  func() tea.Cmd
	triggerFetch func() tea.Cmd

	ring    *otel.RingBuffer
	sources *sources.Model
	now     func() time.Time

	list   list.Model
	count  int
	unread int
	err    error
	status string
	width  int
	height int

	ready         bool
	loading       bool
	debugVisible  bool
	sourcesActive bool
}

// NewApp creates a new App with the given command functions.
// loadArticles: returns a Cmd that reads the cache and counter
// acknowledge: returns a Cmd that resets the unread counter
// triggerFetch: returns a Cmd that runs one cycle (nil disables "f")
func NewApp(loadArticles, acknowledge, triggerFetch func() tea.Cmd) App {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	return App{
		loadArticles: loadArticles,
		acknowledge:  acknowledge,
		triggerFetch: triggerFetch,
		now:          time.Now,
		list:         l,
	}
}

// WithEvents enables the pipeline overlay ("?") over ring.
func (a App) WithEvents(ring *otel.RingBuffer) App {
	a.ring = ring
	return a
}

// WithSources enables the sources view ("s").
func (a App) WithSources(m sources.Model) App {
	a.sources = &m
	return a
}

// Init initializes the App by loading articles and scheduling refreshes.
func (a App) Init() tea.Cmd {
	if a.loadArticles == nil {
		return nil
	}
	return tea.Batch(a.loadArticles(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return RefreshTick{} })
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.sourcesActive && a.sources != nil {
		return a.updateSources(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.list.SetSize(msg.Width, a.listHeight())
		if a.sources != nil {
			a.sources.SetSize(msg.Width, msg.Height)
		}
		return a, nil

	case ArticlesLoaded:
		a.loading = false
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.err = nil
		a.unread = msg.Unread
		a.setArticles(msg.Articles)
		return a, nil

	case Acknowledged:
		if msg.Err != nil {
			a.err = msg.Err
		} else {
			a.unread = 0
			a.status = "marked all as read"
		}
		return a, nil

	case FetchComplete:
		a.loading = false
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.status = fmt.Sprintf("%d new, %d notified", msg.New, msg.Sent)
		if a.loadArticles != nil {
			a.loading = true
			return a, a.loadArticles()
		}
		return a, nil

	case RefreshTick:
		if a.loadArticles != nil {
			return a, tea.Batch(a.loadArticles(), tick())
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a *App) setArticles(articles []model.Article) {
	now := a.now()
	items := make([]list.Item, len(articles))
	for i, art := range articles {
		items[i] = articleItem{a: art, now: now}
	}
	a.count = len(items)
	a.list.SetItems(items)
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Keys go to the filter input while it has focus.
	if a.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		a.list, cmd = a.list.Update(msg)
		return a, cmd
	}

	// Clear any existing error on key press
	a.err = nil

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "a":
		if a.acknowledge != nil {
			return a, a.acknowledge()
		}
		return a, nil

	case "r":
		if a.loadArticles != nil {
			a.loading = true
			return a, a.loadArticles()
		}
		return a, nil

	case "f":
		if a.triggerFetch != nil {
			a.loading = true
			a.status = "fetching..."
			return a, a.triggerFetch()
		}
		return a, nil

	case "?":
		a.debugVisible = !a.debugVisible
		return a, nil

	case "s":
		if a.sources != nil {
			a.sourcesActive = true
		}
		return a, nil

	case "enter":
		if item, ok := a.list.SelectedItem().(articleItem); ok {
			a.status = item.a.Link
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a App) updateSources(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		a.width, a.height = msg.Width, msg.Height
		a.list.SetSize(msg.Width, a.listHeight())
	}

	m, cmd := a.sources.Update(msg)
	if m.IsQuitting() {
		m.ResetQuitting()
		a.sourcesActive = false
		a.sources = &m
		if a.loadArticles != nil {
			return a, a.loadArticles()
		}
		return a, cmd
	}
	a.sources = &m
	return a, cmd
}

// listHeight leaves room for the header, error and status lines.
func (a App) listHeight() int {
	h := a.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.sourcesActive && a.sources != nil {
		return a.sources.View()
	}
	if a.debugVisible {
		return lipgloss.JoinVertical(lipgloss.Left,
			debugOverlay(a.ring, a.width, a.height-1),
			debugStatusBar(a.width),
		)
	}

	body := a.list.View()
	if a.count == 0 {
		body = EmptyState.Render("No articles cached yet. Press f to fetch.")
	}

	errorBar := ""
	if a.err != nil {
		errorBar = ErrorStyle.Width(a.width).Render("Error: " + a.err.Error() + " (press any key to dismiss)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		body,
		errorBar,
		a.renderStatusBar(),
	)
}

func (a App) renderHeader() string {
	header := Header.Render("newsbell")
	if a.unread > 0 {
		header += UnreadBadge.Render(fmt.Sprintf("%d unread", a.unread))
	}
	if a.loading {
		header += LoadingText.Render("loading...")
	}
	return header
}

func (a App) renderStatusBar() string {
	keys := []string{"a", "read all", "r", "reload"}
	if a.triggerFetch != nil {
		keys = append(keys, "f", "fetch")
	}
	if a.sources != nil {
		keys = append(keys, "s", "sources")
	}
	keys = append(keys, "/", "filter", "?", "pipeline", "q", "quit")

	var hints string
	for i := 0; i < len(keys); i += 2 {
		hints += StatusBarKey.Render(keys[i]) + StatusBarText.Render(":"+keys[i+1]) + "  "
	}
	text := fmt.Sprintf("%d articles  %s", a.count, hints)
	if a.status != "" {
		text += StatusBarText.Render(a.status)
	}
	return StatusBar.Width(a.width).Render(text)
}

// Unread returns the displayed unread count (for testing).
func (a App) Unread() int {
	return a.unread
}

// Count returns the number of listed articles (for testing).
func (a App) Count() int {
	return a.count
}
