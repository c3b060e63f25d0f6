// Package sources is the reader's source settings view: enable or disable
// each built-in source and switch its date granularity. Changes are saved to
// the config file, which a running daemon picks up on its next cycle.
package sources

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/newsbell/internal/catalog"
	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/model"
)

// Model is the sources view - simple list with toggles
type Model struct {
	list          list.Model
	cfg           *config.Config
	defaults      map[string]model.Granularity
	save          func(*config.Config) error
	err           error
	width, height int
	quitting      bool
}

type sourceItem struct {
	name        string
	enabled     bool
	granularity model.Granularity
}

func (i sourceItem) Title() string {
	icon := "●"
	if !i.enabled {
		icon = "×"
	}
	return fmt.Sprintf("%s %s", icon, i.name)
}

func (i sourceItem) Description() string {
	if i.granularity == model.Day {
		return "day granularity"
	}
	return "exact timestamps"
}

func (i sourceItem) FilterValue() string { return i.name }

// New creates a sources view over cfg. save persists every change; it may
// be nil in tests.
func New(cfg *config.Config, save func(*config.Config) error) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("#58a6ff"))

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Sources"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	defaults := make(map[string]model.Granularity)
	for _, s := range catalog.Sources(catalog.Options{}) {
		defaults[s.Name] = s.Granularity
	}

	m := Model{list: l, cfg: cfg, defaults: defaults, save: save}
	m.refresh()
	return m
}

func (m *Model) granularity(name string) model.Granularity {
	if o, ok := m.cfg.Overrides()[name]; ok && o.Granularity != nil {
		return *o.Granularity
	}
	return m.defaults[name]
}

func (m *Model) refresh() {
	var items []list.Item
	for _, name := range catalog.Names() {
		items = append(items, sourceItem{
			name:        name,
			enabled:     m.cfg.SourceEnabled(name),
			granularity: m.granularity(name),
		})
	}
	m.list.SetItems(items)
}

func (m *Model) persist() {
	m.refresh()
	if m.save != nil {
		m.err = m.save(m.cfg)
	}
}

func (m *Model) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w-4, h-4)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if item, ok := m.list.SelectedItem().(sourceItem); ok {
			switch msg.String() {
			case " ", "x":
				m.cfg.SetSourceEnabled(item.name, !item.enabled)
				m.persist()
			case "g":
				next := model.Day
				if item.granularity == model.Day {
					next = model.Exact
				}
				m.cfg.SetSourceGranularity(item.name, next)
				m.persist()
			}
		}
		if msg.String() == "q" || msg.String() == "esc" {
			m.quitting = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	on := 0
	for _, name := range catalog.Names() {
		if m.cfg.SourceEnabled(name) {
			on++
		}
	}

	header := lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e")).Render(
		fmt.Sprintf("  ● %d enabled  × %d disabled", on, len(catalog.Names())-on))

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("#484f58")).Render(
		"  [space]toggle  [g]ranularity  [/]search  [q]back")

	parts := []string{header, "", m.list.View(), help}
	if m.err != nil {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("  save failed: "+m.err.Error()))
	}
	return strings.Join(parts, "\n")
}

func (m Model) IsQuitting() bool { return m.quitting }
func (m *Model) ResetQuitting()  { m.quitting = false }

// Config returns the edited config.
func (m Model) Config() *config.Config { return m.cfg }
