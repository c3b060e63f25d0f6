package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/ui/sources"
)

var now = time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)

// mockCmd tracks which command functions were called.
type mockCmd struct {
	loads, acks, fetches int
}

func (m *mockCmd) loadArticles() tea.Cmd {
	m.loads++
	return func() tea.Msg {
		return ArticlesLoaded{
			Articles: []model.Article{
				{ID: "1", Title: "Frieren season 2 announced", Source: "Adala News", Link: "https://adala/1", Date: now.Add(-time.Hour)},
				{ID: "2", Title: "One Piece chapter break", Source: "CBR", Link: "https://cbr/2", Date: now.Add(-3 * time.Hour)},
				{ID: "3", Title: "Nouveau tome de Blue Lock", Source: "Planète BD", Link: "https://pbd/3", Date: now.Add(-50 * time.Hour)},
			},
			Unread: 5,
		}
	}
}

func (m *mockCmd) acknowledge() tea.Cmd {
	m.acks++
	return func() tea.Msg { return Acknowledged{} }
}

func (m *mockCmd) triggerFetch() tea.Cmd {
	m.fetches++
	return func() tea.Msg { return FetchComplete{New: 2, Sent: 2} }
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func readyApp(t *testing.T, mock *mockCmd) App {
	t.Helper()
	app := NewApp(mock.loadArticles, mock.acknowledge, mock.triggerFetch)
	app.now = func() time.Time { return now }
	m, _ := app.Update(tea.WindowSizeMsg{Width: 200, Height: 30})
	m, _ = m.Update(mock.loadArticles()())
	return m.(App)
}

func TestAppInit(t *testing.T) {
	mock := &mockCmd{}
	app := NewApp(mock.loadArticles, mock.acknowledge, mock.triggerFetch)

	if cmd := app.Init(); cmd == nil {
		t.Fatal("Init should return a command")
	}
	if mock.loads != 1 {
		t.Error("Init should call loadArticles")
	}
}

func TestAppInitNilLoad(t *testing.T) {
	app := NewApp(nil, nil, nil)
	if cmd := app.Init(); cmd != nil {
		t.Error("Init with nil loadArticles should return nil")
	}
}

func TestAppShowsArticlesAndBadge(t *testing.T) {
	app := readyApp(t, &mockCmd{})

	if app.Count() != 3 || app.Unread() != 5 {
		t.Fatalf("count=%d unread=%d", app.Count(), app.Unread())
	}
	view := app.View()
	for _, want := range []string{"newsbell", "5 unread", "Frieren season 2 announced", "Adala News · 1h ago", "3 articles"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestAppAcknowledgeClearsBadge(t *testing.T) {
	mock := &mockCmd{}
	app := readyApp(t, mock)

	m, cmd := app.Update(key("a"))
	if cmd == nil || mock.acks != 1 {
		t.Fatal("a should acknowledge")
	}
	m, _ = m.Update(cmd())
	app = m.(App)
	if app.Unread() != 0 {
		t.Errorf("unread after ack = %d", app.Unread())
	}
	if strings.Contains(app.View(), "unread") {
		t.Error("badge still shown")
	}
}

func TestAppAcknowledgeError(t *testing.T) {
	app := readyApp(t, &mockCmd{})
	m, _ := app.Update(Acknowledged{Err: errors.New("database is locked")})
	app = m.(App)
	if app.Unread() != 5 || !strings.Contains(app.View(), "database is locked") {
		t.Errorf("error not surfaced: unread=%d", app.Unread())
	}
}

func TestAppFetchReloads(t *testing.T) {
	mock := &mockCmd{}
	app := readyApp(t, mock)
	loads := mock.loads

	m, cmd := app.Update(key("f"))
	if cmd == nil || mock.fetches != 1 {
		t.Fatal("f should trigger a fetch")
	}
	m, cmd = m.Update(cmd())
	if cmd == nil || mock.loads != loads+1 {
		t.Error("FetchComplete should reload articles")
	}
	if !strings.Contains(m.(App).View(), "2 new, 2 notified") {
		t.Error("fetch summary not shown")
	}
}

func TestAppReloadKey(t *testing.T) {
	mock := &mockCmd{}
	app := readyApp(t, mock)
	loads := mock.loads
	if _, cmd := app.Update(key("r")); cmd == nil || mock.loads != loads+1 {
		t.Error("r should reload")
	}
}

func TestAppQuit(t *testing.T) {
	app := readyApp(t, &mockCmd{})
	_, cmd := app.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestAppLoadError(t *testing.T) {
	app := readyApp(t, &mockCmd{})
	m, _ := app.Update(ArticlesLoaded{Err: errors.New("no such table")})
	app = m.(App)
	if app.Count() != 3 {
		t.Error("failed load should keep previous articles")
	}
	if !strings.Contains(app.View(), "no such table") {
		t.Error("error not shown")
	}
}

func TestAppEmptyState(t *testing.T) {
	app := NewApp(nil, nil, nil)
	m, _ := app.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	if !strings.Contains(m.(App).View(), "No articles cached yet") {
		t.Error("empty state not rendered")
	}
}

func TestAppEnterShowsLink(t *testing.T) {
	app := readyApp(t, &mockCmd{})
	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.(App).View(), "https://adala/1") {
		t.Error("enter should show the selected link")
	}
}

func TestAppSourcesView(t *testing.T) {
	mock := &mockCmd{}
	cfg := config.DefaultConfig()
	app := NewApp(mock.loadArticles, mock.acknowledge, nil).WithSources(sources.New(cfg, nil))
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m, _ = m.Update(key("s"))
	if !strings.Contains(m.(App).View(), "enabled") {
		t.Fatalf("sources view not shown:\n%s", m.(App).View())
	}

	loads := mock.loads
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil || mock.loads != loads+1 {
		t.Error("leaving sources should reload articles")
	}
	if strings.Contains(m.(App).View(), "[space]toggle") {
		t.Error("still in sources view")
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{30 * time.Hour, "yesterday"},
	}
	for _, tt := range tests {
		if got := relativeTime(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("relativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
