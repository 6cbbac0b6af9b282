package viz

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/stacksim/internal/config"
	"github.com/san-kum/stacksim/internal/lifecycle"
	"github.com/san-kum/stacksim/internal/pool"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	cfg := config.GetPreset("tiny")
	cfg.Seed = 7
	m, err := NewModel(cfg, opts)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// ticks advances the model n frames at 60 Hz starting at *now.
func ticks(m Model, now *time.Time, n int) Model {
	for i := 0; i < n; i++ {
		*now = now.Add(time.Second / 60)
		m, _ = send(m, TickMsg(*now))
	}
	return m
}

func TestInitWaitsForWindowSize(t *testing.T) {
	m := newTestModel(t, Options{})
	now := start

	m = ticks(m, &now, 30)
	if got := m.Scheduler().State(); got != lifecycle.Uninitialized {
		t.Fatalf("expected uninitialized before sizing, got %s", got)
	}
	if m.Scheduler().InitAttempts() == 0 {
		t.Error("expected init retries while the container is unmeasured")
	}
	if m.View() != "measuring terminal..." {
		t.Errorf("unexpected view before sizing: %q", m.View())
	}

	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = ticks(m, &now, 1)
	if got := m.Scheduler().State(); got != lifecycle.Running {
		t.Fatalf("expected running after sizing, got %s", got)
	}
	w, h := m.Scheduler().World().Size()
	if w != float64(m.canvas.DotsWide())*unitsPerDot || h != float64(m.canvas.DotsHigh())*unitsPerDot {
		t.Errorf("world %gx%g does not match canvas", w, h)
	}
}

func TestFocusAndKeysControlPause(t *testing.T) {
	m := newTestModel(t, Options{})
	now := start
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = ticks(m, &now, 2)

	m, _ = send(m, tea.BlurMsg{})
	if m.Scheduler().State() != lifecycle.Paused {
		t.Fatal("blur should pause")
	}
	m, _ = send(m, tea.FocusMsg{})
	if m.Scheduler().State() != lifecycle.Running {
		t.Fatal("focus should resume")
	}

	space := tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	m, _ = send(m, space)
	if m.Scheduler().State() != lifecycle.Paused {
		t.Fatal("space should pause")
	}
	m, _ = send(m, space)
	if m.Scheduler().State() != lifecycle.Running {
		t.Fatal("space should resume")
	}
}

func TestRunUpdatesPanelAndStats(t *testing.T) {
	var frames int
	var last lifecycle.Stats
	m := newTestModel(t, Options{OnFrame: func(s lifecycle.Stats) { frames++; last = s }})
	now := start
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = ticks(m, &now, 240)

	if frames != 240 {
		t.Errorf("expected 240 frame callbacks, got %d", frames)
	}
	if last.Live == 0 || last.Live != m.host.Live() {
		t.Errorf("live %d should match host sprites %d", last.Live, m.host.Live())
	}
	if len(m.population) == 0 {
		t.Error("population history not recorded")
	}
	if len(m.feed.lines) == 0 {
		t.Error("expected spawn events in the feed")
	}
	if view := m.View(); len(view) == 0 {
		t.Error("empty view")
	}
}

func TestClickReportsCategory(t *testing.T) {
	m := newTestModel(t, Options{})
	now := start
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = ticks(m, &now, 240)

	sync := m.Scheduler().Synchronizer()
	col, row := -1, -1
	m.Scheduler().Pool().Each(func(e *pool.Entity) {
		tr := sync.Transform(e.Body)
		if col < 0 && tr.X >= 0 && tr.Y >= 0 {
			col = int(tr.X)/2 + canvasOffsetX
			row = int(tr.Y)/4 + canvasOffsetY
		}
	})
	if col < 0 {
		t.Fatal("no coin on screen")
	}

	m, _ = send(m, tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.lastHit == "" {
		t.Error("click on a coin did not register")
	}
}

func TestResetAndQuit(t *testing.T) {
	m := newTestModel(t, Options{})
	now := start
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = ticks(m, &now, 120)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if m.Scheduler().Pool().Len() != 0 || m.host.Live() != 0 {
		t.Error("reset should release every coin")
	}

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	if m.theme != 1 {
		t.Errorf("expected theme 1, got %d", m.theme)
	}

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if m.Scheduler().State() != lifecycle.Destroyed {
		t.Error("quit should destroy the scheduler")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSaveKeyWritesSVG(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t, Options{SVGDir: dir})
	now := start
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = ticks(m, &now, 120)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if filepath.Dir(m.saved) != dir {
		t.Fatalf("expected capture in %s, got %q", dir, m.saved)
	}
	data, err := os.ReadFile(m.saved)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty svg")
	}
}
