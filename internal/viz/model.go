package viz

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/stacksim/internal/bus"
	"github.com/san-kum/stacksim/internal/config"
	"github.com/san-kum/stacksim/internal/lifecycle"
	"github.com/san-kum/stacksim/internal/memo"
	"github.com/san-kum/stacksim/internal/render"
)

const (
	// world units per braille dot
	unitsPerDot     = 4.0
	historyCapacity = 300
	feedCapacity    = 6
	labelCapacity   = 512
	defaultFPS      = 60
)

type TickMsg time.Time

// stage is the container the scheduler measures. It stays zero until the
// first window size message.
type stage struct {
	width, height float64
}

func (s *stage) Size() (float64, float64) { return s.width, s.height }

// feed collects recent bus events for the panel.
type feed struct {
	lines []string
}

func (f *feed) push(line string) {
	f.lines = append(f.lines, line)
	if len(f.lines) > feedCapacity {
		f.lines = f.lines[len(f.lines)-feedCapacity:]
	}
}

type Options struct {
	FPS   int
	Theme string

	// SVGDir receives canvas captures taken with the s key.
	SVGDir string

	// OnFrame receives stats after every tick.
	OnFrame func(lifecycle.Stats)
}

// Model drives a lifecycle scheduler from the Bubble Tea update loop.
type Model struct {
	sched      *lifecycle.Scheduler
	host       *Host
	stage      *stage
	canvas     *Canvas
	feed       *feed
	counts     *memo.Cache[int, string]
	onFrame    func(lifecycle.Stats)
	svgDir     string
	saved      string
	fps        int
	theme      int
	styles     styles
	population []float64
	lastHit    string
	showHelp   bool
	err        error
}

func NewModel(cfg *config.Config, opts Options, schedOpts ...lifecycle.Option) (Model, error) {
	host := NewHost()
	st := &stage{}
	schedOpts = append(schedOpts, lifecycle.WithContainer(st))

	sched, err := lifecycle.New(cfg, host, schedOpts...)
	if err != nil {
		return Model{}, err
	}
	sched.Synchronizer().SetViewport(render.Viewport{Scale: 1 / unitsPerDot})

	f := &feed{}
	b := sched.Bus()
	bus.Subscribe(b, func(e lifecycle.Spawned) { f.push(fmt.Sprintf("+ %-4s %s", e.Category, e.ID)) })
	bus.Subscribe(b, func(e lifecycle.Culled) { f.push(fmt.Sprintf("- %-4s %s", e.Category, e.Reason)) })
	bus.Subscribe(b, func(e lifecycle.SpawnStopped) { f.push(fmt.Sprintf("spawning stopped at %d", e.Total)) })

	fps := opts.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	theme := 0
	for i, name := range ThemeNames() {
		if name == opts.Theme {
			theme = i
		}
	}

	return Model{
		sched:      sched,
		host:       host,
		stage:      st,
		feed:       f,
		counts:     memo.New(labelCapacity, func(n int) string { return humanize.Comma(int64(n)) }),
		onFrame:    opts.OnFrame,
		svgDir:     opts.SVGDir,
		fps:        fps,
		theme:      theme,
		styles:     newStyles(Themes[theme]),
		population: make([]float64, 0, historyCapacity),
	}, nil
}

func (m Model) Scheduler() *lifecycle.Scheduler { return m.sched }
func (m Model) Err() error                      { return m.err }

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

// Update routes terminal events to the scheduler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.FocusMsg:
		m.sched.Resume()
	case tea.BlurMsg:
		m.sched.Pause()
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			x, y := cellToDots(msg.X, msg.Y)
			if category, ok := m.sched.Interact(x, y); ok {
				m.lastHit = category
			}
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.sched.Destroy()
			return m, tea.Quit
		case " ":
			if m.sched.State() == lifecycle.Paused {
				m.sched.Resume()
			} else {
				m.sched.Pause()
			}
		case "r":
			m.sched.Reset()
			m.population = m.population[:0]
			m.lastHit = ""
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		case "s":
			m.capture(time.Now())
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if err := m.sched.Advance(time.Time(msg)); err != nil {
			m.err = err
			m.sched.Destroy()
			return m, tea.Quit
		}
		if m.sched.State() == lifecycle.Running {
			m.record()
		}
		if m.onFrame != nil {
			m.onFrame(m.sched.Stats())
		}
		return m, m.tick()
	}
	return m, nil
}

// resize fits the canvas beside the panel and moves the container walls.
func (m *Model) resize(cols, rows int) {
	w := max(cols-panelWidth-2*canvasOffsetX-2, 10)
	h := max(rows-2*canvasOffsetY, 5)
	m.canvas = NewCanvas(w, h)
	m.stage.width = float64(m.canvas.DotsWide()) * unitsPerDot
	m.stage.height = float64(m.canvas.DotsHigh()) * unitsPerDot
	if err := m.sched.Resize(m.stage.width, m.stage.height); err != nil {
		m.err = err
	}
}

func (m *Model) record() {
	m.population = append(m.population, float64(m.sched.Pool().Len()))
	if len(m.population) > historyCapacity {
		m.population = m.population[1:]
	}
}

// capture draws the current frame and saves it as SVG.
func (m *Model) capture(now time.Time) {
	if m.canvas == nil {
		return
	}
	m.canvas.Clear()
	m.host.Draw(m.canvas)
	path := filepath.Join(m.svgDir, fmt.Sprintf("stacksim-%d.svg", now.Unix()))
	if err := m.canvas.SaveSVG(path, 4, string(Themes[m.theme].Accent)); err != nil {
		m.saved = "save failed: " + err.Error()
		return
	}
	m.saved = path
}

// cellToDots maps a terminal cell to the dot at its center.
func cellToDots(col, row int) (float64, float64) {
	return float64((col-canvasOffsetX)*2 + 1), float64((row-canvasOffsetY)*4 + 2)
}

func (m Model) View() string {
	if m.canvas == nil {
		return "measuring terminal..."
	}
	m.canvas.Clear()
	m.host.Draw(m.canvas)
	canvasView := canvasStyle.Render(m.canvas.String())

	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.panel())
	if m.showHelp {
		return helpOverlay + "\n\n" + main
	}
	return main
}

func (m Model) panel() string {
	st := m.sched.Stats()
	sty := m.styles

	var s strings.Builder
	s.WriteString(sty.header.Render("STACKSIM") + "\n")

	switch m.sched.State() {
	case lifecycle.Running:
		s.WriteString(sty.running.Render("RUNNING"))
	case lifecycle.Paused:
		s.WriteString(sty.paused.Render("PAUSED"))
	default:
		s.WriteString(sty.alert.Render(strings.ToUpper(st.State)))
	}
	s.WriteString("\n\n")

	if len(m.population) > 1 {
		chart := asciigraph.Plot(m.population,
			asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Population"))
		s.WriteString(sty.graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(sty.label.Render(label) + sty.value.Render(value) + "\n")
	}
	row("Live", fmt.Sprintf("%s / %s", m.counts.Get(st.Live), m.counts.Get(st.HardLimit)))
	row("Spawned", m.counts.Get(st.Total))
	row("Spawner", st.SpawnState)
	row("Interval", st.Interval.Round(time.Millisecond).String())
	row("Culled", m.counts.Get(int(st.Culled)))
	row("Skipped", m.counts.Get(int(st.Skipped)))
	row("Energy", humanize.SIWithDigits(st.KineticEnergy, 1, ""))
	row("Steps", humanize.Comma(int64(st.Steps)))
	if m.lastHit != "" {
		row("Clicked", m.lastHit)
	}
	if m.saved != "" {
		row("Saved", m.saved)
	}

	if len(m.feed.lines) > 0 {
		s.WriteString("\n")
		for _, line := range m.feed.lines {
			s.WriteString(sty.label.UnsetWidth().Render(line) + "\n")
		}
	}

	s.WriteString(sty.help.Render("SP:Pause R:Reset T:Theme\nS:SVG    ?:Help  Q:Quit"))
	return sty.panel.Render(s.String())
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Reinitialize             ║
║  T        - Cycle themes             ║
║  S        - Save frame as SVG        ║
║  Click    - Inspect a coin           ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// Run starts the terminal program and blocks until it exits. The
// scheduler is destroyed on the way out.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus())
	final, err := p.Run()
	m.sched.Destroy()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
