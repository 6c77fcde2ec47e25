package results

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"combat-mc/internal/engine"
	"combat-mc/internal/montecarlo"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// batchMsg announces a new batch.
type batchMsg struct {
	id    string
	total int
}

// trialMsg carries a completed trial.
type trialMsg struct{ montecarlo.TrialResult }

// eventMsg carries an engagement log line.
type eventMsg struct{ line string }

const (
	recentTrials = 8
	maxEventLogs = 2000
)

// TUIWriter renders batch progress using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting the TUI interrupts
// the process so the running batch is cancelled.
func NewTUIWriter(scenario string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(scenario), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// BeginBatch resets the progress display.
func (w *TUIWriter) BeginBatch(id string, _ time.Time, total int) {
	w.program.Send(batchMsg{id: id, total: total})
}

// WriteTrial implements TrialWriter.
func (w *TUIWriter) WriteTrial(r montecarlo.TrialResult) error {
	w.program.Send(trialMsg{r})
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(trial int, ev montecarlo.EngagementEvent) error {
	w.program.Send(eventMsg{line: fmt.Sprintf("#%-4d %s", trial, EventLine(ev, true))})
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	scenario   string
	batch      string
	total      int
	completed  int
	failed     int
	kills      map[string]int
	progress   progress.Model
	trials     table.Model
	vp         viewport.Model
	logs       []string
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(scenario string) tuiModel {
	cols := []table.Column{
		{Title: "Trial", Width: 6},
		{Title: "Seed", Width: 8},
		{Title: "Sim time", Width: 9},
		{Title: "Events", Width: 7},
		{Title: "Blue", Width: 6},
		{Title: "Red", Width: 6},
		{Title: "Error", Width: 30},
	}
	return tuiModel{
		scenario:   scenario,
		kills:      make(map[string]int),
		progress:   progress.New(progress.WithDefaultGradient()),
		trials:     table.New(table.WithColumns(cols), table.WithHeight(recentTrials+1)),
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(msg.Width-20, 10)
		m.trials.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case batchMsg:
		m.batch, m.total = msg.id, msg.total
		m.completed, m.failed = 0, 0
		m.kills = make(map[string]int)
		m.trials.SetRows(nil)
		m.logs = nil
		m.refreshViewport()
	case trialMsg:
		m.addTrial(msg.TrialResult)
	case eventMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxEventLogs {
			m.logs = m.logs[len(m.logs)-maxEventLogs:]
		}
		m.refreshViewport()
	}
	return m, nil
}

func (m *tuiModel) addTrial(r montecarlo.TrialResult) {
	m.completed++
	if r.Error != nil {
		m.failed++
	}
	alive, total := map[string]int{}, map[string]int{}
	for _, s := range r.EntitySurvival {
		total[s.Team]++
		if s.Alive {
			alive[s.Team]++
		}
	}
	for _, ev := range r.EngagementLog {
		if ev.Result == engine.ResultKill {
			m.kills[ev.WeaponType]++
		}
	}
	errText := ""
	if r.Error != nil {
		errText = r.Error.Error()
	}
	row := table.Row{
		fmt.Sprint(r.RunIndex),
		fmt.Sprint(r.Seed),
		fmt.Sprintf("%.1f", r.SimTimeFinal),
		fmt.Sprint(len(r.EngagementLog)),
		fmt.Sprintf("%d/%d", alive[engine.TeamBlue], total[engine.TeamBlue]),
		fmt.Sprintf("%d/%d", alive[engine.TeamRed], total[engine.TeamRed]),
		errText,
	}
	rows := append(m.trials.Rows(), row)
	if len(rows) > recentTrials {
		rows = rows[len(rows)-recentTrials:]
	}
	m.trials.SetRows(rows)
}

func (m tuiModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.completed) / float64(m.total)
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.trials.View()) + lipgloss.Height(m.renderBottom()) + 4
	m.vp.Height = max(m.height-used, 0)
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	content := "no engagements yet"
	if len(m.logs) > 0 {
		lines := m.logs
		if m.wrap && m.vp.Width > 0 {
			lines = make([]string, len(m.logs))
			for i, l := range m.logs {
				lines[i] = wordwrap.String(l, m.vp.Width)
			}
		}
		content = strings.Join(lines, "\n")
	}
	m.vp.SetContent(content)
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func (m tuiModel) renderHeader() string {
	title := titleStyle.Render("Monte Carlo: " + m.scenario)
	if m.batch != "" {
		title += " " + dimStyle.Render(m.batch)
	}
	counts := fmt.Sprintf("%d/%d trials", m.completed, m.total)
	if m.failed > 0 {
		counts += "  " + errStyle.Render(fmt.Sprintf("%d failed", m.failed))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, m.progress.ViewAs(m.percent())+"  "+counts)
}

func (m tuiModel) renderBottom() string {
	var kills []string
	for _, w := range []string{engine.WeaponSAM, engine.WeaponA2A, engine.WeaponKKV} {
		kills = append(kills, fmt.Sprintf("%s %d", w, m.kills[w]))
	}
	wrap, scroll := "off", "off"
	if m.wrap {
		wrap = "on"
	}
	if m.autoscroll {
		scroll = "on"
	}
	return dimStyle.Render(fmt.Sprintf("kills: %s   [w]rap %s  [s]croll %s  [q]uit", strings.Join(kills, "  "), wrap, scroll))
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", max(m.width, 1))
	return strings.Join([]string{
		m.renderHeader(),
		divider,
		m.trials.View(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}
