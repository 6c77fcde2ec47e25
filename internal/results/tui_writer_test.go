package results

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"combat-mc/internal/montecarlo"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	w.BeginBatch("b1", time.Unix(0, 0), 5)
	if _, ok := p.msgs[0].(batchMsg); !ok {
		t.Fatalf("expected batchMsg, got %T", p.msgs[0])
	}
	if err := w.WriteTrial(sampleResults()[0]); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.msgs[1].(trialMsg); !ok {
		t.Fatalf("expected trialMsg, got %T", p.msgs[1])
	}
	if err := w.WriteEvent(0, sampleResults()[0].EngagementLog[0]); err != nil {
		t.Fatal(err)
	}
	if m, ok := p.msgs[2].(eventMsg); !ok || !strings.Contains(m.line, "Lancer") {
		t.Fatalf("expected eventMsg, got %#v", p.msgs[2])
	}
}

func update(t *testing.T, m tuiModel, msg tea.Msg) tuiModel {
	t.Helper()
	mi, _ := m.Update(msg)
	return mi.(tuiModel)
}

func TestTUIModelProgress(t *testing.T) {
	m := newTUIModel("dogfight")
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = update(t, m, batchMsg{id: "b1", total: 4})
	for _, r := range sampleResults() {
		m = update(t, m, trialMsg{r})
	}
	if m.completed != 3 || m.failed != 2 {
		t.Fatalf("unexpected counts %d/%d", m.completed, m.failed)
	}
	if m.percent() != 0.75 {
		t.Fatalf("unexpected percent %v", m.percent())
	}
	if len(m.trials.Rows()) != 3 || m.kills["KKV"] != 1 {
		t.Fatalf("unexpected table or kills: %d rows, %v", len(m.trials.Rows()), m.kills)
	}
	view := m.View()
	if !strings.Contains(view, "3/4 trials") || !strings.Contains(view, "2 failed") {
		t.Fatalf("view missing counters:\n%s", view)
	}

	m = update(t, m, batchMsg{id: "b2", total: 2})
	if m.completed != 0 || len(m.trials.Rows()) != 0 {
		t.Fatal("new batch must reset progress")
	}
}

func TestTUIModelKeepsRecentTrials(t *testing.T) {
	m := newTUIModel("x")
	m = update(t, m, batchMsg{total: 20})
	for i := 0; i < 20; i++ {
		m = update(t, m, trialMsg{montecarlo.TrialResult{RunIndex: i}})
	}
	rows := m.trials.Rows()
	if len(rows) != recentTrials || rows[len(rows)-1][0] != "19" {
		t.Fatalf("expected the last %d trials, got %v", recentTrials, rows)
	}
}

func TestTUIModelWrapAndScroll(t *testing.T) {
	m := newTUIModel("x")
	m = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 40})
	m = update(t, m, eventMsg{line: "one two three four five six seven"})
	if m.wrap {
		t.Fatal("wrap should start disabled")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	if !m.wrap {
		t.Fatal("wrap not toggled")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if m.autoscroll {
		t.Fatal("autoscroll not toggled")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Fatal("expected quit command")
	}
}
