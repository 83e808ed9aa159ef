package main

import (
	"context"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wast-harness/runner"
	"github.com/wippyai/wast-harness/script"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type commandResult struct {
	cmd     script.Command
	verdict runner.Verdict
}

type interactiveModel struct {
	err      error
	runner   *runner.Runner
	next     func() (script.Command, runner.Verdict, bool)
	stop     func()
	filename string
	filter   textinput.Model
	results  []commandResult
	visible  []int
	summary  runner.Summary
	selected int
	state    modelState
	opts     runner.Options
}

type modelState int

const (
	stateRunning modelState = iota
	stateBrowse
	stateDetail
	stateFilter
)

func newInteractiveModel(filename string, opts runner.Options) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter: fail, error, or substring of a command"
	ti.Prompt = "/ "
	ti.Width = 50
	return &interactiveModel{
		filename: filename,
		filter:   ti,
		opts:     opts,
	}
}

type startedMsg struct {
	err    error
	runner *runner.Runner
	next   func() (script.Command, runner.Verdict, bool)
	stop   func()
}

type verdictMsg struct {
	cmd     script.Command
	verdict runner.Verdict
	done    bool
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.startRun
}

func (m *interactiveModel) startRun() tea.Msg {
	ctx := context.Background()

	source, err := os.ReadFile(m.filename)
	if err != nil {
		return startedMsg{err: err}
	}

	r, err := runner.New(ctx, m.opts)
	if err != nil {
		return startedMsg{err: err}
	}

	seq, err := r.Run(ctx, string(source))
	if err != nil {
		r.Close(ctx)
		return startedMsg{err: err}
	}

	// Pull-style iteration so each verdict can arrive as its own message.
	next, stop := iter.Pull2(seq)
	return startedMsg{runner: r, next: next, stop: stop}
}

func (m *interactiveModel) stepRun() tea.Msg {
	cmd, v, ok := m.next()
	if !ok {
		return verdictMsg{done: true}
	}
	return verdictMsg{cmd: cmd, verdict: v}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.cleanup()
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateBrowse && len(m.visible) > 0 {
				m.state = stateDetail
			} else if m.state == stateDetail {
				m.state = stateBrowse
			}

		case "/":
			if m.state == stateBrowse {
				m.state = stateFilter
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "esc":
			if m.state == stateDetail {
				m.state = stateBrowse
			} else if m.filter.Value() != "" {
				m.filter.SetValue("")
				m.applyFilter()
			}
		}

	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runner = msg.runner
		m.next = msg.next
		m.stop = msg.stop
		return m, m.stepRun

	case verdictMsg:
		if msg.done {
			m.state = stateBrowse
			m.applyFilter()
			return m, nil
		}
		m.results = append(m.results, commandResult{cmd: msg.cmd, verdict: msg.verdict})
		m.summary.Add(msg.verdict)
		return m, m.stepRun
	}

	return m, nil
}

func (m *interactiveModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = stateBrowse
		m.filter.Blur()
		if msg.String() == "esc" {
			m.filter.SetValue("")
		}
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter recomputes the visible result indices. "fail" and "error"
// select by outcome; anything else matches the command label.
func (m *interactiveModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for i, r := range m.results {
		switch query {
		case "":
			m.visible = append(m.visible, i)
		case "fail":
			if r.verdict.Outcome == runner.Failed {
				m.visible = append(m.visible, i)
			}
		case "error":
			if r.verdict.Outcome == runner.Errored {
				m.visible = append(m.visible, i)
			}
		default:
			if strings.Contains(strings.ToLower(commandLabel(r.cmd)), query) {
				m.visible = append(m.visible, i)
			}
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func (m *interactiveModel) cleanup() {
	if m.stop != nil {
		m.stop()
	}
	if m.runner != nil {
		m.runner.Close(context.Background())
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return failStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wast runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.state == stateRunning {
		b.WriteString(fmt.Sprintf("Running... %d commands evaluated\n", len(m.results)))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%d commands: %s passed, %s failed, %s errors\n\n",
		m.summary.Total(),
		passStyle.Render(fmt.Sprint(m.summary.Passed)),
		failStyle.Render(fmt.Sprint(m.summary.Failed)),
		errStyle.Render(fmt.Sprint(m.summary.Errored))))

	if m.state == stateFilter || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	window := m.visibleWindow(20)
	for _, vi := range window {
		r := m.results[m.visible[vi]]
		line := fmt.Sprintf("%-5s line %-4d %s",
			r.verdict.Outcome, r.cmd.Pos().Line, commandLabel(r.cmd))
		if vi == m.selected && m.state != stateFilter {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + m.styleFor(r.verdict.Outcome).Render(line))
		}
		b.WriteString("\n")
	}

	if m.state == stateDetail && m.selected < len(m.visible) {
		r := m.results[m.visible[m.selected]]
		detail := r.verdict.Outcome.String()
		if r.verdict.Detail != "" {
			detail += ": " + r.verdict.Detail
		}
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(detail))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • enter detail • / filter • esc clear • q quit"))
	return b.String()
}

// visibleWindow keeps the selection on screen for long scripts.
func (m *interactiveModel) visibleWindow(height int) []int {
	if len(m.visible) <= height {
		window := make([]int, len(m.visible))
		for i := range window {
			window[i] = i
		}
		return window
	}
	start := m.selected - height/2
	if start < 0 {
		start = 0
	}
	if start+height > len(m.visible) {
		start = len(m.visible) - height
	}
	window := make([]int, height)
	for i := range window {
		window[i] = start + i
	}
	return window
}

func (m *interactiveModel) styleFor(o runner.Outcome) lipgloss.Style {
	switch o {
	case runner.Failed:
		return failStyle
	case runner.Errored:
		return errStyle
	}
	return passStyle
}

func runInteractive(filename string, opts runner.Options) error {
	p := tea.NewProgram(newInteractiveModel(filename, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
