package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/vna-sparams/internal/measure"
	"github.com/roman-kulish/vna-sparams/internal/touchstone"
	"github.com/roman-kulish/vna-sparams/internal/vna"
)

// Focus order: preset selector, form fields, submit button
const (
	focusPreset = 0
	focusSubmit = int(fieldCount) + 1
)

// stateMsg carries an instrument state change from the worker
type stateMsg vna.State

// identityMsg carries the instrument identity from the worker
type identityMsg string

// doneMsg is the single completion of a submitted measurement
type doneMsg struct {
	completion measure.Completion
	traces     []touchstone.Trace
	loadErr    error
}

// Model is the measurement form
type Model struct {
	ctx    context.Context
	worker *measure.Worker
	port   int

	form    form
	focus   int
	spinner spinner.Model
	traces  table.Model

	busy     bool
	state    string
	identity string
	result   *measure.Result
	err      error
}

// NewModel creates the form. The worker must be dedicated to this model.
func NewModel(ctx context.Context, worker *measure.Worker, config *Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return Model{
		ctx:     ctx,
		worker:  worker,
		port:    config.Port,
		form:    newForm(config.Address),
		spinner: s,
		traces:  newTraceTable(),
	}
}

func newTraceTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Trace", Width: 8},
			{Title: "Min (dB)", Width: 10},
			{Title: "Max (dB)", Width: 10},
		}),
		table.WithHeight(6),
		table.WithWidth(32),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)

	return t
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		m.state = vna.State(msg).String()
		return m, nil

	case identityMsg:
		m.identity = string(msg)
		return m, nil

	case doneMsg:
		return m.complete(msg), nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "tab", "down":
		return m, m.moveFocus(1)

	case "shift+tab", "up":
		return m, m.moveFocus(-1)

	case "enter":
		if m.focus == focusSubmit {
			return m.submit()
		}
		return m, m.moveFocus(1)

	case "left", "right":
		if m.focus == focusPreset {
			if msg.String() == "left" {
				m.form.selectPreset(-1)
			} else {
				m.form.selectPreset(1)
			}
			return m, nil
		}
	}

	if i, ok := m.focusedField(); ok {
		var cmd tea.Cmd
		m.form.inputs[i], cmd = m.form.inputs[i].Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) focusedField() (field, bool) {
	if m.focus > focusPreset && m.focus < focusSubmit {
		return field(m.focus - 1), true
	}
	return 0, false
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	m.focus = (m.focus + delta + focusSubmit + 1) % (focusSubmit + 1)

	var cmd tea.Cmd
	for i := range m.form.inputs {
		if f, ok := m.focusedField(); ok && f == field(i) {
			cmd = m.form.inputs[i].Focus()
			continue
		}
		m.form.inputs[i].Blur()
	}
	return cmd
}

// submit starts a measurement unless one is running. Validation failures
// are shown without touching the instrument.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	table, err := m.form.table()
	if err != nil {
		m.err = err
		return m, nil
	}

	file := m.form.value(fieldFile)
	plan := measure.Plan{
		Address:    m.form.value(fieldAddress),
		Port:       m.port,
		Table:      table,
		RemoteFile: filepath.Base(file),
		LocalFile:  file,
	}

	done, err := m.worker.Start(m.ctx, plan)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.busy = true
	m.err = nil
	m.result = nil
	m.state = ""
	m.identity = ""
	m.traces.SetRows(nil)

	return m, tea.Batch(m.spinner.Tick, waitForCompletion(done))
}

// waitForCompletion blocks on the worker channel off the event loop and
// loads the fetched network, so Update only ever sees the finished result
func waitForCompletion(done <-chan measure.Completion) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-done
		if !ok {
			return doneMsg{completion: measure.Completion{Err: errors.New("measurement worker stopped")}}
		}

		msg := doneMsg{completion: c}
		if c.Err != nil {
			return msg
		}

		n, err := touchstone.ParseFile(c.Result.LocalFile)
		if err != nil {
			msg.loadErr = fmt.Errorf("loading %s: %w", c.Result.LocalFile, err)
			return msg
		}

		msg.traces = n.Traces()
		return msg
	}
}

// complete re-enables the form on success and failure alike
func (m Model) complete(msg doneMsg) Model {
	m.busy = false

	if msg.completion.Err != nil {
		m.err = msg.completion.Err
		return m
	}

	m.result = msg.completion.Result
	m.err = msg.loadErr

	rows := make([]table.Row, 0, len(msg.traces))
	for _, t := range msg.traces {
		lo, hi, ok := t.Range()
		if !ok {
			rows = append(rows, table.Row{t.Name, "-", "-"})
			continue
		}
		rows = append(rows, table.Row{t.Name, fmt.Sprintf("%.2f", lo), fmt.Sprintf("%.2f", hi)})
	}
	m.traces.SetRows(rows)

	return m
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("VNA S-parameters"))
	b.WriteString("\n\n")

	preset := fmt.Sprintf("< %s >", m.form.presets[m.form.preset])
	if m.focus == focusPreset {
		preset = focusedStyle.Render(preset)
	}
	b.WriteString(labelStyle.Render("Preset") + preset + "\n")

	for i, def := range fields {
		label := labelStyle.Render(def.label)
		if f, ok := m.focusedField(); ok && f == field(i) {
			label = focusedStyle.Render(labelStyle.Render(def.label))
		}
		b.WriteString(label + m.form.inputs[i].View() + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(disabledButtonStyle.Render("Submit"))
	case m.focus == focusSubmit:
		b.WriteString(buttonStyle.Underline(true).Render("Submit"))
	default:
		b.WriteString(buttonStyle.Render("Submit"))
	}
	b.WriteString("\n\n")

	if m.busy {
		status := "measuring"
		if m.state != "" {
			status = m.state
		}
		b.WriteString(m.spinner.View() + " " + statusStyle.Render(status) + "\n")
	}
	if m.identity != "" {
		b.WriteString(blurredStyle.Render("instrument: "+m.identity) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}
	if m.result != nil {
		b.WriteString(statusStyle.Render(fmt.Sprintf("saved %s (%s) in %s",
			m.result.LocalFile,
			humanize.Bytes(uint64(m.result.Size)),
			m.result.Duration().Round(time.Millisecond))) + "\n")
		if m.result.Config != nil {
			b.WriteString(blurredStyle.Render(m.result.Config.Summary()) + "\n")
		}
		if len(m.traces.Rows()) > 0 {
			b.WriteString(baseStyle.Render(m.traces.View()) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render("tab/↑↓ move • ←/→ preset • enter submit • ctrl+c quit"))

	return b.String()
}
