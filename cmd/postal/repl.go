package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/postal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// operation is one entry of the REPL menu.
type operation struct {
	name   string
	fields []field
	call   func(ctx context.Context, c *postal.Client, values []string) (string, error)
}

func (op operation) fieldNames() string {
	names := make([]string, len(op.fields))
	for i, f := range op.fields {
		names[i] = f.name
	}
	return strings.Join(names, ", ")
}

type field struct {
	name string
	hint string
}

func replOperations() []operation {
	text := func(name, hint string) []field { return []field{{name, hint}} }
	record := text("record", "house_number=781; road=franklin ave; city=brooklyn")
	pair := []field{{"value1", "text"}, {"value2", "text"}}

	return []operation{
		{name: "parse", fields: text("address", "781 Franklin Ave Crown Heights Brooklyn NY"),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				out, err := c.ParseAddress(ctx, v[0], postal.ParseOptions{})
				return formatComponents(out), err
			}},
		{name: "expand", fields: text("address", "Quatre vingt douze Ave des Champs-Élysées"),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				out, err := c.ExpandAddress(ctx, v[0], postal.DefaultExpandOptions())
				return formatLines(out), err
			}},
		{name: "expand root", fields: text("address", "Main Street"),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				out, err := c.ExpandAddressRoot(ctx, v[0], postal.DefaultExpandOptions())
				return formatLines(out), err
			}},
		{name: "normalize", fields: text("text", "Main ST."),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				return c.NormalizeString(ctx, v[0], postal.DefaultNormalizeOptions())
			}},
		{name: "tokenize", fields: text("text", "123 Main St."),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				out, err := c.Tokenize(ctx, v[0], false)
				return formatTokens(v[0], out), err
			}},
		{name: "classify", fields: text("address", "Rue de la Paix, Paris"),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				out, err := c.ClassifyLanguage(ctx, v[0])
				return formatLanguages(out), err
			}},
		{name: "duplicate", fields: append([]field{{"kind", "street"}}, pair...),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				kind, err := postal.ParseDuplicateKind(v[0])
				if err != nil {
					return "", err
				}
				status, err := c.IsDuplicate(ctx, kind, v[1], v[2], postal.DuplicateOptions{})
				return status.String(), err
			}},
		{name: "fuzzy duplicate", fields: []field{{"kind", "name or street"}, {"tokens1", "main:0.8 street:0.2"}, {"tokens2", "main:0.8 st:0.2"}},
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				kind, err := postal.ParseFuzzyKind(v[0])
				if err != nil {
					return "", err
				}
				t1, err := parseFuzzyTokens(v[1])
				if err != nil {
					return "", err
				}
				t2, err := parseFuzzyTokens(v[2])
				if err != nil {
					return "", err
				}
				r, err := c.IsDuplicateFuzzy(ctx, kind, t1, t2, postal.DefaultFuzzyDuplicateOptions())
				return formatFuzzy(r), err
			}},
		{name: "name hashes", fields: text("name", "Joe's Pizza"),
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				out, err := c.NameHashes(ctx, v[0], postal.DefaultNameHashOptions())
				return formatLines(out), err
			}},
		{name: "near-dupe hashes", fields: record,
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				rec, err := parseRecord(v[0])
				if err != nil {
					return "", err
				}
				out, err := c.NearDupeHashes(ctx, rec, postal.DefaultNearDupeOptions())
				return formatLines(out), err
			}},
		{name: "place languages", fields: record,
			call: func(ctx context.Context, c *postal.Client, v []string) (string, error) {
				rec, err := parseRecord(v[0])
				if err != nil {
					return "", err
				}
				out, err := c.PlaceLanguages(ctx, rec)
				return formatLines(out), err
			}},
	}
}

type replState int

const (
	stateSelectOp replState = iota
	stateInput
	stateShowResult
)

type replModel struct {
	ctx      context.Context
	app      *app
	client   *postal.Client
	err      error
	result   string
	ops      []operation
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    replState
}

func newReplModel(ctx context.Context, a *app) *replModel {
	return &replModel{
		ctx:   ctx,
		app:   a,
		ops:   replOperations(),
		state: stateSelectOp,
	}
}

type connectedMsg struct {
	client *postal.Client
	err    error
}

type callResultMsg struct {
	result string
	err    error
}

func (m *replModel) Init() tea.Cmd {
	return m.connect
}

func (m *replModel) connect() tea.Msg {
	c, err := m.app.connect(m.ctx)
	return connectedMsg{client: c, err: err}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInput {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if m.client == nil {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInput
				return m, textinput.Blink

			case stateInput:
				return m, m.call

			case stateShowResult:
				m.reset()
			}
			return m, nil

		case "tab":
			if m.state == stateInput && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}
			return m, nil

		case "esc":
			if m.state != stateSelectOp {
				m.reset()
			}
			return m, nil
		}

	case connectedMsg:
		m.client = msg.client
		m.err = msg.err
		return m, nil

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInput {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *replModel) reset() {
	m.state = stateSelectOp
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *replModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.fields))
	for i, f := range op.fields {
		ti := textinput.New()
		ti.Placeholder = f.hint
		ti.Prompt = f.name + ": "
		ti.Width = 60
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *replModel) call() tea.Msg {
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}
	result, err := m.ops[m.selected].call(m.ctx, m.client, values)
	if err == nil && result == "" {
		result = "(no result)"
	}
	return callResultMsg{result: result, err: err}
}

func (m *replModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.client == nil {
		return "Loading libpostal..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("libpostal"))
	if m.app.cfg != nil {
		b.WriteString(" ")
		b.WriteString(m.app.cfg.Backend)
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + op.name))
			} else {
				b.WriteString("  " + opStyle.Render(op.name))
			}
			b.WriteString(" ")
			b.WriteString(hintStyle.Render(op.fieldNames()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInput:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("%s\n\n", opStyle.Render(op.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func runRepl(ctx context.Context, a *app) error {
	p := tea.NewProgram(newReplModel(ctx, a),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(a.stdin),
		tea.WithOutput(a.stdout),
	)
	_, err := p.Run()
	return err
}
