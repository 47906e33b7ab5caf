package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/suderio/scopedsl/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C6E71")).
			Padding(0, 1).
			MarginBottom(1)

	hintStyle = lipgloss.NewStyle().
			Faint(true)

	statusStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#3C6E71")).
			Padding(0, 2)

	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#D9D9D9")).
			Padding(0, 1)

	promptEchoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#284B63"))

	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8D8D8D")).
			Italic(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D1495B"))

	completionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#EDAE49"))
)

// completion is one autocomplete entry of the input line.
type completion string

func (c completion) Title() string       { return string(c) }
func (c completion) Description() string { return "" }
func (c completion) FilterValue() string { return string(c) }

var replCommands = []string{"actor ", "resolve ", "actions", "entities", "fields", "help", "exit", "quit"}

const maxCompletions = 8

type replModel struct {
	app       *session.Session
	worldName string

	input      textinput.Model
	output     viewport.Model
	menu       list.Model
	menuOpen   bool
	transcript strings.Builder

	history []string
	cursor  int // index into history while browsing, -1 otherwise

	width, height int
}

func newREPLModel(app *session.Session, worldName string) *replModel {
	in := textinput.New()
	in.Prompt = "scope> "
	in.Placeholder = "resolve actor.topmost_clothing[]"
	in.CharLimit = 2048
	in.Focus()

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)
	delegate.SetSpacing(0)
	menu := list.New(nil, delegate, 40, maxCompletions)
	menu.SetShowTitle(false)
	menu.SetShowStatusBar(false)
	menu.SetShowHelp(false)
	menu.SetFilteringEnabled(false)

	m := &replModel{
		app:       app,
		worldName: worldName,
		input:     in,
		output:    viewport.New(0, 0),
		menu:      menu,
		cursor:    -1,
	}
	m.transcript.WriteString("Type 'help' for commands, 'exit' to quit.")
	m.output.SetContent(m.transcript.String())
	return m
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

// completions lists what val can be completed to: a command, an entity id
// after "actor " or "by: ", or a registry field after the last "." of a
// resolve expression.
func (m *replModel) completions(val string) []string {
	var out []string
	for _, c := range replCommands {
		if len(val) < len(c) && strings.HasPrefix(c, strings.ToLower(val)) {
			out = append(out, c)
		}
	}

	entityCompletions := func(head, prefix string) []string {
		var ids []string
		for _, id := range m.app.Store().EntityIDs() {
			if id != prefix && strings.HasPrefix(id, prefix) {
				ids = append(ids, head+id)
			}
		}
		return ids
	}

	if prefix, ok := strings.CutPrefix(val, "actor "); ok {
		return append(out, entityCompletions("actor ", prefix)...)
	}
	if i := strings.LastIndex(val, "by: "); i >= 0 {
		if prefix := val[i+4:]; !strings.Contains(prefix, " ") {
			return append(out, entityCompletions(val[:i+4], prefix)...)
		}
	}
	if expr, ok := strings.CutPrefix(val, "resolve "); ok {
		if i := strings.LastIndex(expr, "."); i >= 0 {
			head, prefix := val[:len(val)-len(expr)+i+1], expr[i+1:]
			for _, name := range m.app.Engine().Registry().Names() {
				if name != prefix && strings.HasPrefix(name, prefix) {
					out = append(out, head+name)
				}
			}
		}
	}
	return out
}

func (m *replModel) refreshMenu() {
	var items []list.Item
	if val := m.input.Value(); val != "" {
		for _, c := range m.completions(val) {
			items = append(items, completion(c))
		}
	}
	m.menu.SetItems(items)
	m.menuOpen = len(items) > 0
	if m.menuOpen {
		m.menu.SetHeight(min(len(items), maxCompletions))
		m.menu.ResetSelected()
	}
}

func (m *replModel) setInput(val string) {
	m.input.SetValue(val)
	m.input.CursorEnd()
	m.refreshMenu()
}

func (m *replModel) browse(delta int) {
	if len(m.history) == 0 {
		return
	}
	switch {
	case m.cursor == -1 && delta < 0:
		m.cursor = len(m.history) - 1
	case m.cursor == -1:
		return
	default:
		m.cursor += delta
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.history) {
		m.cursor = -1
		m.setInput("")
		return
	}
	m.setInput(m.history[m.cursor])
}

func (m *replModel) submit() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	switch val {
	case "":
		return nil
	case "exit", "quit":
		return tea.Quit
	}
	if n := len(m.history); n == 0 || m.history[n-1] != val {
		m.history = append(m.history, val)
	}
	m.cursor = -1
	m.setInput("")

	m.transcript.WriteString("\n\n" + promptEchoStyle.Render("> "+val) + "\n")
	lines, err := m.app.Execute(context.Background(), val)
	if err != nil {
		m.transcript.WriteString(failureStyle.Render(err.Error()))
	} else {
		for i, line := range lines {
			if i > 0 {
				m.transcript.WriteByte('\n')
			}
			if strings.Contains(line, ": skipped (") {
				line = skippedStyle.Render(line)
			}
			m.transcript.WriteString(line)
		}
	}
	m.output.SetContent(m.transcript.String())
	m.output.GotoBottom()
	return nil
}

func (m *replModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit, true
	case tea.KeyUp, tea.KeyDown:
		if m.menuOpen {
			var cmd tea.Cmd
			m.menu, cmd = m.menu.Update(msg)
			return cmd, true
		}
		if msg.Type == tea.KeyUp {
			m.browse(-1)
		} else {
			m.browse(1)
		}
		return nil, true
	case tea.KeyTab:
		if c, ok := m.menu.SelectedItem().(completion); ok && m.menuOpen {
			m.setInput(string(c))
		}
		return nil, true
	case tea.KeyEnter:
		return m.submit(), true
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshMenu()
	return cmd, false
}

// layout gives the transcript whatever height the other panes leave.
func (m *replModel) layout() {
	used := lipgloss.Height(m.header()) + lipgloss.Height(m.status()) + lipgloss.Height(m.footer()) + 4
	if m.menuOpen {
		used += m.menu.Height() + 2
	}
	m.output.Width = max(m.width-4, 10)
	m.output.Height = max(m.height-used, 4)
	m.menu.SetWidth(max(m.width-6, 10))
	m.input.Width = max(m.width-len(m.input.Prompt)-2, 10)
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, handled := m.handleKey(msg)
		cmds = append(cmds, cmd)
		if handled {
			m.layout()
			return m, tea.Batch(cmds...)
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}

	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	cmds = append(cmds, cmd)
	m.layout()
	return m, tea.Batch(cmds...)
}

func (m *replModel) header() string {
	return headerStyle.Render("scopedsl · " + m.worldName)
}

func (m *replModel) status() string {
	entities, asts, results := m.app.Stats()
	actor := m.app.Actor()
	if actor == "" {
		actor = "(none, use 'actor <id>')"
	}
	return statusStyle.Width(max(m.width-4, 10)).Render(fmt.Sprintf(
		"actor %s | %d entities | %d actions | cache %d expressions, %d resolutions",
		actor, entities, len(m.app.Catalog().Actions), asts, results))
}

func (m *replModel) footer() string {
	return hintStyle.Render("tab complete · ↑/↓ history · esc quit")
}

func (m *replModel) View() string {
	if m.width == 0 {
		return "Loading world..."
	}
	prompt := m.input.View()
	if m.menuOpen {
		prompt += "\n" + completionStyle.Render(m.menu.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.status(),
		outputStyle.Width(max(m.width-4, 10)).Render(m.output.View()),
		prompt,
		m.footer(),
	)
}

// RunTUI starts the full-screen REPL over app.
func RunTUI(app *session.Session, worldName string) error {
	_, err := tea.NewProgram(newREPLModel(app, worldName), tea.WithAltScreen()).Run()
	return err
}
