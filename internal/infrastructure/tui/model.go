// Package tui implements the terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
)

// ChatPort is the TUI-facing subset of the retrieval service.
type ChatPort interface {
	Ask(ctx context.Context, question string) (*entities.ChatResponse, error)
}

// SessionChat binds a retrieval service to one session.
type SessionChat struct {
	svc  *usecases.RetrievalService
	sess *usecases.Session
}

// NewSessionChat creates a SessionChat for sess.
func NewSessionChat(svc *usecases.RetrievalService, sess *usecases.Session) *SessionChat {
	return &SessionChat{svc: svc, sess: sess}
}

// Ask answers question within the bound session.
func (c *SessionChat) Ask(ctx context.Context, question string) (*entities.ChatResponse, error) {
	return c.svc.Ask(ctx, c.sess, question)
}

type answerMsg struct {
	resp *entities.ChatResponse
	err  error
}

// Model is the Bubble Tea model for the chat client: the conversation on top,
// the passages behind the last answer below it, and the question input.
type Model struct {
	chat       ChatPort
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	passages   []entities.Passage
	cursor     int
	summary    string
	status     string
	waiting    bool
	ready      bool
	width      int
}

// New creates a chat model. summary is shown under the title, e.g. the ingest outcome.
func New(chat ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		chat:     chat,
		input:    ti,
		viewport: viewport.New(0, 0),
		summary:  summary,
		status:   "Ready. Tab cycles relevant documents, Ctrl+C quits.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys, window resizes and finished answers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 + passagesHeight // header, status, input, spacer, passages
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.resp != nil {
			m.passages = msg.resp.Passages
			m.cursor = 0
		}
		switch {
		case msg.err == nil && msg.resp != nil:
			m.transcript = append(m.transcript, assistantStyle.Render("assistant: ")+msg.resp.Answer)
			m.status = fmt.Sprintf("%d relevant documents", len(m.passages))
		case msg.err != nil && msg.resp != nil:
			m.transcript = append(m.transcript, errorStyle.Render("answer unavailable: "+msg.err.Error()))
			m.status = fmt.Sprintf("Answer failed; showing %d relevant documents", len(m.passages))
		default:
			m.transcript = append(m.transcript, errorStyle.Render(fmt.Sprintf("error: %v", msg.err)))
			m.status = "Retrieval failed"
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.waiting = true
			m.status = "Thinking..."
			m.transcript = append(m.transcript, userStyle.Render("you: ")+q)
			m.refresh()
			return m, m.ask(q)
		case "tab":
			if len(m.passages) > 0 {
				m.cursor = (m.cursor + 1) % len(m.passages)
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.chat.Ask(context.Background(), question)
		return answerMsg{resp: resp, err: err}
	}
}

func (m *Model) refresh() {
	wrap := lipgloss.NewStyle().Width(max(20, m.viewport.Width))
	lines := make([]string, len(m.transcript))
	for i, l := range m.transcript {
		lines[i] = wrap.Render(l)
	}
	m.viewport.SetContent(strings.Join(lines, "\n\n"))
	m.viewport.GotoBottom()
}

// View renders the transcript, the passage pane and the input.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("askdocs")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	chat := chatBoxStyle.Render(m.viewport.View())
	passages := passageBoxStyle.Width(max(20, m.width-2)).Render(m.renderPassage())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + chat + "\n" + passages + "\n" + input + "\n" + status
}

func (m Model) renderPassage() string {
	if len(m.passages) == 0 {
		return "Relevant documents (0)\n\nAsk a question to retrieve related content."
	}
	p := m.passages[m.cursor]
	title := fmt.Sprintf("Relevant documents (%d/%d)  %s", m.cursor+1, len(m.passages), p.SourceFile)
	return title + "\n\n" + truncate(p.Text, 400)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

const passagesHeight = 8

var (
	chatBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	passageBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MaxHeight(passagesHeight)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
