package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	"github.com/MegaGrindStone/gemini-web-chat/internal/models"
)

// DefaultStyle is the glamour style used for assistant replies.
const DefaultStyle = "dark"

const welcomeText = "How can I help you today?"

type (
	replyMsg struct {
		reply string
		err   error
	}
	copyResetMsg struct {
		id    chat.BlockID
		token uint64
	}
)

// writeClipboard is swapped in tests, where no clipboard is available.
var writeClipboard = clipboard.WriteAll

// Model is the bubbletea model of the terminal chat.
type Model struct {
	session *chat.Session
	server  string
	style   string

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	copies chat.CopyState
	ready  bool
	err    error

	width  int
	height int
}

// NewModel creates the chat model for session. server is only displayed; style names a glamour style.
func NewModel(session *chat.Session, server, style string) Model {
	if style == "" {
		style = DefaultStyle
	}

	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		session:  session,
		server:   server,
		style:    style,
		textarea: ta,
		spinner:  s,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "alt+enter":
			m.textarea.InsertString("\n")
			return m, nil

		case "enter":
			user, _, ok := m.session.Begin(m.textarea.Value())
			if !ok {
				return m, nil
			}
			m.err = nil
			m.textarea.Reset()
			m.refresh()
			m.viewport.GotoBottom()

			return m, tea.Batch(
				sendMessage(m.session, user.Content),
				m.spinner.Tick,
			)
		}

		if n, ok := copyKey(key); ok {
			return m.copyBlock(n)
		}

	case replyMsg:
		m.session.Complete(msg.reply, msg.err)
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case copyResetMsg:
		m.copies.Reset(msg.id, msg.token)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.session.Loading() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	if _, ok := msg.(tea.KeyMsg); ok {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.width - 4

	header := headerStyle.Width(contentWidth).Render(
		lipgloss.JoinHorizontal(lipgloss.Center,
			titleStyle.Render("✦ Gemini Interface"),
			hintStyle.Render("  •  "+m.server),
		),
	)

	status := ""
	switch {
	case m.session.Loading():
		status = m.spinner.View() + loadingStyle.Render(" Thinking...")
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	}

	input := inputPanelStyle.Width(contentWidth).Render(m.textarea.View())

	help := statusBarStyle.Render(strings.Join([]string{
		statusKeyStyle.Render("enter") + " send",
		statusKeyStyle.Render("alt+enter") + " newline",
		statusKeyStyle.Render("alt+1..9") + " copy code",
		statusKeyStyle.Render("esc") + " quit",
	}, "  "))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		input,
		help,
	)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 3
	inputHeight := 4
	statusHeight := 2

	vpHeight := height - headerHeight - inputHeight - statusHeight
	if vpHeight < 5 {
		vpHeight = 5
	}
	contentWidth := width - 4

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 2)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.style),
		glamour.WithWordWrap(contentWidth-8),
	)
	if err != nil {
		m.err = fmt.Errorf("failed to create markdown renderer: %w", err)
		m.renderer = nil
		return
	}
	m.renderer = renderer
}

// refresh re-renders the conversation into the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

func (m Model) renderMessages() string {
	msgs := m.session.Messages()
	if len(msgs) == 0 {
		return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Center,
			welcomeTitleStyle.Render(welcomeText))
	}

	bubbleWidth := m.viewport.Width - 2
	last := lastAssistant(msgs)

	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			sb.WriteString(userLabelStyle.Render("● You") + "\n")
			sb.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Content) + "\n")
			continue
		}

		content := models.FormatReply(msg.Content)
		rendered := content
		if m.renderer != nil {
			if out, err := m.renderer.Render(content); err == nil {
				rendered = strings.TrimRight(out, "\n")
			}
		}

		sb.WriteString(assistantLabelStyle.Render("✦ Gemini") + "\n")
		sb.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(rendered) + "\n")

		if i == last {
			sb.WriteString(m.renderCopyLabels(i, models.CodeBlocks(content)))
		}
	}

	return sb.String()
}

func (m Model) renderCopyLabels(pos int, blocks []models.CodeBlock) string {
	var sb strings.Builder
	for i, b := range blocks {
		id := chat.BlockID{Message: pos, Block: i}
		label := m.copies.Label(id)

		style := copyLabelStyle
		if label == chat.CopiedLabel {
			style = copiedLabelStyle
		}

		lang := b.Language
		if lang == "" {
			lang = "code"
		}
		fmt.Fprintf(&sb, "%s %s\n", style.Render(fmt.Sprintf("[%d] %s", i+1, label)), hintStyle.Render(lang))
	}
	return sb.String()
}

// copyBlock copies the n-th (1-based) code block of the latest assistant reply.
func (m Model) copyBlock(n int) (tea.Model, tea.Cmd) {
	msgs := m.session.Messages()
	pos := lastAssistant(msgs)
	if pos < 0 {
		return m, nil
	}

	blocks := models.CodeBlocks(models.FormatReply(msgs[pos].Content))
	if n < 1 || n > len(blocks) {
		return m, nil
	}

	if err := writeClipboard(blocks[n-1].Code); err != nil {
		m.err = fmt.Errorf("failed to copy: %w", err)
		return m, nil
	}

	id := chat.BlockID{Message: pos, Block: n - 1}
	token := m.copies.Mark(id)
	m.refresh()

	return m, resetCopy(id, token, chat.CopyResetDelay)
}

func sendMessage(session *chat.Session, content string) tea.Cmd {
	return func() tea.Msg {
		reply, err := session.Send(context.Background(), content)
		return replyMsg{reply: reply, err: err}
	}
}

func resetCopy(id chat.BlockID, token uint64, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return copyResetMsg{id: id, token: token}
	})
}

// copyKey parses the "alt+1" ... "alt+9" bindings.
func copyKey(key string) (int, bool) {
	digit, ok := strings.CutPrefix(key, "alt+")
	if !ok || len(digit) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(digit)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func lastAssistant(msgs []models.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant {
			return i
		}
	}
	return -1
}

// Run starts the chat TUI
func Run(session *chat.Session, server, style string) error {
	p := tea.NewProgram(
		NewModel(session, server, style),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
