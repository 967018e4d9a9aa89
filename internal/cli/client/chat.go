package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

var (
	chatHeaderStyle = lipgloss.NewStyle().Bold(true)
	chatBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	chatUserStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	chatBrainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	chatErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	chatMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// asker is the part of APIClient the chat model needs.
type asker interface {
	Ask(question string, topK int) (*domain.Answer, error)
}

type apiAsker struct{ api *APIClient }

func (a apiAsker) Ask(question string, topK int) (*domain.Answer, error) {
	return ask(a.api, question, topK)
}

type answerMsg struct {
	question string
	answer   *domain.Answer
	err      error
}

type chatModel struct {
	asker    asker
	topK     int
	baseURL  string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	log      []string
	waiting  bool
	width    int
	height   int
}

func newChatModel(a asker, baseURL string, topK int) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about something you captured..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	return chatModel{
		asker:    a,
		topK:     topK,
		baseURL:  baseURL,
		input:    ti,
		viewport: vp,
		spinner:  sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-6, 10)
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-8, 3)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.waiting = true
			m.log = append(m.log, chatUserStyle.Render("you: ")+question)
			m.refresh()
			return m, tea.Batch(m.askCmd(question), m.spinner.Tick)
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.log = append(m.log, chatErrorStyle.Render("error: "+msg.err.Error()))
		} else {
			m.log = append(m.log, chatBrainStyle.Render("brain: ")+msg.answer.Text)
			for _, src := range msg.answer.Sources {
				m.log = append(m.log, chatMutedStyle.Render(fmt.Sprintf("  - %s: %s", src.SourceTag, truncate(src.Snippet, 60))))
			}
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.log, "\n")))
	m.viewport.GotoBottom()
}

func (m chatModel) askCmd(question string) tea.Cmd {
	a, topK := m.asker, m.topK
	return func() tea.Msg {
		answer, err := a.Ask(question, topK)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

func (m chatModel) View() string {
	header := chatHeaderStyle.Render("secondbrain") + chatMutedStyle.Render("  "+m.baseURL)

	status := chatMutedStyle.Render("enter: ask  esc: quit")
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		chatBoxStyle.Render(m.viewport.View()),
		m.input.View(),
		status,
	)
}

func ChatCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation with your second brain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			m := newChatModel(apiAsker{api: api}, api.BaseURL(), topK)
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (server default when 0)")

	return cmd
}
