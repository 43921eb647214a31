package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/relaykit/anthrelay/pkg/anthropic"
	"github.com/relaykit/anthrelay/pkg/llm"
	"github.com/relaykit/anthrelay/pkg/logger"
	"github.com/relaykit/anthrelay/proxy"
)

const chatLongDesc string = `Chat interactively with an Anthropic model.

Opens a terminal session that streams the model's reply token by token.
The API key comes from the config file or ANTHROPIC_API_KEY.

Examples:
  anthrelay chat
  anthrelay chat --model claude-haiku-4-5-20251001
  anthrelay chat --config /etc/anthrelay.toml`

const chatShortDesc string = "Chat interactively with a model"

type chatCommander struct {
	configPath string
	model      string
	debug      bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "claude-sonnet-4-5-20250929", "Model to chat with")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging (stderr)")

	return cmd
}

func (c *chatCommander) run() error {
	config, err := proxy.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	log := logger.NewStderrLogger(c.debug)
	defer log.Sync()

	client := anthropic.New(config.ClientConfig(), log)

	program := tea.NewProgram(newChatModel(client, c.model))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type (
	streamStartedMsg struct{ stream *anthropic.Stream }
	fragmentMsg      string
	streamDoneMsg    struct{}
	streamErrMsg     struct{ err error }
)

// chatModel drives one interactive conversation. Fragments arrive as
// bubbletea messages; each received fragment schedules the next Recv, so
// network reads happen off the UI loop.
type chatModel struct {
	client  *anthropic.Client
	modelID string

	input      textinput.Model
	transcript []string
	messages   []llm.Message

	stream  *anthropic.Stream
	current string
	waiting bool
}

func newChatModel(client *anthropic.Client, modelID string) chatModel {
	input := textinput.New()
	input.Placeholder = "Say something..."
	input.Focus()
	input.CharLimit = 0

	return chatModel{
		client:  client,
		modelID: modelID,
		input:   input,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.stream != nil {
				m.stream.Close()
			}
			return m, tea.Quit

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.messages = append(m.messages, llm.Message{
				Role:    llm.RoleUser,
				Content: llm.TextContent(text),
			})
			m.transcript = append(m.transcript, userStyle.Render("you: ")+text)
			m.input.Reset()
			m.waiting = true
			return m, m.startStream()
		}

	case streamStartedMsg:
		m.stream = msg.stream
		m.current = ""
		return m, recvFragment(msg.stream)

	case fragmentMsg:
		m.current += string(msg)
		return m, recvFragment(m.stream)

	case streamDoneMsg:
		m.messages = append(m.messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: llm.TextContent(m.current),
		})
		m.transcript = append(m.transcript, assistantStyle.Render("assistant: ")+m.current)
		m.current = ""
		m.stream = nil
		m.waiting = false
		return m, nil

	case streamErrMsg:
		m.transcript = append(m.transcript, errorStyle.Render("Error: "+msg.err.Error()))
		m.current = ""
		m.stream = nil
		m.waiting = false
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) View() string {
	var b strings.Builder

	for _, line := range m.transcript {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.waiting {
		b.WriteString(assistantStyle.Render("assistant: "))
		b.WriteString(m.current)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter to send, esc to quit"))
	b.WriteString("\n")

	return b.String()
}

func (m chatModel) startStream() tea.Cmd {
	client := m.client
	req := llm.ChatRequest{
		Model:    m.modelID,
		Messages: append([]llm.Message(nil), m.messages...),
		Stream:   true,
	}
	return func() tea.Msg {
		stream, err := client.Stream(context.Background(), req)
		if err != nil {
			return streamErrMsg{err: err}
		}
		return streamStartedMsg{stream: stream}
	}
}

func recvFragment(stream *anthropic.Stream) tea.Cmd {
	return func() tea.Msg {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return streamDoneMsg{}
		}
		if err != nil {
			return streamErrMsg{err: err}
		}
		return fragmentMsg(fragment)
	}
}
