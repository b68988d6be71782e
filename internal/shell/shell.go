package shell

import (
	"fmt"
	"strings"

	"SimpChat/internal/core"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const helpText = "/name <user>  /chat <addr|code>  /accept  /decline  /quit  or type a message"

// ParseInput maps a line typed by the user to a daemon command.
func ParseInput(input string) (core.Command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return core.Command{}, fmt.Errorf("empty input")
	}
	if !strings.HasPrefix(input, "/") {
		return core.Command{Code: core.CmdMessage, Arg: input}, nil
	}

	head, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	var cmd core.Command
	switch head {
	case "/name":
		cmd = core.Command{Code: core.CmdUsername, Arg: arg}
	case "/chat":
		cmd = core.Command{Code: core.CmdStartChat, Arg: arg}
	case "/accept":
		cmd = core.Command{Code: core.CmdReply, Arg: core.ReplyAccept}
	case "/decline":
		cmd = core.Command{Code: core.CmdReply, Arg: core.ReplyDecline}
	case "/quit", "/exit":
		cmd = core.Command{Code: core.CmdQuit}
	default:
		return core.Command{}, fmt.Errorf("invalid command: %s", head)
	}

	// デーモンと同じ規則で検証する
	return core.ParseCommand(cmd.String())
}

func newModel(lines <-chan string, send func(core.Command) error) model {
	ti := textinput.New()
	ti.Placeholder = "type /name <user> to begin"
	ti.CharLimit = 985
	ti.Focus()

	return model{
		state:    stateNormal,
		input:    ti,
		viewport: viewport.New(80, 20),
		lines:    lines,
		send:     send,
	}
}

// Run starts the full-screen client on link.
func Run(link *Link) error {
	p := tea.NewProgram(newModel(link.Lines(), link.Send), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func waitForLine(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return closedMsg{}
		}
		return lineMsg(line)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForLine(m.lines))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case lineMsg:
		return m.handleLine(string(msg))

	case closedMsg:
		m.appendLog(alertStyle.Render("daemon closed the connection"))
		return m, tea.Quit

	case tea.KeyMsg:
		if m.state == stateModal {
			return m.updateModal(msg)
		}
		return m.updateNormal(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleLine(line string) (tea.Model, tea.Cmd) {
	switch {
	case strings.HasPrefix(line, core.RespChatRequest):
		m.state = stateModal
		m.request = strings.TrimPrefix(line, core.RespChatRequest)
		m.modalChoice = choiceAccept
		m.appendLog(alertStyle.Render(line))
	case strings.HasPrefix(line, core.RespMessageFrom):
		m.appendLog(incomingStyle.Render(strings.TrimPrefix(line, core.RespMessageFrom)))
	case line == core.RespGoodbye:
		m.appendLog(line)
		return m, tea.Quit
	case strings.HasPrefix(line, core.RespError),
		strings.HasPrefix(line, core.RespPeerBusy),
		strings.HasPrefix(line, core.RespTimeout),
		strings.HasPrefix(line, core.RespDeliveryFail),
		line == core.RespBusy, line == core.RespDeclined:
		m.appendLog(alertStyle.Render(line))
	default:
		m.appendLog(line)
	}
	return m, waitForLine(m.lines)
}

func (m model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.send(core.Command{Code: core.CmdQuit})
		return m, tea.Quit

	case tea.KeyEnter:
		value := m.input.Value()
		m.input.Reset()

		cmd, err := ParseInput(value)
		if err != nil {
			m.appendLog(alertStyle.Render(err.Error()))
			return m, nil
		}
		if cmd.Code == core.CmdMessage {
			m.appendLog(outgoingStyle.Render("> " + cmd.Arg))
		}
		if err := m.send(cmd); err != nil {
			m.appendLog(alertStyle.Render(fmt.Sprintf("failed to send: %v", err)))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyLeft, tea.KeyRight, tea.KeyTab:
		m.modalChoice = 1 - m.modalChoice
	case tea.KeyEsc:
		m.state = stateNormal
	case tea.KeyEnter:
		answer := core.ReplyAccept
		if m.modalChoice == choiceDecline {
			answer = core.ReplyDecline
		}
		m.state = stateNormal
		if err := m.send(core.Command{Code: core.CmdReply, Arg: answer}); err != nil {
			m.appendLog(alertStyle.Render(fmt.Sprintf("failed to send: %v", err)))
		}
	case tea.KeyCtrlC:
		m.send(core.Command{Code: core.CmdQuit})
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) appendLog(line string) {
	m.logs = append(m.logs, line)
	m.refresh()
}

func (m *model) refresh() {
	m.viewport.SetContent(strings.Join(m.logs, "\n"))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if m.state == stateModal {
		accept, decline := selectedStyle, unselectedStyle
		if m.modalChoice == choiceDecline {
			accept, decline = unselectedStyle, selectedStyle
		}
		buttons := lipgloss.JoinHorizontal(lipgloss.Top, accept.Render("Accept"), "  ", decline.Render("Decline"))
		box := modalStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			titleStyle.Render("Chat request"),
			"",
			m.request,
			"",
			buttons,
		))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("SIMP chat"),
		m.viewport.View(),
		m.input.View(),
		helpStyle.Render(helpText),
	)
}
