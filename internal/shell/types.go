package shell

import (
	"SimpChat/internal/core"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateNormal state = iota
	stateModal
)

const (
	choiceAccept = iota
	choiceDecline
)

type model struct {
	width, height int

	state       state
	logs        []string
	input       textinput.Model
	viewport    viewport.Model
	modalChoice int
	request     string

	lines <-chan string
	send  func(core.Command) error
}

// デーモンから届いた 1 行
type lineMsg string

type closedMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	incomingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	outgoingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	alertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle     = lipgloss.NewStyle().Faint(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 3)
	selectedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86")).Padding(0, 2)
	unselectedStyle = lipgloss.NewStyle().Padding(0, 2)
)
