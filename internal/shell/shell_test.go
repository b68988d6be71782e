package shell

import (
	"testing"

	"SimpChat/internal/core"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		input string
		want  core.Command
	}{
		{"hello there", core.Command{Code: core.CmdMessage, Arg: "hello there"}},
		{"/name alice", core.Command{Code: core.CmdUsername, Arg: "alice"}},
		{"/chat 10.0.0.2:7777", core.Command{Code: core.CmdStartChat, Arg: "10.0.0.2:7777"}},
		{"/accept", core.Command{Code: core.CmdReply, Arg: core.ReplyAccept}},
		{"/decline", core.Command{Code: core.CmdReply, Arg: core.ReplyDecline}},
		{"/quit", core.Command{Code: core.CmdQuit}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "  ", "/dance", "/name", "/chat"} {
		_, err := ParseInput(bad)
		assert.Error(t, err, bad)
	}
}

type recorder struct {
	sent []core.Command
}

func (r *recorder) send(cmd core.Command) error {
	r.sent = append(r.sent, cmd)
	return nil
}

func TestModelChatRequestModal(t *testing.T) {
	rec := &recorder{}
	lines := make(chan string, 1)
	m := newModel(lines, rec.send)

	next, cmd := m.Update(lineMsg(core.RespChatRequest + "10.0.0.2:7777 (bob)"))
	assert.NotNil(t, cmd)
	m = next.(model)
	require.Equal(t, stateModal, m.state)
	assert.Equal(t, "10.0.0.2:7777 (bob)", m.request)
	assert.Contains(t, m.View(), "Chat request")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(model)
	assert.Equal(t, choiceDecline, m.modalChoice)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	assert.Equal(t, stateNormal, m.state)
	assert.Equal(t, []core.Command{{Code: core.CmdReply, Arg: core.ReplyDecline}}, rec.sent)
}

func TestModelSendsTypedMessage(t *testing.T) {
	rec := &recorder{}
	m := newModel(make(chan string), rec.send)

	m.input.SetValue("hi bob")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)

	assert.Equal(t, []core.Command{{Code: core.CmdMessage, Arg: "hi bob"}}, rec.sent)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.logs, 1)
	assert.Contains(t, m.logs[0], "hi bob")
}

func TestModelQuitsOnGoodbye(t *testing.T) {
	m := newModel(make(chan string), (&recorder{}).send)

	_, cmd := m.Update(lineMsg(core.RespGoodbye))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(closedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
