package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"0", Command{Code: CmdQuit}},
		{"1 alice\n", Command{Code: CmdUsername, Arg: "alice"}},
		{"2 127.0.0.1:7777", Command{Code: CmdStartChat, Arg: "127.0.0.1:7777"}},
		{"3 accept", Command{Code: CmdReply, Arg: ReplyAccept}},
		{"3 DECLINE\r\n", Command{Code: CmdReply, Arg: ReplyDecline}},
		{"4 hello  world ", Command{Code: CmdMessage, Arg: "hello  world "}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"", "x", "9 what", "1", "2  ", "3 maybe", "4"} {
		_, err := ParseCommand(line)
		assert.Error(t, err, line)
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "0", Command{Code: CmdQuit}.String())
	assert.Equal(t, "4 hi there", Command{Code: CmdMessage, Arg: "hi there"}.String())
}
