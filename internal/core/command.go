package core

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandCode is the leading number of a client control line.
type CommandCode int

const (
	CmdQuit      CommandCode = 0
	CmdUsername  CommandCode = 1
	CmdStartChat CommandCode = 2
	CmdReply     CommandCode = 3
	CmdMessage   CommandCode = 4
)

const (
	ReplyAccept  = "ACCEPT"
	ReplyDecline = "DECLINE"
)

// クライアントへの応答
const (
	RespSuccess      = "SUCCESS"
	RespDeclined     = "DECLINED"
	RespBusy         = "User already in another chat"
	RespGoodbye      = "Goodbye"
	RespWelcome      = "Connected to SIMP daemon"
	RespChatRequest  = "Chat request from: "
	RespMessageFrom  = "Message from "
	RespChatEnded    = "Chat ended by "
	RespUsernameSet  = "Username set to "
	RespPeerBusy     = "BUSY: "
	RespTimeout      = "TIMEOUT: "
	RespDeliveryFail = "DELIVERY FAILED: "
	RespError        = "ERROR: "
)

type Command struct {
	Code CommandCode
	Arg  string
}

func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	head, arg, _ := strings.Cut(line, " ")

	code, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return Command{}, fmt.Errorf("invalid command %q", line)
	}

	cmd := Command{Code: CommandCode(code), Arg: arg}
	switch cmd.Code {
	case CmdQuit:
	case CmdUsername, CmdStartChat:
		cmd.Arg = strings.TrimSpace(cmd.Arg)
		if cmd.Arg == "" {
			return Command{}, fmt.Errorf("command %d needs an argument", code)
		}
	case CmdReply:
		cmd.Arg = strings.ToUpper(strings.TrimSpace(cmd.Arg))
		if cmd.Arg != ReplyAccept && cmd.Arg != ReplyDecline {
			return Command{}, fmt.Errorf("expected %s or %s", ReplyAccept, ReplyDecline)
		}
	case CmdMessage:
		if cmd.Arg == "" {
			return Command{}, fmt.Errorf("empty message")
		}
	default:
		return Command{}, fmt.Errorf("unknown command code %d", code)
	}
	return cmd, nil
}

func (c Command) String() string {
	if c.Arg == "" {
		return strconv.Itoa(int(c.Code))
	}
	return fmt.Sprintf("%d %s", c.Code, c.Arg)
}
