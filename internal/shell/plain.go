package shell

import (
	"fmt"
	"io"
	"time"

	"SimpChat/internal/core"
	"SimpChat/internal/utils"
)

// RunPlain は TUI を使わず、端末から 1 行ずつ読み取ってデーモンに送る
func RunPlain(link *Link, out io.Writer) error {
	tty, err := utils.UseTty()
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range link.Lines() {
			fmt.Fprintf(out, "\r%s\n> ", line)
		}
	}()

	fmt.Fprintln(out, helpText)
	for {
		fmt.Fprint(out, "> ")
		input, err := tty.ReadString()
		if err != nil {
			return err
		}

		cmd, err := ParseInput(input)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if err := link.Send(cmd); err != nil {
			return err
		}

		if cmd.Code == core.CmdQuit {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
			}
			return nil
		}
	}
}
