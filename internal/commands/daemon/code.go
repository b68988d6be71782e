package daemon

import (
	"fmt"

	"SimpChat/internal/core"
	"SimpChat/peer"

	"github.com/spf13/cobra"
)

var codeCmd = &cobra.Command{
	Use:   "code <host:port|code>",
	Short: "アドレスとアドレスコードを相互に変換します",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, err := peer.DecodeAddr(args[0]); err == nil {
			fmt.Println(addr)
			return nil
		}

		addr, err := peer.ParseAddr(args[0], core.DefaultPeerPort)
		if err != nil {
			return err
		}
		code, err := peer.EncodeAddr(addr)
		if err != nil {
			return err
		}
		fmt.Println(code)
		return nil
	},
}
