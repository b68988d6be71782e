package client

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"SimpChat/internal/core"
	"SimpChat/internal/shell"
	"SimpChat/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version はビルド時に設定される
var Version = "dev"

// RootCmd はクライアントのルートコマンド
var RootCmd = &cobra.Command{
	Use:          "simpclient",
	Short:        "SIMP chat client",
	Long:         `ローカルの simpd に接続してチャットします。`,
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	RootCmd.Flags().StringP("daemon", "d", net.JoinHostPort("127.0.0.1", strconv.Itoa(core.DefaultClientPort)), "デーモンのアドレス")
	RootCmd.Flags().StringP("name", "n", "", "接続時に設定するユーザー名")
	RootCmd.Flags().Bool("plain", false, "TUI を使わず 1 行ずつ入力する")
	RootCmd.Flags().StringP("log-level", "l", "warn", "ログレベル (debug, info, warn, error)")
	RootCmd.Version = Version
}

func run(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("daemon")
	name, _ := cmd.Flags().GetString("name")
	plain, _ := cmd.Flags().GetBool("plain")
	level, _ := cmd.Flags().GetString("log-level")

	if err := utils.SetUpLogrus(level); err != nil {
		return err
	}

	mode := utils.ModeTUI
	if plain {
		mode = utils.ModePlain
	}

	link, err := shell.Dial(addr, 5*time.Second)
	if err != nil {
		return err
	}
	defer link.Close()
	logrus.Debugf("Connected to daemon at %s", addr)

	if name != "" {
		if err := link.Send(core.Command{Code: core.CmdUsername, Arg: name}); err != nil {
			return fmt.Errorf("failed to set username: %w", err)
		}
	}

	switch mode {
	case utils.ModePlain:
		if _, err := utils.OpenTty(); err != nil {
			return err
		}
		defer utils.CloseTty()
		return shell.RunPlain(link, os.Stdout)
	default:
		// 画面を崩さないように TUI 中はログを捨てる
		utils.SetLogOutput(io.Discard)
		defer utils.SetLogOutput(os.Stderr)
		return shell.Run(link)
	}
}
