package daemon

import (
	"SimpChat/internal/utils"

	"github.com/spf13/cobra"
)

// Version はビルド時に設定される
var Version = "dev"

// RootCmd はデーモンのルートコマンド
var RootCmd = &cobra.Command{
	Use:   "simpd",
	Short: "SIMP peer-to-peer chat daemon",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		return utils.SetUpLogrus(level)
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringP("log-level", "l", "info", "ログレベル (debug, info, warn, error)")

	RootCmd.AddCommand(startCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(codeCmd)
	RootCmd.AddCommand(versionCmd)
}
