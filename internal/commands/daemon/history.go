package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"SimpChat/internal/history"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "保存したチャット履歴を扱います",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "履歴を表示します",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("db")
		peerAddr, _ := cmd.Flags().GetString("peer")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(peerAddr, limit)
		if err != nil {
			return err
		}
		fmt.Print(history.FormatTranscript(entries))
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "履歴を圧縮して書き出します",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("db")
		peerAddr, _ := cmd.Flags().GetString("peer")
		mode, _ := cmd.Flags().GetString("compress")

		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		out := args[0] + history.Extension(mode)
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()

		n, err := store.Export(f, peerAddr, mode)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d bytes to %s\n", n, out)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "1 件のメッセージを表示します",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid message id %q", args[0])
		}
		path, _ := cmd.Flags().GetString("db")

		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		e, err := store.Get(id)
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("message %d not found", id)
		}
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s", e.ID, history.FormatTranscript([]history.Entry{*e}))
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().String("db", "simp-history.db", "履歴の SQLite ファイル")
	historyCmd.PersistentFlags().String("peer", "", "相手のアドレスで絞り込む")
	historyListCmd.Flags().Int("limit", 50, "表示する件数（0 で全件）")
	historyExportCmd.Flags().StringP("compress", "c", history.ModeMedium, "圧縮モード (high, medium, low, none)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyShowCmd)
}
