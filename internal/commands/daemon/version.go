package daemon

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "バージョンを表示します",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("simpd %s\n", Version)
	},
}
