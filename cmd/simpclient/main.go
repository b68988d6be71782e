package main

import (
	"fmt"
	"os"

	"SimpChat/internal/commands/client"
)

// Version はビルド時に設定されるバージョン情報
var Version = "0.1.0"

func main() {
	client.Version = Version
	client.RootCmd.Version = Version

	if err := client.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
