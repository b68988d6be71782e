package main

import (
	"os"

	"SimpChat/internal/commands/daemon"

	"github.com/sirupsen/logrus"
)

// Version はビルド時に設定されるバージョン情報
var Version = "0.1.0"

func main() {
	daemon.Version = Version

	if err := daemon.RootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
