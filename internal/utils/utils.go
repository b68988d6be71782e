package utils

import (
	"fmt"
	"io"

	"github.com/mattn/go-tty"
	"github.com/sirupsen/logrus"
)

// SetUpLogrus configures the standard logger. An empty level means info.
func SetUpLogrus(level string) error {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        TimestampFormat,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// SetLogOutput はログの出力先を変える。TUI 表示中は画面を崩さないように使う。
func SetLogOutput(w io.Writer) {
	logrus.SetOutput(w)
}

func OpenTty() (*tty.TTY, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	ttyHandler = t
	return ttyHandler, nil
}

func UseTty() (*tty.TTY, error) {
	if ttyHandler == nil {
		return nil, fmt.Errorf("tty is not open")
	}
	return ttyHandler, nil
}

func CloseTty() error {
	if ttyHandler == nil {
		return nil
	}
	err := ttyHandler.Close()
	ttyHandler = nil
	return err
}
